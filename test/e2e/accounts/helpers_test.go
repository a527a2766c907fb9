package accounts_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"testing"
	"time"

	"github.com/aussiebroadwan/accounts/pkg/accountsdk"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Common constants and helper functions for accounts service end-to-end tests.
 * Mail runs on the log driver at debug level, so codes and reset links are
 * read back from the container log.
 */

const (
	testImageName = "aussiebroadwan-accounts-test:latest"
	clientURL     = "https://app.example.test"
)

var (
	verificationCodeRe = regexp.MustCompile(`verification code is:\s+([A-Za-z0-9_-]{43})`)
	resetLinkRe        = regexp.MustCompile(`/reset-password/([A-Za-z0-9_-]{43})`)
)

// TestMain builds the Docker image once before all tests and removes it
// afterwards.
func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	fmt.Fprintf(os.Stdout, "Building Accounts Service Docker image...")
	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up Accounts Service Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func buildDockerImage() error {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/accounts/Dockerfile",
		"../../../")
	cmd.Dir = "."
	cmd.Stdout = os.Stdout
	cmd.Stderr = nil

	return cmd.Run()
}

func cleanupDockerImage() {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "rmi", "-f", testImageName)
	_ = cmd.Run()
}

type accountsContainer struct {
	testcontainers.Container
	BaseURL string
}

// setupAccountsContainer starts the service on sqlite with the log mail
// driver and returns it with its base URL.
func setupAccountsContainer(t *testing.T) *accountsContainer {
	t.Helper()
	if testing.Short() {
		t.Skip("e2e tests need docker")
	}
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        testImageName,
		ExposedPorts: []string{"8080/tcp"},
		Env: map[string]string{
			"ENV":            "test",
			"LOG_LEVEL":      "debug",
			"LOG_FORMAT":     "json",
			"MAIL_DRIVER":    "log",
			"CLIENT_URL":     clientURL,
			"HASH_ALGORITHM": "argon2id",
		},
		WaitingFor: wait.ForHTTP("/livez").
			WithPort("8080/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	mappedPort, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	return &accountsContainer{
		Container: container,
		BaseURL:   fmt.Sprintf("http://%s:%s", host, mappedPort.Port()),
	}
}

// lastMailText returns the text body of the most recent message of kind
// written to the container log.
func (c *accountsContainer) lastMailText(t *testing.T, kind string) string {
	t.Helper()

	var text string
	require.Eventually(t, func() bool {
		logs, err := c.Logs(context.Background())
		if err != nil {
			return false
		}
		defer logs.Close()

		found := ""
		sc := bufio.NewScanner(logs)
		sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for sc.Scan() {
			// Skip the stream header docker prepends to each line.
			line := sc.Bytes()
			start := bytes.Index(line, []byte(`{"time"`))
			if start < 0 {
				continue
			}
			var entry struct {
				Msg  string `json:"msg"`
				Kind string `json:"kind"`
				Text string `json:"text"`
			}
			if json.Unmarshal(line[start:], &entry) != nil {
				continue
			}
			if entry.Msg == "mail body" && entry.Kind == kind {
				found = entry.Text
			}
		}
		text = found
		return text != ""
	}, 10*time.Second, 200*time.Millisecond, "no %s mail in container log", kind)

	return text
}

func (c *accountsContainer) verificationCode(t *testing.T) string {
	t.Helper()
	m := verificationCodeRe.FindStringSubmatch(c.lastMailText(t, "verification"))
	require.Len(t, m, 2, "verification mail carries no code")
	return m[1]
}

func (c *accountsContainer) resetToken(t *testing.T) string {
	t.Helper()
	m := resetLinkRe.FindStringSubmatch(c.lastMailText(t, "reset_request"))
	require.Len(t, m, 2, "reset mail carries no link")
	return m[1]
}

// registerVerified registers and verifies an account, leaving client signed in.
func registerVerified(t *testing.T, c *accountsContainer, client *accountsdk.Client, username, email, password string) accountsdk.User {
	t.Helper()

	_, err := client.Register(t.Context(), accountsdk.RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
	})
	require.NoError(t, err, "register should succeed")

	resp, err := client.VerifyEmail(t.Context(), c.verificationCode(t))
	require.NoError(t, err, "verify email should succeed")
	require.True(t, resp.User.IsVerified)

	return resp.User
}

func assertHealthy(t *testing.T, health *accountsdk.HealthResponse, err error) {
	t.Helper()
	require.NoError(t, err)
	require.NotNil(t, health)
	require.Equal(t, "ok", health.Status)
}
