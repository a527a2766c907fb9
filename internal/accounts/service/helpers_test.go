package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	"github.com/aussiebroadwan/accounts/internal/accounts/store/drivers/sqlite"
	"github.com/aussiebroadwan/accounts/pkg/cryptox"
	"github.com/aussiebroadwan/accounts/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer    = "https://accounts.example.test"
	testClientURL = "https://app.example.test"
)

type sentMessage struct {
	Kind    string
	To      string
	Payload string
}

// fakeNotifier records every dispatch. When fail is set every send errors
// after being recorded.
type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	fail bool
}

func (n *fakeNotifier) record(kind, to, payload string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{Kind: kind, To: to, Payload: payload})
	if n.fail {
		return errors.New("smtp: connection refused")
	}
	return nil
}

func (n *fakeNotifier) SendVerification(_ context.Context, to, code string) error {
	return n.record("verification", to, code)
}

func (n *fakeNotifier) SendWelcome(_ context.Context, to, username string) error {
	return n.record("welcome", to, username)
}

func (n *fakeNotifier) SendPasswordReset(_ context.Context, to, resetURL string) error {
	return n.record("password_reset", to, resetURL)
}

func (n *fakeNotifier) SendResetSuccess(_ context.Context, to string) error {
	return n.record("reset_success", to, "")
}

// last returns the most recent message of kind sent to to.
func (n *fakeNotifier) last(t *testing.T, kind, to string) sentMessage {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.sent) - 1; i >= 0; i-- {
		if n.sent[i].Kind == kind && n.sent[i].To == to {
			return n.sent[i]
		}
	}
	t.Fatalf("no %s message sent to %s", kind, to)
	return sentMessage{}
}

func (n *fakeNotifier) count(kind string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, m := range n.sent {
		if m.Kind == kind {
			c++
		}
	}
	return c
}

type harness struct {
	svc      *AccountService
	store    store.Store
	hasher   *cryptox.Hasher
	notifier *fakeNotifier
	clock    time.Time
}

func (h *harness) advance(d time.Duration) { h.clock = h.clock.Add(d) }

func newHarness(t *testing.T) *harness {
	t.Helper()

	s, err := sqlite.NewStore(sqlite.MemoryDSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())

	hasher, err := cryptox.NewHasher(cryptox.HasherConfig{ArgonMemory: 1024, ArgonTime: 1})
	require.NoError(t, err)

	km, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{Issuer: testIssuer})
	require.NoError(t, err)

	h := &harness{
		store:    s,
		hasher:   hasher,
		notifier: &fakeNotifier{},
		clock:    time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}
	h.svc = &AccountService{
		Store:    s,
		Hasher:   hasher,
		Sessions: &SessionIssuer{Keys: km, Issuer: testIssuer, TTL: 7 * 24 * time.Hour},
		Notifier: h.notifier,
		Config: AccountConfig{
			VerificationTTL: DefaultVerificationTTL,
			ResetTTL:        DefaultResetTTL,
			ClientURL:       testClientURL,
			MailTimeout:     time.Second,
		},
		Now: func() time.Time { return h.clock },
	}
	return h
}

// register creates an account and returns its id with the mailed code.
func (h *harness) register(t *testing.T, username, email, password string) (string, string) {
	t.Helper()
	res, err := h.svc.Register(context.Background(), username, email, password)
	require.NoError(t, err)
	return res.User.ID, h.notifier.last(t, "verification", res.User.Email).Payload
}

// registerVerified creates and verifies an account.
func (h *harness) registerVerified(t *testing.T, username, email, password string) string {
	t.Helper()
	id, code := h.register(t, username, email, password)
	_, err := h.svc.VerifyEmail(context.Background(), code)
	require.NoError(t, err)
	return id
}

// resetTokenFrom extracts the raw token from a mailed reset link.
func resetTokenFrom(t *testing.T, link string) string {
	t.Helper()
	prefix := testClientURL + "/reset-password/"
	require.True(t, strings.HasPrefix(link, prefix), "unexpected reset link %q", link)
	return strings.TrimPrefix(link, prefix)
}
