/*
Package accountsdk is the Go client for the accounts service.

	client := accountsdk.NewClient("https://accounts.example.com")

	// Registration signs the new account in.
	_, err := client.Register(ctx, accountsdk.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "pw123456",
	})

	// The code arrives by email.
	_, err = client.VerifyEmail(ctx, code)

	me, err := client.Me(ctx)

Every method returns an *APIError for non-2xx responses. Compare against the
predefined errors with errors.Is:

	if errors.Is(err, accountsdk.ErrEmailNotVerified) {
		// prompt for the verification code
	}

Validation failures carry per-field messages in APIError.Details.

The session credential is captured from the "token" cookie the service sets
and replayed as a bearer token. Use SessionToken and SetSessionToken to
persist it between processes.
*/
package accountsdk
