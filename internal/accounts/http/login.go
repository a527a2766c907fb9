package http

import (
	"net/http"

	"github.com/aussiebroadwan/accounts/pkg/accountsdk"
	"github.com/aussiebroadwan/accounts/pkg/httpx"
)

// HandleLogin godoc
//
//	@Summary		Log in
//	@Description	Checks the password of a verified account and sets the session cookie.
//	@Tags			Accounts
//	@Accept			json
//	@Produce		json
//	@Param			request	body		accountsdk.LoginRequest		true	"email, password"
//	@Success		200		{object}	accountsdk.AccountResponse	"Logged in"
//	@Failure		400		{object}	accountsdk.ErrorResponse	"Missing fields"
//	@Failure		401		{object}	accountsdk.ErrorResponse	"Invalid credentials"
//	@Failure		403		{object}	accountsdk.ErrorResponse	"Email not verified"
//	@Failure		404		{object}	accountsdk.ErrorResponse	"Unknown email"
//	@Failure		500		{object}	accountsdk.ErrorResponse	"Internal server error"
//	@Router			/v1/accounts/login [post].
func (h *AccountsHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req accountsdk.LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.Accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.Cookies.setSession(w, res.Session)
	httpx.WriteJSON(w, http.StatusOK, accountsdk.AccountResponse{
		Success: true,
		Message: "Logged in successfully",
		User:    toUser(res.User),
	})
}

// HandleLogout godoc
//
//	@Summary		Log out
//	@Description	Clears the session cookie. Always succeeds.
//	@Tags			Accounts
//	@Produce		json
//	@Success		200	{object}	accountsdk.MessageResponse	"Logged out"
//	@Router			/v1/accounts/logout [post].
func (h *AccountsHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.Cookies.clearSession(w)
	httpx.WriteJSON(w, http.StatusOK, accountsdk.MessageResponse{
		Success: true,
		Message: "Logged out successfully",
	})
}
