package http

import (
	"net/http"

	"github.com/aussiebroadwan/accounts/pkg/accountsdk"
	"github.com/aussiebroadwan/accounts/pkg/httpx"
)

// HandleRegister godoc
//
//	@Summary		Register an account
//	@Description	Creates an unverified account, emails a verification code and signs the caller in.
//	@Description	The session credential is returned in the HttpOnly "token" cookie.
//	@Tags			Accounts
//	@Accept			json
//	@Produce		json
//	@Param			request	body		accountsdk.RegisterRequest	true	"username, email, password"
//	@Success		201		{object}	accountsdk.AccountResponse	"Account created"
//	@Failure		400		{object}	accountsdk.ErrorResponse	"Missing or invalid fields"
//	@Failure		409		{object}	accountsdk.ErrorResponse	"Email or username already registered"
//	@Failure		500		{object}	accountsdk.ErrorResponse	"Internal server error"
//	@Router			/v1/accounts/register [post].
func (h *AccountsHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req accountsdk.RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.Accounts.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.Cookies.setSession(w, res.Session)
	httpx.WriteJSON(w, http.StatusCreated, accountsdk.AccountResponse{
		Success: true,
		Message: "User created successfully",
		User:    toUser(res.User),
	})
}
