package http

import (
	"net/http"

	"github.com/aussiebroadwan/accounts/pkg/accountsdk"
	"github.com/aussiebroadwan/accounts/pkg/httpx"
)

// HandleVerifyEmail godoc
//
//	@Summary		Verify email
//	@Description	Consumes the emailed verification code and marks the account verified.
//	@Tags			Accounts
//	@Accept			json
//	@Produce		json
//	@Param			request	body		accountsdk.VerifyEmailRequest	true	"code"
//	@Success		200		{object}	accountsdk.AccountResponse		"Email verified"
//	@Failure		400		{object}	accountsdk.ErrorResponse		"Missing, invalid or expired code"
//	@Failure		500		{object}	accountsdk.ErrorResponse		"Internal server error"
//	@Router			/v1/accounts/verify-email [post].
func (h *AccountsHandler) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req accountsdk.VerifyEmailRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.Accounts.VerifyEmail(r.Context(), req.Code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, accountsdk.AccountResponse{
		Success: true,
		Message: "Email verified successfully",
		User:    toUser(user),
	})
}
