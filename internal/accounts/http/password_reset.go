package http

import (
	"net/http"

	"github.com/aussiebroadwan/accounts/pkg/accountsdk"
	"github.com/aussiebroadwan/accounts/pkg/httpx"
)

// HandleForgotPassword godoc
//
//	@Summary		Request a password reset
//	@Description	Emails a single-use reset link. Any earlier pending reset link stops working.
//	@Tags			Accounts
//	@Accept			json
//	@Produce		json
//	@Param			request	body		accountsdk.ForgotPasswordRequest	true	"email"
//	@Success		200		{object}	accountsdk.MessageResponse			"Reset link sent"
//	@Failure		400		{object}	accountsdk.ErrorResponse			"Missing email"
//	@Failure		404		{object}	accountsdk.ErrorResponse			"Unknown email"
//	@Failure		500		{object}	accountsdk.ErrorResponse			"Internal server error"
//	@Router			/v1/accounts/forgot-password [post].
func (h *AccountsHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req accountsdk.ForgotPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.Accounts.ForgotPassword(r.Context(), req.Email); err != nil {
		h.writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, accountsdk.MessageResponse{
		Success: true,
		Message: "Password reset link sent to your email",
	})
}

// HandleResetPassword godoc
//
//	@Summary		Reset password
//	@Description	Sets a new password using the token from the reset link.
//	@Tags			Accounts
//	@Accept			json
//	@Produce		json
//	@Param			token	path		string							true	"Reset token from the emailed link"
//	@Param			request	body		accountsdk.ResetPasswordRequest	true	"password"
//	@Success		200		{object}	accountsdk.MessageResponse		"Password reset"
//	@Failure		400		{object}	accountsdk.ErrorResponse		"Missing password or invalid/expired token"
//	@Failure		500		{object}	accountsdk.ErrorResponse		"Internal server error"
//	@Router			/v1/accounts/reset-password/{token} [post].
func (h *AccountsHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req accountsdk.ResetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.Accounts.ResetPassword(r.Context(), r.PathValue("token"), req.Password); err != nil {
		h.writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, accountsdk.MessageResponse{
		Success: true,
		Message: "Password reset successful",
	})
}
