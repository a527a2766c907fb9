package http

import (
	"net/http"

	"github.com/aussiebroadwan/accounts/pkg/accountsdk"
	"github.com/aussiebroadwan/accounts/pkg/httpx"
)

// HandleMe godoc
//
//	@Summary		Current account
//	@Description	Returns the account behind the session cookie or bearer credential.
//	@Tags			Accounts
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	accountsdk.MeResponse		"Account"
//	@Failure		401	{object}	accountsdk.ErrorResponse	"Missing or invalid session"
//	@Failure		404	{object}	accountsdk.ErrorResponse	"Account no longer exists"
//	@Failure		500	{object}	accountsdk.ErrorResponse	"Internal server error"
//	@Router			/v1/accounts/me [get].
func (h *AccountsHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := httpx.SubjectFromContext(ctx)
	if !ok {
		accountsdk.ErrUnauthenticated.WriteError(w)
		return
	}

	user, err := h.Accounts.Me(ctx, userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, accountsdk.MeResponse{
		Success: true,
		User:    toUser(user),
	})
}
