package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eldtechnologies/ledgerchat/internal/address"
	"github.com/eldtechnologies/ledgerchat/internal/models"
)

// AccountResponse is a decoded account.
type AccountResponse struct {
	Address address.Address `json:"address"`
	Kind    models.Kind     `json:"kind"`
	Account models.Account  `json:"account"`
}

// GetAccount handles GET /accounts/{address}.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	addr, err := address.Parse(chi.URLParam(r, "address"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid address: must be base58, 32 bytes")
		return
	}

	acct, err := h.processor.Account(r.Context(), addr)
	if err != nil {
		h.Fail(w, err)
		return
	}

	h.JSON(w, http.StatusOK, AccountResponse{
		Address: addr,
		Kind:    acct.Kind(),
		Account: acct,
	})
}
