package handlers

import (
	"net/http"

	"github.com/eldtechnologies/ledgerchat/internal/program"
)

// ContactRequest is the body of POST and PUT /contacts.
type ContactRequest struct {
	Accounts program.ContactAccounts `json:"accounts"`
	Args     program.ContactArgs     `json:"args"`
}

// CreateContact handles POST /contacts.
func (h *Handler) CreateContact(w http.ResponseWriter, r *http.Request) {
	signer, ok := h.signer(w, r)
	if !ok {
		return
	}
	var req ContactRequest
	if !h.decode(w, r, &req) {
		return
	}

	receipt, err := h.processor.CreateContact(r.Context(), signer, req.Accounts, req.Args)
	if err != nil {
		h.Fail(w, err)
		return
	}
	h.JSON(w, http.StatusCreated, receipt)
}

// UpdateContact handles PUT /contacts.
func (h *Handler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	signer, ok := h.signer(w, r)
	if !ok {
		return
	}
	var req ContactRequest
	if !h.decode(w, r, &req) {
		return
	}

	receipt, err := h.processor.UpdateContact(r.Context(), signer, req.Accounts, req.Args)
	if err != nil {
		h.Fail(w, err)
		return
	}
	h.JSON(w, http.StatusOK, receipt)
}
