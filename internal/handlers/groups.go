package handlers

import (
	"net/http"

	"github.com/eldtechnologies/ledgerchat/internal/program"
)

// GroupRequest is the body of POST /groups.
type GroupRequest struct {
	Accounts program.GroupAccounts `json:"accounts"`
	Args     program.GroupArgs     `json:"args"`
}

// AddMemberRequest is the body of POST /groups/members.
type AddMemberRequest struct {
	Accounts program.AddGroupContactAccounts `json:"accounts"`
	Args     program.AddGroupContactArgs     `json:"args"`
}

// CreateGroup handles POST /groups.
func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	signer, ok := h.signer(w, r)
	if !ok {
		return
	}
	var req GroupRequest
	if !h.decode(w, r, &req) {
		return
	}

	receipt, err := h.processor.CreateGroup(r.Context(), signer, req.Accounts, req.Args)
	if err != nil {
		h.Fail(w, err)
		return
	}
	h.JSON(w, http.StatusCreated, receipt)
}

// AddGroupMember handles POST /groups/members.
func (h *Handler) AddGroupMember(w http.ResponseWriter, r *http.Request) {
	signer, ok := h.signer(w, r)
	if !ok {
		return
	}
	var req AddMemberRequest
	if !h.decode(w, r, &req) {
		return
	}

	receipt, err := h.processor.AddGroupContact(r.Context(), signer, req.Accounts, req.Args)
	if err != nil {
		h.Fail(w, err)
		return
	}
	h.JSON(w, http.StatusCreated, receipt)
}
