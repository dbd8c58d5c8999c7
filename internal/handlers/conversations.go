package handlers

import (
	"net/http"

	"github.com/eldtechnologies/ledgerchat/internal/program"
)

// MessageRequest is the body of POST /conversations and
// POST /conversations/messages.
type MessageRequest struct {
	Accounts program.ConversationAccounts `json:"accounts"`
	Args     program.MessageArgs          `json:"args"`
}

// StartConversation handles POST /conversations.
func (h *Handler) StartConversation(w http.ResponseWriter, r *http.Request) {
	signer, ok := h.signer(w, r)
	if !ok {
		return
	}
	var req MessageRequest
	if !h.decode(w, r, &req) {
		return
	}

	receipt, err := h.processor.StartDirectConversation(r.Context(), signer, req.Accounts, req.Args)
	if err != nil {
		h.Fail(w, err)
		return
	}
	h.JSON(w, http.StatusCreated, receipt)
}

// SendMessage handles POST /conversations/messages.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	signer, ok := h.signer(w, r)
	if !ok {
		return
	}
	var req MessageRequest
	if !h.decode(w, r, &req) {
		return
	}

	receipt, err := h.processor.SendDirectMessage(r.Context(), signer, req.Accounts, req.Args)
	if err != nil {
		h.Fail(w, err)
		return
	}
	h.JSON(w, http.StatusOK, receipt)
}
