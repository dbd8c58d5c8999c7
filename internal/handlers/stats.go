package handlers

import (
	"net/http"

	"github.com/eldtechnologies/ledgerchat/internal/models"
)

// StatsResponse counts stored accounts by kind.
type StatsResponse struct {
	Contacts      int64 `json:"contacts"`
	Conversations int64 `json:"conversations"`
	Groups        int64 `json:"groups"`
	Memberships   int64 `json:"memberships"`
}

// Stats handles GET /stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.ledger.CountByKind(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("count accounts")
		h.Error(w, http.StatusInternalServerError, "failed to count accounts")
		return
	}

	h.JSON(w, http.StatusOK, StatsResponse{
		Contacts:      counts[string(models.KindContact)],
		Conversations: counts[string(models.KindDirectConversation)],
		Groups:        counts[string(models.KindGroup)],
		Memberships:   counts[string(models.KindGroupContact)],
	})
}
