package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/ledgerchat/internal/address"
	"github.com/eldtechnologies/ledgerchat/internal/api/middleware"
	"github.com/eldtechnologies/ledgerchat/internal/program"
	"github.com/eldtechnologies/ledgerchat/internal/store"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	processor *program.Processor
	ledger    store.Ledger
	driver    string
	redis     *store.RedisStore // nil when Redis is not configured
	logger    zerolog.Logger
}

// NewHandler creates a new Handler. redis may be nil.
func NewHandler(processor *program.Processor, ledger store.Ledger, driver string, redis *store.RedisStore, logger zerolog.Logger) *Handler {
	return &Handler{
		processor: processor,
		ledger:    ledger,
		driver:    driver,
		redis:     redis,
		logger:    logger,
	}
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, ErrorResponse{Error: message})
}

// Fail reports an operation error. Rejections carry their code; anything
// else is logged and hidden behind a 500.
func (h *Handler) Fail(w http.ResponseWriter, err error) {
	code := program.Code(err)
	if code == "" {
		h.logger.Error().Err(err).Msg("operation failed")
		h.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.JSON(w, StatusForCode(code), ErrorResponse{Error: err.Error(), Code: code})
}

// StatusForCode maps an operation error code to its HTTP status.
func StatusForCode(code string) int {
	switch code {
	case "NotFound":
		return http.StatusNotFound
	case "AlreadyExists", "CapacityExceeded":
		return http.StatusConflict
	case "Unauthorized":
		return http.StatusForbidden
	case "NameTooLong", "MessageTooLong":
		return http.StatusUnprocessableEntity
	case "AddressMismatch", "SelfRelationError", "InvalidRole", "InvalidAccount":
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// signer returns the authenticated signer, writing a 401 when there is none.
func (h *Handler) signer(w http.ResponseWriter, r *http.Request) (address.Address, bool) {
	signer, ok := middleware.GetSignerFromContext(r.Context())
	if !ok {
		h.Error(w, http.StatusUnauthorized, "authentication required")
	}
	return signer, ok
}

// decode parses a JSON request body into dst, writing a 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}
