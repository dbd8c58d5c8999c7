package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/eldtechnologies/ledgerchat/internal/address"
	"github.com/eldtechnologies/ledgerchat/internal/crypto"
	"github.com/eldtechnologies/ledgerchat/internal/metrics"
	"github.com/eldtechnologies/ledgerchat/internal/store"
)

type contextKey string

const SignerContextKey contextKey = "signer"

// NonceTTL is how long a used nonce is remembered. It outlives the
// timestamp window.
const NonceTTL = 3 * time.Minute

// AuthMiddleware handles signature verification for authenticated endpoints.
type AuthMiddleware struct {
	nonces store.NonceCache
	window time.Duration
	now    func() time.Time
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(nonces store.NonceCache) *AuthMiddleware {
	return &AuthMiddleware{
		nonces: nonces,
		window: 30 * time.Second,
		now:    time.Now,
	}
}

// RequireAuth middleware verifies Ed25519 signatures on requests. The
// signer is the public key named in the request itself.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Extract headers
		signerID := r.Header.Get(crypto.HeaderSigner)
		nonce := r.Header.Get(crypto.HeaderNonce)
		timestamp := r.Header.Get(crypto.HeaderTimestamp)
		signature := r.Header.Get(crypto.HeaderSignature)

		// Validate all headers present
		if signerID == "" || nonce == "" || timestamp == "" || signature == "" {
			m.reject(w, "missing_headers", "missing auth headers")
			return
		}

		// Parse and validate timestamp
		ts, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			m.reject(w, "bad_timestamp", "invalid timestamp format")
			return
		}
		if !m.isTimestampValid(ts) {
			m.reject(w, "expired", "timestamp expired or too far in future")
			return
		}

		if len(nonce) < crypto.MinNonceLen {
			m.reject(w, "short_nonce", "nonce must be at least 24 characters")
			return
		}

		// Check nonce not reused
		if m.nonces.IsNonceUsed(r.Context(), signerID, nonce) {
			m.reject(w, "replay", "nonce already used")
			return
		}

		signer, pubkey, err := crypto.ParseIdentity(signerID)
		if err != nil {
			m.reject(w, "bad_signer", "invalid signer public key")
			return
		}

		// Read body and reset it for the handler
		body, err := io.ReadAll(r.Body)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "failed to read request body")
			return
		}
		r.Body = io.NopCloser(bytes.NewBuffer(body))

		if err := crypto.VerifySignature(pubkey, crypto.SignaturePayload(body, nonce, ts), signature); err != nil {
			m.reject(w, "bad_signature", "invalid signature")
			return
		}

		m.nonces.MarkNonceUsed(r.Context(), signerID, nonce, NonceTTL)

		ctx := context.WithValue(r.Context(), SignerContextKey, signer)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) isTimestampValid(ts int64) bool {
	now := m.now().UnixMilli()
	windowMs := m.window.Milliseconds()
	// Only accept timestamps from the past (within window), reject future timestamps
	return ts > now-windowMs && ts <= now
}

func (m *AuthMiddleware) reject(w http.ResponseWriter, reason, message string) {
	metrics.AuthFailures.WithLabelValues(reason).Inc()
	jsonError(w, http.StatusUnauthorized, message)
}

func jsonError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// GetSignerFromContext retrieves the authenticated signer from the request
// context.
func GetSignerFromContext(ctx context.Context) (address.Address, bool) {
	signer, ok := ctx.Value(SignerContextKey).(address.Address)
	return signer, ok
}
