package settlement

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/dualwallet/internal/common"
	"github.com/dmitrijs2005/dualwallet/internal/logging"
	"github.com/dmitrijs2005/dualwallet/internal/wallet"
)

const maxWebhookBody = 64 << 10

// Resolver accepts settlement outcomes.
type Resolver interface {
	Resolve(reference string, status wallet.Status) (Order, error)
}

type webhookRequest struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

// Sign returns the hex HMAC-SHA256 of body, as sent in the signature header.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func validSignature(secret string, body []byte, sig string) bool {
	got, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// WebhookHandler receives payment processor callbacks.
//
// The body is {"reference": "...", "status": "completed"|"failed"} and must
// be signed with the shared secret in the X-Signature header.
type WebhookHandler struct {
	resolver Resolver
	secret   string
	logger   logging.Logger
}

func NewWebhookHandler(resolver Resolver, secret string, logger logging.Logger) *WebhookHandler {
	return &WebhookHandler{resolver: resolver, secret: secret, logger: logger}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}
	if !validSignature(h.secret, body, r.Header.Get(common.SignatureHeaderName)) {
		h.logger.Warn(ctx, "settlement webhook: bad signature", "remote", r.RemoteAddr)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
		return
	}

	var req webhookRequest
	if err := json.Unmarshal(body, &req); err != nil || req.Reference == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed payload"})
		return
	}
	status := wallet.Status(req.Status)
	if !status.Terminal() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status must be completed or failed"})
		return
	}

	order, err := h.resolver.Resolve(req.Reference, status)
	switch {
	case errors.Is(err, ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrAlreadyResolved):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error(), "status": string(order.Status)})
	case err != nil:
		h.logger.Error(ctx, "settlement webhook", "reference", req.Reference, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	default:
		h.logger.Info(ctx, "settlement resolved", "reference", order.Reference, "status", order.Status, "account", order.AccountID)
		writeJSON(w, http.StatusOK, order)
	}
}
