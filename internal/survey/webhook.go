package survey

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/url"
	"sort"

	"go.uber.org/zap"

	"github.com/cardion-health/precert/internal/shared/config"
)

// WebhookHandler receives inbound SMS callbacks from the telephony
// provider.
type WebhookHandler struct {
	service *Service
	cfg     config.SMSConfig
	log     *zap.Logger
}

// NewWebhookHandler creates a webhook handler
func NewWebhookHandler(service *Service, cfg config.SMSConfig, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{service: service, cfg: cfg, log: log}
}

// Inbound handles one provider callback. The signature is verified
// before any state mutation; an unknown sender still gets a 200 so the
// provider does not retry.
func (h *WebhookHandler) Inbound(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form payload", http.StatusBadRequest)
		return
	}

	signature := r.Header.Get("X-Twilio-Signature")
	if !verifySignature(h.cfg.AuthToken, h.cfg.WebhookURL, r.PostForm, signature) {
		h.log.Warn("webhook signature verification failed")
		http.Error(w, "signature verification failed", http.StatusForbidden)
		return
	}

	from := r.PostForm.Get("From")
	body := r.PostForm.Get("Body")
	messageSID := r.PostForm.Get("MessageSid")

	if from == "" {
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.service.HandleInbound(r.Context(), from, body, messageSID); err != nil {
		h.log.Error("inbound sms handling failed", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// verifySignature checks the provider's HMAC-SHA1 signature: the webhook
// URL concatenated with each POST parameter name and value in sorted
// order, keyed by the account auth token, base64 encoded.
func verifySignature(authToken, webhookURL string, params url.Values, signature string) bool {
	if authToken == "" || signature == "" {
		return false
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	payload := webhookURL
	for _, k := range keys {
		payload += k + params.Get(k)
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(payload))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
