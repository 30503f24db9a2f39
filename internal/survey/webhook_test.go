package survey

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/url"
	"testing"
)

func signPayload(authToken, webhookURL string, params url.Values) string {
	payload := webhookURL
	keys := []string{"Body", "From", "MessageSid"}
	for _, k := range keys {
		if v := params.Get(k); v != "" {
			payload += k + v
		}
	}
	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// TestVerifySignature tests the provider signature scheme
func TestVerifySignature(t *testing.T) {
	const authToken = "test-auth-token"
	const webhookURL = "https://precert.example.com/webhooks/sms"

	params := url.Values{}
	params.Set("From", "+15555550100")
	params.Set("Body", "YES")
	params.Set("MessageSid", "SM123")

	valid := signPayload(authToken, webhookURL, params)

	tests := []struct {
		name      string
		token     string
		signature string
		want      bool
	}{
		{"valid signature", authToken, valid, true},
		{"wrong signature", authToken, "bm90LXRoZS1zaWduYXR1cmU=", false},
		{"wrong token", "other-token", valid, false},
		{"empty signature", authToken, "", false},
		{"empty token", "", valid, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := verifySignature(tt.token, webhookURL, params, tt.signature); got != tt.want {
				t.Errorf("verifySignature = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestVerifySignatureTamperedParams tests that modifying any parameter
// invalidates the signature
func TestVerifySignatureTamperedParams(t *testing.T) {
	const authToken = "test-auth-token"
	const webhookURL = "https://precert.example.com/webhooks/sms"

	params := url.Values{}
	params.Set("From", "+15555550100")
	params.Set("Body", "YES")
	params.Set("MessageSid", "SM123")

	signature := signPayload(authToken, webhookURL, params)

	params.Set("Body", "STOP")
	if verifySignature(authToken, webhookURL, params, signature) {
		t.Error("Expected tampered parameters to fail verification")
	}
}
