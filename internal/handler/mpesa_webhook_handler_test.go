package handler

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func webhookRouter(h *MpesaWebhookHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhooks/mpesa", h.Handle)
	return r
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestMpesaWebhookRejectsInvalidSignature(t *testing.T) {
	h := NewMpesaWebhookHandler(nil, nil, "whsec-test", zap.NewNop())
	r := webhookRouter(h)

	body := []byte(`{"checkout_request_id":"ws_CO_1","result_code":"0","amount":"5000"}`)

	cases := []struct {
		name      string
		signature string
	}{
		{"missing header", ""},
		{"wrong key", sign("some-other-secret", body)},
		{"garbage", "deadbeef"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/webhooks/mpesa", bytes.NewReader(body))
			if tc.signature != "" {
				req.Header.Set("X-Webhook-Signature", tc.signature)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestMpesaWebhookSignatureCoversExactBody(t *testing.T) {
	h := NewMpesaWebhookHandler(nil, nil, "whsec-test", zap.NewNop())
	r := webhookRouter(h)

	// A valid signature over a different body must not pass.
	signed := []byte(`{"checkout_request_id":"ws_CO_1","result_code":"0","amount":"5000"}`)
	tampered := []byte(`{"checkout_request_id":"ws_CO_1","result_code":"0","amount":"9999"}`)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/mpesa", bytes.NewReader(tampered))
	req.Header.Set("X-Webhook-Signature", sign("whsec-test", signed))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMpesaWebhookAcksPayloadWithoutReference(t *testing.T) {
	h := NewMpesaWebhookHandler(nil, nil, "whsec-test", zap.NewNop())
	r := webhookRouter(h)

	body := []byte(`{"result_code":"0","amount":"5000"}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/mpesa", bytes.NewReader(body))
	req.Header.Set("X-Webhook-Signature", sign("whsec-test", body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"received":true}`, w.Body.String())
}

func TestMpesaWebhookRejectsMalformedJSON(t *testing.T) {
	h := NewMpesaWebhookHandler(nil, nil, "whsec-test", zap.NewNop())
	r := webhookRouter(h)

	body := []byte(`{"checkout_request_id":`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/mpesa", bytes.NewReader(body))
	req.Header.Set("X-Webhook-Signature", sign("whsec-test", body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
