package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// aggregatorStub fakes the merchant API: login issues a token, push and status
// require it.
type aggregatorStub struct {
	t          *testing.T
	logins     atomic.Int64
	pushStatus int
	pushBody   map[string]string
	statusBody map[string]string
	lastPush   stkPushReq
}

func (a *aggregatorStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/merchants/login", func(w http.ResponseWriter, r *http.Request) {
		var req merchantLoginReq
		require.NoError(a.t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(a.t, "merchant@busara.or.ke", req.Email)
		a.logins.Add(1)
		json.NewEncoder(w).Encode(map[string]string{"token": "tok-123"})
	})
	mux.HandleFunc("POST /api/v1/transactions/mpesa", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(a.t, "Bearer tok-123", r.Header.Get("Authorization"))
		require.NoError(a.t, json.NewDecoder(r.Body).Decode(&a.lastPush))
		if a.pushStatus != 0 {
			w.WriteHeader(a.pushStatus)
		}
		json.NewEncoder(w).Encode(a.pushBody)
	})
	mux.HandleFunc("GET /api/v1/transactions/mpesa/{ref}/status", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(a.t, "Bearer tok-123", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(a.statusBody)
	})
	return mux
}

func newTestProvider(t *testing.T, stub *aggregatorStub) (*MpesaProvider, *httptest.Server) {
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)
	p := NewMpesaProvider(srv.URL, "merchant@busara.or.ke", "secret", "https://busara.or.ke", 2*time.Second, zap.NewNop())
	return p, srv
}

func TestInitiatePush(t *testing.T) {
	stub := &aggregatorStub{t: t, pushBody: map[string]string{
		"checkout_request_id": "ws_CO_310820261201",
		"status":              "PENDING",
	}}
	p, _ := newTestProvider(t, stub)

	resp, err := p.InitiatePush(context.Background(), PushRequest{
		Phone:            "0712345678",
		AmountCents:      500000,
		AccountReference: "membership_7",
		Description:      "Individual membership",
	})
	require.NoError(t, err)
	assert.Equal(t, "ws_CO_310820261201", resp.ExternalRef)

	// Whole KES on the wire, normalized phone, caller-reachable callback.
	assert.Equal(t, "5000", stub.lastPush.Amount)
	assert.Equal(t, "KES", stub.lastPush.Currency)
	assert.Equal(t, "254712345678", stub.lastPush.CustomerPhone)
	assert.Equal(t, "https://busara.or.ke/webhooks/mpesa", stub.lastPush.CallbackURL)
	assert.Equal(t, int64(1), stub.logins.Load())
}

func TestInitiatePushValidation(t *testing.T) {
	stub := &aggregatorStub{t: t}
	p, _ := newTestProvider(t, stub)

	_, err := p.InitiatePush(context.Background(), PushRequest{Phone: "0712345678", AmountCents: 0})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = p.InitiatePush(context.Background(), PushRequest{Phone: "12345", AmountCents: 500000})
	assert.ErrorIs(t, err, ErrInvalidPhone)

	// Neither reject should have reached the aggregator.
	assert.Equal(t, int64(0), stub.logins.Load())
}

func TestInitiatePushMissingCheckoutID(t *testing.T) {
	stub := &aggregatorStub{t: t, pushBody: map[string]string{"status": "PENDING"}}
	p, _ := newTestProvider(t, stub)

	_, err := p.InitiatePush(context.Background(), PushRequest{Phone: "0712345678", AmountCents: 500000})
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestQueryStatusSuccess(t *testing.T) {
	stub := &aggregatorStub{t: t, statusBody: map[string]string{
		"checkout_request_id": "ws_CO_310820261201",
		"result_code":         "0",
		"result_description":  "The service request is processed successfully.",
		"amount":              "5000",
		"customer_phone":      "254712345678",
		"receipt_number":      "QGH7TT91XK",
	}}
	p, _ := newTestProvider(t, stub)

	res, err := p.QueryStatus(context.Background(), "ws_CO_310820261201")
	require.NoError(t, err)
	assert.Equal(t, ResultSuccess, res.ResultCode)
	assert.False(t, res.Processing())
	assert.True(t, res.Amount.Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, "QGH7TT91XK", res.Receipt)
}

func TestQueryStatusProcessing(t *testing.T) {
	stub := &aggregatorStub{t: t, statusBody: map[string]string{
		"result_code":        "1032",
		"result_description": "The transaction is being processed",
	}}
	p, _ := newTestProvider(t, stub)

	res, err := p.QueryStatus(context.Background(), "ws_CO_310820261201")
	require.NoError(t, err)
	assert.True(t, res.Processing())
}

func TestQueryStatusUnparseableCode(t *testing.T) {
	stub := &aggregatorStub{t: t, statusBody: map[string]string{"result_code": "pending"}}
	p, _ := newTestProvider(t, stub)

	_, err := p.QueryStatus(context.Background(), "ws_CO_310820261201")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestProviderDownIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)
	p := NewMpesaProvider(srv.URL, "merchant@busara.or.ke", "secret", "", time.Second, zap.NewNop())

	_, err := p.InitiatePush(context.Background(), PushRequest{Phone: "0712345678", AmountCents: 500000})
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}
