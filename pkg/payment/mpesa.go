package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MpesaProvider implements the push-poll rail: M-Pesa STK push via the card-API
// aggregator. Tokens are fetched fresh per outbound call; the aggregator does
// not guarantee token lifetime.
type MpesaProvider struct {
	BaseURL     string
	Email       string
	Password    string
	WebhookBase string
	client      *http.Client
	logger      *zap.Logger
}

func NewMpesaProvider(baseURL, email, password, webhookBase string, callTimeout time.Duration, logger *zap.Logger) *MpesaProvider {
	if baseURL == "" {
		baseURL = "https://card-api.theliberec.com"
	}
	if callTimeout <= 0 {
		callTimeout = 15 * time.Second
	}
	return &MpesaProvider{
		BaseURL:     baseURL,
		Email:       email,
		Password:    password,
		WebhookBase: webhookBase,
		client:      &http.Client{Timeout: callTimeout},
		logger:      logger,
	}
}

type merchantLoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type merchantLoginResp struct {
	Token string `json:"token"`
}

// getToken logs in and returns a fresh bearer token. Called once per outbound
// request; no refresh loop.
func (p *MpesaProvider) getToken(ctx context.Context) (string, error) {
	body, _ := json.Marshal(merchantLoginReq{Email: p.Email, Password: p.Password})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/api/v1/merchants/login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: login: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: login status %d", ErrProviderUnavailable, resp.StatusCode)
	}
	var out merchantLoginResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: login body: %v", ErrProviderUnavailable, err)
	}
	return out.Token, nil
}

type stkPushReq struct {
	Amount           string `json:"amount"`
	Currency         string `json:"currency"`
	Description      string `json:"description"`
	CustomerPhone    string `json:"customer_phone"`
	AccountReference string `json:"account_reference"`
	CallbackURL      string `json:"callback_url"`
	OrderID          string `json:"order_id"`
}

type stkPushResp struct {
	OrderID             string `json:"order_id"`
	CheckoutRequestID   string `json:"checkout_request_id"`
	Status              string `json:"status"`
	ResponseCode        string `json:"response_code"`
	ResponseDescription string `json:"response_description"`
}

// InitiatePush sends the STK prompt to the subscriber's handset. Phone must
// already be normalized; amounts are whole KES on the wire.
func (p *MpesaProvider) InitiatePush(ctx context.Context, req PushRequest) (*PushResponse, error) {
	if req.AmountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	phone, err := NormalizePhone(req.Phone)
	if err != nil {
		return nil, err
	}
	token, err := p.getToken(ctx)
	if err != nil {
		return nil, err
	}
	callbackURL := ""
	if p.WebhookBase != "" {
		callbackURL = p.WebhookBase + "/webhooks/mpesa"
	}
	currency := req.Currency
	if currency == "" {
		currency = "KES"
	}
	payload := stkPushReq{
		Amount:           strconv.FormatInt(req.AmountCents/100, 10),
		Currency:         currency,
		Description:      req.Description,
		CustomerPhone:    phone,
		AccountReference: req.AccountReference,
		CallbackURL:      callbackURL,
		OrderID:          req.AccountReference,
	}
	body, _ := json.Marshal(payload)
	respBody, status, err := p.doAuthorized(ctx, http.MethodPost, "/api/v1/transactions/mpesa", token, body)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return nil, fmt.Errorf("%w: stk push status %d", ErrProviderUnavailable, status)
	}
	var out stkPushResp
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("%w: stk push body: %v", ErrProviderUnavailable, err)
	}
	if out.CheckoutRequestID == "" {
		return nil, fmt.Errorf("%w: stk push response missing checkout_request_id", ErrProviderUnavailable)
	}
	p.logger.Info("stk push accepted",
		zap.String("checkout_request_id", out.CheckoutRequestID),
		zap.String("account_reference", req.AccountReference),
		zap.String("status", out.Status))
	return &PushResponse{ExternalRef: out.CheckoutRequestID, Status: out.Status}, nil
}

type stkStatusResp struct {
	CheckoutRequestID string `json:"checkout_request_id"`
	ResultCode        string `json:"result_code"`
	ResultDescription string `json:"result_description"`
	Amount            string `json:"amount"`
	CustomerPhone     string `json:"customer_phone"`
	ReceiptNumber     string `json:"receipt_number"`
}

// QueryStatus asks the aggregator for the outcome of a previously pushed
// prompt. Result code 1032 means the subscriber has not acted yet.
func (p *MpesaProvider) QueryStatus(ctx context.Context, externalRef string) (*StatusResult, error) {
	token, err := p.getToken(ctx)
	if err != nil {
		return nil, err
	}
	respBody, status, err := p.doAuthorized(ctx, http.MethodGet, "/api/v1/transactions/mpesa/"+externalRef+"/status", token, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: status query %d", ErrProviderUnavailable, status)
	}
	var out stkStatusResp
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("%w: status body: %v", ErrProviderUnavailable, err)
	}
	code, err := strconv.Atoi(out.ResultCode)
	if err != nil {
		return nil, fmt.Errorf("%w: unparseable result_code %q", ErrProviderUnavailable, out.ResultCode)
	}
	amount := decimal.Zero
	if out.Amount != "" {
		amount, err = decimal.NewFromString(out.Amount)
		if err != nil {
			return nil, fmt.Errorf("%w: unparseable amount %q", ErrProviderUnavailable, out.Amount)
		}
	}
	return &StatusResult{
		ResultCode: code,
		ResultDesc: out.ResultDescription,
		Amount:     amount,
		PayerPhone: out.CustomerPhone,
		Receipt:    out.ReceiptNumber,
	}, nil
}

// doAuthorized performs one authorized call, retrying transport-level failures
// with a short backoff. HTTP error statuses are never retried here; the caller
// decides whether they are definitive.
func (p *MpesaProvider) doAuthorized(ctx context.Context, method, path, token string, body []byte) ([]byte, int, error) {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, p.BaseURL+path, reader)
		if err != nil {
			return nil, 0, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := p.client.Do(req)
		if err != nil {
			lastErr = err
			p.logger.Warn("provider call failed, retrying", zap.String("path", path), zap.Int("attempt", attempt+1), zap.Error(err))
			continue
		}
		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}
		return respBody, resp.StatusCode, nil
	}
	return nil, 0, fmt.Errorf("%w: %v", ErrProviderUnavailable, lastErr)
}
