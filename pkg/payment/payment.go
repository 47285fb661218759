package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInvalidPhone        = errors.New("phone is not a valid subscriber number")
	ErrProviderUnavailable = errors.New("payment provider unavailable")
)

// Result codes returned by the push-poll status query. Zero is success, 1032
// means the push is still pending on the handset; anything else is a
// definitive failure.
const (
	ResultSuccess    = 0
	ResultProcessing = 1032
)

// PushRequest initiates an STK push. AccountReference disambiguates the owning
// entity ({ownerType}_{ownerID}) so polling alone can reconcile.
type PushRequest struct {
	Phone            string
	AmountCents      int64
	Currency         string
	AccountReference string
	Description      string
}

type PushResponse struct {
	ExternalRef string
	Status      string
}

// StatusResult is the outcome of one status query against the push-poll rail.
// Amount is the provider-confirmed figure and is the only amount trusted
// during reconciliation.
type StatusResult struct {
	ResultCode int
	ResultDesc string
	Amount     decimal.Decimal
	PayerPhone string
	Receipt    string
}

func (s StatusResult) Processing() bool {
	return s.ResultCode == ResultProcessing
}

// PushPoller is the push-poll rail: initiate a handset prompt, then poll.
type PushPoller interface {
	InitiatePush(ctx context.Context, req PushRequest) (*PushResponse, error)
	QueryStatus(ctx context.Context, externalRef string) (*StatusResult, error)
}

// CardIntent is the push-confirm rail's handle: the payer's client confirms
// against the provider with ClientSecret; the core never sees card data.
type CardIntent struct {
	ExternalRef  string
	ClientSecret string
}

type CardCharger interface {
	CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*CardIntent, error)
}
