package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/paymentintent"
	"go.uber.org/zap"
)

// CardProvider implements the push-confirm rail on Stripe. CreateIntent
// registers the charge; the payer's client confirms it with the client secret
// and Stripe reports the result on the card webhook.
type CardProvider struct {
	logger *zap.Logger
}

func NewCardProvider(secretKey string, logger *zap.Logger) *CardProvider {
	stripe.Key = secretKey
	return &CardProvider{logger: logger}
}

func (p *CardProvider) CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*CardIntent, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(strings.ToLower(currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	pi, err := paymentintent.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeInvalidRequest {
			return nil, fmt.Errorf("card intent rejected: %w", err)
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	p.logger.Info("card intent created", zap.String("external_ref", pi.ID))
	return &CardIntent{ExternalRef: pi.ID, ClientSecret: pi.ClientSecret}, nil
}
