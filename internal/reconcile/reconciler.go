package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"busara/internal/domain"
	"busara/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// IntentStore is the slice of the payment-intent repository the reconciler
// needs. The Transition implementation must be a compare-and-set on status.
type IntentStore interface {
	GetByID(id string) (*models.PaymentIntent, error)
	Transition(id string, newStatus domain.IntentStatus, resultDesc string) error
	ListStale(olderThan time.Time) ([]models.PaymentIntent, error)
}

type MembershipStore interface {
	GetByID(id uint) (*models.Membership, error)
	Update(m *models.Membership) error
}

type DonationStore interface {
	GetByID(id uint) (*models.Donation, error)
	Update(d *models.Donation) error
}

type OrderStore interface {
	GetByID(id uint) (*models.Order, error)
	Update(o *models.Order) error
	FulfillReservations(orderID uint) error
	ReleaseReservations(orderID uint) error
}

type RegistrationStore interface {
	GetByID(id uint) (*models.EventRegistration, error)
	Update(reg *models.EventRegistration) error
}

type FlagStore interface {
	Create(f *models.ReviewFlag) error
}

// Notifier is fire-and-forget: a failure is logged by the implementation and
// never rolls back an activation.
type Notifier interface {
	PaymentResolved(ctx context.Context, intent *models.PaymentIntent, status domain.IntentStatus)
}

// ProviderResult carries what the provider reported alongside a terminal
// signal. Amount is in whole currency units as the provider states it.
type ProviderResult struct {
	Amount     decimal.Decimal
	ResultDesc string
	PayerPhone string
	Receipt    string
}

// Reconciler applies terminal payment outcomes to owning entities exactly
// once. Settle is safe to call concurrently for the same intent from the
// webhook and the poller; the per-intent lock plus the store's status CAS
// guarantee a single activation.
type Reconciler struct {
	intents       IntentStore
	memberships   MembershipStore
	donations     DonationStore
	orders        OrderStore
	registrations RegistrationStore
	flags         FlagStore
	notifier      Notifier
	locks         *keyedMutex
	logger        *zap.Logger
}

func New(
	intents IntentStore,
	memberships MembershipStore,
	donations DonationStore,
	orders OrderStore,
	registrations RegistrationStore,
	flags FlagStore,
	notifier Notifier,
	logger *zap.Logger,
) *Reconciler {
	return &Reconciler{
		intents:       intents,
		memberships:   memberships,
		donations:     donations,
		orders:        orders,
		registrations: registrations,
		flags:         flags,
		notifier:      notifier,
		locks:         newKeyedMutex(),
		logger:        logger,
	}
}

// amountTolerance is one whole currency unit: the push-poll rail reports whole
// KES while intents are stored in cents.
var amountTolerance = decimal.NewFromInt(1)

// Settle drives an intent to the terminal status matching outcome and applies
// the owning entity's activation (or failure) transition. Replays of an
// already-terminal intent return the prior status with no side effects.
func (r *Reconciler) Settle(ctx context.Context, intentID string, outcome domain.Outcome, res ProviderResult) (domain.IntentStatus, error) {
	unlock := r.locks.Lock(intentID)
	defer unlock()

	intent, err := r.intents.GetByID(intentID)
	if err != nil {
		return "", err
	}
	if intent.Status.Terminal() {
		r.logger.Debug("settle replay on terminal intent",
			zap.String("intent_id", intentID),
			zap.String("status", string(intent.Status)))
		return intent.Status, nil
	}

	if outcome == domain.OutcomeSucceeded {
		return r.settleSucceeded(ctx, intent, res)
	}
	return r.settleFailed(ctx, intent, res.ResultDesc)
}

func (r *Reconciler) settleSucceeded(ctx context.Context, intent *models.PaymentIntent, res ProviderResult) (domain.IntentStatus, error) {
	recorded := decimal.NewFromInt(intent.AmountCents).Div(decimal.NewFromInt(100))
	if res.Amount.Sub(recorded).Abs().GreaterThanOrEqual(amountTolerance) {
		detail := fmt.Sprintf("provider reported %s %s, intent recorded %s %s",
			res.Amount.String(), intent.Currency, recorded.String(), intent.Currency)
		if err := r.flags.Create(&models.ReviewFlag{
			IntentID: intent.ID,
			Reason:   "AMOUNT_MISMATCH",
			Detail:   detail,
		}); err != nil {
			r.logger.Error("review flag write failed", zap.String("intent_id", intent.ID), zap.Error(err))
		}
		if err := r.intents.Transition(intent.ID, domain.IntentFailed, "amount mismatch: "+detail); err != nil {
			return "", err
		}
		r.logger.Warn("amount mismatch, entity not activated",
			zap.String("intent_id", intent.ID),
			zap.String("detail", detail))
		return domain.IntentFailed, domain.ErrAmountMismatch
	}

	if err := r.intents.Transition(intent.ID, domain.IntentSucceeded, res.ResultDesc); err != nil {
		if errors.Is(err, domain.ErrAlreadyTerminal) {
			// A concurrent writer won the CAS between our load and this write.
			current, gerr := r.intents.GetByID(intent.ID)
			if gerr != nil {
				return "", gerr
			}
			return current.Status, nil
		}
		return "", err
	}

	if err := r.activateOwner(intent); err != nil {
		// The intent is terminal but the entity write failed; flag rather than
		// retry blindly so an operator resolves it.
		r.logger.Error("owner activation failed", zap.String("intent_id", intent.ID), zap.Error(err))
		_ = r.flags.Create(&models.ReviewFlag{
			IntentID: intent.ID,
			Reason:   "ACTIVATION_ERROR",
			Detail:   err.Error(),
		})
		return domain.IntentSucceeded, err
	}

	r.logger.Info("payment settled",
		zap.String("intent_id", intent.ID),
		zap.String("owner_type", string(intent.OwnerType)),
		zap.Uint("owner_id", intent.OwnerID),
		zap.String("receipt", res.Receipt))
	intent.Status = domain.IntentSucceeded
	r.notifier.PaymentResolved(ctx, intent, domain.IntentSucceeded)
	return domain.IntentSucceeded, nil
}

func (r *Reconciler) settleFailed(ctx context.Context, intent *models.PaymentIntent, desc string) (domain.IntentStatus, error) {
	if err := r.intents.Transition(intent.ID, domain.IntentFailed, desc); err != nil {
		if errors.Is(err, domain.ErrAlreadyTerminal) {
			current, gerr := r.intents.GetByID(intent.ID)
			if gerr != nil {
				return "", gerr
			}
			return current.Status, nil
		}
		return "", err
	}
	if err := r.failOwner(intent); err != nil {
		r.logger.Error("owner failure transition failed", zap.String("intent_id", intent.ID), zap.Error(err))
	}
	r.logger.Info("payment failed",
		zap.String("intent_id", intent.ID),
		zap.String("owner_type", string(intent.OwnerType)),
		zap.Uint("owner_id", intent.OwnerID),
		zap.String("reason", desc))
	intent.Status = domain.IntentFailed
	r.notifier.PaymentResolved(ctx, intent, domain.IntentFailed)
	return domain.IntentFailed, nil
}

// Expire closes an intent whose poll budget elapsed with no definitive
// resolution. The owner moves to FAILED; a fresh intent is required to retry.
func (r *Reconciler) Expire(ctx context.Context, intentID string) error {
	unlock := r.locks.Lock(intentID)
	defer unlock()

	intent, err := r.intents.GetByID(intentID)
	if err != nil {
		return err
	}
	if intent.Status.Terminal() {
		return nil
	}
	if err := r.intents.Transition(intentID, domain.IntentExpired, "poll budget elapsed"); err != nil {
		if errors.Is(err, domain.ErrAlreadyTerminal) {
			return nil
		}
		return err
	}
	if err := r.failOwner(intent); err != nil {
		r.logger.Error("owner failure transition failed", zap.String("intent_id", intentID), zap.Error(err))
	}
	r.logger.Info("payment expired", zap.String("intent_id", intentID))
	intent.Status = domain.IntentExpired
	r.notifier.PaymentResolved(ctx, intent, domain.IntentExpired)
	return nil
}

// ExpireStale closes every non-terminal intent older than olderThan. The
// poller budget only covers watched push-poll intents; this sweep catches the
// rest: card intents the payer never confirmed, and intents stranded in
// CREATED after a failed provider hand-off. Without it a stale intent holds
// the owner's pending slot forever.
func (r *Reconciler) ExpireStale(ctx context.Context, olderThan time.Duration) {
	stale, err := r.intents.ListStale(time.Now().Add(-olderThan))
	if err != nil {
		r.logger.Error("stale intent scan failed", zap.Error(err))
		return
	}
	expired := 0
	for _, intent := range stale {
		if ctx.Err() != nil {
			return
		}
		if err := r.Expire(ctx, intent.ID); err != nil {
			r.logger.Error("stale expire failed", zap.String("intent_id", intent.ID), zap.Error(err))
			continue
		}
		expired++
	}
	if expired > 0 {
		r.logger.Info("expired stale intents", zap.Int("count", expired))
	}
}

// activateOwner applies the entity-specific pending->paid transition. The
// switch is exhaustive over domain.AllOwnerKinds; a new kind fails loudly here
// until it is handled.
func (r *Reconciler) activateOwner(intent *models.PaymentIntent) error {
	now := time.Now()
	switch intent.OwnerType {
	case domain.OwnerMembership:
		m, err := r.memberships.GetByID(intent.OwnerID)
		if err != nil {
			return err
		}
		if m.PaymentStatus == domain.PaymentPaid {
			return nil
		}
		end := now.AddDate(1, 0, 0)
		m.PaymentStatus = domain.PaymentPaid
		m.IsActive = true
		m.SubscriptionStart = &now
		m.SubscriptionEnd = &end
		return r.memberships.Update(m)

	case domain.OwnerDonation:
		d, err := r.donations.GetByID(intent.OwnerID)
		if err != nil {
			return err
		}
		if d.PaymentStatus == domain.PaymentPaid {
			return nil
		}
		d.PaymentStatus = domain.PaymentPaid
		d.Processed = true
		d.ProcessedAt = &now
		return r.donations.Update(d)

	case domain.OwnerOrder:
		o, err := r.orders.GetByID(intent.OwnerID)
		if err != nil {
			return err
		}
		if o.PaymentStatus == domain.PaymentPaid {
			return nil
		}
		if err := r.orders.FulfillReservations(o.ID); err != nil {
			return err
		}
		o.PaymentStatus = domain.PaymentPaid
		o.FulfilledAt = &now
		return r.orders.Update(o)

	case domain.OwnerEventRegistration:
		reg, err := r.registrations.GetByID(intent.OwnerID)
		if err != nil {
			return err
		}
		if reg.PaymentStatus == domain.PaymentPaid {
			return nil
		}
		reg.PaymentStatus = domain.PaymentPaid
		reg.ConfirmedAt = &now
		if reg.TicketCode == "" {
			reg.TicketCode = uuid.New().String()
		}
		return r.registrations.Update(reg)
	}
	return fmt.Errorf("%w: %q", domain.ErrUnknownOwner, intent.OwnerType)
}

func (r *Reconciler) failOwner(intent *models.PaymentIntent) error {
	switch intent.OwnerType {
	case domain.OwnerMembership:
		m, err := r.memberships.GetByID(intent.OwnerID)
		if err != nil {
			return err
		}
		m.PaymentStatus = domain.PaymentFailed
		return r.memberships.Update(m)

	case domain.OwnerDonation:
		d, err := r.donations.GetByID(intent.OwnerID)
		if err != nil {
			return err
		}
		d.PaymentStatus = domain.PaymentFailed
		return r.donations.Update(d)

	case domain.OwnerOrder:
		o, err := r.orders.GetByID(intent.OwnerID)
		if err != nil {
			return err
		}
		if err := r.orders.ReleaseReservations(o.ID); err != nil {
			return err
		}
		o.PaymentStatus = domain.PaymentFailed
		return r.orders.Update(o)

	case domain.OwnerEventRegistration:
		reg, err := r.registrations.GetByID(intent.OwnerID)
		if err != nil {
			return err
		}
		reg.PaymentStatus = domain.PaymentFailed
		return r.registrations.Update(reg)
	}
	return fmt.Errorf("%w: %q", domain.ErrUnknownOwner, intent.OwnerType)
}
