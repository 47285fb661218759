package repository

import (
	"errors"
	"time"

	"busara/internal/domain"
	"busara/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentIntentRepository struct {
	db *gorm.DB
}

func NewPaymentIntentRepository(db *gorm.DB) *PaymentIntentRepository {
	return &PaymentIntentRepository{db: db}
}

var nonTerminalStatuses = []domain.IntentStatus{domain.IntentCreated, domain.IntentProviderAccepted}

// Create inserts a new intent in CREATED. At most one non-terminal intent may
// exist per owner; a second is rejected with ErrDuplicatePendingIntent.
func (r *PaymentIntentRepository) Create(ownerType domain.OwnerKind, ownerID uint, amountCents int64, currency, provider string) (*models.PaymentIntent, error) {
	if !ownerType.Valid() {
		return nil, domain.ErrUnknownOwner
	}
	intent := &models.PaymentIntent{
		ID:          uuid.New().String(),
		Provider:    provider,
		AmountCents: amountCents,
		Currency:    currency,
		OwnerType:   ownerType,
		OwnerID:     ownerID,
		Status:      domain.IntentCreated,
	}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		// Locking read: concurrent creates for the same owner serialize here
		// instead of both counting zero under REPEATABLE READ.
		var count int64
		if err := tx.Model(&models.PaymentIntent{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("owner_type = ? AND owner_id = ? AND status IN ?", ownerType, ownerID, nonTerminalStatuses).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrDuplicatePendingIntent
		}
		return tx.Create(intent).Error
	})
	if err != nil {
		return nil, err
	}
	return intent, nil
}

func (r *PaymentIntentRepository) GetByID(id string) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	err := r.db.First(&intent, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrIntentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

func (r *PaymentIntentRepository) GetByExternalRef(ref string) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	err := r.db.Where("external_ref = ?", ref).First(&intent).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrIntentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

// AttachExternalRef sets the provider-assigned reference exactly once.
// Re-attaching the same value is a no-op (provider retries resend it); a
// different value is ErrAlreadyAttached and must be surfaced, not overwritten.
func (r *PaymentIntentRepository) AttachExternalRef(id, ref string) error {
	res := r.db.Model(&models.PaymentIntent{}).
		Where("id = ? AND external_ref IS NULL", id).
		Update("external_ref", ref)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}
	intent, err := r.GetByID(id)
	if err != nil {
		return err
	}
	if intent.ExternalRef != nil && *intent.ExternalRef == ref {
		return nil
	}
	return domain.ErrAlreadyAttached
}

// Transition moves the intent to newStatus with a compare-and-set on the
// current status: the row is updated only if it is still in a status that may
// legally reach newStatus. Already being in newStatus is a no-op, which is what
// makes duplicate webhook/poll delivery idempotent. A transition out of a
// terminal status is ErrAlreadyTerminal.
func (r *PaymentIntentRepository) Transition(id string, newStatus domain.IntentStatus, resultDesc string) error {
	var froms []domain.IntentStatus
	for _, s := range nonTerminalStatuses {
		if domain.CanTransition(s, newStatus) {
			froms = append(froms, s)
		}
	}
	updates := map[string]interface{}{"status": newStatus, "result_desc": resultDesc}
	if newStatus.Terminal() {
		now := time.Now()
		updates["resolved_at"] = &now
	}
	res := r.db.Model(&models.PaymentIntent{}).
		Where("id = ? AND status IN ?", id, froms).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}
	intent, err := r.GetByID(id)
	if err != nil {
		return err
	}
	if intent.Status == newStatus {
		return nil
	}
	if intent.Status.Terminal() {
		return domain.ErrAlreadyTerminal
	}
	return domain.ErrTransitionConflict
}

// ListUnresolved returns non-terminal intents for a provider, oldest first.
// Used at boot to re-arm the poller for pushes in flight across a restart.
func (r *PaymentIntentRepository) ListUnresolved(provider string) ([]models.PaymentIntent, error) {
	var intents []models.PaymentIntent
	err := r.db.Where("provider = ? AND status IN ?", provider, nonTerminalStatuses).
		Order("created_at asc").
		Find(&intents).Error
	return intents, err
}

// ListStale returns non-terminal intents created before olderThan, any
// provider. Feeds the expiry sweep that closes abandoned card intents and
// intents stranded before a provider reference was attached.
func (r *PaymentIntentRepository) ListStale(olderThan time.Time) ([]models.PaymentIntent, error) {
	var intents []models.PaymentIntent
	err := r.db.Where("status IN ? AND created_at < ?", nonTerminalStatuses, olderThan).
		Order("created_at asc").
		Find(&intents).Error
	return intents, err
}

func (r *PaymentIntentRepository) List(limit, offset int) ([]models.PaymentIntent, error) {
	var intents []models.PaymentIntent
	err := r.db.Order("created_at desc").Limit(limit).Offset(offset).Find(&intents).Error
	return intents, err
}
