package service

import (
	"context"
	"fmt"

	"busara/config"
	"busara/internal/domain"
	"busara/internal/models"
	"busara/internal/repository"

	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"
)

// NotificationService is the dispatcher the reconciler reports outcomes to.
// Each dispatch is persisted first, then emailed; a failed send is left unsent
// for the out-of-band sweep, never surfaced back into reconciliation.
type NotificationService struct {
	repo   *repository.NotificationRepository
	cfg    *config.MailConfig
	dialer *gomail.Dialer
	logger *zap.Logger
}

func NewNotificationService(repo *repository.NotificationRepository, cfg *config.MailConfig, logger *zap.Logger) *NotificationService {
	s := &NotificationService{repo: repo, cfg: cfg, logger: logger}
	if cfg.Host != "" {
		s.dialer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	} else {
		logger.Warn("SMTP not configured, notifications recorded but not sent")
	}
	return s
}

func (s *NotificationService) PaymentResolved(ctx context.Context, intent *models.PaymentIntent, status domain.IntentStatus) {
	recipient := s.cfg.AdminTo
	subject, body := composePaymentMessage(intent, status)
	n := &models.Notification{
		IntentID:  intent.ID,
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
	}
	if err := s.repo.Create(n); err != nil {
		s.logger.Error("notification record failed", zap.String("intent_id", intent.ID), zap.Error(err))
		return
	}
	if err := s.send(recipient, subject, body); err != nil {
		s.logger.Warn("notification send failed, left for retry sweep",
			zap.String("intent_id", intent.ID), zap.Error(err))
		return
	}
	_ = s.repo.MarkSent(n.ID)
}

// RetryUnsent re-sends notifications whose original delivery failed.
func (s *NotificationService) RetryUnsent(ctx context.Context) {
	pending, err := s.repo.ListUnsent(50)
	if err != nil {
		s.logger.Error("unsent notification list failed", zap.Error(err))
		return
	}
	for _, n := range pending {
		if ctx.Err() != nil {
			return
		}
		if err := s.send(n.Recipient, n.Subject, n.Body); err != nil {
			continue
		}
		_ = s.repo.MarkSent(n.ID)
	}
}

func (s *NotificationService) send(recipient, subject, body string) error {
	if s.dialer == nil || recipient == "" {
		return fmt.Errorf("mail transport not configured")
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	return s.dialer.DialAndSend(m)
}

func composePaymentMessage(intent *models.PaymentIntent, status domain.IntentStatus) (string, string) {
	amount := float64(intent.AmountCents) / 100
	switch status {
	case domain.IntentSucceeded:
		return fmt.Sprintf("Payment received: %s %d", intent.OwnerType, intent.OwnerID),
			fmt.Sprintf("Payment of %.2f %s for %s %d completed.\nReference: %s", amount, intent.Currency, intent.OwnerType, intent.OwnerID, intent.ID)
	case domain.IntentExpired:
		return fmt.Sprintf("Payment timed out: %s %d", intent.OwnerType, intent.OwnerID),
			fmt.Sprintf("Payment of %.2f %s for %s %d timed out with no provider resolution.\nReference: %s", amount, intent.Currency, intent.OwnerType, intent.OwnerID, intent.ID)
	default:
		return fmt.Sprintf("Payment failed: %s %d", intent.OwnerType, intent.OwnerID),
			fmt.Sprintf("Payment of %.2f %s for %s %d failed: %s\nReference: %s", amount, intent.Currency, intent.OwnerType, intent.OwnerID, intent.ResultDesc, intent.ID)
	}
}
