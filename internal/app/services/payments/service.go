// Package payments implements charges through the external payment gateway,
// webhook settlement and the fallback settlement poller.
package payments

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/campuslink/platform/internal/app/domain/notification"
	"github.com/campuslink/platform/internal/app/domain/payment"
	"github.com/campuslink/platform/internal/app/metrics"
	"github.com/campuslink/platform/internal/app/storage"
	"github.com/campuslink/platform/internal/errors"
	"github.com/campuslink/platform/internal/logging"
)

// Notifier queues out-of-band notifications. The notifications service
// satisfies this.
type Notifier interface {
	Enqueue(ctx context.Context, userID string, kind notification.Kind, subject, body string) error
}

// Service manages payments.
type Service struct {
	store         storage.PaymentStore
	gateway       Gateway
	notifier      Notifier
	webhookSecret []byte
	log           *logging.Logger
}

// New constructs a payments service.
func New(store storage.PaymentStore, gateway Gateway, notifier Notifier, webhookSecret []byte, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("payments")
	}
	return &Service{
		store:         store,
		gateway:       gateway,
		notifier:      notifier,
		webhookSecret: webhookSecret,
		log:           log,
	}
}

// Create opens a charge at the gateway and records it pending.
func (s *Service) Create(ctx context.Context, userID string, purpose payment.Purpose, amountCents int64, currency string) (payment.Payment, error) {
	if !purpose.Valid() {
		return payment.Payment{}, errors.InvalidInput("purpose must be membership, donation or job_post")
	}
	if amountCents <= 0 {
		return payment.Payment{}, errors.InvalidInput("amount must be positive")
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = "USD"
	}
	if len(currency) != 3 {
		return payment.Payment{}, errors.InvalidInput("currency must be a 3-letter code")
	}

	created, err := s.store.CreatePayment(ctx, payment.Payment{
		UserID:      userID,
		Purpose:     purpose,
		AmountCents: amountCents,
		Currency:    currency,
		Status:      payment.StatusPending,
	})
	if err != nil {
		return payment.Payment{}, err
	}

	charge, err := s.gateway.CreateCharge(ctx, ChargeRequest{
		AmountCents: amountCents,
		Currency:    currency,
		Reference:   created.ID,
		Description: fmt.Sprintf("campuslink %s", purpose),
	})
	if err != nil {
		created.Status = payment.StatusFailed
		created.FailureReason = "gateway unavailable"
		if _, uerr := s.store.UpdatePayment(ctx, created); uerr != nil {
			s.log.WithError(uerr).Error("payment not marked failed")
		}
		metrics.RecordPayment(string(payment.StatusFailed))
		return payment.Payment{}, errors.Internal("create charge", err)
	}

	created.GatewayRef = charge.Ref
	created, err = s.store.UpdatePayment(ctx, created)
	if err != nil {
		return payment.Payment{}, err
	}

	s.log.WithField("payment_id", created.ID).
		WithField("gateway_ref", charge.Ref).
		WithField("purpose", string(purpose)).
		Info("payment created")

	// Some providers settle synchronously.
	if charge.Status == ChargeSucceeded || charge.Status == ChargeFailed {
		return s.settle(ctx, created, charge.Status, charge.FailureReason)
	}
	return created, nil
}

// Get returns a payment. Payer or admin only.
func (s *Service) Get(ctx context.Context, actorID, actorRole, id string) (payment.Payment, error) {
	p, err := s.store.GetPayment(ctx, id)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return payment.Payment{}, errors.NotFound("payment")
		}
		return payment.Payment{}, err
	}
	if p.UserID != actorID && actorRole != "admin" {
		return payment.Payment{}, errors.Forbidden("not your payment")
	}
	return p, nil
}

// ListMine returns the caller's payments.
func (s *Service) ListMine(ctx context.Context, userID string) ([]payment.Payment, error) {
	return s.store.ListPaymentsByUser(ctx, userID)
}

// HandleWebhook processes a provider callback. The payload carries the
// charge ref, status and an optional failure reason.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if !VerifySignature(s.webhookSecret, payload, signature) {
		return errors.Unauthorized("invalid webhook signature")
	}
	if !gjson.ValidBytes(payload) {
		return errors.InvalidInput("malformed webhook payload")
	}

	ref := gjson.GetBytes(payload, "data.ref").String()
	status := gjson.GetBytes(payload, "data.status").String()
	reason := gjson.GetBytes(payload, "data.failure_reason").String()
	if ref == "" || status == "" {
		return errors.InvalidInput("webhook payload missing ref or status")
	}

	p, err := s.store.GetPaymentByGatewayRef(ctx, ref)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return errors.NotFound("payment")
		}
		return err
	}
	_, err = s.settle(ctx, p, status, reason)
	return err
}

// settle finalises a pending payment. Settled payments are immutable, so a
// replayed webhook is a no-op.
func (s *Service) settle(ctx context.Context, p payment.Payment, chargeStatus, reason string) (payment.Payment, error) {
	if p.Status != payment.StatusPending {
		return p, nil
	}

	switch chargeStatus {
	case ChargeSucceeded:
		p.Status = payment.StatusSucceeded
	case ChargeFailed:
		p.Status = payment.StatusFailed
		p.FailureReason = reason
	case ChargePending:
		return p, nil
	default:
		return payment.Payment{}, errors.InvalidInput("unknown charge status")
	}

	updated, err := s.store.UpdatePayment(ctx, p)
	if err != nil {
		return payment.Payment{}, err
	}
	metrics.RecordPayment(string(updated.Status))

	if s.notifier != nil {
		subject := fmt.Sprintf("Payment %s", updated.Status)
		body := fmt.Sprintf("Your %s payment of %d %s is %s.", updated.Purpose, updated.AmountCents, updated.Currency, updated.Status)
		if err := s.notifier.Enqueue(ctx, updated.UserID, notification.KindPayment, subject, body); err != nil {
			s.log.WithError(err).Warn("payment notification not queued")
		}
	}
	s.log.WithField("payment_id", updated.ID).
		WithField("status", string(updated.Status)).
		Info("payment settled")
	return updated, nil
}

// Pending payments older than this are failed during reconciliation.
const pendingTimeout = 24 * time.Hour

// ReconcilePending asks the gateway for the state of every pending payment
// and settles the finished ones. Payments stuck pending past the timeout are
// failed. The poller calls this; it returns how many payments were settled.
func (s *Service) ReconcilePending(ctx context.Context) (int, error) {
	pending, err := s.store.ListPendingPayments(ctx)
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	settled := 0
	for _, p := range pending {
		stale := now.Sub(p.CreatedAt) > pendingTimeout
		if p.GatewayRef == "" {
			if stale {
				if _, err := s.settle(ctx, p, ChargeFailed, "timed out awaiting gateway"); err == nil {
					settled++
				}
			}
			continue
		}
		charge, err := s.gateway.GetCharge(ctx, p.GatewayRef)
		if err != nil {
			s.log.WithError(err).WithField("payment_id", p.ID).Warn("charge lookup failed")
			continue
		}
		if charge.Status == ChargePending {
			if stale {
				charge.Status = ChargeFailed
				charge.FailureReason = "timed out awaiting gateway"
			} else {
				continue
			}
		}
		if _, err := s.settle(ctx, p, charge.Status, charge.FailureReason); err != nil {
			s.log.WithError(err).WithField("payment_id", p.ID).Warn("settlement failed")
			continue
		}
		settled++
	}
	return settled, nil
}
