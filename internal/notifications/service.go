package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/LeHuyTuong/Carbon-Credit-Marketplace-sub000/internal/accounts"
	"github.com/LeHuyTuong/Carbon-Credit-Marketplace-sub000/internal/credits"
	"github.com/LeHuyTuong/Carbon-Credit-Marketplace-sub000/internal/notifications/websocket"
)

// Service delivers engine notifications over the stored feed, email and the
// live websocket channel. Every path is best-effort: errors are returned to
// the background pool, logged there and swallowed.
type Service struct {
	db     *gorm.DB
	ws     *websocket.Manager
	email  EmailSender
	logger *zap.Logger
}

// NewService creates a new notification service
func NewService(db *gorm.DB, ws *websocket.Manager, email EmailSender, logger *zap.Logger) *Service {
	return &Service{
		db:     db,
		ws:     ws,
		email:  email,
		logger: logger,
	}
}

// NotifyCreditsIssued tells a company its batch has been minted
func (s *Service) NotifyCreditsIssued(ctx context.Context, company *accounts.Company, batch *credits.CreditBatch) error {
	title := "Carbon credits issued"
	message := fmt.Sprintf("Batch %s with %d credit units has been issued for your report.",
		batch.BatchCode, batch.UnitCount)
	payload := map[string]interface{}{
		"company_id": company.ID,
		"batch_code": batch.BatchCode,
		"unit_count": batch.UnitCount,
	}
	payloadJSON, _ := json.Marshal(payload)

	record := &Notification{
		ID:        uuid.New(),
		CompanyID: &company.ID,
		Type:      TypeCreditsIssued,
		Title:     title,
		Message:   message,
		Payload:   datatypes.JSON(payloadJSON),
		CreatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}

	if s.email != nil && company.Email != "" {
		if err := s.email.Send(ctx, company.Email, title, message); err != nil {
			s.logger.Warn("issuance email failed",
				zap.Int64("company_id", company.ID),
				zap.Error(err))
		}
	}
	if s.ws != nil {
		s.ws.Broadcast(websocket.Message{
			Type:    TypeCreditsIssued,
			Payload: payload,
		})
	}
	return nil
}

// NotifyPayoutSent tells an owner a profit share has landed in their wallet
func (s *Service) NotifyPayoutSent(ctx context.Context, owner *accounts.User, amount string) error {
	title := "Profit share received"
	message := fmt.Sprintf("You received %s from a profit distribution.", amount)
	payload := map[string]interface{}{"amount": amount}
	payloadJSON, _ := json.Marshal(payload)

	record := &Notification{
		ID:        uuid.New(),
		UserID:    &owner.ID,
		Type:      TypePayoutSent,
		Title:     title,
		Message:   message,
		Payload:   datatypes.JSON(payloadJSON),
		CreatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}

	if s.email != nil && owner.Email != "" {
		if err := s.email.Send(ctx, owner.Email, title, message); err != nil {
			s.logger.Warn("payout email failed",
				zap.Int64("user_id", owner.ID),
				zap.Error(err))
		}
	}
	if s.ws != nil {
		s.ws.SendToUser(owner.ID, websocket.Message{
			Type:    TypePayoutSent,
			Payload: payload,
		})
	}
	return nil
}
