package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/justsurfingit/KarirConnect/internal/apperror"
	"github.com/justsurfingit/KarirConnect/internal/metrics"
	"github.com/justsurfingit/KarirConnect/internal/models"
	"github.com/justsurfingit/KarirConnect/internal/notify"
)

const (
	ChannelEmail    = "email"
	ChannelWhatsApp = "whatsapp"
)

// NotifyRequest describes one notification for one recipient
type NotifyRequest struct {
	Type    string
	Title   string
	Message string
	Data    map[string]any
	// InAppOnly skips the email and WhatsApp side channels
	InAppOnly bool
}

type NotificationService struct {
	DB       *gorm.DB
	Email    notify.EmailSender
	WhatsApp notify.WhatsAppSender
	Log      *zap.Logger
	now      clock
}

// NewNotificationService wires the side channels. Either sender may be nil.
func NewNotificationService(db *gorm.DB, email notify.EmailSender, wa notify.WhatsAppSender, log *zap.Logger) *NotificationService {
	return &NotificationService{
		DB:       db,
		Email:    email,
		WhatsApp: wa,
		Log:      log.Named("notifications"),
		now:      utcNow,
	}
}

// Notify stores the notification then pushes it over email and WhatsApp in order.
// Only the database insert can fail the call; channel failures are logged and recorded.
func (s *NotificationService) Notify(ctx context.Context, user *models.User, req NotifyRequest) (*models.Notification, error) {
	n := &models.Notification{
		ID:      uuid.NewString(),
		UserID:  user.ID,
		Type:    req.Type,
		Title:   req.Title,
		Message: req.Message,
	}
	if len(req.Data) > 0 {
		n.Data = datatypes.JSONMap(req.Data)
	}
	if err := s.DB.WithContext(ctx).Create(n).Error; err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}

	if req.InAppOnly {
		return n, nil
	}

	s.deliverEmail(ctx, user, n)
	s.deliverWhatsApp(ctx, user, n)
	return n, nil
}

func (s *NotificationService) deliverEmail(ctx context.Context, user *models.User, n *models.Notification) {
	switch {
	case s.Email == nil:
		s.record(ctx, n, ChannelEmail, models.DeliverySkipped, "", notify.ErrDisabled.Error())
		return
	case user.Email == "" || !user.EmailOptIn:
		s.record(ctx, n, ChannelEmail, models.DeliverySkipped, "", "recipient opted out")
		return
	}

	id, err := s.Email.SendEmail(ctx, notify.Email{
		To:      user.Email,
		ToName:  user.Name,
		Subject: n.Title,
		Text:    n.Message,
	})
	if err != nil {
		s.Log.Error("email delivery failed",
			zap.String("notification_id", n.ID),
			zap.Uint("user_id", user.ID),
			zap.Error(err))
		s.record(ctx, n, ChannelEmail, models.DeliveryFailed, "", err.Error())
		return
	}
	s.record(ctx, n, ChannelEmail, models.DeliverySent, id, "")
}

func (s *NotificationService) deliverWhatsApp(ctx context.Context, user *models.User, n *models.Notification) {
	switch {
	case s.WhatsApp == nil:
		s.record(ctx, n, ChannelWhatsApp, models.DeliverySkipped, "", notify.ErrDisabled.Error())
		return
	case user.Phone == "" || !user.WhatsAppOptIn:
		s.record(ctx, n, ChannelWhatsApp, models.DeliverySkipped, "", "recipient opted out")
		return
	}

	id, err := s.WhatsApp.SendWhatsApp(ctx, user.Phone, fmt.Sprintf("*%s*\n%s", n.Title, n.Message))
	if err != nil {
		s.Log.Error("whatsapp delivery failed",
			zap.String("notification_id", n.ID),
			zap.Uint("user_id", user.ID),
			zap.Error(err))
		s.record(ctx, n, ChannelWhatsApp, models.DeliveryFailed, "", err.Error())
		return
	}
	s.record(ctx, n, ChannelWhatsApp, models.DeliverySent, id, "")
}

func (s *NotificationService) record(ctx context.Context, n *models.Notification, channel string, status models.DeliveryStatus, providerID, errMsg string) {
	metrics.NotificationsDelivered.WithLabelValues(channel, string(status)).Inc()

	d := &models.NotificationDelivery{
		NotificationID: n.ID,
		Channel:        channel,
		Status:         status,
		ProviderID:     providerID,
		Error:          errMsg,
	}
	if err := s.DB.WithContext(ctx).Create(d).Error; err != nil {
		s.Log.Warn("failed to record delivery", zap.String("notification_id", n.ID), zap.Error(err))
	}
}

type NotificationFilter struct {
	UnreadOnly bool `form:"unread_only"`
	Page
}

func (s *NotificationService) List(ctx context.Context, user *models.User, f NotificationFilter) (*ListResult[models.Notification], error) {
	q := s.DB.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", user.ID)
	if f.UnreadOnly {
		q = q.Where("read_at IS NULL")
	}
	return paginate[models.Notification](q, f.Page, "created_at DESC, id DESC")
}

func (s *NotificationService) UnreadCount(ctx context.Context, user *models.User) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", user.ID).
		Count(&n).Error
	return n, err
}

func (s *NotificationService) MarkRead(ctx context.Context, user *models.User, id string) (*models.Notification, error) {
	var n models.Notification
	if err := s.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, user.ID).First(&n).Error; err != nil {
		return nil, notFoundOr(err, "notification", id)
	}
	if n.ReadAt != nil {
		return &n, nil
	}

	now := s.now()
	if err := s.DB.WithContext(ctx).Model(&n).Update("read_at", now).Error; err != nil {
		return nil, apperror.ErrInternal.WithInternal(err)
	}
	n.ReadAt = &now
	return &n, nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, user *models.User) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", user.ID).
		Update("read_at", s.now())
	return res.RowsAffected, res.Error
}

// PruneRead deletes read notifications older than the retention window
func (s *NotificationService) PruneRead(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := s.now().Add(-retention)
	var ids []string
	if err := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("read_at IS NOT NULL AND created_at < ?", cutoff).
		Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	var deleted int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("notification_id IN ?", ids).Delete(&models.NotificationDelivery{}).Error; err != nil {
			return err
		}
		res := tx.Where("id IN ?", ids).Delete(&models.Notification{})
		deleted = res.RowsAffected
		return res.Error
	})
	return deleted, err
}

// Deliveries lists the side-channel attempts for a notification
func (s *NotificationService) Deliveries(ctx context.Context, notificationID string) ([]models.NotificationDelivery, error) {
	var out []models.NotificationDelivery
	err := s.DB.WithContext(ctx).Where("notification_id = ?", notificationID).Order("id").Find(&out).Error
	return out, err
}
