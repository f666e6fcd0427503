package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/justsurfingit/KarirConnect/internal/apperror"
	"github.com/justsurfingit/KarirConnect/internal/cache"
	"github.com/justsurfingit/KarirConnect/internal/dtos"
	"github.com/justsurfingit/KarirConnect/internal/metrics"
	"github.com/justsurfingit/KarirConnect/internal/models"
)

const maxMessageLength = 5000

type InvitationService struct {
	DB            *gorm.DB
	Cache         cache.Store
	ThreadTTL     time.Duration
	Notifications *NotificationService
	Log           *zap.Logger
	now           clock
}

func NewInvitationService(db *gorm.DB, c cache.Store, ttl time.Duration, notifications *NotificationService, log *zap.Logger) *InvitationService {
	return &InvitationService{
		DB:            db,
		Cache:         c,
		ThreadTTL:     ttl,
		Notifications: notifications,
		Log:           log.Named("invitations"),
		now:           utcNow,
	}
}

func threadKey(invitationID uint) string {
	return fmt.Sprintf("invitations:%d:messages", invitationID)
}

// threadVersionKey holds a token that changes on every write to the thread
func threadVersionKey(invitationID uint) string {
	return fmt.Sprintf("invitations:%d:version", invitationID)
}

// cachedThread is only served while its version matches the current one
type cachedThread struct {
	Version  string                     `json:"version"`
	Messages []models.InvitationMessage `json:"messages"`
}

type InvitationFilter struct {
	Status string `form:"status"`
	Page
}

// thread participants of one invitation
type party struct {
	invitation *models.Invitation
	candidate  *models.User
	owner      *models.User
}

// counterpart returns the other side of the conversation, or nil if actor is not a side
func (p *party) counterpart(actor *models.User) *models.User {
	switch actor.ID {
	case p.candidate.ID:
		return p.owner
	case p.owner.ID:
		return p.candidate
	}
	return nil
}

func (s *InvitationService) notify(ctx context.Context, user *models.User, req NotifyRequest) {
	if s.Notifications == nil || user == nil {
		return
	}
	if _, err := s.Notifications.Notify(ctx, user, req); err != nil {
		s.Log.Error("failed to notify", zap.Uint("user_id", user.ID), zap.String("type", req.Type), zap.Error(err))
	}
}

// load resolves the invitation and checks the actor takes part in it (admins may read any)
func (s *InvitationService) load(ctx context.Context, actor *models.User, id uint) (*party, error) {
	var inv models.Invitation
	err := s.DB.WithContext(ctx).
		Preload("Job", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("Company", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("Candidate").
		First(&inv, id).Error
	if err != nil {
		return nil, notFoundOr(err, "invitation", id)
	}

	owner, err := companyOwner(ctx, s.DB, inv.CompanyID)
	if err != nil {
		return nil, err
	}

	p := &party{invitation: &inv, candidate: inv.Candidate, owner: owner}
	if p.counterpart(actor) == nil && !isAdmin(actor) {
		return nil, apperror.NewNotFound("invitation", id)
	}
	return p, nil
}

// Invite asks a candidate to apply to one of the employer's open listings
func (s *InvitationService) Invite(ctx context.Context, actor *models.User, req *dtos.InvitationRequest) (*models.Invitation, error) {
	var job models.JobListing
	if err := s.DB.WithContext(ctx).Preload("Company").First(&job, req.JobID).Error; err != nil {
		return nil, notFoundOr(err, "job", req.JobID)
	}
	owner, err := ownsCompany(ctx, s.DB, actor, job.CompanyID)
	if err != nil {
		return nil, err
	}
	if !owner {
		return nil, apperror.ErrForbidden.WithMessage("you do not manage this listing")
	}
	if job.Status != models.ListingOpen || job.Expired(s.now()) {
		return nil, apperror.NewInvalidState("invitations can only be sent for open listings")
	}

	var candidate models.User
	if err := s.DB.WithContext(ctx).First(&candidate, req.CandidateID).Error; err != nil {
		return nil, notFoundOr(err, "candidate", req.CandidateID)
	}
	if candidate.Role != models.RoleCandidate {
		return nil, apperror.NewValidation("invitations can only be sent to candidates")
	}

	body := strings.TrimSpace(req.Message)
	if utf8.RuneCountInString(body) > maxMessageLength {
		return nil, apperror.NewValidation(fmt.Sprintf("message must be at most %d characters", maxMessageLength))
	}

	var existing int64
	if err := s.DB.WithContext(ctx).Model(&models.Invitation{}).
		Where("job_id = ? AND candidate_id = ?", job.ID, candidate.ID).
		Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("check duplicate invitation: %w", err)
	}
	if existing > 0 {
		return nil, apperror.ErrConflict.WithMessage("this candidate was already invited to the listing")
	}

	inv := &models.Invitation{
		JobID:       job.ID,
		CompanyID:   job.CompanyID,
		CandidateID: candidate.ID,
		SenderID:    actor.ID,
		Status:      models.InvitationPending,
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(inv).Error; err != nil {
			return err
		}
		if body == "" {
			return nil
		}
		return tx.Create(&models.InvitationMessage{
			InvitationID: inv.ID,
			SenderID:     actor.ID,
			Body:         body,
		}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.ErrConflict.WithMessage("this candidate was already invited to the listing")
		}
		return nil, fmt.Errorf("create invitation: %w", err)
	}

	s.Log.Info("invitation sent",
		zap.Uint("invitation_id", inv.ID),
		zap.Uint("job_id", job.ID),
		zap.Uint("candidate_id", candidate.ID))

	message := fmt.Sprintf("%s invited you to apply for %s.", job.Company.Name, job.Title)
	if body != "" {
		message += "\n\n" + body
	}
	s.notify(ctx, &candidate, NotifyRequest{
		Type:    "invitation.received",
		Title:   "Job invitation: " + job.Title,
		Message: message,
		Data:    map[string]any{"invitation_id": inv.ID, "job_id": job.ID},
	})

	inv.Job = &job
	inv.Company = job.Company
	inv.Candidate = &candidate
	return inv, nil
}

func (s *InvitationService) Get(ctx context.Context, actor *models.User, id uint) (*models.Invitation, error) {
	p, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return p.invitation, nil
}

// List returns received invitations for candidates and sent ones for employers
func (s *InvitationService) List(ctx context.Context, actor *models.User, f InvitationFilter) (*ListResult[models.Invitation], error) {
	q := s.DB.WithContext(ctx).Model(&models.Invitation{})
	switch actor.Role {
	case models.RoleCandidate:
		q = q.Where("candidate_id = ?", actor.ID)
	case models.RoleEmployer:
		q = q.Where("company_id IN (?)", s.DB.Model(&models.Company{}).Select("id").Where("owner_id = ?", actor.ID))
	case models.RoleAdmin:
	default:
		return nil, apperror.ErrForbidden
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	return paginate[models.Invitation](q, f.Page, "created_at DESC, id DESC", "Job", "Company", "Candidate")
}

// Respond records the candidate's decision on a pending invitation
func (s *InvitationService) Respond(ctx context.Context, actor *models.User, id uint, accept bool) (*models.Invitation, error) {
	p, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	inv := p.invitation
	if inv.CandidateID != actor.ID {
		return nil, apperror.ErrForbidden.WithMessage("only the invited candidate can respond")
	}
	if inv.Status != models.InvitationPending {
		return nil, apperror.NewInvalidState(fmt.Sprintf("invitation is already %s", inv.Status))
	}

	status := models.InvitationDeclined
	if accept {
		status = models.InvitationAccepted
	}
	now := s.now()
	res := s.DB.WithContext(ctx).Model(&models.Invitation{}).
		Where("id = ? AND status = ?", inv.ID, models.InvitationPending).
		Updates(map[string]any{"status": status, "responded_at": now})
	if res.Error != nil {
		return nil, fmt.Errorf("respond to invitation: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperror.NewInvalidState("invitation was already answered")
	}
	inv.Status = status
	inv.RespondedAt = &now

	s.notify(ctx, p.owner, NotifyRequest{
		Type:    "invitation." + string(status),
		Title:   fmt.Sprintf("Invitation %s: %s", status, inv.Job.Title),
		Message: fmt.Sprintf("%s %s your invitation for %s.", displayName(actor), status, inv.Job.Title),
		Data:    map[string]any{"invitation_id": inv.ID, "job_id": inv.JobID},
	})
	return inv, nil
}

// Thread returns the conversation, reading through the cache
func (s *InvitationService) Thread(ctx context.Context, actor *models.User, id uint) ([]models.InvitationMessage, error) {
	if _, err := s.load(ctx, actor, id); err != nil {
		return nil, err
	}

	key := threadKey(id)
	version, err := s.threadVersion(ctx, id)
	if err != nil {
		s.Log.Warn("thread cache read failed", zap.String("key", key), zap.Error(err))
		metrics.ThreadCache.WithLabelValues("error").Inc()
		return s.loadThread(ctx, id)
	}

	if b, ok, err := s.Cache.Get(ctx, key); err != nil {
		s.Log.Warn("thread cache read failed", zap.String("key", key), zap.Error(err))
		metrics.ThreadCache.WithLabelValues("error").Inc()
	} else if ok {
		var entry cachedThread
		if err := json.Unmarshal(b, &entry); err != nil {
			s.Log.Warn("discarding corrupt thread cache entry", zap.String("key", key))
		} else if entry.Version == version && entry.Messages != nil {
			metrics.ThreadCache.WithLabelValues("hit").Inc()
			return entry.Messages, nil
		}
	}
	metrics.ThreadCache.WithLabelValues("miss").Inc()

	// version is read before the load: a racing write bumps it and this entry is never served
	msgs, err := s.loadThread(ctx, id)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(cachedThread{Version: version, Messages: msgs}); err == nil {
		if err := s.Cache.Set(ctx, key, b, s.ThreadTTL); err != nil {
			s.Log.Warn("thread cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return msgs, nil
}

func (s *InvitationService) loadThread(ctx context.Context, id uint) ([]models.InvitationMessage, error) {
	msgs := make([]models.InvitationMessage, 0)
	if err := s.DB.WithContext(ctx).
		Where("invitation_id = ?", id).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("load thread: %w", err)
	}
	return msgs, nil
}

// threadVersion returns the current version token, starting a new one when none is stored
func (s *InvitationService) threadVersion(ctx context.Context, id uint) (string, error) {
	key := threadVersionKey(id)
	b, ok, err := s.Cache.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if ok {
		return string(b), nil
	}
	version := uuid.NewString()
	if err := s.Cache.Set(ctx, key, []byte(version), s.ThreadTTL); err != nil {
		return "", err
	}
	return version, nil
}

// invalidate bumps the thread version and drops the cached entry
func (s *InvitationService) invalidate(ctx context.Context, id uint) {
	if err := s.Cache.Set(ctx, threadVersionKey(id), []byte(uuid.NewString()), s.ThreadTTL); err != nil {
		s.Log.Warn("thread version bump failed", zap.Uint("invitation_id", id), zap.Error(err))
	}
	if err := s.Cache.Delete(ctx, threadKey(id)); err != nil {
		s.Log.Warn("thread cache invalidation failed", zap.Uint("invitation_id", id), zap.Error(err))
	}
}

// SendMessage appends to the thread and notifies the other side
func (s *InvitationService) SendMessage(ctx context.Context, actor *models.User, id uint, body string) (*models.InvitationMessage, error) {
	p, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	recipient := p.counterpart(actor)
	if recipient == nil {
		return nil, apperror.ErrForbidden.WithMessage("only participants can send messages")
	}
	if p.invitation.Status == models.InvitationDeclined {
		return nil, apperror.NewInvalidState("the invitation was declined; the conversation is closed")
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperror.NewValidation("message body is required")
	}
	if utf8.RuneCountInString(body) > maxMessageLength {
		return nil, apperror.NewValidation(fmt.Sprintf("message must be at most %d characters", maxMessageLength))
	}

	msg := &models.InvitationMessage{
		InvitationID: id,
		SenderID:     actor.ID,
		Body:         body,
	}
	if err := s.DB.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	s.invalidate(ctx, id)

	s.notify(ctx, recipient, NotifyRequest{
		Type:    "invitation.message",
		Title:   fmt.Sprintf("New message from %s", displayName(actor)),
		Message: preview(body, 280),
		Data:    map[string]any{"invitation_id": id, "message_id": msg.ID},
	})
	return msg, nil
}

func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "…"
}

// MarkRead stamps read_at on every unread message the other side sent
func (s *InvitationService) MarkRead(ctx context.Context, actor *models.User, id uint) (int64, error) {
	p, err := s.load(ctx, actor, id)
	if err != nil {
		return 0, err
	}
	if p.counterpart(actor) == nil {
		return 0, apperror.ErrForbidden.WithMessage("only participants can mark messages read")
	}

	res := s.DB.WithContext(ctx).Model(&models.InvitationMessage{}).
		Where("invitation_id = ? AND sender_id <> ? AND read_at IS NULL", id, actor.ID).
		Update("read_at", s.now())
	if res.Error != nil {
		return 0, fmt.Errorf("mark messages read: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		s.invalidate(ctx, id)
	}
	return res.RowsAffected, nil
}

// UnreadCount counts messages waiting for the actor across all their invitations
func (s *InvitationService) UnreadCount(ctx context.Context, actor *models.User) (int64, error) {
	inv := s.DB.Model(&models.Invitation{}).Select("id")
	switch actor.Role {
	case models.RoleCandidate:
		inv = inv.Where("candidate_id = ?", actor.ID)
	case models.RoleEmployer:
		inv = inv.Where("company_id IN (?)", s.DB.Model(&models.Company{}).Select("id").Where("owner_id = ?", actor.ID))
	default:
		return 0, nil
	}

	var n int64
	err := s.DB.WithContext(ctx).Model(&models.InvitationMessage{}).
		Where("invitation_id IN (?) AND sender_id <> ? AND read_at IS NULL", inv, actor.ID).
		Count(&n).Error
	return n, err
}
