package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/justsurfingit/KarirConnect/internal/apperror"
	"github.com/justsurfingit/KarirConnect/internal/models"
	"github.com/justsurfingit/KarirConnect/internal/storage"
)

var allowedResumeTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

var applicationTransitions = map[models.ApplicationStatus][]models.ApplicationStatus{
	models.ApplicationPending:     {models.ApplicationReviewed, models.ApplicationShortlisted, models.ApplicationRejected},
	models.ApplicationReviewed:    {models.ApplicationShortlisted, models.ApplicationInterview, models.ApplicationRejected},
	models.ApplicationShortlisted: {models.ApplicationInterview, models.ApplicationRejected},
	models.ApplicationInterview:   {models.ApplicationAccepted, models.ApplicationRejected},
}

// CanTransition reports whether an employer may move an application from one status to another
func CanTransition(from, to models.ApplicationStatus) bool {
	for _, next := range applicationTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type ApplicationService struct {
	DB            *gorm.DB
	Storage       storage.Store
	Notifications *NotificationService
	Log           *zap.Logger
	now           clock
}

func NewApplicationService(db *gorm.DB, store storage.Store, notifications *NotificationService, log *zap.Logger) *ApplicationService {
	return &ApplicationService{
		DB:            db,
		Storage:       store,
		Notifications: notifications,
		Log:           log.Named("applications"),
		now:           utcNow,
	}
}

type ApplicationFilter struct {
	Status string `form:"status"`
	Page
}

func (s *ApplicationService) event(tx *gorm.DB, app *models.Application, actorID uint, eventType, details string) error {
	return tx.Create(&models.JobEvent{
		JobID:         app.JobID,
		ApplicationID: &app.ID,
		ActorID:       actorID,
		EventType:     eventType,
		Details:       details,
	}).Error
}

// companyOwner loads the user who owns the company, including soft-deleted companies
func companyOwner(ctx context.Context, db *gorm.DB, companyID uint) (*models.User, error) {
	var company models.Company
	if err := db.WithContext(ctx).Unscoped().First(&company, companyID).Error; err != nil {
		return nil, notFoundOr(err, "company", companyID)
	}
	var owner models.User
	if err := db.WithContext(ctx).First(&owner, company.OwnerID).Error; err != nil {
		return nil, notFoundOr(err, "user", company.OwnerID)
	}
	return &owner, nil
}

func (s *ApplicationService) notify(ctx context.Context, user *models.User, req NotifyRequest) {
	if s.Notifications == nil || user == nil {
		return
	}
	if _, err := s.Notifications.Notify(ctx, user, req); err != nil {
		s.Log.Error("failed to notify", zap.Uint("user_id", user.ID), zap.String("type", req.Type), zap.Error(err))
	}
}

// Apply submits the candidate's application to an open listing
func (s *ApplicationService) Apply(ctx context.Context, actor *models.User, jobID uint, coverLetter string, resume *Upload) (*models.Application, error) {
	if actor.Role != models.RoleCandidate {
		return nil, apperror.ErrForbidden.WithMessage("only candidates can apply")
	}

	var job models.JobListing
	if err := s.DB.WithContext(ctx).First(&job, jobID).Error; err != nil {
		return nil, notFoundOr(err, "job", jobID)
	}
	if job.Status != models.ListingOpen || job.Expired(s.now()) {
		return nil, apperror.NewInvalidState("this listing is not accepting applications")
	}

	var existing int64
	if err := s.DB.WithContext(ctx).Model(&models.Application{}).
		Where("job_id = ? AND candidate_id = ?", jobID, actor.ID).
		Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("check duplicate application: %w", err)
	}
	if existing > 0 {
		return nil, apperror.ErrConflict.WithMessage("you have already applied to this listing")
	}

	app := &models.Application{
		JobID:       jobID,
		CandidateID: actor.ID,
		CoverLetter: strings.TrimSpace(coverLetter),
		Status:      models.ApplicationPending,
	}

	if resume != nil {
		if !allowedResumeTypes[resume.ContentType] {
			return nil, apperror.NewValidation("resume must be a PDF or Word document")
		}
		app.ResumeKey = storage.Key("resumes", actor.ID, resume.Filename)
		if err := s.Storage.Put(ctx, app.ResumeKey, resume.Body, resume.Size, resume.ContentType); err != nil {
			return nil, apperror.ErrInternal.WithInternal(err)
		}
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(app).Error; err != nil {
			return err
		}
		return s.event(tx, app, actor.ID, EventApplied, "Application submitted")
	})
	if err != nil {
		if app.ResumeKey != "" {
			if delErr := s.Storage.Delete(ctx, app.ResumeKey); delErr != nil {
				s.Log.Warn("failed to remove orphaned resume", zap.String("key", app.ResumeKey), zap.Error(delErr))
			}
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.ErrConflict.WithMessage("you have already applied to this listing")
		}
		return nil, fmt.Errorf("create application: %w", err)
	}
	app.HasResume = app.ResumeKey != ""

	s.Log.Info("application submitted", zap.Uint("application_id", app.ID), zap.Uint("job_id", jobID))

	owner, err := companyOwner(ctx, s.DB, job.CompanyID)
	if err != nil {
		s.Log.Warn("cannot resolve company owner", zap.Uint("company_id", job.CompanyID), zap.Error(err))
	} else {
		s.notify(ctx, owner, NotifyRequest{
			Type:    "application.submitted",
			Title:   "New application: " + job.Title,
			Message: fmt.Sprintf("%s applied to %s.", displayName(actor), job.Title),
			Data:    map[string]any{"application_id": app.ID, "job_id": job.ID},
		})
	}
	return app, nil
}

func displayName(u *models.User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// load returns the application with its listing, plus whether actor manages the company
func (s *ApplicationService) load(ctx context.Context, actor *models.User, id uint) (*models.Application, bool, error) {
	var app models.Application
	err := s.DB.WithContext(ctx).
		Preload("Job", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("Candidate").
		First(&app, id).Error
	if err != nil {
		return nil, false, notFoundOr(err, "application", id)
	}

	manager, err := ownsCompany(ctx, s.DB, actor, app.Job.CompanyID)
	if err != nil {
		return nil, false, err
	}
	if !manager && app.CandidateID != actor.ID {
		return nil, false, apperror.NewNotFound("application", id)
	}
	return &app, manager, nil
}

func (s *ApplicationService) Get(ctx context.Context, actor *models.User, id uint) (*models.Application, error) {
	app, _, err := s.load(ctx, actor, id)
	return app, err
}

func (s *ApplicationService) ListForJob(ctx context.Context, actor *models.User, jobID uint, f ApplicationFilter) (*ListResult[models.Application], error) {
	var job models.JobListing
	if err := s.DB.WithContext(ctx).Unscoped().First(&job, jobID).Error; err != nil {
		return nil, notFoundOr(err, "job", jobID)
	}
	owner, err := ownsCompany(ctx, s.DB, actor, job.CompanyID)
	if err != nil {
		return nil, err
	}
	if !owner {
		return nil, apperror.ErrForbidden
	}

	q := s.DB.WithContext(ctx).Model(&models.Application{}).Where("job_id = ?", jobID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	return paginate[models.Application](q, f.Page, "created_at DESC, id DESC", "Candidate")
}

func (s *ApplicationService) ListMine(ctx context.Context, actor *models.User, f ApplicationFilter) (*ListResult[models.Application], error) {
	q := s.DB.WithContext(ctx).Model(&models.Application{}).Where("candidate_id = ?", actor.ID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	return paginate[models.Application](q, f.Page, "created_at DESC, id DESC", "Job", "Job.Company")
}

// moveApplication writes the new status only if nobody changed it since it was read
func moveApplication(tx *gorm.DB, id uint, from, to models.ApplicationStatus) error {
	res := tx.Model(&models.Application{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.NewInvalidState(fmt.Sprintf("application changed while moving it from %s to %s", from, to))
	}
	return nil
}

// UpdateStatus moves an application along the hiring pipeline (employer side)
func (s *ApplicationService) UpdateStatus(ctx context.Context, actor *models.User, id uint, status models.ApplicationStatus, note string) (*models.Application, error) {
	app, manager, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !manager {
		return nil, apperror.ErrForbidden
	}
	if app.Status.Terminal() {
		return nil, apperror.NewInvalidState(fmt.Sprintf("application is already %s", app.Status))
	}
	if !CanTransition(app.Status, status) {
		return nil, apperror.NewInvalidState(fmt.Sprintf("cannot move application from %s to %s", app.Status, status))
	}

	previous := app.Status
	details := fmt.Sprintf("Status changed from %s to %s", previous, status)
	if note = strings.TrimSpace(note); note != "" {
		details += ". Note: " + note
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := moveApplication(tx, app.ID, previous, status); err != nil {
			return err
		}
		return s.event(tx, app, actor.ID, EventApplication, details)
	})
	if errors.Is(err, apperror.ErrInvalidState) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("update application status: %w", err)
	}
	app.Status = status

	message := fmt.Sprintf("Your application for %s is now %s.", app.Job.Title, status)
	if note != "" {
		message += "\n" + note
	}
	s.notify(ctx, app.Candidate, NotifyRequest{
		Type:    "application.status_changed",
		Title:   "Application update: " + app.Job.Title,
		Message: message,
		Data:    map[string]any{"application_id": app.ID, "job_id": app.JobID, "status": string(status)},
	})
	return app, nil
}

// Withdraw lets the candidate pull a non-terminal application
func (s *ApplicationService) Withdraw(ctx context.Context, actor *models.User, id uint) (*models.Application, error) {
	app, _, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if app.CandidateID != actor.ID {
		return nil, apperror.ErrForbidden
	}
	if app.Status.Terminal() {
		return nil, apperror.NewInvalidState(fmt.Sprintf("application is already %s", app.Status))
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := moveApplication(tx, app.ID, app.Status, models.ApplicationWithdrawn); err != nil {
			return err
		}
		return s.event(tx, app, actor.ID, EventWithdrawn, "Candidate withdrew the application")
	})
	if errors.Is(err, apperror.ErrInvalidState) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("withdraw application: %w", err)
	}
	app.Status = models.ApplicationWithdrawn

	if owner, err := companyOwner(ctx, s.DB, app.Job.CompanyID); err == nil {
		s.notify(ctx, owner, NotifyRequest{
			Type:      "application.withdrawn",
			Title:     "Application withdrawn: " + app.Job.Title,
			Message:   fmt.Sprintf("%s withdrew their application.", displayName(actor)),
			Data:      map[string]any{"application_id": app.ID, "job_id": app.JobID},
			InAppOnly: true,
		})
	}
	return app, nil
}

// ResumeURL returns a download link for the application's resume
func (s *ApplicationService) ResumeURL(ctx context.Context, actor *models.User, id uint) (string, error) {
	app, _, err := s.load(ctx, actor, id)
	if err != nil {
		return "", err
	}
	if app.ResumeKey == "" {
		return "", apperror.NewNotFound("resume for application", id)
	}
	url, err := s.Storage.URL(ctx, app.ResumeKey)
	if err != nil {
		return "", apperror.ErrInternal.WithInternal(err)
	}
	return url, nil
}
