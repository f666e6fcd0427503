package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/justsurfingit/KarirConnect/internal/apperror"
	"github.com/justsurfingit/KarirConnect/internal/dtos"
	"github.com/justsurfingit/KarirConnect/internal/metrics"
	"github.com/justsurfingit/KarirConnect/internal/models"
)

const (
	EventCreated       = "CREATED"
	EventUpdated       = "UPDATED"
	EventStatusChanged = "STATUS_CHANGED"
	EventExpired       = "EXPIRED"
	EventApplied       = "APPLIED"
	EventApplication   = "APPLICATION_STATUS"
	EventWithdrawn     = "WITHDRAWN"
)

// listing status transitions; closed->open also requires an unexpired deadline
var listingTransitions = map[models.ListingStatus][]models.ListingStatus{
	models.ListingDraft:  {models.ListingOpen},
	models.ListingOpen:   {models.ListingClosed},
	models.ListingClosed: {models.ListingOpen},
}

type JobService struct {
	DB  *gorm.DB
	Log *zap.Logger
	now clock
}

func NewJobService(db *gorm.DB, log *zap.Logger) *JobService {
	return &JobService{
		DB:  db,
		Log: log.Named("jobs"),
		now: utcNow,
	}
}

type JobFilter struct {
	Q              string `form:"q"`
	Location       string `form:"location"`
	EmploymentType string `form:"employment_type"`
	WorkMode       string `form:"work_mode"`
	CompanyID      uint   `form:"company_id"`
	Status         string `form:"status"`
	Page
}

// ownsCompany reports whether actor may manage listings of companyID
func ownsCompany(ctx context.Context, db *gorm.DB, actor *models.User, companyID uint) (bool, error) {
	if actor == nil {
		return false, nil
	}
	if isAdmin(actor) {
		return true, nil
	}
	var n int64
	err := db.WithContext(ctx).Model(&models.Company{}).
		Where("id = ? AND owner_id = ?", companyID, actor.ID).
		Count(&n).Error
	return n > 0, err
}

func (s *JobService) logEvent(tx *gorm.DB, jobID, actorID uint, eventType, details string) error {
	return tx.Create(&models.JobEvent{
		JobID:     jobID,
		ActorID:   actorID,
		EventType: eventType,
		Details:   details,
	}).Error
}

func (s *JobService) CreateJob(ctx context.Context, actor *models.User, req *dtos.JobListingRequest) (*models.JobListing, error) {
	var company models.Company
	if err := s.DB.WithContext(ctx).First(&company, req.CompanyID).Error; err != nil {
		return nil, notFoundOr(err, "company", req.CompanyID)
	}
	if company.OwnerID != actor.ID && !isAdmin(actor) {
		return nil, apperror.ErrForbidden.WithMessage("you do not manage this company")
	}

	if req.SalaryMax > 0 && req.SalaryMin > req.SalaryMax {
		return nil, apperror.NewValidation("salary_min must not exceed salary_max")
	}
	now := s.now()
	var deadline *time.Time
	if req.Deadline != nil {
		if !req.Deadline.After(now) {
			return nil, apperror.NewValidation("deadline must be in the future")
		}
		d := req.Deadline.UTC()
		deadline = &d
	}

	job := &models.JobListing{
		CompanyID:      company.ID,
		Title:          strings.TrimSpace(req.Title),
		Description:    req.Description,
		Requirements:   req.Requirements,
		Location:       req.Location,
		EmploymentType: orDefault(req.EmploymentType, "full_time"),
		WorkMode:       orDefault(req.WorkMode, "onsite"),
		SalaryMin:      req.SalaryMin,
		SalaryMax:      req.SalaryMax,
		Currency:       strings.ToUpper(orDefault(req.Currency, "IDR")),
		Deadline:       deadline,
		Status:         models.ListingDraft,
	}
	if req.Publish {
		job.Status = models.ListingOpen
		job.PublishedAt = &now
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(job).Error; err != nil {
			return err
		}
		return s.logEvent(tx, job.ID, actor.ID, EventCreated, fmt.Sprintf("Listing created as %s", job.Status))
	})
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	s.Log.Info("job listing created", zap.Uint("job_id", job.ID), zap.Uint("company_id", company.ID))
	return job, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Get hides non-open listings from everyone but the owner and admins
func (s *JobService) Get(ctx context.Context, actor *models.User, id uint) (*models.JobListing, error) {
	var job models.JobListing
	if err := s.DB.WithContext(ctx).Preload("Company").First(&job, id).Error; err != nil {
		return nil, notFoundOr(err, "job", id)
	}
	if job.Status == models.ListingOpen {
		return &job, nil
	}

	owner, err := ownsCompany(ctx, s.DB, actor, job.CompanyID)
	if err != nil {
		return nil, err
	}
	if !owner {
		return nil, apperror.NewNotFound("job", id)
	}
	return &job, nil
}

func (s *JobService) List(ctx context.Context, actor *models.User, f JobFilter) (*ListResult[models.JobListing], error) {
	q := s.DB.WithContext(ctx).Model(&models.JobListing{})

	if f.Status != "" && f.Status != string(models.ListingOpen) {
		// Only owners see drafts and closed listings, and only for one company at a time
		if f.CompanyID == 0 && !isAdmin(actor) {
			return nil, apperror.NewBadRequest("company_id is required to list non-open listings")
		}
		if f.CompanyID != 0 {
			owner, err := ownsCompany(ctx, s.DB, actor, f.CompanyID)
			if err != nil {
				return nil, err
			}
			if !owner {
				return nil, apperror.ErrForbidden
			}
		}
		if f.Status != "all" {
			q = q.Where("status = ?", f.Status)
		}
	} else {
		q = q.Where("status = ?", models.ListingOpen).
			Where("(deadline IS NULL OR deadline > ?)", s.now())
	}

	if f.CompanyID != 0 {
		q = q.Where("company_id = ?", f.CompanyID)
	}
	if f.Q != "" {
		like := "%" + strings.ToLower(f.Q) + "%"
		q = q.Where("(LOWER(title) LIKE ? OR LOWER(description) LIKE ?)", like, like)
	}
	if f.Location != "" {
		q = q.Where("LOWER(location) LIKE ?", "%"+strings.ToLower(f.Location)+"%")
	}
	if f.EmploymentType != "" {
		q = q.Where("employment_type = ?", f.EmploymentType)
	}
	if f.WorkMode != "" {
		q = q.Where("work_mode = ?", f.WorkMode)
	}

	return paginate[models.JobListing](q, f.Page, "created_at DESC, id DESC", "Company")
}

// loadOwned returns the listing if actor manages its company
func (s *JobService) loadOwned(ctx context.Context, actor *models.User, id uint) (*models.JobListing, error) {
	var job models.JobListing
	if err := s.DB.WithContext(ctx).First(&job, id).Error; err != nil {
		return nil, notFoundOr(err, "job", id)
	}
	owner, err := ownsCompany(ctx, s.DB, actor, job.CompanyID)
	if err != nil {
		return nil, err
	}
	if !owner {
		return nil, apperror.ErrForbidden
	}
	return &job, nil
}

func (s *JobService) Update(ctx context.Context, actor *models.User, id uint, req *dtos.JobListingUpdateRequest) (*models.JobListing, error) {
	job, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if req.Title != nil {
		updates["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Requirements != nil {
		updates["requirements"] = *req.Requirements
	}
	if req.Location != nil {
		updates["location"] = *req.Location
	}
	if req.EmploymentType != nil {
		updates["employment_type"] = *req.EmploymentType
	}
	if req.WorkMode != nil {
		updates["work_mode"] = *req.WorkMode
	}
	if req.Currency != nil {
		updates["currency"] = strings.ToUpper(*req.Currency)
	}

	salaryMin, salaryMax := job.SalaryMin, job.SalaryMax
	if req.SalaryMin != nil {
		salaryMin = *req.SalaryMin
		updates["salary_min"] = salaryMin
	}
	if req.SalaryMax != nil {
		salaryMax = *req.SalaryMax
		updates["salary_max"] = salaryMax
	}
	if salaryMax > 0 && salaryMin > salaryMax {
		return nil, apperror.NewValidation("salary_min must not exceed salary_max")
	}
	if req.Deadline != nil {
		if !req.Deadline.After(s.now()) {
			return nil, apperror.NewValidation("deadline must be in the future")
		}
		updates["deadline"] = req.Deadline.UTC()
	}

	if len(updates) > 0 {
		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(job).Updates(updates).Error; err != nil {
				return err
			}
			return s.logEvent(tx, job.ID, actor.ID, EventUpdated, fmt.Sprintf("Updated %d field(s)", len(updates)))
		})
		if err != nil {
			return nil, fmt.Errorf("update job: %w", err)
		}
	}
	return s.Get(ctx, actor, id)
}

func (s *JobService) Delete(ctx context.Context, actor *models.User, id uint) error {
	job, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.DB.WithContext(ctx).Delete(job).Error; err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	s.Log.Info("job listing deleted", zap.Uint("job_id", id), zap.Uint("actor_id", actor.ID))
	return nil
}

func (s *JobService) ChangeStatus(ctx context.Context, actor *models.User, id uint, status models.ListingStatus) (*models.JobListing, error) {
	job, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if job.Status == status {
		return s.Get(ctx, actor, id)
	}

	allowed := false
	for _, next := range listingTransitions[job.Status] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, apperror.NewInvalidState(fmt.Sprintf("cannot move listing from %s to %s", job.Status, status))
	}

	now := s.now()
	previous := job.Status
	if status == models.ListingOpen && job.Expired(now) {
		return nil, apperror.NewInvalidState("listing deadline has passed; extend it before reopening")
	}

	updates := map[string]any{"status": status}
	if status == models.ListingOpen && job.PublishedAt == nil {
		updates["published_at"] = now
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(job).Updates(updates).Error; err != nil {
			return err
		}
		return s.logEvent(tx, job.ID, actor.ID, EventStatusChanged, fmt.Sprintf("Status changed from %s to %s", previous, status))
	})
	if err != nil {
		return nil, fmt.Errorf("change job status: %w", err)
	}
	return s.Get(ctx, actor, id)
}

// CloseExpired closes open listings whose deadline has passed
func (s *JobService) CloseExpired(ctx context.Context) (int, error) {
	now := s.now()
	var ids []uint
	if err := s.DB.WithContext(ctx).Model(&models.JobListing{}).
		Where("status = ? AND deadline IS NOT NULL AND deadline < ?", models.ListingOpen, now).
		Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("find expired listings: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.JobListing{}).Where("id IN ?", ids).
			Update("status", models.ListingClosed).Error; err != nil {
			return err
		}
		for _, id := range ids {
			if err := s.logEvent(tx, id, 0, EventExpired, "Closed automatically after deadline"); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("close expired listings: %w", err)
	}

	metrics.ListingsExpired.Add(float64(len(ids)))
	s.Log.Info("closed expired listings", zap.Int("count", len(ids)))
	return len(ids), nil
}

// Events returns the audit trail of a listing (owner/admin)
func (s *JobService) Events(ctx context.Context, actor *models.User, id uint) ([]models.JobEvent, error) {
	if _, err := s.loadOwned(ctx, actor, id); err != nil {
		return nil, err
	}
	var events []models.JobEvent
	err := s.DB.WithContext(ctx).Where("job_id = ?", id).Order("id").Find(&events).Error
	return events, err
}
