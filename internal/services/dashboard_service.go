package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/justsurfingit/KarirConnect/internal/apperror"
	"github.com/justsurfingit/KarirConnect/internal/models"
)

type DashboardService struct {
	DB          *gorm.DB
	Invitations *InvitationService
}

func NewDashboardService(db *gorm.DB, invitations *InvitationService) *DashboardService {
	return &DashboardService{DB: db, Invitations: invitations}
}

type AdminStats struct {
	UsersByRole          map[string]int64 `json:"users_by_role"`
	CompaniesVerified    int64            `json:"companies_verified"`
	CompaniesUnverified  int64            `json:"companies_unverified"`
	ListingsByStatus     map[string]int64 `json:"listings_by_status"`
	ApplicationsByStatus map[string]int64 `json:"applications_by_status"`
	InvitationsByStatus  map[string]int64 `json:"invitations_by_status"`
}

type EmployerStats struct {
	Companies            int64            `json:"companies"`
	ListingsByStatus     map[string]int64 `json:"listings_by_status"`
	ApplicationsByStatus map[string]int64 `json:"applications_by_status"`
	PendingInvitations   int64            `json:"pending_invitations"`
	UnreadMessages       int64            `json:"unread_messages"`
}

type CandidateStats struct {
	ApplicationsByStatus map[string]int64 `json:"applications_by_status"`
	PendingInvitations   int64            `json:"pending_invitations"`
	UnreadMessages       int64            `json:"unread_messages"`
	UnreadNotifications  int64            `json:"unread_notifications"`
}

func (s *DashboardService) Admin(ctx context.Context, actor *models.User) (*AdminStats, error) {
	if !isAdmin(actor) {
		return nil, apperror.ErrForbidden
	}

	var roles []struct {
		Role  string
		Count int64
	}
	if err := s.DB.WithContext(ctx).Model(&models.User{}).
		Select("role, COUNT(*) AS count").Group("role").Scan(&roles).Error; err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	stats := &AdminStats{UsersByRole: make(map[string]int64, len(roles))}
	for _, r := range roles {
		stats.UsersByRole[r.Role] = r.Count
	}

	db := s.DB.WithContext(ctx)
	if err := db.Model(&models.Company{}).Where("verified = ?", true).Count(&stats.CompaniesVerified).Error; err != nil {
		return nil, fmt.Errorf("count companies: %w", err)
	}
	if err := db.Model(&models.Company{}).Where("verified = ?", false).Count(&stats.CompaniesUnverified).Error; err != nil {
		return nil, fmt.Errorf("count companies: %w", err)
	}

	var err error
	if stats.ListingsByStatus, err = countByStatus(ctx, s.DB.Model(&models.JobListing{})); err != nil {
		return nil, fmt.Errorf("count listings: %w", err)
	}
	if stats.ApplicationsByStatus, err = countByStatus(ctx, s.DB.Model(&models.Application{})); err != nil {
		return nil, fmt.Errorf("count applications: %w", err)
	}
	if stats.InvitationsByStatus, err = countByStatus(ctx, s.DB.Model(&models.Invitation{})); err != nil {
		return nil, fmt.Errorf("count invitations: %w", err)
	}
	return stats, nil
}

func (s *DashboardService) Employer(ctx context.Context, actor *models.User) (*EmployerStats, error) {
	owned := s.DB.Model(&models.Company{}).Select("id").Where("owner_id = ?", actor.ID)

	stats := &EmployerStats{}
	if err := s.DB.WithContext(ctx).Model(&models.Company{}).Where("owner_id = ?", actor.ID).Count(&stats.Companies).Error; err != nil {
		return nil, fmt.Errorf("count companies: %w", err)
	}

	var err error
	if stats.ListingsByStatus, err = countByStatus(ctx, s.DB.Model(&models.JobListing{}).Where("company_id IN (?)", owned)); err != nil {
		return nil, fmt.Errorf("count listings: %w", err)
	}

	jobs := s.DB.Model(&models.JobListing{}).Select("id").Where("company_id IN (?)", owned)
	if stats.ApplicationsByStatus, err = countByStatus(ctx, s.DB.Model(&models.Application{}).Where("job_id IN (?)", jobs)); err != nil {
		return nil, fmt.Errorf("count applications: %w", err)
	}

	if err := s.DB.WithContext(ctx).Model(&models.Invitation{}).
		Where("company_id IN (?) AND status = ?", owned, models.InvitationPending).
		Count(&stats.PendingInvitations).Error; err != nil {
		return nil, fmt.Errorf("count invitations: %w", err)
	}
	if stats.UnreadMessages, err = s.Invitations.UnreadCount(ctx, actor); err != nil {
		return nil, fmt.Errorf("count unread messages: %w", err)
	}
	return stats, nil
}

func (s *DashboardService) Candidate(ctx context.Context, actor *models.User) (*CandidateStats, error) {
	stats := &CandidateStats{}

	var err error
	if stats.ApplicationsByStatus, err = countByStatus(ctx, s.DB.Model(&models.Application{}).Where("candidate_id = ?", actor.ID)); err != nil {
		return nil, fmt.Errorf("count applications: %w", err)
	}

	db := s.DB.WithContext(ctx)
	if err := db.Model(&models.Invitation{}).
		Where("candidate_id = ? AND status = ?", actor.ID, models.InvitationPending).
		Count(&stats.PendingInvitations).Error; err != nil {
		return nil, fmt.Errorf("count invitations: %w", err)
	}
	if err := db.Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", actor.ID).
		Count(&stats.UnreadNotifications).Error; err != nil {
		return nil, fmt.Errorf("count notifications: %w", err)
	}
	if stats.UnreadMessages, err = s.Invitations.UnreadCount(ctx, actor); err != nil {
		return nil, fmt.Errorf("count unread messages: %w", err)
	}
	return stats, nil
}

// ForUser picks the dashboard matching the caller's role
func (s *DashboardService) ForUser(ctx context.Context, actor *models.User) (any, error) {
	switch actor.Role {
	case models.RoleAdmin:
		return s.Admin(ctx, actor)
	case models.RoleEmployer:
		return s.Employer(ctx, actor)
	default:
		return s.Candidate(ctx, actor)
	}
}
