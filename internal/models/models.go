package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleEmployer  Role = "employer"
	RoleCandidate Role = "candidate"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleEmployer, RoleCandidate:
		return true
	}
	return false
}

type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Email         string `gorm:"uniqueIndex;not null" json:"email"`
	Name          string `json:"name"`
	Role          Role   `gorm:"not null;default:'candidate'" json:"role"`
	Phone         string `json:"phone,omitempty"`
	WhatsAppOptIn bool   `gorm:"column:whatsapp_opt_in;default:false" json:"whatsapp_opt_in"`
	EmailOptIn    bool   `json:"email_opt_in"`
}

type Company struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	OwnerID uint `gorm:"index;not null" json:"owner_id"`

	Name        string `gorm:"not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Website     string `json:"website,omitempty"`
	Location    string `json:"location,omitempty"`
	Industry    string `json:"industry,omitempty"`
	LogoKey     string `json:"logo_key,omitempty"`
	Verified    bool   `gorm:"default:false" json:"verified"`

	// 'omitempty' prevents infinite loops when fetching a Job -> Company -> Jobs -> ...
	Jobs []JobListing `json:"jobs,omitempty"`
}

type ListingStatus string

const (
	ListingDraft  ListingStatus = "draft"
	ListingOpen   ListingStatus = "open"
	ListingClosed ListingStatus = "closed"
)

type JobListing struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	CompanyID uint `gorm:"index;not null" json:"company_id"`
	// Association: GORM needs Preload() to fill this
	Company *Company `json:"company,omitempty"`

	Title          string        `gorm:"not null" json:"title"`
	Description    string        `gorm:"type:text" json:"description"`
	Requirements   string        `gorm:"type:text" json:"requirements"`
	Location       string        `json:"location"`
	EmploymentType string        `gorm:"default:'full_time'" json:"employment_type"`
	WorkMode       string        `gorm:"default:'onsite'" json:"work_mode"`
	SalaryMin      int64         `json:"salary_min"`
	SalaryMax      int64         `json:"salary_max"`
	Currency       string        `gorm:"default:'IDR'" json:"currency"`
	Deadline       *time.Time    `json:"deadline,omitempty"`
	Status         ListingStatus `gorm:"index;default:'draft'" json:"status"`
	PublishedAt    *time.Time    `json:"published_at,omitempty"`
}

// Expired reports whether the deadline has passed at now
func (j *JobListing) Expired(now time.Time) bool {
	return j.Deadline != nil && j.Deadline.Before(now)
}

// JobEvent is the audit trail for listings and the applications made to them
type JobEvent struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	JobID         uint      `gorm:"index" json:"job_id"`
	ApplicationID *uint     `gorm:"index" json:"application_id,omitempty"`
	ActorID       uint      `json:"actor_id"`
	EventType     string    `json:"event_type"`
	Details       string    `gorm:"type:text" json:"details"`
}

type ApplicationStatus string

const (
	ApplicationPending     ApplicationStatus = "pending"
	ApplicationReviewed    ApplicationStatus = "reviewed"
	ApplicationShortlisted ApplicationStatus = "shortlisted"
	ApplicationInterview   ApplicationStatus = "interview"
	ApplicationAccepted    ApplicationStatus = "accepted"
	ApplicationRejected    ApplicationStatus = "rejected"
	ApplicationWithdrawn   ApplicationStatus = "withdrawn"
)

// Terminal reports whether no further transitions are allowed
func (s ApplicationStatus) Terminal() bool {
	return s == ApplicationAccepted || s == ApplicationRejected || s == ApplicationWithdrawn
}

type Application struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	JobID       uint        `gorm:"uniqueIndex:idx_application_job_candidate;not null" json:"job_id"`
	Job         *JobListing `json:"job,omitempty"`
	CandidateID uint        `gorm:"uniqueIndex:idx_application_job_candidate;not null" json:"candidate_id"`
	Candidate   *User       `json:"candidate,omitempty"`

	CoverLetter string            `gorm:"type:text" json:"cover_letter"`
	ResumeKey   string            `json:"-"`
	HasResume   bool              `gorm:"-" json:"has_resume"`
	Status      ApplicationStatus `gorm:"index;default:'pending'" json:"status"`
}

func (a *Application) AfterFind(tx *gorm.DB) error {
	a.HasResume = a.ResumeKey != ""
	return nil
}

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
)

// Invitation is an employer asking a candidate to apply to a listing
type Invitation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	JobID       uint        `gorm:"uniqueIndex:idx_invitation_job_candidate;not null" json:"job_id"`
	Job         *JobListing `json:"job,omitempty"`
	CompanyID   uint        `gorm:"index;not null" json:"company_id"`
	Company     *Company    `json:"company,omitempty"`
	CandidateID uint        `gorm:"uniqueIndex:idx_invitation_job_candidate;not null" json:"candidate_id"`
	Candidate   *User       `json:"candidate,omitempty"`
	SenderID    uint        `gorm:"not null" json:"sender_id"`

	Status      InvitationStatus `gorm:"index;default:'pending'" json:"status"`
	RespondedAt *time.Time       `json:"responded_at,omitempty"`
}

type InvitationMessage struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time  `json:"created_at"`
	InvitationID uint       `gorm:"index;not null" json:"invitation_id"`
	SenderID     uint       `gorm:"index;not null" json:"sender_id"`
	Body         string     `gorm:"type:text;not null" json:"body"`
	ReadAt       *time.Time `json:"read_at,omitempty"`
}

type Notification struct {
	ID        string            `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time         `gorm:"index" json:"created_at"`
	UserID    uint              `gorm:"index;not null" json:"user_id"`
	Type      string            `gorm:"not null" json:"type"`
	Title     string            `gorm:"not null" json:"title"`
	Message   string            `gorm:"type:text" json:"message"`
	Data      datatypes.JSONMap `json:"data,omitempty"`
	ReadAt    *time.Time        `json:"read_at,omitempty"`
}

type DeliveryStatus string

const (
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
	DeliverySkipped DeliveryStatus = "skipped"
)

// NotificationDelivery records one side-channel attempt for a notification
type NotificationDelivery struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time      `json:"created_at"`
	NotificationID string         `gorm:"index;size:36;not null" json:"notification_id"`
	Channel        string         `gorm:"not null" json:"channel"`
	Status         DeliveryStatus `gorm:"not null" json:"status"`
	ProviderID     string         `json:"provider_id,omitempty"`
	Error          string         `gorm:"type:text" json:"error,omitempty"`
}

// All lists every model for migrations
func All() []any {
	return []any{
		&User{},
		&Company{},
		&JobListing{},
		&JobEvent{},
		&Application{},
		&Invitation{},
		&InvitationMessage{},
		&Notification{},
		&NotificationDelivery{},
	}
}
