package dtos

import "time"

type JobExtractionRequest struct {
	RawHTML string `json:"raw_html" binding:"required"`
	URL     string `json:"url"`
}

type CompanyRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=200"`
	Description string `json:"description"`
	Website     string `json:"website" binding:"omitempty,url"`
	Location    string `json:"location"`
	Industry    string `json:"industry"`
}

type CompanyUpdateRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=2,max=200"`
	Description *string `json:"description"`
	Website     *string `json:"website" binding:"omitempty,url"`
	Location    *string `json:"location"`
	Industry    *string `json:"industry"`
}

type VerifyCompanyRequest struct {
	Verified bool `json:"verified"`
}

type JobListingRequest struct {
	CompanyID      uint       `json:"company_id" binding:"required"`
	Title          string     `json:"title" binding:"required,min=3,max=200"`
	Description    string     `json:"description" binding:"required"`
	Requirements   string     `json:"requirements"`
	Location       string     `json:"location"`
	EmploymentType string     `json:"employment_type" binding:"omitempty,oneof=full_time part_time contract internship freelance"`
	WorkMode       string     `json:"work_mode" binding:"omitempty,oneof=onsite remote hybrid"`
	SalaryMin      int64      `json:"salary_min" binding:"gte=0"`
	SalaryMax      int64      `json:"salary_max" binding:"gte=0"`
	Currency       string     `json:"currency" binding:"omitempty,len=3"`
	Deadline       *time.Time `json:"deadline"`
	// Publish opens the listing immediately instead of saving a draft
	Publish bool `json:"publish"`
}

type JobListingUpdateRequest struct {
	Title          *string    `json:"title" binding:"omitempty,min=3,max=200"`
	Description    *string    `json:"description"`
	Requirements   *string    `json:"requirements"`
	Location       *string    `json:"location"`
	EmploymentType *string    `json:"employment_type" binding:"omitempty,oneof=full_time part_time contract internship freelance"`
	WorkMode       *string    `json:"work_mode" binding:"omitempty,oneof=onsite remote hybrid"`
	SalaryMin      *int64     `json:"salary_min" binding:"omitempty,gte=0"`
	SalaryMax      *int64     `json:"salary_max" binding:"omitempty,gte=0"`
	Currency       *string    `json:"currency" binding:"omitempty,len=3"`
	Deadline       *time.Time `json:"deadline"`
}

type StatusRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note" binding:"max=1000"`
}

type InvitationRequest struct {
	JobID       uint   `json:"job_id" binding:"required"`
	CandidateID uint   `json:"candidate_id" binding:"required"`
	Message     string `json:"message" binding:"max=5000"`
}

type RespondInvitationRequest struct {
	Accept *bool `json:"accept" binding:"required"`
}

type MessageRequest struct {
	Body string `json:"body" binding:"required,max=5000"`
}

type ProfileUpdateRequest struct {
	Name          *string `json:"name" binding:"omitempty,max=200"`
	Phone         *string `json:"phone" binding:"omitempty,max=32"`
	WhatsAppOptIn *bool   `json:"whatsapp_opt_in"`
	EmailOptIn    *bool   `json:"email_opt_in"`
}

// ApplyRequest is sent as JSON or as a multipart form with an optional "resume" file
type ApplyRequest struct {
	CoverLetter string `json:"cover_letter" form:"cover_letter" binding:"max=10000"`
}
