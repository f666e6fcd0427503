package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"go.uber.org/zap"

	"github.com/justsurfingit/KarirConnect/internal/apperror"
	"github.com/justsurfingit/KarirConnect/internal/config"
	"github.com/justsurfingit/KarirConnect/internal/dtos"
	"github.com/justsurfingit/KarirConnect/internal/models"
)

const maxExtractionInput = 20000

const jobExtractionPrompt = `
You are an expert Job Data Extraction Agent. Your task is to analyze the provided raw HTML/Text from a job posting and extract structured data.

### INSTRUCTIONS:
1. **Analyze** the text to identify the core job details.
2. **Ignore** navigation menus, footers, "similar jobs" lists, and site advertisements.
3. **Extract** the following fields strictly.
4. **Format** the output as valid JSON only. Do not wrap the output in markdown code blocks.

### OUTPUT SCHEMA:
{
    "company_name": "Name of the hiring company",
    "title": "Job title (e.g., Senior Backend Engineer)",
    "location": "Job location or 'Remote'",
    "employment_type": "one of full_time, part_time, contract, internship, freelance",
    "work_mode": "one of onsite, remote, hybrid",
    "description": "A clean summary of the responsibilities. Remove HTML tags.",
    "requirements": "The requirements as plain text, one per line",
    "salary_min": 0,
    "salary_max": 0,
    "currency": "ISO 4217 code, e.g. IDR"
}

### CONSTRAINT:
If a piece of information is missing, set the value to null. Do not hallucinate or guess.

### RAW CONTENT:
%s
`

// ExtractedJob is the structured posting returned by the model
type ExtractedJob struct {
	CompanyName    string `json:"company_name"`
	Title          string `json:"title"`
	Location       string `json:"location"`
	EmploymentType string `json:"employment_type"`
	WorkMode       string `json:"work_mode"`
	Description    string `json:"description"`
	Requirements   string `json:"requirements"`
	SalaryMin      int64  `json:"salary_min"`
	SalaryMax      int64  `json:"salary_max"`
	Currency       string `json:"currency"`
}

// JobDraft is an unsaved listing request prefilled from a posting
type JobDraft struct {
	Listing   dtos.JobListingRequest `json:"listing"`
	Extracted ExtractedJob           `json:"extracted"`
	// CompanyMatched is false when none of the caller's companies fit the posting
	CompanyMatched bool `json:"company_matched"`
}

type LLMService struct {
	Client  llms.Model
	Matcher *MatcherService
	Log     *zap.Logger
}

// NewLLMService returns nil when no Gemini key is configured
func NewLLMService(ctx context.Context, cfg config.LLMConfig, matcher *MatcherService, log *zap.Logger) (*LLMService, error) {
	if cfg.GeminiAPIKey == "" {
		log.Warn("GEMINI_API_KEY not set; job extraction disabled")
		return nil, nil
	}
	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(cfg.GeminiAPIKey),
		googleai.WithDefaultModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return NewLLMServiceWithModel(llm, matcher, log), nil
}

func NewLLMServiceWithModel(model llms.Model, matcher *MatcherService, log *zap.Logger) *LLMService {
	return &LLMService{Client: model, Matcher: matcher, Log: log.Named("llm")}
}

// ExtractJobDetails takes raw HTML and returns a structured object
func (s *LLMService) ExtractJobDetails(ctx context.Context, rawHTML string) (*ExtractedJob, error) {
	if s == nil || s.Client == nil {
		return nil, apperror.ErrFeatureDisabled.WithMessage("job extraction is not configured")
	}
	rawHTML = truncateUTF8(rawHTML, maxExtractionInput)

	resp, err := llms.GenerateFromSinglePrompt(ctx, s.Client, fmt.Sprintf(jobExtractionPrompt, rawHTML))
	if err != nil {
		s.Log.Error("extraction failed", zap.Error(err))
		return nil, apperror.ErrInternal.WithMessage("AI extraction failed").WithInternal(err)
	}

	var out ExtractedJob
	if err := json.Unmarshal([]byte(stripCodeFence(resp)), &out); err != nil {
		s.Log.Warn("model returned invalid json", zap.String("response", preview(resp, 200)))
		return nil, apperror.ErrInternal.WithMessage("AI extraction returned malformed data").WithInternal(err)
	}
	return &out, nil
}

// truncateUTF8 cuts s to at most n bytes without splitting a character
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// models sometimes ignore the no-markdown instruction
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// DraftListing extracts a posting and prefills a listing for one of the actor's companies
func (s *LLMService) DraftListing(ctx context.Context, actor *models.User, req *dtos.JobExtractionRequest) (*JobDraft, error) {
	if actor.Role != models.RoleEmployer && !isAdmin(actor) {
		return nil, apperror.ErrForbidden.WithMessage("only employers can import postings")
	}
	ex, err := s.ExtractJobDetails(ctx, req.RawHTML)
	if err != nil {
		return nil, err
	}

	draft := &JobDraft{
		Extracted: *ex,
		Listing: dtos.JobListingRequest{
			Title:          ex.Title,
			Description:    ex.Description,
			Requirements:   ex.Requirements,
			Location:       ex.Location,
			EmploymentType: oneOf(ex.EmploymentType, "full_time", "full_time", "part_time", "contract", "internship", "freelance"),
			WorkMode:       oneOf(ex.WorkMode, "onsite", "onsite", "remote", "hybrid"),
			SalaryMin:      ex.SalaryMin,
			SalaryMax:      ex.SalaryMax,
			Currency:       strings.ToUpper(ex.Currency),
		},
	}

	if s.Matcher != nil {
		company, err := s.Matcher.FindCompany(ctx, actor, ex.CompanyName, req.URL)
		if err != nil && !errors.Is(err, ErrNoCompanyMatch) {
			return nil, err
		}
		if company != nil {
			draft.Listing.CompanyID = company.ID
			draft.CompanyMatched = true
		}
	}
	return draft, nil
}

func oneOf(v, def string, allowed ...string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	return def
}
