package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justsurfingit/KarirConnect/internal/apperror"
	"github.com/justsurfingit/KarirConnect/internal/dtos"
	"github.com/justsurfingit/KarirConnect/internal/models"
	"github.com/justsurfingit/KarirConnect/internal/testutil"
)

func TestCreateJob(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	req := &dtos.JobListingRequest{
		CompanyID:   e.company.ID,
		Title:       "  Backend Engineer ",
		Description: "Build APIs",
		SalaryMin:   10_000_000,
		SalaryMax:   20_000_000,
		Currency:    "idr",
	}
	job, err := e.jobs.CreateJob(ctx, e.employer, req)
	require.NoError(t, err)
	assert.Equal(t, "Backend Engineer", job.Title)
	assert.Equal(t, models.ListingDraft, job.Status)
	assert.Equal(t, "IDR", job.Currency)
	assert.Equal(t, "full_time", job.EmploymentType)
	assert.Nil(t, job.PublishedAt)

	events, err := e.jobs.Events(ctx, e.employer, job.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventCreated, events[0].EventType)
}

func TestCreateJobValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	past := time.Now().Add(-time.Hour)

	tests := []struct {
		name  string
		actor *models.User
		req   dtos.JobListingRequest
		code  string
	}{
		{"other employer", e.otherEmployer, dtos.JobListingRequest{CompanyID: e.company.ID, Title: "Dev"}, "forbidden"},
		{"unknown company", e.employer, dtos.JobListingRequest{CompanyID: 999, Title: "Dev"}, "not_found"},
		{"salary range", e.employer, dtos.JobListingRequest{CompanyID: e.company.ID, Title: "Dev", SalaryMin: 10, SalaryMax: 5}, "validation_error"},
		{"past deadline", e.employer, dtos.JobListingRequest{CompanyID: e.company.ID, Title: "Dev", Deadline: &past}, "validation_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.jobs.CreateJob(ctx, tt.actor, &tt.req)
			var appErr *apperror.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.code, appErr.Code)
		})
	}
}

func TestPublishedJobIsVisible(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	draft, err := e.jobs.CreateJob(ctx, e.employer, &dtos.JobListingRequest{CompanyID: e.company.ID, Title: "Draft role", Description: "x"})
	require.NoError(t, err)
	published, err := e.jobs.CreateJob(ctx, e.employer, &dtos.JobListingRequest{CompanyID: e.company.ID, Title: "Open role", Description: "x", Publish: true})
	require.NoError(t, err)
	require.NotNil(t, published.PublishedAt)

	_, err = e.jobs.Get(ctx, nil, draft.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	_, err = e.jobs.Get(ctx, e.candidate, draft.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	got, err := e.jobs.Get(ctx, e.employer, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, "Draft role", got.Title)

	got, err = e.jobs.Get(ctx, nil, published.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Company)
	assert.Equal(t, "Acme Indonesia", got.Company.Name)
}

func TestListJobs(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.openListing(t, "Go Engineer")
	e.openListing(t, "Product Designer")
	testutil.CreateListing(t, e.db, e.company, "Go Intern", models.ListingDraft, nil)
	expired := time.Now().UTC().Add(-time.Hour)
	testutil.CreateListing(t, e.db, e.company, "Go Lead", models.ListingOpen, &expired)

	page, err := e.jobs.List(ctx, nil, JobFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)

	page, err = e.jobs.List(ctx, nil, JobFilter{Q: "go"})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Go Engineer", page.Data[0].Title)

	page, err = e.jobs.List(ctx, nil, JobFilter{Page: Page{Page: 1, PerPage: 1}})
	require.NoError(t, err)
	assert.Len(t, page.Data, 1)
	assert.EqualValues(t, 2, page.Total)

	_, err = e.jobs.List(ctx, e.candidate, JobFilter{Status: "draft"})
	assert.ErrorIs(t, err, apperror.ErrBadRequest)

	_, err = e.jobs.List(ctx, e.otherEmployer, JobFilter{Status: "draft", CompanyID: e.company.ID})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	page, err = e.jobs.List(ctx, e.employer, JobFilter{Status: "all", CompanyID: e.company.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 4, page.Total)
}

func TestUpdateJob(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	job := e.openListing(t, "Go Engineer")

	got, err := e.jobs.Update(ctx, e.employer, job.ID, &dtos.JobListingUpdateRequest{
		Title:     ptr("Senior Go Engineer"),
		SalaryMax: ptr(int64(30_000_000)),
	})
	require.NoError(t, err)
	assert.Equal(t, "Senior Go Engineer", got.Title)
	assert.EqualValues(t, 30_000_000, got.SalaryMax)

	_, err = e.jobs.Update(ctx, e.employer, job.ID, &dtos.JobListingUpdateRequest{
		SalaryMin: ptr(int64(50_000_000)),
	})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = e.jobs.Update(ctx, e.otherEmployer, job.ID, &dtos.JobListingUpdateRequest{Title: ptr("Hijack")})
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestChangeStatus(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	job := testutil.CreateListing(t, e.db, e.company, "Go Engineer", models.ListingDraft, nil)

	// drafts are deleted, not closed
	_, err := e.jobs.ChangeStatus(ctx, e.employer, job.ID, models.ListingClosed)
	assert.ErrorIs(t, err, apperror.ErrInvalidState)

	got, err := e.jobs.ChangeStatus(ctx, e.employer, job.ID, models.ListingOpen)
	require.NoError(t, err)
	assert.Equal(t, models.ListingOpen, got.Status)
	require.NotNil(t, got.PublishedAt)
	firstPublished := *got.PublishedAt

	got, err = e.jobs.ChangeStatus(ctx, e.employer, job.ID, models.ListingClosed)
	require.NoError(t, err)
	assert.Equal(t, models.ListingClosed, got.Status)

	got, err = e.jobs.ChangeStatus(ctx, e.employer, job.ID, models.ListingOpen)
	require.NoError(t, err)
	assert.True(t, firstPublished.Equal(*got.PublishedAt))

	_, err = e.jobs.ChangeStatus(ctx, e.employer, job.ID, models.ListingDraft)
	assert.ErrorIs(t, err, apperror.ErrInvalidState)

	events, err := e.jobs.Events(ctx, e.employer, job.ID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "Status changed from draft to open", events[0].Details)
	assert.Equal(t, "Status changed from open to closed", events[1].Details)
}

func TestChangeStatusRefusesExpiredReopen(t *testing.T) {
	e := newEnv(t)
	past := time.Now().UTC().Add(-time.Hour)
	job := testutil.CreateListing(t, e.db, e.company, "Go Engineer", models.ListingClosed, &past)

	_, err := e.jobs.ChangeStatus(context.Background(), e.employer, job.ID, models.ListingOpen)
	assert.ErrorIs(t, err, apperror.ErrInvalidState)
}

func TestCloseExpired(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Hour)
	expired := testutil.CreateListing(t, e.db, e.company, "Old", models.ListingOpen, &past)
	fresh := e.openListing(t, "Fresh")
	testutil.CreateListing(t, e.db, e.company, "Draft", models.ListingDraft, &past)

	n, err := e.jobs.CloseExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var got models.JobListing
	require.NoError(t, e.db.First(&got, expired.ID).Error)
	assert.Equal(t, models.ListingClosed, got.Status)
	require.NoError(t, e.db.First(&got, fresh.ID).Error)
	assert.Equal(t, models.ListingOpen, got.Status)

	var events []models.JobEvent
	require.NoError(t, e.db.Where("job_id = ? AND event_type = ?", expired.ID, EventExpired).Find(&events).Error)
	assert.Len(t, events, 1)

	n, err = e.jobs.CloseExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDeleteJob(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	job := e.openListing(t, "Go Engineer")

	assert.ErrorIs(t, e.jobs.Delete(ctx, e.otherEmployer, job.ID), apperror.ErrForbidden)
	require.NoError(t, e.jobs.Delete(ctx, e.admin, job.ID))

	_, err := e.jobs.Get(ctx, nil, job.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
