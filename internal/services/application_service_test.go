package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/justsurfingit/KarirConnect/internal/apperror"
	"github.com/justsurfingit/KarirConnect/internal/models"
	"github.com/justsurfingit/KarirConnect/internal/testutil"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to models.ApplicationStatus
		want     bool
	}{
		{models.ApplicationPending, models.ApplicationReviewed, true},
		{models.ApplicationPending, models.ApplicationShortlisted, true},
		{models.ApplicationPending, models.ApplicationAccepted, false},
		{models.ApplicationReviewed, models.ApplicationInterview, true},
		{models.ApplicationShortlisted, models.ApplicationReviewed, false},
		{models.ApplicationInterview, models.ApplicationAccepted, true},
		{models.ApplicationAccepted, models.ApplicationRejected, false},
		{models.ApplicationWithdrawn, models.ApplicationPending, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestApply(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	job := e.openListing(t, "Go Engineer")

	app, err := e.applications.Apply(ctx, e.candidate, job.ID, "  Hire me  ", nil)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationPending, app.Status)
	assert.Equal(t, "Hire me", app.CoverLetter)
	assert.False(t, app.HasResume)

	// company owner hears about it in-app and by email
	notes := e.notificationsFor(t, e.employer)
	require.Len(t, notes, 1)
	assert.Equal(t, "application.submitted", notes[0].Type)
	require.Len(t, e.email.sent, 1)
	assert.Equal(t, "hr@acme.id", e.email.sent[0].To)

	_, err = e.applications.Apply(ctx, e.candidate, job.ID, "again", nil)
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestApplyRejectsClosedOrExpiredListings(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	closed := testutil.CreateListing(t, e.db, e.company, "Closed", models.ListingClosed, nil)
	past := time.Now().UTC().Add(-time.Minute)
	expired := testutil.CreateListing(t, e.db, e.company, "Expired", models.ListingOpen, &past)

	_, err := e.applications.Apply(ctx, e.candidate, closed.ID, "", nil)
	assert.ErrorIs(t, err, apperror.ErrInvalidState)
	_, err = e.applications.Apply(ctx, e.candidate, expired.ID, "", nil)
	assert.ErrorIs(t, err, apperror.ErrInvalidState)
	_, err = e.applications.Apply(ctx, e.candidate, 4040, "", nil)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	_, err = e.applications.Apply(ctx, e.employer, closed.ID, "", nil)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestApplyWithResume(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	job := e.openListing(t, "Go Engineer")

	_, err := e.applications.Apply(ctx, e.candidate, job.ID, "", &Upload{
		Body: strings.NewReader("MZ"), Size: 2, Filename: "cv.exe", ContentType: "application/x-msdownload",
	})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	app, err := e.applications.Apply(ctx, e.candidate, job.ID, "", &Upload{
		Body: strings.NewReader("%PDF-1.4"), Size: 8, Filename: "CV.PDF", ContentType: "application/pdf",
	})
	require.NoError(t, err)
	assert.True(t, app.HasResume)

	url, err := e.applications.ResumeURL(ctx, e.employer, app.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://files.test/uploads/resumes/"))
	assert.True(t, strings.HasSuffix(url, ".pdf"))

	_, err = e.applications.ResumeURL(ctx, e.otherEmployer, app.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestApplicationAccess(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	job := e.openListing(t, "Go Engineer")
	app, err := e.applications.Apply(ctx, e.candidate, job.ID, "", nil)
	require.NoError(t, err)

	for _, u := range []*models.User{e.candidate, e.employer, e.admin} {
		got, err := e.applications.Get(ctx, u, app.ID)
		require.NoError(t, err, u.Email)
		assert.Equal(t, app.ID, got.ID)
	}
	for _, u := range []*models.User{e.otherCandidate, e.otherEmployer} {
		_, err := e.applications.Get(ctx, u, app.ID)
		assert.ErrorIs(t, err, apperror.ErrNotFound, u.Email)
	}

	page, err := e.applications.ListForJob(ctx, e.employer, job.ID, ApplicationFilter{})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	require.NotNil(t, page.Data[0].Candidate)
	assert.Equal(t, e.candidate.Email, page.Data[0].Candidate.Email)

	_, err = e.applications.ListForJob(ctx, e.otherEmployer, job.ID, ApplicationFilter{})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	mine, err := e.applications.ListMine(ctx, e.candidate, ApplicationFilter{})
	require.NoError(t, err)
	require.Len(t, mine.Data, 1)
	require.NotNil(t, mine.Data[0].Job)
	require.NotNil(t, mine.Data[0].Job.Company)
	assert.Equal(t, "Acme Indonesia", mine.Data[0].Job.Company.Name)

	mine, err = e.applications.ListMine(ctx, e.otherCandidate, ApplicationFilter{})
	require.NoError(t, err)
	assert.Empty(t, mine.Data)
}

func TestUpdateApplicationStatus(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	job := e.openListing(t, "Go Engineer")
	app, err := e.applications.Apply(ctx, e.candidate, job.ID, "", nil)
	require.NoError(t, err)

	e.candidate.Phone = "081234567890"
	e.candidate.WhatsAppOptIn = true
	require.NoError(t, e.db.Save(e.candidate).Error)

	got, err := e.applications.UpdateStatus(ctx, e.employer, app.ID, models.ApplicationShortlisted, "Strong profile")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationShortlisted, got.Status)

	notes := e.notificationsFor(t, e.candidate)
	require.Len(t, notes, 1)
	assert.Equal(t, "application.status_changed", notes[0].Type)
	assert.Contains(t, notes[0].Message, "Strong profile")
	assert.Equal(t, "shortlisted", notes[0].Data["status"])
	require.Len(t, e.wa.sent, 1)
	assert.Equal(t, "081234567890", e.wa.phone[0])

	_, err = e.applications.UpdateStatus(ctx, e.employer, app.ID, models.ApplicationReviewed, "")
	assert.ErrorIs(t, err, apperror.ErrInvalidState)

	_, err = e.applications.UpdateStatus(ctx, e.candidate, app.ID, models.ApplicationInterview, "")
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = e.applications.UpdateStatus(ctx, e.employer, app.ID, models.ApplicationInterview, "")
	require.NoError(t, err)
	_, err = e.applications.UpdateStatus(ctx, e.employer, app.ID, models.ApplicationAccepted, "")
	require.NoError(t, err)
	_, err = e.applications.UpdateStatus(ctx, e.employer, app.ID, models.ApplicationRejected, "")
	assert.ErrorIs(t, err, apperror.ErrInvalidState)

	var events []models.JobEvent
	require.NoError(t, e.db.Where("application_id = ?", app.ID).Order("id").Find(&events).Error)
	require.Len(t, events, 4)
	assert.Equal(t, EventApplied, events[0].EventType)
	assert.Equal(t, "Status changed from pending to shortlisted. Note: Strong profile", events[1].Details)
}

func TestWithdraw(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	job := e.openListing(t, "Go Engineer")
	app, err := e.applications.Apply(ctx, e.candidate, job.ID, "", nil)
	require.NoError(t, err)

	_, err = e.applications.Withdraw(ctx, e.employer, app.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	got, err := e.applications.Withdraw(ctx, e.candidate, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationWithdrawn, got.Status)

	_, err = e.applications.Withdraw(ctx, e.candidate, app.ID)
	assert.ErrorIs(t, err, apperror.ErrInvalidState)

	// in-app only: submitted email + nothing for the withdrawal
	assert.Len(t, e.email.sent, 1)
	assert.Len(t, e.notificationsFor(t, e.employer), 2)
}

// interleave runs fn once, inside the first UPDATE on table, after the service has read the row
func interleave(t *testing.T, db *gorm.DB, table string, fn func(tx *gorm.DB)) {
	t.Helper()
	done := false
	err := db.Callback().Update().Before("gorm:update").Register("test:interleave:"+t.Name(), func(tx *gorm.DB) {
		if done || tx.Statement.Table != table {
			return
		}
		done = true
		fn(tx.Session(&gorm.Session{NewDB: true}))
	})
	require.NoError(t, err)
}

func TestStatusChangeLosesToConcurrentWithdraw(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	job := e.openListing(t, "Go Engineer")
	app, err := e.applications.Apply(ctx, e.candidate, job.ID, "", nil)
	require.NoError(t, err)

	interleave(t, e.db, "applications", func(tx *gorm.DB) {
		require.NoError(t, tx.Exec("UPDATE applications SET status = ? WHERE id = ?", models.ApplicationWithdrawn, app.ID).Error)
	})

	_, err = e.applications.UpdateStatus(ctx, e.employer, app.ID, models.ApplicationReviewed, "")
	assert.ErrorIs(t, err, apperror.ErrInvalidState)

	var stored models.Application
	require.NoError(t, e.db.First(&stored, app.ID).Error)
	assert.Equal(t, models.ApplicationWithdrawn, stored.Status)

	var events int64
	require.NoError(t, e.db.Model(&models.JobEvent{}).Where("application_id = ? AND event_type = ?", app.ID, EventApplication).Count(&events).Error)
	assert.Zero(t, events)
	assert.Empty(t, e.notificationsFor(t, e.candidate))
}

func TestWithdrawLosesToConcurrentDecision(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	job := e.openListing(t, "Go Engineer")
	app, err := e.applications.Apply(ctx, e.candidate, job.ID, "", nil)
	require.NoError(t, err)

	interleave(t, e.db, "applications", func(tx *gorm.DB) {
		require.NoError(t, tx.Exec("UPDATE applications SET status = ? WHERE id = ?", models.ApplicationRejected, app.ID).Error)
	})

	_, err = e.applications.Withdraw(ctx, e.candidate, app.ID)
	assert.ErrorIs(t, err, apperror.ErrInvalidState)

	var stored models.Application
	require.NoError(t, e.db.First(&stored, app.ID).Error)
	assert.Equal(t, models.ApplicationRejected, stored.Status)
}
