package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justsurfingit/KarirConnect/internal/apperror"
	"github.com/justsurfingit/KarirConnect/internal/models"
	"github.com/justsurfingit/KarirConnect/internal/testutil"
)

func seedDashboard(t *testing.T, e *env) {
	t.Helper()
	ctx := context.Background()
	job := e.openListing(t, "Go Engineer")
	testutil.CreateListing(t, e.db, e.company, "Draft", models.ListingDraft, nil)

	_, err := e.applications.Apply(ctx, e.candidate, job.ID, "", nil)
	require.NoError(t, err)
	app, err := e.applications.Apply(ctx, e.otherCandidate, job.ID, "", nil)
	require.NoError(t, err)
	_, err = e.applications.UpdateStatus(ctx, e.employer, app.ID, models.ApplicationRejected, "")
	require.NoError(t, err)

	e.invite(t, "hello")
}

func TestAdminDashboard(t *testing.T) {
	e := newEnv(t)
	seedDashboard(t, e)
	ctx := context.Background()

	_, err := e.dashboards.Admin(ctx, e.employer)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	stats, err := e.dashboards.Admin(ctx, e.admin)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"admin": 1, "employer": 2, "candidate": 2}, stats.UsersByRole)
	assert.EqualValues(t, 0, stats.CompaniesVerified)
	assert.EqualValues(t, 1, stats.CompaniesUnverified)
	assert.EqualValues(t, 2, stats.ListingsByStatus["open"])
	assert.EqualValues(t, 1, stats.ListingsByStatus["draft"])
	assert.EqualValues(t, 1, stats.ApplicationsByStatus["pending"])
	assert.EqualValues(t, 1, stats.ApplicationsByStatus["rejected"])
	assert.EqualValues(t, 1, stats.InvitationsByStatus["pending"])
}

func TestEmployerDashboard(t *testing.T) {
	e := newEnv(t)
	seedDashboard(t, e)
	ctx := context.Background()

	stats, err := e.dashboards.Employer(ctx, e.employer)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Companies)
	assert.EqualValues(t, 2, stats.ListingsByStatus["open"])
	assert.EqualValues(t, 1, stats.ApplicationsByStatus["pending"])
	assert.EqualValues(t, 1, stats.PendingInvitations)
	assert.Zero(t, stats.UnreadMessages)

	other, err := e.dashboards.Employer(ctx, e.otherEmployer)
	require.NoError(t, err)
	assert.Zero(t, other.Companies)
	assert.Empty(t, other.ListingsByStatus)
}

func TestCandidateDashboard(t *testing.T) {
	e := newEnv(t)
	seedDashboard(t, e)

	got, err := e.dashboards.ForUser(context.Background(), e.candidate)
	require.NoError(t, err)
	stats, ok := got.(*CandidateStats)
	require.True(t, ok)
	assert.Equal(t, map[string]int64{"pending": 1}, stats.ApplicationsByStatus)
	assert.EqualValues(t, 1, stats.PendingInvitations)
	assert.EqualValues(t, 1, stats.UnreadMessages)
	assert.EqualValues(t, 1, stats.UnreadNotifications)
}
