package services

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/justsurfingit/KarirConnect/internal/cache"
	"github.com/justsurfingit/KarirConnect/internal/models"
	"github.com/justsurfingit/KarirConnect/internal/notify"
	"github.com/justsurfingit/KarirConnect/internal/storage"
	"github.com/justsurfingit/KarirConnect/internal/testutil"
)

type fakeEmail struct {
	mu   sync.Mutex
	sent []notify.Email
	err  error
}

func (f *fakeEmail) SendEmail(_ context.Context, msg notify.Email) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, msg)
	return "mg-1", nil
}

type fakeWhatsApp struct {
	mu    sync.Mutex
	sent  []string
	phone []string
	err   error
}

func (f *fakeWhatsApp) SendWhatsApp(_ context.Context, phone, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.phone = append(f.phone, phone)
	f.sent = append(f.sent, text)
	return "wa-1", nil
}

// countingCache records traffic on thread entries on top of the in-memory store
type countingCache struct {
	cache.Store
	gets, sets, deletes int
	failGets            bool
	// beforeSet runs once, ahead of the next thread entry write
	beforeSet func()
}

func isThreadEntry(key string) bool { return strings.HasSuffix(key, ":messages") }

func (c *countingCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if c.failGets {
		return nil, false, context.DeadlineExceeded
	}
	if isThreadEntry(key) {
		c.gets++
	}
	return c.Store.Get(ctx, key)
}

func (c *countingCache) Set(ctx context.Context, key string, v []byte, ttl time.Duration) error {
	if isThreadEntry(key) {
		c.sets++
		if fn := c.beforeSet; fn != nil {
			c.beforeSet = nil
			fn()
		}
	}
	return c.Store.Set(ctx, key, v, ttl)
}

func (c *countingCache) Delete(ctx context.Context, key string) error {
	if isThreadEntry(key) {
		c.deletes++
	}
	return c.Store.Delete(ctx, key)
}

type env struct {
	db            *gorm.DB
	email         *fakeEmail
	wa            *fakeWhatsApp
	cache         *countingCache
	store         *storage.Local
	notifications *NotificationService
	jobs          *JobService
	companies     *CompanyService
	applications  *ApplicationService
	invitations   *InvitationService
	dashboards    *DashboardService

	admin, employer, otherEmployer, candidate, otherCandidate *models.User
	company                                                   *models.Company
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.NewDB(t)
	log := zap.NewNop()

	store, err := storage.NewLocal(t.TempDir(), "http://files.test/uploads")
	if err != nil {
		t.Fatalf("local storage: %v", err)
	}

	e := &env{
		db:    db,
		email: &fakeEmail{},
		wa:    &fakeWhatsApp{},
		cache: &countingCache{Store: cache.NewMemory()},
		store: store,
	}
	e.notifications = NewNotificationService(db, e.email, e.wa, log)
	e.jobs = NewJobService(db, log)
	e.companies = NewCompanyService(db, store, log)
	e.applications = NewApplicationService(db, store, e.notifications, log)
	e.invitations = NewInvitationService(db, e.cache, time.Minute, e.notifications, log)
	e.dashboards = NewDashboardService(db, e.invitations)

	e.admin = testutil.CreateUser(t, db, "admin@karirconnect.id", models.RoleAdmin)
	e.employer = testutil.CreateUser(t, db, "hr@acme.id", models.RoleEmployer)
	e.otherEmployer = testutil.CreateUser(t, db, "hr@globex.id", models.RoleEmployer)
	e.candidate = testutil.CreateUser(t, db, "budi@mail.id", models.RoleCandidate)
	e.otherCandidate = testutil.CreateUser(t, db, "sari@mail.id", models.RoleCandidate)
	e.company = testutil.CreateCompany(t, db, e.employer, "Acme Indonesia")
	return e
}

func (e *env) openListing(t *testing.T, title string) *models.JobListing {
	t.Helper()
	deadline := time.Now().UTC().Add(72 * time.Hour)
	return testutil.CreateListing(t, e.db, e.company, title, models.ListingOpen, &deadline)
}

func (e *env) notificationsFor(t *testing.T, u *models.User) []models.Notification {
	t.Helper()
	var out []models.Notification
	if err := e.db.Where("user_id = ?", u.ID).Order("created_at").Find(&out).Error; err != nil {
		t.Fatalf("load notifications: %v", err)
	}
	return out
}

func ptr[T any](v T) *T { return &v }

func itoa(id uint) string { return strconv.FormatUint(uint64(id), 10) }
