package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/justsurfingit/KarirConnect/internal/database"
	"github.com/justsurfingit/KarirConnect/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDB returns a migrated in-memory sqlite database private to the test
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         database.NewGormLogger(zap.NewNop(), gormlogger.Silent, 0),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// CreateUser inserts a user with the given role
func CreateUser(t *testing.T, db *gorm.DB, email string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{Email: email, Name: email, Role: role, EmailOptIn: true}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// CreateCompany inserts a company owned by owner
func CreateCompany(t *testing.T, db *gorm.DB, owner *models.User, name string) *models.Company {
	t.Helper()
	c := &models.Company{OwnerID: owner.ID, Name: name}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("create company: %v", err)
	}
	return c
}

// CreateListing inserts a listing with the given status and optional deadline
func CreateListing(t *testing.T, db *gorm.DB, company *models.Company, title string, status models.ListingStatus, deadline *time.Time) *models.JobListing {
	t.Helper()
	j := &models.JobListing{
		CompanyID:      company.ID,
		Title:          title,
		Description:    title + " description",
		Location:       "Jakarta",
		EmploymentType: "full_time",
		WorkMode:       "onsite",
		Currency:       "IDR",
		Status:         status,
		Deadline:       deadline,
	}
	if err := db.Create(j).Error; err != nil {
		t.Fatalf("create listing: %v", err)
	}
	return j
}
