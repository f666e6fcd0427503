package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/justsurfingit/KarirConnect/internal/apperror"
	"github.com/justsurfingit/KarirConnect/internal/models"
	"gorm.io/gorm"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// Page is a 1-based page request
type Page struct {
	Page    int `form:"page"`
	PerPage int `form:"per_page"`
}

func (p Page) normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = defaultPerPage
	}
	if p.PerPage > maxPerPage {
		p.PerPage = maxPerPage
	}
	return p
}

func (p Page) offset() int {
	return (p.Page - 1) * p.PerPage
}

// ListResult is a page of T plus the total row count
type ListResult[T any] struct {
	Data    []T   `json:"data"`
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
}

// paginate counts q then loads the requested page into a ListResult.
// Preloads are applied to the page query only.
func paginate[T any](q *gorm.DB, page Page, order string, preloads ...string) (*ListResult[T], error) {
	page = page.normalize()

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count: %w", err)
	}

	rows := make([]T, 0)
	find := q.Session(&gorm.Session{})
	for _, p := range preloads {
		find = find.Preload(p)
	}
	if err := find.Order(order).Limit(page.PerPage).Offset(page.offset()).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}

	return &ListResult[T]{Data: rows, Total: total, Page: page.Page, PerPage: page.PerPage}, nil
}

// Upload is a file received from a multipart form
type Upload struct {
	Body        io.Reader
	Size        int64
	Filename    string
	ContentType string
}

type clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }

func isAdmin(u *models.User) bool {
	return u != nil && u.Role == models.RoleAdmin
}

// notFoundOr maps gorm.ErrRecordNotFound to a typed not-found error
func notFoundOr(err error, resource string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NewNotFound(resource, id)
	}
	return fmt.Errorf("load %s %v: %w", resource, id, err)
}

// countByStatus groups a model's rows by its status column
func countByStatus(ctx context.Context, q *gorm.DB) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	if err := q.WithContext(ctx).Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Count
	}
	return out, nil
}
