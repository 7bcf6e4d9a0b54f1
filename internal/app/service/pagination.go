package service

import (
	"math"

	"github.com/sifan077/hyperindex/internal/app/model"
)

const (
	defaultPerPage = 10
	maxPerPage     = 100
)

// Page is a 1-based page request.
type Page struct {
	Number  int
	PerPage int
}

// Offset returns the number of rows preceding the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.PerPage
}

// Paginator clamps page requests to configured bounds.
type Paginator struct {
	DefaultPerPage int
	MaxPerPage     int
}

// Normalize fills defaults and clamps out-of-range values. Page numbers are
// capped so the row offset never overflows.
func (p Paginator) Normalize(page Page) Page {
	def := p.DefaultPerPage
	if def <= 0 {
		def = defaultPerPage
	}
	limit := p.MaxPerPage
	if limit <= 0 {
		limit = maxPerPage
	}

	if page.Number < 1 {
		page.Number = 1
	}
	if page.PerPage <= 0 {
		page.PerPage = def
	}
	if page.PerPage > limit {
		page.PerPage = limit
	}
	// Keep Offset() and the HasNext product inside int.
	if last := math.MaxInt / page.PerPage; page.Number > last {
		page.Number = last
	}
	return page
}

// PageResult is one page of entries plus what callers need to render page links.
type PageResult struct {
	Items      []model.Entry `json:"items"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	PerPage    int           `json:"per_page"`
	TotalPages int           `json:"total_pages"`
	HasPrev    bool          `json:"has_prev"`
	HasNext    bool          `json:"has_next"`
}

func newPageResult(items []model.Entry, total int64, page Page) *PageResult {
	if items == nil {
		items = []model.Entry{}
	}
	totalPages := 0
	if page.PerPage > 0 {
		totalPages = int((total + int64(page.PerPage) - 1) / int64(page.PerPage))
	}
	return &PageResult{
		Items:      items,
		Total:      total,
		Page:       page.Number,
		PerPage:    page.PerPage,
		TotalPages: totalPages,
		HasPrev:    page.Number > 1,
		HasNext:    int64(page.Number)*int64(page.PerPage) < total,
	}
}
