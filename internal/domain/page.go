package domain

import (
	"fmt"
	"math"
)

// Trip listings return DefaultPageLimit rows unless the caller asks for a
// different size, and never more than MaxPageLimit.
const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// PaginationParams selects one page of a listing. Page counts from 1.
type PaginationParams struct {
	Page  int
	Limit int
}

// NewPaginationParams turns the optional page and limit query values into
// usable params. Missing or non-positive values fall back to page 1 and
// DefaultPageLimit; larger limits are clamped to MaxPageLimit.
func NewPaginationParams(page, limit *int) PaginationParams {
	p := PaginationParams{Page: 1, Limit: DefaultPageLimit}
	if page != nil && *page > 0 {
		p.Page = *page
	}
	if limit != nil && *limit > 0 {
		p.Limit = min(*limit, MaxPageLimit)
	}
	return p
}

// Validate rejects a page whose offset would not fit in an int.
func (p PaginationParams) Validate() error {
	if p.Limit > 0 && p.Page-1 > math.MaxInt/p.Limit {
		return fmt.Errorf("%w: page %d is out of range", ErrValidation, p.Page)
	}
	return nil
}

// Offset is the number of rows the page skips. Call Validate first.
func (p PaginationParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// TotalPages is how many pages it takes to show total rows.
func (p PaginationParams) TotalPages(total int64) int {
	if p.Limit <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(p.Limit) - 1) / int64(p.Limit))
}
