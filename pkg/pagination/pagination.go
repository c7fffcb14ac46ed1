package pagination

import (
	"net/url"
	"strconv"
)

// Params holds the paging parameters sent to the product listing endpoint.
type Params struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// DefaultParams returns sensible paging defaults.
func DefaultParams() Params {
	return Params{
		Page:  1,
		Limit: 20,
	}
}

// Values encodes the params as query string values.
func (p Params) Values() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(p.Page))
	v.Set("limit", strconv.Itoa(p.Limit))
	return v
}

// Meta describes the paging state the server reports alongside a page of
// objects.
type Meta struct {
	Page            int  `json:"page"`
	Limit           int  `json:"limit"`
	TotalCount      int  `json:"totalCount"`
	TotalPages      int  `json:"totalPages"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

// Page wraps one page of objects together with its paging metadata.
type Page[T any] struct {
	Objects    []T  `json:"objects"`
	Pagination Meta `json:"pagination"`
}

// NewMeta computes paging metadata for the given total count and params.
// A non-positive limit falls back to the default page size.
func NewMeta(totalCount int, params Params) Meta {
	if params.Limit <= 0 {
		params.Limit = DefaultParams().Limit
	}

	totalPages := totalCount / params.Limit
	if totalCount%params.Limit > 0 {
		totalPages++
	}

	return Meta{
		Page:            params.Page,
		Limit:           params.Limit,
		TotalCount:      totalCount,
		TotalPages:      totalPages,
		HasNextPage:     params.Page < totalPages,
		HasPreviousPage: params.Page > 1,
	}
}

// NewPage constructs a page from the given objects, total count, and params.
func NewPage[T any](objects []T, totalCount int, params Params) Page[T] {
	if objects == nil {
		objects = []T{}
	}
	return Page[T]{
		Objects:    objects,
		Pagination: NewMeta(totalCount, params),
	}
}
