package lead

import (
	"strconv"
	"strings"
)

const (
	DefaultPage   = 1
	DefaultLimit  = 10
	MaxLimit      = 100
	MaxExportRows = 10000

	filterAll = "all"
)

// sortColumns maps the accepted sortBy values to store columns.
var sortColumns = map[string]string{
	"createdAt":    "created_at",
	"updatedAt":    "updated_at",
	"name":         "name",
	"email":        "email",
	"status":       "status",
	"businessType": "business_type",
}

// ListParams are the raw admin list/export parameters.
type ListParams struct {
	Page         int
	Limit        int
	Status       string
	BusinessType string
	Search       string
	SortBy       string
	SortOrder    string
}

// Query is a normalized store query. Limit 0 means no limit.
type Query struct {
	Status       Status
	BusinessType BusinessType
	Search       string
	SortColumn   string
	Descending   bool
	Offset       int
	Limit        int
}

// ListParamsFromQuery reads list parameters through get (usually gin's c.Query).
// Unparsable numbers are left at zero and fixed up by Normalize.
func ListParamsFromQuery(get func(string) string) ListParams {
	page, _ := strconv.Atoi(strings.TrimSpace(get("page")))
	limit, _ := strconv.Atoi(strings.TrimSpace(get("limit")))
	return ListParams{
		Page:         page,
		Limit:        limit,
		Status:       get("status"),
		BusinessType: get("businessType"),
		Search:       get("search"),
		SortBy:       get("sortBy"),
		SortOrder:    get("sortOrder"),
	}
}

// Normalize clamps paging and falls back to defaults for unknown sort input.
func (p ListParams) Normalize() ListParams {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}

	p.Status = normalizeFilter(p.Status)
	p.BusinessType = normalizeFilter(p.BusinessType)
	p.Search = strings.TrimSpace(p.Search)

	p.SortBy = strings.TrimSpace(p.SortBy)
	if _, ok := sortColumns[p.SortBy]; !ok {
		p.SortBy = "createdAt"
	}

	p.SortOrder = strings.ToLower(strings.TrimSpace(p.SortOrder))
	if p.SortOrder != "asc" {
		p.SortOrder = "desc"
	}
	return p
}

func normalizeFilter(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, filterAll) {
		return ""
	}
	return v
}

// Offset is the number of records skipped before the current page.
func (p ListParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// StoreQuery converts normalized params into a paged store query.
func (p ListParams) StoreQuery() Query {
	return Query{
		Status:       Status(p.Status),
		BusinessType: BusinessType(p.BusinessType),
		Search:       p.Search,
		SortColumn:   sortColumns[p.SortBy],
		Descending:   p.SortOrder == "desc",
		Offset:       p.Offset(),
		Limit:        p.Limit,
	}
}

// Filters echoes normalized params, reporting empty filters as "all".
func (p ListParams) Filters() Filters {
	f := Filters{
		Status:       p.Status,
		BusinessType: p.BusinessType,
		Search:       p.Search,
		SortBy:       p.SortBy,
		SortOrder:    p.SortOrder,
	}
	if f.Status == "" {
		f.Status = filterAll
	}
	if f.BusinessType == "" {
		f.BusinessType = filterAll
	}
	return f
}

// NewPagination computes page metadata for total matching records.
func NewPagination(page, limit int, total int64) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalLeads:  total,
		Limit:       limit,
		HasNext:     page < totalPages,
		HasPrev:     page > 1,
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern builds a case-insensitive substring pattern with LIKE
// metacharacters escaped using '\'.
func likePattern(search string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(search)) + "%"
}
