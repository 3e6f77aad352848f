package utils

import (
	"strconv" // String conversion

	"github.com/gin-gonic/gin" // Gin web framework
)

// Page selects a window of a listing
type Page struct {
	Page int `json:"page"`      // 1-based page number
	Size int `json:"page_size"` // Items per page
}

const (
	defaultPageSize = 20  // Default page size
	maxPageSize     = 100 // Upper bound for page_size
)

// NewPage returns a normalised page
func NewPage(page, size int) Page {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > maxPageSize {
		size = defaultPageSize
	}
	return Page{Page: page, Size: size}
}

// PageFromQuery reads page and page_size (or per_page) from the query string
func PageFromQuery(c *gin.Context) Page {
	page, _ := strconv.Atoi(c.Query("page"))
	sizeParam := c.Query("page_size")
	if sizeParam == "" {
		sizeParam = c.Query("per_page")
	}
	size, _ := strconv.Atoi(sizeParam)
	return NewPage(page, size)
}

// Offset is the number of rows to skip
func (p Page) Offset() int {
	return (p.Page - 1) * p.Size
}

// TotalPages is the number of pages needed for total rows
func (p Page) TotalPages(total int64) int {
	return (int(total) + p.Size - 1) / p.Size
}

// Envelope builds the paginated payload under key
func (p Page) Envelope(key string, items any, total int64) gin.H {
	return gin.H{
		key:           items,
		"page":        p.Page,
		"page_size":   p.Size,
		"total":       total,
		"total_pages": p.TotalPages(total),
	}
}
