// Package utils holds the page-window arithmetic shared by the HTTP layer
// and the services.
package utils

import "strconv"

// Window is a 1-based page of Size items.
type Window struct {
	Page int
	Size int
}

// ParseWindow reads page and size from their query-string values. Missing
// or malformed values fall back to page 1 and defSize; the size is clamped
// to [1, maxSize].
func ParseWindow(page, size string, defSize, maxSize int) Window {
	w := Window{Page: atoiOr(page, 1), Size: atoiOr(size, defSize)}
	return w.Clamp(defSize, maxSize)
}

// Clamp fixes out-of-range values. A size <= 0 becomes defSize.
func (w Window) Clamp(defSize, maxSize int) Window {
	if w.Page < 1 {
		w.Page = 1
	}
	if w.Size <= 0 {
		w.Size = defSize
	}
	if maxSize > 0 && w.Size > maxSize {
		w.Size = maxSize
	}
	return w
}

// Offset is the number of items before the window.
func (w Window) Offset() int { return (w.Page - 1) * w.Size }

// Pages returns how many windows of w.Size hold total items.
func (w Window) Pages(total int64) int {
	if w.Size <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(w.Size) - 1) / int64(w.Size))
}

// HasNext reports whether another window follows this one.
func (w Window) HasNext(total int64) bool { return w.Page < w.Pages(total) }

func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
