/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"fmt"
	"time"
)

// ScanProgress tracks a paged read of a whole collection
type ScanProgress struct {
	ItemsRead int64     // Total items read
	PagesRead int       // Total pages read
	Retries   int       // Retries spent on transient errors
	StartTime time.Time // When the scan started
}

// ScanOptions configures paged reads in datastores that have no server-side query
type ScanOptions struct {
	PageSize        int32              // Items per page (default: 100)
	MaxRetries      int                // Retry attempts for transient errors (default: 3)
	RetryBackoff    time.Duration      // Backoff between retries (default: 1s)
	ProgressHandler func(ScanProgress) // Optional progress callback, called after each page
}

// ScanOption is a functional option for configuring scans
type ScanOption func(*ScanOptions)

// DefaultScanOptions returns default scan options
func DefaultScanOptions() ScanOptions {
	return ScanOptions{
		PageSize:     100,
		MaxRetries:   3,
		RetryBackoff: time.Second,
	}
}

// WithPageSize sets the page size
func WithPageSize(size int32) ScanOption {
	return func(opts *ScanOptions) {
		opts.PageSize = size
	}
}

// WithMaxRetries sets the maximum retry attempts
func WithMaxRetries(retries int) ScanOption {
	return func(opts *ScanOptions) {
		opts.MaxRetries = retries
	}
}

// WithRetryBackoff sets the retry backoff duration
func WithRetryBackoff(backoff time.Duration) ScanOption {
	return func(opts *ScanOptions) {
		opts.RetryBackoff = backoff
	}
}

// WithProgressHandler sets a progress callback
func WithProgressHandler(handler func(ScanProgress)) ScanOption {
	return func(opts *ScanOptions) {
		opts.ProgressHandler = handler
	}
}

func formatIndexValue(v interface{}) string {
	switch tv := v.(type) {
	case string:
		return tv
	case int, int32, int64, Direction:
		return fmt.Sprintf("%d", tv)
	default:
		return fmt.Sprintf("%v", tv)
	}
}
