package models

import "time"

// ClickLog is the immutable durable record of one observed redirect, written
// exactly once by the click pipeline's event-log path. It is keyed by the
// canonical original URL rather than a link ID so that reporting survives
// link re-shortening across campaigns.
type ClickLog struct {
	// ID is the primary key with auto-increment functionality
	ID uint `gorm:"primaryKey"`

	// OriginalURL relates this click to the OriginalURL column of the links table.
	// - index: creates a database index for efficient per-link click queries
	OriginalURL string `gorm:"index;not null"`

	// IPAddress stores the client IP address, sized for both IPv4 and IPv6
	IPAddress string `gorm:"size:100"`

	// Referrer stores the HTTP Referer header, when present
	Referrer string `gorm:"size:100"`

	// UserAgent stores the browser/client information, truncated to the
	// column size before insertion
	UserAgent string `gorm:"size:255"`

	// RequestData holds a filtered JSON snapshot of the inbound request
	// (method, path, query params, selected headers) for later analysis
	RequestData string `gorm:"type:text"`

	// CreatedAt records the exact moment when the click occurred
	CreatedAt time.Time `gorm:"autoCreateTime"`

	Extra string `gorm:"type:text"`
}

// ClickEvent represents a raw click event intended to be passed through channels.
// This lightweight struct is used for asynchronous processing between goroutines:
// the redirect handler enqueues one per successful resolution, and the click
// workers turn it into a ClickLog row plus an accumulator increment.
type ClickEvent struct {
	OriginalURL string    // Canonical destination of the resolved redirect
	IPAddress   string    // Client IP address
	Referrer    string    // HTTP Referer header, may be empty
	UserAgent   string    // Browser/client information
	RequestData string    // JSON snapshot of the request
	Timestamp   time.Time // When the click occurred
}
