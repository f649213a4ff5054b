package domain

import "time"

// Cursor marks the server time of the last update the caller has seen.
// The zero value means "from the beginning".
type Cursor struct {
	Since time.Time
}

// DashboardUpdate is the payload of the "updates since" endpoint
type DashboardUpdate struct {
	HasUpdates    bool           `json:"hasUpdates"`
	Timestamp     time.Time      `json:"timestamp"`
	Notifications []Notification `json:"notifications"`
}
