package models

import "time"

// QuotaUsage is the ledger row for one calendar day of the reset zone
type QuotaUsage struct {
	Day       string    `gorm:"primaryKey;size:10" json:"day"` // YYYY-MM-DD
	Units     int       `json:"units"`
	Exhausted bool      `json:"exhausted"` // server reported quotaExceeded
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
