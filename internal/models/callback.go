package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// CallbackRequest is the leave-a-callback fallback: when no staff member is
// available (or a request expires) the user can ask to be phoned back.
type CallbackRequest struct {
	ID            string `gorm:"primaryKey" json:"id"`
	UserID        string `gorm:"index" json:"user_id"`
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Reason        string `json:"reason"`
	PreferredType string `json:"preferred_type"`
	// Status is "open" until a staff member marks it "contacted".
	Status    string    `gorm:"index" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate is a GORM hook that assigns a UUID when none is set.
func (c *CallbackRequest) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Status == "" {
		c.Status = "open"
	}
	return
}

// StaffProfile mirrors the staff directory entry for a counsellor or peer
// supporter. It is upserted on every staff registration so the admin surface
// can see who has been active without calling the remote directory.
type StaffProfile struct {
	UserID string `gorm:"primaryKey" json:"user_id"`
	Name   string `json:"name"`
	Role   string `gorm:"index" json:"role"`
	// Specialities are free-form tags (e.g. "ptsd", "bereavement").
	Specialities pq.StringArray `gorm:"type:text[]" json:"specialities"`
	LastSeenAt   time.Time      `json:"last_seen_at"`
}
