package model

import "time"

const ApplicationSubmitted = "submitted"

// OpportunityApplication is a user's application to a catalog listing.
type OpportunityApplication struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        string    `gorm:"uniqueIndex:idx_app_user_opp;size:64;not null" json:"user_id"`
	OpportunityID string    `gorm:"uniqueIndex:idx_app_user_opp;size:64;not null" json:"opportunity_id"`
	Note          string    `gorm:"type:text" json:"note"`
	Status        string    `gorm:"size:16;not null" json:"status"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}
