package model

import "time"

// SimulationAttempt is a graded simulation submission. Rows are written
// once and never updated.
type SimulationAttempt struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	UserID         string    `gorm:"index:idx_attempt_user;size:64;not null" json:"user_id"`
	Phase          string    `gorm:"size:16;not null" json:"phase"`
	TopicID        string    `gorm:"size:64" json:"topic_id,omitempty"`
	TopicName      string    `gorm:"size:128" json:"topic_name,omitempty"`
	Prompt         string    `gorm:"type:text" json:"prompt"`
	Response       string    `gorm:"type:text" json:"response"`
	Score          int       `gorm:"not null" json:"score"`
	Feedback       string    `gorm:"type:text" json:"feedback"`
	GradedBy       string    `gorm:"size:16;not null" json:"graded_by"`
	CreditsAwarded int64     `json:"credits_awarded"`
	CreatedAt      time.Time `gorm:"index:idx_attempt_user;autoCreateTime" json:"created_at"`
}
