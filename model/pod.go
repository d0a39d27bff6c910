package model

import "time"

// ProblemPod is a community question thread.
type ProblemPod struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerID     string    `gorm:"index:idx_pod_owner;size:64;not null" json:"owner_id"`
	Title       string    `gorm:"size:128;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Category    string    `gorm:"size:32" json:"category"`
	Replies     int       `gorm:"not null;default:0" json:"replies"`
	CreatedAt   time.Time `gorm:"index:idx_pod_created;autoCreateTime" json:"created_at"`
}

// PodReply is one answer in a ProblemPod.
type PodReply struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PodID     int64     `gorm:"index:idx_reply_pod;not null" json:"pod_id"`
	UserID    string    `gorm:"size:64;not null" json:"user_id"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
