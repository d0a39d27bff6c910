package model

import "time"

const (
	SwapOpen     = "open"
	SwapAccepted = "accepted"
)

// SkillSwap is an offer to trade one skill for another between two users.
type SkillSwap struct {
	ID         int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerID    string     `gorm:"index:idx_swap_owner;size:64;not null" json:"owner_id"`
	OfferSkill string     `gorm:"size:64;not null" json:"offer_skill"`
	WantSkill  string     `gorm:"size:64;not null" json:"want_skill"`
	Note       string     `gorm:"type:text" json:"note"`
	Status     string     `gorm:"index:idx_swap_status;size:16;not null" json:"status"`
	PartnerID  *string    `gorm:"size:64" json:"partner_id"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	AcceptedAt *time.Time `json:"accepted_at"`
}
