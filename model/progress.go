package model

import (
	"time"

	"github.com/skillbridge/skillbridge/server/progression"
	"gorm.io/datatypes"
)

// UserProgress is the persisted form of progression.Progress. Version is
// bumped on every write and used for compare-and-swap.
type UserProgress struct {
	UserID           string                      `gorm:"primaryKey;size:64" json:"user_id"`
	TotalXP          int64                       `gorm:"index:idx_progress_xp;not null;default:0" json:"total_xp"`
	CurrentStreak    int                         `gorm:"not null;default:0" json:"current_streak"`
	BestStreak       int                         `gorm:"not null;default:0" json:"best_streak"`
	LastActivityDate *time.Time                  `json:"last_activity_date"`
	CompletedLessons datatypes.JSONSlice[string] `json:"completed_lessons"`
	CurrentPhase     string                      `gorm:"size:16;not null" json:"current_phase"`
	ReadinessScore   int                         `gorm:"not null;default:0" json:"readiness_score"`
	RecentScores     datatypes.JSONSlice[int]    `json:"recent_scores"`
	Credits          int64                       `gorm:"not null;default:0" json:"credits"`
	SkillCredits     int64                       `gorm:"not null;default:0" json:"skill_credits"`
	PhaseLessons     int                         `gorm:"not null;default:0" json:"phase_lessons"`
	PhaseSimulations int                         `gorm:"not null;default:0" json:"phase_simulations"`
	Interests        datatypes.JSONSlice[string] `json:"interests"`
	Version          int64                       `gorm:"not null;default:0" json:"version"`
	CreatedAt        time.Time                   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time                   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (UserProgress) TableName() string { return "user_progress" }

// ToProgress converts the row into an engine value.
func (u *UserProgress) ToProgress() progression.Progress {
	p := progression.Progress{
		UserID:           u.UserID,
		TotalXP:          u.TotalXP,
		CurrentStreak:    u.CurrentStreak,
		BestStreak:       u.BestStreak,
		CompletedLessons: progression.NormalizeSet(u.CompletedLessons),
		CurrentPhase:     progression.Phase(u.CurrentPhase),
		ReadinessScore:   u.ReadinessScore,
		RecentScores:     append([]int(nil), u.RecentScores...),
		Credits:          u.Credits,
		SkillCredits:     u.SkillCredits,
		PhaseLessons:     u.PhaseLessons,
		PhaseSimulations: u.PhaseSimulations,
		Interests:        progression.NormalizeSet(u.Interests),
		Version:          u.Version,
	}
	if u.LastActivityDate != nil {
		p.LastActivityDate = u.LastActivityDate.UTC()
	}
	return p
}

// FromProgress builds a row from an engine value.
func FromProgress(p progression.Progress) *UserProgress {
	u := &UserProgress{
		UserID:           p.UserID,
		TotalXP:          p.TotalXP,
		CurrentStreak:    p.CurrentStreak,
		BestStreak:       p.BestStreak,
		CompletedLessons: datatypes.NewJSONSlice(nonNil(p.CompletedLessons)),
		CurrentPhase:     string(p.CurrentPhase),
		ReadinessScore:   p.ReadinessScore,
		RecentScores:     datatypes.NewJSONSlice(nonNilInts(p.RecentScores)),
		Credits:          p.Credits,
		SkillCredits:     p.SkillCredits,
		PhaseLessons:     p.PhaseLessons,
		PhaseSimulations: p.PhaseSimulations,
		Interests:        datatypes.NewJSONSlice(nonNil(p.Interests)),
		Version:          p.Version,
	}
	if !p.LastActivityDate.IsZero() {
		d := p.LastActivityDate.UTC()
		u.LastActivityDate = &d
	}
	return u
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilInts(s []int) []int {
	if s == nil {
		return []int{}
	}
	return s
}
