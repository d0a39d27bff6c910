package progression

import (
	"slices"
	"time"
)

// Progress is a user's accumulated progression state. The engine treats it
// as a value: operations return a modified copy and never touch the input.
type Progress struct {
	UserID           string    `json:"userId"`
	TotalXP          int64     `json:"totalXp"`
	CurrentStreak    int       `json:"currentStreak"`
	BestStreak       int       `json:"bestStreak"`
	LastActivityDate time.Time `json:"lastActivityDate"` // zero: never active
	CompletedLessons []string  `json:"completedLessons"` // sorted, unique
	CurrentPhase     Phase     `json:"currentPhase"`
	ReadinessScore   int       `json:"readinessScore"`
	RecentScores     []int     `json:"recentScores"` // oldest first
	Credits          int64     `json:"credits"`
	SkillCredits     int64     `json:"skillCredits"`
	PhaseLessons     int       `json:"phaseLessons"`
	PhaseSimulations int       `json:"phaseSimulations"`
	Interests        []string  `json:"interests"`
	Version          int64     `json:"version"`
}

// NewProgress returns the starting state for a user.
func NewProgress(userID string) Progress {
	return Progress{
		UserID:           userID,
		CurrentPhase:     PhaseLifeSkills,
		CompletedLessons: []string{},
		RecentScores:     []int{},
		Interests:        []string{},
	}
}

// Clone returns a deep copy of p.
func (p Progress) Clone() Progress {
	out := p
	out.CompletedLessons = cloneStrings(p.CompletedLessons)
	out.RecentScores = slices.Clone(p.RecentScores)
	if out.RecentScores == nil {
		out.RecentScores = []int{}
	}
	out.Interests = cloneStrings(p.Interests)
	return out
}

// HasCompleted reports whether lessonID is in the completed set.
func (p Progress) HasCompleted(lessonID string) bool {
	_, found := slices.BinarySearch(p.CompletedLessons, lessonID)
	return found
}

func (p *Progress) addLesson(lessonID string) {
	i, found := slices.BinarySearch(p.CompletedLessons, lessonID)
	if found {
		return
	}
	p.CompletedLessons = slices.Insert(p.CompletedLessons, i, lessonID)
}

func (p Progress) phaseActivity() int { return p.PhaseLessons + p.PhaseSimulations }

// NormalizeSet sorts and de-duplicates a string set, dropping blanks.
func NormalizeSet(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return slices.Clone(in)
}
