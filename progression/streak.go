package progression

import "time"

// calendarDay truncates t to midnight of its calendar day in loc, expressed
// as a UTC instant so that day arithmetic is DST independent.
func calendarDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// recordActivity applies the streak rule for an activity on now's day.
func (e *Engine) recordActivity(p *Progress, now time.Time) {
	today := calendarDay(now, e.rules.Location)

	if p.LastActivityDate.IsZero() {
		p.CurrentStreak = 1
		p.LastActivityDate = today
		p.BestStreak = max(p.BestStreak, p.CurrentStreak)
		return
	}

	last := calendarDay(p.LastActivityDate, time.UTC)
	daysDiff := int(today.Sub(last).Hours() / 24)
	switch {
	case daysDiff < 0:
		// Clock went backwards; keep the later date.
		return
	case daysDiff == 0:
		if p.CurrentStreak == 0 {
			p.CurrentStreak = 1
		}
	case daysDiff == 1:
		p.CurrentStreak++
	default:
		p.CurrentStreak = 1
	}
	p.LastActivityDate = today
	p.BestStreak = max(p.BestStreak, p.CurrentStreak)
}
