package progression

import "math"

// Readiness computes the decayed weighted average of scores (oldest first).
// The newest score weighs 1 and a score k samples older weighs
// 0.5^(k/halfLife). The result is rounded and clamped to [0,100].
func Readiness(scores []int, halfLife float64) int {
	if len(scores) == 0 || halfLife <= 0 {
		return 0
	}
	var sum, weights float64
	n := len(scores)
	for i, s := range scores {
		age := float64(n - 1 - i)
		w := math.Pow(0.5, age/halfLife)
		sum += w * float64(clampScore(s))
		weights += w
	}
	return clampScore(int(math.Round(sum / weights)))
}

// pushScore appends s to the window, dropping the oldest entries beyond size.
func pushScore(window []int, s, size int) []int {
	window = append(window, s)
	if len(window) > size {
		window = window[len(window)-size:]
	}
	return window
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
