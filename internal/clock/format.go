package clock

import "fmt"

// FormatClock renders seconds as MM:SS. Minutes are not wrapped into hours.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// FormatDuration renders a spoken duration as H:MM:SS, or M:SS below an hour.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}

// Fraction is remaining/allotment clamped to [0,1]. An untimed allotment
// reads as a full bar.
func Fraction(remaining, allotment int) float64 {
	if allotment <= 0 {
		return 1
	}
	f := float64(remaining) / float64(allotment)
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
