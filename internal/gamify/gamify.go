// Package gamify holds the task-points, streak and achievement rules. All
// functions are pure over the stats row plus a few task counts so the store
// and HTTP layers stay free of rule logic.
package gamify

import (
	"time"

	"github.com/example/jobtracker/internal/model"
)

// categoryPoints maps a task category to the points awarded on completion.
var categoryPoints = map[string]int{
	"APPLICATION":    10,
	"NETWORKING":     8,
	"SKILL_BUILDING": 15,
	"INTERVIEW_PREP": 12,
	"RESEARCH":       6,
	"RESUME":         10,
	"FOLLOW_UP":      5,
	"OTHER":          5,
}

const defaultPoints = 5

// PointsFor returns the point value for a task category.
func PointsFor(category string) int {
	if pts, ok := categoryPoints[category]; ok {
		return pts
	}
	return defaultPoints
}

// Achievement ids with their one-time bonus points.
var achievementBonus = map[string]int{
	"first_task": 0,
	"streak_3":   50,
	"streak_7":   100,
	"points_100": 0,
	"points_500": 0,
	"tasks_50":   50,
	"daily_5":    25,
}

// Bonus returns the one-time point bonus for an achievement id.
func Bonus(id string) int { return achievementBonus[id] }

const dateLayout = "2006-01-02"

// ApplyCompletion credits a completed task against the stats row: points are
// added and the daily streak advances. The streak moves at most once per UTC
// day; it increments when the previous completion was yesterday and resets
// to 1 after a gap.
func ApplyCompletion(stats *model.UserStats, points int, now time.Time) {
	stats.TotalPoints += points

	today := now.UTC().Format(dateLayout)
	if stats.LastCompletedDate == today {
		return
	}
	yesterday := now.UTC().AddDate(0, 0, -1).Format(dateLayout)
	if stats.LastCompletedDate == yesterday {
		stats.CurrentStreak++
	} else {
		stats.CurrentStreak = 1
	}
	stats.LastCompletedDate = today
}

// ApplyUncompletion refunds a task's points, flooring at zero. The streak is
// left alone; un-completing a task does not rewind days.
func ApplyUncompletion(stats *model.UserStats, points int) {
	stats.TotalPoints -= points
	if stats.TotalPoints < 0 {
		stats.TotalPoints = 0
	}
}

// Progress is the task-count snapshot the unlock checks need.
type Progress struct {
	CompletedTasks int
	CompletedToday int
}

// Unlockable returns the achievements newly earned given the current stats
// and progress, excluding already-unlocked ids. Bonus points for the new
// unlocks are credited to stats by the caller via Bonus.
func Unlockable(stats model.UserStats, progress Progress, unlocked map[string]bool) []string {
	var earned []string
	check := func(id string, ok bool) {
		if ok && !unlocked[id] {
			earned = append(earned, id)
		}
	}
	check("first_task", progress.CompletedTasks >= 1)
	check("streak_3", stats.CurrentStreak >= 3)
	check("streak_7", stats.CurrentStreak >= 7)
	check("points_100", stats.TotalPoints >= 100)
	check("points_500", stats.TotalPoints >= 500)
	check("tasks_50", progress.CompletedTasks >= 50)
	check("daily_5", progress.CompletedToday >= 5)
	return earned
}
