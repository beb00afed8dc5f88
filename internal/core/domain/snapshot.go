package domain

import "time"

// StatusCounts maps every issue status to the number of issues in it.
type StatusCounts map[IssueStatus]int64

// NewStatusCounts returns a zero-filled count map covering every status.
func NewStatusCounts() StatusCounts {
	counts := make(StatusCounts, len(Statuses))
	for _, s := range Statuses {
		counts[s] = 0
	}
	return counts
}

// Fill adds any missing status with a zero count and returns c.
func (c StatusCounts) Fill() StatusCounts {
	for _, s := range Statuses {
		if _, ok := c[s]; !ok {
			c[s] = 0
		}
	}
	return c
}

// DailySnapshot is the persisted, immutable count of issues per status for
// one UTC calendar date.
type DailySnapshot struct {
	Date      time.Time    `json:"date"`
	Counts    StatusCounts `json:"counts"`
	CreatedAt time.Time    `json:"created_at"`
}

// SnapshotDate truncates t to its UTC calendar date.
func SnapshotDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
