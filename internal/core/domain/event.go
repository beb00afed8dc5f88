package domain

import "time"

// EventType names a live change notification.
type EventType string

const (
	EventIssueCreated       EventType = "issue_created"
	EventIssueUpdated       EventType = "issue_updated"
	EventIssueStatusChanged EventType = "issue_status_changed"
	EventIssueDeleted       EventType = "issue_deleted"
)

// Event is the envelope pushed to live observers.
type Event struct {
	Type       EventType   `json:"type"`
	IssueID    string      `json:"issue_id,omitempty"`
	OldStatus  IssueStatus `json:"old_status,omitempty"`
	NewStatus  IssueStatus `json:"new_status,omitempty"`
	Issue      *Issue      `json:"issue,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}

func NewIssueCreated(issue *Issue, at time.Time) Event {
	return Event{Type: EventIssueCreated, Issue: issue, OccurredAt: at.UTC()}
}

func NewIssueUpdated(issue *Issue, at time.Time) Event {
	return Event{Type: EventIssueUpdated, Issue: issue, OccurredAt: at.UTC()}
}

func NewIssueStatusChanged(issue *Issue, old IssueStatus, at time.Time) Event {
	return Event{
		Type:       EventIssueStatusChanged,
		IssueID:    issue.ID,
		OldStatus:  old,
		NewStatus:  issue.Status,
		Issue:      issue,
		OccurredAt: at.UTC(),
	}
}

func NewIssueDeleted(id string, at time.Time) Event {
	return Event{Type: EventIssueDeleted, IssueID: id, OccurredAt: at.UTC()}
}
