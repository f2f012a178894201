// internal/workflow/status.go
package workflow

import (
	"errors"
	"fmt"
)

var ErrUnknownStatus = errors.New("unknown application status")

type Status string

// Board statuses
const (
	StatusPending          Status = "pending"
	StatusRejected         Status = "rejected"
	StatusApproved         Status = "approved"
	StatusViewingScheduled Status = "viewing_scheduled"
	StatusViewingCompleted Status = "viewing_completed"
	StatusProcessing       Status = "processing"
	StatusRoomAssigned     Status = "room_assigned"
	StatusMovedIn          Status = "moved_in"
	StatusActive           Status = "active"
)

// Lease-phase statuses. They are written by the lease flow and never
// belong to a board column.
const (
	StatusLeaseReady   Status = "lease_ready"
	StatusLeaseCreated Status = "lease_created"
	StatusLeaseSigned  Status = "lease_signed"
)

var boardStatuses = []Status{
	StatusPending,
	StatusRejected,
	StatusApproved,
	StatusViewingScheduled,
	StatusViewingCompleted,
	StatusProcessing,
	StatusRoomAssigned,
	StatusMovedIn,
	StatusActive,
}

var leaseStatuses = []Status{
	StatusLeaseReady,
	StatusLeaseCreated,
	StatusLeaseSigned,
}

// BoardStatuses returns the closed set of statuses an application moves
// through on the board.
func BoardStatuses() []Status {
	out := make([]Status, len(boardStatuses))
	copy(out, boardStatuses)
	return out
}

// ParseStatus accepts exactly the board statuses.
func ParseStatus(s string) (Status, error) {
	for _, status := range boardStatuses {
		if string(status) == s {
			return status, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

// ParseAnyStatus also accepts lease-phase statuses.
func ParseAnyStatus(s string) (Status, error) {
	if status, err := ParseStatus(s); err == nil {
		return status, nil
	}
	for _, status := range leaseStatuses {
		if string(status) == s {
			return status, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

func (s Status) IsLeasePhase() bool {
	for _, status := range leaseStatuses {
		if s == status {
			return true
		}
	}
	return false
}

const (
	ColumnPending     = "Pending"
	ColumnShortlisted = "Shortlisted"
	ColumnActive      = "Active"
	ColumnUnmapped    = "Unmapped"
)

type Column struct {
	Title string
	Keys  []Status
}

var statusColumns = []Column{
	{Title: ColumnPending, Keys: []Status{StatusPending, StatusRejected}},
	{Title: ColumnShortlisted, Keys: []Status{
		StatusApproved,
		StatusViewingScheduled,
		StatusViewingCompleted,
		StatusProcessing,
		StatusRoomAssigned,
	}},
	{Title: ColumnActive, Keys: []Status{StatusMovedIn, StatusActive}},
}

// Columns returns a copy of the fixed column table in display order.
func Columns() []Column {
	out := make([]Column, len(statusColumns))
	for i, col := range statusColumns {
		keys := make([]Status, len(col.Keys))
		copy(keys, col.Keys)
		out[i] = Column{Title: col.Title, Keys: keys}
	}
	return out
}

// ColumnFor returns the title of the first column listing status, or
// ColumnUnmapped.
func ColumnFor(status string) string {
	for _, col := range statusColumns {
		for _, key := range col.Keys {
			if string(key) == status {
				return col.Title
			}
		}
	}
	return ColumnUnmapped
}
