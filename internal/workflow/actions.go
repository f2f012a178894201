// internal/workflow/actions.go
package workflow

import "fmt"

type Action string

const (
	ActionReview           Action = "review"
	ActionShortlist        Action = "shortlist"
	ActionReject           Action = "reject"
	ActionUndo             Action = "undo"
	ActionReviewDetails    Action = "review_details"
	ActionScheduleViewing  Action = "schedule_viewing"
	ActionCompleteViewing  Action = "complete_viewing"
	ActionReschedule       Action = "reschedule"
	ActionAssignToProperty Action = "assign_to_property"
	ActionBackToPending    Action = "back_to_pending"
	ActionChangeRoom       Action = "change_room"
	ActionViewDetails      Action = "view_details"
	ActionMoveOut          Action = "move_out"
	ActionDelete           Action = "delete"

	// Lease phase
	ActionGenerateLease Action = "generate_lease"
	ActionViewLease     Action = "view_lease"
	ActionSendToTenant  Action = "send_to_tenant"
	ActionEditLease     Action = "edit_lease"
	ActionDownloadLease Action = "download_lease"
	ActionActivateLease Action = "activate_lease"
)

var actionLabels = map[Action]string{
	ActionReview:           "Review",
	ActionShortlist:        "Shortlist",
	ActionReject:           "Reject",
	ActionUndo:             "Undo",
	ActionReviewDetails:    "Review Details",
	ActionScheduleViewing:  "Schedule Viewing",
	ActionCompleteViewing:  "Complete Viewing",
	ActionReschedule:       "Reschedule",
	ActionAssignToProperty: "Assign to Property",
	ActionBackToPending:    "Back to Pending",
	ActionChangeRoom:       "Change Room",
	ActionViewDetails:      "View Details",
	ActionMoveOut:          "Move Out",
	ActionDelete:           "Delete",
	ActionGenerateLease:    "Generate Lease",
	ActionViewLease:        "View Lease",
	ActionSendToTenant:     "Send to Tenant",
	ActionEditLease:        "Edit Lease",
	ActionDownloadLease:    "Download Lease",
	ActionActivateLease:    "Activate Lease",
}

func (a Action) Label() string {
	if label, ok := actionLabels[a]; ok {
		return label
	}
	return string(a)
}

// IsLeaseAction reports whether the action operates on the lease rather
// than the application.
func (a Action) IsLeaseAction() bool {
	switch a {
	case ActionGenerateLease, ActionViewLease, ActionSendToTenant, ActionEditLease, ActionDownloadLease, ActionActivateLease:
		return true
	}
	return false
}

func ParseAction(s string) (Action, error) {
	if _, ok := actionLabels[Action(s)]; ok {
		return Action(s), nil
	}
	return "", fmt.Errorf("unknown action %q", s)
}

var statusActions = map[Status][]Action{
	StatusPending:          {ActionReview, ActionShortlist, ActionReject},
	StatusRejected:         {ActionUndo, ActionReviewDetails},
	StatusApproved:         {ActionScheduleViewing, ActionAssignToProperty, ActionBackToPending},
	StatusViewingScheduled: {ActionCompleteViewing, ActionReschedule, ActionAssignToProperty, ActionBackToPending},
	StatusViewingCompleted: {ActionAssignToProperty, ActionBackToPending},
	StatusProcessing:       {ActionAssignToProperty, ActionBackToPending},
	StatusRoomAssigned:     {ActionAssignToProperty, ActionBackToPending, ActionChangeRoom},
	StatusMovedIn:          {ActionViewDetails, ActionMoveOut},
	StatusActive:           {ActionViewDetails},

	StatusLeaseReady:   {ActionGenerateLease, ActionViewDetails},
	StatusLeaseCreated: {ActionViewLease},
	StatusLeaseSigned:  {ActionViewLease},
}

var leaseStatusActions = map[string][]Action{
	"draft":  {ActionSendToTenant, ActionEditLease, ActionDownloadLease},
	"signed": {ActionActivateLease},
	"active": {ActionActivateLease},
}

// ActionsFor returns the ordered actions a status offers. Unknown statuses
// offer nothing.
func ActionsFor(status string) []Action {
	return copyActions(statusActions[Status(status)])
}

// LeaseActionsFor returns the actions driven by the lease document's own
// status.
func LeaseActionsFor(leaseStatus string) []Action {
	return copyActions(leaseStatusActions[leaseStatus])
}

func copyActions(actions []Action) []Action {
	if len(actions) == 0 {
		return nil
	}
	out := make([]Action, len(actions))
	copy(out, actions)
	return out
}

var deleteProtected = map[Status]bool{
	StatusLeaseCreated: true,
	StatusLeaseSigned:  true,
	StatusMovedIn:      true,
	StatusActive:       true,
}

// CanDelete is independent of the action table: a deletable application
// may offer any other actions as well.
func CanDelete(status string) bool {
	return !deleteProtected[Status(status)]
}
