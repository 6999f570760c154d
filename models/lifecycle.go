package models

// Officer actions recognised by the lifecycle policy. Any other action maps
// to Under Review.
const (
	ActionMarkResolved        = "Mark Resolved"
	ActionAssignToTeam        = "Assign to Team"
	ActionForwardToDepartment = "Forward to Department"
	ActionRequestExtraFunds   = "Request Extra Funds"
)

// NextStatus maps an officer action to the resulting complaint status. The
// mapping is total: unknown actions land on Under Review. The initial
// Submitted status is set only at creation and never by this function.
// Resolved is not guarded; actions applied after Resolved still append a
// timeline event and recompute the status.
func NextStatus(action string) Status {
	switch action {
	case ActionMarkResolved:
		return StatusResolved
	case ActionAssignToTeam:
		return StatusAssigned
	case ActionForwardToDepartment:
		return StatusForwarded
	default:
		return StatusUnderReview
	}
}
