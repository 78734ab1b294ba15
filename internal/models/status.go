package models

// Status is a workflow state of a filed report.
type Status string

// Workflow states. StatusFiled is the sole initial state;
// Resolved, Closed and Rejected are terminal.
const (
	StatusFiled              Status = "Filed"
	StatusUnderInvestigation Status = "Under Investigation"
	StatusResolved           Status = "Resolved"
	StatusClosed             Status = "Closed"
	StatusRejected           Status = "Rejected"
)

// ValidStatus reports whether s is a known workflow state.
func ValidStatus(s Status) bool {
	switch s {
	case StatusFiled, StatusUnderInvestigation, StatusResolved, StatusClosed, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether s accepts no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusResolved, StatusClosed, StatusRejected:
		return true
	}
	return false
}

// CanTransition reports whether a report currently in s may move to next.
// Filed may move to any other state; Under Investigation may move to the
// three terminal states; terminal states accept nothing. Re-entering
// Filed and self-transitions are always rejected.
func (s Status) CanTransition(next Status) bool {
	if !ValidStatus(next) || next == StatusFiled || next == s {
		return false
	}
	switch s {
	case StatusFiled:
		return true
	case StatusUnderInvestigation:
		return next.Terminal()
	}
	return false
}
