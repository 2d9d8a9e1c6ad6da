package submission

import "fmt"

type State int

const (
	Idle State = iota
	LocatingPosition
	Uploading
	Persisting
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case LocatingPosition:
		return "locating"
	case Uploading:
		return "uploading"
	case Persisting:
		return "persisting"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Transition is reported to the observer on every state change. Err is set
// only when To is Failed.
type Transition struct {
	From State
	To   State
	Err  error
}

type RefreshPolicy string

const (
	// RefreshAppend prepends the confirmed post locally.
	RefreshAppend RefreshPolicy = "append"
	// RefreshRefetch reloads the whole list after a successful create.
	RefreshRefetch RefreshPolicy = "refetch"
)

func ParseRefreshPolicy(s string) (RefreshPolicy, error) {
	switch RefreshPolicy(s) {
	case "", RefreshAppend:
		return RefreshAppend, nil
	case RefreshRefetch:
		return RefreshRefetch, nil
	}
	return "", fmt.Errorf("unknown refresh policy %q", s)
}
