package pagination

import (
	"fmt"
	"strings"
)

// State is the lifecycle of one pagination session
type State int

const (
	// StateInitial means no window has been loaded since creation or the last refresh
	StateInitial State = iota
	// StateLoaded means a window is displayed and its boundary cursors are known
	StateLoaded
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateLoaded:
		return "loaded"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Direction selects which window Fetch loads
type Direction string

const (
	DirectionInitial Direction = "initial"
	DirectionNext    Direction = "next"
	DirectionPrev    Direction = "prev"
)

// ParseDirection parses a direction name. The empty string means DirectionInitial.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case "":
		return DirectionInitial, nil
	case DirectionInitial, DirectionNext, DirectionPrev:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
	}
}
