package dag

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownRelation is returned for a relation value outside the four
// precedence types.
var ErrUnknownRelation = errors.New("unknown relation type")

// Relation is the precedence type of an edge.
type Relation int

const (
	// FinishToStart: the successor cannot start until the predecessor finishes.
	FinishToStart Relation = iota
	// StartToStart: the successor cannot start until the predecessor starts.
	StartToStart
	// FinishToFinish: the successor cannot finish until the predecessor finishes.
	FinishToFinish
	// StartToFinish: the successor cannot finish until the predecessor starts.
	StartToFinish
)

// Relations lists every precedence type.
var Relations = []Relation{FinishToStart, StartToStart, FinishToFinish, StartToFinish}

// Valid reports whether r is one of the four precedence types.
func (r Relation) Valid() bool {
	switch r {
	case FinishToStart, StartToStart, FinishToFinish, StartToFinish:
		return true
	default:
		return false
	}
}

// String returns the snake_case name used in project files.
func (r Relation) String() string {
	switch r {
	case FinishToStart:
		return "finish_to_start"
	case StartToStart:
		return "start_to_start"
	case FinishToFinish:
		return "finish_to_finish"
	case StartToFinish:
		return "start_to_finish"
	default:
		return fmt.Sprintf("relation(%d)", int(r))
	}
}

// Short returns the two-letter abbreviation (FS, SS, FF, SF).
func (r Relation) Short() string {
	switch r {
	case FinishToStart:
		return "FS"
	case StartToStart:
		return "SS"
	case FinishToFinish:
		return "FF"
	case StartToFinish:
		return "SF"
	default:
		return "??"
	}
}

// ParseRelation accepts the snake_case names and the two-letter forms,
// case-insensitively. An empty string means finish_to_start.
func ParseRelation(s string) (Relation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "finish_to_start", "fs":
		return FinishToStart, nil
	case "start_to_start", "ss":
		return StartToStart, nil
	case "finish_to_finish", "ff":
		return FinishToFinish, nil
	case "start_to_finish", "sf":
		return StartToFinish, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownRelation, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Relation) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRelation, int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Relation) UnmarshalText(b []byte) error {
	parsed, err := ParseRelation(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
