// Package transcript defines the events recognizers emit.
package transcript

import (
	"fmt"
	"strings"
)

// Kind tags a transcript event.
type Kind int

const (
	// Partial carries the full provisional hypothesis so far, not a delta.
	Partial Kind = iota + 1
	// Final settles the utterance.
	Final
	// Silence and Overload are engine-internal signals the core ignores.
	Silence
	Overload
)

func (k Kind) String() string {
	switch k {
	case Partial:
		return "partial"
	case Final:
		return "final"
	case Silence:
		return "silence"
	case Overload:
		return "overload"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind maps a wire name to a Kind. Unknown names report false.
func ParseKind(name string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "partial":
		return Partial, true
	case "final":
		return Final, true
	case "silence":
		return Silence, true
	case "overload":
		return Overload, true
	default:
		return 0, false
	}
}

// Event is one transcript update from a recognizer.
type Event struct {
	Kind Kind
	Text string
}

// Normalize lowercases text for matching. Offsets into the result stay
// aligned with the engine's hypothesis for ASCII transcripts.
func Normalize(text string) string {
	return strings.ToLower(text)
}
