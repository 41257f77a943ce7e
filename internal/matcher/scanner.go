// Package matcher finds registered phrases inside a growing transcript.
package matcher

// PrefixSet is the lookup surface the scanner needs from a phrase trie.
type PrefixSet interface {
	PrefixCount(prefix string) int
	Contains(phrase string) bool
}

// Match is one completed phrase occurrence. Start and End are byte offsets
// into the transcript passed to Advance.
type Match struct {
	Phrase string
	Start  int
	End    int
}

// Scanner incrementally detects complete phrases without re-scanning
// consumed text. Matches never overlap and the earliest completion wins.
//
// A Scanner is not safe for concurrent use; one inference loop owns it.
type Scanner struct {
	set      PrefixSet
	consumed int
}

// NewScanner returns a scanner over set with its cursor at zero.
func NewScanner(set PrefixSet) *Scanner {
	return &Scanner{set: set}
}

// Consumed is the offset where the still-unmatched region begins.
func (s *Scanner) Consumed() int {
	return s.consumed
}

// Reset returns the cursor to the start of the transcript.
func (s *Scanner) Reset() {
	s.consumed = 0
}

// Skip moves the cursor forward to offset so text before it never matches.
// Offsets behind the cursor are ignored.
func (s *Scanner) Skip(offset int) {
	if offset > s.consumed {
		s.consumed = offset
	}
}

// Advance scans transcript from the cursor and returns completed matches in
// order. Calling it again with the same transcript returns nothing new.
func (s *Scanner) Advance(transcript string) []Match {
	if s.set == nil || s.consumed >= len(transcript) {
		return nil
	}

	var matches []Match
	start := s.consumed
	for i := s.consumed + 2; i <= len(transcript); i++ {
		candidate := transcript[start:i]
		switch s.set.PrefixCount(candidate) {
		case 0:
			start = i - 1
		case 1:
			if !s.set.Contains(candidate) {
				continue
			}
			matches = append(matches, Match{Phrase: candidate, Start: start, End: i})
			s.consumed = i
			start = i
			// Resume exactly as a fresh call would, so repeated calls agree.
			i = s.consumed + 1
		}
	}
	return matches
}
