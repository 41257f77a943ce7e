package matcher

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rbright/tempest/internal/dictionary"
	"github.com/stretchr/testify/require"
)

func newSet(phrases ...string) *dictionary.Trie {
	trie := dictionary.NewTrie()
	for _, phrase := range phrases {
		trie.Insert(phrase)
	}
	return trie
}

func phrases(matches []Match) []string {
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Phrase)
	}
	return out
}

func TestAdvanceFiresOnceWhenPhraseCompletes(t *testing.T) {
	scanner := NewScanner(newSet("console", "launcher"))
	text := "please open the console now"

	fired := 0
	firedAt := -1
	for i := 1; i <= len(text); i++ {
		matches := scanner.Advance(text[:i])
		if len(matches) > 0 {
			fired += len(matches)
			firedAt = i
			require.Equal(t, "console", matches[0].Phrase)
		}
	}

	require.Equal(t, 1, fired)
	require.Equal(t, len("please open the console"), firedAt)
}

func TestAdvanceIsIdempotentForRepeatedPartials(t *testing.T) {
	scanner := NewScanner(newSet("console"))

	first := scanner.Advance("open console")
	require.Equal(t, []string{"console"}, phrases(first))

	require.Empty(t, scanner.Advance("open console"))
	require.Empty(t, scanner.Advance("open console"))
	require.Equal(t, len("open console"), scanner.Consumed())
}

func TestAdvanceModeScenario(t *testing.T) {
	scanner := NewScanner(newSet("tempest rise", "tempest rest", "listen"))

	require.Empty(t, scanner.Advance("tempest"))
	matches := scanner.Advance("tempest rise")
	require.Equal(t, []Match{{Phrase: "tempest rise", Start: 0, End: 12}}, matches)
	require.Empty(t, scanner.Advance("tempest rise console"))
}

func TestAdvanceNonOverlapping(t *testing.T) {
	scanner := NewScanner(newSet("ab", "bc"))

	matches := scanner.Advance("abc")
	require.Equal(t, []string{"ab"}, phrases(matches))
	require.Empty(t, scanner.Advance("abc"))
}

func TestAdvanceFindsSequentialMatches(t *testing.T) {
	tests := []struct {
		name string
		set  []string
		text string
		want []Match
	}{
		{
			name: "two phrases",
			set:  []string{"console", "launcher"},
			text: "console then launcher",
			want: []Match{
				{Phrase: "console", Start: 0, End: 7},
				{Phrase: "launcher", Start: 13, End: 21},
			},
		},
		{
			name: "repeated phrase",
			set:  []string{"console"},
			text: "console console",
			want: []Match{
				{Phrase: "console", Start: 0, End: 7},
				{Phrase: "console", Start: 8, End: 15},
			},
		},
		{
			name: "resync after dead prefix",
			set:  []string{"console"},
			text: "coconsole",
			want: []Match{{Phrase: "console", Start: 2, End: 9}},
		},
		{
			name: "no match",
			set:  []string{"console"},
			text: "nothing to see here",
			want: nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			scanner := NewScanner(newSet(tc.set...))
			got := scanner.Advance(tc.text)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("matches mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAdvanceAmbiguousPrefixWaits(t *testing.T) {
	scanner := NewScanner(newSet("open", "open browser"))

	require.Empty(t, scanner.Advance("open"))
	require.Empty(t, scanner.Advance("open b"))
	require.Equal(t, []string{"open browser"}, phrases(scanner.Advance("open browser")))
}

func TestResetAndSkip(t *testing.T) {
	scanner := NewScanner(newSet("console"))

	require.Len(t, scanner.Advance("console"), 1)
	scanner.Reset()
	require.Zero(t, scanner.Consumed())
	require.Len(t, scanner.Advance("console"), 1)

	scanner.Reset()
	scanner.Skip(3)
	require.Empty(t, scanner.Advance("console"))
	scanner.Skip(1)
	require.Equal(t, 3, scanner.Consumed())
}

func TestAdvanceShorterTranscriptIsNoop(t *testing.T) {
	scanner := NewScanner(newSet("console"))
	require.Len(t, scanner.Advance("open console"), 1)
	require.Empty(t, scanner.Advance("open"))
	require.Equal(t, len("open console"), scanner.Consumed())
}
