package keys

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Code
	}{
		{name: "canonical", in: "LEFTMETA", want: 125},
		{name: "lowercase", in: "dot", want: 52},
		{name: "evdev prefix", in: "KEY_ENTER", want: 28},
		{name: "super alias", in: "super", want: 125},
		{name: "ctrl alias", in: " ctrl ", want: 29},
		{name: "digit", in: "1", want: 2},
		{name: "ten alias", in: "10", want: 11},
		{name: "function key", in: "F24", want: 194},
		{name: "media key", in: "playpause", want: 164},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Lookup(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestLookupUnknownKey(t *testing.T) {
	_, err := Lookup("HYPERDRIVE")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUnknownKey))
	require.Contains(t, err.Error(), "HYPERDRIVE")
}

func TestResolvePreservesOrder(t *testing.T) {
	got, err := Resolve([]string{"LEFTMETA", "DOT"})
	require.NoError(t, err)
	require.Equal(t, []Code{125, 52}, got)

	_, err = Resolve([]string{"LEFTMETA", "nope"})
	require.ErrorIs(t, err, ErrUnknownKey)
}

func TestNameRoundTripsCanonicalCodes(t *testing.T) {
	for _, name := range Names() {
		code, err := Lookup(name)
		require.NoError(t, err, name)
		require.Equal(t, name, Name(code))
	}
	require.Equal(t, "KEY_999", Name(999))
}

func TestAliasesResolveToKnownKeys(t *testing.T) {
	for alias, canonical := range Aliases() {
		_, ok := codes[canonical]
		require.True(t, ok, "alias %s points at unknown key %s", alias, canonical)
	}
}
