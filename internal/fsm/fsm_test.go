package fsm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransitionHappyPath(t *testing.T) {
	s := StateAsleep

	next, err := Transition(s, EventWake)
	require.NoError(t, err)
	require.Equal(t, StateAwake, next)

	next, err = Transition(next, EventDictate)
	require.NoError(t, err)
	require.Equal(t, StateDictating, next)

	next, err = Transition(next, EventFinal)
	require.NoError(t, err)
	require.Equal(t, StateAwake, next)

	next, err = Transition(next, EventRest)
	require.NoError(t, err)
	require.Equal(t, StateAsleep, next)
}

func TestTransitionRepeatedTriggersAreIdempotent(t *testing.T) {
	tests := []struct {
		name  string
		state State
		event Event
	}{
		{name: "wake while awake", state: StateAwake, event: EventWake},
		{name: "rest while asleep", state: StateAsleep, event: EventRest},
		{name: "dictate while dictating", state: StateDictating, event: EventDictate},
		{name: "final while asleep", state: StateAsleep, event: EventFinal},
		{name: "final while awake", state: StateAwake, event: EventFinal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, err := Transition(tc.state, tc.event)
			require.NoError(t, err)
			require.Equal(t, tc.state, next)
		})
	}
}

func TestTransitionMatrixInvalidTransitions(t *testing.T) {
	tests := []struct {
		name  string
		state State
		event Event
	}{
		{name: "asleep dictate invalid", state: StateAsleep, event: EventDictate},
		{name: "dictating wake invalid", state: StateDictating, event: EventWake},
		{name: "dictating rest invalid", state: StateDictating, event: EventRest},
		{name: "awake unknown event", state: StateAwake, event: Event("teleport")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, err := Transition(tc.state, tc.event)
			require.Equal(t, tc.state, next)
			require.Error(t, err)
			require.Contains(t, err.Error(), "invalid transition")
		})
	}
}

func TestTransitionUnknownState(t *testing.T) {
	next, err := Transition(State("mystery"), EventWake)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown state")
	require.Equal(t, State("mystery"), next)
}

func TestListening(t *testing.T) {
	require.False(t, StateAsleep.Listening())
	require.True(t, StateAwake.Listening())
	require.True(t, StateDictating.Listening())
}
