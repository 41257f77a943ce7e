package indicator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rbright/tempest/internal/fsm"
)

func TestResolveLocaleDefaultsToEnglish(t *testing.T) {
	require.Equal(t, localeEnglish, resolveLocale("en_US.UTF-8"))
	require.Equal(t, localeEnglish, resolveLocale("fr_FR.UTF-8"))
}

func TestIndicatorMessagesEnglish(t *testing.T) {
	msg := indicatorMessages(localeEnglish)
	require.Equal(t, "Listening for commands", msg.forMode(fsm.StateAwake))
	require.Equal(t, "Asleep", msg.forMode(fsm.StateAsleep))
	require.Equal(t, "Dictating…", msg.forMode(fsm.StateDictating))
	require.Empty(t, msg.forMode("unknown"))
}
