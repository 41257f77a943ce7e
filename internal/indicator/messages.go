package indicator

import (
	"os"
	"strings"

	"github.com/rbright/tempest/internal/fsm"
)

type locale string

const (
	localeEnglish locale = "en"
)

type messages struct {
	awake     string
	asleep    string
	dictating string
}

func (m messages) forMode(mode fsm.State) string {
	switch mode {
	case fsm.StateAwake:
		return m.awake
	case fsm.StateAsleep:
		return m.asleep
	case fsm.StateDictating:
		return m.dictating
	default:
		return ""
	}
}

func indicatorMessagesFromEnv() messages {
	return indicatorMessages(resolveLocale(os.Getenv("LANG")))
}

func resolveLocale(raw string) locale {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(raw, "en") {
		return localeEnglish
	}
	return localeEnglish
}

func indicatorMessages(tag locale) messages {
	switch tag {
	case localeEnglish:
		fallthrough
	default:
		return messages{
			awake:     "Listening for commands",
			asleep:    "Asleep",
			dictating: "Dictating…",
		}
	}
}
