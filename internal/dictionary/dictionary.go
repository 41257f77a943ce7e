// Package dictionary compiles configured phrases into prefix-searchable match sets.
package dictionary

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rbright/tempest/internal/config"
	"github.com/rbright/tempest/internal/keys"
)

// ActionKind tags the Action variant.
type ActionKind int

const (
	ActionKeyChord ActionKind = iota + 1
	ActionShellCommand
)

func (k ActionKind) String() string {
	switch k {
	case ActionKeyChord:
		return "keys"
	case ActionShellCommand:
		return "command"
	default:
		return fmt.Sprintf("action(%d)", int(k))
	}
}

// Action is what an action phrase resolves to.
type Action struct {
	Kind ActionKind
	Keys []keys.Code
	Argv []string
}

// Privileged reports whether the action needs the input-injection daemon.
func (a Action) Privileged() bool {
	return a.Kind == ActionKeyChord
}

// ModeKind tags the Mode variant.
type ModeKind int

const (
	ModeWake ModeKind = iota + 1
	ModeRest
	ModeDictate
	ModeCustom
)

func (k ModeKind) String() string {
	switch k {
	case ModeWake:
		return "wake"
	case ModeRest:
		return "rest"
	case ModeDictate:
		return "dictate"
	case ModeCustom:
		return "custom"
	default:
		return fmt.Sprintf("mode(%d)", int(k))
	}
}

// Mode is what a trigger phrase resolves to. Name is set for ModeCustom only.
type Mode struct {
	Kind ModeKind
	Name string
}

// Dictionary holds both phrase sets and their resolution maps.
type Dictionary struct {
	Actions *Trie
	Modes   *Trie

	actions map[string]Action
	modes   map[string]Mode
	phrases []string
}

// Normalize case-folds phrase and collapses whitespace runs.
func Normalize(phrase string) string {
	return config.NormalizePhrase(phrase)
}

// Compile builds the action and mode sets from cfg.
func Compile(cfg config.Config) (*Dictionary, error) {
	d := &Dictionary{
		Actions: NewTrie(),
		Modes:   NewTrie(),
		actions: make(map[string]Action, len(cfg.Actions)),
		modes:   make(map[string]Mode, 3+len(cfg.Triggers.Custom)),
		phrases: make([]string, 0, len(cfg.Actions)),
	}

	required := []struct {
		label  string
		phrase string
		mode   Mode
	}{
		{label: "triggers.wake", phrase: cfg.Triggers.Wake, mode: Mode{Kind: ModeWake}},
		{label: "triggers.rest", phrase: cfg.Triggers.Rest, mode: Mode{Kind: ModeRest}},
		{label: "triggers.dictate", phrase: cfg.Triggers.Dictate, mode: Mode{Kind: ModeDictate}},
	}
	for _, trigger := range required {
		if err := d.addMode(trigger.label, trigger.phrase, trigger.mode); err != nil {
			return nil, err
		}
	}
	for i, custom := range cfg.Triggers.Custom {
		label := fmt.Sprintf("triggers.custom[%d]", i)
		if strings.TrimSpace(custom.Name) == "" {
			return nil, fmt.Errorf("%s: name must not be empty", label)
		}
		if err := d.addMode(label, custom.Phrase, Mode{Kind: ModeCustom, Name: strings.TrimSpace(custom.Name)}); err != nil {
			return nil, err
		}
	}

	for i, entry := range cfg.Actions {
		label := fmt.Sprintf("actions[%d]", i)
		phrase := Normalize(entry.Phrase)
		if phrase == "" {
			return nil, fmt.Errorf("%s: phrase must not be empty", label)
		}
		if _, exists := d.actions[phrase]; exists {
			return nil, fmt.Errorf("%s: duplicate action phrase %q", label, phrase)
		}

		action, err := compileAction(entry)
		if err != nil {
			return nil, fmt.Errorf("%s (%q): %w", label, phrase, err)
		}

		d.actions[phrase] = action
		d.phrases = append(d.phrases, phrase)
		d.Actions.Insert(phrase)
	}

	return d, nil
}

func (d *Dictionary) addMode(label string, raw string, mode Mode) error {
	phrase := Normalize(raw)
	if phrase == "" {
		return fmt.Errorf("%s: phrase must not be empty", label)
	}
	if existing, exists := d.modes[phrase]; exists {
		return fmt.Errorf("%s: phrase %q already used by the %s trigger", label, phrase, existing.Kind)
	}
	d.modes[phrase] = mode
	d.Modes.Insert(phrase)
	return nil
}

func compileAction(entry config.ActionConfig) (Action, error) {
	hasKeys := len(entry.Keys) > 0
	hasCommand := len(entry.Command.Argv) > 0

	switch {
	case hasKeys && hasCommand:
		return Action{}, errors.New("keys and command are mutually exclusive")
	case hasKeys:
		codes, err := keys.Resolve(entry.Keys)
		if err != nil {
			return Action{}, err
		}
		return Action{Kind: ActionKeyChord, Keys: codes}, nil
	case hasCommand:
		argv := append([]string(nil), entry.Command.Argv...)
		return Action{Kind: ActionShellCommand, Argv: argv}, nil
	default:
		return Action{}, errors.New("one of keys or command is required")
	}
}

// Action resolves an action phrase. Lookup is case-insensitive.
func (d *Dictionary) Action(phrase string) (Action, bool) {
	action, ok := d.actions[Normalize(phrase)]
	return action, ok
}

// Mode resolves a trigger phrase. Lookup is case-insensitive.
func (d *Dictionary) Mode(phrase string) (Mode, bool) {
	mode, ok := d.modes[Normalize(phrase)]
	return mode, ok
}

// Phrases returns action phrases in configuration order.
func (d *Dictionary) Phrases() []string {
	return append([]string(nil), d.phrases...)
}

// Fingerprint is a short stable digest of every phrase and its resolution.
// Two processes compiled from the same configuration report the same value.
func (d *Dictionary) Fingerprint() string {
	lines := make([]string, 0, len(d.actions)+len(d.modes))
	for phrase, action := range d.actions {
		payload := strings.Join(action.Argv, "\x1f")
		if action.Kind == ActionKeyChord {
			parts := make([]string, 0, len(action.Keys))
			for _, code := range action.Keys {
				parts = append(parts, fmt.Sprintf("%d", code))
			}
			payload = strings.Join(parts, ",")
		}
		lines = append(lines, "a\t"+phrase+"\t"+action.Kind.String()+"\t"+payload)
	}
	for phrase, mode := range d.modes {
		lines = append(lines, "m\t"+phrase+"\t"+mode.Kind.String()+"\t"+mode.Name)
	}
	sort.Strings(lines)

	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:8])
}
