package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// ActionKind distinguishes how an action dispatches.
type ActionKind string

const (
	// KindCommand dispatches through the extension's command registry.
	KindCommand ActionKind = "command"
	// KindEx dispatches a raw editor command line.
	KindEx ActionKind = "ex"
)

// Action is one user-configured pipeline step: either disabled, or a
// command with arguments and a dispatch kind.
type Action struct {
	Name      string
	Disabled  bool
	Kind      ActionKind
	Command   string
	Args      []string
	TimeoutMs int
}

// Timeout returns the per-action override, or def when unset.
func (a Action) Timeout(def time.Duration) time.Duration {
	if a.TimeoutMs > 0 {
		return time.Duration(a.TimeoutMs) * time.Millisecond
	}
	return def
}

func (a Action) validate() []FieldError {
	if a.Disabled {
		return nil
	}
	field := func(name string) string { return "actions." + a.Name + "." + name }
	var fields []FieldError
	if a.Command == "" {
		fields = append(fields, FieldError{field("command"), "must not be empty"})
	}
	switch a.Kind {
	case KindCommand, KindEx:
	default:
		fields = append(fields, FieldError{field("kind"), fmt.Sprintf("unknown kind %q", string(a.Kind))})
	}
	if a.TimeoutMs < 0 {
		fields = append(fields, FieldError{field("timeout"), "must not be negative"})
	}
	return fields
}

// ActionList is an ordered list of named actions. JSON object order is
// the execution order, so decoding walks the tokens instead of going
// through a map.
type ActionList []Action

// UnmarshalJSON decodes a {"name": descriptor, ...} object, keeping the
// declared key order.
func (l *ActionList) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("actions: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("actions: expected an object, got %v", tok)
	}

	var actions ActionList
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("actions: %w", err)
		}
		name := keyTok.(string)
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("actions.%s: %w", name, err)
		}
		act, err := ParseAction(name, raw)
		if err != nil {
			return err
		}
		actions = append(actions, act)
	}
	*l = actions
	return nil
}

// Index returns the position of the named action, or -1.
func (l ActionList) Index(name string) int {
	for i, act := range l {
		if act.Name == name {
			return i
		}
	}
	return -1
}

// actionSpec is the decoded shape of an enabled action descriptor.
type actionSpec struct {
	Kind    string   `mapstructure:"kind"`
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
	Timeout int      `mapstructure:"timeout"`
}

// ParseAction interprets one action descriptor value: the string
// "disabled" or boolean false disables the action; an object supplies
// command, args, kind, and an optional timeout override.
func ParseAction(name string, v any) (Action, error) {
	switch val := v.(type) {
	case string:
		if val == "disabled" {
			return Action{Name: name, Disabled: true}, nil
		}
		return Action{}, fmt.Errorf("actions.%s: unrecognized value %q", name, val)
	case bool:
		if !val {
			return Action{Name: name, Disabled: true}, nil
		}
		return Action{}, fmt.Errorf("actions.%s: true is not a descriptor; supply a command object", name)
	case map[string]any:
		var spec actionSpec
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &spec,
			WeaklyTypedInput: true,
			ErrorUnused:      true,
		})
		if err != nil {
			return Action{}, err
		}
		if err := dec.Decode(val); err != nil {
			return Action{}, fmt.Errorf("actions.%s: %w", name, err)
		}
		kind := ActionKind(spec.Kind)
		if spec.Kind == "" {
			kind = KindCommand
		}
		return Action{
			Name:      name,
			Kind:      kind,
			Command:   spec.Command,
			Args:      spec.Args,
			TimeoutMs: spec.Timeout,
		}, nil
	default:
		return Action{}, fmt.Errorf("actions.%s: unrecognized descriptor shape %T", name, v)
	}
}
