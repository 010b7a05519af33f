package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"maps"
	"os"
	"sort"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/nvimkit/savefmt/internal/host"
)

// Resolver produces the effective configuration for one document:
// defaults, then the persisted settings file, then the host's scoped
// override subtrees, then validation. Nothing is cached.
type Resolver struct {
	host   host.Host
	logger *log.Logger
}

func NewResolver(h host.Host, logger *log.Logger) *Resolver {
	return &Resolver{host: h, logger: logger}
}

// Resolve computes the configuration scoped to doc. A missing settings
// file is not an error; a malformed one is.
func (r *Resolver) Resolve(ctx context.Context, doc host.Document) (Config, error) {
	cfg := Default()

	path, err := r.host.SettingsPath(ctx)
	if err != nil {
		r.logger.Printf("settings path unavailable: %v", err)
	} else if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := applyFile(&cfg, data); err != nil {
				return Config{}, fmt.Errorf("settings file %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read settings file: %w", err)
		}
	}

	scopes, err := r.host.ConfigOverrides(ctx, doc)
	if err != nil {
		return Config{}, fmt.Errorf("config overrides: %w", err)
	}
	for _, scope := range scopes {
		if err := applyOverrides(&cfg, scope); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyFile layers the settings file over cfg. Scalar fields go through
// viper; the actions subtree is re-decoded from the raw bytes because
// viper maps do not preserve key order.
func applyFile(cfg *Config, data []byte) error {
	v := viper.New()
	v.SetConfigType("json")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	sub := v.GetStringMap(Key)
	if len(sub) == 0 {
		return nil
	}
	fields := maps.Clone(sub)
	delete(fields, "actions")
	if err := decodeInto(cfg, fields); err != nil {
		return err
	}

	var subtrees map[string]json.RawMessage
	if err := json.Unmarshal(data, &subtrees); err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	raw, ok := subtrees[Key]
	if !ok {
		return nil
	}
	var section struct {
		Actions ActionList `json:"actions"`
	}
	if err := json.Unmarshal(raw, &section); err != nil {
		return err
	}
	if section.Actions != nil {
		cfg.Actions = section.Actions
	}
	return nil
}

// applyOverrides layers one host-scoped subtree over cfg. Override maps
// come from editor dictionaries, which carry no key order: they may
// replace or disable named actions in place, and new names append in
// name order, but they cannot reorder the declared list.
func applyOverrides(cfg *Config, scope map[string]any) error {
	fields := maps.Clone(scope)
	actionsVal, hasActions := fields["actions"]
	delete(fields, "actions")
	if err := decodeInto(cfg, fields); err != nil {
		return err
	}
	if !hasActions {
		return nil
	}

	actionsMap, ok := actionsVal.(map[string]any)
	if !ok {
		return fmt.Errorf("actions: expected a dictionary, got %T", actionsVal)
	}
	names := make([]string, 0, len(actionsMap))
	for name := range actionsMap {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		act, err := ParseAction(name, actionsMap[name])
		if err != nil {
			return err
		}
		if idx := cfg.Actions.Index(name); idx >= 0 {
			cfg.Actions[idx] = act
		} else {
			cfg.Actions = append(cfg.Actions, act)
		}
	}
	return nil
}

func decodeInto(cfg *Config, fields map[string]any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(fields); err != nil {
		return fmt.Errorf("decode settings: %w", err)
	}
	return nil
}
