// Package extension wires the extension into the host editor: the
// activation gate, the pre-save interceptor, and the registered user
// commands.
package extension

import (
	"bytes"
	"context"
	"fmt"
	"log"

	"github.com/nvimkit/savefmt/internal/config"
	"github.com/nvimkit/savefmt/internal/host"
	"github.com/nvimkit/savefmt/internal/pipeline"
	"github.com/nvimkit/savefmt/internal/sortjson"
)

// SaveMode controls whether the pipeline runs for one save request. It
// is threaded explicitly through each call; no mode outlives a request.
type SaveMode int

const (
	// ModeAuto defers to the host's native auto-format preference.
	ModeAuto SaveMode = iota
	// ModeAlways runs the pipeline unconditionally.
	ModeAlways
	// ModeNever suppresses the pipeline.
	ModeNever
)

func (m SaveMode) String() string {
	switch m {
	case ModeAlways:
		return "always"
	case ModeNever:
		return "never"
	default:
		return "auto"
	}
}

// Extension owns the save interceptor and the registered commands.
type Extension struct {
	host     host.Host
	reg      host.Registrar
	resolver *config.Resolver
	pipeline *pipeline.Pipeline
	logger   *log.Logger
}

func New(h host.Host, reg host.Registrar, logger *log.Logger) *Extension {
	resolver := config.NewResolver(h, logger)
	return &Extension{
		host:     h,
		reg:      reg,
		resolver: resolver,
		pipeline: pipeline.New(h, resolver),
		logger:   logger,
	}
}

// Activate reads the enabled flag and, when set, suppresses the host's
// built-in format-on-save, installs the pre-save subscription, and
// registers the user commands. When disabled, nothing is registered.
func (e *Extension) Activate(ctx context.Context) error {
	cfg, err := e.resolver.Resolve(ctx, host.Document{})
	if err != nil {
		e.host.Warnf("configuration invalid, using defaults: %v", err)
		cfg = config.Default()
	}
	if !cfg.Enabled {
		e.logger.Printf("disabled by configuration; nothing registered")
		return nil
	}

	e.suppressHostFormatting(ctx)

	if err := e.reg.RegisterWillSave(e.willSave); err != nil {
		return fmt.Errorf("register pre-save hook: %w", err)
	}
	commands := []struct {
		name string
		fn   host.CommandFunc
	}{
		{"format", func(ctx context.Context, _ []string) error {
			e.FormatForSave(ctx, ModeAlways)
			return nil
		}},
		{"formatIfEnabled", func(ctx context.Context, _ []string) error {
			e.FormatForSave(ctx, ModeAuto)
			return nil
		}},
		{"saveWithoutFormat", e.saveWithoutFormat},
		{pipeline.SortSettingsCommand, e.sortSettings},
	}
	for _, cmd := range commands {
		if err := e.reg.RegisterCommand(cmd.name, cmd.fn); err != nil {
			return fmt.Errorf("register command %q: %w", cmd.name, err)
		}
	}
	e.logger.Printf("activated")
	return nil
}

// suppressHostFormatting overrides the editor's own format-on-save in
// memory. A pinned user setting means the override will not take
// effect; that only warrants a warning. Never fatal.
func (e *Extension) suppressHostFormatting(ctx context.Context) {
	setting := host.FormatOnSaveSetting()
	if pinned, err := e.host.SettingPinned(ctx, setting); err == nil && pinned {
		e.host.Warnf("%q is set in your configuration; the built-in format on save stays active", setting)
	}
	if err := e.host.SetMemorySetting(ctx, setting, false); err != nil {
		e.host.Warnf("could not disable built-in format on save: %v", err)
	}
}

// willSave is the pre-save interceptor. It never returns an error: a
// failed pipeline must not block the save it intercepted.
func (e *Extension) willSave(ctx context.Context) error {
	e.FormatForSave(ctx, ModeAuto)
	return nil
}

// FormatForSave applies the decision table for mode and runs the
// pipeline when it says so. Failures surface as notifications.
func (e *Extension) FormatForSave(ctx context.Context, mode SaveMode) {
	doc, err := e.host.CurrentDocument(ctx)
	if err != nil {
		e.host.Errorf("current document: %v", err)
		return
	}
	if !e.shouldRun(ctx, mode, doc) {
		e.host.Logf("save mode %s: formatting skipped for %s", mode, doc.Path)
		return
	}
	if err := e.pipeline.Run(ctx, doc); err != nil {
		e.host.Errorf("formatting failed: %v", err)
	}
}

func (e *Extension) shouldRun(ctx context.Context, mode SaveMode, doc host.Document) bool {
	switch mode {
	case ModeAlways:
		return true
	case ModeNever:
		return false
	default:
		enabled, err := e.host.AutoFormatEnabled(ctx, doc)
		if err != nil {
			e.host.Logf("auto-format preference unavailable: %v", err)
			return false
		}
		return enabled
	}
}

// saveWithoutFormat writes the document with pre-save hooks bypassed,
// so the suppression holds for exactly this save and nothing persists
// into the next one.
func (e *Extension) saveWithoutFormat(ctx context.Context, _ []string) error {
	doc, err := e.host.CurrentDocument(ctx)
	if err != nil {
		return err
	}
	if err := e.host.SaveWithoutHooks(ctx, doc); err != nil {
		return fmt.Errorf("save without format: %w", err)
	}
	return nil
}

// sortSettings rewrites the current buffer with sorted JSON keys. The
// pipeline dispatches this through the command registry when the saved
// document is the settings file.
func (e *Extension) sortSettings(ctx context.Context, _ []string) error {
	doc, err := e.host.CurrentDocument(ctx)
	if err != nil {
		return err
	}
	data, err := e.host.ReadDocument(ctx, doc)
	if err != nil {
		return err
	}
	sorted, err := sortjson.Sort(data)
	if err != nil {
		return fmt.Errorf("sort settings json: %w", err)
	}
	if bytes.Equal(sorted, data) {
		return nil
	}
	return e.host.WriteDocument(ctx, doc, sorted)
}
