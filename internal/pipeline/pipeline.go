// Package pipeline runs the fixed sequence of formatting steps for one
// save: settings-JSON key sort, format-provider guard, import
// organization, user actions, and the final format-document call. Each
// phase contains its own failures; the save itself is never blocked.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	shellquote "github.com/kballard/go-shellquote"

	"github.com/nvimkit/savefmt/internal/config"
	"github.com/nvimkit/savefmt/internal/host"
)

// SortSettingsCommand is the registry name of the settings-JSON key
// sort command the first pipeline phase dispatches.
const SortSettingsCommand = "sortSettings"

// Pipeline executes the formatting sequence against a host editor.
type Pipeline struct {
	host     host.Host
	resolver *config.Resolver
}

func New(h host.Host, resolver *config.Resolver) *Pipeline {
	return &Pipeline{host: h, resolver: resolver}
}

// Run resolves configuration fresh and executes every applicable phase
// in order. The buffer is synced before the first phase and re-synced
// in a deferred cleanup regardless of how any phase fared. A missing
// format provider warns and stops the remaining phases without error;
// anything returned here is unexpected and surfaces as an error
// notification at the caller's boundary.
func (p *Pipeline) Run(ctx context.Context, doc host.Document) error {
	cfg, err := p.resolver.Resolve(ctx, doc)
	if err != nil {
		return fmt.Errorf("resolve configuration: %w", err)
	}

	run := uuid.NewString()[:8]
	p.host.Logf("[%s] formatting %s", run, doc.Path)

	if err := p.host.SyncDocument(ctx, doc); err != nil {
		return fmt.Errorf("sync document: %w", err)
	}
	defer func() {
		if err := p.host.SyncDocument(ctx, doc); err != nil {
			p.host.Logf("[%s] post-run sync failed: %v", run, err)
		}
	}()

	p.sortSettings(ctx, cfg, doc, run)

	capability, err := p.host.FormatCapability(ctx, doc)
	if err != nil {
		return fmt.Errorf("format provider probe: %w", err)
	}
	if !capability.Available() {
		p.host.Warnf("no format provider registered for filetype %q; formatting skipped", doc.Filetype)
		return nil
	}

	p.organizeImports(ctx, cfg, doc, run)
	p.runActions(ctx, cfg, run)

	if err := await(ctx, cfg.FormatTimeout(), func(ctx context.Context) error {
		return p.host.FormatDocument(ctx, doc)
	}); err != nil {
		return fmt.Errorf("format document: %w", err)
	}
	p.host.Logf("[%s] done", run)
	return nil
}

// sortSettings dispatches the key-sort command when the document is the
// settings file itself. Failures warn and never stop the pipeline.
func (p *Pipeline) sortSettings(ctx context.Context, cfg config.Config, doc host.Document, run string) {
	if !cfg.SortSettingsJSON || filepath.Base(doc.Path) != host.SettingsFileName {
		return
	}
	p.host.Logf("[%s] sorting %s keys", run, host.SettingsFileName)
	if err := p.host.RunCommand(ctx, SortSettingsCommand); err != nil {
		p.host.Warnf("sort %s failed: %v", host.SettingsFileName, err)
	}
}

// organizeImports probes for the organize-imports code action fresh on
// every run; providers can attach or detach between saves. An absent
// provider is logged and skipped, not an error.
func (p *Pipeline) organizeImports(ctx context.Context, cfg config.Config, doc host.Document, run string) {
	if !cfg.OrganizeImportsWithFormat {
		return
	}
	capability, err := p.host.OrganizeImportsCapability(ctx, doc)
	if err != nil {
		p.host.Warnf("organize imports probe failed: %v", err)
		return
	}
	if !capability.Available() {
		p.host.Logf("[%s] no organize imports provider for filetype %q; skipped", run, doc.Filetype)
		return
	}
	if err := await(ctx, cfg.ActionTimeout(), func(ctx context.Context) error {
		return p.host.OrganizeImports(ctx, doc)
	}); err != nil {
		p.host.Warnf("organize imports failed: %v", err)
	}
}

// runActions dispatches the user actions in declared order. A timeout
// or failure is contained to its action.
func (p *Pipeline) runActions(ctx context.Context, cfg config.Config, run string) {
	for _, act := range cfg.Actions {
		if act.Disabled {
			p.host.Logf("[%s] action %q disabled; skipped", run, act.Name)
			continue
		}
		if err := p.runAction(ctx, cfg, act); err != nil {
			p.host.Warnf("action %q failed: %v", act.Name, err)
			continue
		}
		p.host.Logf("[%s] action %q done", run, act.Name)
	}
}

func (p *Pipeline) runAction(ctx context.Context, cfg config.Config, act config.Action) error {
	timeout := act.Timeout(cfg.ActionTimeout())
	switch act.Kind {
	case config.KindCommand:
		err := await(ctx, timeout, func(ctx context.Context) error {
			return p.host.RunCommand(ctx, act.Command, act.Args...)
		})
		if err != nil {
			return err
		}
		// A command can fan out into further asynchronous work with no
		// completion signal from the host, so wait a settling delay.
		p.settle(ctx, cfg.ActionDelay())
		return nil
	case config.KindEx:
		line := act.Command
		if len(act.Args) > 0 {
			line += " " + shellquote.Join(act.Args...)
		}
		return await(ctx, timeout, func(ctx context.Context) error {
			return p.host.ExCommand(ctx, line)
		})
	default:
		return fmt.Errorf("unknown action kind %q", string(act.Kind))
	}
}

func (p *Pipeline) settle(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
