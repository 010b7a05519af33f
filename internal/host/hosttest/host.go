// Package hosttest provides a scripted in-memory host.Host and
// host.Registrar for exercising the pipeline and extension without an
// editor attached.
package hosttest

import (
	"context"
	"fmt"
	"sync"

	"github.com/nvimkit/savefmt/internal/host"
)

// Fake is a scripted host. Zero value: one unnamed document, every
// provider present, auto-format on, no settings file.
type Fake struct {
	mu sync.Mutex

	Doc              host.Document
	AutoFormat       bool
	AutoFormatSet    bool
	FormatProvider   host.Capability
	OrganizeProvider host.Capability
	Overrides        []map[string]any
	SettingsFile     string
	Pinned           map[string]bool
	Memory           map[string]any
	Content          []byte

	// Hooks override the default behavior of a dispatch when set.
	CommandHooks map[string]func(ctx context.Context, args []string) error
	ExHook       func(ctx context.Context, line string) error
	FormatHook   func(ctx context.Context) error
	OrganizeErr  error

	Commands map[string]host.CommandFunc
	WillSave host.WillSaveFunc

	Calls    []string
	Warnings []string
	Errors   []string
	Logs     []string
}

// New returns a Fake with every provider present and auto-format on.
func New() *Fake {
	return &Fake{
		AutoFormat:       true,
		AutoFormatSet:    true,
		FormatProvider:   host.ProviderPresent,
		OrganizeProvider: host.ProviderPresent,
		Memory:           map[string]any{},
		Commands:         map[string]host.CommandFunc{},
	}
}

func (f *Fake) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, call)
}

// CallLog returns a copy of the recorded calls in order.
func (f *Fake) CallLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Calls...)
}

func (f *Fake) CurrentDocument(ctx context.Context) (host.Document, error) {
	return f.Doc, nil
}

func (f *Fake) SyncDocument(ctx context.Context, doc host.Document) error {
	f.record("sync")
	return nil
}

func (f *Fake) ReadDocument(ctx context.Context, doc host.Document) ([]byte, error) {
	f.record("read")
	return append([]byte(nil), f.Content...), nil
}

func (f *Fake) WriteDocument(ctx context.Context, doc host.Document, content []byte) error {
	f.record("write")
	f.Content = append([]byte(nil), content...)
	return nil
}

func (f *Fake) AutoFormatEnabled(ctx context.Context, doc host.Document) (bool, error) {
	if !f.AutoFormatSet {
		return true, nil
	}
	return f.AutoFormat, nil
}

func (f *Fake) FormatCapability(ctx context.Context, doc host.Document) (host.Capability, error) {
	f.record("probe-format")
	return f.FormatProvider, nil
}

func (f *Fake) OrganizeImportsCapability(ctx context.Context, doc host.Document) (host.Capability, error) {
	f.record("probe-organize")
	return f.OrganizeProvider, nil
}

func (f *Fake) OrganizeImports(ctx context.Context, doc host.Document) error {
	f.record("organize-imports")
	return f.OrganizeErr
}

func (f *Fake) FormatDocument(ctx context.Context, doc host.Document) error {
	f.record("format-document")
	if f.FormatHook != nil {
		return f.FormatHook(ctx)
	}
	return nil
}

func (f *Fake) RunCommand(ctx context.Context, name string, args ...string) error {
	f.record("command:" + name)
	if hook, ok := f.CommandHooks[name]; ok {
		return hook(ctx, args)
	}
	if fn, ok := f.Commands[name]; ok {
		return fn(ctx, args)
	}
	return fmt.Errorf("unknown command %q", name)
}

func (f *Fake) ExCommand(ctx context.Context, line string) error {
	f.record("ex:" + line)
	if f.ExHook != nil {
		return f.ExHook(ctx, line)
	}
	return nil
}

func (f *Fake) ConfigOverrides(ctx context.Context, doc host.Document) ([]map[string]any, error) {
	return f.Overrides, nil
}

func (f *Fake) SettingsPath(ctx context.Context) (string, error) {
	return f.SettingsFile, nil
}

func (f *Fake) SetMemorySetting(ctx context.Context, name string, value any) error {
	f.record("memory-set:" + name)
	f.Memory[name] = value
	return nil
}

func (f *Fake) SettingPinned(ctx context.Context, name string) (bool, error) {
	return f.Pinned[name], nil
}

func (f *Fake) SaveWithoutHooks(ctx context.Context, doc host.Document) error {
	f.record("save-without-hooks")
	return nil
}

func (f *Fake) Warnf(format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Warnings = append(f.Warnings, fmt.Sprintf(format, args...))
}

func (f *Fake) Errorf(format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errors = append(f.Errors, fmt.Sprintf(format, args...))
}

func (f *Fake) Logf(format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Logs = append(f.Logs, fmt.Sprintf(format, args...))
}

func (f *Fake) RegisterCommand(name string, fn host.CommandFunc) error {
	f.record("register-command:" + name)
	f.Commands[name] = fn
	return nil
}

func (f *Fake) RegisterWillSave(fn host.WillSaveFunc) error {
	f.record("register-will-save")
	f.WillSave = fn
	return nil
}

// FireWillSave simulates one pre-save event from the editor.
func (f *Fake) FireWillSave(ctx context.Context) error {
	if f.WillSave == nil {
		return fmt.Errorf("no pre-save subscription registered")
	}
	return f.WillSave(ctx)
}

// Invoke dispatches a registered command the way the editor would.
func (f *Fake) Invoke(ctx context.Context, name string, args ...string) error {
	fn, ok := f.Commands[name]
	if !ok {
		return fmt.Errorf("command %q not registered", name)
	}
	return fn(ctx, args)
}
