// Package host defines the editor surface the extension runs against:
// documents, commands, configuration scopes, capability queries, and
// user notifications. The production implementation talks to Neovim
// over msgpack-RPC; tests script a fake.
package host

import "context"

// Document identifies one open buffer in the editor.
type Document struct {
	Buffer    int
	Path      string
	Filetype  string
	LineCount int
}

// Capability is the result of a provider probe. Providers can attach or
// detach between saves, so callers query fresh on every invocation.
type Capability int

const (
	NoProvider Capability = iota
	ProviderPresent
)

// Available reports whether a provider answered the probe.
func (c Capability) Available() bool { return c == ProviderPresent }

// CommandFunc handles one registered editor command invocation.
type CommandFunc func(ctx context.Context, args []string) error

// WillSaveFunc handles one pre-save event. The editor blocks the save
// until the handler returns.
type WillSaveFunc func(ctx context.Context) error

// Host is the editor collaborator surface consumed by the pipeline.
type Host interface {
	// CurrentDocument returns the buffer the editor is acting on.
	CurrentDocument(ctx context.Context) (Document, error)

	// SyncDocument forces a round-trip that drains any edits the
	// editor has queued for the buffer.
	SyncDocument(ctx context.Context, doc Document) error

	// ReadDocument and WriteDocument access the full buffer text.
	ReadDocument(ctx context.Context, doc Document) ([]byte, error)
	WriteDocument(ctx context.Context, doc Document, content []byte) error

	// AutoFormatEnabled reports the editor's native per-document
	// format-on-save preference.
	AutoFormatEnabled(ctx context.Context, doc Document) (bool, error)

	// FormatCapability probes for a format provider serving the
	// document's filetype.
	FormatCapability(ctx context.Context, doc Document) (Capability, error)

	// OrganizeImportsCapability probes for an organize-imports code
	// action over the whole-document range.
	OrganizeImportsCapability(ctx context.Context, doc Document) (Capability, error)

	OrganizeImports(ctx context.Context, doc Document) error
	FormatDocument(ctx context.Context, doc Document) error

	// RunCommand dispatches a command registered in the extension's
	// namespaced registry.
	RunCommand(ctx context.Context, name string, args ...string) error

	// ExCommand dispatches a raw editor command line.
	ExCommand(ctx context.Context, cmdline string) error

	// ConfigOverrides returns the configuration subtrees scoped to the
	// document, least specific first.
	ConfigOverrides(ctx context.Context, doc Document) ([]map[string]any, error)

	// SettingsPath returns the location of the persisted settings file.
	SettingsPath(ctx context.Context) (string, error)

	// SetMemorySetting writes an in-memory-only editor setting.
	SetMemorySetting(ctx context.Context, name string, value any) error

	// SettingPinned reports whether the user's own persisted
	// configuration already supplies the setting, in which case an
	// in-memory override will not take effect.
	SettingPinned(ctx context.Context, name string) (bool, error)

	// SaveWithoutHooks writes the document bypassing pre-save hooks.
	SaveWithoutHooks(ctx context.Context, doc Document) error

	// Warnf and Errorf surface user-visible notifications; Logf writes
	// to the extension log channel only.
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Logf(format string, args ...any)
}

// Registrar is the activation surface: hook and command registration.
type Registrar interface {
	RegisterCommand(name string, fn CommandFunc) error
	RegisterWillSave(fn WillSaveFunc) error
}
