package host

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"

	"github.com/neovim/go-client/nvim"
)

// SettingsFileName is the persisted settings file this extension reads,
// and the filename match that triggers the JSON key-sort step.
const SettingsFileName = "coc-settings.json"

// formatOnSaveSetting is the editor-level variable conventionally used
// by autoformat integrations. The activation gate overrides it in
// memory so the editor's own format-on-save stays out of the way.
const formatOnSaveSetting = "format_on_save"

// luaTimeoutMs bounds synchronous LSP requests issued from lua. The
// pipeline's own step timeout is expected to fire first.
const luaTimeoutMs = 60000

const formatCapLua = `
local bufnr = ...
return #vim.lsp.get_clients({ bufnr = bufnr, method = 'textDocument/formatting' }) > 0
`

const organizeCapLua = `
local bufnr, timeout = ...
local params = {
  textDocument = vim.lsp.util.make_text_document_params(bufnr),
  range = {
    start = { line = 0, character = 0 },
    ['end'] = { line = vim.api.nvim_buf_line_count(bufnr), character = 0 },
  },
  context = { diagnostics = {}, only = { 'source.organizeImports' } },
}
local results = vim.lsp.buf_request_sync(bufnr, 'textDocument/codeAction', params, timeout)
for _, res in pairs(results or {}) do
  if res.result and #res.result > 0 then
    return true
  end
end
return false
`

const organizeRunLua = `
local bufnr = ...
vim.lsp.buf.code_action({
  context = { diagnostics = {}, only = { 'source.organizeImports' } },
  apply = true,
})
return true
`

const formatRunLua = `
local bufnr, timeout = ...
vim.lsp.buf.format({ bufnr = bufnr, timeout_ms = timeout })
return true
`

// Nvim implements Host and Registrar against a live Neovim instance.
type Nvim struct {
	v      *nvim.Nvim
	logger *log.Logger

	mu       sync.Mutex
	commands map[string]CommandFunc
}

// NewNvim wraps an attached Neovim client.
func NewNvim(v *nvim.Nvim, logger *log.Logger) *Nvim {
	return &Nvim{
		v:        v,
		logger:   logger,
		commands: map[string]CommandFunc{},
	}
}

func (h *Nvim) CurrentDocument(ctx context.Context) (Document, error) {
	buf, err := h.v.CurrentBuffer()
	if err != nil {
		return Document{}, fmt.Errorf("current buffer: %w", err)
	}
	name, err := h.v.BufferName(buf)
	if err != nil {
		return Document{}, fmt.Errorf("buffer name: %w", err)
	}
	count, err := h.v.BufferLineCount(buf)
	if err != nil {
		return Document{}, fmt.Errorf("buffer line count: %w", err)
	}
	var filetype string
	if err := h.v.BufferOption(buf, "filetype", &filetype); err != nil {
		return Document{}, fmt.Errorf("buffer filetype: %w", err)
	}
	return Document{
		Buffer:    int(buf),
		Path:      name,
		Filetype:  filetype,
		LineCount: count,
	}, nil
}

// SyncDocument issues a blocking request so that every notification the
// editor queued before it has been applied by the time it returns.
func (h *Nvim) SyncDocument(ctx context.Context, doc Document) error {
	if _, err := h.v.BufferLineCount(nvim.Buffer(doc.Buffer)); err != nil {
		return fmt.Errorf("sync buffer %d: %w", doc.Buffer, err)
	}
	return nil
}

func (h *Nvim) ReadDocument(ctx context.Context, doc Document) ([]byte, error) {
	lines, err := h.v.BufferLines(nvim.Buffer(doc.Buffer), 0, -1, true)
	if err != nil {
		return nil, fmt.Errorf("read buffer %d: %w", doc.Buffer, err)
	}
	return append(bytes.Join(lines, []byte("\n")), '\n'), nil
}

func (h *Nvim) WriteDocument(ctx context.Context, doc Document, content []byte) error {
	content = bytes.TrimSuffix(content, []byte("\n"))
	lines := bytes.Split(content, []byte("\n"))
	if err := h.v.SetBufferLines(nvim.Buffer(doc.Buffer), 0, -1, true, lines); err != nil {
		return fmt.Errorf("write buffer %d: %w", doc.Buffer, err)
	}
	return nil
}

func (h *Nvim) AutoFormatEnabled(ctx context.Context, doc Document) (bool, error) {
	var val any
	if err := h.v.BufferVar(nvim.Buffer(doc.Buffer), "savefmt_format_on_save", &val); err == nil {
		return truthy(val), nil
	}
	if err := h.v.Var("savefmt_format_on_save", &val); err == nil {
		return truthy(val), nil
	}
	return true, nil
}

func (h *Nvim) FormatCapability(ctx context.Context, doc Document) (Capability, error) {
	var present bool
	if err := h.v.ExecLua(formatCapLua, &present, doc.Buffer); err != nil {
		return NoProvider, fmt.Errorf("format provider probe: %w", err)
	}
	if !present {
		return NoProvider, nil
	}
	return ProviderPresent, nil
}

func (h *Nvim) OrganizeImportsCapability(ctx context.Context, doc Document) (Capability, error) {
	var present bool
	if err := h.v.ExecLua(organizeCapLua, &present, doc.Buffer, luaTimeoutMs); err != nil {
		return NoProvider, fmt.Errorf("organize imports probe: %w", err)
	}
	if !present {
		return NoProvider, nil
	}
	return ProviderPresent, nil
}

func (h *Nvim) OrganizeImports(ctx context.Context, doc Document) error {
	var ok bool
	if err := h.v.ExecLua(organizeRunLua, &ok, doc.Buffer); err != nil {
		return fmt.Errorf("organize imports: %w", err)
	}
	return nil
}

func (h *Nvim) FormatDocument(ctx context.Context, doc Document) error {
	var ok bool
	if err := h.v.ExecLua(formatRunLua, &ok, doc.Buffer, luaTimeoutMs); err != nil {
		return fmt.Errorf("format document: %w", err)
	}
	return nil
}

func (h *Nvim) RunCommand(ctx context.Context, name string, args ...string) error {
	h.mu.Lock()
	fn, ok := h.commands[name]
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown command %q", name)
	}
	return fn(ctx, args)
}

func (h *Nvim) ExCommand(ctx context.Context, cmdline string) error {
	if err := h.v.Command(cmdline); err != nil {
		return fmt.Errorf("ex command %q: %w", cmdline, err)
	}
	return nil
}

func (h *Nvim) ConfigOverrides(ctx context.Context, doc Document) ([]map[string]any, error) {
	var scopes []map[string]any
	var global map[string]any
	if err := h.v.Var("savefmt", &global); err == nil && global != nil {
		scopes = append(scopes, global)
	}
	if doc.Buffer != 0 {
		var buffer map[string]any
		if err := h.v.BufferVar(nvim.Buffer(doc.Buffer), "savefmt", &buffer); err == nil && buffer != nil {
			scopes = append(scopes, buffer)
		}
	}
	return scopes, nil
}

func (h *Nvim) SettingsPath(ctx context.Context) (string, error) {
	var dir string
	if err := h.v.Call("stdpath", &dir, "config"); err != nil {
		return "", fmt.Errorf("config dir: %w", err)
	}
	return filepath.Join(dir, SettingsFileName), nil
}

func (h *Nvim) SetMemorySetting(ctx context.Context, name string, value any) error {
	if err := h.v.SetVar(name, value); err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}
	return nil
}

// SettingPinned reports whether the variable already carries a value
// from the user's own configuration. Var lookup fails for unset names.
func (h *Nvim) SettingPinned(ctx context.Context, name string) (bool, error) {
	var val any
	if err := h.v.Var(name, &val); err != nil {
		return false, nil
	}
	return true, nil
}

func (h *Nvim) SaveWithoutHooks(ctx context.Context, doc Document) error {
	if err := h.v.Command("noautocmd write"); err != nil {
		return fmt.Errorf("save without hooks: %w", err)
	}
	return nil
}

func (h *Nvim) Warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	h.logger.Printf("warn: %s", msg)
	if err := h.v.WriteErr("savefmt: " + msg + "\n"); err != nil {
		h.logger.Printf("notify warning: %v", err)
	}
}

func (h *Nvim) Errorf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	h.logger.Printf("error: %s", msg)
	if err := h.v.WriteErr("savefmt: " + msg + "\n"); err != nil {
		h.logger.Printf("notify error: %v", err)
	}
}

func (h *Nvim) Logf(format string, args ...any) {
	h.logger.Printf(format, args...)
}

// RegisterCommand exposes fn both through the in-process registry used
// by pipeline actions and as an editor user command backed by an RPC
// request on this channel.
func (h *Nvim) RegisterCommand(name string, fn CommandFunc) error {
	h.mu.Lock()
	h.commands[name] = fn
	h.mu.Unlock()

	method := "savefmt/" + name
	handler := func(args []string) error {
		return fn(context.Background(), args)
	}
	if err := h.v.RegisterHandler(method, handler); err != nil {
		return fmt.Errorf("register handler %s: %w", method, err)
	}
	def := fmt.Sprintf(
		"command! -nargs=* %s call rpcrequest(%d, '%s', [<f-args>])",
		userCommandName(name), h.v.ChannelID(), method,
	)
	if err := h.v.Command(def); err != nil {
		return fmt.Errorf("define command %s: %w", userCommandName(name), err)
	}
	return nil
}

// RegisterWillSave installs the BufWritePre subscription. The editor
// blocks the write until the RPC request returns.
func (h *Nvim) RegisterWillSave(fn WillSaveFunc) error {
	method := "savefmt/willSave"
	handler := func() error {
		return fn(context.Background())
	}
	if err := h.v.RegisterHandler(method, handler); err != nil {
		return fmt.Errorf("register handler %s: %w", method, err)
	}
	cmds := []string{
		"augroup savefmt",
		"autocmd!",
		fmt.Sprintf("autocmd BufWritePre * call rpcrequest(%d, '%s')", h.v.ChannelID(), method),
		"augroup END",
	}
	for _, cmd := range cmds {
		if err := h.v.Command(cmd); err != nil {
			return fmt.Errorf("install autocmd: %w", err)
		}
	}
	return nil
}

// FormatOnSaveSetting is the setting name the activation gate overrides.
func FormatOnSaveSetting() string { return formatOnSaveSetting }

func userCommandName(name string) string {
	if name == "" {
		return "Savefmt"
	}
	return "Savefmt" + strings.ToUpper(name[:1]) + name[1:]
}

func truthy(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case int64:
		return val != 0
	case uint64:
		return val != 0
	case float64:
		return val != 0
	case string:
		return val != "" && val != "0" && !strings.EqualFold(val, "false")
	default:
		return v != nil
	}
}
