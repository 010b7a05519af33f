package extension

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvimkit/savefmt/internal/host"
	"github.com/nvimkit/savefmt/internal/host/hosttest"
	"github.com/nvimkit/savefmt/internal/pipeline"
)

func newTestExtension(t *testing.T, fake *hosttest.Fake, settings string) *Extension {
	t.Helper()
	if settings != "" {
		path := filepath.Join(t.TempDir(), host.SettingsFileName)
		require.NoError(t, os.WriteFile(path, []byte(settings), 0o600))
		fake.SettingsFile = path
	}
	return New(fake, fake, log.New(io.Discard, "", 0))
}

func TestActivateDisabledRegistersNothing(t *testing.T) {
	t.Parallel()

	fake := hosttest.New()
	ext := newTestExtension(t, fake, `{"savefmt": {"enabled": false}}`)

	require.NoError(t, ext.Activate(context.Background()))

	assert.Nil(t, fake.WillSave)
	assert.Empty(t, fake.Commands)
	for _, call := range fake.CallLog() {
		assert.False(t, strings.HasPrefix(call, "register-"), "unexpected registration %q", call)
		assert.False(t, strings.HasPrefix(call, "memory-set:"), "unexpected override %q", call)
	}
}

func TestActivateRegistersHookAndCommands(t *testing.T) {
	t.Parallel()

	fake := hosttest.New()
	ext := newTestExtension(t, fake, "")

	require.NoError(t, ext.Activate(context.Background()))

	require.NotNil(t, fake.WillSave)
	for _, name := range []string{"format", "formatIfEnabled", "saveWithoutFormat", pipeline.SortSettingsCommand} {
		assert.Contains(t, fake.Commands, name)
	}
	assert.Equal(t, false, fake.Memory[host.FormatOnSaveSetting()], "built-in format on save overridden off")
	assert.Empty(t, fake.Warnings)
}

func TestActivateWarnsWhenSettingPinned(t *testing.T) {
	t.Parallel()

	fake := hosttest.New()
	fake.Pinned = map[string]bool{host.FormatOnSaveSetting(): true}
	ext := newTestExtension(t, fake, "")

	require.NoError(t, ext.Activate(context.Background()))

	require.NotEmpty(t, fake.Warnings)
	assert.Contains(t, fake.Warnings[0], host.FormatOnSaveSetting())
	require.NotNil(t, fake.WillSave, "pinned setting is non-fatal")
}

func TestWillSaveRunsPipelineWhenAutoFormatOn(t *testing.T) {
	t.Parallel()

	fake := hosttest.New()
	fake.Doc = host.Document{Buffer: 1, Path: "/src/main.go", Filetype: "go"}
	ext := newTestExtension(t, fake, "")
	require.NoError(t, ext.Activate(context.Background()))

	require.NoError(t, fake.FireWillSave(context.Background()))
	assert.Contains(t, fake.CallLog(), "format-document")
}

func TestWillSaveSkipsWhenAutoFormatOff(t *testing.T) {
	t.Parallel()

	fake := hosttest.New()
	fake.Doc = host.Document{Buffer: 1, Path: "/src/main.go", Filetype: "go"}
	fake.AutoFormat = false
	ext := newTestExtension(t, fake, "")
	require.NoError(t, ext.Activate(context.Background()))

	require.NoError(t, fake.FireWillSave(context.Background()))
	assert.NotContains(t, fake.CallLog(), "format-document")
}

func TestFormatForSaveDecisionTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		mode       SaveMode
		autoFormat bool
		wantRun    bool
	}{
		{"always overrides preference", ModeAlways, false, true},
		{"never suppresses", ModeNever, true, false},
		{"auto follows preference on", ModeAuto, true, true},
		{"auto follows preference off", ModeAuto, false, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fake := hosttest.New()
			fake.Doc = host.Document{Buffer: 1, Path: "/src/main.go", Filetype: "go"}
			fake.AutoFormat = tt.autoFormat
			ext := newTestExtension(t, fake, "")

			ext.FormatForSave(context.Background(), tt.mode)

			if tt.wantRun {
				assert.Contains(t, fake.CallLog(), "format-document")
			} else {
				assert.NotContains(t, fake.CallLog(), "format-document")
			}
		})
	}
}

func TestSaveWithoutFormatSuppressesOneSaveOnly(t *testing.T) {
	t.Parallel()

	fake := hosttest.New()
	fake.Doc = host.Document{Buffer: 1, Path: "/src/main.go", Filetype: "go"}
	ext := newTestExtension(t, fake, "")
	require.NoError(t, ext.Activate(context.Background()))

	require.NoError(t, fake.Invoke(context.Background(), "saveWithoutFormat"))
	calls := fake.CallLog()
	assert.Contains(t, calls, "save-without-hooks")
	assert.NotContains(t, calls, "format-document")

	// The next ordinary save resumes default behavior.
	require.NoError(t, fake.FireWillSave(context.Background()))
	assert.Contains(t, fake.CallLog(), "format-document")
}

func TestSortSettingsCommandSortsBuffer(t *testing.T) {
	t.Parallel()

	fake := hosttest.New()
	fake.Doc = host.Document{Buffer: 1, Path: "/cfg/" + host.SettingsFileName, Filetype: "json"}
	fake.Content = []byte(`{"b": 1, "a": 2}` + "\n")
	ext := newTestExtension(t, fake, "")
	require.NoError(t, ext.Activate(context.Background()))

	require.NoError(t, fake.Invoke(context.Background(), pipeline.SortSettingsCommand))
	assert.Equal(t, "{\n  \"a\": 2,\n  \"b\": 1\n}\n", string(fake.Content))

	// Unchanged content writes nothing back.
	before := len(fake.CallLog())
	require.NoError(t, fake.Invoke(context.Background(), pipeline.SortSettingsCommand))
	assert.NotContains(t, fake.CallLog()[before:], "write")
}

func TestPipelineFailureNotifiesWithoutBlockingSave(t *testing.T) {
	t.Parallel()

	fake := hosttest.New()
	fake.Doc = host.Document{Buffer: 1, Path: "/src/main.go", Filetype: "go"}
	fake.FormatHook = func(ctx context.Context) error {
		return context.DeadlineExceeded
	}
	ext := newTestExtension(t, fake, "")
	require.NoError(t, ext.Activate(context.Background()))

	require.NoError(t, fake.FireWillSave(context.Background()), "save is never blocked")
	require.NotEmpty(t, fake.Errors)
	assert.Contains(t, fake.Errors[0], "formatting failed")
}
