package config

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvimkit/savefmt/internal/host"
	"github.com/nvimkit/savefmt/internal/host/hosttest"
)

func newTestResolver(t *testing.T, settings string, overrides ...map[string]any) *Resolver {
	t.Helper()
	fake := hosttest.New()
	fake.Overrides = overrides
	if settings != "" {
		path := filepath.Join(t.TempDir(), host.SettingsFileName)
		require.NoError(t, os.WriteFile(path, []byte(settings), 0o600))
		fake.SettingsFile = path
	}
	return NewResolver(fake, log.New(io.Discard, "", 0))
}

func TestResolveMissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	fake := hosttest.New()
	fake.SettingsFile = filepath.Join(t.TempDir(), host.SettingsFileName)
	r := NewResolver(fake, log.New(io.Discard, "", 0))

	cfg, err := r.Resolve(context.Background(), host.Document{})
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestResolveLayersFileOverDefaults(t *testing.T) {
	t.Parallel()

	r := newTestResolver(t, `{
		"savefmt": {
			"sortSettingsJson": true,
			"formatTimeout": 1500,
			"actions": {
				"second": "disabled",
				"first": {"command": "fixAll"}
			}
		}
	}`)

	cfg, err := r.Resolve(context.Background(), host.Document{})
	require.NoError(t, err)
	assert.True(t, cfg.SortSettingsJSON)
	assert.Equal(t, 1500, cfg.FormatTimeoutMs)
	assert.Equal(t, 5000, cfg.ActionTimeoutMs)

	require.Len(t, cfg.Actions, 2)
	assert.Equal(t, "second", cfg.Actions[0].Name)
	assert.True(t, cfg.Actions[0].Disabled)
	assert.Equal(t, "first", cfg.Actions[1].Name)
	assert.Equal(t, "fixAll", cfg.Actions[1].Command)
}

func TestResolveRejectsMalformedFile(t *testing.T) {
	t.Parallel()

	r := newTestResolver(t, `{"savefmt": {`)
	_, err := r.Resolve(context.Background(), host.Document{})
	require.Error(t, err)
}

func TestResolveRejectsUnknownField(t *testing.T) {
	t.Parallel()

	r := newTestResolver(t, `{"savefmt": {"enabeld": true}}`)
	_, err := r.Resolve(context.Background(), host.Document{})
	require.Error(t, err)
}

func TestResolveAppliesOverrideScopes(t *testing.T) {
	t.Parallel()

	r := newTestResolver(t,
		`{"savefmt": {"actionTimeout": 4000}}`,
		map[string]any{"actionTimeout": 2000, "organizeImportsWithFormat": true},
		map[string]any{"actionTimeout": 1000},
	)

	cfg, err := r.Resolve(context.Background(), host.Document{})
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.ActionTimeoutMs, "later scopes win")
	assert.True(t, cfg.OrganizeImportsWithFormat)
}

func TestResolveOverrideActionsKeepDeclaredOrder(t *testing.T) {
	t.Parallel()

	r := newTestResolver(t,
		`{"savefmt": {"actions": {"b": {"command": "x"}, "a": {"command": "y"}}}}`,
		map[string]any{"actions": map[string]any{
			"a": "disabled",
			"c": map[string]any{"command": "z"},
		}},
	)

	cfg, err := r.Resolve(context.Background(), host.Document{})
	require.NoError(t, err)
	require.Len(t, cfg.Actions, 3)

	assert.Equal(t, "b", cfg.Actions[0].Name, "file order preserved")
	assert.Equal(t, "a", cfg.Actions[1].Name, "override replaces in place")
	assert.True(t, cfg.Actions[1].Disabled)
	assert.Equal(t, "c", cfg.Actions[2].Name, "new names append")
}

func TestResolveValidatesFinalValue(t *testing.T) {
	t.Parallel()

	r := newTestResolver(t, `{"savefmt": {"formatTimeout": 0}}`)
	_, err := r.Resolve(context.Background(), host.Document{})
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}
