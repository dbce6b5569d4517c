// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigHasSaneDefaults(t *testing.T) {
	cfg := DefaultConfig("myproject")
	assert.Equal(t, "myproject", cfg.ProjectID)
	assert.NotZero(t, cfg.WorkerCount)
	assert.False(t, cfg.StrictMode)
	assert.NotEmpty(t, cfg.ExcludeGlobs)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	root := t.TempDir()
	cfg := DefaultConfig("roundtrip")
	cfg.Services = append(cfg.Services, ServiceConfig{Name: "api", Path: "services/api", Language: "typescript"})

	require.NoError(t, Save(root, cfg))
	assert.FileExists(t, Path(root))

	loaded, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, "roundtrip", loaded.ProjectID)
	require.Len(t, loaded.Services, 2)
	assert.Equal(t, "api", loaded.Services[1].Name)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestLoadAppliesDefaultsForZeroFields(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, Save(root, &Config{ProjectID: "p", Services: []ServiceConfig{{Name: "p", Path: "."}}}))

	loaded, err := Load(root)
	require.NoError(t, err)
	assert.NotZero(t, loaded.WorkerCount)
	assert.NotEmpty(t, loaded.ExcludeGlobs)
	assert.NotZero(t, loaded.MaxFileSize)
}

func TestPluginEnabledDefaultsTrue(t *testing.T) {
	cfg := DefaultConfig("p")
	assert.True(t, cfg.PluginEnabled("anything"))
}

func TestPluginEnabledRespectsExplicitFalse(t *testing.T) {
	cfg := DefaultConfig("p")
	disabled := false
	cfg.Plugins = []PluginConfig{{Name: "AwaitInLoopValidator", Enabled: &disabled}}
	assert.False(t, cfg.PluginEnabled("AwaitInLoopValidator"))
	assert.True(t, cfg.PluginEnabled("OtherPlugin"))
}

func TestPluginPriorityOverride(t *testing.T) {
	cfg := DefaultConfig("p")
	priority := 42
	cfg.Plugins = []PluginConfig{{Name: "ImportExportLinker", Priority: &priority}}

	got, ok := cfg.PluginPriorityOverride("ImportExportLinker")
	require.True(t, ok)
	assert.Equal(t, 42, got)

	_, ok = cfg.PluginPriorityOverride("Unset")
	assert.False(t, ok)
}

func TestPathHelpers(t *testing.T) {
	root := "/repo"
	assert.Equal(t, "/repo/.grafema/config.yaml", Path(root))
	assert.Equal(t, "/repo/.grafema/manifest", ManifestPath(root))
	assert.Equal(t, "/repo/.grafema/plugins", PluginsDir(root))
}
