// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package config loads and defaults the declarative project configuration
// at <projectRoot>/.grafema/config.yaml: the list of services to analyze
// and the plugin set to run, marshaled with gopkg.in/yaml.v3.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// ServiceConfig names one analyzable unit (a directory rooted at Path, of
// language Language) within a multi-service repository.
type ServiceConfig struct {
	Name     string `yaml:"name"`
	Path     string `yaml:"path"`
	Language string `yaml:"language,omitempty"`
}

// PluginConfig enables or overrides priority for one named plugin.
type PluginConfig struct {
	Name     string `yaml:"name"`
	Enabled  *bool  `yaml:"enabled,omitempty"`
	Priority *int   `yaml:"priority,omitempty"`
}

// Config is the full declarative project configuration.
type Config struct {
	ProjectID    string          `yaml:"projectId"`
	Services     []ServiceConfig `yaml:"services"`
	Plugins      []PluginConfig  `yaml:"plugins,omitempty"`
	WorkerCount  int             `yaml:"workerCount"`
	StrictMode   bool            `yaml:"strictMode"`
	ExcludeGlobs []string        `yaml:"excludeGlobs,omitempty"`
	MaxFileSize  int64           `yaml:"maxFileSizeBytes"`
}

// DefaultExcludeGlobs mirrors the patterns a source repo almost always
// wants skipped, regardless of language.
var DefaultExcludeGlobs = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/dist/**",
	"**/build/**",
	"**/vendor/**",
	"**/*.min.js",
}

// DefaultConfig returns a Config with sane defaults for a freshly
// initialized project, rooted at a single service named projectID.
func DefaultConfig(projectID string) *Config {
	return &Config{
		ProjectID:    projectID,
		Services:     []ServiceConfig{{Name: projectID, Path: "."}},
		WorkerCount:  defaultWorkerCount(),
		StrictMode:   false,
		ExcludeGlobs: append([]string(nil), DefaultExcludeGlobs...),
		MaxFileSize:  5 * 1024 * 1024,
	}
}

func defaultWorkerCount() int {
	n := runtime.NumCPU()
	if n > 8 {
		return 8
	}
	if n < 1 {
		return 1
	}
	return n
}

// DirName is the project-relative directory holding all grafema state.
const DirName = ".grafema"

// FileName is the config file's name within DirName.
const FileName = "config.yaml"

// Path returns <projectRoot>/.grafema/config.yaml.
func Path(projectRoot string) string {
	return filepath.Join(projectRoot, DirName, FileName)
}

// ManifestPath returns <projectRoot>/.grafema/manifest.
func ManifestPath(projectRoot string) string {
	return filepath.Join(projectRoot, DirName, "manifest")
}

// PluginsDir returns <projectRoot>/.grafema/plugins.
func PluginsDir(projectRoot string) string {
	return filepath.Join(projectRoot, DirName, "plugins")
}

// Load reads and parses the config at projectRoot, applying defaults for
// WorkerCount, MaxFileSize and ExcludeGlobs when the file leaves them
// unset. Other fields keep their zero values.
func Load(projectRoot string) (*Config, error) {
	path := Path(projectRoot)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = defaultWorkerCount()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 5 * 1024 * 1024
	}
	if len(cfg.ExcludeGlobs) == 0 {
		cfg.ExcludeGlobs = append([]string(nil), DefaultExcludeGlobs...)
	}
}

// Save serializes cfg as YAML to <projectRoot>/.grafema/config.yaml,
// creating the directory if needed.
func Save(projectRoot string, cfg *Config) error {
	dir := filepath.Join(projectRoot, DirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("config: mkdir %s: %w", dir, err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	path := Path(projectRoot)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// PluginEnabled reports whether name is enabled per cfg.Plugins, defaulting
// to true when name has no explicit entry.
func (c *Config) PluginEnabled(name string) bool {
	for _, p := range c.Plugins {
		if p.Name == name {
			return p.Enabled == nil || *p.Enabled
		}
	}
	return true
}

// PluginPriorityOverride returns an explicit priority override for name,
// and whether one was configured.
func (c *Config) PluginPriorityOverride(name string) (int, bool) {
	for _, p := range c.Plugins {
		if p.Name == name && p.Priority != nil {
			return *p.Priority, true
		}
	}
	return 0, false
}

// AsMap renders cfg into the loosely typed map plugin.Context.Config
// carries, so plugins that only need a couple of scalar settings don't
// need to import this package.
func (c *Config) AsMap() map[string]any {
	return map[string]any{
		"projectId":    c.ProjectID,
		"workerCount":  c.WorkerCount,
		"strictMode":   c.StrictMode,
		"excludeGlobs": c.ExcludeGlobs,
		"maxFileSize":  c.MaxFileSize,
	}
}
