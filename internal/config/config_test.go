package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bubby932/rhl/internal/preprocess"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "rhl.yaml", `
defines:
  - DEBUG
  - VERSION=1.2
include_dirs: [lib, vendor/rhl]
max_include_depth: 8
inverted_polarity: true
normalize_unicode: true
cache: build/rhl.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"DEBUG", "VERSION=1.2"}, cfg.Defines)
	assert.Equal(t, []string{"lib", "vendor/rhl"}, cfg.IncludeDirs)
	assert.Equal(t, 8, cfg.MaxIncludeDepth)
	assert.True(t, cfg.InvertedPolarity)
	assert.True(t, cfg.NormalizeUnicode)
	assert.Equal(t, "build/rhl.db", cfg.Cache)
	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, preprocess.PolarityInverted, cfg.Polarity())

	defs, err := cfg.Definitions()
	require.NoError(t, err)
	assert.Equal(t, []preprocess.Definition{
		preprocess.Flag("DEBUG"),
		preprocess.Valued("VERSION", "1.2"),
	}, defs)
}

func TestLoad_CUE(t *testing.T) {
	path := writeFile(t, t.TempDir(), "rhl.cue", `
defines: ["RELEASE", "NAME=rhl"]
max_include_depth: 16
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"RELEASE", "NAME=rhl"}, cfg.Defines)
	assert.Equal(t, 16, cfg.MaxIncludeDepth)
	assert.False(t, cfg.InvertedPolarity)
	assert.Empty(t, cfg.IncludeDirs)
	assert.Equal(t, preprocess.PolarityStandard, cfg.Polarity())
}

func TestLoad_EmptyYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "rhl.yml", "")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Defines)
	assert.Zero(t, cfg.MaxIncludeDepth)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unknown field yaml", "rhl.yaml", "bogus: 1\n"},
		{"unknown field cue", "rhl.cue", "bogus: 1\n"},
		{"depth too small", "rhl.yaml", "max_include_depth: 0\n"},
		{"depth too large", "rhl.cue", "max_include_depth: 5000\n"},
		{"define with space", "rhl.yaml", "defines: [\"TWO WORDS\"]\n"},
		{"define without name", "rhl.yaml", "defines: [\"=1\"]\n"},
		{"wrong type", "rhl.yaml", "inverted_polarity: yes please\n"},
		{"invalid yaml", "rhl.yaml", "defines: [\n"},
		{"invalid cue", "rhl.cue", "defines: [\n"},
		{"unsupported format", "rhl.toml", "defines = []\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), tt.file, tt.content)
			_, err := Load(path)
			require.Error(t, err)

			var cfgErr *Error
			assert.True(t, errors.As(err, &cfgErr), "expected *Error, got %T", err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "rhl.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestFind_PrefersCUE(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "rhl.yaml", "defines: [FROM_YAML]\n")
	writeFile(t, dir, "rhl.cue", "defines: [\"FROM_CUE\"]\n")

	path, ok := Find(dir)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "rhl.cue"), path)

	cfg, err := LoadDefault(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"FROM_CUE"}, cfg.Defines)
}

func TestLoadDefault_NoFile(t *testing.T) {
	cfg, err := LoadDefault(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
}

func TestError_Message(t *testing.T) {
	err := &Error{Path: "rhl.yaml", Message: "bad"}
	assert.Equal(t, "rhl.yaml: bad", err.Error())
}
