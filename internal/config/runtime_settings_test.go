package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() RuntimeSettings {
	return RuntimeSettings{
		LLMAPIURL:             "https://example.test/v1",
		LLMModel:              "model-test",
		DefaultTargetLanguage: "zh",
	}
}

func TestRuntimeSettings_Validate(t *testing.T) {
	require.NoError(t, validSettings().Validate())

	tests := []struct {
		name   string
		modify func(*RuntimeSettings)
	}{
		{"missing url", func(s *RuntimeSettings) { s.LLMAPIURL = "" }},
		{"relative url", func(s *RuntimeSettings) { s.LLMAPIURL = "/v1" }},
		{"ftp url", func(s *RuntimeSettings) { s.LLMAPIURL = "ftp://example.test" }},
		{"missing model", func(s *RuntimeSettings) { s.LLMModel = " " }},
		{"missing language", func(s *RuntimeSettings) { s.DefaultTargetLanguage = "" }},
		{"bad language", func(s *RuntimeSettings) { s.DefaultTargetLanguage = "xx-!!" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			tt.modify(&s)
			assert.Error(t, s.Validate())
		})
	}
}

func TestRuntimeSettingsFile_RoundTrip(t *testing.T) {
	tmp := t.TempDir()
	filePath := filepath.Join(tmp, "settings", "runtime.json")
	input := validSettings()

	require.NoError(t, WriteRuntimeSettingsFile(filePath, input))

	got, err := LoadRuntimeSettingsFile(filePath)
	require.NoError(t, err)
	assert.Equal(t, input, got)

	info, err := os.Stat(filePath)
	require.NoError(t, err)
	assert.False(t, info.IsDir())
}

func TestLoadRuntimeSettingsFile_Invalid(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(filePath, []byte("{"), 0o600))

	_, err := LoadRuntimeSettingsFile(filePath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid settings file")

	_, err = LoadRuntimeSettingsFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestWithRuntimeSettings_OverridesConfig(t *testing.T) {
	t.Setenv("LLM_API_URL", "https://env.example/v1")
	t.Setenv("LLM_MODEL", "env-model")
	t.Setenv("DEFAULT_TARGET_LANGUAGE", "fr")

	override := RuntimeSettings{
		LLMAPIURL:             "https://file.example/v1",
		LLMModel:              "file-model",
		DefaultTargetLanguage: "ja",
	}

	cfg, err := NewFromEnv(WithRuntimeSettings(override))
	require.NoError(t, err)
	assert.Equal(t, override.LLMAPIURL, cfg.LLM.APIURL)
	assert.Equal(t, override.LLMModel, cfg.LLM.Model)
	assert.Equal(t, "ja", cfg.Translate.DefaultTargetLanguage.String())
	assert.Equal(t, override, cfg.RuntimeSettings())
}

func TestRuntimeSettingsStore_UpdatePersistsFile(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "runtime-settings.json")

	store, err := NewRuntimeSettingsStore(filePath, validSettings())
	require.NoError(t, err)

	var notified []RuntimeSettings
	store.OnUpdate(func(s RuntimeSettings) { notified = append(notified, s) })

	next := RuntimeSettings{
		LLMAPIURL:             "https://new.example/v1",
		LLMModel:              "new-model",
		DefaultTargetLanguage: "en",
	}
	got, err := store.UpdateRuntimeSettings(next)
	require.NoError(t, err)
	assert.Equal(t, next, got)
	assert.Equal(t, []RuntimeSettings{next}, notified)

	current, err := store.GetRuntimeSettings()
	require.NoError(t, err)
	assert.Equal(t, next, current)

	fromFile, err := LoadRuntimeSettingsFile(filePath)
	require.NoError(t, err)
	assert.Equal(t, next, fromFile)
}

func TestRuntimeSettingsStore_RejectsInvalidUpdate(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "runtime-settings.json")
	store, err := NewRuntimeSettingsStore(filePath, validSettings())
	require.NoError(t, err)

	bad := validSettings()
	bad.LLMModel = ""
	_, err = store.UpdateRuntimeSettings(bad)
	require.Error(t, err)

	current, _ := store.GetRuntimeSettings()
	assert.Equal(t, validSettings(), current)
	_, err = os.Stat(filePath)
	assert.True(t, os.IsNotExist(err))

	_, err = NewRuntimeSettingsStore("", validSettings())
	assert.Error(t, err)
}
