package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	BaseUrl  string `json:"base_url" yaml:"base_url"`
	Interval int    `json:"interval_minutes" yaml:"interval_minutes"`
	Username string `json:"username" yaml:"username"`
}

func writeFile(t testing.TB, path, contents string) {
	err := os.WriteFile(path, []byte(contents), 0600)
	if err != nil {
		t.Fatal(err)
	}
}

func TestReadConfigMergesLocal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.json5"), `{
		// comments are allowed
		base_url: "https://portal.example",
		interval_minutes: 30
	}`)
	writeFile(t, filepath.Join(dir, "config.local.json5"), `{username: "alice", interval_minutes: 5}`)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, testConfig{
		BaseUrl:  "https://portal.example",
		Interval: 5,
		Username: "alice",
	}, cfg)
}

func TestReadConfigYaml(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.yaml"), "base_url: https://portal.example\ninterval_minutes: 10\n")

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "https://portal.example", cfg.BaseUrl)
	require.Equal(t, 10, cfg.Interval)
}

func TestReadConfigMissing(t *testing.T) {
	dir := t.TempDir()
	_, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.True(t, os.IsNotExist(err))

	_, err = ReadFirst[testConfig](
		filepath.Join(dir, "config.json5"),
		filepath.Join(dir, "config.yaml"),
	)
	require.True(t, os.IsNotExist(err))
}

func TestReadFirst(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.yaml"), "username: bob\n")

	cfg, err := ReadFirst[testConfig](
		filepath.Join(dir, "config.json5"),
		filepath.Join(dir, "config.yaml"),
	)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "bob", cfg.Username)
}
