package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	dir := t.TempDir()
	full := writeTempJSON(t, dir, "full.json", map[string]any{
		"ledger_file":          "lab.yaml",
		"listen_addr":          "127.0.0.1:12307",
		"login_delay":          "250ms",
		"log_level":            "warn",
		"mail_enabled":         true,
		"smtp_addr":            "mail:587",
		"smtp_user":            "test@its-bank",
		"smtp_password":        "test",
		"mail_from":            "bank@its-bank",
		"token_grant_url":      "https://192.168.0.101/ctf/index.php",
		"token_grant_insecure": true,
		"journal_file":         "transfers.cbor",
		"save_on_exit":         true,
		"max_frame_size":       65536,
	})

	t.Run("loads every field", func(t *testing.T) {
		cfg := defaults()
		require.NoError(t, parseJson(cfg, []string{"-config", full}))

		want := &Config{
			LedgerFile:         "lab.yaml",
			ListenAddr:         "127.0.0.1:12307",
			LoginDelay:         250 * time.Millisecond,
			LogLevel:           "warn",
			MailEnabled:        true,
			SMTPAddr:           "mail:587",
			SMTPUser:           "test@its-bank",
			SMTPPassword:       "test",
			MailFrom:           "bank@its-bank",
			TokenGrantURL:      "https://192.168.0.101/ctf/index.php",
			TokenGrantInsecure: true,
			JournalFile:        "transfers.cbor",
			SaveOnExit:         true,
			MaxFrameSize:       65536,
		}
		if diff := cmp.Diff(want, cfg); diff != "" {
			t.Errorf("config mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("partial file keeps other values", func(t *testing.T) {
		partial := writeTempJSON(t, dir, "partial.json", map[string]any{"mail_enabled": false, "login_delay": 0})
		cfg := defaults()
		cfg.MailEnabled = true
		require.NoError(t, parseJson(cfg, []string{"-c", partial}))

		assert.False(t, cfg.MailEnabled)
		assert.Equal(t, time.Duration(0), cfg.LoginDelay)
		assert.Equal(t, "banking.json", cfg.LedgerFile)
	})

	t.Run("no config flag leaves config alone", func(t *testing.T) {
		cfg := defaults()
		require.NoError(t, parseJson(cfg, []string{"-f", "x.json"}))
		assert.Equal(t, defaults(), cfg)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		err := parseJson(defaults(), []string{"-c", bad})
		assert.Error(t, err)
	})
}
