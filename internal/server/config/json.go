package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gophbank/internal/flagx"
	"github.com/dmitrijs2005/gophbank/internal/timex"
)

// JsonConfig is the JSON form of Config. Pointer fields distinguish "absent"
// from a zero value, so a partial file only overrides what it names.
type JsonConfig struct {
	LedgerFile         *string         `json:"ledger_file"`
	ListenAddr         *string         `json:"listen_addr"`
	LoginDelay         *timex.Duration `json:"login_delay"`
	LogLevel           *string         `json:"log_level"`
	MailEnabled        *bool           `json:"mail_enabled"`
	SMTPAddr           *string         `json:"smtp_addr"`
	SMTPUser           *string         `json:"smtp_user"`
	SMTPPassword       *string         `json:"smtp_password"`
	MailFrom           *string         `json:"mail_from"`
	TokenGrantURL      *string         `json:"token_grant_url"`
	TokenGrantInsecure *bool           `json:"token_grant_insecure"`
	JournalFile        *string         `json:"journal_file"`
	SaveOnExit         *bool           `json:"save_on_exit"`
	MaxFrameSize       *uint           `json:"max_frame_size"`
}

// parseJson overlays the file named by -c/-config in args onto config.
// Without the flag nothing is loaded.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&config.LedgerFile, c.LedgerFile)
	setString(&config.ListenAddr, c.ListenAddr)
	if c.LoginDelay != nil {
		config.LoginDelay = c.LoginDelay.Duration
	}
	setString(&config.LogLevel, c.LogLevel)
	setBool(&config.MailEnabled, c.MailEnabled)
	setString(&config.SMTPAddr, c.SMTPAddr)
	setString(&config.SMTPUser, c.SMTPUser)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.MailFrom, c.MailFrom)
	setString(&config.TokenGrantURL, c.TokenGrantURL)
	setBool(&config.TokenGrantInsecure, c.TokenGrantInsecure)
	setString(&config.JournalFile, c.JournalFile)
	setBool(&config.SaveOnExit, c.SaveOnExit)
	if c.MaxFrameSize != nil {
		config.MaxFrameSize = *c.MaxFrameSize
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
