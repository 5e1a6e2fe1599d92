// Package config handles configuration for the banking server: defaults,
// an optional JSON overlay and command-line flags, applied in that order.
package config

import (
	"time"

	"github.com/dmitrijs2005/gophbank/internal/server/ledger"
)

// Config holds runtime settings for the banking server.
//
// Fields:
//   - LedgerFile: ledger file with port, key-exchange parameters and accounts.
//   - ListenAddr: bind address; empty means ":<port from the ledger file>".
//   - LoginDelay: pause after a wrong password.
//   - MailEnabled and the SMTP fields: confirmation codes go by mail instead
//     of the console.
//   - TokenGrantURL: scoreboard endpoint; empty disables token grants.
//   - JournalFile: CBOR transfer journal; empty disables it.
//   - SaveOnExit: write the ledger back to LedgerFile on shutdown.
//   - MaxFrameSize: reject larger frames; 0 means unlimited.
type Config struct {
	LedgerFile         string
	ListenAddr         string
	LoginDelay         time.Duration
	LogLevel           string
	MailEnabled        bool
	SMTPAddr           string
	SMTPUser           string
	SMTPPassword       string
	MailFrom           string
	TokenGrantURL      string
	TokenGrantInsecure bool
	JournalFile        string
	SaveOnExit         bool
	MaxFrameSize       uint
}

// LoadDefaults populates Config with lab defaults.
func (c *Config) LoadDefaults() {
	c.LedgerFile = "banking.json"
	c.ListenAddr = ""
	c.LoginDelay = ledger.DefaultLoginDelay
	c.LogLevel = "info"
	c.MailEnabled = false
	c.SMTPAddr = "localhost:25"
	c.SMTPUser = ""
	c.SMTPPassword = ""
	c.MailFrom = "its@its-bank"
	c.TokenGrantURL = ""
	c.TokenGrantInsecure = false
	c.JournalFile = ""
	c.SaveOnExit = false
	c.MaxFrameSize = 0
}

// LoadConfig builds a Config from defaults, then the JSON file named by
// -c/-config in args, then the remaining flags in args. args excludes the
// program name.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
