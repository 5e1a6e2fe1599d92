package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/gophbank/internal/flagx"
)

var boolFlags = []string{"-mail", "-grant-insecure", "-save"}

// parseFlags applies command-line flags on top of config.
//
// Supported flags:
//
//	-f string          ledger file
//	-a string          listen address (overrides the ledger file's port)
//	-login-delay dur   pause after a wrong password, e.g. "3s"
//	-l string          log level: debug, info, warn, error
//	-mail              send confirmation codes by mail
//	-smtp string       SMTP relay address
//	-smtp-user string  SMTP user
//	-smtp-password string
//	-mail-from string  sender address
//	-grant-url string  token grant endpoint
//	-grant-insecure    skip TLS verification for the grant endpoint
//	-j string          transfer journal file
//	-save              save the ledger on exit
//	-max-frame uint    maximum frame size in bytes, 0 for no limit
//
// The config file flags (-c, -config) are handled by parseJson and ignored here.
func parseFlags(config *Config, args []string) error {
	args = flagx.DropArgs(args, flagx.ConfigFlags)

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.LedgerFile, "f", config.LedgerFile, "ledger file")
	fs.StringVar(&config.ListenAddr, "a", config.ListenAddr, "listen address")
	fs.DurationVar(&config.LoginDelay, "login-delay", config.LoginDelay, "pause after a wrong password")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.BoolVar(&config.MailEnabled, "mail", config.MailEnabled, "send confirmation codes by mail")
	fs.StringVar(&config.SMTPAddr, "smtp", config.SMTPAddr, "SMTP relay address")
	fs.StringVar(&config.SMTPUser, "smtp-user", config.SMTPUser, "SMTP user")
	fs.StringVar(&config.SMTPPassword, "smtp-password", config.SMTPPassword, "SMTP password")
	fs.StringVar(&config.MailFrom, "mail-from", config.MailFrom, "sender address")
	fs.StringVar(&config.TokenGrantURL, "grant-url", config.TokenGrantURL, "token grant endpoint")
	fs.BoolVar(&config.TokenGrantInsecure, "grant-insecure", config.TokenGrantInsecure, "skip TLS verification for token grants")
	fs.StringVar(&config.JournalFile, "j", config.JournalFile, "transfer journal file")
	fs.BoolVar(&config.SaveOnExit, "save", config.SaveOnExit, "save the ledger on exit")
	fs.UintVar(&config.MaxFrameSize, "max-frame", config.MaxFrameSize, "maximum frame size in bytes")

	return fs.Parse(args)
}
