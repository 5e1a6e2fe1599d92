package config

import (
	"time"

	"github.com/dmitrijs2005/gophbank/internal/client/dispatcher"
)

// Config holds runtime settings for the banking client.
type Config struct {
	ServerAddr  string
	DeviceFile  string
	DialTimeout time.Duration
	LogLevel    string
}

// LoadDefaults populates c with defaults.
func (c *Config) LoadDefaults() {
	c.ServerAddr = "127.0.0.1:12300"
	c.DeviceFile = dispatcher.DefaultDeviceFile
	c.DialTimeout = 10 * time.Second
	c.LogLevel = "warn"
}

// LoadConfig applies defaults, then the JSON file named by -c/-config in
// args, then the flags in args. args excludes the program name.
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
