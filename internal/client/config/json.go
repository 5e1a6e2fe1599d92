package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gophbank/internal/flagx"
	"github.com/dmitrijs2005/gophbank/internal/timex"
)

// JsonConfig is the JSON form of Config; absent keys keep earlier values.
type JsonConfig struct {
	ServerAddr  *string         `json:"server_addr"`
	DeviceFile  *string         `json:"device_file"`
	DialTimeout *timex.Duration `json:"dial_timeout"`
	LogLevel    *string         `json:"log_level"`
}

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

	if c.ServerAddr != nil {
		config.ServerAddr = *c.ServerAddr
	}
	if c.DeviceFile != nil {
		config.DeviceFile = *c.DeviceFile
	}
	if c.DialTimeout != nil {
		config.DialTimeout = c.DialTimeout.Duration
	}
	if c.LogLevel != nil {
		config.LogLevel = *c.LogLevel
	}
	return nil
}
