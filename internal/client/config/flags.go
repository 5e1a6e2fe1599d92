package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/gophbank/internal/flagx"
)

func parseFlags(config *Config, args []string) error {
	args = flagx.DropArgs(args, flagx.ConfigFlags)

	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.ServerAddr, "a", config.ServerAddr, "server address")
	fs.StringVar(&config.DeviceFile, "d", config.DeviceFile, "device code file")
	fs.DurationVar(&config.DialTimeout, "t", config.DialTimeout, "connect timeout")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	return fs.Parse(args)
}
