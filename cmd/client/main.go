package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/gophbank/internal/client/cli"
	"github.com/dmitrijs2005/gophbank/internal/client/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	app := cli.NewApp(cfg, os.Stdin, os.Stdout, os.Stderr)
	if err := app.Run(ctx); err != nil {
		log.Printf("%v", err)
		stop()
		os.Exit(1)
	}
}
