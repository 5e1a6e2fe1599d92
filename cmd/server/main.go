package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/dmitrijs2005/gophbank/internal/server"
	"github.com/dmitrijs2005/gophbank/internal/server/config"
	"github.com/dmitrijs2005/gophbank/internal/server/journal"
	"github.com/dmitrijs2005/gophbank/internal/server/ledgerfile"
)

const usage = `usage:
  server [serve] [flags]      run the banking server
  server generate [flags]     write a lab ledger file
  server journal <file>       print a transfer journal
`

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	cmd := "serve"
	if len(args) > 0 {
		switch args[0] {
		case "serve", "generate", "journal":
			cmd, args = args[0], args[1:]
		case "help", "-h", "-help", "--help":
			fmt.Fprint(out, usage)
			return nil
		}
	}

	switch cmd {
	case "generate":
		return generate(args, out)
	case "journal":
		return printJournal(args, out)
	default:
		return serve(ctx, args, out)
	}
}

func serve(ctx context.Context, args []string, out io.Writer) error {
	cfg, err := config.LoadConfig(args)
	if err != nil {
		return err
	}
	app, err := server.NewApp(cfg, out)
	if err != nil {
		return err
	}
	return app.Run(ctx)
}

func generate(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(out)

	var opts ledgerfile.GenerateOptions
	fs.IntVar(&opts.Group, "group", 1, "attacker group number")
	for i := range opts.Tokens {
		fs.StringVar(&opts.Tokens[i], fmt.Sprintf("token%d", i+1), "", fmt.Sprintf("token held by victim%d", i+1))
	}
	path := fs.String("o", "banking.json", "output file (.yaml/.yml for YAML)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if opts.Group < 0 {
		return errors.New("group must not be negative")
	}

	f := ledgerfile.Generate(opts)
	if err := ledgerfile.Save(*path, f); err != nil {
		return err
	}
	fmt.Fprintf(out, "ledger for group %d written to %s (port %d)\n", opts.Group, *path, f.Port)
	return nil
}

func printJournal(args []string, out io.Writer) error {
	if len(args) != 1 {
		return errors.New("journal: expected exactly one file argument")
	}
	entries, err := journal.ReadAll(args[0])
	if err != nil {
		return err
	}
	return journal.Print(out, entries)
}
