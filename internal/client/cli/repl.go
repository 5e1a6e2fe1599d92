package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/gophbank/internal/client/dispatcher"
)

const menu = "What do you want to do?\n  View balance [b]\n  Do transaction [t]\n  Exit [e]\n"

// execIface is the command surface the menu needs; App satisfies it.
type execIface interface {
	Balance(ctx context.Context) error
	Transaction(ctx context.Context) error
}

// runREPL shows the menu and dispatches single-letter commands until the
// user exits, input ends or a command fails on the connection.
func runREPL(ctx context.Context, a execIface, reader *bufio.Reader, w io.Writer) {
	for {
		fmt.Fprint(w, menu)
		line, err := GetSimpleText(reader, "Choice", w)
		if err != nil {
			return
		}

		var cmdErr error
		switch strings.ToLower(line) {
		case "b":
			cmdErr = a.Balance(ctx)
		case "t":
			cmdErr = a.Transaction(ctx)
		case "e":
			fmt.Fprintln(w, "Bye!")
			return
		case "":
			continue
		default:
			fmt.Fprintln(w, "Unknown command:", line)
		}

		if cmdErr != nil {
			fmt.Fprintln(w, "error:", cmdErr)
			if ctx.Err() != nil || isConnectionError(cmdErr) {
				return
			}
		}
	}
}

// isConnectionError reports whether err leaves the session unusable. A
// rejected device code or confirmation does not.
func isConnectionError(err error) bool {
	return !errors.Is(err, dispatcher.ErrAuthenticationFailed) &&
		!errors.Is(err, dispatcher.ErrRegistrationFailed)
}
