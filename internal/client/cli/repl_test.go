package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrijs2005/gophbank/internal/client/dispatcher"
)

type fakeExec struct {
	calls  []string
	txnErr error
}

func (f *fakeExec) Balance(context.Context) error {
	f.calls = append(f.calls, "balance")
	return nil
}

func (f *fakeExec) Transaction(context.Context) error {
	f.calls = append(f.calls, "transaction")
	return f.txnErr
}

func TestRunREPL_Commands(t *testing.T) {
	exec := &fakeExec{}
	var out bytes.Buffer

	runREPL(context.Background(), exec, rdr("b\n\nT\nx\ne\nb\n"), &out)

	assert.Equal(t, []string{"balance", "transaction"}, exec.calls)
	assert.Contains(t, out.String(), "View balance [b]")
	assert.Contains(t, out.String(), "Unknown command: x")
	assert.Contains(t, out.String(), "Bye!")
}

func TestRunREPL_StopsOnEOF(t *testing.T) {
	exec := &fakeExec{}
	runREPL(context.Background(), exec, rdr("b\n"), &bytes.Buffer{})
	assert.Equal(t, []string{"balance"}, exec.calls)
}

func TestRunREPL_ErrorHandling(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		calls int
	}{
		{name: "device rejected keeps going", err: fmt.Errorf("%w: Authentication failed.", dispatcher.ErrAuthenticationFailed), calls: 2},
		{name: "registration rejected keeps going", err: dispatcher.ErrRegistrationFailed, calls: 2},
		{name: "connection error stops", err: errors.New("io: read/write on closed pipe"), calls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &fakeExec{txnErr: tt.err}
			var out bytes.Buffer
			runREPL(context.Background(), exec, rdr("t\nt\ne\n"), &out)
			assert.Len(t, exec.calls, tt.calls)
			assert.Contains(t, out.String(), "error:")
		})
	}
}
