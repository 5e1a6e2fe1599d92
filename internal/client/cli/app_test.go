package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophbank/internal/client/config"
	"github.com/dmitrijs2005/gophbank/internal/client/dispatcher"
	"github.com/dmitrijs2005/gophbank/internal/server/protocol"
)

type fakeSession struct {
	name, password string
	connectErr     error
	deviceRes      dispatcher.Result
	deviceErr      error
	confirmed      string
	tasks          []dispatcher.Task
	closed         bool
}

func (s *fakeSession) Connect(_ context.Context, name, password string) error {
	s.name, s.password = name, password
	return s.connectErr
}

func (s *fakeSession) EnsureDevice(ctx context.Context, confirm func(context.Context) (string, error)) (dispatcher.Result, error) {
	if s.deviceErr == nil && s.deviceRes.DeviceCode == "" {
		code, err := confirm(ctx)
		if err != nil {
			return dispatcher.Result{}, err
		}
		s.confirmed = code
		s.deviceRes = dispatcher.Result{Reply: protocol.ReplyRegistrationSuccessful, OK: true, DeviceCode: "QR56wx78"}
		return s.deviceRes, nil
	}
	return s.deviceRes, s.deviceErr
}

func (s *fakeSession) Run(_ context.Context, task dispatcher.Task) (dispatcher.Result, error) {
	s.tasks = append(s.tasks, task)
	switch task.(type) {
	case dispatcher.Balance:
		return dispatcher.Result{Reply: "Amount of money: 100\n", OK: true}, nil
	case dispatcher.Transaction:
		return dispatcher.Result{Reply: protocol.ReplyTransactionSuccessful, OK: true}, nil
	}
	return dispatcher.Result{}, errors.New("unexpected task")
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

func newTestApp(t *testing.T, input string, s *fakeSession) (*App, *bytes.Buffer) {
	t.Helper()
	stubTerminal(t, false, nil, nil)

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DialTimeout = time.Second

	var out bytes.Buffer
	app := NewApp(cfg, strings.NewReader(input), &out, io.Discard)
	app.dial = func(context.Context, string, ...dispatcher.Option) (session, error) {
		return s, nil
	}
	return app, &out
}

func TestApp_Run(t *testing.T) {
	s := &fakeSession{}
	app, out := newTestApp(t, "alice\npw-a\nb\nt\n12cd\nbob\n3\ne\n", s)

	require.NoError(t, app.Run(context.Background()))

	assert.Equal(t, "alice", s.name)
	assert.Equal(t, "pw-a", s.password)
	assert.Equal(t, "12cd", s.confirmed)
	assert.Equal(t, []dispatcher.Task{
		dispatcher.Balance{},
		dispatcher.Transaction{Recipient: "bob", Amount: 3},
	}, s.tasks)
	assert.True(t, s.closed)

	text := out.String()
	assert.Contains(t, text, "Login successful.")
	assert.Contains(t, text, "Amount of money: 100\n")
	assert.Contains(t, text, "Confirmation code (check your email): ")
	assert.Contains(t, text, protocol.ReplyRegistrationSuccessful)
	assert.Contains(t, text, protocol.ReplyTransactionSuccessful)
}

func TestApp_LoginFailed(t *testing.T) {
	s := &fakeSession{connectErr: dispatcher.ErrLoginFailed}
	app, out := newTestApp(t, "alice\nwrong\n", s)

	err := app.Run(context.Background())
	require.ErrorIs(t, err, dispatcher.ErrLoginFailed)
	assert.True(t, s.closed)
	assert.Contains(t, out.String(), "Login failed.")
}

func TestApp_InvalidAmount(t *testing.T) {
	s := &fakeSession{deviceRes: dispatcher.Result{Reply: protocol.ReplyAuthenticationSuccessful, OK: true, DeviceCode: "AB12cd34"}}
	app, out := newTestApp(t, "alice\npw-a\nt\nbob\nlots\ne\n", s)

	require.NoError(t, app.Run(context.Background()))
	assert.Empty(t, s.tasks)
	assert.Contains(t, out.String(), "Invalid amount.")
}

func TestApp_DeviceRejected(t *testing.T) {
	s := &fakeSession{
		deviceRes: dispatcher.Result{Reply: protocol.ReplyAuthenticationFailed},
		deviceErr: dispatcher.ErrAuthenticationFailed,
	}
	app, out := newTestApp(t, "alice\npw-a\nt\ne\n", s)

	require.NoError(t, app.Run(context.Background()))
	assert.Empty(t, s.tasks)
	assert.Contains(t, out.String(), protocol.ReplyAuthenticationFailed)
}
