package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/dmitrijs2005/gophbank/internal/client/config"
	"github.com/dmitrijs2005/gophbank/internal/client/dispatcher"
	"github.com/dmitrijs2005/gophbank/internal/common"
	"github.com/dmitrijs2005/gophbank/internal/logging"
)

// session is the part of dispatcher.Dispatcher the client uses.
type session interface {
	Connect(ctx context.Context, name, password string) error
	EnsureDevice(ctx context.Context, confirm func(ctx context.Context) (string, error)) (dispatcher.Result, error)
	Run(ctx context.Context, task dispatcher.Task) (dispatcher.Result, error)
	Close() error
}

type dialFunc func(ctx context.Context, addr string, opts ...dispatcher.Option) (session, error)

func dialDispatcher(ctx context.Context, addr string, opts ...dispatcher.Option) (session, error) {
	return dispatcher.Dial(ctx, addr, opts...)
}

type App struct {
	config *config.Config
	logger logging.Logger
	reader *bufio.Reader
	out    io.Writer
	dial   dialFunc

	session session
}

// NewApp creates the client reading user input from in and writing prompts
// and replies to out. Logs go to errOut.
func NewApp(c *config.Config, in io.Reader, out, errOut io.Writer) *App {
	return &App{
		config: c,
		logger: logging.NewJSONLogger(errOut, c.LogLevel),
		reader: bufio.NewReader(in),
		out:    out,
		dial:   dialDispatcher,
	}
}

// Run logs in and serves the menu until the user exits or input ends.
func (a *App) Run(ctx context.Context) error {
	if err := a.Login(ctx); err != nil {
		return err
	}
	defer a.session.Close()

	runREPL(ctx, a, a.reader, a.out)
	return nil
}

// Login prompts for credentials, connects and logs in.
func (a *App) Login(ctx context.Context) error {
	name, err := GetSimpleText(a.reader, "User", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	dialCtx, cancel := context.WithTimeout(ctx, a.config.DialTimeout)
	s, err := a.dial(dialCtx, a.config.ServerAddr,
		dispatcher.WithDeviceFile(a.config.DeviceFile),
		dispatcher.WithLogger(a.logger))
	cancel()
	if err != nil {
		return err
	}

	if err := s.Connect(ctx, name, string(password)); err != nil {
		s.Close()
		if errors.Is(err, dispatcher.ErrLoginFailed) {
			fmt.Fprintln(a.out, "Login failed.")
		}
		return err
	}

	fmt.Fprintln(a.out, "Login successful.")
	a.session = s
	return nil
}

// Balance prints the balance and history.
func (a *App) Balance(ctx context.Context) error {
	res, err := a.session.Run(ctx, dispatcher.Balance{})
	if err != nil {
		return err
	}
	fmt.Fprint(a.out, res.Reply)
	return nil
}

// Transaction makes sure this device is known to the server, then asks for
// a recipient and an amount and sends the transfer.
func (a *App) Transaction(ctx context.Context) error {
	res, err := a.session.EnsureDevice(ctx, a.confirmationCode)
	if err != nil {
		if res.Reply != "" {
			fmt.Fprintln(a.out, res.Reply)
		}
		return err
	}
	if res.Reply != "" {
		fmt.Fprintln(a.out, res.Reply)
	}

	recipient, err := GetSimpleText(a.reader, "Recipient name", a.out)
	if err != nil {
		return err
	}
	amountText, err := GetSimpleText(a.reader, "Amount of money (1-10)", a.out)
	if err != nil {
		return err
	}
	amount, err := strconv.Atoi(amountText)
	if err != nil {
		fmt.Fprintln(a.out, "Invalid amount.")
		return nil
	}

	res, err = a.session.Run(ctx, dispatcher.Transaction{Recipient: recipient, Amount: amount})
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, res.Reply)
	return nil
}

func (a *App) confirmationCode(context.Context) (string, error) {
	return GetSimpleText(a.reader, "Confirmation code (check your email)", a.out)
}
