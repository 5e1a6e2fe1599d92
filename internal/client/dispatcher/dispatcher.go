// Package dispatcher runs the client side of the banking protocol. Each
// exchange is a Task value; Run executes one task over the connection.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/gophbank/internal/common"
	"github.com/dmitrijs2005/gophbank/internal/cryptox"
	"github.com/dmitrijs2005/gophbank/internal/dhke"
	"github.com/dmitrijs2005/gophbank/internal/filex"
	"github.com/dmitrijs2005/gophbank/internal/frame"
	"github.com/dmitrijs2005/gophbank/internal/logging"
	"github.com/dmitrijs2005/gophbank/internal/server/protocol"
)

// DefaultDeviceFile stores the device code between runs.
const DefaultDeviceFile = "banking_device.txt"

var (
	ErrLoginFailed          = errors.New("login failed")
	ErrAuthenticationFailed = errors.New("device authentication failed")
	ErrRegistrationFailed   = errors.New("device registration failed")
	ErrRegistrationAborted  = errors.New("registration aborted: invalid server code part")
	ErrUnknownTask          = errors.New("unknown task")
)

type Dispatcher struct {
	ch     *cryptox.Channel
	closer io.Closer

	rand       io.Reader
	codePart   func() string
	deviceFile string
	logger     logging.Logger

	deviceAuthenticated bool
}

type Option func(*Dispatcher)

// WithRandom sets the source of the key-exchange exponent.
func WithRandom(r io.Reader) Option {
	return func(d *Dispatcher) { d.rand = r }
}

// WithCodeGenerator replaces the generator of the client half of device codes.
func WithCodeGenerator(fn func() string) Option {
	return func(d *Dispatcher) { d.codePart = fn }
}

func WithDeviceFile(path string) Option {
	return func(d *Dispatcher) { d.deviceFile = path }
}

func WithLogger(l logging.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// New creates a dispatcher over an established stream. If rw is an
// io.Closer it is closed when a task's context is cancelled.
func New(rw io.ReadWriter, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		ch:         cryptox.NewChannel(frame.NewCodec(rw)),
		codePart:   func() string { return common.RandomAlphaNum(protocol.DevicePartLength) },
		deviceFile: DefaultDeviceFile,
		logger:     logging.NopLogger{},
	}
	if c, ok := rw.(io.Closer); ok {
		d.closer = c
	}
	for _, o := range opts {
		o(d)
	}
	d.logger = d.logger.With("module", "dispatcher")
	return d
}

// Dial connects to addr and returns a dispatcher for the connection.
func Dial(ctx context.Context, addr string, opts ...Option) (*Dispatcher, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", addr, err)
	}
	return New(conn, opts...), nil
}

// Close closes the underlying connection.
func (d *Dispatcher) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer.Close()
}

// DeviceAuthenticated reports whether a registration or authentication has
// succeeded on this connection.
func (d *Dispatcher) DeviceAuthenticated() bool {
	return d.deviceAuthenticated
}

// Run executes one task.
func (d *Dispatcher) Run(ctx context.Context, task Task) (Result, error) {
	if d.closer != nil {
		stop := context.AfterFunc(ctx, func() { d.closer.Close() })
		defer stop()
	}

	switch t := task.(type) {
	case Handshake:
		return d.handshake(ctx)
	case Login:
		return d.login(ctx, t)
	case Balance:
		return d.request(protocol.BalancePrefix, "balance")
	case Registration:
		return d.registration(ctx, t)
	case Authentication:
		return d.authentication(ctx, t)
	case Transaction:
		return d.request(protocol.ReplyTransactionSuccessful, "transaction", t.Recipient+","+strconv.Itoa(t.Amount))
	default:
		return Result{}, fmt.Errorf("%w: %T", ErrUnknownTask, task)
	}
}

func (d *Dispatcher) handshake(ctx context.Context) (Result, error) {
	if err := d.ch.SendPlain(dhke.HandshakeRequest); err != nil {
		return Result{}, err
	}
	offer, err := d.ch.ReceivePlain()
	if err != nil {
		return Result{}, err
	}

	c := dhke.NewClient(d.rand)
	part, err := c.Respond(offer)
	if err != nil {
		return Result{}, fmt.Errorf("key exchange: %w", err)
	}
	if err := d.ch.SendPlain(part); err != nil {
		return Result{}, err
	}
	secret, err := c.Secret()
	if err != nil {
		return Result{}, err
	}

	d.ch.SetKeys(cryptox.DeriveKeys(secret))
	d.logger.Debug(ctx, "key exchanged")
	return Result{Reply: offer, OK: true}, nil
}

func (d *Dispatcher) login(ctx context.Context, t Login) (Result, error) {
	res, err := d.request(protocol.ReplyLoginOK, t.Name+","+t.Password)
	if err != nil {
		return res, err
	}
	d.logger.Debug(ctx, "login reply", "reply", res.Reply)
	return res, nil
}

// request sends msgs in order, reads one reply and marks it OK when it is
// success or, for balance, starts with success.
func (d *Dispatcher) request(success string, msgs ...string) (Result, error) {
	for _, m := range msgs {
		if err := d.ch.Send(m); err != nil {
			return Result{}, err
		}
	}
	reply, err := d.ch.Receive()
	if err != nil {
		return Result{}, err
	}
	ok := reply == success
	if success == protocol.BalancePrefix {
		ok = strings.HasPrefix(reply, success)
	}
	return Result{Reply: reply, OK: ok}, nil
}

func (d *Dispatcher) authentication(ctx context.Context, t Authentication) (Result, error) {
	res, err := d.request(protocol.ReplyAuthenticationSuccessful, "authentication", t.DeviceCode)
	if err != nil {
		return res, err
	}
	res.DeviceCode = t.DeviceCode
	if res.OK {
		d.deviceAuthenticated = true
	}
	d.logger.Debug(ctx, "authentication reply", "reply", res.Reply)
	return res, nil
}

func (d *Dispatcher) registration(ctx context.Context, t Registration) (Result, error) {
	part1 := d.codePart()
	if err := d.ch.Send("registration"); err != nil {
		return Result{}, err
	}
	if err := d.ch.Send(part1); err != nil {
		return Result{}, err
	}
	part2, err := d.ch.Receive()
	if err != nil {
		return Result{}, err
	}
	if utf8.RuneCountInString(part2) != protocol.DevicePartLength {
		return Result{Reply: part2}, ErrRegistrationAborted
	}
	code := part1 + part2

	confirm, err := t.Confirm(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("read confirmation code: %w", err)
	}
	res, err := d.request(protocol.ReplyRegistrationSuccessful, confirm)
	if err != nil {
		return res, err
	}
	res.DeviceCode = code
	if res.OK {
		d.deviceAuthenticated = true
	}
	return res, nil
}

// Connect runs the key exchange and logs in.
func (d *Dispatcher) Connect(ctx context.Context, name, password string) error {
	if _, err := d.Run(ctx, Handshake{}); err != nil {
		return err
	}
	res, err := d.Run(ctx, Login{Name: name, Password: password})
	if err != nil {
		return err
	}
	if !res.OK {
		return fmt.Errorf("%w: %s", ErrLoginFailed, res.Reply)
	}
	return nil
}

// EnsureDevice authenticates this device, registering it first when no
// device code file exists. A successful registration writes the file.
func (d *Dispatcher) EnsureDevice(ctx context.Context, confirm func(ctx context.Context) (string, error)) (Result, error) {
	if d.deviceAuthenticated {
		return Result{OK: true}, nil
	}

	code, ok, err := filex.ReadLine(d.deviceFile)
	if err != nil {
		return Result{}, fmt.Errorf("read device file: %w", err)
	}

	if ok {
		res, err := d.Run(ctx, Authentication{DeviceCode: code})
		if err != nil {
			return res, err
		}
		if !res.OK {
			return res, fmt.Errorf("%w: %s", ErrAuthenticationFailed, res.Reply)
		}
		return res, nil
	}

	res, err := d.Run(ctx, Registration{Confirm: confirm})
	if err != nil {
		return res, err
	}
	if !res.OK {
		return res, fmt.Errorf("%w: %s", ErrRegistrationFailed, res.Reply)
	}
	if err := filex.WriteLine(d.deviceFile, res.DeviceCode); err != nil {
		return res, fmt.Errorf("write device file: %w", err)
	}
	d.logger.Info(ctx, "device registered", "file", d.deviceFile)
	return res, nil
}
