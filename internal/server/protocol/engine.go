// Package protocol runs the server side of the banking protocol for one
// connection: key exchange, login, then a loop of commands over the secure
// channel.
package protocol

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"unicode/utf8"

	"github.com/dmitrijs2005/gophbank/internal/common"
	"github.com/dmitrijs2005/gophbank/internal/cryptox"
	"github.com/dmitrijs2005/gophbank/internal/dhke"
	"github.com/dmitrijs2005/gophbank/internal/frame"
	"github.com/dmitrijs2005/gophbank/internal/logging"
	"github.com/dmitrijs2005/gophbank/internal/server/ledger"
	"github.com/dmitrijs2005/gophbank/internal/server/notify"
)

// Ledger is the part of *ledger.Ledger the engine uses.
type Ledger interface {
	VerifyLogin(ctx context.Context, name, password string) (ledger.AccountID, error)
	AddDevice(id ledger.AccountID, code string) error
	HasDevice(id ledger.AccountID, code string) bool
	Email(id ledger.AccountID) string
	Statement(id ledger.AccountID) (int, []ledger.HistoryEntry)
	Transfer(ctx context.Context, source ledger.AccountID, target string, amount int) error
}

type handler func(ctx context.Context, s *Session, log logging.Logger) error

// Engine serves protocol sessions. One Engine is shared by all connections;
// everything per-connection lives in Session.
type Engine struct {
	ledger   Ledger
	params   dhke.Params
	notifier notify.Notifier
	logger   logging.Logger
	codePart func() string
	rand     io.Reader
	maxFrame uint32

	handlers map[Command]handler
}

type Option func(*Engine)

func WithNotifier(n notify.Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

func WithLogger(l logging.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithCodeGenerator replaces the generator of the server half of device codes.
func WithCodeGenerator(fn func() string) Option {
	return func(e *Engine) { e.codePart = fn }
}

// WithRandom sets the source of server key-exchange exponents.
func WithRandom(r io.Reader) Option {
	return func(e *Engine) { e.rand = r }
}

// WithMaxFrameSize caps inbound frames; 0 leaves them unlimited.
func WithMaxFrameSize(n uint32) Option {
	return func(e *Engine) { e.maxFrame = n }
}

func NewEngine(l Ledger, params dhke.Params, opts ...Option) *Engine {
	e := &Engine{
		ledger:   l,
		params:   params,
		logger:   logging.NopLogger{},
		codePart: func() string { return common.RandomAlphaNum(DevicePartLength) },
	}
	for _, o := range opts {
		o(e)
	}
	e.logger = e.logger.With("module", "protocol")

	e.handlers = map[Command]handler{
		CommandBalance:        e.balance,
		CommandAuthentication: e.authentication,
		CommandRegistration:   e.registration,
		CommandTransaction:    e.transaction,
	}
	return e
}

// ServeConn runs a session over conn until the peer disconnects. It does not
// close conn.
func (e *Engine) ServeConn(ctx context.Context, conn net.Conn) error {
	codec := frame.NewCodec(conn)
	codec.MaxSize = e.maxFrame
	s := NewSession(cryptox.NewChannel(codec), conn.RemoteAddr().String())
	return e.Run(ctx, s)
}

// Run drives s through key exchange, login and the command loop. A peer
// closing the stream ends the session with a nil error; other transport
// failures are returned.
func (e *Engine) Run(ctx context.Context, s *Session) error {
	log := e.logger.With("session", s.ID.String(), "remote", s.Remote)
	defer func() { s.State = StateClosed }()

	err := e.run(ctx, s, log)
	if err != nil && frame.IsClosed(err) {
		log.Debug(ctx, "peer closed connection", "state", s.State.String())
		return nil
	}
	return err
}

func (e *Engine) run(ctx context.Context, s *Session, log logging.Logger) error {
	// Repeat only while both the login failed and no key was exchanged.
	loginFailed := true
	for {
		if err := e.handshake(ctx, s, log); err != nil {
			return err
		}
		var err error
		loginFailed, err = e.login(ctx, s, log)
		if err != nil {
			return err
		}
		if !(loginFailed && !s.KeyExchanged) {
			break
		}
	}
	log.Info(ctx, "entering command loop", "user", int(s.UserID))

	s.State = StateCommandLoop
	for {
		msg, err := s.Channel.Receive()
		if err != nil {
			return err
		}
		if cryptox.IsSentinel(msg) {
			log.Debug(ctx, "ignoring rejected frame", "reason", msg)
			continue
		}

		cmd := ParseCommand(msg)
		h, ok := e.handlers[cmd]
		if !ok {
			log.Debug(ctx, "ignoring unknown command", "command", msg)
			continue
		}
		log.Debug(ctx, "command received", "user", int(s.UserID), "command", cmd.String())
		if err := h(ctx, s, log); err != nil {
			return err
		}
	}
}

// handshake runs one key exchange. An exchange that does not complete leaves
// the session without keys; only transport errors are returned.
func (e *Engine) handshake(ctx context.Context, s *Session, log logging.Logger) error {
	s.State = StateKeyExchanging

	req, err := s.Channel.ReceivePlain()
	if err != nil {
		return err
	}

	srv := dhke.NewServer(e.params, e.rand)
	reply, offered, err := srv.Offer(req)
	if err != nil {
		return fmt.Errorf("key exchange: %w", err)
	}
	if offered {
		if err := s.Channel.SendPlain(reply); err != nil {
			return err
		}
	} else {
		log.Warn(ctx, "unexpected handshake request", "request", req)
	}

	part, err := s.Channel.ReceivePlain()
	if err != nil {
		return err
	}

	secret, ok := srv.Accept(part)
	if !ok {
		s.State = StateHandshakeFailed
		log.Warn(ctx, "key exchange failed", "client_part", part)
		return nil
	}

	s.Channel.SetKeys(cryptox.DeriveKeys(secret))
	s.KeyExchanged = true
	s.State = StateKeyExchanged
	log.Debug(ctx, "key exchanged")
	return nil
}

// login reads one login frame and reports whether the login failed.
func (e *Engine) login(ctx context.Context, s *Session, log logging.Logger) (bool, error) {
	s.State = StateAuthenticating

	msg, err := s.Channel.Receive()
	if err != nil {
		return true, err
	}
	if msg == cryptox.SentinelNoKeys {
		// nothing can be sent back without a key
		log.Warn(ctx, "login dropped, no session key")
		return true, nil
	}

	fields := splitFields(msg, ",")
	if cryptox.IsSentinel(msg) || len(fields) < 2 {
		return true, e.reply(s, ReplyInvalidLoginFormat)
	}

	id, err := e.ledger.VerifyLogin(ctx, fields[0], fields[1])
	if err != nil {
		log.Info(ctx, "login rejected", "name", fields[0], "error", err)
		return true, e.reply(s, ReplyLoginInvalid)
	}

	s.UserID = id
	s.State = StateLoggedIn
	log.Info(ctx, "user logged in", "user", int(id), "name", fields[0])
	return false, e.reply(s, ReplyLoginOK)
}

func (e *Engine) reply(s *Session, msg string) error {
	return s.Channel.Send(msg)
}

func (e *Engine) balance(ctx context.Context, s *Session, _ logging.Logger) error {
	bal, history := e.ledger.Statement(s.UserID)
	return e.reply(s, BalancePrefix+strconv.Itoa(bal)+"\n"+ledger.FormatHistory(history))
}

func (e *Engine) authentication(ctx context.Context, s *Session, log logging.Logger) error {
	code, err := s.Channel.Receive()
	if err != nil {
		return err
	}
	if cryptox.IsSentinel(code) || !e.ledger.HasDevice(s.UserID, code) {
		log.Info(ctx, "device authentication failed", "user", int(s.UserID))
		return e.reply(s, ReplyAuthenticationFailed)
	}

	s.DeviceAuthenticated = true
	s.State = StateDeviceAuthenticated
	log.Info(ctx, "device authenticated", "user", int(s.UserID))
	return e.reply(s, ReplyAuthenticationSuccessful)
}

func (e *Engine) registration(ctx context.Context, s *Session, log logging.Logger) error {
	part1, err := s.Channel.Receive()
	if err != nil {
		return err
	}
	if utf8.RuneCountInString(part1) != DevicePartLength {
		log.Debug(ctx, "registration aborted, bad device part", "user", int(s.UserID))
		return nil
	}

	part2 := e.codePart()
	if err := e.reply(s, part2); err != nil {
		return err
	}

	code := part1 + part2
	if err := e.ledger.AddDevice(s.UserID, code); err != nil {
		log.Warn(ctx, "device not stored", "user", int(s.UserID), "error", err)
	}

	confirm := ConfirmationCode(code)
	e.deliver(ctx, e.ledger.Email(s.UserID), confirm, log)

	echo, err := s.Channel.Receive()
	if err != nil {
		return err
	}
	if echo != confirm {
		log.Info(ctx, "registration confirmation mismatch", "user", int(s.UserID))
		return e.reply(s, ReplyRegistrationFailed)
	}

	s.DeviceAuthenticated = true
	s.State = StateDeviceAuthenticated
	log.Info(ctx, "device registered", "user", int(s.UserID))
	return e.reply(s, ReplyRegistrationSuccessful)
}

func (e *Engine) deliver(ctx context.Context, email, code string, log logging.Logger) {
	if e.notifier == nil {
		log.Warn(ctx, "no notifier configured, confirmation code dropped")
		return
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := e.notifier.DeliverConfirmationCode(ctx, email, code); err != nil {
			log.Error(ctx, "confirmation code delivery failed", "error", err)
		}
	}()
}

func (e *Engine) transaction(ctx context.Context, s *Session, log logging.Logger) error {
	if !s.DeviceAuthenticated {
		log.Warn(ctx, "transaction without device authentication", "user", int(s.UserID))
		return nil
	}

	req, err := s.Channel.Receive()
	if err != nil {
		return err
	}

	fields := splitFields(req, ",")
	if len(fields) != 2 {
		return e.reply(s, ReplyInvalidTransactionFormat)
	}
	n, err := strconv.ParseInt(fields[1], 10, 32)
	if err != nil {
		return e.reply(s, ReplyInvalidNumberFormat)
	}
	amount := ClampAmount(int(n))

	if err := e.ledger.Transfer(ctx, s.UserID, fields[0], amount); err != nil {
		log.Info(ctx, "transfer rejected", "user", int(s.UserID), "to", fields[0], "amount", amount, "error", err)
		return e.reply(s, ReplyTransactionFailed)
	}
	log.Info(ctx, "transfer done", "user", int(s.UserID), "to", fields[0], "amount", amount)
	return e.reply(s, ReplyTransactionSuccessful)
}

var _ Ledger = (*ledger.Ledger)(nil)
