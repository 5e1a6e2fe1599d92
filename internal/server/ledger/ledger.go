// Package ledger holds the bank's accounts, balances and transfer history in
// memory. Every operation runs under one ledger-wide mutex; this is the
// single serialization point shared by all sessions.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophbank/internal/common"
	"github.com/dmitrijs2005/gophbank/internal/logging"
)

// DefaultLoginDelay is the pause imposed on a wrong password.
const DefaultLoginDelay = 3 * time.Second

var (
	ErrUnknownAccount    = errors.New("unknown account")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// AccountID is the position of an account in the ledger.
type AccountID int

// NoAccount is the id of a session that has not logged in.
const NoAccount AccountID = -1

// Account is one customer record.
type Account struct {
	Name     string
	Email    string
	Password string
	Balance  int
	Devices  []string
	GroupID  int
	Token    string
}

// HistoryEntry is one side of a completed transfer.
type HistoryEntry struct {
	Counterparty string
	Delta        int
}

// TransferRecord describes a completed transfer for the journal.
type TransferRecord struct {
	At     time.Time
	From   string
	To     string
	Amount int
}

// TokenGranter is called when money reaches a token-group account from an
// account that carries a token.
type TokenGranter interface {
	GrantToken(ctx context.Context, groupID int, token string) error
}

// Recorder persists completed transfers.
type Recorder interface {
	Record(ctx context.Context, rec TransferRecord) error
}

type historyRow struct {
	counterparty AccountID
	delta        int
}

type Ledger struct {
	mu       sync.Mutex
	accounts []Account
	history  [][]historyRow

	loginDelay time.Duration
	sleep      func(ctx context.Context, d time.Duration)
	now        func() time.Time

	granter  TokenGranter
	recorder Recorder
	logger   logging.Logger

	grants sync.WaitGroup
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLoginDelay sets the pause that follows a wrong password.
func WithLoginDelay(d time.Duration) Option {
	return func(l *Ledger) { l.loginDelay = d }
}

// WithSleep replaces the function used to wait out the login delay.
func WithSleep(fn func(ctx context.Context, d time.Duration)) Option {
	return func(l *Ledger) { l.sleep = fn }
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func WithTokenGranter(g TokenGranter) Option {
	return func(l *Ledger) { l.granter = g }
}

func WithRecorder(r Recorder) Option {
	return func(l *Ledger) { l.recorder = r }
}

func WithLogger(lg logging.Logger) Option {
	return func(l *Ledger) { l.logger = lg }
}

// New builds a ledger from a copy of accounts.
func New(accounts []Account, opts ...Option) *Ledger {
	l := &Ledger{
		accounts:   make([]Account, len(accounts)),
		history:    make([][]historyRow, len(accounts)),
		loginDelay: DefaultLoginDelay,
		sleep:      sleepContext,
		now:        time.Now,
		logger:     logging.NopLogger{},
	}
	for i, a := range accounts {
		l.accounts[i] = cloneAccount(a)
	}
	for _, o := range opts {
		o(l)
	}
	l.logger = l.logger.With("module", "ledger")
	return l
}

func sleepContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func cloneAccount(a Account) Account {
	a.Devices = slices.Clone(a.Devices)
	return a
}

func (l *Ledger) valid(id AccountID) bool {
	return id >= 0 && int(id) < len(l.accounts)
}

func (l *Ledger) lookup(name string) AccountID {
	for i := range l.accounts {
		if strings.EqualFold(l.accounts[i].Name, name) {
			return AccountID(i)
		}
	}
	return NoAccount
}

// VerifyLogin returns the id of the account matching name (case-insensitive)
// and password (exact). A wrong password costs the login delay; an unknown
// name fails at once.
func (l *Ledger) VerifyLogin(ctx context.Context, name, password string) (AccountID, error) {
	l.mu.Lock()
	known := false
	for i := range l.accounts {
		if !strings.EqualFold(l.accounts[i].Name, name) {
			continue
		}
		if l.accounts[i].Password == password {
			l.mu.Unlock()
			return AccountID(i), nil
		}
		known = true
	}
	l.mu.Unlock()

	if !known {
		return NoAccount, common.ErrorNotFound
	}
	l.sleep(ctx, l.loginDelay)
	return NoAccount, common.ErrorUnauthorized
}

// Lookup finds an account by case-insensitive name.
func (l *Ledger) Lookup(name string) (AccountID, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.lookup(name)
	return id, id != NoAccount
}

func (l *Ledger) Name(id AccountID) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.valid(id) {
		return ""
	}
	return l.accounts[id].Name
}

// AddDevice registers a device code for the account.
func (l *Ledger) AddDevice(id AccountID, code string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.valid(id) {
		return ErrUnknownAccount
	}
	l.accounts[id].Devices = append(l.accounts[id].Devices, code)
	return nil
}

// HasDevice reports whether code, compared case-insensitively, is registered
// for the account.
func (l *Ledger) HasDevice(id AccountID, code string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.valid(id) {
		return false
	}
	for _, d := range l.accounts[id].Devices {
		if strings.EqualFold(d, code) {
			return true
		}
	}
	return false
}

// Email returns the account's e-mail address, or "" for an unknown id.
func (l *Ledger) Email(id AccountID) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.valid(id) {
		return ""
	}
	return l.accounts[id].Email
}

// Balance returns the account balance, or -1 for an unknown id.
func (l *Ledger) Balance(id AccountID) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.valid(id) {
		return -1
	}
	return l.accounts[id].Balance
}

// History returns the account's transfers, oldest first.
func (l *Ledger) History(id AccountID) []HistoryEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.historyLocked(id)
}

// Statement returns balance and history read under one lock.
func (l *Ledger) Statement(id AccountID) (int, []HistoryEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.valid(id) {
		return -1, nil
	}
	return l.accounts[id].Balance, l.historyLocked(id)
}

func (l *Ledger) historyLocked(id AccountID) []HistoryEntry {
	if !l.valid(id) {
		return nil
	}
	rows := l.history[id]
	out := make([]HistoryEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, HistoryEntry{
			Counterparty: l.accounts[r.counterparty].Name,
			Delta:        r.delta,
		})
	}
	return out
}

// FormatHistory renders one line per entry: the delta right-justified to
// five columns, three spaces, the counterparty name.
func FormatHistory(entries []HistoryEntry) string {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%5d   %s\n", e.Delta, e.Counterparty)
	}
	return b.String()
}

// Transfer moves amount from source to the account named target. Either
// both balances change and each side gains one history row, or nothing
// changes.
func (l *Ledger) Transfer(ctx context.Context, source AccountID, target string, amount int) error {
	l.mu.Lock()

	if !l.valid(source) {
		l.mu.Unlock()
		return ErrUnknownAccount
	}
	dst := l.lookup(target)
	if dst == NoAccount {
		l.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownAccount, target)
	}
	if amount <= 0 {
		l.mu.Unlock()
		return ErrInvalidAmount
	}
	if l.accounts[source].Balance < amount {
		l.mu.Unlock()
		return ErrInsufficientFunds
	}

	l.accounts[source].Balance -= amount
	l.history[source] = append(l.history[source], historyRow{counterparty: dst, delta: -amount})
	l.accounts[dst].Balance += amount
	l.history[dst] = append(l.history[dst], historyRow{counterparty: source, delta: amount})

	from, to := l.accounts[source], l.accounts[dst]

	// recorded under the lock so the journal order matches the ledger order
	if l.recorder != nil {
		rec := TransferRecord{At: l.now(), From: from.Name, To: to.Name, Amount: amount}
		if err := l.recorder.Record(ctx, rec); err != nil {
			l.logger.Error(ctx, "journal write failed", "error", err)
		}
	}
	l.mu.Unlock()

	if to.GroupID > 0 && from.Token != "" {
		l.logger.Info(ctx, "token account received money, granting token",
			"from", from.Name, "to", to.Name, "group", to.GroupID)
		l.grant(ctx, to.GroupID, from.Token)
	}
	return nil
}

func (l *Ledger) grant(ctx context.Context, groupID int, token string) {
	if l.granter == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	l.grants.Add(1)
	go func() {
		defer l.grants.Done()
		if err := l.granter.GrantToken(ctx, groupID, token); err != nil {
			l.logger.Error(ctx, "token grant failed", "group", groupID, "error", err)
		}
	}()
}

// WaitGrants blocks until every token grant started so far has finished.
func (l *Ledger) WaitGrants() {
	l.grants.Wait()
}

// Snapshot returns a deep copy of all accounts in ledger order.
func (l *Ledger) Snapshot() []Account {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Account, len(l.accounts))
	for i, a := range l.accounts {
		out[i] = cloneAccount(a)
	}
	return out
}

// Len returns the number of accounts.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.accounts)
}
