// Package journal appends completed transfers to a CBOR file and reads them
// back. Each transfer is one self-delimiting CBOR item, so the file can be
// streamed without an index.
package journal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/dmitrijs2005/gophbank/internal/server/ledger"
)

var ErrClosed = errors.New("journal closed")

// Entry is the on-disk form of a transfer. Integer keys keep records small.
type Entry struct {
	At     time.Time `cbor:"1,keyasint"`
	From   string    `cbor:"2,keyasint"`
	To     string    `cbor:"3,keyasint"`
	Amount int       `cbor:"4,keyasint"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encMode, err = cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
		Time:        cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("journal: cbor encoder mode: %v", err))
	}

	decMode, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyQuiet,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("journal: cbor decoder mode: %v", err))
	}
}

// Journal is an append-only transfer log. It implements ledger.Recorder and
// is safe for concurrent use.
type Journal struct {
	mu     sync.Mutex
	file   *os.File
	enc    *cbor.Encoder
	closed bool
}

// Open opens path for appending, creating it if needed.
func Open(path string) (*Journal, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return &Journal{file: f, enc: encMode.NewEncoder(f)}, nil
}

// Record appends one transfer.
func (j *Journal) Record(_ context.Context, rec ledger.TransferRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return ErrClosed
	}
	return j.enc.Encode(Entry{
		At:     rec.At.UTC(),
		From:   rec.From,
		To:     rec.To,
		Amount: rec.Amount,
	})
}

// Close closes the file. Calling it twice is harmless.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true
	return j.file.Close()
}

// Reader streams entries from a journal file.
type Reader struct {
	file *os.File
	dec  *cbor.Decoder
}

func NewReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{file: f, dec: decMode.NewDecoder(f)}, nil
}

// Next returns the next entry, or io.EOF at the end of the file.
func (r *Reader) Next() (Entry, error) {
	var e Entry
	if err := r.dec.Decode(&e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func (r *Reader) Close() error {
	return r.file.Close()
}

// ReadAll loads every entry in path.
func ReadAll(path string) ([]Entry, error) {
	r, err := NewReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var out []Entry
	for {
		e, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("read journal entry %d: %w", len(out), err)
		}
		out = append(out, e)
	}
}

// Print writes entries as aligned text, one transfer per line.
func Print(w io.Writer, entries []Entry) error {
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "%s  %-12s -> %-12s %5d\n",
			e.At.Format(time.RFC3339), e.From, e.To, e.Amount); err != nil {
			return err
		}
	}
	return nil
}

var _ ledger.Recorder = (*Journal)(nil)
