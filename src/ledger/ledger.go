package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Authorization statuses of a VIP record.
const (
	StatusAuthorized = "authorized"
	StatusConsumed   = "consumed"
)

// Record is one user's VIP entitlement. Only the latest record per user is
// kept; Ts is Unix milliseconds.
type Record struct {
	UserID string `json:"userId"`
	Status string `json:"status"`
	Ts     int64  `json:"ts"`
}

type state struct {
	ProcessedPayments []string `json:"processed_payments"`
	VIPAccess         []Record `json:"vip_access"`
}

// Ledger is the durable record of processed payments and per-user VIP
// entitlements, backed by a single JSON file that Persist overwrites whole.
// All methods are safe for concurrent use; Persist snapshots the state under
// the same lock, so interleaved handlers cannot clobber each other's writes.
type Ledger struct {
	path string

	mu    sync.Mutex
	state state
}

func New(path string) *Ledger {
	return &Ledger{path: path}
}

// Load reads the ledger file into memory. A missing file initializes an
// empty ledger; an unreadable or corrupt one is an error, never a silent
// reset.
func (l *Ledger) Load() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	raw, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		l.state = state{ProcessedPayments: []string{}, VIPAccess: []Record{}}
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading ledger %s: %w", l.path, err)
	}

	var s state
	if err := json.Unmarshal(raw, &s); err != nil {
		return fmt.Errorf("ledger %s is corrupt: %w", l.path, err)
	}
	if s.ProcessedPayments == nil {
		s.ProcessedPayments = []string{}
	}
	if s.VIPAccess == nil {
		s.VIPAccess = []Record{}
	}
	l.state = s
	return nil
}

// Persist overwrites the ledger file with the full in-memory state.
func (l *Ledger) Persist() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	raw, err := json.MarshalIndent(l.state, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding ledger: %w", err)
	}
	if err := os.WriteFile(l.path, raw, 0o644); err != nil {
		return fmt.Errorf("writing ledger %s: %w", l.path, err)
	}
	return nil
}

// IsProcessed reports whether paymentID has already been handled.
func (l *Ledger) IsProcessed(paymentID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, id := range l.state.ProcessedPayments {
		if id == paymentID {
			return true
		}
	}
	return false
}

// MarkProcessed appends paymentID to the processed set. Callers check
// IsProcessed first; a duplicate entry would be wasteful but harmless since
// the set is only ever tested for membership.
func (l *Ledger) MarkProcessed(paymentID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.state.ProcessedPayments = append(l.state.ProcessedPayments, paymentID)
}

// SetAuthorized replaces any existing record for userID with a fresh
// authorized one.
func (l *Ledger) SetAuthorized(userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.state.VIPAccess[:0]
	for _, rec := range l.state.VIPAccess {
		if rec.UserID != userID {
			kept = append(kept, rec)
		}
	}
	l.state.VIPAccess = append(kept, Record{
		UserID: userID,
		Status: StatusAuthorized,
		Ts:     time.Now().UnixMilli(),
	})
}

// GetStatus returns the user's current status, or "" when no record exists.
func (l *Ledger) GetStatus(userID string) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, rec := range l.state.VIPAccess {
		if rec.UserID == userID {
			return rec.Status
		}
	}
	return ""
}

// Consume marks the user's record consumed in place. Consuming an
// already-consumed or missing record is a no-op.
func (l *Ledger) Consume(userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, rec := range l.state.VIPAccess {
		if rec.UserID == userID {
			l.state.VIPAccess[i].Status = StatusConsumed
			return
		}
	}
}
