package ledger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l := New(filepath.Join(t.TempDir(), "db.json"))
	require.NoError(t, l.Load())
	return l
}

func TestLoadMissingFileStartsEmpty(t *testing.T) {
	l := newTestLedger(t)

	assert.False(t, l.IsProcessed("123"))
	assert.Equal(t, "", l.GetStatus("555"))
}

func TestLoadCorruptFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	require.NoError(t, os.WriteFile(path, []byte("not json at all"), 0o644))

	err := New(path).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt")
}

func TestMarkProcessedRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")

	l := New(path)
	require.NoError(t, l.Load())
	l.MarkProcessed("pay-1")
	require.NoError(t, l.Persist())

	reloaded := New(path)
	require.NoError(t, reloaded.Load())
	assert.True(t, reloaded.IsProcessed("pay-1"))
	assert.False(t, reloaded.IsProcessed("pay-2"))
}

func TestSetAuthorizedReplacesPriorRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	l := New(path)
	require.NoError(t, l.Load())

	l.SetAuthorized("555")
	l.Consume("555")
	l.SetAuthorized("555")
	require.NoError(t, l.Persist())

	assert.Equal(t, StatusAuthorized, l.GetStatus("555"))

	// the consumed record must be gone, not shadowed
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var file struct {
		ProcessedPayments []string `json:"processed_payments"`
		VIPAccess         []Record `json:"vip_access"`
	}
	require.NoError(t, json.Unmarshal(raw, &file))
	require.Len(t, file.VIPAccess, 1)
	assert.Equal(t, StatusAuthorized, file.VIPAccess[0].Status)
	assert.NotZero(t, file.VIPAccess[0].Ts)
}

func TestConsume(t *testing.T) {
	l := newTestLedger(t)

	// no record yet: no-op
	l.Consume("555")
	assert.Equal(t, "", l.GetStatus("555"))

	l.SetAuthorized("555")
	l.Consume("555")
	assert.Equal(t, StatusConsumed, l.GetStatus("555"))

	// consuming twice keeps the record consumed
	l.Consume("555")
	assert.Equal(t, StatusConsumed, l.GetStatus("555"))
}
