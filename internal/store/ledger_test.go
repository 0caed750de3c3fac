package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkpoint/internal/types"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := OpenLedger(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestLedgerRecordAndRecent(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, l.Record(ctx, Decision{
		SessionID: "a", ClientIP: "10.0.0.1", State: types.Failed, Score: 75,
		Elapsed: 5 * time.Second, Settle: 2500 * time.Millisecond, DecidedAt: base,
	}))
	require.NoError(t, l.Record(ctx, Decision{
		SessionID: "b", State: types.Verified, Score: 100,
		Elapsed: 5 * time.Second, Settle: 3 * time.Second, DecidedAt: base.Add(time.Minute),
	}))

	got, err := l.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].SessionID)
	assert.Equal(t, types.Verified, got[0].State)
	assert.Equal(t, 3*time.Second, got[0].Settle)
	assert.Equal(t, "a", got[1].SessionID)
	assert.Equal(t, "10.0.0.1", got[1].ClientIP)
	assert.Equal(t, 75, got[1].Score)
	assert.Equal(t, base, got[1].DecidedAt)

	limited, err := l.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestLedgerCounts(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	for i, st := range []types.VerificationState{types.Verified, types.Failed, types.Failed, types.Verified, types.Failed} {
		require.NoError(t, l.Record(ctx, Decision{
			SessionID: string(rune('a' + i)), State: st, DecidedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	v, f, err := l.Counts(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, 3, f)

	v, f, err = l.Counts(ctx, base.Add(3*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, 1, f)
}

func TestNewLedgerNilDB(t *testing.T) {
	_, err := NewLedger(nil)
	assert.ErrorIs(t, err, ErrNilDB)
}
