package events

import (
	"context"
	"fmt"

	"github.com/monadical-sas/reflector/internal/store"
)

// PGNotifier implements store.Notifier by issuing pg_notify through the
// caller's own transaction executor, so the NOTIFY commits atomically
// with whatever row mutation produced it.
type PGNotifier struct{}

// NewPGNotifier returns the default Notifier used by internal/store.
func NewPGNotifier() *PGNotifier { return &PGNotifier{} }

// NotifyInTx issues SELECT pg_notify(channel, payload) using the given
// transaction-scoped executor (ent's tx.Client().Driver(), which shares
// the underlying database/sql transaction with every other statement the
// caller ran on that *ent.Tx).
func (PGNotifier) NotifyInTx(ctx context.Context, exec store.TxExecutor, channel string, payload []byte) error {
	if err := exec.Exec(ctx, "SELECT pg_notify($1, $2)", []any{channel, string(payload)}, nil); err != nil {
		return fmt.Errorf("pg_notify on %s: %w", channel, err)
	}
	return nil
}
