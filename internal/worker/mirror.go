// Package worker mirrors the SQLite ledger into the spreadsheet ledger. It reacts
// to transaction events and sweeps rows whose events were lost.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"budgetwise/internal/amqp"
	"budgetwise/internal/core"
	"budgetwise/internal/storage"
)

// Source is the SQLite side of the mirror.
type Source interface {
	GetTransaction(ctx context.Context, id string) (*storage.SyncRecord, error)
	PendingSync(ctx context.Context, limit int) ([]storage.SyncRecord, error)
	MarkSynced(ctx context.Context, id string) error
	MarkSyncError(ctx context.Context, id string) error
}

// Target is the spreadsheet side of the mirror.
type Target interface {
	AppendTransaction(ctx context.Context, userID string, tx core.Transaction) error
	DeleteTransaction(ctx context.Context, userID, id string) error
}

type Mirror struct {
	source    Source
	target    Target
	batchSize int
}

func NewMirror(source Source, target Target, batchSize int) *Mirror {
	if batchSize < 1 {
		batchSize = 10
	}
	return &Mirror{source: source, target: target, batchSize: batchSize}
}

// HandleEvent is an amqp.Handler. A returned error requeues the event.
func (m *Mirror) HandleEvent(ctx context.Context, ev *amqp.TransactionEvent) error {
	switch ev.Action {
	case amqp.ActionCreated:
		return m.handleCreated(ctx, ev)
	case amqp.ActionDeleted:
		return m.handleDeleted(ctx, ev)
	default:
		slog.WarnContext(ctx, "Ignoring unknown event action", "action", ev.Action, "id", ev.ID)
		return nil
	}
}

func (m *Mirror) handleCreated(ctx context.Context, ev *amqp.TransactionEvent) error {
	rec, err := m.source.GetTransaction(ctx, ev.ID)
	if errors.Is(err, storage.ErrNotFound) {
		// Deleted before it was mirrored; the delete event covers the rest.
		slog.InfoContext(ctx, "Skipping created event for missing transaction", "id", ev.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}
	if rec.SyncStatus == storage.SyncSynced {
		slog.DebugContext(ctx, "Transaction already mirrored", "id", ev.ID)
		return nil
	}
	return m.mirror(ctx, *rec)
}

func (m *Mirror) handleDeleted(ctx context.Context, ev *amqp.TransactionEvent) error {
	if err := m.target.DeleteTransaction(ctx, ev.UserID, ev.ID); err != nil {
		return fmt.Errorf("delete mirrored transaction: %w", err)
	}
	slog.InfoContext(ctx, "Deleted mirrored transaction", "id", ev.ID, "user_id", ev.UserID)
	return nil
}

// mirror appends rec and records the outcome on the source row.
func (m *Mirror) mirror(ctx context.Context, rec storage.SyncRecord) error {
	id := rec.Transaction.ID
	if err := m.target.AppendTransaction(ctx, rec.UserID, rec.Transaction); err != nil {
		if markErr := m.source.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("append to mirror: %w", err)
	}
	if err := m.source.MarkSynced(ctx, id); err != nil {
		// The row reached the mirror; a later sweep may append it again.
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", id, "error", err)
	}
	slog.InfoContext(ctx, "Mirrored transaction",
		"id", id,
		"user_id", rec.UserID,
		"category", rec.Transaction.Category,
		"amount", rec.Transaction.Amount)
	return nil
}

// ProcessPending mirrors up to limit unsynced rows and reports how many made it.
func (m *Mirror) ProcessPending(ctx context.Context, limit int) (int, error) {
	pending, err := m.source.PendingSync(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("get pending transactions: %w", err)
	}
	synced := 0
	for _, rec := range pending {
		if ctx.Err() != nil {
			return synced, ctx.Err()
		}
		if err := m.mirror(ctx, rec); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror pending transaction", "id", rec.Transaction.ID, "error", err)
			continue
		}
		synced++
	}
	if len(pending) > 0 {
		slog.InfoContext(ctx, "Processed pending transactions", "total", len(pending), "synced", synced)
	}
	return synced, nil
}

// StartupSync sweeps a larger batch once, to catch up after downtime.
func (m *Mirror) StartupSync(ctx context.Context) error {
	_, err := m.ProcessPending(ctx, m.batchSize*5)
	return err
}

// Run sweeps pending rows every interval until ctx is done.
func (m *Mirror) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.ProcessPending(ctx, m.batchSize); err != nil && ctx.Err() == nil {
				slog.ErrorContext(ctx, "Periodic sync failed", "error", err)
			}
		}
	}
}
