// Package services orchestrates ledger writes across SQLite and the event bus.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"budgetwise/internal/core"
	"budgetwise/internal/storage"

	"github.com/google/uuid"
)

// EventPublisher announces ledger changes. *amqp.Client satisfies it.
type EventPublisher interface {
	PublishCreated(ctx context.Context, userID, id string) error
	PublishDeleted(ctx context.Context, userID, id string) error
	Close() error
}

// TransactionService saves to SQLite first and then publishes a change event.
// A publish failure is logged and never fails the write.
type TransactionService struct {
	storage   *storage.SQLiteRepository
	publisher EventPublisher
	newID     func() string
}

func NewTransactionService(storage *storage.SQLiteRepository, publisher EventPublisher) *TransactionService {
	return &TransactionService{
		storage:   storage,
		publisher: publisher,
		newID:     uuid.NewString,
	}
}

func (s *TransactionService) CreateTransaction(ctx context.Context, userID string, n core.NewTransaction) (core.Transaction, error) {
	if err := n.Validate(); err != nil {
		return core.Transaction{}, err
	}
	tx := n.WithID(s.newID())
	if err := s.storage.InsertTransaction(ctx, userID, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return tx, nil
	}
	if err := s.publisher.PublishCreated(ctx, userID, tx.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message", "id", tx.ID, "error", err)
	}
	return tx, nil
}

// DeleteTransaction removes the row. Nothing is published for unknown IDs.
func (s *TransactionService) DeleteTransaction(ctx context.Context, userID, id string) error {
	removed, err := s.storage.DeleteTransaction(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if !removed {
		return nil
	}

	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping delete message")
		return nil
	}
	if err := s.publisher.PublishDeleted(ctx, userID, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete message", "id", id, "error", err)
	}
	return nil
}

// Close closes both storage and AMQP connections.
func (s *TransactionService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close transaction service: %v", errs)
	}

	return nil
}
