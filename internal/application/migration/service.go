package migration

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/shopbridge/backend/internal/application/catalogsync"
	"github.com/shopbridge/backend/internal/domain/catalog"
	"github.com/shopbridge/backend/internal/infrastructure/retry"
)

// Service migrates orders on demand. Each migration builds a fresh
// destination snapshot so line matching never runs against stale variants.
type Service struct {
	source catalog.SourceCatalog
	dest   catalog.DestinationCatalog
	exec   *retry.Executor
	logger *zap.Logger
}

// NewService creates a migration service.
func NewService(
	source catalog.SourceCatalog,
	dest catalog.DestinationCatalog,
	exec *retry.Executor,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{source: source, dest: dest, exec: exec, logger: logger}
}

// MigrateOrder snapshots the destination catalog and migrates one order.
func (s *Service) MigrateOrder(ctx context.Context, orderID string) (*Result, error) {
	index, err := catalogsync.BuildPacedIndex(ctx, s.dest, s.exec)
	if err != nil {
		return nil, fmt.Errorf("snapshot destination catalog: %w", err)
	}
	migrator := NewMigrator(s.source, s.dest, index, s.exec, s.logger)
	return migrator.MigrateOrder(ctx, orderID)
}
