package pg

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/voiceweave/voiceweave/shared/logger"
)

//go:embed migrations/init.sql
var schema string

// Migrate applies the schema. Every statement in it is idempotent, so it runs on each start.
func (s *Storage) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	logger.Log.Info("schema applied", "component", "pg")
	return nil
}
