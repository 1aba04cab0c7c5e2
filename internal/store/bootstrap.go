package store

import (
	"context"
	"fmt"
)

// Bootstrap creates every table and index that does not exist yet.
func (s *Store) Bootstrap(ctx context.Context) error {
	for _, stmt := range s.Dialect.SchemaSQL() {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap schema: %w", err)
		}
	}
	return nil
}
