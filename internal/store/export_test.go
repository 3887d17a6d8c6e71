package store

import "context"

// ForceSchemaVersion overwrites the recorded schema version.
func (s *Store) ForceSchemaVersion(ctx context.Context, version int) error {
	_, err := s.execWithRetry(ctx, `UPDATE schema_version SET version = ?`, version)
	return err
}
