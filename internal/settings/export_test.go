package settings

import "context"

// ForceSchemaVersionForTest rewrites the recorded schema version.
func ForceSchemaVersionForTest(s *Store, version int) error {
	return s.exec(context.Background(), "UPDATE schema_version SET version = ?", version)
}
