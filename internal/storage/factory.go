package storage

// NewStorage creates the default SQLite-backed key-value store.
func NewStorage(dataDir string) (KV, error) {
	return NewSQLiteKV(dataDir)
}
