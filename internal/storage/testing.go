package storage

// OpenMemory opens a migrated in-memory database.
func OpenMemory() (*DB, error) {
	cfg := DefaultConfig(":memory:")
	cfg.AutoMigrate = true
	return Open(cfg)
}
