package repository

// Repositories holds all repository implementations.
// This struct provides a single point of access to all data access layers.
type Repositories struct {
	Files FileRepository
	Users UserRepository

	// DatabaseType is DatabaseTypeSQLite or DatabaseTypePostgreSQL.
	DatabaseType string

	// Cleanup releases the underlying connection or pool. May be nil.
	Cleanup func()
}

// Close calls Cleanup when set.
func (r *Repositories) Close() {
	if r != nil && r.Cleanup != nil {
		r.Cleanup()
	}
}
