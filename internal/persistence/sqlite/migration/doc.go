// Package migration prepares SQLite databases for the lab inventory store.
//
// It owns two concerns:
//
//   - SQLiteConfig and ConnectionManager open a *sql.DB with PRAGMAs applied to
//     every pooled connection.
//   - Manager applies the versioned schema embedded under migrations/ using
//     golang-migrate. Files follow the {version}_{description}.{up|down}.sql
//     convention and applied versions are tracked in the schema_migrations table.
//
// Example usage:
//
//	manager, err := migration.NewManager(db, logger)
//	if err != nil {
//		return err
//	}
//	if err := manager.Up(ctx); err != nil {
//		return err
//	}
package migration
