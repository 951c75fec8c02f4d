package migration

// Status describes the schema state of a database relative to the embedded migrations.
type Status struct {
	CurrentVersion uint   // Latest applied migration version, zero when none
	LatestVersion  uint   // Highest version shipped with the binary
	Dirty          bool   // A migration failed part way through
	Pending        []uint // Versions not yet applied, ascending
}

// UpToDate reports whether every embedded migration has been applied cleanly.
func (s Status) UpToDate() bool {
	return !s.Dirty && len(s.Pending) == 0
}
