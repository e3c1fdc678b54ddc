package repository

import (
	"sync"

	"gorm.io/gorm"
)

var (
	globalRepos *Repositories
	globalOnce  sync.Once
)

// InitializeGlobal builds the process-wide repositories once. Later calls are no-ops.
func InitializeGlobal(db *gorm.DB) {
	globalOnce.Do(func() {
		globalRepos = NewRepositories(db)
	})
}

// GetGlobalRepositories returns the process-wide repositories.
func GetGlobalRepositories() *Repositories {
	if globalRepos == nil {
		panic("repositories not initialized. Call InitializeGlobal first.")
	}
	return globalRepos
}
