package result

import (
	"testing"

	"gorm.io/gorm"

	"loginwatch/logger"
	"loginwatch/testutil"
)

// setupTestStore creates a migrated in-memory store for tests.
func setupTestStore(t *testing.T) (*gorm.DB, *GormStore) {
	db := testutil.SetupTestDB(t)
	testutil.AutoMigrate(t, db, &Run{}, &Attempt{})

	log := logger.NewTestLogger()
	store := NewGormStore(db, log)

	return db, store
}
