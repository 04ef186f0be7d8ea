package helpers

import (
	"testing"

	"gorm.io/gorm"

	"github.com/kvell/invsync/internal/infrastructure/database"
)

// NewTestDB returns a migrated in-memory SQLite database, closed
// automatically at the end of the test.
func NewTestDB(t *testing.T) *gorm.DB {
	db, err := database.NewTestConnection()
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close(db)
	})
	return db
}
