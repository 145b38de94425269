package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dukerupert/kinfolk/internal/database"
	"github.com/dukerupert/kinfolk/internal/model"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// seedLeader creates a person and an address so households have valid references.
func seedLeader(t *testing.T, db *sql.DB) (*model.Person, *model.Address) {
	t.Helper()
	ctx := context.Background()
	p, err := NewPersonStore(db).Create(ctx, model.Person{FirstName: "Leader"})
	if err != nil {
		t.Fatalf("create leader: %v", err)
	}
	a, err := NewAddressStore(db).Create(ctx, model.Address{Street: "1 Main St", City: "Springfield"})
	if err != nil {
		t.Fatalf("create address: %v", err)
	}
	return p, a
}
