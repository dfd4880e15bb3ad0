package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/dukerupert/fairshare/internal/database"
	"github.com/dukerupert/fairshare/internal/model"
)

var testNow = time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	partners := NewPartnerStore(db)
	for i, p := range []model.Partner{
		{ID: "minji", Name: "Minji", Color: "#f4a6a6"},
		{ID: "junho", Name: "Junho", Color: "#a6c8f4"},
	} {
		p.SortOrder = i
		if _, err := partners.Upsert(p); err != nil {
			t.Fatalf("seed partner %s: %v", p.ID, err)
		}
	}
	return db
}
