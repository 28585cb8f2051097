package pagination

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestCursorRoundTrip(t *testing.T) {
	in := Cursor{CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 600, time.UTC), ID: uuid.New()}
	out, err := ParseCursor(EncodeCursor(in))
	if err != nil {
		t.Fatalf("ParseCursor: %v", err)
	}
	if !out.CreatedAt.Equal(in.CreatedAt) || out.ID != in.ID {
		t.Fatalf("cursor mismatch: %+v vs %+v", out, in)
	}
}

func TestParseCursorBlankAndGarbage(t *testing.T) {
	if c, err := ParseCursor("  "); c != nil || err != nil {
		t.Fatalf("blank cursor should be nil, got %v %v", c, err)
	}
	if _, err := ParseCursor("not base64!!"); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestNormalizeLimit(t *testing.T) {
	if NormalizeLimit(0) != DefaultLimit || NormalizeLimit(500) != MaxLimit || NormalizeLimit(7) != 7 {
		t.Fatalf("unexpected normalization")
	}
}

func TestBuildTrimsAndSetsNextCursor(t *testing.T) {
	type row struct {
		id uuid.UUID
		at time.Time
	}
	base := time.Now().UTC()
	rows := []row{{uuid.New(), base}, {uuid.New(), base.Add(-time.Minute)}, {uuid.New(), base.Add(-2 * time.Minute)}}
	page := Build(rows, 2, func(r row) Cursor { return Cursor{CreatedAt: r.at, ID: r.id} })
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(page.Items))
	}
	cursor, err := ParseCursor(page.NextCursor)
	if err != nil || cursor == nil || cursor.ID != rows[1].id {
		t.Fatalf("next cursor should point at last kept row, got %+v %v", cursor, err)
	}

	last := Build(rows[:1], 2, func(r row) Cursor { return Cursor{CreatedAt: r.at, ID: r.id} })
	if last.NextCursor != "" {
		t.Fatalf("final page should not have a cursor")
	}
	empty := Build[row](nil, 2, func(r row) Cursor { return Cursor{} })
	if empty.Items == nil {
		t.Fatalf("items should marshal as an empty array")
	}
}

func TestParseCursorRejectsIncompletePayload(t *testing.T) {
	if _, err := ParseCursor(EncodeCursor(Cursor{CreatedAt: time.Now()})); err == nil {
		t.Fatalf("expected cursor without id to be rejected")
	}
}

func TestBeforeScope(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{DryRun: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	type product struct {
		ID        uuid.UUID
		CreatedAt time.Time
	}

	var rows []product
	first := db.Table("products p").Scopes(Before(nil, "p")).Find(&rows).Statement.SQL.String()
	if strings.Contains(first, "<") || !strings.Contains(first, "ORDER BY p.created_at DESC,p.id DESC") {
		t.Fatalf("unexpected first page sql: %s", first)
	}

	cursor := &Cursor{CreatedAt: time.Now().UTC(), ID: uuid.New()}
	next := db.Table("products p").Scopes(Before(cursor, "p")).Find(&rows).Statement.SQL.String()
	if !strings.Contains(next, "(p.created_at < ?) OR (p.created_at = ? AND p.id < ?)") {
		t.Fatalf("unexpected keyset sql: %s", next)
	}
}
