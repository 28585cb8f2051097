package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

var errInvalidCursor = errors.New("invalid cursor")

// Cursor is the keyset position: rows strictly older than (CreatedAt, ID) come next.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// wireCursor is the JSON form hidden behind the opaque base64 token.
type wireCursor struct {
	At int64     `json:"t"`
	ID uuid.UUID `json:"id"`
}

// Page is the response envelope for keyset-paginated lists.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// NormalizeLimit clamps limit into [1, MaxLimit], using DefaultLimit for non-positive values.
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

// LimitWithBuffer is the row count to fetch so Build can tell whether another page exists.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// Build trims rows fetched with LimitWithBuffer down to limit and derives the
// next cursor from the last kept row.
func Build[T any](rows []T, limit int, cursorOf func(T) Cursor) Page[T] {
	limit = NormalizeLimit(limit)
	if rows == nil {
		rows = []T{}
	}
	if len(rows) <= limit {
		return Page[T]{Items: rows}
	}
	return Page[T]{Items: rows[:limit], NextCursor: EncodeCursor(cursorOf(rows[limit-1]))}
}

// Before scopes a newest-first query to rows after the cursor position.
// table qualifies the columns when the query joins; pass "" otherwise.
func Before(cursor *Cursor, table string) func(*gorm.DB) *gorm.DB {
	createdAt, id := "created_at", "id"
	if table != "" {
		createdAt, id = table+".created_at", table+".id"
	}
	return func(db *gorm.DB) *gorm.DB {
		if cursor != nil {
			db = db.Where(fmt.Sprintf("(%[1]s < ?) OR (%[1]s = ? AND %[2]s < ?)", createdAt, id), cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
		}
		return db.Order(createdAt + " DESC").Order(id + " DESC")
	}
}

func EncodeCursor(cursor Cursor) string {
	raw, _ := json.Marshal(wireCursor{At: cursor.CreatedAt.UnixNano(), ID: cursor.ID})
	return base64.RawURLEncoding.EncodeToString(raw)
}

// ParseCursor decodes a token from EncodeCursor. A blank value yields a nil cursor.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidCursor, err)
	}
	var wire wireCursor
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidCursor, err)
	}
	if wire.At <= 0 || wire.ID == uuid.Nil {
		return nil, errInvalidCursor
	}
	return &Cursor{CreatedAt: time.Unix(0, wire.At).UTC(), ID: wire.ID}, nil
}
