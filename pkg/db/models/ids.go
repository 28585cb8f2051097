package models

import "github.com/google/uuid"

// assignID fills zero primary keys before insert. Postgres also defaults the
// column, but keeping ids client-side lets callers reference rows pre-commit.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
