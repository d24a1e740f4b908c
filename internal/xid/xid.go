package xid

import "github.com/google/uuid"

// New returns a time-ordered identifier, so rows sort by creation when
// ordered by id. prefix is optional.
func New(prefix string) string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	if prefix == "" {
		return id.String()
	}
	return prefix + "-" + id.String()
}
