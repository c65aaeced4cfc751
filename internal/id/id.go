// Package id generates identifiers for pipeline runs.
package id

import (
	"fmt"

	"github.com/google/uuid"
)

// NewRunID returns a UUIDv7; runs started later sort after earlier ones.
func NewRunID() (uuid.UUID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, fmt.Errorf("generate run id: %w", err)
	}
	return id, nil
}
