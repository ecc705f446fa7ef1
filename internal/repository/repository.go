// Package repository contains the data-access layer: small interfaces the
// services depend on, with GORM implementations against the durable store.
package repository

import "github.com/google/uuid"

// newUUID centralizes row-UUID generation for the Gorm repositories.
func newUUID() uuid.UUID {
	return uuid.New()
}
