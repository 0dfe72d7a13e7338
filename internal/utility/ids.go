package utility

import "github.com/google/uuid"

// NewPlayerID returns an opaque player identifier.
func NewPlayerID() string {
	return uuid.New().String()
}

// NewConnID returns an identifier for a client connection.
func NewConnID() string {
	return "conn-" + uuid.New().String()
}
