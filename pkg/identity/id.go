package identity

import (
	"strings"

	"github.com/google/uuid"
)

// NewID allocates a random 128-bit identifier rendered as 32 lowercase hex characters.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// IDGenerator allocates identifiers. The clone engine takes one so tests can make ids predictable.
type IDGenerator func() string
