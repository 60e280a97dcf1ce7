package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewReferenceNumber returns a human-shareable unique application reference,
// e.g. "BP-7F3A9C1D". Collisions are additionally caught by the unique
// column constraint.
func NewReferenceNumber() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "BP-" + raw[:8]
}

// NewReceipt returns a gateway receipt identifier for order creation.
func NewReceipt(prefix string) string {
	return prefix + "_" + uuid.NewString()
}
