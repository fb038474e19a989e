package uid

import "github.com/google/uuid"

// New generates a new unique identifier.
func New() string {
	return uuid.NewString()
}

// WithPrefix generates an identifier tagged with prefix, e.g. "local_<uuid>".
func WithPrefix(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

// IsValid checks if a string is a valid UUID.
func IsValid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
