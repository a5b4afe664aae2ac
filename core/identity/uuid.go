// Package identity translates between internal numeric identifiers and the
// UUIDs exposed to clients.
package identity

import (
	"errors"
	"regexp"
	"strconv"

	"github.com/google/uuid"
)

// UUIDPattern matches a lowercase version 4 UUID
const UUIDPattern = `[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}`

var (
	uuidRegexp     = regexp.MustCompile(`^` + UUIDPattern + `$`)
	idOrUUIDRegexp = regexp.MustCompile(`^([0-9]+|` + UUIDPattern + `)$`)
)

// ErrInvalidUUID is returned when a value cannot possibly identify an entity
var ErrInvalidUUID = errors.New("invalid uuid")

// NewUUID returns a new random version 4 UUID
func NewUUID() string {
	return uuid.New().String()
}

// LooksLikeUUID returns true if value is a string in UUID shape
func LooksLikeUUID(value interface{}) bool {
	s, ok := value.(string)
	return ok && uuidRegexp.MatchString(s)
}

// LooksLikeIDOrUUID returns true if value is an unsigned number or a UUID
func LooksLikeIDOrUUID(value interface{}) bool {
	switch v := value.(type) {
	case string:
		return idOrUUIDRegexp.MatchString(v)
	case int64:
		return v >= 0
	case int:
		return v >= 0
	case float64:
		return v >= 0 && v == float64(int64(v))
	}
	return false
}

// ValidateUUIDs returns ErrInvalidUUID if any of the values is not a UUID
func ValidateUUIDs(values ...string) error {
	for _, v := range values {
		if !uuidRegexp.MatchString(v) {
			return ErrInvalidUUID
		}
	}
	return nil
}

// ValidateIDsOrUUIDs returns ErrInvalidUUID if any of the values is neither an
// id nor a UUID
func ValidateIDsOrUUIDs(values ...string) error {
	for _, v := range values {
		if !idOrUUIDRegexp.MatchString(v) {
			return ErrInvalidUUID
		}
	}
	return nil
}

// ParseID returns the numeric id of an id-shaped string
func ParseID(value string) (int64, bool) {
	if LooksLikeUUID(value) {
		return 0, false
	}
	id, err := strconv.ParseInt(value, 10, 64)
	return id, err == nil && id >= 0
}
