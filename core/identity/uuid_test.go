package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLooksLikeUUID(t *testing.T) {
	assert.True(t, LooksLikeUUID(NewUUID()))
	assert.True(t, LooksLikeUUID("b3f2c1d0-5e4f-4a3b-8c2d-1e0f9a8b7c6d"))
	assert.False(t, LooksLikeUUID("B3F2C1D0-5E4F-4A3B-8C2D-1E0F9A8B7C6D"))
	assert.False(t, LooksLikeUUID("b3f2c1d0-5e4f-1a3b-8c2d-1e0f9a8b7c6d"), "version nibble")
	assert.False(t, LooksLikeUUID("b3f2c1d0-5e4f-4a3b-7c2d-1e0f9a8b7c6d"), "variant nibble")
	assert.False(t, LooksLikeUUID("12"))
	assert.False(t, LooksLikeUUID(int64(12)))
	assert.False(t, LooksLikeUUID(nil))
}

func TestLooksLikeIDOrUUID(t *testing.T) {
	assert.True(t, LooksLikeIDOrUUID("12"))
	assert.True(t, LooksLikeIDOrUUID(int64(12)))
	assert.True(t, LooksLikeIDOrUUID(float64(12)))
	assert.True(t, LooksLikeIDOrUUID(NewUUID()))
	assert.False(t, LooksLikeIDOrUUID("-1"))
	assert.False(t, LooksLikeIDOrUUID(1.5))
	assert.False(t, LooksLikeIDOrUUID("abc"))
}

func TestValidate(t *testing.T) {
	a, b := NewUUID(), NewUUID()
	assert.NoError(t, ValidateUUIDs(a, b))
	assert.NoError(t, ValidateUUIDs())
	assert.ErrorIs(t, ValidateUUIDs(a, "nope", b), ErrInvalidUUID)
	assert.ErrorIs(t, ValidateUUIDs("12"), ErrInvalidUUID)

	assert.NoError(t, ValidateIDsOrUUIDs(a, "12"))
	assert.ErrorIs(t, ValidateIDsOrUUIDs(a, "x12"), ErrInvalidUUID)

	id, ok := ParseID("42")
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)
	_, ok = ParseID(a)
	assert.False(t, ok)
	_, ok = ParseID("-3")
	assert.False(t, ok)
}
