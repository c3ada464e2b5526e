package token

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuelRoundTrip(t *testing.T) {
	codec := NewFuelCodec("test-secret")

	fuel, err := codec.Encode("token-id-1", "2024123456")
	require.NoError(t, err)

	id, err := codec.Decode(fuel, "2024123456")
	require.NoError(t, err)
	assert.Equal(t, "token-id-1", id)
}

func TestFuelEncodingIsDeterministic(t *testing.T) {
	codec := NewFuelCodec("test-secret")

	a, err := codec.Encode("token-id-1", "2024123456")
	require.NoError(t, err)
	b, err := codec.Encode("token-id-1", "2024123456")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestFuelRejectsWrongOwner(t *testing.T) {
	codec := NewFuelCodec("test-secret")

	fuel, err := codec.Encode("token-id-1", "2024123456")
	require.NoError(t, err)

	_, err = codec.Decode(fuel, "2024999999")
	assert.Error(t, err)
}

func TestFuelRejectsTampering(t *testing.T) {
	codec := NewFuelCodec("test-secret")

	fuel, err := codec.Encode("token-id-1", "2024123456")
	require.NoError(t, err)

	parts := strings.Split(fuel, ".")
	require.Len(t, parts, 3)

	// Swap in a different id while keeping the original signature.
	forged, err := codec.Encode("token-id-2", "2024123456")
	require.NoError(t, err)
	forgedParts := strings.Split(forged, ".")
	tampered := strings.Join([]string{forgedParts[0], parts[1], parts[2]}, ".")

	_, err = codec.Decode(tampered, "2024123456")
	assert.Error(t, err)
}

func TestFuelRejectsForeignSecret(t *testing.T) {
	fuel, err := NewFuelCodec("secret-a").Encode("token-id-1", "2024123456")
	require.NoError(t, err)

	_, err = NewFuelCodec("secret-b").Decode(fuel, "2024123456")
	assert.Error(t, err)
}

func TestFuelRejectsGarbage(t *testing.T) {
	codec := NewFuelCodec("test-secret")
	for _, fuel := range []string{"", "abc", "a.b", "a.b.c.d"} {
		_, err := codec.Decode(fuel, "2024123456")
		assert.Error(t, err, "fuel %q", fuel)
	}
}
