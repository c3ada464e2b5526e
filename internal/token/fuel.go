package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// FuelCodec encodes admission-token row ids into the opaque "fuel" string
// handed to users, and decodes them back with an owner check. The encoding is
// deterministic: the same (id, username) pair always yields the same fuel.
type FuelCodec struct {
	secret []byte
}

// NewFuelCodec constructs a codec keyed by the configured secret.
func NewFuelCodec(secret string) *FuelCodec {
	return &FuelCodec{secret: []byte(secret)}
}

// Encode renders the fuel string for a token row owned by username.
func (c *FuelCodec) Encode(id, username string) (string, error) {
	if id == "" || username == "" {
		return "", fmt.Errorf("id and username required")
	}
	if len(c.secret) == 0 {
		return "", fmt.Errorf("fuel secret missing")
	}
	encodedID := base64.RawURLEncoding.EncodeToString([]byte(id))
	encodedUser := base64.RawURLEncoding.EncodeToString([]byte(username))
	token := strings.Join([]string{encodedID, encodedUser, c.sign(encodedID, encodedUser)}, ".")
	return token, nil
}

// Decode validates a fuel string and returns the embedded token id. It fails
// when the signature does not verify or the embedded owner is not username.
func (c *FuelCodec) Decode(fuel, username string) (string, error) {
	parts := strings.Split(fuel, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("invalid fuel format")
	}
	encodedID, encodedUser, signature := parts[0], parts[1], parts[2]

	expected := c.sign(encodedID, encodedUser)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return "", fmt.Errorf("invalid fuel signature")
	}

	owner, err := base64.RawURLEncoding.DecodeString(encodedUser)
	if err != nil {
		return "", fmt.Errorf("decode fuel owner: %w", err)
	}
	if string(owner) != username {
		return "", fmt.Errorf("fuel owner mismatch")
	}

	id, err := base64.RawURLEncoding.DecodeString(encodedID)
	if err != nil {
		return "", fmt.Errorf("decode fuel id: %w", err)
	}
	return string(id), nil
}

func (c *FuelCodec) sign(encodedID, encodedUser string) string {
	mac := hmac.New(sha256.New, c.secret)
	_, _ = mac.Write([]byte(encodedID + "|" + encodedUser))
	return hex.EncodeToString(mac.Sum(nil))
}
