package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// HashCodec derives the deterministic, one-way hashes used in public links.
// Access hashes address a single ticket through its (owner, event, ticket)
// triple; order hashes address the set of tickets sharing an order reference.
// Nothing derived here is ever persisted: verification always recomputes.
//
// The ":QR" tag on access hashes keeps the two families from colliding even
// though they share a key.
type HashCodec struct {
	secret []byte
}

// accessHashLen truncates the hex digest to keep QR payloads small.
const accessHashLen = 32

var wellFormedHash = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// NewHashCodec fails closed when the signing secret is missing. There is no
// development fallback: an unkeyed hash is guessable.
func NewHashCodec(secret string) (*HashCodec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("%w: order hash secret is required", ErrConfiguration)
	}
	return &HashCodec{secret: []byte(secret)}, nil
}

func (c *HashCodec) sum(data string) []byte {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(data))
	return mac.Sum(nil)
}

// AccessHash derives the check-in/pickup hash for one ticket.
func (c *HashCodec) AccessHash(ownerID, eventID, ticketID string) string {
	digest := hex.EncodeToString(c.sum(fmt.Sprintf("%s:%s:%s:QR", ownerID, eventID, ticketID)))
	return digest[:accessHashLen]
}

// OrderHash derives the legacy, event-unscoped confirmation hash.
func (c *HashCodec) OrderHash(orderRef string) string {
	return base64.RawURLEncoding.EncodeToString(c.sum(orderRef))
}

// ScopedOrderHash derives the event-scoped confirmation hash, which keeps two
// events with a colliding order reference apart.
func (c *HashCodec) ScopedOrderHash(orderRef, eventID string) string {
	return base64.RawURLEncoding.EncodeToString(c.sum(orderRef + ":" + eventID))
}

// VerifyAccessHash recomputes and compares in constant time.
func (c *HashCodec) VerifyAccessHash(hash, ownerID, eventID, ticketID string) bool {
	return hmac.Equal([]byte(hash), []byte(c.AccessHash(ownerID, eventID, ticketID)))
}

// VerifyOrderHash checks hash against the legacy unscoped derivation.
func (c *HashCodec) VerifyOrderHash(hash, orderRef string) bool {
	return hmac.Equal([]byte(hash), []byte(c.OrderHash(orderRef)))
}

// VerifyScopedOrderHash checks hash against the event-scoped derivation.
func (c *HashCodec) VerifyScopedOrderHash(hash, orderRef, eventID string) bool {
	return hmac.Equal([]byte(hash), []byte(c.ScopedOrderHash(orderRef, eventID)))
}

// IsWellFormed is the cheap structural gate applied before any candidate
// scan: URL-safe base64 alphabet, length 20-60.
func IsWellFormed(hash string) bool {
	if len(hash) < 20 || len(hash) > 60 {
		return false
	}
	return wellFormedHash.MatchString(hash)
}

// ConfirmationPath builds the public confirmation link path segment.
func (c *HashCodec) ConfirmationPath(orderRef, eventID string) string {
	return "/confirmation/" + c.ScopedOrderHash(orderRef, eventID)
}

// CheckinPath builds the public check-in link path segment.
func (c *HashCodec) CheckinPath(ownerID, eventID, ticketID string) string {
	return "/checkin/" + c.AccessHash(ownerID, eventID, ticketID)
}

// PickupPath builds the public accessory-pickup link path segment.
func (c *HashCodec) PickupPath(ownerID, eventID, ticketID string) string {
	return "/accessory-pickup/" + c.AccessHash(ownerID, eventID, ticketID)
}
