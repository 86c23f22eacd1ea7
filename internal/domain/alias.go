package domain

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrMalformedAddress is returned when an inbound recipient address does not
// look like a workshop alias at all.
var ErrMalformedAddress = errors.New("malformed workshop address")

// AliasCodec derives the inbound mailing alias for a workshop secret and
// parses an inbound recipient address back into that secret.
type AliasCodec struct {
	domain  string
	pattern *regexp.Regexp
}

// NewAliasCodec returns a codec for aliases within the given mail domain.
// Parsing tolerates one arbitrary leading token ("tag-workshop-<secret>@...")
// because some providers rewrite the envelope recipient with a routing prefix.
func NewAliasCodec(domain string) *AliasCodec {
	pattern := regexp.MustCompile(`(?i)^(?:\w+-)?workshop-([\w-]+)@` + regexp.QuoteMeta(domain) + `$`)
	return &AliasCodec{domain: domain, pattern: pattern}
}

// Address builds the alias address for a workshop secret.
func (c *AliasCodec) Address(secret string) string {
	return fmt.Sprintf("workshop-%s@%s", secret, c.domain)
}

// ParseAddress extracts the workshop secret from an inbound recipient address.
func (c *AliasCodec) ParseAddress(address string) (string, error) {
	m := c.pattern.FindStringSubmatch(strings.TrimSpace(address))
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrMalformedAddress, address)
	}
	return strings.ToLower(m[1]), nil
}

// NewEmailSecret returns a fresh unguessable workshop alias secret.
func NewEmailSecret() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
