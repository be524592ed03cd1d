// Package idgen produces type-prefixed identifiers for entities and
// relationships. Uniqueness is guaranteed only together with the storage
// primary keys: on a collision the repositories regenerate a bounded
// number of times before giving up with a conflict.
package idgen

import (
	"encoding/binary"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

const (
	// EntityDigits is the fixed suffix width of entity identifiers.
	EntityDigits = 6
	// RelationshipPrefix starts every relationship identifier.
	RelationshipPrefix = "REL-"
	// RelationshipHexLen is the hex suffix width of relationship ids.
	RelationshipHexLen = 8
	// MaxAttempts bounds regeneration on a storage collision.
	MaxAttempts = 3

	defaultPrefix = "ENT"
)

// EntityID returns prefix plus a zero-padded random digit suffix,
// e.g. SRV000123.
func EntityID(prefix string) string {
	u := uuid.New()
	n := binary.BigEndian.Uint64(u[:8]) % 1_000_000
	return fmt.Sprintf("%s%0*d", prefix, EntityDigits, n)
}

// RelationshipID returns REL- plus a short hex suffix, e.g. REL-a1b2c3d4.
func RelationshipID() string {
	return RelationshipPrefix + strings.ReplaceAll(uuid.New().String(), "-", "")[:RelationshipHexLen]
}

// PrefixFor resolves the id prefix for an entity type. A prefix declared in
// the type catalog wins; otherwise the prefix is derived from the type
// name's uppercase letters (at most three), falling back to a generic one.
func PrefixFor(typeName, catalogPrefix string) string {
	if catalogPrefix != "" {
		return catalogPrefix
	}
	var b strings.Builder
	for _, r := range typeName {
		if unicode.IsUpper(r) {
			b.WriteRune(r)
			if b.Len() == 3 {
				break
			}
		}
	}
	if b.Len() == 0 {
		return defaultPrefix
	}
	return b.String()
}
