// Package auth implements the permission gateway: it maps a presented API
// key to a client identity and permission set. The key table is built once
// at startup from configuration and is immutable for the process lifetime.
package auth

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/T-6891/Dementor-API/internal/domain"
)

// Permission is one grant in a client's permission set.
type Permission string

const (
	PermissionRead  Permission = "read"
	PermissionWrite Permission = "write"
	PermissionAdmin Permission = "admin"
)

// Client is an authenticated API consumer.
type Client struct {
	ID          string
	Permissions []Permission
}

// Can reports whether the client holds the given permission.
func (c *Client) Can(p Permission) bool {
	for _, have := range c.Permissions {
		if have == p {
			return true
		}
	}
	return false
}

// KeyEntry is one row of the configured key table. Key holds either the
// plaintext API key or a bcrypt hash of it (recognized by the $2 prefix).
type KeyEntry struct {
	ClientID    string       `yaml:"client_id"`
	Key         string       `yaml:"key"`
	Permissions []Permission `yaml:"permissions"`
	Description string       `yaml:"description,omitempty"`
}

func (e KeyEntry) matches(presented string) bool {
	if strings.HasPrefix(e.Key, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(e.Key), []byte(presented)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(e.Key), []byte(presented)) == 1
}

// Gateway authorizes requests against the immutable key table.
type Gateway struct {
	entries []KeyEntry
}

// NewGateway builds a gateway from the configured key table.
func NewGateway(entries []KeyEntry) *Gateway {
	table := make([]KeyEntry, len(entries))
	copy(table, entries)
	return &Gateway{entries: table}
}

// Authenticate maps a presented key to a client. An empty or unknown key
// fails with the domain's Unauthorized error.
func (g *Gateway) Authenticate(presented string) (*Client, error) {
	if presented == "" {
		return nil, fmt.Errorf("missing API key: %w", domain.ErrUnauthorized)
	}
	for _, e := range g.entries {
		if e.matches(presented) {
			perms := make([]Permission, len(e.Permissions))
			copy(perms, e.Permissions)
			return &Client{ID: e.ClientID, Permissions: perms}, nil
		}
	}
	return nil, fmt.Errorf("invalid API key: %w", domain.ErrUnauthorized)
}

// Authorize authenticates the key and checks the required permission. A
// known key lacking the permission fails with Forbidden, never Unauthorized.
func (g *Gateway) Authorize(presented string, required Permission) (*Client, error) {
	client, err := g.Authenticate(presented)
	if err != nil {
		return nil, err
	}
	if !client.Can(required) {
		return nil, fmt.Errorf("client %s lacks %s permission: %w", client.ID, required, domain.ErrForbidden)
	}
	return client, nil
}

// ParseKeyTable parses the compact environment format
// clientId:key:perm1,perm2;clientId2:key2:... into key entries. Entries
// without permissions default to read-only.
func ParseKeyTable(raw string) ([]KeyEntry, error) {
	var entries []KeyEntry
	for _, item := range strings.Split(raw, ";") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.SplitN(item, ":", 3)
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("malformed API key entry %q", item)
		}
		entry := KeyEntry{
			ClientID:    parts[0],
			Key:         parts[1],
			Permissions: []Permission{PermissionRead},
		}
		if len(parts) == 3 && parts[2] != "" {
			entry.Permissions = entry.Permissions[:0]
			for _, p := range strings.Split(parts[2], ",") {
				p = strings.TrimSpace(p)
				switch Permission(p) {
				case PermissionRead, PermissionWrite, PermissionAdmin:
					entry.Permissions = append(entry.Permissions, Permission(p))
				default:
					return nil, fmt.Errorf("unknown permission %q for client %s", p, entry.ClientID)
				}
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
