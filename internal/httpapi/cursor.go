package httpapi

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// encodeCursor packs a keyset pagination position into an opaque,
// URL-safe token: base64("<rfc3339nano createdAt>|<id>"). Opaque so
// clients never need to understand its shape, matching the teacher's
// own preference for tokenized rather than raw-offset pagination.
func encodeCursor(createdAt time.Time, id string) string {
	raw := fmt.Sprintf("%s|%s", createdAt.UTC().Format(time.RFC3339Nano), id)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// decodeCursor reverses encodeCursor. An empty token decodes to the
// zero cursor (first page).
func decodeCursor(token string) (createdAt time.Time, id string, err error) {
	if token == "" {
		return time.Time{}, "", nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("malformed cursor: %w", err)
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, "", fmt.Errorf("malformed cursor: wrong shape")
	}
	createdAt, err = time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Time{}, "", fmt.Errorf("malformed cursor: bad timestamp: %w", err)
	}
	return createdAt, parts[1], nil
}
