package pagination

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"
)

// Cursor marks the last row of the previous page in a
// (updated_at, id) descending keyset scan.
type Cursor struct {
	LastID    string
	UpdatedAt time.Time
}

var ErrInvalidCursor = errors.New("invalid cursor format")

// Encode produces an opaque cursor token for the given row.
func Encode(lastID string, updatedAt time.Time) string {
	if lastID == "" {
		return ""
	}
	raw := lastID + "|" + updatedAt.UTC().Format(time.RFC3339Nano)
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// Decode parses a cursor token. An empty token decodes to a nil cursor,
// meaning "first page".
func Decode(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	parts := strings.SplitN(string(decoded), "|", 2)
	if len(parts) != 2 {
		return nil, ErrInvalidCursor
	}

	updatedAt, err := time.Parse(time.RFC3339Nano, parts[1])
	if err != nil {
		return nil, ErrInvalidCursor
	}

	return &Cursor{
		LastID:    parts[0],
		UpdatedAt: updatedAt,
	}, nil
}
