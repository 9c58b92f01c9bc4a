package domain

import "time"

// Chunk represents one editable slice of a file's extracted text. The
// ordering key is fractional: a split splices the new chunk between two
// neighbors without renumbering the rest of the sequence.
type Chunk struct {
	ID        string
	FileID    string
	Content   string
	Index     float64
	Metadata  map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SplitKey returns the ordering key for a chunk inserted between key and
// next. When the chunk has no successor the gap defaults to one, so a chunk
// at an integer index splits to index+0.5. Repeated splits halve the gap
// each time; precision eventually degrades, no rebalancing pass exists.
func SplitKey(key, next float64) float64 {
	return key + (next-key)/2
}
