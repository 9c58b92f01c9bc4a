// Package chat provides responder implementations for the chat surface.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shelf-works/shelf/internal/service"
)

// DefaultCannedDelay approximates a model round trip.
const DefaultCannedDelay = 600 * time.Millisecond

// CannedResponder is the stand-in used when no model is configured. It
// answers with a fixed-shape reply built from the supplied contexts,
// after a short artificial delay.
type CannedResponder struct {
	Delay time.Duration
}

func NewCannedResponder() *CannedResponder {
	return &CannedResponder{Delay: DefaultCannedDelay}
}

func (r *CannedResponder) Respond(ctx context.Context, query string, contexts []service.ChunkContext) (string, error) {
	delay := r.Delay
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if len(contexts) == 0 {
		return fmt.Sprintf("I don't have any processed documents to draw on yet, so I can't answer %q. Upload a file and try again once it finishes processing.", query), nil
	}

	titles := make([]string, 0, len(contexts))
	seen := make(map[string]struct{}, len(contexts))
	for _, c := range contexts {
		if _, ok := seen[c.FileTitle]; ok {
			continue
		}
		seen[c.FileTitle] = struct{}{}
		titles = append(titles, c.FileTitle)
	}

	return fmt.Sprintf("Based on %s, here is what I found for %q: %s",
		strings.Join(titles, ", "), query, firstSentence(contexts[0].Content)), nil
}

// firstSentence returns the leading sentence of a chunk, bounded to keep
// canned replies short.
func firstSentence(content string) string {
	content = strings.TrimSpace(content)
	if idx := strings.IndexAny(content, ".!?"); idx >= 0 && idx < 200 {
		return content[:idx+1]
	}
	runes := []rune(content)
	if len(runes) > 200 {
		return string(runes[:200]) + "..."
	}
	return content
}
