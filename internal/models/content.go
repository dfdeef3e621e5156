package models

import (
	"fmt"

	"github.com/google/uuid"
)

// ContentType identifies which kind of post a moderation action targets.
type ContentType string

// Content type constants
const (
	ContentQuestion ContentType = "question"
	ContentAnswer   ContentType = "answer"
	ContentComment  ContentType = "comment"
)

// ContentTypes lists every supported content type.
var ContentTypes = []ContentType{ContentQuestion, ContentAnswer, ContentComment}

// ParseContentType validates a raw content type string.
func ParseContentType(s string) (ContentType, error) {
	for _, ct := range ContentTypes {
		if string(ct) == s {
			return ct, nil
		}
	}
	return "", fmt.Errorf("unknown content type %q", s)
}

// ContentRef points at a single piece of content.
type ContentRef struct {
	Type ContentType `json:"content_type"`
	ID   uuid.UUID   `json:"content_id"`
}

// Content is the minimal view of a post the engine needs: who owns it and,
// for questions, its tags.
type Content struct {
	ContentRef
	OwnerID uuid.UUID `json:"owner_id"`
	Tags    []string  `json:"tags,omitempty"`
}
