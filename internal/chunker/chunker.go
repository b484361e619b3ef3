// Package chunker splits question context text into overlapping
// fixed-size segments. Segmentation is by character count, not token
// or sentence boundaries; that keeps it deterministic and cheap, which
// is what makes reindexing idempotent in content.
package chunker

import (
	"fmt"
	"strings"

	"question-rag/internal/models"
)

// Segment is one ordered slice of the source text. Index is the
// segment's position in the source and becomes chunk_index when the
// segment is persisted.
type Segment struct {
	Index int
	Text  string
	Start int // rune offset of the segment in the source text
}

// Chunk walks text in a sliding window: segment i starts at rune
// offset i*(chunkSize-overlap) and spans up to chunkSize runes. The
// walk stops at the first segment that reaches the end of the text,
// and trailing whitespace-only segments are dropped. For a given
// (text, chunkSize, overlap) the output is always identical.
//
// Stripping the first overlap runes of every segment after the first
// and concatenating reconstructs the source text exactly.
func Chunk(text string, chunkSize, overlap int) ([]Segment, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk_size %d must be positive", models.ErrInvalidChunkConfig, chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, chunk_size)", models.ErrInvalidChunkConfig, overlap)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is blank", models.ErrInvalidChunkConfig)
	}

	runes := []rune(text)
	stride := chunkSize - overlap

	var segments []Segment
	for start := 0; start < len(runes); start += stride {
		end := min(start+chunkSize, len(runes))
		segments = append(segments, Segment{
			Index: len(segments),
			Text:  string(runes[start:end]),
			Start: start,
		})
		if end == len(runes) {
			break
		}
	}

	// Whitespace at the tail of the source can yield segments with no
	// content; drop them from the end so indexes stay contiguous.
	for len(segments) > 0 && strings.TrimSpace(segments[len(segments)-1].Text) == "" {
		segments = segments[:len(segments)-1]
	}

	return segments, nil
}

// Reassemble rebuilds the source character sequence from ordered
// segments by trimming the shared overlap from every segment after
// the first. It is the inverse of Chunk for inputs without dropped
// trailing segments and exists to verify the coverage invariant.
func Reassemble(segments []Segment, overlap int) string {
	var b strings.Builder
	for i, seg := range segments {
		runes := []rune(seg.Text)
		if i > 0 && len(runes) > overlap {
			runes = runes[overlap:]
		} else if i > 0 {
			continue
		}
		b.WriteString(string(runes))
	}
	return b.String()
}
