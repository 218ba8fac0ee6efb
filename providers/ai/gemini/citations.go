package gemini

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// citationInsertion is a citation string to insert at a byte offset.
type citationInsertion struct {
	offset int
	order  int
	text   string
}

// applyCitations inserts Markdown citation links into text according to the
// grounding supports. Chunk n is rendered as "[n+1](uri)"; the links of one
// support are inserted, space separated and preceded by a space, at the
// support's segment end.
//
// Offsets are byte offsets into the original text. Insertions are applied
// from the highest offset down, so earlier offsets stay valid. Offsets past
// the end of the text are skipped; an offset inside a multi-byte rune is moved
// to the end of that rune.
//
// The returned bool reports whether anything was inserted.
func applyCitations(text string, metadata *groundingMetadata) (string, bool) {
	if metadata == nil || text == "" {
		return text, false
	}

	var insertions []citationInsertion
	for order, support := range metadata.GroundingSupports {
		if support.Segment == nil || support.Segment.EndIndex <= 0 || len(support.GroundingChunkIndices) == 0 {
			continue
		}

		var links []string
		for _, chunkIndex := range support.GroundingChunkIndices {
			if chunkIndex < 0 || chunkIndex >= len(metadata.GroundingChunks) {
				continue
			}
			web := metadata.GroundingChunks[chunkIndex].Web
			if web == nil || web.URI == "" {
				continue
			}
			links = append(links, fmt.Sprintf("[%d](%s)", chunkIndex+1, web.URI))
		}
		if len(links) == 0 {
			continue
		}

		insertions = append(insertions, citationInsertion{
			offset: support.Segment.EndIndex,
			order:  order,
			text:   " " + strings.Join(links, " "),
		})
	}
	if len(insertions) == 0 {
		return text, false
	}

	// Descending offset; for equal offsets the later support goes in first so
	// the final order matches the support order.
	sort.SliceStable(insertions, func(i, j int) bool {
		if insertions[i].offset != insertions[j].offset {
			return insertions[i].offset > insertions[j].offset
		}
		return insertions[i].order > insertions[j].order
	})

	result := text
	applied := false
	for _, insertion := range insertions {
		offset := insertion.offset
		if offset > len(text) {
			continue
		}
		for offset < len(text) && !utf8.RuneStart(text[offset]) {
			offset++
		}
		result = result[:offset] + insertion.text + result[offset:]
		applied = true
	}
	return result, applied
}
