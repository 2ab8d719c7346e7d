package patch

import (
	"regexp"
	"strings"
)

// blockStartRe anchors on the repeating Index field the engine emits at
// the top of every patch entry.
var blockStartRe = regexp.MustCompile(`(?m)^[ \t]*Index:[ \t]*\d+[ \t]*\r?$`)

// SplitBlocks cuts raw list-patches output into per-patch text blocks in
// original order. Each block starts at an Index header and runs to the
// character before the next one. When no Index header exists the whole
// text is returned as a single block. Whitespace-only blocks are dropped.
func SplitBlocks(text string) []string {
	locs := blockStartRe.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []string{text}
	}

	blocks := make([]string, 0, len(locs))
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		block := text[loc[0]:end]
		if strings.TrimSpace(block) == "" {
			continue
		}
		blocks = append(blocks, block)
	}
	return blocks
}
