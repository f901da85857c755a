package contextbuild

import (
	"strings"

	"reposummarizer/internal/types"
)

// Chunk is one bounded slice of the selected files, analysed on its own.
type Chunk struct {
	Text  string
	Paths []string
}

// Tokens is the estimated size of the chunk.
func (c Chunk) Tokens() int { return EstimateTokens(c.Text) }

// Splitter packs file blocks into chunks of at most ChunkTokens tokens.
type Splitter struct {
	ChunkTokens int
}

// Split walks ranked in order and greedily packs each fetched file into the
// current chunk, starting a new one when the next file would overflow it.
// A file larger than ChunkTokens on its own becomes a single oversized chunk;
// files are never split.
func (s Splitter) Split(ranked []types.ScoredEntry, contents types.Contents) []Chunk {
	var (
		chunks []Chunk
		buf    strings.Builder
		paths  []string
	)
	flush := func() {
		if len(paths) == 0 {
			return
		}
		chunks = append(chunks, Chunk{Text: buf.String(), Paths: paths})
		buf.Reset()
		paths = nil
	}

	for _, e := range ranked {
		c, ok := contents.Get(e.Path)
		if !ok {
			continue
		}
		block := fileBlock(e.Path, c)
		if len(paths) > 0 && tokensForLen(buf.Len()+len(block)) > s.ChunkTokens {
			flush()
		}
		buf.WriteString(block)
		paths = append(paths, e.Path)
	}
	flush()
	return chunks
}
