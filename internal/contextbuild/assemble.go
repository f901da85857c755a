package contextbuild

import (
	"log"
	"strings"

	"reposummarizer/internal/types"
)

const (
	readmeMinScore   = 80
	manifestMinScore = 90
)

// Assembler builds a single prompt context bounded by Budget tokens.
type Assembler struct {
	Budget int
	// Logger receives debug output; nil disables it.
	Logger *log.Logger
}

// Assemble emits, in order: the full tree listing (never budget-checked),
// the best README, every manifest-tier file, then the rest of ranked until
// the next file would reach the budget. Files are included whole or not at all.
func (a Assembler) Assemble(ranked []types.ScoredEntry, contents types.Contents, tree types.Tree) string {
	var b strings.Builder
	b.WriteString(TreeListing(tree))
	b.WriteString("\n\n")

	added := make(map[string]struct{})
	fits := func(block string) bool {
		return tokensForLen(b.Len()+len(block)) < a.Budget
	}
	emit := func(p, block string) {
		b.WriteString(block)
		added[p] = struct{}{}
	}

	for _, e := range ranked {
		if e.Score < readmeMinScore || !isReadme(e.Path) {
			continue
		}
		c, ok := contents.Get(e.Path)
		if !ok {
			continue
		}
		if block := fileBlock(e.Path, c); fits(block) {
			emit(e.Path, block)
		}
		break
	}

	for _, e := range ranked {
		if e.Score < manifestMinScore {
			continue
		}
		if _, done := added[e.Path]; done {
			continue
		}
		c, ok := contents.Get(e.Path)
		if !ok {
			continue
		}
		if block := fileBlock(e.Path, c); fits(block) {
			emit(e.Path, block)
		} else {
			a.debugf("manifest %s does not fit the token budget", e.Path)
		}
	}

	for _, e := range ranked {
		if _, done := added[e.Path]; done {
			continue
		}
		c, ok := contents.Get(e.Path)
		if !ok {
			continue
		}
		block := fileBlock(e.Path, c)
		if !fits(block) {
			a.debugf("token budget reached at ~%d tokens, dropping remaining files", tokensForLen(b.Len()))
			break
		}
		emit(e.Path, block)
	}

	out := b.String()
	a.debugf("built context: ~%d tokens, %d files", EstimateTokens(out), len(added))
	return out
}

func (a Assembler) debugf(format string, args ...any) {
	if a.Logger != nil {
		a.Logger.Printf(format, args...)
	}
}

// NeedsMapReduce reports whether the tree listing plus every fetched ranked
// file would reach budget, i.e. whether Assemble would have to drop files.
func NeedsMapReduce(ranked []types.ScoredEntry, contents types.Contents, tree types.Tree, budget int) bool {
	n := len(TreeListing(tree)) + len("\n\n")
	for _, e := range ranked {
		if c, ok := contents.Get(e.Path); ok {
			n += len(fileBlock(e.Path, c))
		}
	}
	return tokensForLen(n) >= budget
}
