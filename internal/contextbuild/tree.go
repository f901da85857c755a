package contextbuild

import (
	"path"
	"strings"

	"reposummarizer/internal/types"
)

const treeHeader = "## Repository Directory Tree"

// TreeListing renders every tree entry, indented two spaces per level.
// Directories carry a trailing slash.
func TreeListing(tree types.Tree) string {
	var b strings.Builder
	b.WriteString(treeHeader)
	b.WriteString("\n")
	for _, e := range tree.Entries {
		b.WriteString("\n")
		b.WriteString(strings.Repeat("  ", strings.Count(e.Path, "/")))
		b.WriteString(path.Base(e.Path))
		if e.Kind == types.KindTree {
			b.WriteString("/")
		}
	}
	if tree.Truncated {
		b.WriteString("\n\n(listing truncated by the repository host)")
	}
	return b.String()
}

// fileBlock is the unit every budget decision is made on.
func fileBlock(p, content string) string {
	return "## File: " + p + "\n" + content + "\n\n"
}

func isReadme(p string) bool {
	return strings.HasPrefix(strings.ToLower(path.Base(p)), "readme")
}

// TreeAndReadme builds the shared preamble of the reduce step: the tree
// listing followed by the first README (in ranked order) that was fetched.
func TreeAndReadme(tree types.Tree, ranked []types.ScoredEntry, contents types.Contents) string {
	var b strings.Builder
	b.WriteString(TreeListing(tree))
	b.WriteString("\n\n")
	for _, e := range ranked {
		if !isReadme(e.Path) {
			continue
		}
		if c, ok := contents.Get(e.Path); ok {
			b.WriteString(fileBlock(e.Path, c))
			break
		}
	}
	return b.String()
}
