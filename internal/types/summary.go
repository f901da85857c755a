package types

import "strings"

// EntryKind distinguishes files from directories in a repository tree.
type EntryKind string

const (
	KindBlob EntryKind = "blob"
	KindTree EntryKind = "tree"
)

// TreeEntry is one row of a repository tree snapshot.
type TreeEntry struct {
	Path string    `json:"path"`
	Kind EntryKind `json:"type"`
	Size int64     `json:"size"`
	SHA  string    `json:"sha"`
}

// IsBlob reports whether the entry is a file.
func (e TreeEntry) IsBlob() bool { return e.Kind == KindBlob }

// Depth is the number of path segments ("README.md" = 1, "a/b.go" = 2).
func (e TreeEntry) Depth() int { return PathDepth(e.Path) }

// PathDepth counts the '/'-separated segments of a repo-relative path.
func PathDepth(p string) int {
	return strings.Count(p, "/") + 1
}

// Tree is an ordered tree snapshot. Truncated is set when the host
// returned only part of a very large tree.
type Tree struct {
	Entries   []TreeEntry `json:"tree"`
	Truncated bool        `json:"truncated"`
}

// Blobs returns the file entries in tree order.
func (t Tree) Blobs() []TreeEntry {
	var out []TreeEntry
	for _, e := range t.Entries {
		if e.IsBlob() {
			out = append(out, e)
		}
	}
	return out
}

// ScoredEntry is a tree entry with its importance score in [0,100].
type ScoredEntry struct {
	TreeEntry
	Score int `json:"score"`
}

// Contents maps a path to its decoded text. A missing key means the
// content was not requested, could not be fetched, or was not text. An
// empty file is present with "".
type Contents map[string]string

// Get returns the content for path when present and non-empty.
func (c Contents) Get(path string) (string, bool) {
	s, ok := c[path]
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// RepoRef identifies a hosted repository.
type RepoRef struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

func (r RepoRef) String() string { return r.Owner + "/" + r.Name }

// PartialAnalysis is the output of one map step.
type PartialAnalysis struct {
	Purpose        string   `json:"purpose"`
	Technologies   []string `json:"technologies"`
	StructureNotes string   `json:"structure_notes"`
}

// SummaryResult is the final answer returned to callers.
type SummaryResult struct {
	Summary      string   `json:"summary"`
	Technologies []string `json:"technologies"`
	Structure    string   `json:"structure"`
}

// Limits bounds how much of a repository one request may look at.
type Limits struct {
	TokenBudget      int   `yaml:"token_budget"`
	ChunkTokens      int   `yaml:"chunk_tokens"`
	MaxFilesToFetch  int   `yaml:"max_files_to_fetch"`
	MaxFileSize      int64 `yaml:"max_file_size"`
	MaxTreeDepth     int   `yaml:"max_tree_depth"`
	FetchConcurrency int   `yaml:"fetch_concurrency"`
	// MapConcurrency <= 0 issues every map call at once.
	MapConcurrency int `yaml:"map_concurrency"`
}

// DefaultLimits returns the production defaults.
func DefaultLimits() Limits {
	return Limits{
		TokenBudget:      100_000,
		ChunkTokens:      30_000,
		MaxFilesToFetch:  50,
		MaxFileSize:      100_000,
		MaxTreeDepth:     8,
		FetchConcurrency: 16,
		MapConcurrency:   0,
	}
}
