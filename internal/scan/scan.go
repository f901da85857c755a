// Package scan reads a repository from a local checkout. Dir satisfies the
// same fetch interface as the GitHub client, so a working copy can be
// summarized without network access to the code host.
package scan

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"reposummarizer/internal/github"
	"reposummarizer/internal/safeio"
	"reposummarizer/internal/types"
)

// skipDirs are never descended into. Their contents are VCS state or
// vendored dependencies that a hosted tree would not list either.
var skipDirs = map[string]struct{}{
	".git": {}, ".hg": {}, ".svn": {},
	"node_modules": {}, ".next": {}, ".cache": {}, "__pycache__": {}, ".venv": {},
}

// Dir is a local working copy.
type Dir struct {
	fs *safeio.SafeFS
	// MaxFileSize bounds FileContent reads; <= 0 disables the check.
	MaxFileSize int64
}

func Open(root string) (*Dir, error) {
	fsys, err := safeio.NewSafeFS(root)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return &Dir{fs: fsys}, nil
}

// Ref names the checkout after its directory.
func (d *Dir) Ref() types.RepoRef {
	return types.RepoRef{Owner: "local", Name: filepath.Base(d.fs.Root())}
}

// DefaultBranch reports the checked-out branch from .git/HEAD, or "local"
// when the directory is not a git checkout or HEAD is detached.
func (d *Dir) DefaultBranch(ctx context.Context, _ types.RepoRef) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	head, err := d.fs.ReadFile(".git/HEAD", 4096)
	if err != nil {
		return "local", nil
	}
	ref, ok := strings.CutPrefix(strings.TrimSpace(string(head)), "ref: refs/heads/")
	if !ok || ref == "" {
		return "local", nil
	}
	return ref, nil
}

// Tree walks the checkout in lexical order, the same order a hosted
// recursive tree uses. Paths matched by a .gitignore are left out.
func (d *Dir) Tree(ctx context.Context, _ types.RepoRef, _ string) (types.Tree, error) {
	root := d.fs.Root()
	ignores := newIgnoreSet(root)
	ignores.load(root)
	var entries []types.TreeEntry
	err := filepath.WalkDir(root, func(p string, de fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if p == root {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if de.IsDir() {
			if _, skip := skipDirs[de.Name()]; skip {
				return filepath.SkipDir
			}
			if ignores.ignored(p, true) {
				return filepath.SkipDir
			}
			ignores.load(p)
			entries = append(entries, types.TreeEntry{Path: rel, Kind: types.KindTree})
			return nil
		}
		if !de.Type().IsRegular() || ignores.ignored(p, false) {
			return nil
		}
		var size int64
		if fi, e := de.Info(); e == nil {
			size = fi.Size()
		}
		entries = append(entries, types.TreeEntry{Path: rel, Kind: types.KindBlob, Size: size})
		return nil
	})
	if err != nil {
		return types.Tree{}, err
	}
	return types.Tree{Entries: entries}, nil
}

// FileContent reads one file as text. Non-text content yields
// github.ErrBinaryContent so callers treat both sources alike.
func (d *Dir) FileContent(ctx context.Context, _ types.RepoRef, p string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b, err := d.fs.ReadFile(p, d.MaxFileSize)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) || bytes.IndexByte(b, 0) >= 0 {
		return "", github.ErrBinaryContent
	}
	return string(b), nil
}
