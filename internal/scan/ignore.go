package scan

import (
	"path/filepath"

	ignore "github.com/sabhiram/go-gitignore"
)

// ignoreSet holds the .gitignore files found so far during a walk, keyed
// by the directory that contains them.
type ignoreSet struct {
	root  string
	rules map[string]*ignore.GitIgnore
}

func newIgnoreSet(root string) *ignoreSet {
	return &ignoreSet{root: root, rules: map[string]*ignore.GitIgnore{}}
}

// load compiles dir/.gitignore when present. Walks visit a directory
// before its children, so rules are in place before they are needed.
func (s *ignoreSet) load(dir string) {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(dir, ".gitignore"))
	if err != nil {
		return
	}
	s.rules[dir] = gi
}

// ignored reports whether any .gitignore between p's parent and the root
// matches p. Directories are matched with a trailing slash so "dir/"
// patterns apply to them.
func (s *ignoreSet) ignored(p string, isDir bool) bool {
	if len(s.rules) == 0 {
		return false
	}
	dir := filepath.Dir(p)
	for {
		if gi, ok := s.rules[dir]; ok {
			if rel, err := filepath.Rel(dir, p); err == nil {
				rel = filepath.ToSlash(rel)
				if isDir {
					rel += "/"
				}
				if gi.MatchesPath(rel) {
					return true
				}
			}
		}
		if dir == s.root {
			return false
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return false
		}
		dir = parent
	}
}
