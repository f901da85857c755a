package github

import (
	"fmt"
	"regexp"
	"strings"

	"reposummarizer/internal/types"
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)

// ParseURL extracts owner and repository from the usual ways of writing a
// GitHub repository address:
//
//	https://github.com/owner/repo
//	http://www.github.com/owner/repo/tree/main/src
//	github.com/owner/repo.git
//	git@github.com:owner/repo.git
//
// Anything after the repository segment is ignored.
func ParseURL(raw string) (types.RepoRef, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimRight(s, "/")
	s = strings.TrimSuffix(s, ".git")

	switch {
	case strings.HasPrefix(s, "git@github.com:"):
		s = "github.com/" + strings.TrimPrefix(s, "git@github.com:")
	default:
		s = strings.TrimPrefix(s, "https://")
		s = strings.TrimPrefix(s, "http://")
		s = strings.TrimPrefix(s, "www.")
	}
	if !strings.HasPrefix(strings.ToLower(s), "github.com/") {
		return types.RepoRef{}, fmt.Errorf("%w: not a GitHub URL: %q", ErrInvalidURL, raw)
	}

	var parts []string
	for _, p := range strings.Split(s[len("github.com/"):], "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) < 2 {
		return types.RepoRef{}, fmt.Errorf("%w: URL must include owner and repo: %q", ErrInvalidURL, raw)
	}
	owner, repo := parts[0], strings.TrimSuffix(parts[1], ".git")
	if !namePattern.MatchString(owner) || !namePattern.MatchString(repo) {
		return types.RepoRef{}, fmt.Errorf("%w: invalid owner or repo name: %q", ErrInvalidURL, raw)
	}
	return types.RepoRef{Owner: owner, Name: repo}, nil
}
