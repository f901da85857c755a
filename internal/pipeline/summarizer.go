// Package pipeline turns a repository URL into a summary: fetch the tree,
// rank files, fetch the best ones, then summarize them with one model call
// or, when they do not fit the token budget, with a map-reduce pass.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"reposummarizer/internal/contextbuild"
	"reposummarizer/internal/github"
	llmclient "reposummarizer/internal/llmClient"
	"reposummarizer/internal/scoring"
	"reposummarizer/internal/types"
)

// Fetcher is the read-only view of a code host the pipeline needs.
type Fetcher interface {
	DefaultBranch(ctx context.Context, ref types.RepoRef) (string, error)
	Tree(ctx context.Context, ref types.RepoRef, branch string) (types.Tree, error)
	FileContent(ctx context.Context, ref types.RepoRef, path string) (string, error)
}

type Summarizer struct {
	Fetcher Fetcher
	// Primary handles single-call summaries and the reduce step.
	Primary llmclient.LLMClient
	// Map handles per-chunk analyses. Primary is used when nil.
	Map    llmclient.LLMClient
	Limits types.Limits
	// Timeout bounds a whole Summarize call; <= 0 means no extra deadline.
	Timeout time.Duration
	Logger  *log.Logger
	// Verbose enables per-file score logging.
	Verbose bool
}

func (s *Summarizer) logf(format string, args ...any) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// Summarize runs the whole pipeline for repoURL. Every returned error is a
// *Error, so KindOf always yields a specific category.
func (s *Summarizer) Summarize(ctx context.Context, repoURL string) (types.SummaryResult, error) {
	ref, err := github.ParseURL(repoURL)
	if err != nil {
		return types.SummaryResult{}, newError(KindInvalidInput, err.Error(), err)
	}
	return s.SummarizeRef(ctx, ref)
}

// SummarizeRef runs the pipeline for an already identified repository.
func (s *Summarizer) SummarizeRef(ctx context.Context, ref types.RepoRef) (types.SummaryResult, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := s.run(ctx, ref)
	if err != nil {
		err = s.deadlineError(ctx, err)
		s.logf("summarize %s failed after %s: %v", ref, time.Since(start).Round(time.Millisecond), err)
		return types.SummaryResult{}, err
	}
	s.logf("summarize %s done in %s", ref, time.Since(start).Round(time.Millisecond))
	return res, nil
}

// deadlineError replaces whatever a canceled run produced with the reason
// the context ended.
func (s *Summarizer) deadlineError(ctx context.Context, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return newError(KindTimeout, "Request timed out", ctx.Err())
	case errors.Is(ctx.Err(), context.Canceled):
		return newError(KindInternal, "Request canceled", ctx.Err())
	}
	var pe *Error
	if errors.As(err, &pe) {
		return err
	}
	return newError(KindOf(err), MessageOf(err), err)
}

func (s *Summarizer) run(ctx context.Context, ref types.RepoRef) (types.SummaryResult, error) {
	observe(ctx, Event{Stage: StageFetching, Message: ref.String()})
	branch, err := s.Fetcher.DefaultBranch(ctx, ref)
	if err != nil {
		return types.SummaryResult{}, fetchError(ref, err)
	}
	tree, err := s.Fetcher.Tree(ctx, ref, branch)
	if err != nil {
		return types.SummaryResult{}, fetchError(ref, err)
	}
	if tree.Truncated {
		s.logf("tree for %s is truncated, using partial listing", ref)
	}

	blobs := tree.Blobs()
	if len(blobs) == 0 {
		observe(ctx, Event{Stage: StageDone})
		return emptyRepoResult(ref), nil
	}

	ranked := scoring.New(s.Limits).Rank(blobs)
	if s.Verbose {
		for _, e := range ranked {
			s.logf("score %3d %s", e.Score, e.Path)
		}
	}
	top := scoring.Top(ranked, s.Limits.MaxFilesToFetch)
	s.logf("%s: %d files in tree, %d ranked, fetching %d", ref, len(blobs), len(ranked), len(top))

	contents, err := s.fetchContents(ctx, ref, top)
	if err != nil {
		return types.SummaryResult{}, err
	}

	if !contextbuild.NeedsMapReduce(top, contents, tree, s.Limits.TokenBudget) {
		var logger *log.Logger
		if s.Verbose {
			logger = s.Logger
		}
		text := contextbuild.Assembler{Budget: s.Limits.TokenBudget, Logger: logger}.Assemble(top, contents, tree)
		s.logf("%s: single call, ~%d tokens", ref, contextbuild.EstimateTokens(text))
		return (&Single{LLM: s.Primary}).Run(ctx, text)
	}

	chunks := contextbuild.Splitter{ChunkTokens: s.Limits.ChunkTokens}.Split(top, contents)
	s.logf("%s: map-reduce over %d chunks", ref, len(chunks))
	mapLLM := s.Map
	if mapLLM == nil {
		mapLLM = s.Primary
	}
	mr := &MapReduce{Map: mapLLM, Reduce: s.Primary, MapConcurrency: s.Limits.MapConcurrency, Logger: s.Logger}
	return mr.Run(ctx, chunks, contextbuild.TreeAndReadme(tree, top, contents))
}

// fetchContents downloads the selected files concurrently. A file that
// fails is left out; the run fails only when files were selected and none
// of them could be read.
func (s *Summarizer) fetchContents(ctx context.Context, ref types.RepoRef, top []types.ScoredEntry) (types.Contents, error) {
	contents := types.Contents{}
	if len(top) == 0 {
		return contents, nil
	}
	n := len(top)
	var done atomic.Int32
	observe(ctx, Event{Stage: StageFetching, Total: n})
	results := runAll(ctx, n, s.Limits.FetchConcurrency, func(ctx context.Context, i int) (string, error) {
		c, err := s.Fetcher.FileContent(ctx, ref, top[i].Path)
		observe(ctx, Event{Stage: StageFetching, Completed: int(done.Add(1)), Total: n})
		return c, err
	})

	var (
		failed      int
		rateLimited int
	)
	for i, r := range results {
		switch {
		case r.Err != nil:
			failed++
			if errors.Is(r.Err, github.ErrRateLimited) {
				rateLimited++
			}
			if !errors.Is(r.Err, github.ErrBinaryContent) {
				s.logf("fetch %s: %v", top[i].Path, r.Err)
			}
		default:
			contents[top[i].Path] = r.Value
		}
	}
	s.logf("%s: fetched %d/%d files (%d failed)", ref, len(contents), n, failed)

	if failed == n {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if rateLimited == n {
			return nil, newError(KindRateLimited,
				"GitHub API rate limit exceeded. Set GITHUB_TOKEN env var for higher limits.", github.ErrRateLimited)
		}
		return nil, newError(KindUpstream, "GitHub API error: no file contents could be fetched", nil)
	}
	return contents, nil
}

func fetchError(ref types.RepoRef, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, github.ErrNotFound):
		return newError(KindNotFound, fmt.Sprintf("Repository %s not found or is private", ref), err)
	case errors.Is(err, github.ErrRateLimited):
		return newError(KindRateLimited,
			"GitHub API rate limit exceeded. Set GITHUB_TOKEN env var for higher limits.", err)
	}
	return newError(KindUpstream, "GitHub API error: "+err.Error(), err)
}

func emptyRepoResult(ref types.RepoRef) types.SummaryResult {
	return types.SummaryResult{
		Summary:      fmt.Sprintf("**%s** appears to be an empty repository with no files.", ref.Name),
		Technologies: []string{},
		Structure:    "No files found in the repository.",
	}
}
