package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reposummarizer/internal/github"
	llmclient "reposummarizer/internal/llmClient"
	"reposummarizer/internal/types"
)

type fakeFetcher struct {
	branchErr error
	treeErr   error
	block     bool
	tree      types.Tree
	files     map[string]string
	fileErr   error

	mu      sync.Mutex
	fetched []string
}

func (f *fakeFetcher) DefaultBranch(ctx context.Context, ref types.RepoRef) (string, error) {
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.branchErr != nil {
		return "", f.branchErr
	}
	return "main", nil
}

func (f *fakeFetcher) Tree(ctx context.Context, ref types.RepoRef, branch string) (types.Tree, error) {
	if f.treeErr != nil {
		return types.Tree{}, f.treeErr
	}
	return f.tree, nil
}

func (f *fakeFetcher) FileContent(ctx context.Context, ref types.RepoRef, p string) (string, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, p)
	f.mu.Unlock()
	if f.fileErr != nil {
		return "", f.fileErr
	}
	c, ok := f.files[p]
	if !ok {
		return "", github.ErrNotFound
	}
	return c, nil
}

func blob(p string, size int) types.TreeEntry {
	return types.TreeEntry{Path: p, Kind: types.KindBlob, Size: int64(size)}
}

func dir(p string) types.TreeEntry {
	return types.TreeEntry{Path: p, Kind: types.KindTree}
}

func smallRepo() *fakeFetcher {
	files := map[string]string{
		"README.md": "# demo\nA tiny demo.",
		"go.mod":    "module demo\n",
		"pkg/a.go":  "package pkg\n",
	}
	return &fakeFetcher{
		tree: types.Tree{Entries: []types.TreeEntry{
			blob("README.md", len(files["README.md"])),
			blob("go.mod", len(files["go.mod"])),
			dir("pkg"),
			blob("pkg/a.go", len(files["pkg/a.go"])),
		}},
		files: files,
	}
}

func newTestSummarizer(f Fetcher, primary, mapper llmclient.LLMClient) *Summarizer {
	s := &Summarizer{Fetcher: f, Primary: primary, Limits: types.DefaultLimits()}
	if mapper != nil {
		s.Map = mapper
	}
	return s
}

func summaryReply(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	return summaryJSON("**demo** is a demo", "Go"), nil
}

func TestSummarize_InvalidURL(t *testing.T) {
	f := smallRepo()
	primary := llmclient.NewFakeClient()
	_, err := newTestSummarizer(f, primary, nil).Summarize(context.Background(), "https://gitlab.com/a/b")
	require.Error(t, err)
	assert.Equal(t, KindInvalidInput, KindOf(err))
	assert.Empty(t, f.fetched)
	assert.Empty(t, primary.Calls())
}

func TestSummarize_FetchErrors(t *testing.T) {
	cases := []struct {
		name    string
		fetcher *fakeFetcher
		kind    Kind
		msg     string
	}{
		{
			name:    "not found",
			fetcher: &fakeFetcher{branchErr: &github.APIError{Op: "repo", StatusCode: 404}},
			kind:    KindNotFound,
			msg:     "Repository octo/demo not found or is private",
		},
		{
			name:    "rate limited",
			fetcher: &fakeFetcher{treeErr: &github.APIError{Op: "tree", StatusCode: 403}},
			kind:    KindRateLimited,
			msg:     "GitHub API rate limit exceeded. Set GITHUB_TOKEN env var for higher limits.",
		},
		{
			name:    "server error",
			fetcher: &fakeFetcher{branchErr: &github.APIError{Op: "repo", StatusCode: 500}},
			kind:    KindUpstream,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newTestSummarizer(tc.fetcher, llmclient.NewFakeClient(), nil).
				Summarize(context.Background(), "https://github.com/octo/demo")
			require.Error(t, err)
			assert.Equal(t, tc.kind, KindOf(err))
			if tc.msg != "" {
				assert.Equal(t, tc.msg, MessageOf(err))
			}
		})
	}
}

func TestSummarize_EmptyRepo(t *testing.T) {
	f := &fakeFetcher{tree: types.Tree{Entries: []types.TreeEntry{dir("docs")}}}
	primary := llmclient.NewFakeClient()
	res, err := newTestSummarizer(f, primary, nil).Summarize(context.Background(), "https://github.com/octo/demo")
	require.NoError(t, err)
	assert.Equal(t, "**demo** appears to be an empty repository with no files.", res.Summary)
	assert.Equal(t, "No files found in the repository.", res.Structure)
	assert.Empty(t, res.Technologies)
	assert.Empty(t, primary.Calls())
}

func TestSummarize_SmallRepoUsesSingleCall(t *testing.T) {
	f := smallRepo()
	primary := &llmclient.FakeClient{Respond: summaryReply}
	mapper := llmclient.NewFakeClient()

	var mu sync.Mutex
	var stages []Stage
	ctx := WithObserver(context.Background(), func(ev Event) {
		mu.Lock()
		stages = append(stages, ev.Stage)
		mu.Unlock()
	})

	res, err := newTestSummarizer(f, primary, mapper).Summarize(ctx, "https://github.com/octo/demo")
	require.NoError(t, err)
	assert.Equal(t, "**demo** is a demo", res.Summary)
	assert.Equal(t, []string{"Go"}, res.Technologies)

	assert.Empty(t, mapper.Calls())
	calls := primary.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, singleSystemPrompt, calls[0].Prompt)
	in := calls[0].Input[0].Content
	assert.True(t, strings.HasPrefix(in, singleUserPrefix+"## Repository Directory Tree"))
	assert.Contains(t, in, "## File: README.md\n# demo")
	assert.Contains(t, in, "## File: pkg/a.go\n")

	require.NotEmpty(t, stages)
	assert.Equal(t, StageFetching, stages[0])
	assert.Contains(t, stages, StageSummarizing)
	assert.Equal(t, StageDone, stages[len(stages)-1])
}

func TestSummarize_LargeRepoUsesMapReduce(t *testing.T) {
	files := map[string]string{}
	entries := []types.TreeEntry{dir("pkg")}
	for i := 1; i <= 5; i++ {
		p := fmt.Sprintf("pkg/m%d.go", i)
		files[p] = strings.Repeat("x", 900)
		entries = append(entries, blob(p, 900))
	}
	f := &fakeFetcher{tree: types.Tree{Entries: entries}, files: files}

	mapper := &llmclient.FakeClient{Respond: func(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
		return json.RawMessage(`{"purpose":"module","technologies":["Go"],"structure_notes":"flat"}`), nil
	}}
	primary := &llmclient.FakeClient{Respond: summaryReply}

	s := newTestSummarizer(f, primary, mapper)
	s.Limits.TokenBudget = 1000
	s.Limits.ChunkTokens = 500

	res, err := s.Summarize(context.Background(), "https://github.com/octo/demo")
	require.NoError(t, err)
	assert.Equal(t, "**demo** is a demo", res.Summary)

	assert.Len(t, mapper.Calls(), 5)
	for _, c := range mapper.Calls() {
		assert.Equal(t, mapSystemPrompt, c.Prompt)
	}
	calls := primary.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, reduceSystemPrompt, calls[0].Prompt)
	assert.Contains(t, calls[0].Input[0].Content, "### Partial Analysis 5\n")
}

func TestSummarize_MapFallsBackToPrimary(t *testing.T) {
	files := map[string]string{}
	var entries []types.TreeEntry
	for i := 1; i <= 3; i++ {
		p := fmt.Sprintf("src%d.go", i)
		files[p] = strings.Repeat("y", 900)
		entries = append(entries, blob(p, 900))
	}
	f := &fakeFetcher{tree: types.Tree{Entries: entries}, files: files}
	primary := llmclient.NewFakeClient()

	s := newTestSummarizer(f, primary, nil)
	s.Limits.TokenBudget = 500
	s.Limits.ChunkTokens = 400

	_, err := s.Summarize(context.Background(), "https://github.com/octo/demo")
	require.NoError(t, err)
	// three map calls plus one reduce, all on the primary model
	assert.Len(t, primary.Calls(), 4)
}

func TestSummarize_NoContentsFetched(t *testing.T) {
	f := smallRepo()
	f.fileErr = errors.New("connection reset")
	primary := llmclient.NewFakeClient()
	_, err := newTestSummarizer(f, primary, nil).Summarize(context.Background(), "https://github.com/octo/demo")
	require.Error(t, err)
	assert.Equal(t, KindUpstream, KindOf(err))
	assert.Empty(t, primary.Calls())
}

func TestSummarize_AllFetchesRateLimited(t *testing.T) {
	f := smallRepo()
	f.fileErr = &github.APIError{Op: "contents", StatusCode: 429}
	_, err := newTestSummarizer(f, llmclient.NewFakeClient(), nil).Summarize(context.Background(), "https://github.com/octo/demo")
	assert.Equal(t, KindRateLimited, KindOf(err))
}

func TestSummarize_PartialFetchFailureDegrades(t *testing.T) {
	f := smallRepo()
	delete(f.files, "pkg/a.go")
	primary := &llmclient.FakeClient{Respond: summaryReply}
	_, err := newTestSummarizer(f, primary, nil).Summarize(context.Background(), "https://github.com/octo/demo")
	require.NoError(t, err)
	in := primary.Calls()[0].Input[0].Content
	assert.Contains(t, in, "## File: README.md")
	assert.NotContains(t, in, "## File: pkg/a.go")
	assert.Len(t, f.fetched, 3)
}

func TestSummarize_Timeout(t *testing.T) {
	f := &fakeFetcher{block: true}
	s := newTestSummarizer(f, llmclient.NewFakeClient(), nil)
	s.Timeout = 20 * time.Millisecond

	start := time.Now()
	_, err := s.Summarize(context.Background(), "https://github.com/octo/demo")
	require.Error(t, err)
	assert.Equal(t, KindTimeout, KindOf(err))
	assert.Equal(t, "Request timed out", MessageOf(err))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func mapReduceRepo() *fakeFetcher {
	files := map[string]string{}
	entries := []types.TreeEntry{dir("pkg")}
	for i := 1; i <= 5; i++ {
		p := fmt.Sprintf("pkg/m%d.go", i)
		files[p] = strings.Repeat("x", 900)
		entries = append(entries, blob(p, 900))
	}
	return &fakeFetcher{tree: types.Tree{Entries: entries}, files: files}
}

func partialReply(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	return json.RawMessage(`{"purpose":"module","technologies":["Go"],"structure_notes":"flat"}`), nil
}

func TestSummarize_TimeoutDuringMapping(t *testing.T) {
	mapper := &llmclient.FakeClient{Respond: func(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
		if strings.Contains(llmclient.Messages(input)[0].Content, "pkg/m5.go") {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return partialReply(ctx, prompt, input)
	}}
	primary := &llmclient.FakeClient{Respond: summaryReply}

	s := newTestSummarizer(mapReduceRepo(), primary, mapper)
	s.Limits.TokenBudget = 1000
	s.Limits.ChunkTokens = 500
	s.Timeout = 50 * time.Millisecond

	res, err := s.Summarize(context.Background(), "https://github.com/octo/demo")
	require.Error(t, err)
	assert.Equal(t, KindTimeout, KindOf(err))
	assert.Equal(t, "Request timed out", MessageOf(err))
	assert.Equal(t, types.SummaryResult{}, res)
	assert.Len(t, mapper.Calls(), 5)
}

func TestSummarize_TimeoutDuringReduce(t *testing.T) {
	mapper := &llmclient.FakeClient{Respond: partialReply}
	primary := &llmclient.FakeClient{Respond: func(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}

	s := newTestSummarizer(mapReduceRepo(), primary, mapper)
	s.Limits.TokenBudget = 1000
	s.Limits.ChunkTokens = 500
	s.Timeout = 50 * time.Millisecond

	res, err := s.Summarize(context.Background(), "https://github.com/octo/demo")
	require.Error(t, err)
	assert.Equal(t, KindTimeout, KindOf(err))
	assert.Equal(t, types.SummaryResult{}, res)
	assert.Len(t, mapper.Calls(), 5)
	require.Len(t, primary.Calls(), 1)
	assert.Equal(t, reduceSystemPrompt, primary.Calls()[0].Prompt)
}

func TestSummarize_EmptyFilesStillSummarized(t *testing.T) {
	f := &fakeFetcher{
		tree:  types.Tree{Entries: []types.TreeEntry{blob("README.md", 0), blob("main.py", 0)}},
		files: map[string]string{"README.md": "", "main.py": ""},
	}
	primary := &llmclient.FakeClient{Respond: summaryReply}

	res, err := newTestSummarizer(f, primary, nil).Summarize(context.Background(), "https://github.com/octo/demo")
	require.NoError(t, err)
	assert.Equal(t, "**demo** is a demo", res.Summary)
	require.Len(t, primary.Calls(), 1)
	in := primary.Calls()[0].Input[0].Content
	assert.Contains(t, in, "## Repository Directory Tree")
	assert.NotContains(t, in, "## File: ")
}

func TestSummarize_MalformedFinalOutput(t *testing.T) {
	primary := &llmclient.FakeClient{Respond: func(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
		return json.RawMessage(`{"summary":"s","structure":"x"}`), nil
	}}
	_, err := newTestSummarizer(smallRepo(), primary, nil).Summarize(context.Background(), "https://github.com/octo/demo")
	assert.Equal(t, KindMalformedOutput, KindOf(err))
	assert.Equal(t, "LLM response missing fields: [technologies]", MessageOf(err))
}
