// Package mcp exposes repository summarization as Model Context Protocol
// tools, so an agent can ask for a summary over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"reposummarizer/internal/github"
	"reposummarizer/internal/pipeline"
	"reposummarizer/internal/scoring"
	"reposummarizer/internal/types"
)

// Service is what the tools call into.
type Service interface {
	Summarize(ctx context.Context, repoURL string) (types.SummaryResult, error)
	SummarizeDir(ctx context.Context, dir string) (types.SummaryResult, error)
}

// Host wires the tools to their backends.
type Host struct {
	Service Service
	// Fetcher and Limits back repo.rank, which never calls a model.
	Fetcher pipeline.Fetcher
	Limits  types.Limits
	// AllowLocal registers repo.summarize_local, which reads directories
	// on the host.
	AllowLocal bool
	Logger     *log.Logger
}

// NewServer builds an MCP server with the repository tools registered.
func NewServer(h Host, version string) *sdk.Server {
	if h.Logger == nil {
		h.Logger = log.Default()
	}
	srv := sdk.NewServer(&sdk.Implementation{Name: "reposum", Version: version}, nil)

	sdk.AddTool(srv, &sdk.Tool{
		Name:        "repo.summarize",
		Description: "Summarize a public GitHub repository: what it does, its technologies and its layout.",
	}, h.summarize)
	if h.Fetcher != nil {
		sdk.AddTool(srv, &sdk.Tool{
			Name:        "repo.rank",
			Description: "List the files of a GitHub repository that best explain it, most informative first.",
		}, h.rank)
	}
	if h.AllowLocal {
		sdk.AddTool(srv, &sdk.Tool{
			Name:        "repo.summarize_local",
			Description: "Summarize a repository checked out on this machine.",
		}, h.summarizeLocal)
	}
	return srv
}

// Run serves srv over stdin/stdout until ctx ends or the client goes away.
func Run(ctx context.Context, srv *sdk.Server) error {
	return srv.Run(ctx, &sdk.StdioTransport{})
}

// --------------------- repo.summarize ---------------------

type summarizeInput struct {
	GitHubURL string `json:"github_url" jsonschema:"URL of the repository, e.g. https://github.com/owner/repo"`
}

func (h Host) summarize(ctx context.Context, _ *sdk.CallToolRequest, in summarizeInput) (*sdk.CallToolResult, any, error) {
	repoURL := strings.TrimSpace(in.GitHubURL)
	if repoURL == "" {
		return toolError("repo.summarize: github_url required"), nil, nil
	}
	h.Logger.Printf("mcp repo.summarize: %s", repoURL)
	res, err := h.Service.Summarize(ctx, repoURL)
	return summaryResult(res, err)
}

// --------------------- repo.summarize_local ---------------------

type summarizeLocalInput struct {
	Path string `json:"path" jsonschema:"absolute path of the checkout"`
}

func (h Host) summarizeLocal(ctx context.Context, _ *sdk.CallToolRequest, in summarizeLocalInput) (*sdk.CallToolResult, any, error) {
	dir := strings.TrimSpace(in.Path)
	if dir == "" {
		return toolError("repo.summarize_local: path required"), nil, nil
	}
	h.Logger.Printf("mcp repo.summarize_local: %s", dir)
	res, err := h.Service.SummarizeDir(ctx, dir)
	return summaryResult(res, err)
}

// --------------------- repo.rank ---------------------

type rankInput struct {
	GitHubURL string `json:"github_url" jsonschema:"URL of the repository"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum number of files to return"`
}

type rankedFile struct {
	Path  string `json:"path"`
	Score int    `json:"score"`
}

func (h Host) rank(ctx context.Context, _ *sdk.CallToolRequest, in rankInput) (*sdk.CallToolResult, any, error) {
	ref, err := github.ParseURL(strings.TrimSpace(in.GitHubURL))
	if err != nil {
		return toolError("repo.rank: " + err.Error()), nil, nil
	}
	limit := in.Limit
	if limit <= 0 || limit > h.Limits.MaxFilesToFetch {
		limit = h.Limits.MaxFilesToFetch
	}
	branch, err := h.Fetcher.DefaultBranch(ctx, ref)
	if err != nil {
		return toolError(fmt.Sprintf("repo.rank: %v", err)), nil, nil
	}
	tree, err := h.Fetcher.Tree(ctx, ref, branch)
	if err != nil {
		return toolError(fmt.Sprintf("repo.rank: %v", err)), nil, nil
	}
	top := scoring.Top(scoring.New(h.Limits).Rank(tree.Blobs()), limit)
	out := make([]rankedFile, 0, len(top))
	for _, e := range top {
		out = append(out, rankedFile{Path: e.Path, Score: e.Score})
	}
	return jsonResult(out)
}

func summaryResult(res types.SummaryResult, err error) (*sdk.CallToolResult, any, error) {
	if err != nil {
		return toolError(fmt.Sprintf("%s: %s", pipeline.KindOf(err), pipeline.MessageOf(err))), nil, nil
	}
	return jsonResult(res)
}

func jsonResult(v any) (*sdk.CallToolResult, any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}
	return &sdk.CallToolResult{Content: []sdk.Content{&sdk.TextContent{Text: string(b)}}}, nil, nil
}

func toolError(msg string) *sdk.CallToolResult {
	return &sdk.CallToolResult{
		IsError: true,
		Content: []sdk.Content{&sdk.TextContent{Text: msg}},
	}
}
