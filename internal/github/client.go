// Package github is a minimal read-only client for the GitHub REST API:
// default branch, recursive tree and single file contents.
package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"reposummarizer/internal/types"
)

const (
	DefaultBaseURL = "https://api.github.com"
	userAgent      = "github-repo-summarizer/1.0"
)

// Options configures a Client.
type Options struct {
	Token   string
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
	// Logger receives request traces; nil disables them.
	Logger *log.Logger
}

type Client struct {
	http    *http.Client
	baseURL string
	token   string
	log     *log.Logger
}

func NewClient(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{http: hc, baseURL: base, token: opts.Token, log: opts.Logger}
}

func (c *Client) debugf(format string, args ...any) {
	if c.log != nil {
		c.log.Printf(format, args...)
	}
}

// get issues a GET and decodes a JSON body into out.
func (c *Client) get(ctx context.Context, op, p string, query url.Values, out any) error {
	u := c.baseURL + p
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}

	c.debugf("GET %s", u)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("github: %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		var msg struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(body, &msg)
		return &APIError{Op: op, StatusCode: resp.StatusCode, Message: msg.Message}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("github: %s: decode: %w", op, err)
	}
	return nil
}

func repoPath(ref types.RepoRef) string {
	return "/repos/" + url.PathEscape(ref.Owner) + "/" + url.PathEscape(ref.Name)
}

// DefaultBranch returns the repository's default branch name.
func (c *Client) DefaultBranch(ctx context.Context, ref types.RepoRef) (string, error) {
	var meta struct {
		DefaultBranch string `json:"default_branch"`
	}
	if err := c.get(ctx, "repo "+ref.String(), repoPath(ref), nil, &meta); err != nil {
		return "", err
	}
	if meta.DefaultBranch == "" {
		return "", fmt.Errorf("github: repo %s: no default branch", ref)
	}
	return meta.DefaultBranch, nil
}

// Tree returns the full recursive tree of branch. A truncated listing is
// returned as is with Truncated set.
func (c *Client) Tree(ctx context.Context, ref types.RepoRef, branch string) (types.Tree, error) {
	var body struct {
		Tree      []types.TreeEntry `json:"tree"`
		Truncated bool              `json:"truncated"`
	}
	p := repoPath(ref) + "/git/trees/" + url.PathEscape(branch)
	if err := c.get(ctx, "tree "+ref.String()+"@"+branch, p, url.Values{"recursive": {"1"}}, &body); err != nil {
		return types.Tree{}, err
	}
	return types.Tree{Entries: body.Tree, Truncated: body.Truncated}, nil
}

// FileContent fetches and decodes one file. Content that is not valid UTF-8
// text yields ErrBinaryContent.
func (c *Client) FileContent(ctx context.Context, ref types.RepoRef, filePath string) (string, error) {
	segs := strings.Split(filePath, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	var body struct {
		Type     string `json:"type"`
		Encoding string `json:"encoding"`
		Content  string `json:"content"`
	}
	if err := c.get(ctx, "contents "+filePath, repoPath(ref)+"/contents/"+strings.Join(segs, "/"), nil, &body); err != nil {
		return "", err
	}
	if body.Type != "" && body.Type != "file" {
		return "", fmt.Errorf("github: contents %s: not a file (%s)", filePath, body.Type)
	}
	return decodeContent(body.Encoding, body.Content)
}

func decodeContent(encoding, content string) (string, error) {
	var raw []byte
	switch encoding {
	case "base64":
		// GitHub wraps the payload at 60 columns.
		b, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(content, "\n", ""))
		if err != nil {
			return "", fmt.Errorf("github: decode content: %w", err)
		}
		raw = b
	case "":
		raw = []byte(content)
	default:
		// "none" is returned for files above the API's inline size limit.
		return "", fmt.Errorf("github: unsupported content encoding %q", encoding)
	}
	if !utf8.Valid(raw) || strings.IndexByte(string(raw), 0) >= 0 {
		return "", ErrBinaryContent
	}
	return string(raw), nil
}
