package app

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reposummarizer/internal/gateway/config"
	"reposummarizer/internal/gateway/handler"
	"reposummarizer/internal/gateway/server"
	llmclient "reposummarizer/internal/llmClient"
	"reposummarizer/internal/types"
)

func fakeConfig(githubURL string) *config.Config {
	return &config.Config{
		Port:     ":0",
		LogLevel: "debug",
		GitHub:   config.GitHubConfig{APIURL: githubURL},
		LLM: config.LLMConfig{
			Provider:      llmclient.ProviderFake,
			PrimaryModel:  "big",
			MapModel:      "small",
			MaxTokens:     2000,
			Burst:         1,
			RetryAttempts: 1,
		},
		Limits: types.DefaultLimits(),
	}
}

// fakeGitHub serves a two-file repository.
func fakeGitHub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/demo", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"default_branch":"main"}`)
	})
	mux.HandleFunc("/repos/octo/demo/git/trees/main", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"tree":[{"path":"README.md","type":"blob","size":6},{"path":"main.go","type":"blob","size":13}],"truncated":false}`)
	})
	mux.HandleFunc("/repos/octo/demo/contents/README.md", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"type":"file","encoding":"base64","content":"IyBkZW1v"}`)
	})
	mux.HandleFunc("/repos/octo/demo/contents/main.go", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"type":"file","encoding":"base64","content":"cGFja2FnZSBtYWlu"}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestService_EndToEndWithFakeModel(t *testing.T) {
	gh := fakeGitHub(t)
	logger := log.New(io.Discard, "", 0)

	svc, err := NewService(context.Background(), fakeConfig(gh.URL), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	assert.Len(t, svc.clients, 2)

	api := httptest.NewServer(server.NewMux(handler.New(svc, logger), logger, svc.Metrics))
	t.Cleanup(api.Close)

	resp, err := http.Post(api.URL+"/summarize", "application/json",
		strings.NewReader(`{"github_url":"https://github.com/octo/demo"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out types.SummaryResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.NotEmpty(t, out.Summary)
	assert.NotEmpty(t, out.Structure)
	assert.NotNil(t, out.Technologies)

	mresp, err := http.Get(api.URL + "/metrics")
	require.NoError(t, err)
	defer mresp.Body.Close()
	raw, err := io.ReadAll(mresp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `reposum_summaries_total{outcome="ok"} 1`)
	assert.Contains(t, string(raw), `reposum_llm_calls_total{client=`)
	assert.Contains(t, string(raw), `reposum_http_requests_total{code="200",method="POST",path="/summarize"} 1`)
}

func TestService_NotFoundMapsTo404(t *testing.T) {
	gh := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"Not Found"}`)
	}))
	t.Cleanup(gh.Close)
	logger := log.New(io.Discard, "", 0)

	svc, err := NewService(context.Background(), fakeConfig(gh.URL), logger)
	require.NoError(t, err)
	api := httptest.NewServer(server.NewMux(handler.New(svc, logger), logger, svc.Metrics))
	t.Cleanup(api.Close)

	resp, err := http.Post(api.URL+"/summarize", "application/json",
		strings.NewReader(`{"github_url":"https://github.com/octo/missing"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Repository octo/missing not found or is private", body["message"])
}
