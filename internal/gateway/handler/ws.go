package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"reposummarizer/internal/llm"
	"reposummarizer/internal/pipeline"
	"reposummarizer/internal/types"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type wsInbound struct {
	Type      string `json:"type"`
	GitHubURL string `json:"github_url,omitempty"`
}

type wsOutbound struct {
	Type      string               `json:"type"`
	Stage     pipeline.Stage       `json:"stage,omitempty"`
	Completed int                  `json:"completed,omitempty"`
	Total     int                  `json:"total,omitempty"`
	Worker    string               `json:"worker,omitempty"`
	Code      string               `json:"code,omitempty"`
	Message   string               `json:"message,omitempty"`
	Result    *types.SummaryResult `json:"result,omitempty"`
}

// SummarizeWS streams the progress of summarization runs over a websocket.
// One run may be active per connection; closing the socket cancels it.
func (h *Handler) SummarizeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		h.log.Printf("summarize ws set read deadline failed: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	writeCh := make(chan wsOutbound, 64)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(wsPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	var running atomic.Bool
	for {
		var in wsInbound
		if err := conn.ReadJSON(&in); err != nil {
			cancel()
			<-writerDone
			return
		}
		switch strings.ToLower(strings.TrimSpace(in.Type)) {
		case "":
			pushWS(writeCh, wsOutbound{Type: "error", Code: string(pipeline.KindInvalidInput), Message: "type is required"})
		case "ping":
			pushWS(writeCh, wsOutbound{Type: "pong"})
		case "summarize":
			if !running.CompareAndSwap(false, true) {
				pushWS(writeCh, wsOutbound{Type: "error", Code: string(pipeline.KindInvalidInput), Message: "a summarization is already running"})
				continue
			}
			go func(repoURL string) {
				defer running.Store(false)
				h.runWS(ctx, writeCh, repoURL)
			}(strings.TrimSpace(in.GitHubURL))
		default:
			pushWS(writeCh, wsOutbound{Type: "error", Code: string(pipeline.KindInvalidInput), Message: "unsupported type: " + in.Type})
		}
	}
}

func (h *Handler) runWS(ctx context.Context, writeCh chan wsOutbound, repoURL string) {
	ctx = pipeline.WithObserver(ctx, func(ev pipeline.Event) {
		pushWS(writeCh, wsOutbound{
			Type:      "stage",
			Stage:     ev.Stage,
			Completed: ev.Completed,
			Total:     ev.Total,
			Message:   ev.Message,
		})
	})
	ctx = llm.WithPromptHook(ctx, wsPromptHook{writeCh: writeCh})

	h.log.Printf("summarize ws request: %s", repoURL)
	res, err := h.svc.Summarize(ctx, repoURL)
	if err != nil {
		kind := pipeline.KindOf(err)
		h.log.Printf("summarize ws %s: %s: %v", repoURL, kind, err)
		pushWS(writeCh, wsOutbound{Type: "error", Code: string(kind), Message: pipeline.MessageOf(err)})
		return
	}
	pushWS(writeCh, wsOutbound{Type: "result", Result: &res})
}

// wsPromptHook reports each model call so clients can show which step is
// waiting on the provider.
type wsPromptHook struct{ writeCh chan wsOutbound }

func (p wsPromptHook) Before(_ context.Context, worker, _ string, _ any) {
	pushWS(p.writeCh, wsOutbound{Type: "llm", Worker: worker, Message: "request"})
}

func (p wsPromptHook) After(_ context.Context, worker string, _ json.RawMessage, err error) {
	msg := "response"
	if err != nil {
		msg = "error: " + err.Error()
	}
	pushWS(p.writeCh, wsOutbound{Type: "llm", Worker: worker, Message: msg})
}

// pushWS never blocks: when the buffer is full the oldest message is dropped.
func pushWS(writeCh chan wsOutbound, out wsOutbound) {
	if writeCh == nil {
		return
	}
	select {
	case writeCh <- out:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- out:
	default:
	}
}
