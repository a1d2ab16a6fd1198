package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curtiv3/gpthome-refurbished/internal/auth"
	"github.com/curtiv3/gpthome-refurbished/internal/perception"
	"github.com/curtiv3/gpthome-refurbished/internal/store"
	"github.com/curtiv3/gpthome-refurbished/internal/tools"
	"github.com/curtiv3/gpthome-refurbished/internal/types"
	"github.com/curtiv3/gpthome-refurbished/internal/wake"
)

// slowClient delays every model turn.
type slowClient struct {
	types.LLMClient
	delay time.Duration
}

func (c slowClient) Chat(ctx context.Context, req types.ChatRequest) (*types.LLMToolResponse, error) {
	select {
	case <-time.After(c.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return c.LLMClient.Chat(ctx, req)
}

func TestAdminWake_OutlivesClientTimeout(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "gpthome.db"), "sqlite")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	reg, _, err := tools.NewSandbox(st, tools.Options{
		Root:           dir,
		PlaygroundDir:  filepath.Join(dir, "playground"),
		PythonBinary:   "python3",
		PythonTimeout:  time.Second,
		MaxReadChars:   8000,
		MaxOutputChars: 4000,
	})
	require.NoError(t, err)

	client := slowClient{
		LLMClient: perception.NewScriptedClient(
			perception.Reply("", perception.Call("t1", tools.ToolSaveThought, map[string]interface{}{
				"title": "Morning", "content": "The light came back.",
			})),
			perception.Reply("", perception.Call("d1", tools.ToolDone, map[string]interface{}{
				"mood": "glad", "summary": "wrote", "self_prompt": "",
			})),
		),
		delay: 150 * time.Millisecond,
	}
	prompts := wake.NewPrompts(filepath.Join(dir, "prompts", "system.md"), filepath.Join(dir, "prompt-layer.md"))
	orch := wake.New(st, client, reg, nil, prompts, wake.Options{
		Mode:           "LIVE",
		MaxTurns:       5,
		RecentThoughts: 3,
		RecentDreams:   2,
		NewsLimit:      10,
		VisitorLimit:   25,
		SelfPromptPath: filepath.Join(dir, "self-prompt.md"),
	})

	srv := New(Deps{
		Store: st,
		Waker: orch,
		Auth:  auth.NewAuthenticator(testSecret, auth.NewAttemptTracker(3, time.Minute, 100)),
	})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/wake", nil)
	require.NoError(t, err)
	req.Header.Set(adminKeyHeader, testSecret)
	httpClient := &http.Client{
		Timeout:   200 * time.Millisecond,
		Transport: &http.Transport{DisableKeepAlives: true},
	}
	_, err = httpClient.Do(req)
	require.Error(t, err, "client gives up before the second turn")

	var detail string
	require.Eventually(t, func() bool {
		events, err := st.ActivityByKind("wake")
		if err != nil || len(events) == 0 {
			return false
		}
		detail = events[0].Detail
		return true
	}, 3*time.Second, 20*time.Millisecond)
	assert.True(t, strings.Contains(detail, "outcome=done"), detail)

	mem, err := st.ReadMemory()
	require.NoError(t, err)
	assert.Equal(t, "glad", mem.Mood)
	assert.Equal(t, []string{"thought"}, mem.ActionsTaken)
}

func TestCycleContext(t *testing.T) {
	s := New(Deps{})
	req := httptest.NewRequest(http.MethodPost, "/api/wake", nil)
	reqCtx, cancelReq := context.WithCancel(req.Context())
	req = req.WithContext(reqCtx)

	lifetime, stopServing := context.WithCancel(context.Background())
	s.lifetime = lifetime

	ctx, cancel := s.cycleContext(req)
	defer cancel()

	cancelReq()
	assert.NoError(t, ctx.Err(), "request cancellation does not reach the cycle")

	stopServing()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("cycle context survived server shutdown")
	}
}
