package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curtiv3/gpthome-refurbished/internal/types"
)

func TestCollectors(t *testing.T) {
	c := New()

	c.ObserveWake("done", 3, 4*time.Second)
	c.ObserveWake("turn_limit", 15, time.Minute)
	c.ObserveWake("done", 2, time.Second)
	assert.Equal(t, 2.0, testutil.ToFloat64(c.wakesTotal.WithLabelValues("done")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.wakesTotal.WithLabelValues("turn_limit")))

	c.ObserveToolCall("save_thought", true)
	c.ObserveToolCall("save_thought", true)
	c.ObserveToolCall("read_file", false)
	assert.Equal(t, 2.0, testutil.ToFloat64(c.toolCallsTotal.WithLabelValues("save_thought", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.toolCallsTotal.WithLabelValues("read_file", "false")))

	c.ObserveModelCall("openai", time.Second, types.UsageMetadata{InputTokens: 100, OutputTokens: 20}, nil)
	c.ObserveModelCall("openai", time.Second, types.UsageMetadata{InputTokens: 999}, errors.New("boom"))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.modelCalls.WithLabelValues("openai", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.modelCalls.WithLabelValues("openai", "false")))
	assert.Equal(t, 100.0, testutil.ToFloat64(c.modelTokens.WithLabelValues("openai", "input")))

	c.ObserveVisitor("accepted")
	assert.Equal(t, 1.0, testutil.ToFloat64(c.visitorsTotal.WithLabelValues("accepted")))
}

func TestHandler(t *testing.T) {
	c := New()
	c.ObserveWake("done", 1, time.Second)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `gpthome_wake_cycles_total{outcome="done"} 1`))
	assert.Contains(t, string(body), "go_goroutines")
}
