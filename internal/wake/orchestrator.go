// Package wake runs the resident's wake cycle: perceive the world, let the
// model act through tools until it calls done or runs out of turns, then
// remember what happened.
package wake

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/curtiv3/gpthome-refurbished/internal/config"
	"github.com/curtiv3/gpthome-refurbished/internal/logging"
	"github.com/curtiv3/gpthome-refurbished/internal/tools"
	"github.com/curtiv3/gpthome-refurbished/internal/types"
	"github.com/curtiv3/gpthome-refurbished/internal/wakecontext"
)

// ErrWakeInProgress is returned when a wake is triggered while another runs.
var ErrWakeInProgress = errors.New("a wake cycle is already running")

const (
	// OutcomeDone marks a session that ended through done.
	OutcomeDone = "done"

	fallbackMood  = "quiet"
	defaultMood   = "neutral"
	noWeather     = "(unavailable)"
	activityKind  = "wake"
	selfPromptDir = 0o755
)

// Store is the persistence the wake cycle reads and writes.
type Store interface {
	ReadMemory() (types.Memory, error)
	SaveMemory(m types.Memory) error
	EntriesSince(section types.Section, since time.Time) ([]types.Entry, error)
	RecentEntries(section types.Section, n int) ([]types.Entry, error)
	UnreadNews(limit int) ([]types.NewsItem, error)
	MarkNewsRead(ids []int64) (int64, error)
	LogActivity(kind, detail string) error
}

// WeatherSource renders the current weather. It never fails.
type WeatherSource interface {
	Current(ctx context.Context) string
}

// ToolRunner is the tool surface offered to the model.
type ToolRunner interface {
	Definitions() []types.ToolDefinition
	Execute(ctx context.Context, call types.ToolCall) tools.Outcome
}

// Recorder observes finished wakes.
type Recorder interface {
	ObserveWake(outcome string, turns int, elapsed time.Duration)
}

// Options tunes one orchestrator.
type Options struct {
	Mode           string
	MaxTurns       int
	Location       *time.Location
	Epoch          time.Time
	RecentThoughts int
	RecentDreams   int
	NewsLimit      int
	VisitorLimit   int
	SelfPromptPath string
	Temperature    float64
	MaxTokens      int
}

// OptionsFromConfig derives options from the resident config.
func OptionsFromConfig(cfg *config.Config, mode string) Options {
	return Options{
		Mode:           mode,
		MaxTurns:       cfg.Wake.MaxTurns,
		Location:       cfg.Location(),
		Epoch:          cfg.EpochDate(),
		RecentThoughts: cfg.Wake.RecentThoughts,
		RecentDreams:   cfg.Wake.RecentDreams,
		NewsLimit:      cfg.Wake.NewsLimit,
		VisitorLimit:   cfg.Wake.VisitorsInContext,
		SelfPromptPath: cfg.SelfPromptPath(),
		Temperature:    cfg.LLM.Temperature,
		MaxTokens:      cfg.LLM.MaxTokens,
	}
}

// Summary is what a wake reports to its trigger.
type Summary struct {
	WakeTime      time.Time           `json:"wake_time"`
	Actions       []string            `json:"actions"`
	Mood          string              `json:"mood"`
	Turns         int                 `json:"turns"`
	HasSelfPrompt bool                `json:"has_self_prompt"`
	Mode          string              `json:"mode"`
	Outcome       string              `json:"outcome"`
	Summary       string              `json:"summary"`
	Trigger       string              `json:"trigger"`
	VisitorsRead  []string            `json:"visitors_read"`
	FilesWritten  []string            `json:"files_written"`
	Usage         types.UsageMetadata `json:"usage"`
}

// Orchestrator runs wake cycles. At most one runs at a time.
type Orchestrator struct {
	store    Store
	client   types.LLMClient
	tools    ToolRunner
	weather  WeatherSource
	prompts  *Prompts
	recorder Recorder
	opts     Options
	now      func() time.Time

	running sync.Mutex
}

// New creates an orchestrator. weather may be nil.
func New(st Store, client types.LLMClient, runner ToolRunner, weather WeatherSource, prompts *Prompts, opts Options) *Orchestrator {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if prompts == nil {
		prompts = NewPrompts("", "")
	}
	return &Orchestrator{
		store:   st,
		client:  client,
		tools:   runner,
		weather: weather,
		prompts: prompts,
		opts:    opts,
		now:     time.Now,
	}
}

// SetRecorder installs a wake observer.
func (o *Orchestrator) SetRecorder(r Recorder) {
	o.recorder = r
}

// SetClock replaces the wall clock.
func (o *Orchestrator) SetClock(now func() time.Time) {
	o.now = now
}

// Mode reports MOCK or LIVE.
func (o *Orchestrator) Mode() string {
	return o.opts.Mode
}

// perception is what PERCEIVE gathered.
type perception struct {
	memory   types.Memory
	visitors []types.Entry
	news     []types.NewsItem
	context  string
}

// sessionResult is what the tool loop produced.
type sessionResult struct {
	final   State
	actions []string
	files   []string
	usage   types.UsageMetadata
}

// Wake runs one full cycle. Perceive and remember failures are returned as
// errors; model failures end the session early but the cycle still
// completes.
func (o *Orchestrator) Wake(ctx context.Context, trigger string) (*Summary, error) {
	if !o.running.TryLock() {
		return nil, ErrWakeInProgress
	}
	defer o.running.Unlock()

	timer := logging.StartTimer(logging.CategoryWake, "wake")
	defer timer.Stop()

	start := o.now().UTC()
	logging.Wake("Waking up [%s mode, trigger=%s]", o.opts.Mode, trigger)

	p, err := o.perceive(ctx, start)
	if err != nil {
		logging.WakeError("Perceive failed: %v", err)
		return nil, fmt.Errorf("perceive: %w", err)
	}

	res := o.session(ctx, p.context)

	summary, err := o.remember(start, p, res, trigger)
	if err != nil {
		logging.WakeError("Remember failed: %v", err)
		return nil, fmt.Errorf("remember: %w", err)
	}

	if o.recorder != nil {
		o.recorder.ObserveWake(summary.Outcome, summary.Turns, o.now().Sub(start))
	}
	logging.Wake("Back to sleep: outcome=%s actions=%v mood=%s turns=%d",
		summary.Outcome, summary.Actions, summary.Mood, summary.Turns)
	return summary, nil
}

func (o *Orchestrator) perceive(ctx context.Context, now time.Time) (*perception, error) {
	mem, err := o.store.ReadMemory()
	if err != nil {
		return nil, err
	}
	visitors, err := o.store.EntriesSince(types.SectionVisitor, mem.LastWakeTime)
	if err != nil {
		return nil, err
	}
	thoughts, err := o.store.RecentEntries(types.SectionThoughts, o.opts.RecentThoughts)
	if err != nil {
		return nil, err
	}
	dreams, err := o.store.RecentEntries(types.SectionDreams, o.opts.RecentDreams)
	if err != nil {
		return nil, err
	}
	news, err := o.store.UnreadNews(o.opts.NewsLimit)
	if err != nil {
		return nil, err
	}

	weather := noWeather
	if o.weather != nil {
		weather = o.weather.Current(ctx)
	}

	visible := make([]types.Entry, 0, len(visitors))
	for _, v := range visitors {
		if v.Status != types.StatusHidden {
			visible = append(visible, v)
		}
	}

	text := wakecontext.Build(wakecontext.Snapshot{
		Now:            now,
		Location:       o.opts.Location,
		Epoch:          o.opts.Epoch,
		Weather:        weather,
		SelfPrompt:     readTrimmed(o.opts.SelfPromptPath),
		News:           news,
		Memory:         mem,
		RecentThoughts: thoughts,
		RecentDreams:   dreams,
		Visitors:       visible,
		VisitorLimit:   o.opts.VisitorLimit,
	})
	logging.Wake("Context built: %d visitors, %d thoughts, %d dreams, %d news",
		len(visible), len(thoughts), len(dreams), len(news))

	return &perception{memory: mem, visitors: visitors, news: news, context: text}, nil
}

// session drives the model until the state leaves Active.
func (o *Orchestrator) session(ctx context.Context, wakeContext string) sessionResult {
	var res sessionResult
	seenAction := map[string]bool{}
	seenFile := map[string]bool{}

	req := types.ChatRequest{
		System:      o.prompts.System(),
		Messages:    []types.Message{{Role: types.RoleUser, Content: wakeContext}},
		Tools:       o.tools.Definitions(),
		Temperature: o.opts.Temperature,
		MaxTokens:   o.opts.MaxTokens,
	}

	var state State = Active{}
	for {
		active, ok := state.(Active)
		if !ok {
			break
		}

		resp, err := o.client.Chat(ctx, req)
		if err != nil {
			logging.WakeError("Model call failed on turn %d: %v", active.Turn+1, err)
			state = Exhausted{Turn: active.Turn + 1, Reason: ReasonModelError}
			break
		}
		res.usage.Add(resp.Usage)

		next, effect := Transition(active, resp, o.opts.MaxTurns)
		req.Messages = append(req.Messages, types.Message{
			Role:      types.RoleAssistant,
			Content:   resp.Text,
			ToolCalls: resp.ToolCalls,
		})

		switch e := effect.(type) {
		case RunTools:
			for _, call := range e.Calls {
				out := o.tools.Execute(ctx, call)
				req.Messages = append(req.Messages, types.Message{
					Role:       types.RoleTool,
					Content:    out.Result,
					ToolCallID: call.ID,
					ToolName:   call.Name,
				})
				if !out.OK {
					continue
				}
				if out.Action != "" && !seenAction[out.Action] {
					seenAction[out.Action] = true
					res.actions = append(res.actions, out.Action)
				}
				if w, ok := out.Args.(tools.WriteFileArgs); ok && !seenFile[w.Path] {
					seenFile[w.Path] = true
					res.files = append(res.files, w.Path)
				}
			}
		case SendNudge:
			logging.WakeDebug("Text-only reply on turn %d, nudging", active.Turn+1)
			req.Messages = append(req.Messages, types.Message{Role: types.RoleUser, Content: e.Text})
		case Stop:
		}
		state = next
	}

	res.final = state
	return res
}

func (o *Orchestrator) remember(start time.Time, p *perception, res sessionResult, trigger string) (*Summary, error) {
	s := &Summary{
		WakeTime:     start,
		Actions:      nonNil(res.actions),
		Mode:         o.opts.Mode,
		Trigger:      trigger,
		VisitorsRead: make([]string, 0, len(p.visitors)),
		FilesWritten: nonNil(res.files),
		Usage:        res.usage,
	}
	for _, v := range p.visitors {
		s.VisitorsRead = append(s.VisitorsRead, v.ID)
	}

	var selfPrompt string
	switch st := res.final.(type) {
	case Done:
		s.Outcome = OutcomeDone
		s.Turns = st.Turn
		s.Mood = strings.TrimSpace(st.Args.Mood)
		if s.Mood == "" {
			s.Mood = defaultMood
		}
		s.Summary = strings.TrimSpace(st.Args.Summary)
		selfPrompt = strings.TrimSpace(st.Args.SelfPrompt)
	case Exhausted:
		s.Outcome = string(st.Reason)
		s.Turns = st.Turn
		s.Mood = fallbackMood
		s.Summary = fmt.Sprintf("Ended without calling done() (%s, %d turns)", st.Reason, st.Turn)
		logging.WakeWarn("Session exhausted: %s after %d turns", st.Reason, st.Turn)
	}
	s.HasSelfPrompt = selfPrompt != ""

	if err := o.store.SaveMemory(types.Memory{
		LastWakeTime: start,
		VisitorsRead: s.VisitorsRead,
		ActionsTaken: s.Actions,
		Mood:         s.Mood,
		Plans:        []string{},
	}); err != nil {
		return nil, err
	}

	if o.opts.SelfPromptPath != "" {
		if err := writeSelfPrompt(o.opts.SelfPromptPath, selfPrompt); err != nil {
			return nil, err
		}
	}

	if len(p.news) > 0 {
		ids := make([]int64, 0, len(p.news))
		for _, n := range p.news {
			ids = append(ids, n.ID)
		}
		if _, err := o.store.MarkNewsRead(ids); err != nil {
			return nil, err
		}
	}

	detail := fmt.Sprintf("mode=%s outcome=%s actions=%s mood=%s turns=%d",
		s.Mode, s.Outcome, strings.Join(s.Actions, ","), s.Mood, s.Turns)
	if err := o.store.LogActivity(activityKind, detail); err != nil {
		return nil, err
	}
	return s, nil
}

func writeSelfPrompt(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), selfPromptDir); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("failed to write self-prompt: %w", err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
