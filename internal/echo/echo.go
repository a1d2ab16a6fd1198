// Package echo turns private visitor messages into anonymous public
// fragments in the background.
package echo

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/curtiv3/gpthome-refurbished/internal/logging"
	"github.com/curtiv3/gpthome-refurbished/internal/types"
)

const systemPrompt = `You transform personal messages into anonymous, poetic fragments for public display.

Rules:
- Remove all names, cities, countries, dates, and any identifying details.
- Replace specific people with "someone", "a stranger", "a voice".
- Replace specific places with "somewhere", "a city far away", "a quiet room".
- Keep the emotional core: longing, joy, curiosity, sadness, wonder.
- Write in English, present tense, 1-2 short sentences max.
- Sound like a fragment overheard in a dream, intimate but universal.
- Never repeat the original sentence verbatim.

Examples:
Input: "I miss the rain in Berlin."
Output: "Someone misses the rain somewhere."

Input: "Hi, my name is Alex and I love your site!"
Output: "A stranger arrived with warmth and stayed a moment."

Input: "Do you ever feel lonely at night?"
Output: "Someone wonders if loneliness has company after dark."

Return ONLY the fragment text. No quotes, no labels, no explanation.`

const (
	temperature = 0.85
	maxTokens   = 80
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("echo worker is closed")

// ErrQueueFull is returned by Submit when the backlog is full.
var ErrQueueFull = errors.New("echo queue is full")

// EntrySaver persists generated fragments.
type EntrySaver interface {
	SaveEntry(e types.Entry) (types.Entry, error)
}

// Options configures a Worker.
type Options struct {
	// Mock uses the keyword heuristic instead of the model.
	Mock      bool
	QueueSize int
	Timeout   time.Duration
}

type job struct {
	visitorID string
	message   string
}

// Worker generates echoes one at a time from a bounded queue.
type Worker struct {
	store  EntrySaver
	client types.LLMClient
	opts   Options

	mu     sync.RWMutex
	closed bool
	jobs   chan job
	wg     sync.WaitGroup
}

// NewWorker starts a worker. client may be nil in mock mode.
func NewWorker(st EntrySaver, client types.LLMClient, opts Options) *Worker {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if client == nil {
		opts.Mock = true
	}
	w := &Worker{store: st, client: client, opts: opts, jobs: make(chan job, opts.QueueSize)}
	w.wg.Add(1)
	go w.run()
	return w
}

// Submit queues an echo for a saved visitor entry. It never blocks.
func (w *Worker) Submit(visitorID, message string) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrClosed
	}
	select {
	case w.jobs <- job{visitorID: visitorID, message: message}:
		return nil
	default:
		logging.EchoWarn("Echo queue full, dropping echo for %s", visitorID)
		return ErrQueueFull
	}
}

// Close stops accepting work and waits for queued echoes to finish.
func (w *Worker) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.jobs)
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *Worker) run() {
	defer w.wg.Done()
	for j := range w.jobs {
		w.process(j)
	}
}

func (w *Worker) process(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), w.opts.Timeout)
	defer cancel()

	fragment, err := w.Generate(ctx, j.message)
	if err != nil {
		logging.EchoWarn("Echo generation failed for entry %s: %v", j.visitorID, err)
		return
	}
	saved, err := w.store.SaveEntry(types.Entry{
		Section:    types.SectionEchoes,
		Content:    fragment,
		InspiredBy: []string{j.visitorID},
	})
	if err != nil {
		logging.EchoWarn("Saving echo for entry %s failed: %v", j.visitorID, err)
		return
	}
	logging.Echo("Echo %s generated for visitor entry %s", saved.ID, j.visitorID)
}

// Generate produces a fragment for message.
func (w *Worker) Generate(ctx context.Context, message string) (string, error) {
	if w.opts.Mock {
		return MockFragment(message), nil
	}
	text, err := w.client.Complete(ctx, systemPrompt, message, types.CompletionOptions{
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", err
	}
	fragment := strings.TrimSpace(strings.Trim(strings.TrimSpace(text), `"`))
	if fragment == "" {
		return "", errors.New("model returned an empty fragment")
	}
	return fragment, nil
}

// MockFragment is the offline heuristic: feelings first, then greetings,
// then questions.
func MockFragment(message string) string {
	words := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(message)) {
		words[w] = true
	}
	hasAny := func(list ...string) bool {
		for _, w := range list {
			if words[w] {
				return true
			}
		}
		return false
	}
	switch {
	case hasAny("love", "miss", "feel", "wish", "hope"):
		return "Someone carried a feeling here and left it at the door."
	case hasAny("hello", "hi", "hey", "great", "awesome", "nice"):
		return "A stranger arrived with warmth and stayed a moment."
	case strings.Contains(message, "?"):
		return "Someone left a question hanging in the air."
	default:
		return "A quiet presence passed through."
	}
}
