package wake

import (
	"strings"

	"github.com/curtiv3/gpthome-refurbished/internal/tools"
	"github.com/curtiv3/gpthome-refurbished/internal/types"
)

// NudgeText is sent once when the model answers without calling a tool.
const NudgeText = "You wrote a text response, but it wasn't saved anywhere. " +
	"To save a thought, use the save_thought tool. " +
	"To save a dream, use the save_dream tool. " +
	"When you're done, call the done tool. " +
	"You must always call done to end your wake."

// ExhaustReason says why a session ended without done.
type ExhaustReason string

const (
	ReasonTurnLimit  ExhaustReason = "turn_limit"
	ReasonStalled    ExhaustReason = "stalled"
	ReasonModelError ExhaustReason = "model_error"
)

// State is the session state. It is one of Active, Done or Exhausted.
type State interface {
	isState()
}

// Active is a running session. Turn counts completed model turns.
type Active struct {
	Turn   int
	Nudged bool
}

// Done is reached when the model calls done.
type Done struct {
	Turn int
	Args tools.DoneArgs
}

// Exhausted is reached when the session ends without done.
type Exhausted struct {
	Turn   int
	Reason ExhaustReason
}

func (Active) isState()    {}
func (Done) isState()      {}
func (Exhausted) isState() {}

// Effect is what the loop must do after a transition. It is one of
// RunTools, SendNudge or Stop.
type Effect interface {
	isEffect()
}

// RunTools executes the calls in order and appends their results.
type RunTools struct {
	Calls []types.ToolCall
}

// SendNudge appends a corrective user message.
type SendNudge struct {
	Text string
}

// Stop ends the session without further work.
type Stop struct{}

func (RunTools) isEffect()  {}
func (SendNudge) isEffect() {}
func (Stop) isEffect()      {}

// Transition is the pure session step. resp is the answer to turn
// s.Turn+1. Calls before the first done run in order; calls after it are
// dropped. A text-only answer is nudged once and stalls the second time;
// an empty answer without calls stalls at once. Reaching maxTurns without
// done exhausts the session.
func Transition(s Active, resp *types.LLMToolResponse, maxTurns int) (State, Effect) {
	turn := s.Turn + 1

	if len(resp.ToolCalls) == 0 {
		switch {
		case s.Nudged, strings.TrimSpace(resp.Text) == "":
			return Exhausted{Turn: turn, Reason: ReasonStalled}, Stop{}
		case turn >= maxTurns:
			return Exhausted{Turn: turn, Reason: ReasonTurnLimit}, Stop{}
		default:
			return Active{Turn: turn, Nudged: true}, SendNudge{Text: NudgeText}
		}
	}

	for i, call := range resp.ToolCalls {
		if call.Name != tools.ToolDone {
			continue
		}
		var args tools.DoneArgs
		if parsed, err := tools.ParseArgs(tools.ToolDone, call.Input); err == nil {
			args = parsed.(tools.DoneArgs)
		}
		return Done{Turn: turn, Args: args}, RunTools{Calls: resp.ToolCalls[:i]}
	}

	if turn >= maxTurns {
		return Exhausted{Turn: turn, Reason: ReasonTurnLimit}, RunTools{Calls: resp.ToolCalls}
	}
	return Active{Turn: turn, Nudged: s.Nudged}, RunTools{Calls: resp.ToolCalls}
}
