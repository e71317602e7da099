package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"KISChat/internal/chat"
)

// Opener opens one streaming exchange for a turn and returns the raw
// event stream.
type Opener interface {
	Open(ctx context.Context, sessionID, message string) (io.ReadCloser, error)
}

var (
	// ErrEmptyMessage rejects blank submissions.
	ErrEmptyMessage = errors.New("empty message")
	// ErrTurnActive rejects a submit while another turn is in flight.
	ErrTurnActive = errors.New("a turn is already in flight")
)

// Engine drives one streaming exchange per user turn against the
// session's message log. Only one turn may be in flight at a time
// across the whole process; concurrent submits are rejected, never
// queued.
type Engine struct {
	opener   Opener
	sessions *chat.Store
	log      *chat.Log
	logger   *slog.Logger
	tracer   trace.Tracer
	meter    metric.Meter

	mu     sync.Mutex
	active bool
	cancel context.CancelFunc

	// OnEvent, when set, observes every decoded event after its log
	// transform has been committed. Transport failures surface here as
	// a synthesized error event.
	OnEvent func(Event)
}

// NewEngine creates a streaming engine over the given exchange opener
// and chat state.
func NewEngine(opener Opener, sessions *chat.Store, log *chat.Log, logger *slog.Logger, tracer trace.Tracer, meter metric.Meter) *Engine {
	return &Engine{
		opener:   opener,
		sessions: sessions,
		log:      log,
		logger:   logger,
		tracer:   tracer,
		meter:    meter,
	}
}

// Submit runs one full turn: it appends the user message and the
// assistant placeholder, opens the exchange, and consumes events until
// the stream terminates. It blocks until the turn is over. Rejections
// (blank text, occupied turn slot) are returned as errors; failures
// during the stream are absorbed into the assistant message and return
// nil.
func (e *Engine) Submit(ctx context.Context, sessionID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	e.mu.Lock()
	if e.active {
		e.mu.Unlock()
		return ErrTurnActive
	}
	ctx, cancel := context.WithCancel(ctx)
	e.active = true
	e.cancel = cancel
	e.mu.Unlock()
	defer e.release()

	ctx, span := e.tracer.Start(ctx, "chat_turn")
	defer span.End()
	start := time.Now()

	// An empty log is the evidence that this is the session's first
	// message; the title must be set before anything is appended.
	if e.log.Len(sessionID) == 0 {
		e.sessions.RecordFirstMessagePreview(sessionID, text)
	}

	now := time.Now().UnixMilli()
	user := chat.Message{
		ID:        uuid.NewString(),
		Role:      chat.RoleUser,
		Content:   text,
		Timestamp: now,
	}
	assistant := chat.Message{
		ID:          uuid.NewString(),
		Role:        chat.RoleAssistant,
		ToolCalls:   []chat.ToolCall{},
		IsStreaming: true,
		Timestamp:   now,
	}
	e.log.Apply(sessionID, chat.AppendTurn(user, assistant))
	e.sessions.Touch(sessionID)

	e.logger.Info("turn started", "session_id", sessionID)

	body, err := e.opener.Open(ctx, sessionID, text)
	if err != nil {
		e.fail(sessionID, err.Error())
	} else {
		defer body.Close()
		e.consume(ctx, sessionID, NewReader(body))
	}

	duration := time.Since(start)
	histogram, err := e.meter.Float64Histogram(
		"chat.turn.duration",
		metric.WithDescription("Chat turn duration in milliseconds"),
	)
	if err == nil {
		histogram.Record(ctx, float64(duration.Milliseconds()))
	}

	return nil
}

// Cancel requests cooperative cancellation of the in-flight turn. The
// turn still runs its terminal handler, so the streaming flag never
// stays set. Safe to call from any goroutine, including when idle.
func (e *Engine) Cancel() {
	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Active reports whether a turn is in flight.
func (e *Engine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// release frees the turn slot and disarms the cancellation handle.
func (e *Engine) release() {
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.active = false
	e.mu.Unlock()
}

// consume dispatches decoded events into log transforms until a
// terminal event, cancellation, or transport failure.
func (e *Engine) consume(ctx context.Context, sessionID string, r *Reader) {
	for {
		select {
		case <-ctx.Done():
			e.fail(sessionID, ctx.Err().Error())
			return
		default:
		}

		ev, err := r.Next()
		if err != nil {
			// The protocol ends with a terminal event, so a bare EOF is
			// a broken transport.
			if errors.Is(err, io.EOF) {
				e.fail(sessionID, "stream ended unexpectedly")
			} else {
				e.fail(sessionID, err.Error())
			}
			return
		}

		e.countEvent(ctx, ev.Type)

		switch ev.Type {
		case EventTextDelta:
			e.log.Apply(sessionID, chat.AppendText(ev.Text))
		case EventToolStart:
			e.log.Apply(sessionID, chat.StartTool(ev.ToolName, ev.ToolID))
		case EventToolExecuting:
			e.log.Apply(sessionID, chat.ExecuteTool(ev.ToolID, ev.Input))
		case EventToolResult:
			e.log.Apply(sessionID, chat.FinishTool(ev.ToolID, ev.ResultPreview))
		case EventDone:
			e.log.Apply(sessionID, chat.FinishStreaming())
			e.sessions.Touch(sessionID)
			e.notify(ev)
			e.logger.Info("turn completed", "session_id", sessionID)
			return
		case EventError:
			e.fail(sessionID, ev.Message)
			return
		}

		e.sessions.Touch(sessionID)
		e.notify(ev)
	}
}

// fail converts any per-turn failure into a visible annotation on the
// assistant message and finalizes it.
func (e *Engine) fail(sessionID, errText string) {
	e.log.Apply(sessionID, chat.FailStreaming(errText))
	e.sessions.Touch(sessionID)
	e.notify(Event{Type: EventError, Message: errText})
	e.logger.Error("turn failed", "session_id", sessionID, "error", errText)
}

func (e *Engine) notify(ev Event) {
	if e.OnEvent != nil {
		e.OnEvent(ev)
	}
}

func (e *Engine) countEvent(ctx context.Context, t EventType) {
	counter, err := e.meter.Int64Counter(
		fmt.Sprintf("chat.events.%s", t),
		metric.WithDescription(fmt.Sprintf("Decoded chat stream events: %s", t)),
	)
	if err != nil {
		e.logger.Warn("failed to create event counter", "event", string(t), "error", err)
		return
	}
	counter.Add(ctx, 1)
}
