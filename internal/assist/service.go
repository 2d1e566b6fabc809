// Package assist is the demo-booking conversation service: it owns the tool
// handlers, the per-request session state, and the mapping from engine
// events to the client wire format.
package assist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/salesline/salesline/internal/calendar"
	"github.com/salesline/salesline/internal/llm"
	"github.com/salesline/salesline/internal/mailer"
	"github.com/salesline/salesline/internal/notify"
	"github.com/salesline/salesline/internal/store"
)

const (
	maxMessages     = 50
	defaultTimezone = "America/New_York"
)

// ChatMessage is one prior transcript entry supplied by the client.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of one chat call. The full transcript is resent
// every call; nothing conversational is stored between requests.
type ChatRequest struct {
	Messages       []ChatMessage `json:"messages"`
	LeadInfo       *LeadInfo     `json:"leadInfo,omitempty"`
	Timezone       string        `json:"timezone,omitempty"`
	SelectedSlotID string        `json:"selectedSlotId,omitempty"`
}

func (r ChatRequest) Validate() error {
	if len(r.Messages) == 0 {
		return fmt.Errorf("messages must not be empty")
	}
	if len(r.Messages) > maxMessages {
		return fmt.Errorf("too many messages: %d (max %d)", len(r.Messages), maxMessages)
	}
	for i, m := range r.Messages {
		if m.Role != "user" && m.Role != "assistant" {
			return fmt.Errorf("message %d: invalid role %q", i, m.Role)
		}
	}
	return nil
}

// Service runs one chat exchange per call. Every collaborator behind it is
// an interface so tests can swap in fakes.
type Service struct {
	provider    llm.Provider
	cal         calendar.Calendar
	store       store.Store
	notifier    notify.Notifier
	mailer      mailer.Mailer
	maxTurns    int
	toolTimeout time.Duration
	defaultTZ   string
	logger      *log.Logger
	now         func() time.Time
}

func NewService(provider llm.Provider, cal calendar.Calendar, st store.Store, notifier notify.Notifier, m mailer.Mailer) *Service {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	if m == nil {
		m = mailer.Noop{}
	}
	return &Service{
		provider:  provider,
		cal:       cal,
		store:     st,
		notifier:  notifier,
		mailer:    m,
		defaultTZ: defaultTimezone,
		logger:    log.Default(),
		now:       time.Now,
	}
}

// SetDefaultTimezone overrides the timezone used when a request has none.
func (s *Service) SetDefaultTimezone(tz string) {
	if tz != "" {
		s.defaultTZ = tz
	}
}

// SetMaxTurns bounds the tool-executing loop (0 keeps the engine default).
func (s *Service) SetMaxTurns(n int) { s.maxTurns = n }

// SetToolTimeout bounds each tool handler call (0 keeps the engine default).
func (s *Service) SetToolTimeout(d time.Duration) { s.toolTimeout = d }

func (s *Service) SetLogger(l *log.Logger) {
	if l != nil {
		s.logger = l
	}
}

// SetClock overrides the time source for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Run drives one full exchange: model stream, sequential tool execution,
// repeat until a turn ends with no tool calls. Events flow to pub in strict
// causal order. The ctx should not be tied to client liveness; disconnects
// gate publishing only (the publisher's done channel), never tool execution.
func (s *Service) Run(ctx context.Context, req ChatRequest, pub *Publisher) error {
	if err := req.Validate(); err != nil {
		pub.Publish(NewErrorEvent(err.Error()))
		return err
	}

	loc := s.resolveLocation(req.Timezone)
	var lead LeadInfo
	if req.LeadInfo != nil {
		lead = *req.LeadInfo
	}
	sess := newSession(lead, req.SelectedSlotID, loc)

	registry := llm.NewToolRegistry()
	tools := []llm.Tool{
		&slotsTool{cal: s.cal, sess: sess},
		&leadTool{sess: sess},
		&bookingTool{cal: s.cal, store: s.store, notifier: s.notifier, mailer: s.mailer, sess: sess, logger: s.logger},
	}
	for _, tool := range tools {
		if err := registry.Register(tool); err != nil {
			return err
		}
	}

	engine := llm.NewEngine(s.provider, registry)
	if s.toolTimeout > 0 {
		engine.SetToolTimeout(s.toolTimeout)
	}

	stream, err := engine.Stream(ctx, llm.Request{
		System:   buildSystemPrompt(s.now().In(loc), sess.lead, sess.selectedSlotID),
		Messages: buildMessages(req.Messages),
		Tools:    registry.AllSpecs(),
		MaxTurns: s.maxTurns,
	})
	if err != nil {
		pub.Publish(NewErrorEvent("failed to start the conversation"))
		return err
	}
	defer stream.Close()

	for {
		event, err := stream.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			s.logger.Printf("chat exchange failed: %v", err)
			pub.Publish(NewErrorEvent(userFacingError(err)))
			return err
		}

		switch event.Type {
		case llm.EventTextDelta:
			pub.Publish(NewTextDeltaEvent(event.Text))
		case llm.EventToolUseStart:
			pub.Publish(NewToolUseStartEvent(event.ToolName))
		case llm.EventPush:
			pub.Publish(event.Push)
		case llm.EventToolError:
			s.logger.Printf("tool %s failed: %v", event.ToolName, event.Err)
			pub.Publish(NewErrorEvent(fmt.Sprintf("%s failed, the assistant will try another way", event.ToolName)))
		case llm.EventDone:
			pub.Publish(NewDoneEvent())
		}
	}
}

func (s *Service) resolveLocation(tz string) *time.Location {
	if tz == "" {
		tz = s.defaultTZ
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.logger.Printf("invalid timezone %q, using %s: %v", tz, s.defaultTZ, err)
		loc, err = time.LoadLocation(s.defaultTZ)
		if err != nil {
			return time.UTC
		}
	}
	return loc
}

func buildMessages(messages []ChatMessage) []llm.Message {
	out := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == "assistant" {
			out = append(out, llm.AssistantText(m.Content))
		} else {
			out = append(out, llm.UserText(m.Content))
		}
	}
	return out
}

func userFacingError(err error) string {
	if errors.Is(err, llm.ErrMaxTurnsExceeded) {
		return "the conversation needed too many steps; please rephrase and try again"
	}
	return "something went wrong while generating a response"
}
