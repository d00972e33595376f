package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/yungbote/eduplanner-backend/internal/agents"
	"github.com/yungbote/eduplanner-backend/internal/domain/collab"
	"github.com/yungbote/eduplanner-backend/internal/domain/planning"
	"github.com/yungbote/eduplanner-backend/internal/observability"
	"github.com/yungbote/eduplanner-backend/internal/platform/logger"
	"github.com/yungbote/eduplanner-backend/internal/realtime"
)

const (
	askOptimizerLabel   = "Ask Optimizer to act on this feedback"
	viewLessonPlanLabel = "View Updated Lesson Plan"
	refinedPlanText     = "**Lesson Plan Refined Successfully**\n\nI have incorporated the evaluator's feedback. You can now view the updated version in the Instructional Design Lab."
)

// ChatSnapshot is the full workshop state returned to clients.
type ChatSnapshot struct {
	SessionID  string               `json:"sessionId"`
	Agents     []collab.Agent       `json:"agents"`
	Messages   []collab.ChatMessage `json:"messages"`
	ActivePlan *planning.LessonPlan `json:"activePlan,omitempty"`
	Typing     collab.AgentName     `json:"typing,omitempty"`
}

// PlanHandoff hands a refined plan to the lab through a one-shot token.
type PlanHandoff interface {
	PutHandoff(ctx context.Context, plan *planning.LessonPlan) (string, error)
}

type ChatService interface {
	CreateSession(ctx context.Context) *ChatSnapshot
	Snapshot(sessionID string) (*ChatSnapshot, error)
	// Submit routes text to an agent and returns the appended agent message.
	Submit(ctx context.Context, sessionID, text string) (*collab.ChatMessage, error)
	// SubmitFeedback rates an agent message; the first rating wins.
	SubmitFeedback(ctx context.Context, sessionID, messageID string, rating collab.Rating) (*collab.ChatMessage, error)
	ReviewLessonPlan(ctx context.Context, sessionID string, plan *planning.LessonPlan) (*collab.ChatMessage, error)
	OptimizerAction(ctx context.Context, sessionID, messageID string) (*collab.ChatMessage, error)
	CloseSession(sessionID string)
}

type chatSession struct {
	id   string
	slot *semaphore.Weighted

	mu         sync.Mutex
	agents     []collab.Agent
	messages   []collab.ChatMessage
	activePlan *planning.LessonPlan
	typing     collab.AgentName
}

type chatService struct {
	log      *logger.Logger
	gen      GenerationService
	feedback FeedbackLog
	handoff  PlanHandoff
	personas *agents.Personas
	notify   realtime.Notifier
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*chatSession
}

func NewChatService(
	log *logger.Logger,
	gen GenerationService,
	feedback FeedbackLog,
	handoff PlanHandoff,
	personas *agents.Personas,
	notify realtime.Notifier,
) ChatService {
	if notify == nil {
		notify = realtime.Nop{}
	}
	return &chatService{
		log:      log.With("service", "ChatService"),
		gen:      gen,
		feedback: feedback,
		handoff:  handoff,
		personas: personas,
		notify:   notify,
		now:      time.Now,
		sessions: make(map[string]*chatSession),
	}
}

func agentMessage(sender collab.AgentName, text string, ts time.Time) collab.ChatMessage {
	msg := collab.ChatMessage{
		ID:        uuid.NewString(),
		Sender:    string(sender),
		Kind:      collab.KindMarkdownText,
		Text:      text,
		RawText:   text,
		Timestamp: ts,
	}
	if agents.HasRecommendation(msg.Sender, msg.RawText) {
		msg.Kind = collab.KindActionPrompt
		msg.Action = &collab.MessageAction{Type: collab.ActionAskOptimizer, Label: askOptimizerLabel}
	}
	return msg
}

func (s *chatService) CreateSession(ctx context.Context) *ChatSnapshot {
	sess := &chatSession{
		id:       uuid.NewString(),
		slot:     semaphore.NewWeighted(1),
		agents:   s.personas.Board(),
		messages: welcomeMessages(s.now()),
	}
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	s.log.Info("Chat session created", "session_id", sess.id)
	return sess.snapshot()
}

func (s *chatService) CloseSession(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}

func (s *chatService) session(id string) (*chatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[strings.TrimSpace(id)]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *chatService) Snapshot(sessionID string) (*ChatSnapshot, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.snapshot(), nil
}

func (sess *chatSession) snapshot() *ChatSnapshot {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	out := &ChatSnapshot{
		SessionID: sess.id,
		Agents:    append([]collab.Agent(nil), sess.agents...),
		Messages:  append([]collab.ChatMessage(nil), sess.messages...),
		Typing:    sess.typing,
	}
	out.ActivePlan = sess.activePlan.Clone()
	return out
}

func (s *chatService) appendMessage(ctx context.Context, sess *chatSession, msg collab.ChatMessage) {
	sess.mu.Lock()
	sess.messages = append(sess.messages, msg)
	sess.mu.Unlock()
	s.notify.Notify(ctx, realtime.SSEMessage{
		Channel: realtime.ChatChannel(sess.id),
		Event:   realtime.SSEEventChatMessage,
		Data:    map[string]any{"message": msg},
	})
}

func (s *chatService) setAgent(ctx context.Context, sess *chatSession, name collab.AgentName, status collab.AgentStatus, task string) {
	sess.mu.Lock()
	var agent collab.Agent
	for i := range sess.agents {
		if sess.agents[i].Name == name {
			sess.agents[i].Status = status
			sess.agents[i].Task = task
			agent = sess.agents[i]
		}
	}
	if status == collab.AgentIdle {
		sess.typing = ""
	} else {
		sess.typing = name
	}
	sess.mu.Unlock()
	s.notify.Notify(ctx, realtime.SSEMessage{
		Channel: realtime.ChatChannel(sess.id),
		Event:   realtime.SSEEventAgentStatus,
		Data:    map[string]any{"agent": agent},
	})
}

func (s *chatService) userMessage(text string) collab.ChatMessage {
	return collab.ChatMessage{
		ID:        uuid.NewString(),
		Sender:    collab.SenderUser,
		Kind:      collab.KindPlainText,
		Text:      text,
		Timestamp: s.now(),
	}
}

func errorText(err error) string {
	if err == nil {
		return "An unknown error occurred."
	}
	return err.Error()
}

// ask runs one agent turn: Processing, one generation call, reply or error message, Idle.
// The caller holds the session slot.
func (s *chatService) ask(ctx context.Context, sess *chatSession, agent collab.AgentName, prompt, task string) *collab.ChatMessage {
	s.setAgent(ctx, sess, agent, collab.AgentProcessing, task)
	defer s.setAgent(ctx, sess, agent, collab.AgentIdle, s.personas.DefaultTask(agent))

	var reply collab.ChatMessage
	text, err := s.gen.AgentResponse(context.WithoutCancel(ctx), prompt, agent)
	if err != nil {
		s.log.Warn("Agent turn failed", "session_id", sess.id, "agent", agent, "error", err)
		reply = agentMessage(agent, "**Error:** "+errorText(err), s.now())
		reply.RawText = "Error: " + errorText(err)
		reply.Kind = collab.KindMarkdownText
		reply.Action = nil
	} else {
		reply = agentMessage(agent, text, s.now())
	}
	s.appendMessage(ctx, sess, reply)
	return &reply
}

func (s *chatService) Submit(ctx context.Context, sessionID, text string) (*collab.ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyPrompt
	}
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.slot.TryAcquire(1) {
		return nil, ErrBusy
	}
	defer sess.slot.Release(1)

	s.appendMessage(ctx, sess, s.userMessage(text))
	agent := agents.Route(text)
	task := fmt.Sprintf("Processing prompt: \"%s...\"", truncateRunes(text, 30))
	return s.ask(ctx, sess, agent, text, task), nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func (s *chatService) SubmitFeedback(ctx context.Context, sessionID, messageID string, rating collab.Rating) (*collab.ChatMessage, error) {
	if !rating.Valid() {
		return nil, ErrInvalidRating
	}
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	idx := -1
	for i := range sess.messages {
		if sess.messages[i].ID == messageID {
			idx = i
			break
		}
	}
	if idx < 0 {
		sess.mu.Unlock()
		return nil, ErrMessageNotFound
	}
	msg := &sess.messages[idx]
	if !msg.FromAgent() {
		sess.mu.Unlock()
		return nil, ErrNotAgentMessage
	}
	if msg.Feedback != nil {
		out := *msg
		sess.mu.Unlock()
		return &out, nil
	}
	r := rating
	msg.Feedback = &r
	out := *msg
	sess.mu.Unlock()

	added, err := s.feedback.Append(ctx, collab.FeedbackEntry{
		MessageID:    out.ID,
		AgentName:    collab.AgentName(out.Sender),
		ResponseText: out.RawText,
		Feedback:     rating,
		Timestamp:    s.now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, err
	}
	if added {
		observability.Current().IncAgentRating(out.Sender, string(rating))
		s.notify.Notify(ctx, realtime.SSEMessage{
			Channel: realtime.ChatChannel(sess.id),
			Event:   realtime.SSEEventFeedbackLogged,
			Data:    map[string]any{"messageId": out.ID, "feedback": rating},
		})
	}
	return &out, nil
}

func (s *chatService) ReviewLessonPlan(ctx context.Context, sessionID string, plan *planning.LessonPlan) (*collab.ChatMessage, error) {
	if plan == nil {
		return nil, ErrNoActivePlan
	}
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.slot.TryAcquire(1) {
		return nil, ErrBusy
	}
	defer sess.slot.Release(1)

	raw, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	sess.activePlan = plan.Clone()
	sess.mu.Unlock()

	s.appendMessage(ctx, sess, s.userMessage(lessonPlanReviewDisplay(plan.Title)))
	return s.ask(ctx, sess, collab.AgentEvaluator, lessonPlanReviewPrompt(string(raw)), "Analyzing submitted lesson plan..."), nil
}

func (s *chatService) OptimizerAction(ctx context.Context, sessionID, messageID string) (*collab.ChatMessage, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.slot.TryAcquire(1) {
		return nil, ErrBusy
	}
	defer sess.slot.Release(1)

	sess.mu.Lock()
	plan := sess.activePlan
	var source *collab.ChatMessage
	for i := range sess.messages {
		if sess.messages[i].ID == messageID {
			m := sess.messages[i]
			source = &m
			break
		}
	}
	sess.mu.Unlock()
	if source == nil {
		return nil, ErrMessageNotFound
	}
	if source.Sender != string(collab.AgentEvaluator) {
		return nil, ErrNotEvaluatorReply
	}
	if plan == nil {
		return nil, ErrNoActivePlan
	}

	agent := collab.AgentOptimizer
	s.appendMessage(ctx, sess, s.userMessage(fmt.Sprintf("Tasking Optimizer with the feedback to refine the lesson plan: \"%s\"", plan.Title)))
	s.setAgent(ctx, sess, agent, collab.AgentProcessing, "Refining lesson plan...")
	defer s.setAgent(ctx, sess, agent, collab.AgentIdle, s.personas.DefaultTask(agent))

	detached := context.WithoutCancel(ctx)
	refined, err := s.gen.RefineLessonPlan(detached, plan, source.RawText)
	var token string
	if err == nil && s.handoff != nil {
		token, err = s.handoff.PutHandoff(detached, refined)
	}
	if err != nil {
		s.log.Warn("Optimizer action failed", "session_id", sess.id, "error", err)
		reply := collab.ChatMessage{
			ID:        uuid.NewString(),
			Sender:    string(agent),
			Kind:      collab.KindMarkdownText,
			Text:      "I encountered an error while refining the lesson plan: " + errorText(err),
			RawText:   "Error: " + errorText(err),
			Timestamp: s.now(),
		}
		s.appendMessage(ctx, sess, reply)
		return &reply, nil
	}

	sess.mu.Lock()
	sess.activePlan = refined.Clone()
	sess.mu.Unlock()

	reply := collab.ChatMessage{
		ID:        uuid.NewString(),
		Sender:    string(agent),
		Kind:      collab.KindActionPrompt,
		Text:      refinedPlanText,
		Timestamp: s.now(),
		Action: &collab.MessageAction{
			Type:         collab.ActionViewLessonPlan,
			Label:        viewLessonPlanLabel,
			HandoffToken: token,
		},
	}
	s.appendMessage(ctx, sess, reply)
	return &reply, nil
}
