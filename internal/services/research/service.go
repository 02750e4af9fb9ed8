// Package research drives a request from free text to aggregated insights:
// resolution, the confirmation dialogue and the per-ticker fan-out.
package research

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerchat/internal/confirmation"
	"github.com/ternarybob/tickerchat/internal/interfaces"
	"github.com/ternarybob/tickerchat/internal/models"
	"github.com/ternarybob/tickerchat/internal/orchestrator"
	"github.com/ternarybob/tickerchat/internal/resolver"
)

// Runner fans out the final ticker set.
type Runner interface {
	RunWithProgress(ctx context.Context, req models.OrchestrationRequest, progress orchestrator.ProgressFunc) *models.OrchestrationResult
}

// Service handles research requests
type Service struct {
	resolver      *resolver.Resolver
	gateway       interfaces.CorrectionGateway
	conversations interfaces.ConversationStore
	machine       *confirmation.Machine
	runner        Runner
	analyses      interfaces.AnalysisStorage
	events        interfaces.EventService
	validate      *validator.Validate
	logger        arbor.ILogger

	// running maps analysis ids to the cancel func of their run.
	mu      sync.Mutex
	running map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewService wires the research flow. analyses and events may be nil.
func NewService(
	r *resolver.Resolver,
	gateway interfaces.CorrectionGateway,
	conversations interfaces.ConversationStore,
	runner Runner,
	analyses interfaces.AnalysisStorage,
	events interfaces.EventService,
	logger arbor.ILogger,
) *Service {
	return &Service{
		resolver:      r,
		gateway:       gateway,
		conversations: conversations,
		machine:       confirmation.New(r),
		runner:        runner,
		analyses:      analyses,
		events:        events,
		validate:      validator.New(),
		logger:        logger,
		running:       make(map[string]context.CancelFunc),
	}
}

// Handle processes one request. Conversation lookups fail with
// ErrConversationNotFound or ErrConversationExpired; a store failure is the
// only other error returned. Pipeline failures are reported in Results.
func (s *Service) Handle(ctx context.Context, req Request) (*Response, error) {
	req.Query = strings.TrimSpace(req.Query)
	req.ConfirmationAnswer = strings.TrimSpace(req.ConfirmationAnswer)
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidRequest, err)
	}

	if req.ConversationID != "" {
		conv, err := s.conversations.Get(ctx, req.ConversationID)
		if err != nil {
			return nil, err
		}
		if !conv.State.IsTerminal() {
			return s.answer(ctx, conv, req)
		}
		s.logger.Debug().
			Str("conversation_id", conv.ID).
			Msg("Conversation already resolved, treating request as new")
	}

	if req.Query == "" {
		return nil, fmt.Errorf("%w: query is required", interfaces.ErrInvalidRequest)
	}
	return s.start(ctx, req)
}

// start resolves a fresh query, opening a conversation when some tokens
// need confirmation.
func (s *Service) start(ctx context.Context, req Request) (*Response, error) {
	resolution := s.resolver.Resolve(req.Query)

	s.logger.Info().
		Str("query", req.Query).
		Strs("tickers", resolution.Tickers).
		Strs("unresolved", resolution.Unresolved).
		Msg("Query resolved")

	if len(resolution.Unresolved) == 0 {
		if len(resolution.Tickers) == 0 {
			s.logger.Debug().Err(interfaces.ErrUnresolvedInput).Str("query", req.Query).Msg("Nothing to analyze")
			return &Response{Message: noTickersMessage}, nil
		}
		return s.analyze(ctx, "", req, resolution.Tickers)
	}

	candidates := s.propose(ctx, resolution.Unresolved, req.Query)

	conv, err := s.conversations.Create(ctx, req.Query)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, interfaces.EventConversationStarted, map[string]interface{}{
		"conversation_id": conv.ID,
		"query":           req.Query,
		"unresolved":      resolution.Unresolved,
	})

	var step confirmation.Step
	conv, err = s.conversations.Mutate(ctx, conv.ID, func(c *models.Conversation) error {
		step = s.machine.Begin(c, candidates, resolution.Unresolved)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.next(ctx, conv, step, req)
}

// answer applies a reply to an active conversation.
func (s *Service) answer(ctx context.Context, conv *models.Conversation, req Request) (*Response, error) {
	reply := req.ConfirmationAnswer
	if reply == "" {
		reply = req.Query
	}

	// The reply answers the question conv was read with. If another reply
	// moved the conversation on since, applying it would answer a question
	// the user has not seen.
	asked, last := conv.QuestionsAsked, conv.LastQuestion

	var step confirmation.Step
	updated, err := s.conversations.Mutate(ctx, conv.ID, func(c *models.Conversation) error {
		if c.QuestionsAsked != asked || c.LastQuestion != last {
			return fmt.Errorf("%w: %s", interfaces.ErrConversationConflict, c.ID)
		}
		step = s.machine.Answer(c, reply)
		return nil
	})
	if errors.Is(err, interfaces.ErrConversationResolved) && updated != nil {
		// A concurrent answer resolved it first.
		return s.finish(ctx, updated, s.machine.Current(updated), req)
	}
	if err != nil {
		return nil, err
	}

	// A clarification reply the resolver could not match gets one pass
	// through the gateway, outside the conversation lock.
	if step.Kind == confirmation.StepClarify && len(step.Lookup) > 0 {
		candidates := s.propose(ctx, step.Lookup, reply)
		if len(candidates) > 0 {
			token := step.Token
			updated, err = s.conversations.Mutate(ctx, conv.ID, func(c *models.Conversation) error {
				step = s.machine.Reresolve(c, token, candidates)
				return nil
			})
			if err != nil {
				return nil, err
			}
		}
	}

	s.logger.Debug().
		Str("conversation_id", conv.ID).
		Str("state", string(updated.State)).
		Str("step", string(step.Kind)).
		Msg("Confirmation answer applied")

	return s.next(ctx, updated, step, req)
}

// next returns the pending question or hands the final set to the
// orchestrator.
func (s *Service) next(ctx context.Context, conv *models.Conversation, step confirmation.Step, req Request) (*Response, error) {
	if !step.Done() {
		s.publish(ctx, interfaces.EventConfirmationAsked, map[string]interface{}{
			"conversation_id": conv.ID,
			"kind":            string(step.Kind),
			"question":        step.Question,
		})
		return &Response{
			NeedsConfirmation: true,
			Question:          step.Question,
			QuestionKind:      step.Kind,
			ConversationID:    conv.ID,
		}, nil
	}
	return s.finish(ctx, conv, step, req)
}

func (s *Service) finish(ctx context.Context, conv *models.Conversation, step confirmation.Step, req Request) (*Response, error) {
	s.publish(ctx, interfaces.EventConversationResolved, map[string]interface{}{
		"conversation_id": conv.ID,
		"tickers":         step.Tickers,
		"questions_asked": conv.QuestionsAsked,
	})

	if err := s.conversations.Delete(ctx, conv.ID); err != nil {
		s.logger.Warn().Err(err).Str("conversation_id", conv.ID).Msg("Failed to evict resolved conversation")
	}

	if len(step.Tickers) == 0 {
		return &Response{ConversationID: conv.ID, Message: emptyFinalMessage}, nil
	}

	req.Query = conv.OriginalQuery
	return s.analyze(ctx, conv.ID, req, step.Tickers)
}

// propose asks the gateway for corrections. Errors degrade to no
// candidates.
func (s *Service) propose(ctx context.Context, tokens []string, query string) []models.CorrectionCandidate {
	if s.gateway == nil || len(tokens) == 0 {
		return nil
	}
	candidates, err := s.gateway.ProposeCorrections(ctx, tokens, query)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("gateway", s.gateway.Name()).
			Strs("tokens", tokens).
			Msg("Correction gateway failed, falling back to clarification")
		return nil
	}
	return candidates
}

func (s *Service) publish(ctx context.Context, eventType interfaces.EventType, payload interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, interfaces.Event{Type: eventType, Payload: payload}); err != nil {
		s.logger.Warn().Err(err).Str("event_type", string(eventType)).Msg("Failed to publish event")
	}
}

// Wait blocks until background analyses finish or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
