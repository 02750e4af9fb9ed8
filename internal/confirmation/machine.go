// Package confirmation turns proposed ticker corrections into a sequence of
// single questions and folds the user's answers back into a Conversation.
//
// The Machine never performs I/O. Callers run it inside
// ConversationStore.Mutate so that transitions are linearizable per
// conversation, and call the correction gateway outside that lock.
package confirmation

import (
	"strings"

	"github.com/ternarybob/tickerchat/internal/models"
)

// StepKind says what the caller should do next
type StepKind string

const (
	StepConfirm  StepKind = "confirm"
	StepClarify  StepKind = "clarify"
	StepResolved StepKind = "resolved"
)

// Step is the result of a transition: either a question for the user or the
// final ticker set.
type Step struct {
	Kind      StepKind                    `json:"kind"`
	Question  string                      `json:"question,omitempty"`
	Token     string                      `json:"token,omitempty"`
	Candidate *models.CorrectionCandidate `json:"candidate,omitempty"`
	Tickers   []string                    `json:"tickers,omitempty"`
	// Reasked is set when the same question is asked again.
	Reasked bool `json:"reasked,omitempty"`
	// Lookup lists tokens from a clarification reply that the resolver could
	// not match. Callers may pass them to the correction gateway and feed
	// the result to Reresolve.
	Lookup []string `json:"lookup,omitempty"`
}

// Done reports whether the conversation reached its final ticker set.
func (s Step) Done() bool {
	return s.Kind == StepResolved
}

// Machine applies the confirmation transition table
type Machine struct {
	resolver TickerResolver
}

// New creates a Machine that resolves replacements and the original query
// with r.
func New(r TickerResolver) *Machine {
	return &Machine{resolver: r}
}

// Classify classifies answer with the machine's resolver.
func (m *Machine) Classify(answer string) Answer {
	return Classify(answer, m.resolver)
}

// Begin seeds a fresh conversation with the gateway's candidates. Candidates
// are queued in the order their token first appears in unresolved. When the
// gateway proposed nothing every unresolved token is clarified instead.
func (m *Machine) Begin(conv *models.Conversation, candidates []models.CorrectionCandidate, unresolved []string) Step {
	conv.PendingCorrections = OrderCandidates(candidates, unresolved)
	conv.ConfirmedTickers = nil
	conv.ClarificationToken = ""
	conv.ClarificationQueue = nil
	if len(conv.PendingCorrections) == 0 {
		conv.ClarificationQueue = append([]string(nil), unresolved...)
	}
	return m.advance(conv)
}

// Answer applies one reply. Terminal conversations are returned unchanged.
func (m *Machine) Answer(conv *models.Conversation, reply string) Step {
	if conv.State.IsTerminal() {
		return m.Current(conv)
	}
	conv.Answers = append(conv.Answers, reply)
	answer := m.Classify(reply)

	if conv.State == models.StateAwaitingClarification && conv.ClarificationToken != "" {
		return m.answerClarification(conv, answer)
	}
	if len(conv.PendingCorrections) == 0 {
		return m.advance(conv)
	}
	return m.answerConfirmation(conv, answer)
}

func (m *Machine) answerConfirmation(conv *models.Conversation, answer Answer) Step {
	head := conv.PendingCorrections[0]

	switch answer.Kind {
	case AnswerAffirm:
		conv.PendingCorrections = conv.PendingCorrections[1:]
		conv.Confirm(head.CandidateTicker)
		conv.Confirm(answer.Tickers...)
		return m.advance(conv)

	case AnswerReject:
		conv.PendingCorrections = conv.PendingCorrections[1:]
		return m.clarify(conv, head.OriginalToken, RejectedQuestion(head.OriginalToken))

	case AnswerReplacement:
		conv.PendingCorrections = conv.PendingCorrections[1:]
		conv.Confirm(answer.Tickers...)
		return m.advance(conv)
	}

	conv.UnrecognizedStreak++
	if conv.UnrecognizedStreak >= 2 {
		conv.PendingCorrections = conv.PendingCorrections[1:]
		return m.clarify(conv, head.OriginalToken, ClarificationQuestion(head.OriginalToken))
	}
	return m.ask(conv, Step{
		Kind:      StepConfirm,
		Question:  unrecognizedPrefix + ConfirmationQuestion(head),
		Token:     head.OriginalToken,
		Candidate: &head,
		Reasked:   true,
	})
}

func (m *Machine) answerClarification(conv *models.Conversation, answer Answer) Step {
	token := conv.ClarificationToken

	switch {
	case answer.Kind == AnswerReplacement, answer.Kind == AnswerAffirm && len(answer.Tickers) > 0:
		conv.Confirm(answer.Tickers...)
		conv.ClarificationToken = ""
		return m.advance(conv)

	case answer.Kind == AnswerReject:
		conv.ClarificationToken = ""
		return m.advance(conv)
	}

	question := ClarificationQuestion(token)
	if answer.Kind == AnswerUnrecognized && answer.Text != "" {
		question = notFoundPrefix(answer.Text) + question
	}
	return m.ask(conv, Step{
		Kind:     StepClarify,
		Question: question,
		Token:    token,
		Reasked:  true,
		Lookup:   answer.Unresolved,
	})
}

// Reresolve queues candidates the gateway proposed for a clarification reply
// to token. It is a no-op when the conversation moved on in the meantime.
func (m *Machine) Reresolve(conv *models.Conversation, token string, candidates []models.CorrectionCandidate) Step {
	if conv.State != models.StateAwaitingClarification || conv.ClarificationToken != token || len(candidates) == 0 {
		return m.Current(conv)
	}
	conv.ClarificationToken = ""
	conv.PendingCorrections = append(dedupeByToken(candidates), conv.PendingCorrections...)
	return m.advance(conv)
}

// Current describes the conversation's outstanding step without changing it.
func (m *Machine) Current(conv *models.Conversation) Step {
	switch conv.State {
	case models.StateAwaitingClarification:
		return Step{Kind: StepClarify, Question: conv.LastQuestion, Token: conv.ClarificationToken}
	case models.StateAwaitingConfirmation:
		if len(conv.PendingCorrections) > 0 {
			head := conv.PendingCorrections[0]
			return Step{Kind: StepConfirm, Question: conv.LastQuestion, Token: head.OriginalToken, Candidate: &head}
		}
	}
	return Step{Kind: StepResolved, Tickers: append([]string(nil), conv.FinalTickers...)}
}

// advance presents the next pending candidate, then the next queued
// clarification, and resolves once both are exhausted.
func (m *Machine) advance(conv *models.Conversation) Step {
	conv.UnrecognizedStreak = 0

	if len(conv.PendingCorrections) > 0 {
		head := conv.PendingCorrections[0]
		conv.State = models.StateAwaitingConfirmation
		conv.QuestionsAsked++
		return m.ask(conv, Step{
			Kind:      StepConfirm,
			Question:  ConfirmationQuestion(head),
			Token:     head.OriginalToken,
			Candidate: &head,
		})
	}

	if len(conv.ClarificationQueue) > 0 {
		token := conv.ClarificationQueue[0]
		conv.ClarificationQueue = conv.ClarificationQueue[1:]
		return m.clarify(conv, token, ClarificationQuestion(token))
	}

	return m.resolve(conv)
}

func (m *Machine) clarify(conv *models.Conversation, token, question string) Step {
	conv.State = models.StateAwaitingClarification
	conv.ClarificationToken = token
	conv.UnrecognizedStreak = 0
	return m.ask(conv, Step{Kind: StepClarify, Question: question, Token: token})
}

func (m *Machine) ask(conv *models.Conversation, step Step) Step {
	conv.LastQuestion = step.Question
	return step
}

// resolve computes confirmed ∪ Resolve(original query). The union picks up
// tokens that were already valid tickers on the first pass.
func (m *Machine) resolve(conv *models.Conversation) Step {
	final := append([]string(nil), conv.ConfirmedTickers...)
	seen := make(map[string]bool, len(final))
	for _, t := range final {
		seen[t] = true
	}
	for _, t := range m.resolver.Resolve(conv.OriginalQuery).Tickers {
		if !seen[t] {
			seen[t] = true
			final = append(final, t)
		}
	}

	conv.State = models.StateResolved
	conv.PendingCorrections = nil
	conv.ClarificationToken = ""
	conv.ClarificationQueue = nil
	conv.LastQuestion = ""
	conv.FinalTickers = final
	return Step{Kind: StepResolved, Tickers: append([]string(nil), final...)}
}

// OrderCandidates keeps one candidate per token and orders them by the first
// appearance of their token in tokens. Candidates for tokens that were not
// asked about go last in gateway order.
func OrderCandidates(candidates []models.CorrectionCandidate, tokens []string) []models.CorrectionCandidate {
	position := make(map[string]int, len(tokens))
	for i, t := range tokens {
		key := strings.ToLower(t)
		if _, ok := position[key]; !ok {
			position[key] = i
		}
	}

	deduped := dedupeByToken(candidates)
	ordered := make([]models.CorrectionCandidate, 0, len(deduped))
	for i := range tokens {
		for _, c := range deduped {
			if pos, ok := position[strings.ToLower(c.OriginalToken)]; ok && pos == i {
				ordered = append(ordered, c)
			}
		}
	}
	for _, c := range deduped {
		if _, ok := position[strings.ToLower(c.OriginalToken)]; !ok {
			ordered = append(ordered, c)
		}
	}
	return ordered
}

func dedupeByToken(candidates []models.CorrectionCandidate) []models.CorrectionCandidate {
	seen := make(map[string]bool, len(candidates))
	out := make([]models.CorrectionCandidate, 0, len(candidates))
	for _, c := range candidates {
		key := strings.ToLower(c.OriginalToken)
		if c.CandidateTicker == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}
