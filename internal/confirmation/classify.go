package confirmation

import (
	"strings"

	"github.com/ternarybob/tickerchat/internal/resolver"
)

// AnswerKind is the closed classification of a user's reply
type AnswerKind string

const (
	AnswerAffirm       AnswerKind = "affirm"
	AnswerReject       AnswerKind = "reject"
	AnswerReplacement  AnswerKind = "replacement"
	AnswerUnrecognized AnswerKind = "unrecognized"
)

// TickerResolver is the subset of resolver.Resolver the state machine needs
type TickerResolver interface {
	Resolve(text string) resolver.Resolution
}

// Answer is a classified reply
type Answer struct {
	Kind AnswerKind `json:"kind"`
	Text string     `json:"text"`
	// Tickers are resolved from the reply. For AnswerReplacement they are the
	// replacement; for AnswerAffirm they are extra tickers named after the
	// accept word ("yes, and AAPL").
	Tickers []string `json:"tickers,omitempty"`
	// Unresolved are company-like tokens in the reply that matched nothing.
	Unresolved []string `json:"unresolved,omitempty"`
}

var acceptPhrases = toSet(
	"yes", "y", "yeah", "yea", "yep", "yup", "sure", "correct", "ok", "okay", "right",
	"that's right", "thats right", "that is right", "absolutely", "confirm", "confirmed",
	"yes please", "of course", "affirmative", "exactly", "indeed", "definitely",
)

var rejectPhrases = toSet(
	"no", "n", "nope", "nah", "incorrect", "wrong", "skip", "none", "pass",
	"no thanks", "not that", "neither", "negative", "not really",
)

// Classify maps a free-text reply to an Answer. Vocabulary is checked first
// so that "Y" or "NO" are never mistaken for ticker symbols.
func Classify(answer string, r TickerResolver) Answer {
	text := strings.TrimSpace(answer)
	fields := answerFields(text)
	if len(fields) == 0 {
		return Answer{Kind: AnswerUnrecognized, Text: text}
	}

	lowered := make([]string, len(fields))
	for i, f := range fields {
		lowered[i] = strings.ToLower(f)
	}
	phrase := strings.Join(lowered, " ")

	switch {
	case acceptPhrases[phrase]:
		return Answer{Kind: AnswerAffirm, Text: text}
	case rejectPhrases[phrase]:
		return Answer{Kind: AnswerReject, Text: text}
	}

	rest := strings.Join(fields[1:], " ")
	switch {
	case acceptPhrases[lowered[0]]:
		res := r.Resolve(rest)
		return Answer{Kind: AnswerAffirm, Text: text, Tickers: res.Tickers}
	case rejectPhrases[lowered[0]]:
		// "no, Amazon" names the company the user actually meant.
		res := r.Resolve(rest)
		if len(res.Tickers) > 0 {
			return Answer{Kind: AnswerReplacement, Text: rest, Tickers: res.Tickers}
		}
		return Answer{Kind: AnswerReject, Text: text, Unresolved: res.Unresolved}
	}

	res := r.Resolve(text)
	if len(res.Tickers) > 0 {
		return Answer{Kind: AnswerReplacement, Text: text, Tickers: res.Tickers}
	}
	// A reply naming a company in plain lowercase words ("the iphone maker")
	// has no unresolved word of its own, so the whole reply is looked up.
	unresolved := res.Unresolved
	if len(unresolved) == 0 {
		unresolved = []string{text}
	}
	return Answer{Kind: AnswerUnrecognized, Text: text, Unresolved: unresolved}
}

// answerFields splits on whitespace and trims sentence punctuation from each
// word. Inner dots are kept for names like "amazon.com" or "BRK.B".
func answerFields(text string) []string {
	var fields []string
	for _, f := range strings.Fields(text) {
		f = strings.Trim(f, ",.!?;:\"()")
		if f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

func toSet(values ...string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
