package confirmation

import (
	"fmt"

	"github.com/ternarybob/tickerchat/internal/models"
)

const (
	unrecognizedPrefix = "I didn't quite understand. Please reply 'Yes' or 'No', or name a different company. "
)

// ConfirmationQuestion phrases the yes/no question for a candidate according
// to its confidence tier.
func ConfirmationQuestion(c models.CorrectionCandidate) string {
	label := candidateLabel(c)
	switch c.Confidence {
	case models.ConfidenceHigh:
		return fmt.Sprintf("Did you mean %s?", label)
	case models.ConfidenceLow:
		return fmt.Sprintf("Did you possibly mean %s? (I'm not very confident about this)", label)
	default:
		return fmt.Sprintf("Did you mean %s? (I'm moderately confident about this)", label)
	}
}

// ClarificationQuestion asks the user to name the company behind token.
func ClarificationQuestion(token string) string {
	return fmt.Sprintf("I couldn't recognize '%s'. Could you please provide the stock ticker or full company name? "+
		"For example: 'AAPL' or 'Apple Inc.' (or reply 'skip')", token)
}

// RejectedQuestion follows a "no" to a proposed correction.
func RejectedQuestion(token string) string {
	return fmt.Sprintf("Got it. Which company did you mean by '%s'? "+
		"Please provide the stock ticker or full company name (or reply 'skip').", token)
}

func notFoundPrefix(text string) string {
	return fmt.Sprintf("Sorry, I couldn't find a company matching '%s'. ", text)
}

func candidateLabel(c models.CorrectionCandidate) string {
	if c.CandidateName == "" || c.CandidateName == c.CandidateTicker {
		return c.CandidateTicker
	}
	return fmt.Sprintf("%s (%s)", c.CandidateName, c.CandidateTicker)
}
