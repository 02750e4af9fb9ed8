package common

import (
	"strings"

	"github.com/google/uuid"
)

const (
	conversationPrefix = "conv_"
	analysisPrefix     = "ana_"
)

// NewConversationID generates a conversation ID. Format: conv_<uuid>
func NewConversationID() string {
	return conversationPrefix + uuid.New().String()
}

// NewAnalysisID generates an analysis request ID. Format: ana_<uuid>
func NewAnalysisID() string {
	return analysisPrefix + uuid.New().String()
}

// IsConversationID reports whether id has the conversation format.
func IsConversationID(id string) bool {
	return hasUUIDSuffix(id, conversationPrefix)
}

// IsAnalysisID reports whether id has the analysis format.
func IsAnalysisID(id string) bool {
	return hasUUIDSuffix(id, analysisPrefix)
}

func hasUUIDSuffix(id, prefix string) bool {
	if !strings.HasPrefix(id, prefix) {
		return false
	}
	_, err := uuid.Parse(strings.TrimPrefix(id, prefix))
	return err == nil
}
