package validate

import (
	"fmt"
	"strings"
)

const maxQueryLen = 4000

// Query checks a chat or search query: required, non-blank, bounded.
func Query(v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("query is required")
	}
	if len(v) > maxQueryLen {
		return fmt.Errorf("query exceeds %d characters", maxQueryLen)
	}
	return nil
}

// ConversationID checks an id supplied in a path or body. Zero is allowed
// in chat requests (meaning: start a new conversation), negative never is.
func ConversationID(id int64) error {
	if id < 0 {
		return fmt.Errorf("conversationId must not be negative")
	}
	return nil
}

func NonEmpty(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}

// TopK bounds a caller-supplied neighbor count. Zero means "use default".
func TopK(k int) error {
	if k < 0 {
		return fmt.Errorf("topK must not be negative")
	}
	if k > 50 {
		return fmt.Errorf("topK exceeds 50")
	}
	return nil
}
