package dust

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUserRejected marks an explicit refusal by the signer. Retrying it
	// is pointless, so the engine aborts the current batch immediately.
	ErrUserRejected = errors.New("dust: user rejected transaction")

	// ErrConfirmationTimeout marks a submitted transaction that never
	// reached confirmation within the deadline. Retryable.
	ErrConfirmationTimeout = errors.New("dust: confirmation timed out")
)

// ProviderError wraps a total failure to enumerate holdings.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// SubmissionError wraps a failed sign-and-send attempt. Retryable up to the
// policy limit.
type SubmissionError struct {
	Attempt int
	Err     error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission attempt %d: %v", e.Attempt, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// Retryable reports whether the engine may attempt the operation again.
func Retryable(err error) bool {
	return err != nil && !errors.Is(err, ErrUserRejected)
}

func isRateLimited(msg string) bool {
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "exceeded")
}

func isNetworkIssue(msg string) bool {
	return strings.Contains(msg, "network") ||
		strings.Contains(msg, "connection") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "refused") ||
		strings.Contains(msg, "socket")
}

// FriendlyMessage 将底层错误翻译成可操作的用户提示, 不透传原始传输错误文本。
func FriendlyMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrUserRejected) {
		return "Transaction was rejected by the wallet."
	}
	if errors.Is(err, ErrConfirmationTimeout) {
		return "The network did not confirm the transaction in time. Please try again."
	}

	msg := strings.ToLower(err.Error())
	switch {
	case isRateLimited(msg):
		return "RPC is busy. Please wait a moment and try again."
	case isNetworkIssue(msg):
		return "Network connection issue. Please check your internet."
	case strings.Contains(msg, "insufficient"):
		return "Insufficient funds for transaction fees."
	case strings.Contains(msg, "rejected"):
		return "Transaction was rejected by the wallet."
	default:
		return "An error occurred. Please try again."
	}
}
