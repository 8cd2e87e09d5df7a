package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"studentcare-chat/internal/domain"
)

// Completer is the call surface shared by Client and Breaker.
type Completer interface {
	Complete(ctx context.Context, in domain.CompletionRequest) (domain.Completion, error)
}

// Breaker fails fast while the provider is down. Only outages count as
// failures: client errors such as 401 or 429 leave the circuit closed.
type Breaker struct {
	next Completer
	cb   *gobreaker.CircuitBreaker
}

func NewBreaker(next Completer, failures uint32, openTimeout time.Duration) (*Breaker, error) {
	if next == nil {
		return nil, errors.New("openai: breaker target must not be nil")
	}
	if failures == 0 {
		failures = 5
	}
	if openTimeout <= 0 {
		openTimeout = 60 * time.Second
	}
	settings := gobreaker.Settings{
		Name:        "openai-chat-completions",
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !isOutage(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	}
	return &Breaker{next: next, cb: gobreaker.NewCircuitBreaker(settings)}, nil
}

func (b *Breaker) Complete(ctx context.Context, in domain.CompletionRequest) (domain.Completion, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Complete(ctx, in)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return domain.Completion{}, &ProviderError{
			StatusCode: 503,
			Code:       "service_unavailable",
			Message:    fmt.Sprintf("circuit breaker %s", b.cb.State()),
		}
	}
	if err != nil {
		return domain.Completion{}, err
	}
	return res.(domain.Completion), nil
}

// State exposes the breaker state for logging and tests.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func isOutage(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return true
	}
	var pe *ProviderError
	return errors.As(err, &pe) && pe.StatusCode >= 500
}
