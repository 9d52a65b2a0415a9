package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// Request is one rendered instruction sent to a provider.
type Request struct {
	Task   string
	System string
	Prompt string
}

// Provider is a single provider, model and credential combination.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// DecodeFunc parses a raw answer. A non-nil error rejects the answer.
type DecodeFunc func(text string) error

// Completer is the contract the enrichment components depend on.
type Completer interface {
	Complete(ctx context.Context, req Request, decode DecodeFunc) error
}

type PoolConfig struct {
	MaxConcurrency       int
	RateLimitMargin      time.Duration
	DefaultRetryAfter    time.Duration
	MaxRateLimitRetries  int
	ConnectionBackoff    time.Duration
	MaxConnectionRetries int
	RequestTimeout       time.Duration
	CallDelay            time.Duration
}

// Pool tries providers in order and fails over between them.
// All calls share one permit pool.
type Pool struct {
	config    PoolConfig
	providers []Provider
	permits   *semaphore.Weighted
	logger    zerolog.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

func NewPool(providers []Provider, config PoolConfig, logger zerolog.Logger) (*Pool, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("failed to create pool: no providers configured")
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 5
	}
	if config.RateLimitMargin == 0 {
		config.RateLimitMargin = time.Second
	}
	if config.DefaultRetryAfter == 0 {
		config.DefaultRetryAfter = time.Second
	}
	if config.ConnectionBackoff == 0 {
		config.ConnectionBackoff = time.Second
	}
	if config.MaxRateLimitRetries == 0 {
		config.MaxRateLimitRetries = 3
	}
	if config.MaxConnectionRetries == 0 {
		config.MaxConnectionRetries = 2
	}

	return &Pool{
		config:    config,
		providers: providers,
		permits:   semaphore.NewWeighted(int64(config.MaxConcurrency)),
		logger:    logger,
		sleep:     sleepCtx,
	}, nil
}

// Names lists the providers in failover order.
func (p *Pool) Names() []string {
	names := make([]string, len(p.providers))
	for i, provider := range p.providers {
		names[i] = provider.Name()
	}
	return names
}

type state int

const (
	stateTrying state = iota
	stateBackoff
	stateSuccess
	stateExhausted
)

func (s state) String() string {
	return [...]string{"trying", "backoff", "success", "exhausted"}[s]
}

// attempt is the per-request failover state machine.
type attempt struct {
	state            state
	index            int
	rateLimitRetries int
	connRetries      int
	wait             time.Duration
	lastErr          error
}

func (a *attempt) advance(total int) {
	a.index++
	a.rateLimitRetries = 0
	a.connRetries = 0
	if a.index >= total {
		a.state = stateExhausted
		return
	}
	a.state = stateTrying
}

func (a *attempt) backoff(d time.Duration) {
	a.wait = d
	a.state = stateBackoff
}

// Complete runs req against the providers in order until decode accepts an answer.
func (p *Pool) Complete(ctx context.Context, req Request, decode DecodeFunc) error {
	a := &attempt{state: stateTrying}

	for {
		switch a.state {
		case stateTrying:
			provider := p.providers[a.index]
			log := p.logger.With().Str("task", req.Task).Str("provider", provider.Name()).Logger()
			log.Debug().Msg("invoking provider")

			text, err := p.call(ctx, provider, req)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err == nil {
				if decodeErr := decode(text); decodeErr != nil {
					a.lastErr = fmt.Errorf("%s: %w", provider.Name(), decodeErr)
					log.Warn().Err(decodeErr).Msg("rejected provider output, trying next provider")
					a.advance(len(p.providers))
					continue
				}
				a.state = stateSuccess
				continue
			}

			a.lastErr = fmt.Errorf("%s: %w", provider.Name(), err)
			p.transition(a, err, log)

		case stateBackoff:
			if err := p.sleep(ctx, a.wait); err != nil {
				return err
			}
			a.state = stateTrying

		case stateSuccess:
			if p.config.CallDelay > 0 {
				if err := p.sleep(ctx, p.config.CallDelay); err != nil {
					return err
				}
			}
			return nil

		case stateExhausted:
			p.logger.Error().Str("task", req.Task).Err(a.lastErr).Msg("all providers failed")
			if a.lastErr == nil {
				return fmt.Errorf("%w: %s", ErrExhausted, req.Task)
			}
			return fmt.Errorf("%w: %s: %w", ErrExhausted, req.Task, a.lastErr)
		}
	}
}

func (p *Pool) transition(a *attempt, err error, log zerolog.Logger) {
	kind := Classify(err)
	switch kind {
	case KindRateLimit:
		if a.rateLimitRetries >= p.config.MaxRateLimitRetries {
			log.Warn().Err(err).Msg("rate limit persists, trying next provider")
			a.advance(len(p.providers))
			return
		}
		a.rateLimitRetries++
		hint, ok := RetryAfter(err)
		if !ok {
			hint = p.config.DefaultRetryAfter
		}
		wait := hint + p.config.RateLimitMargin
		log.Warn().Dur("wait", wait).Int("retry", a.rateLimitRetries).Msg("rate limited, backing off")
		a.backoff(wait)

	case KindConnection:
		if a.connRetries >= p.config.MaxConnectionRetries {
			log.Warn().Err(err).Msg("connection keeps failing, trying next provider")
			a.advance(len(p.providers))
			return
		}
		a.connRetries++
		log.Warn().Err(err).Int("retry", a.connRetries).Msg("connection error, retrying")
		a.backoff(p.config.ConnectionBackoff)

	default:
		log.Warn().Err(err).Str("kind", kind.String()).Msg("provider failed, trying next provider")
		a.advance(len(p.providers))
	}
}

func (p *Pool) call(ctx context.Context, provider Provider, req Request) (string, error) {
	if err := p.permits.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer p.permits.Release(1)

	if p.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.RequestTimeout)
		defer cancel()
	}

	return provider.Generate(ctx, req)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
