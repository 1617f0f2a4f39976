// Package chat keeps the conversation with the generative model
package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// Role identifies the speaker of a turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of the conversation
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Generator performs the remote generation call. The turns are the full
// ordered payload; the system prompt is already folded into the first user turn.
type Generator interface {
	Generate(ctx context.Context, turns []Turn) (string, error)
}

// Client holds one conversation history and talks to a Generator
type Client struct {
	gen    Generator
	policy RetryPolicy
	sleep  Sleeper

	// inflight serializes Ask calls; it is never taken by readers
	inflight sync.Mutex

	mu           sync.RWMutex
	history      []Turn
	systemPrompt string
	epoch        uint64
}

// Option configures a Client
type Option func(*Client)

// WithRetryPolicy replaces the default retry policy
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) {
		c.policy = p
	}
}

// WithSleeper replaces the backoff wait, mainly for tests
func WithSleeper(s Sleeper) Option {
	return func(c *Client) {
		c.sleep = s
	}
}

// NewClient creates a conversation client
func NewClient(gen Generator, systemPrompt string, opts ...Option) *Client {
	c := &Client{
		gen:          gen,
		policy:       DefaultRetryPolicy(),
		sleep:        sleepContext,
		systemPrompt: systemPrompt,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ask appends userText to the history, asks the model and appends its reply.
// Exactly one user turn is appended per call no matter how many attempts
// are made. Failed calls leave the user turn in place.
func (c *Client) Ask(ctx context.Context, userText string) (string, error) {
	c.inflight.Lock()
	defer c.inflight.Unlock()

	c.mu.Lock()
	c.history = append(c.history, Turn{Role: RoleUser, Text: userText})
	payload := buildPayload(c.systemPrompt, c.history)
	epoch := c.epoch
	c.mu.Unlock()

	maxAttempts := c.policy.attempts()
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		reply, err := c.gen.Generate(ctx, payload)
		if err == nil {
			reply = strings.TrimSpace(reply)
			c.appendReply(epoch, reply)
			log.Debug().
				Int("attempt", attempt).
				Int("reply_length", len(reply)).
				Msg("Received model reply")
			return reply, nil
		}

		lastErr = err
		class := Classify(err)
		if !c.policy.ShouldRetry(class) {
			log.Error().Err(err).Int("attempt", attempt).Msg("Generation failed")
			return "", fmt.Errorf("%w: %w", ErrProviderError, err)
		}
		if attempt == maxAttempts {
			break
		}

		wait := c.policy.Delay(attempt)
		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("retry_in", wait).
			Msg("Model unavailable, retrying")

		if err := c.sleep(ctx, wait); err != nil {
			return "", fmt.Errorf("failed to wait before retry: %w", err)
		}
	}

	return "", fmt.Errorf("%w after %d attempts: %w", ErrProviderUnavailable, maxAttempts, lastErr)
}

func (c *Client) appendReply(epoch uint64, reply string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if epoch != c.epoch {
		log.Debug().Msg("Conversation was reset while waiting for a reply, dropping it from history")
		return
	}
	c.history = append(c.history, Turn{Role: RoleAssistant, Text: reply})
}

// Reset clears the history and installs a new system prompt
func (c *Client) Reset(systemPrompt string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.history = nil
	c.systemPrompt = systemPrompt
	c.epoch++
}

// History returns a copy of the conversation so far
func (c *Client) History() []Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Turn, len(c.history))
	copy(out, c.history)
	return out
}

// SystemPrompt returns the active system prompt
func (c *Client) SystemPrompt() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.systemPrompt
}

// buildPayload copies the history and prefixes the first user turn with the
// system prompt
func buildPayload(systemPrompt string, history []Turn) []Turn {
	payload := make([]Turn, len(history))
	copy(payload, history)

	if systemPrompt == "" {
		return payload
	}
	for i := range payload {
		if payload[i].Role == RoleUser {
			payload[i].Text = systemPrompt + "\n\n" + payload[i].Text
			break
		}
	}
	return payload
}
