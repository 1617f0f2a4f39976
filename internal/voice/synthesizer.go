// Package voice turns reply text into audio and plays it
package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/daikw/judy/internal/voice/provider"
	"github.com/rs/zerolog/log"
)

// DefaultSpeed is the speaking rate used when the caller passes zero
const DefaultSpeed = 0.9

// ErrSynthesis wraps every failure to produce audio
var ErrSynthesis = errors.New("speech synthesis failed")

// Speech is one synthesized utterance
type Speech struct {
	Audio    []byte
	Format   string
	Duration time.Duration
}

// DurationMillis returns the playback length in milliseconds
func (s *Speech) DurationMillis() int64 {
	return s.Duration.Milliseconds()
}

// Synthesizer adapts a TTS provider to the reply pipeline
type Synthesizer struct {
	provider provider.Provider
	defaults provider.SynthesizeOptions
}

// NewSynthesizer creates a synthesizer. defaults carries the model and voice
// settings applied to every request; Voice and Speed are set per call.
func NewSynthesizer(p provider.Provider, defaults provider.SynthesizeOptions) *Synthesizer {
	if defaults.Format == "" {
		defaults.Format = "mp3"
	}
	return &Synthesizer{provider: p, defaults: defaults}
}

// Provider returns the underlying provider
func (s *Synthesizer) Provider() provider.Provider {
	return s.provider
}

// Synthesize renders text with voiceID. A speed of zero or less selects
// DefaultSpeed.
func (s *Synthesizer) Synthesize(ctx context.Context, text, voiceID string, speed float64) (*Speech, error) {
	if speed <= 0 {
		speed = DefaultSpeed
	}

	opts := s.defaults
	opts.Speed = speed
	if voiceID != "" {
		opts.Voice = voiceID
	}

	start := time.Now()
	stream, err := s.provider.Synthesize(ctx, text, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSynthesis, s.provider.Name(), err)
	}
	defer stream.Close()

	audio, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read audio stream: %w", ErrSynthesis, err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: %s returned no audio", ErrSynthesis, s.provider.Name())
	}

	format := opts.Format
	if r, ok := s.provider.(provider.FormatReporter); ok {
		format = r.OutputFormat(opts.Format)
	}

	duration, fromHeader := EstimateDuration(format, audio)
	log.Debug().
		Str("provider", s.provider.Name()).
		Str("voice", opts.Voice).
		Str("format", format).
		Int("bytes", len(audio)).
		Dur("duration", duration).
		Bool("from_header", fromHeader).
		Dur("elapsed", time.Since(start)).
		Msg("Synthesized speech")

	return &Speech{
		Audio:    audio,
		Format:   format,
		Duration: duration,
	}, nil
}
