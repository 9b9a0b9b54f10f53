package stt

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/stt-gateway/internal/metrics"
	"github.com/snarg/stt-gateway/internal/settings"
)

// Notifier is the user-visible notification sink. Every failed
// transcription is reported to it exactly once.
type Notifier interface {
	Notify(level, message string)
}

// EventPublishFunc is a callback for publishing transcription events.
type EventPublishFunc func(eventType string, payload map[string]any)

// ServiceOptions configures the transcription service.
type ServiceOptions struct {
	Registry     *Registry
	Notifier     Notifier
	PublishEvent EventPublishFunc
	Log          zerolog.Logger
}

// Service routes transcription calls to the configured providers,
// reports failures to the notification sink, and keeps outcome counters.
type Service struct {
	registry *Registry
	notifier Notifier
	publish  EventPublishFunc
	log      zerolog.Logger

	completed atomic.Int64
	failed    atomic.Int64
}

// Stats reports transcription outcome totals since startup.
type Stats struct {
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// NewService creates a transcription service.
func NewService(opts ServiceOptions) *Service {
	return &Service{
		registry: opts.Registry,
		notifier: opts.Notifier,
		publish:  opts.PublishEvent,
		log:      opts.Log,
	}
}

// Providers returns the registered providers in registration order.
func (s *Service) Providers() []Provider { return s.registry.All() }

// Provider returns the provider registered under name.
func (s *Service) Provider(name string) (Provider, bool) { return s.registry.Get(name) }

// Stats returns outcome totals since startup.
func (s *Service) Stats() Stats {
	return Stats{Completed: s.completed.Load(), Failed: s.failed.Load()}
}

// LoadSettings loads persisted settings for every provider from the
// store. Providers with no persisted entry fall back to their defaults.
func (s *Service) LoadSettings(ctx context.Context, store settings.Store) error {
	for _, p := range s.registry.All() {
		values, err := store.Load(ctx, p.Name())
		if err != nil {
			return fmt.Errorf("load settings for %s: %w", p.Name(), err)
		}
		p.LoadSettings(values)
		s.log.Debug().Str("provider", p.Name()).Int("keys", len(values)).Msg("settings loaded")
	}
	return nil
}

// ReloadSettings re-reads persisted settings for every provider. Errors
// are logged, not returned; a failed reload keeps the previous settings.
func (s *Service) ReloadSettings(ctx context.Context, store settings.Store) {
	for _, p := range s.registry.All() {
		values, err := store.Load(ctx, p.Name())
		if err != nil {
			s.log.Warn().Err(err).Str("provider", p.Name()).Msg("settings reload failed")
			continue
		}
		p.LoadSettings(values)
	}
	s.log.Info().Msg("provider settings reloaded")
}

// Transcribe resolves the provider and runs one transcription. On
// failure the error is reported once to the notification sink and
// returned to the caller carrying the same message; success is
// all-or-nothing, there is no retry and no partial transcript.
func (s *Service) Transcribe(ctx context.Context, providerName string, clip Clip) (Result, error) {
	p, ok := s.registry.Get(providerName)
	if !ok {
		return Result{}, &Error{
			Kind:     KindConfig,
			Provider: providerName,
			Message:  fmt.Sprintf("unknown provider %q", providerName),
			Err:      ErrUnknownProvider,
		}
	}

	start := time.Now()
	text, err := p.Transcribe(ctx, clip)
	elapsed := time.Since(start)

	if err != nil {
		s.failed.Add(1)
		kind := KindOf(err)
		metrics.TranscriptionsTotal.WithLabelValues(p.Name(), "failed").Inc()
		metrics.TranscriptionErrors.WithLabelValues(p.Name(), kind.String()).Inc()
		if s.notifier != nil {
			s.notifier.Notify("error", err.Error())
		}
		s.log.Warn().Err(err).
			Str("provider", p.Name()).
			Str("kind", kind.String()).
			Msg("transcription failed")
		return Result{}, err
	}

	s.completed.Add(1)
	metrics.TranscriptionsTotal.WithLabelValues(p.Name(), "ok").Inc()
	metrics.TranscriptionDuration.WithLabelValues(p.Name()).Observe(elapsed.Seconds())

	result := Result{
		Provider:   p.Name(),
		Model:      p.Model(),
		Text:       text,
		DurationMs: int(elapsed.Milliseconds()),
	}

	if s.publish != nil {
		s.publish("transcription", map[string]any{
			"provider":    result.Provider,
			"model":       result.Model,
			"chars":       len(result.Text),
			"duration_ms": result.DurationMs,
		})
	}

	s.log.Debug().
		Str("provider", result.Provider).
		Int("chars", len(result.Text)).
		Int("duration_ms", result.DurationMs).
		Msg("transcription complete")

	return result, nil
}
