package notes

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sessionably/practice/internal/platform/apperr"
	"github.com/sessionably/practice/internal/platform/llm"
	"github.com/sessionably/practice/internal/platform/metrics"
)

type Service struct {
	gen    llm.Generator
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(gen llm.Generator, logger zerolog.Logger) *Service {
	return &Service{
		gen:    gen,
		logger: logger.With().Str("component", "notes").Logger(),
		now:    time.Now,
	}
}

func (s *Service) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	if strings.TrimSpace(req.Transcript) == "" {
		return nil, apperr.Validation("transcript", "Transcript is required and cannot be empty")
	}
	if req.Duration < 0 {
		return nil, apperr.Validation("duration", "duration must be positive")
	}
	if req.ClientName == "" {
		req.ClientName = defaultClientName
	}
	if req.SessionDate == "" {
		req.SessionDate = s.now().Format("2006-01-02")
	}
	if req.SessionType == "" {
		req.SessionType = defaultSessionType
	}

	start := time.Now()
	out, err := s.gen.Generate(ctx, Prompt(req))
	if errors.Is(err, llm.ErrNotConfigured) {
		metrics.NotesGenerated.WithLabelValues("unconfigured").Inc()
		return nil, apperr.Unavailable("note generation is not configured", err)
	}
	if err != nil {
		metrics.NotesGenerated.WithLabelValues("failed").Inc()
		s.logger.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("note generation failed")
		return nil, apperr.Upstream("note generation failed", err)
	}
	metrics.NotesGenerated.WithLabelValues("generated").Inc()
	s.logger.Info().Str("model", out.Model).Int("output_tokens", out.Usage.OutputTokens).
		Dur("elapsed", time.Since(start)).Msg("note generated")

	return &GenerateResponse{
		Note:  out.Text,
		Model: out.Model,
		Usage: out.Usage,
		Metadata: Metadata{
			GeneratedAt: s.now().UTC(),
			ClientName:  req.ClientName,
			SessionDate: req.SessionDate,
		},
	}, nil
}
