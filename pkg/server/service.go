// Package server exposes the assist pipeline to the forum over gRPC and
// holds the logic shared with the HTTP API.
package server

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abdhe/studyhub-assist/pkg/assist"
	"github.com/abdhe/studyhub-assist/pkg/metrics"
	"github.com/abdhe/studyhub-assist/pkg/pdftext"
	"github.com/abdhe/studyhub-assist/pkg/store"
)

var (
	// ErrNoText is returned when a request carries no text to work on.
	ErrNoText = errors.New("text is required")
	// ErrNoPDF is returned when a PDF summary is requested without a document.
	ErrNoPDF = errors.New("pdf is required")
)

// Assistant is the pipeline surface the service needs. *assist.Pipeline implements it.
type Assistant interface {
	Summarize(ctx context.Context, text string, maxLength, minLength int) (string, error)
	ExplainDetailed(ctx context.Context, text string) assist.Explanation
	CheckConnection(ctx context.Context) (bool, string)
}

// SummaryStore persists finished summaries. *store.SummaryStore implements it.
type SummaryStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, summary string) error
}

// Logger is satisfied by *log.Logger.
type Logger interface {
	Printf(format string, v ...any)
}

// Config holds the service dependencies. Store may be nil.
type Config struct {
	Assistant    Assistant
	Store        SummaryStore
	Logger       Logger
	StoreTimeout time.Duration
}

// SummaryResult is the outcome of a summary request.
type SummaryResult struct {
	RequestID string
	Summary   string
	Cached    bool
}

// ExplanationResult is the outcome of an explanation request.
type ExplanationResult struct {
	RequestID string
	assist.Explanation
}

// Service applies request IDs, the summary store and input checks around the pipeline.
type Service struct {
	assistant    Assistant
	store        SummaryStore
	logger       Logger
	storeTimeout time.Duration
}

// NewService creates a service.
func NewService(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 2 * time.Second
	}
	return &Service{
		assistant:    cfg.Assistant,
		store:        cfg.Store,
		logger:       cfg.Logger,
		storeTimeout: cfg.StoreTimeout,
	}
}

// Summarize returns a stored summary when one exists, otherwise runs the
// pipeline and stores a real (non-sentinel) result.
func (s *Service) Summarize(ctx context.Context, text string, maxLength, minLength int) (SummaryResult, error) {
	res := SummaryResult{RequestID: uuid.NewString()}
	if strings.TrimSpace(text) == "" {
		return res, ErrNoText
	}
	return s.summarize(ctx, res, text, maxLength, minLength)
}

// SummarizePDF extracts the text of a PDF and summarizes it like Summarize.
// Extraction failures wrap pdftext.ErrUnreadable or pdftext.ErrNoText.
func (s *Service) SummarizePDF(ctx context.Context, document []byte, maxLength, minLength int) (SummaryResult, error) {
	res := SummaryResult{RequestID: uuid.NewString()}
	if len(document) == 0 {
		return res, ErrNoPDF
	}

	text, err := pdftext.ExtractBytes(document)
	if err != nil {
		s.logger.Printf("[server] %s pdf extract (%d bytes): %v", res.RequestID, len(document), err)
		return res, err
	}
	s.logger.Printf("[server] %s pdf extract: %d chars", res.RequestID, len(text))
	return s.summarize(ctx, res, text, maxLength, minLength)
}

func (s *Service) summarize(ctx context.Context, res SummaryResult, text string, maxLength, minLength int) (SummaryResult, error) {
	key := store.Key(text, maxLength, minLength)
	if summary, ok := s.lookup(ctx, res.RequestID, key); ok {
		metrics.RequestsTotal.WithLabelValues(metrics.OpSummary, metrics.OutcomeStored).Inc()
		res.Summary = summary
		res.Cached = true
		return res, nil
	}

	summary, err := s.assistant.Summarize(ctx, text, maxLength, minLength)
	if err != nil {
		s.logger.Printf("[server] %s summary: %v", res.RequestID, err)
		return res, err
	}
	res.Summary = summary

	if s.store != nil && summary != "" && summary != assist.SummaryUnavailable {
		sctx, cancel := context.WithTimeout(context.Background(), s.storeTimeout)
		if err := s.store.Set(sctx, key, summary); err != nil {
			s.logger.Printf("[server] %s summary store set: %v", res.RequestID, err)
		}
		cancel()
	}
	return res, nil
}

func (s *Service) lookup(ctx context.Context, requestID, key string) (string, bool) {
	if s.store == nil {
		return "", false
	}
	lctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	summary, found, err := s.store.Get(lctx, key)
	switch {
	case err != nil:
		s.logger.Printf("[server] %s summary store get (treating as miss): %v", requestID, err)
		metrics.SummaryStoreLookupsTotal.WithLabelValues("error").Inc()
		return "", false
	case !found:
		metrics.SummaryStoreLookupsTotal.WithLabelValues("miss").Inc()
		return "", false
	default:
		metrics.SummaryStoreLookupsTotal.WithLabelValues("hit").Inc()
		return summary, true
	}
}

// Explain runs the explanation pipeline.
func (s *Service) Explain(ctx context.Context, text string) (ExplanationResult, error) {
	res := ExplanationResult{RequestID: uuid.NewString()}
	if strings.TrimSpace(text) == "" {
		return res, ErrNoText
	}
	res.Explanation = s.assistant.ExplainDetailed(ctx, text)
	return res, nil
}

// CheckConnection runs the connectivity probe.
func (s *Service) CheckConnection(ctx context.Context) (bool, string) {
	return s.assistant.CheckConnection(ctx)
}
