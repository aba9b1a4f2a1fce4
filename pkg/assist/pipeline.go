// Package assist summarizes and explains post content through an ordered list
// of remote models, falling back to the next model when one fails.
package assist

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/abdhe/studyhub-assist/pkg/cleaner"
	"github.com/abdhe/studyhub-assist/pkg/config"
	"github.com/abdhe/studyhub-assist/pkg/inference"
	"github.com/abdhe/studyhub-assist/pkg/metrics"
	"github.com/abdhe/studyhub-assist/pkg/resilience"
	"github.com/abdhe/studyhub-assist/pkg/textproc"
)

// Fixed strings returned instead of errors.
const (
	SummaryUnavailable     = "Summary unavailable. All models failed."
	ExplanationUnavailable = "Explanation unavailable. All models failed."
	ConfigMissing          = "API configuration is missing"
	NothingToExplain       = "No text content to explain."
)

const (
	probeInput      = "Test API connection"
	maxConceptChars = 100
	keyTermCount    = 3
	shortTopicWords = 5
)

// Logger is satisfied by *log.Logger.
type Logger interface {
	Printf(format string, v ...any)
}

// ModelError describes why one model was abandoned.
type ModelError struct {
	Model   string
	Chunk   int // 0-based chunk that failed
	Failure inference.FailureKind
	Err     error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model %s: chunk %d: %s: %v", e.Model, e.Chunk, e.Failure, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

// Explanation is the cleaned explanation plus study aids derived from the input.
type Explanation struct {
	Text             string
	KeyTerms         []string
	RelatedQuestions []string
}

// Pipeline runs summaries, explanations and connectivity probes. It keeps no
// state between calls.
type Pipeline struct {
	cfg       config.Config
	transport inference.Transport
	cleaner   cleaner.Cleaner
	logger    Logger
}

// New creates a pipeline. A nil transport gets a Hugging Face client built
// from cfg; a nil logger logs to the standard logger.
func New(cfg config.Config, transport inference.Transport, logger Logger) *Pipeline {
	if logger == nil {
		logger = log.Default()
	}
	if transport == nil {
		transport = inference.NewClient(cfg.BaseURL, cfg.APIToken, PolicyFrom(cfg))
	}
	return &Pipeline{
		cfg:       cfg,
		transport: transport,
		cleaner:   cleaner.New(cfg.CleanerVariant),
		logger:    logger,
	}
}

// PolicyFrom builds the transport retry policy from cfg.
func PolicyFrom(cfg config.Config) resilience.Policy {
	p := resilience.DefaultPolicy()
	if cfg.MaxRetries >= 0 {
		p.MaxRetries = cfg.MaxRetries
	}
	if cfg.RetryBaseDelay > 0 {
		p.BaseDelay = cfg.RetryBaseDelay
	}
	if cfg.RetryMaxDelay > 0 {
		p.MaxDelay = cfg.RetryMaxDelay
	}
	return p
}

// ---------------------------------------------------------------------------
// Summary
// ---------------------------------------------------------------------------

// Summarize chunks text and summarizes every chunk with the first model that
// succeeds on all of them. Chunk outputs are joined with newlines.
//
// The only error is a configuration error, returned before any network call.
// When every model fails the result is SummaryUnavailable.
func (p *Pipeline) Summarize(ctx context.Context, text string, maxLength, minLength int) (string, error) {
	start := time.Now()
	metrics.ActiveRequests.Inc()
	defer metrics.ActiveRequests.Dec()

	if err := p.cfg.RequireSummary(); err != nil {
		p.logger.Printf("[assist] summary: %v", err)
		metrics.RecordRequest(metrics.OpSummary, metrics.OutcomeConfigError, start)
		return "", fmt.Errorf("assist: summary: %w", err)
	}

	if maxLength <= 0 {
		maxLength = p.cfg.SummaryMaxLength
	}
	if minLength <= 0 {
		minLength = p.cfg.SummaryMinLength
	}
	params := inference.Parameters{MaxLength: maxLength, MinLength: minLength}

	chunks := textproc.Segment(text, p.cfg.SummaryChunkChars)
	if len(chunks) == 0 {
		metrics.RecordRequest(metrics.OpSummary, metrics.OutcomeEmpty, start)
		return "", nil
	}

	for _, model := range p.cfg.SummaryModels {
		outputs, err := p.summarizeWith(ctx, model, chunks, params)
		if err != nil {
			p.logger.Printf("[assist] summary: %v", err)
			metrics.ModelAttemptsTotal.WithLabelValues(metrics.OpSummary, model, metrics.OutcomeFailure).Inc()
			if ctx.Err() != nil {
				break
			}
			continue
		}

		metrics.ModelAttemptsTotal.WithLabelValues(metrics.OpSummary, model, metrics.OutcomeSuccess).Inc()
		metrics.RecordRequest(metrics.OpSummary, metrics.OutcomeSuccess, start)
		return strings.Join(outputs, "\n"), nil
	}

	p.logger.Printf("[assist] summary: all %d models failed for %d chunks", len(p.cfg.SummaryModels), len(chunks))
	metrics.ExhaustionsTotal.WithLabelValues(metrics.OpSummary).Inc()
	metrics.RecordRequest(metrics.OpSummary, metrics.OutcomeExhausted, start)
	return SummaryUnavailable, nil
}

// summarizeWith sends chunks to model in order and stops at the first failure.
func (p *Pipeline) summarizeWith(ctx context.Context, model string, chunks []textproc.TextChunk, params inference.Parameters) ([]string, error) {
	outputs := make([]string, 0, len(chunks))

	for _, chunk := range chunks {
		if chunk.Index > 0 && p.cfg.InterChunkDelay > 0 {
			if err := wait(ctx, p.cfg.InterChunkDelay); err != nil {
				return nil, &ModelError{Model: model, Chunk: chunk.Index, Failure: inference.FailureCancelled, Err: err}
			}
		}

		res := p.transport.Post(ctx, model, inference.Request{
			Inputs:     chunk.Content,
			Parameters: &params,
		}, p.cfg.SummaryTimeout)
		metrics.RecordTransport(model, res.Attempts)

		if !res.OK() {
			metrics.ChunkRequestsTotal.WithLabelValues(model, metrics.OutcomeFailure).Inc()
			return nil, &ModelError{Model: model, Chunk: chunk.Index, Failure: res.Failure, Err: resultErr(res)}
		}
		metrics.ChunkRequestsTotal.WithLabelValues(model, metrics.OutcomeSuccess).Inc()
		outputs = append(outputs, res.Text)
	}

	return outputs, nil
}

// ---------------------------------------------------------------------------
// Explanation
// ---------------------------------------------------------------------------

// Explain returns a short cleaned explanation of text. It never fails; problems
// are reported through fixed strings.
func (p *Pipeline) Explain(ctx context.Context, text string) string {
	return p.ExplainDetailed(ctx, text).Text
}

// ExplainDetailed is Explain plus key terms and follow-up questions.
func (p *Pipeline) ExplainDetailed(ctx context.Context, text string) Explanation {
	start := time.Now()
	metrics.ActiveRequests.Inc()
	defer metrics.ActiveRequests.Dec()

	concept := Concept(text)
	if concept == "" {
		metrics.RecordRequest(metrics.OpExplain, metrics.OutcomeEmpty, start)
		return Explanation{Text: NothingToExplain}
	}

	if err := p.cfg.RequireExplain(); err != nil {
		p.logger.Printf("[assist] explain: %v", err)
		metrics.RecordRequest(metrics.OpExplain, metrics.OutcomeConfigError, start)
		return Explanation{Text: ConfigMissing}
	}

	out := Explanation{
		KeyTerms:         textproc.KeyTerms(text, keyTermCount),
		RelatedQuestions: textproc.RelatedQuestions(studyTopic(concept, text)),
	}

	req := inference.Request{
		Inputs: concept,
		Parameters: &inference.Parameters{
			MaxLength: p.cfg.ExplainMaxLength,
			MinLength: p.cfg.ExplainMinLength,
		},
		Options: inference.Options{WaitForModel: true},
	}

	for _, model := range p.cfg.ExplainModels {
		res := p.transport.Post(ctx, model, req, p.cfg.ExplainTimeout)
		metrics.RecordTransport(model, res.Attempts)
		if !res.OK() {
			p.logger.Printf("[assist] explain: %v", &ModelError{Model: model, Failure: res.Failure, Err: resultErr(res)})
			metrics.ModelAttemptsTotal.WithLabelValues(metrics.OpExplain, model, metrics.OutcomeFailure).Inc()
			if ctx.Err() != nil {
				break
			}
			continue
		}

		metrics.ModelAttemptsTotal.WithLabelValues(metrics.OpExplain, model, metrics.OutcomeSuccess).Inc()
		metrics.RecordRequest(metrics.OpExplain, metrics.OutcomeSuccess, start)
		out.Text = p.cleaner.Clean(res.Text, concept)
		return out
	}

	metrics.ExhaustionsTotal.WithLabelValues(metrics.OpExplain).Inc()
	metrics.RecordRequest(metrics.OpExplain, metrics.OutcomeExhausted, start)
	out.Text = ExplanationUnavailable
	return out
}

// Concept is the trimmed text, cut to 100 characters with a trailing "...".
func Concept(text string) string {
	concept := strings.TrimSpace(text)
	if r := []rune(concept); len(r) > maxConceptChars {
		concept = string(r[:maxConceptChars-3]) + "..."
	}
	return concept
}

// studyTopic picks the subject for follow-up questions: the concept itself
// when it is short, otherwise the most frequent key term.
func studyTopic(concept, text string) string {
	if len(strings.Fields(concept)) <= shortTopicWords {
		return strings.TrimSuffix(concept, ".")
	}
	if terms := textproc.KeyTerms(text, 1); len(terms) > 0 {
		return terms[0]
	}
	return ""
}

// ---------------------------------------------------------------------------
// Connectivity probe
// ---------------------------------------------------------------------------

// CheckConnection sends a tiny request to the probe model.
func (p *Pipeline) CheckConnection(ctx context.Context) (bool, string) {
	start := time.Now()
	var cerr *config.Error
	if err := p.cfg.RequireInference(); errors.As(err, &cerr) {
		metrics.RecordRequest(metrics.OpProbe, metrics.OutcomeConfigError, start)
		return false, cerr.Key + " is missing"
	}
	model := p.cfg.Probe()
	if model == "" {
		metrics.RecordRequest(metrics.OpProbe, metrics.OutcomeConfigError, start)
		return false, "HF_PROBE_MODEL is missing"
	}

	res := p.transport.Post(ctx, model, inference.Request{
		Inputs:     probeInput,
		Parameters: &inference.Parameters{MaxLength: 50, MinLength: 10},
	}, p.cfg.ProbeTimeout)
	metrics.RecordTransport(model, res.Attempts)

	switch res.Failure {
	case inference.FailureNone, inference.FailureEmpty:
		metrics.RecordRequest(metrics.OpProbe, metrics.OutcomeSuccess, start)
		return true, "API connection successful"
	case inference.FailureMalformed:
		metrics.RecordRequest(metrics.OpProbe, metrics.OutcomeFailure, start)
		return false, fmt.Sprintf("Invalid API response structure: %v", res.Err)
	default:
		metrics.RecordRequest(metrics.OpProbe, metrics.OutcomeFailure, start)
		return false, fmt.Sprintf("API connection error: %v", resultErr(res))
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func resultErr(res inference.Result) error {
	if res.Err != nil {
		return res.Err
	}
	return fmt.Errorf("inference failed: %s", res.Failure)
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
