package assist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/abdhe/studyhub-assist/pkg/config"
	"github.com/abdhe/studyhub-assist/pkg/inference"
)

// fakeTransport records every call and answers through respond.
type fakeTransport struct {
	mu      sync.Mutex
	calls   []fakeCall
	respond func(model, inputs string) inference.Result
}

type fakeCall struct {
	Model   string
	Inputs  string
	Timeout time.Duration
	Req     inference.Request
}

func (f *fakeTransport) Post(_ context.Context, model string, req inference.Request, timeout time.Duration) inference.Result {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{Model: model, Inputs: req.Inputs, Timeout: timeout, Req: req})
	f.mu.Unlock()
	return f.respond(model, req.Inputs)
}

func (f *fakeTransport) callsFor(model string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if c.Model == model {
			out = append(out, c.Inputs)
		}
	}
	return out
}

func ok(text string) inference.Result {
	return inference.Result{Text: text, Status: http.StatusOK, Attempts: 1}
}

func failed(kind inference.FailureKind) inference.Result {
	return inference.Result{Attempts: 4, Failure: kind, Err: fmt.Errorf("fake %s failure", kind)}
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.APIToken = "hf_test"
	cfg.SummaryModels = []string{"model/a", "model/b"}
	cfg.ExplainModels = []string{"explain/a", "explain/b"}
	cfg.SummaryChunkChars = 20
	cfg.InterChunkDelay = 0
	return cfg
}

func quietLogger() *log.Logger {
	return log.New(&bytes.Buffer{}, "", 0)
}

// fiveChunks yields one chunk per sentence with SummaryChunkChars = 20.
const fiveChunks = "Chunk one here. Chunk two here. Chunk 3 is here. Chunk four here. Chunk five here."

func TestSummarize_FailFastThenFallback(t *testing.T) {
	t.Parallel()

	ft := &fakeTransport{respond: func(model, inputs string) inference.Result {
		if model == "model/a" && inputs == "Chunk two here." {
			return failed(inference.FailureStatus)
		}
		return ok(model + ":" + inputs)
	}}

	got, err := New(testConfig(), ft, quietLogger()).Summarize(context.Background(), fiveChunks, 0, 0)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}

	if a := ft.callsFor("model/a"); !reflect.DeepEqual(a, []string{"Chunk one here.", "Chunk two here."}) {
		t.Errorf("model/a saw %q, want only chunks 1-2", a)
	}
	b := ft.callsFor("model/b")
	if len(b) != 5 || b[0] != "Chunk one here." {
		t.Errorf("model/b saw %q, want all 5 chunks from the first", b)
	}

	want := strings.Join([]string{
		"model/b:Chunk one here.",
		"model/b:Chunk two here.",
		"model/b:Chunk 3 is here.",
		"model/b:Chunk four here.",
		"model/b:Chunk five here.",
	}, "\n")
	if got != want {
		t.Errorf("Summarize = %q, want %q", got, want)
	}
}

func TestSummarize_FirstModelWins(t *testing.T) {
	t.Parallel()

	ft := &fakeTransport{respond: func(model, inputs string) inference.Result {
		return ok("S")
	}}

	got, err := New(testConfig(), ft, quietLogger()).Summarize(context.Background(), fiveChunks, 120, 30)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got != "S\nS\nS\nS\nS" {
		t.Errorf("Summarize = %q", got)
	}
	if n := len(ft.callsFor("model/b")); n != 0 {
		t.Errorf("fallback model called %d times", n)
	}
	first := ft.calls[0]
	if first.Req.Parameters == nil || first.Req.Parameters.MaxLength != 120 || first.Req.Parameters.MinLength != 30 {
		t.Errorf("unexpected parameters %+v", first.Req.Parameters)
	}
	if first.Timeout != 60*time.Second {
		t.Errorf("chunk timeout = %v, want 60s", first.Timeout)
	}
}

func TestSummarize_AllModelsFail(t *testing.T) {
	t.Parallel()

	ft := &fakeTransport{respond: func(model, inputs string) inference.Result {
		return failed(inference.FailureTransient)
	}}

	got, err := New(testConfig(), ft, quietLogger()).Summarize(context.Background(), fiveChunks, 0, 0)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != "Summary unavailable. All models failed." {
		t.Errorf("Summarize = %q", got)
	}
	if n := len(ft.calls); n != 2 {
		t.Errorf("transport calls = %d, want one per model", n)
	}
}

func TestSummarize_MissingTokenMakesNoCalls(t *testing.T) {
	t.Parallel()

	ft := &fakeTransport{respond: func(model, inputs string) inference.Result {
		t.Error("transport must not be called")
		return ok("x")
	}}
	cfg := testConfig()
	cfg.APIToken = ""

	_, err := New(cfg, ft, quietLogger()).Summarize(context.Background(), fiveChunks, 0, 0)
	if !errors.Is(err, config.ErrMissing) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	var cerr *config.Error
	if !errors.As(err, &cerr) || cerr.Key != "HF_API_TOKEN" {
		t.Errorf("expected HF_API_TOKEN error, got %v", err)
	}
	if len(ft.calls) != 0 {
		t.Errorf("transport called %d times", len(ft.calls))
	}
}

func TestSummarize_MissingModels(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.SummaryModels = nil
	_, err := New(cfg, &fakeTransport{}, quietLogger()).Summarize(context.Background(), "Text.", 0, 0)
	if !errors.Is(err, config.ErrMissing) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestSummarize_BlankText(t *testing.T) {
	t.Parallel()

	ft := &fakeTransport{}
	got, err := New(testConfig(), ft, quietLogger()).Summarize(context.Background(), "  \n ", 0, 0)
	if err != nil || got != "" {
		t.Errorf("Summarize = (%q, %v), want empty", got, err)
	}
	if len(ft.calls) != 0 {
		t.Errorf("transport called %d times", len(ft.calls))
	}
}

func TestSummarize_InterChunkDelayHonoursCancellation(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.InterChunkDelay = time.Hour
	ft := &fakeTransport{respond: func(model, inputs string) inference.Result { return ok("S") }}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	got, err := New(cfg, ft, quietLogger()).Summarize(ctx, fiveChunks, 0, 0)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got != SummaryUnavailable {
		t.Errorf("Summarize = %q, want sentinel", got)
	}
	if len(ft.calls) != 1 {
		t.Errorf("transport calls = %d, want 1 before the delay was cut short", len(ft.calls))
	}
}

func TestExplain_FallsBackAndCleans(t *testing.T) {
	t.Parallel()

	ft := &fakeTransport{respond: func(model, inputs string) inference.Result {
		if model == "explain/a" {
			return failed(inference.FailureEmpty)
		}
		return ok("Recursion is when a function solves a problem by calling smaller copies of itself. " +
			"Visit www.example.com for more. " +
			"Each recursive step must move toward a base case that stops the process.")
	}}
	cfg := testConfig()
	cfg.CleanerVariant = "basic"

	got := New(cfg, ft, quietLogger()).ExplainDetailed(context.Background(), "recursion")
	want := "Recursion is when a function solves a problem by calling smaller copies of itself. Each recursive step must move toward a base case that stops the process."
	if got.Text != want {
		t.Errorf("Explain = %q, want %q", got.Text, want)
	}
	if len(ft.calls) != 2 {
		t.Errorf("transport calls = %d, want 2", len(ft.calls))
	}
	if ft.calls[0].Timeout != 40*time.Second || !ft.calls[0].Req.Options.WaitForModel {
		t.Errorf("unexpected explain request %+v", ft.calls[0])
	}
	if !reflect.DeepEqual(got.KeyTerms, []string{"recursion"}) {
		t.Errorf("KeyTerms = %q", got.KeyTerms)
	}
	if len(got.RelatedQuestions) != 2 || got.RelatedQuestions[1] != "How is recursion used in practice?" {
		t.Errorf("RelatedQuestions = %q", got.RelatedQuestions)
	}
}

func TestExplain_ShortOutputUsesGeneric(t *testing.T) {
	t.Parallel()

	ft := &fakeTransport{respond: func(model, inputs string) inference.Result {
		return ok("It is quite a thing.")
	}}

	got := New(testConfig(), ft, quietLogger()).Explain(context.Background(), "recursion")
	if !strings.HasPrefix(got, "Recursion") || len(strings.Fields(got)) < 12 {
		t.Errorf("Explain = %q", got)
	}
}

func TestExplain_AllModelsFail(t *testing.T) {
	t.Parallel()

	ft := &fakeTransport{respond: func(model, inputs string) inference.Result {
		return failed(inference.FailureStatus)
	}}
	if got := New(testConfig(), ft, quietLogger()).Explain(context.Background(), "heaps"); got != ExplanationUnavailable {
		t.Errorf("Explain = %q", got)
	}
}

func TestExplain_MissingConfig(t *testing.T) {
	t.Parallel()

	ft := &fakeTransport{}
	cfg := testConfig()
	cfg.APIToken = ""
	if got := New(cfg, ft, quietLogger()).Explain(context.Background(), "heaps"); got != ConfigMissing {
		t.Errorf("Explain = %q", got)
	}
	if got := New(testConfig(), ft, quietLogger()).Explain(context.Background(), "   "); got != NothingToExplain {
		t.Errorf("Explain(blank) = %q", got)
	}
	if len(ft.calls) != 0 {
		t.Errorf("transport called %d times", len(ft.calls))
	}
}

func TestConcept_Truncates(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("a", 150)
	got := Concept("  " + long + "  ")
	if len(got) != 100 || !strings.HasSuffix(got, "...") {
		t.Errorf("Concept length = %d (%q)", len(got), got)
	}
	if Concept(" short ") != "short" {
		t.Errorf("Concept(short) = %q", Concept(" short "))
	}
}

func TestCheckConnection(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.APIToken = ""
	okFlag, msg := New(cfg, &fakeTransport{}, quietLogger()).CheckConnection(context.Background())
	if okFlag || msg != "HF_API_TOKEN is missing" {
		t.Errorf("missing token: (%v, %q)", okFlag, msg)
	}

	ft := &fakeTransport{respond: func(model, inputs string) inference.Result { return ok("fine") }}
	okFlag, msg = New(testConfig(), ft, quietLogger()).CheckConnection(context.Background())
	if !okFlag || msg != "API connection successful" {
		t.Errorf("success: (%v, %q)", okFlag, msg)
	}
	if ft.calls[0].Model != "model/a" || ft.calls[0].Inputs != "Test API connection" || ft.calls[0].Timeout != 10*time.Second {
		t.Errorf("unexpected probe call %+v", ft.calls[0])
	}

	ft = &fakeTransport{respond: func(model, inputs string) inference.Result { return failed(inference.FailureTransient) }}
	okFlag, msg = New(testConfig(), ft, quietLogger()).CheckConnection(context.Background())
	if okFlag || !strings.HasPrefix(msg, "API connection error:") {
		t.Errorf("failure: (%v, %q)", okFlag, msg)
	}

	ft = &fakeTransport{respond: func(model, inputs string) inference.Result { return failed(inference.FailureMalformed) }}
	okFlag, msg = New(testConfig(), ft, quietLogger()).CheckConnection(context.Background())
	if okFlag || !strings.HasPrefix(msg, "Invalid API response structure:") {
		t.Errorf("malformed: (%v, %q)", okFlag, msg)
	}
}

func TestGenerateSummary_AgainstHTTPServer(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/model/a" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Write([]byte(`[{"summary_text":"from b"}]`)) //nolint:errcheck
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.BaseURL = srv.URL
	cfg.RetryBaseDelay = time.Millisecond

	got, err := GenerateSummary(context.Background(), cfg, "One short sentence.", 0, 0)
	if err != nil {
		t.Fatalf("GenerateSummary: %v", err)
	}
	if got != "from b" {
		t.Errorf("GenerateSummary = %q", got)
	}
}
