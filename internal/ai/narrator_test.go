package ai

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeRuntime struct {
	mu       sync.Mutex
	prompts  []string
	reply    string
	err      error
	delay    time.Duration
	inFlight int32
	peak     int32
}

func (f *fakeRuntime) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		p := atomic.LoadInt32(&f.peak)
		if n <= p || atomic.CompareAndSwapInt32(&f.peak, p, n) {
			break
		}
	}
	f.mu.Lock()
	f.prompts = append(f.prompts, req.Messages[0].Content)
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	reply := f.reply
	if reply == "echo" {
		reply = req.Messages[0].Content
	}
	return &GenerateResponse{Choices: []Choice{{Message: Message{Role: "assistant", Content: reply}}}}, nil
}

func TestNarratorFallbacks(t *testing.T) {
	ctx := context.Background()

	var nilNarrator *Narrator
	if got := nilNarrator.Explain(ctx, "c", "s"); got != MissingKeyInsight {
		t.Fatalf("nil narrator: %q", got)
	}
	if got := NewNarrator(nil, NarratorConfig{}).Explain(ctx, "c", "s"); got != MissingKeyInsight {
		t.Fatalf("no runtime: %q", got)
	}
	missing := &fakeRuntime{err: ErrMissingCredential}
	if got := NewNarrator(missing, NarratorConfig{}).Explain(ctx, "c", "s"); got != MissingKeyInsight {
		t.Fatalf("missing credential: %q", got)
	}
	failing := &fakeRuntime{err: &ProviderError{APIError: &APIError{StatusCode: 500}, Kind: FailureUpstream}}
	if got := NewNarrator(failing, NarratorConfig{}).Explain(ctx, "c", "s"); got != FailedInsight {
		t.Fatalf("provider error: %q", got)
	}
	blank := &fakeRuntime{reply: "  \n"}
	if got := NewNarrator(blank, NarratorConfig{}).Explain(ctx, "c", "s"); got != EmptyInsight {
		t.Fatalf("empty completion: %q", got)
	}
}

func TestNarratorExplain(t *testing.T) {
	rt := &fakeRuntime{reply: "  The mean salary is high.  "}
	n := NewNarrator(rt, NarratorConfig{Model: "m"})
	got := n.Explain(context.Background(), "Overall dataset statistics", "Value: 85000.")
	if got != "The mean salary is high." {
		t.Fatalf("unexpected narrative %q", got)
	}
	if len(rt.prompts) != 1 {
		t.Fatalf("expected one call, got %d", len(rt.prompts))
	}
	p := rt.prompts[0]
	for _, want := range []string{"Senior Data Scientist", "Context: Overall dataset statistics", "Data/Stats: Value: 85000.", "under 100 words"} {
		if !strings.Contains(p, want) {
			t.Fatalf("prompt missing %q:\n%s", want, p)
		}
	}
}

func TestNarratorTruncatesSummary(t *testing.T) {
	rt := &fakeRuntime{reply: "ok"}
	n := NewNarrator(rt, NarratorConfig{SummaryTokenLimit: 10})
	n.Explain(context.Background(), "c", strings.Repeat("word ", 200))
	if strings.Count(rt.prompts[0], "word") > 10 {
		t.Fatalf("summary not truncated:\n%s", rt.prompts[0])
	}
}

func TestExplainBatchBoundedAndOrdered(t *testing.T) {
	rt := &fakeRuntime{reply: "echo", delay: 20 * time.Millisecond}
	n := NewNarrator(rt, NarratorConfig{Concurrency: 2})
	reqs := make([]Request, 6)
	for i := range reqs {
		reqs[i] = Request{Context: "section", Summary: string(rune('A' + i))}
	}
	out := n.ExplainBatch(context.Background(), reqs)
	if len(out) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(out))
	}
	for i, s := range out {
		if !strings.Contains(s, "Data/Stats: "+string(rune('A'+i))) {
			t.Fatalf("result %d out of order: %q", i, s)
		}
	}
	if peak := atomic.LoadInt32(&rt.peak); peak > 2 {
		t.Fatalf("concurrency limit exceeded: %d", peak)
	}
}

func TestExplainBatchFailsSoft(t *testing.T) {
	n := NewNarrator(&fakeRuntime{err: errors.New("boom")}, NarratorConfig{})
	out := n.ExplainBatch(context.Background(), []Request{{Context: "a"}, {Context: "b"}})
	for _, s := range out {
		if s != FailedInsight {
			t.Fatalf("expected fallback, got %q", s)
		}
	}
	var nilNarrator *Narrator
	if got := nilNarrator.ExplainBatch(context.Background(), []Request{{}}); got[0] != MissingKeyInsight {
		t.Fatalf("nil narrator batch: %v", got)
	}
}
