package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/statlab-cli/internal/utils"
)

// Fallback narratives returned instead of errors.
const (
	MissingKeyInsight  = "Enter a valid API Key to get AI-powered statistical insights."
	FailedInsight      = "Unable to generate insights at this time."
	EmptyInsight       = "No insight generated."
	defaultSummaryCap  = 1500
	defaultConcurrency = 3
)

// NarratorConfig tunes the completion request.
type NarratorConfig struct {
	Model       string
	MaxTokens   int
	Temperature float64
	// SummaryTokenLimit caps the statistics text sent to the model.
	SummaryTokenLimit int
	// Concurrency bounds ExplainBatch; 0 uses a small default.
	Concurrency int
}

// Narrator turns a statistics summary into a short plain-language explanation.
// A nil Narrator, or one without a runtime, always returns MissingKeyInsight.
type Narrator struct {
	rt  Runtime
	cfg NarratorConfig
}

// NewNarrator wraps rt. rt may be nil when no credential is configured.
func NewNarrator(rt Runtime, cfg NarratorConfig) *Narrator {
	if cfg.SummaryTokenLimit <= 0 {
		cfg.SummaryTokenLimit = defaultSummaryCap
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return &Narrator{rt: rt, cfg: cfg}
}

// Request is one section to narrate.
type Request struct {
	Context string
	Summary string
}

// Prompt builds the instruction sent for one narration.
func Prompt(section, summary string) string {
	var b strings.Builder
	b.WriteString("You are a Senior Data Scientist. Explain the following statistical result to a junior analyst.\n")
	fmt.Fprintf(&b, "Context: %s\n", section)
	fmt.Fprintf(&b, "Data/Stats: %s\n\n", summary)
	b.WriteString("Requirements:\n")
	b.WriteString("1. Explain what the metric means briefly.\n")
	b.WriteString("2. Interpret the specific values provided.\n")
	b.WriteString("3. Give a \"Takeaway\" or \"Actionable Insight\".\n")
	b.WriteString("4. Keep it concise (under 100 words).\n")
	b.WriteString("5. Do not use Markdown formatting like bold or headers, just plain text or simple bullet points.\n")
	return b.String()
}

// Explain never fails: provider problems are logged and mapped to a fallback.
func (n *Narrator) Explain(ctx context.Context, section, summary string) string {
	if n == nil || n.rt == nil {
		return MissingKeyInsight
	}
	summary = utils.TruncateToTokenLimit(summary, n.cfg.SummaryTokenLimit)
	resp, err := n.rt.Generate(ctx, GenerateRequest{
		Model:       n.cfg.Model,
		Messages:    []Message{{Role: "user", Content: Prompt(section, summary)}},
		MaxTokens:   n.cfg.MaxTokens,
		Temperature: n.cfg.Temperature,
	})
	if err != nil {
		if errors.Is(err, ErrMissingCredential) {
			return MissingKeyInsight
		}
		log.Printf("narration %q failed: %v", section, err)
		return FailedInsight
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return EmptyInsight
	}
	return text
}

// ExplainBatch narrates every request with at most Concurrency calls in
// flight. The result has one entry per request, in order.
func (n *Narrator) ExplainBatch(ctx context.Context, reqs []Request) []string {
	out := make([]string, len(reqs))
	limit := defaultConcurrency
	if n != nil {
		limit = n.cfg.Concurrency
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, r := range reqs {
		i, r := i, r
		g.Go(func() error {
			out[i] = n.Explain(gctx, r.Context, r.Summary)
			return nil
		})
	}
	_ = g.Wait()
	return out
}
