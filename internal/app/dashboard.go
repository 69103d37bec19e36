// Package app holds the dashboard state shared by the CLI and the HTTP API.
package app

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/KaramelBytes/statlab-cli/internal/dataset"
)

// Module is one dashboard view.
type Module string

const (
	ModuleOverview   Module = "overview"
	ModuleData       Module = "data"
	ModuleHypothesis Module = "hypothesis"
	ModuleRegression Module = "regression"
)

// Modules lists the views in navigation order.
var Modules = []Module{ModuleOverview, ModuleData, ModuleHypothesis, ModuleRegression}

// ParseModule matches a module name case-insensitively.
func ParseModule(s string) (Module, error) {
	for _, m := range Modules {
		if strings.EqualFold(string(m), strings.TrimSpace(s)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown module %q", s)
}

// Explainer narrates a statistics summary. It must not fail; see ai.Narrator.
type Explainer interface {
	Explain(ctx context.Context, section, summary string) string
}

// ExplainerFunc adapts a function to Explainer.
type ExplainerFunc func(ctx context.Context, section, summary string) string

func (f ExplainerFunc) Explain(ctx context.Context, section, summary string) string {
	return f(ctx, section, summary)
}

// State is a point-in-time copy of the dashboard for rendering.
type State struct {
	Module     Module `json:"module"`
	Size       int    `json:"size"`
	Generation uint64 `json:"generation"`
	Loading    bool   `json:"loading"`
	Insight    string `json:"insight"`
}

// Dashboard owns the current dataset, the active module and at most one
// in-flight narration. It is safe for concurrent use.
type Dashboard struct {
	gen       *dataset.Generator
	explainer Explainer

	mu         sync.Mutex
	records    []dataset.Record
	module     Module
	generation uint64
	loading    bool
	insight    string
	request    uint64
	cancel     context.CancelFunc
}

// New returns an empty dashboard on the overview module. explainer must not
// be nil.
func New(gen *dataset.Generator, explainer Explainer) *Dashboard {
	return &Dashboard{gen: gen, explainer: explainer, module: ModuleOverview}
}

// Regenerate replaces the dataset with size fresh records. On error the
// current state is kept.
func (d *Dashboard) Regenerate(size int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	records, err := d.gen.Generate(size)
	if err != nil {
		return err
	}
	d.replaceLocked(records)
	return nil
}

// Load replaces the dataset with records read from elsewhere.
func (d *Dashboard) Load(records []dataset.Record) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.replaceLocked(append([]dataset.Record(nil), records...))
}

func (d *Dashboard) replaceLocked(records []dataset.Record) {
	d.records = records
	d.generation++
	d.clearInsightLocked()
}

func (d *Dashboard) clearInsightLocked() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.request++
	d.loading = false
	d.insight = ""
}

// Records returns a copy of the current dataset.
func (d *Dashboard) Records() []dataset.Record {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]dataset.Record(nil), d.records...)
}

// SetModule switches the active view and drops the previous view's insight.
func (d *Dashboard) SetModule(m Module) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.module == m {
		return
	}
	d.module = m
	d.clearInsightLocked()
}

// State returns a copy of the dashboard's scalar state.
func (d *Dashboard) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return State{
		Module:     d.module,
		Size:       len(d.records),
		Generation: d.generation,
		Loading:    d.loading,
		Insight:    d.insight,
	}
}

// RequestInsight narrates summary in the background. The returned channel
// yields the narrative once it is stored as the current insight. If the
// request is superseded first (by another request, a regeneration or a module
// switch) the result is discarded and the channel closes without a value.
func (d *Dashboard) RequestInsight(ctx context.Context, section, summary string) <-chan string {
	out := make(chan string, 1)

	d.mu.Lock()
	d.clearInsightLocked()
	reqCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.loading = true
	id := d.request
	d.mu.Unlock()

	go func() {
		defer close(out)
		defer cancel()
		text := d.explainer.Explain(reqCtx, section, summary)

		d.mu.Lock()
		defer d.mu.Unlock()
		if d.request != id {
			return
		}
		d.insight = text
		d.loading = false
		d.cancel = nil
		out <- text
	}()
	return out
}
