package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/KaramelBytes/statlab-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/statlab-cli/internal/config"
	"github.com/KaramelBytes/statlab-cli/internal/dataset"
	"github.com/KaramelBytes/statlab-cli/internal/snapshot"
	"github.com/KaramelBytes/statlab-cli/internal/utils"
)

const (
	defaultDatasetSize = 200
	narrationTimeout   = 2 * time.Minute
)

// sourceFlags selects the records an analysis command works on: a saved
// snapshot, a CSV file, or a freshly generated dataset.
type sourceFlags struct {
	snapshot string
	input    string
	size     int
	seed     int64
}

func (s *sourceFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&s.snapshot, "snapshot", "s", "", "analyze a saved snapshot by name")
	fs.StringVarP(&s.input, "input", "i", "", "analyze a .csv or .xlsx file produced by 'generate'")
	fs.IntVar(&s.size, "size", 0, "size of a freshly generated dataset (default from config)")
	fs.Int64Var(&s.seed, "seed", 0, "seed for a freshly generated dataset (0 = config seed or clock)")
}

// load returns the selected records and a display name for them.
func (s *sourceFlags) load() ([]dataset.Record, string, error) {
	if s.snapshot != "" && s.input != "" {
		return nil, "", errors.New("use only one of --snapshot or --input")
	}
	switch {
	case s.snapshot != "":
		dir, err := datasetsDir()
		if err != nil {
			return nil, "", err
		}
		snap, err := snapshot.Load(dir, s.snapshot)
		if err != nil {
			return nil, "", err
		}
		records, err := snap.Records()
		if err != nil {
			return nil, "", err
		}
		return records, snap.Name, nil
	case s.input != "":
		records, err := readRecordsFile(s.input)
		if err != nil {
			return nil, "", err
		}
		return records, filepath.Base(s.input), nil
	}
	seed := resolveSeed(s.seed)
	records, err := dataset.NewGenerator(seed).Generate(resolveSize(s.size))
	if err != nil {
		return nil, "", err
	}
	return records, fmt.Sprintf("generated (seed %d)", seed), nil
}

// readRecordsFile reads a CSV file, or an XLSX workbook by extension.
func readRecordsFile(path string) ([]dataset.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	read := dataset.ReadCSV
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		read = dataset.ReadXLSX
	}
	records, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return records, nil
}

// resolveSize falls back to the configured dataset size.
func resolveSize(flag int) int {
	if flag != 0 {
		return flag
	}
	if cfg != nil && cfg.DatasetSize > 0 {
		return cfg.DatasetSize
	}
	return defaultDatasetSize
}

// resolveSeed returns a concrete seed so it can be reported and stored.
func resolveSeed(flag int64) int64 {
	if flag != 0 {
		return flag
	}
	if cfg != nil && cfg.Seed != 0 {
		return cfg.Seed
	}
	return time.Now().UnixNano()
}

func datasetsDir() (string, error) {
	if cfg != nil && cfg.DatasetsDir != "" {
		return cfg.DatasetsDir, nil
	}
	dir, err := cfgpkg.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "datasets"), nil
}

// encodeRecords serializes records as CSV, or XLSX when path ends in .xlsx.
func encodeRecords(path string, records []dataset.Record) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		err = dataset.WriteXLSX(&buf, records)
	} else {
		err = dataset.WriteCSV(&buf, records)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func printJSON(w io.Writer, v any) error {
	b, err := utils.PrettyJSON(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

type runtimeOptions struct {
	Provider   string
	OllamaHost string
}

// buildRuntime resolves the narration backend. A hosted provider without a
// credential yields a nil runtime and no error: narration then falls back to
// the missing-key message.
func buildRuntime(c *cfgpkg.Global, opts runtimeOptions) (ai.Runtime, string, error) {
	httpTimeout := 60 * time.Second
	retryMax := 3
	baseDelay := 500 * time.Millisecond
	maxDelay := 4 * time.Second
	if c != nil {
		if c.HTTPTimeoutSec > 0 {
			httpTimeout = time.Duration(c.HTTPTimeoutSec) * time.Second
		}
		if c.RetryMaxAttempts > 0 {
			retryMax = c.RetryMaxAttempts
		}
		if c.RetryBaseDelayMs > 0 {
			baseDelay = time.Duration(c.RetryBaseDelayMs) * time.Millisecond
		}
		if c.RetryMaxDelayMs > 0 {
			maxDelay = time.Duration(c.RetryMaxDelayMs) * time.Millisecond
		}
	}

	providerName := strings.ToLower(strings.TrimSpace(opts.Provider))
	if providerName == "" && c != nil {
		providerName = strings.ToLower(c.DefaultProvider)
	}
	switch providerName {
	case "":
		providerName = ai.ProviderGemini
	case "google":
		providerName = ai.ProviderGemini
	case "local":
		providerName = ai.ProviderOllama
	}

	rc := ai.RuntimeConfig{
		HTTPTimeout: httpTimeout,
		RetryMax:    retryMax,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
	}
	if c != nil {
		rc.APIKey = c.APIKeyFor(providerName)
	}
	if providerName == ai.ProviderOllama {
		host := strings.TrimSpace(opts.OllamaHost)
		if host == "" && c != nil {
			host = c.OllamaHost
		}
		if host == "" {
			host = ai.DefaultOllamaHost
		}
		rc.Host = host
	}

	rt, ok := ai.GetRuntime(providerName, rc)
	if !ok {
		return nil, providerName, fmt.Errorf("provider not supported: %s", providerName)
	}
	if ai.NeedsAPIKey(providerName) && rc.APIKey == "" {
		return nil, providerName, nil
	}
	return rt, providerName, nil
}

func selectModel(c *cfgpkg.Global, provider, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if c != nil && c.DefaultModel != "" {
		return c.DefaultModel
	}
	switch provider {
	case ai.ProviderOpenRouter:
		return "openai/gpt-4o-mini"
	case ai.ProviderOllama:
		return "llama3.2"
	}
	return ai.DefaultGeminiModel
}

// narrationFlags are shared by every command that can call the narrator.
type narrationFlags struct {
	explain    bool
	provider   string
	model      string
	ollamaHost string
}

func (n *narrationFlags) register(fs *pflag.FlagSet, explain bool) {
	if explain {
		fs.BoolVar(&n.explain, "explain", false, "ask the AI provider to explain the result")
	}
	fs.StringVar(&n.provider, "provider", "", "AI provider: gemini, openrouter or ollama (default from config)")
	fs.StringVar(&n.model, "model", "", "model name (default from config or provider)")
	fs.StringVar(&n.ollamaHost, "ollama-host", "", "Ollama base URL")
}

func (n *narrationFlags) narrator() (*ai.Narrator, error) {
	rt, provider, err := buildRuntime(cfg, runtimeOptions{Provider: n.provider, OllamaHost: n.ollamaHost})
	if err != nil {
		return nil, err
	}
	nc := ai.NarratorConfig{Model: selectModel(cfg, provider, n.model)}
	if cfg != nil {
		nc.MaxTokens = cfg.MaxTokens
		nc.Temperature = cfg.Temperature
		nc.Concurrency = cfg.NarrationConcurrency
	}
	if rt == nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: no API key configured for %s\n", provider)
	}
	return ai.NewNarrator(rt, nc), nil
}

// explainTo writes the narrator's take on one section when --explain is set.
func (n *narrationFlags) explainTo(cmd *cobra.Command, section, summary string) error {
	if !n.explain {
		return nil
	}
	nar, err := n.narrator()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), narrationTimeout)
	defer cancel()
	fmt.Fprintf(cmd.OutOrStdout(), "\nAI Insight:\n%s\n", nar.Explain(ctx, section, summary))
	return nil
}
