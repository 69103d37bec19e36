// Package server exposes the dashboard over a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/KaramelBytes/statlab-cli/internal/analysis"
	"github.com/KaramelBytes/statlab-cli/internal/app"
	"github.com/KaramelBytes/statlab-cli/internal/dataset"
)

// CSVFileName is the attachment name of the dataset download.
const CSVFileName = "synthetic_employee_data.csv"

// Options configures the API.
type Options struct {
	// DefaultSize is used by regenerate requests that carry no size.
	DefaultSize int
	// InsightTimeout bounds narration started through the API.
	InsightTimeout time.Duration
	// Logger enables request logging when true.
	Logger bool
}

// Server routes API requests to a Dashboard.
type Server struct {
	dash   *app.Dashboard
	opt    Options
	router *chi.Mux
}

// New builds the router.
func New(dash *app.Dashboard, opt Options) *Server {
	if opt.DefaultSize <= 0 {
		opt.DefaultSize = 200
	}
	if opt.InsightTimeout <= 0 {
		opt.InsightTimeout = 90 * time.Second
	}
	s := &Server{dash: dash, opt: opt, router: chi.NewRouter()}
	if opt.Logger {
		s.router.Use(middleware.Logger)
	}
	s.router.Use(middleware.Recoverer)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Put("/module", s.handleSetModule)
		r.Get("/dataset", s.handleDataset)
		r.Get("/dataset.csv", s.handleDatasetCSV)
		r.Post("/dataset/regenerate", s.handleRegenerate)
		r.Get("/overview", s.handleOverview)
		r.Get("/describe", s.handleDescribe)
		r.Get("/ttest", s.handleTTest)
		r.Get("/regression", s.handleRegression)
		r.Get("/insight", s.handleState)
		r.Post("/insight", s.handleInsight)
	})
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("encode response: %v", err)
		status = http.StatusInternalServerError
		b, _ = json.Marshal(errorBody{Error: "failed to encode response"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.dash.State())
}

func (s *Server) handleSetModule(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Module string `json:"module"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	m, err := app.ParseModule(body.Module)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.dash.SetModule(m)
	writeJSON(w, http.StatusOK, s.dash.State())
}

func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	records := s.dash.Records()
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	limit, err := intParam(r, "limit", len(records))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	total := len(records)
	if offset > total {
		offset = total
	}
	end := total
	if limit < total-offset {
		end = offset + limit
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"generation": s.dash.State().Generation,
		"total":      total,
		"offset":     offset,
		"records":    records[offset:end],
	})
}

func (s *Server) handleDatasetCSV(w http.ResponseWriter, r *http.Request) {
	records := s.dash.Records()
	if len(records) == 0 {
		writeError(w, http.StatusNotFound, errors.New("no dataset loaded"))
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+CSVFileName+`"`)
	if err := dataset.WriteCSV(w, records); err != nil {
		log.Printf("write csv: %v", err)
	}
}

func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Size int `json:"size"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
			return
		}
	}
	size := body.Size
	if size == 0 {
		size = s.opt.DefaultSize
	}
	if err := s.dash.Regenerate(size); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, s.dash.State())
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	opt := analysis.DefaultOptions()
	opt.Correlations = true
	opt.SampleRows = 0
	writeJSON(w, http.StatusOK, analysis.AnalyzeRecords("current", s.dash.Records(), opt))
}

func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	records := s.dash.Records()
	fields := dataset.Fields
	if name := r.URL.Query().Get("field"); name != "" {
		f, err := dataset.ParseField(name)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		fields = []dataset.Field{f}
	}
	if dept := r.URL.Query().Get("department"); dept != "" {
		d, err := dataset.ParseDepartment(dept)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		records = dataset.FilterByDepartment(records, d)
	}
	writeJSON(w, http.StatusOK, map[string]any{"n": len(records), "fields": analysis.DescribeFields(records, fields)})
}

func (s *Server) handleTTest(w http.ResponseWriter, r *http.Request) {
	cmp, err := s.comparison(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}

func (s *Server) comparison(r *http.Request) (*analysis.Comparison, error) {
	q := r.URL.Query()
	field, err := dataset.ParseField(withDefault(q.Get("field"), "salary"))
	if err != nil {
		return nil, err
	}
	a, err := dataset.ParseDepartment(withDefault(q.Get("a"), string(dataset.Engineering)))
	if err != nil {
		return nil, err
	}
	b, err := dataset.ParseDepartment(withDefault(q.Get("b"), string(dataset.Sales)))
	if err != nil {
		return nil, err
	}
	return analysis.CompareDepartments(s.dash.Records(), field, a, b)
}

func (s *Server) handleRegression(w http.ResponseWriter, r *http.Request) {
	reg, err := s.regression(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

func (s *Server) regression(r *http.Request) (*analysis.FieldRegression, error) {
	q := r.URL.Query()
	x, err := dataset.ParseField(withDefault(q.Get("x"), "yearsExperience"))
	if err != nil {
		return nil, err
	}
	y, err := dataset.ParseField(withDefault(q.Get("y"), "salary"))
	if err != nil {
		return nil, err
	}
	return analysis.RegressFields(s.dash.Records(), x, y)
}

// insightRequest names a section to narrate. Kind selects a computed summary
// (overview, describe, ttest, regression) using the same query parameters as the
// matching GET endpoint; otherwise Context and Summary are sent as given.
type insightRequest struct {
	Kind    string `json:"kind"`
	Context string `json:"context"`
	Summary string `json:"summary"`
}

func (s *Server) handleInsight(w http.ResponseWriter, r *http.Request) {
	var body insightRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	section, summary, err := s.insightText(r, body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	// narration outlives this request unless the caller waits for it
	ctx, cancel := context.WithTimeout(context.Background(), s.opt.InsightTimeout)
	ch := s.dash.RequestInsight(ctx, section, summary)
	if r.URL.Query().Get("wait") != "true" {
		go func() {
			<-ch
			cancel()
		}()
		writeJSON(w, http.StatusAccepted, s.dash.State())
		return
	}
	select {
	case text, ok := <-ch:
		cancel()
		if !ok {
			writeError(w, http.StatusConflict, errors.New("insight superseded by a newer request"))
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"context": section, "insight": text})
	case <-r.Context().Done():
		go func() {
			<-ch
			cancel()
		}()
	}
}

func (s *Server) insightText(r *http.Request, body insightRequest) (string, string, error) {
	switch body.Kind {
	case "":
		if body.Context == "" || body.Summary == "" {
			return "", "", errors.New("context and summary are required when kind is empty")
		}
		return body.Context, body.Summary, nil
	case "overview":
		rep := analysis.AnalyzeRecords("", s.dash.Records(), analysis.Options{})
		return analysis.OverviewContext, rep.Summary(), nil
	case "describe":
		f, err := dataset.ParseField(withDefault(r.URL.Query().Get("field"), "salary"))
		if err != nil {
			return "", "", err
		}
		return analysis.DescribeContext, analysis.DescribeFields(s.dash.Records(), []dataset.Field{f})[0].Summary(), nil
	case "ttest":
		cmp, err := s.comparison(r)
		if err != nil {
			return "", "", err
		}
		return analysis.TTestContext, cmp.Summary(), nil
	case "regression":
		reg, err := s.regression(r)
		if err != nil {
			return "", "", err
		}
		return analysis.RegressionContext, reg.Summary(), nil
	}
	return "", "", fmt.Errorf("unknown insight kind %q", body.Kind)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s: %q", name, v)
	}
	return n, nil
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
