package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/statlab-cli/internal/analysis"
	"github.com/KaramelBytes/statlab-cli/internal/app"
	"github.com/KaramelBytes/statlab-cli/internal/dataset"
)

func newTestServer(t *testing.T) (*Server, *app.Dashboard) {
	t.Helper()
	explain := app.ExplainerFunc(func(_ context.Context, section, summary string) string {
		return "insight for " + section
	})
	d := app.New(dataset.NewGenerator(21), explain)
	require.NoError(t, d.Regenerate(120))
	return New(d, Options{DefaultSize: 40}), d
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestDatasetPaging(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/dataset?offset=10&limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Total   int              `json:"total"`
		Records []dataset.Record `json:"records"`
	}
	decode(t, rec, &body)
	assert.Equal(t, 120, body.Total)
	require.Len(t, body.Records, 5)
	assert.Equal(t, 11, body.Records[0].ID)

	rec = do(t, s, http.MethodGet, "/api/dataset?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/dataset?offset=1&limit=9223372036854775807", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &body)
	require.Len(t, body.Records, 119)
	assert.Equal(t, 2, body.Records[0].ID)

	rec = do(t, s, http.MethodGet, "/api/dataset?offset=500&limit=3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &body)
	assert.Empty(t, body.Records)
}

func TestDatasetCSV(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/dataset.csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), CSVFileName)

	recs, err := dataset.ReadCSV(rec.Body)
	require.NoError(t, err)
	assert.Len(t, recs, 120)
}

func TestRegenerate(t *testing.T) {
	s, d := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/api/dataset/regenerate", `{"size": 30}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var st app.State
	decode(t, rec, &st)
	assert.Equal(t, 30, st.Size)
	assert.Equal(t, uint64(2), st.Generation)

	rec = do(t, s, http.MethodPost, "/api/dataset/regenerate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, d.Records(), 40)

	rec = do(t, s, http.MethodPost, "/api/dataset/regenerate", `{"size": -3}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, s, http.MethodPost, "/api/dataset/regenerate", `{bad`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOverviewAndDescribe(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/overview", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var rep struct {
		Overview analysis.Overview `json:"overview"`
		Groups   []any             `json:"groups"`
	}
	decode(t, rec, &rep)
	assert.Equal(t, 120, rep.Overview.Total)
	assert.Len(t, rep.Groups, 5)

	rec = do(t, s, http.MethodGet, "/api/describe?field=salary&department=engineering", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var desc struct {
		N      int `json:"n"`
		Fields []struct {
			Name  string             `json:"name"`
			Stats map[string]float64 `json:"stats"`
		} `json:"fields"`
	}
	decode(t, rec, &desc)
	require.Len(t, desc.Fields, 1)
	assert.Equal(t, "salary", desc.Fields[0].Name)
	assert.Greater(t, desc.Fields[0].Stats["mean"], 50000.0)

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/describe?field=height", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/describe?department=Legal", "").Code)
}

func TestTTestAndRegression(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/ttest?field=salary&a=Engineering&b=HR", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var cmp struct {
		Group1 string `json:"group1"`
		Result struct {
			Significant bool `json:"significant"`
		} `json:"result"`
	}
	decode(t, rec, &cmp)
	assert.Equal(t, "Engineering", cmp.Group1)
	assert.True(t, cmp.Result.Significant)

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/ttest?a=Sales&b=sales", "").Code)

	rec = do(t, s, http.MethodGet, "/api/regression?x=experience&y=salary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var reg struct {
		Result struct {
			Slope    float64 `json:"slope"`
			RSquared float64 `json:"rSquared"`
		} `json:"result"`
	}
	decode(t, rec, &reg)
	assert.Greater(t, reg.Result.Slope, 0.0)
	assert.Greater(t, reg.Result.RSquared, 0.0)

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/regression?x=bogus", "").Code)
}

func TestInsightFlow(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/api/insight?wait=true", `{"kind":"ttest"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var out map[string]string
	decode(t, rec, &out)
	assert.Equal(t, "insight for "+analysis.TTestContext, out["insight"])

	rec = do(t, s, http.MethodGet, "/api/insight", "")
	var st app.State
	decode(t, rec, &st)
	assert.Equal(t, "insight for "+analysis.TTestContext, st.Insight)

	rec = do(t, s, http.MethodPost, "/api/insight?wait=true", `{"context":"Median","summary":"Value: 4"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/insight?wait=true&field=age", `{"kind":"describe"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &out)
	assert.Equal(t, analysis.DescribeContext, out["context"])
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/api/insight?field=height", `{"kind":"describe"}`).Code)

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/api/insight", `{"kind":"charts"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/api/insight", `{"context":"only"}`).Code)
}

func TestSetModule(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodPut, "/api/module", `{"module":"regression"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var st app.State
	decode(t, rec, &st)
	assert.Equal(t, app.ModuleRegression, st.Module)

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPut, "/api/module", `{"module":"charts"}`).Code)
}
