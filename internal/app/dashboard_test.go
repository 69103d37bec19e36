package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/statlab-cli/internal/dataset"
)

func echo() Explainer {
	return ExplainerFunc(func(_ context.Context, section, summary string) string {
		return section + ": " + summary
	})
}

// gated blocks every narration until release is closed.
func gated(release <-chan struct{}) Explainer {
	return ExplainerFunc(func(ctx context.Context, section, _ string) string {
		select {
		case <-release:
			return "late " + section
		case <-ctx.Done():
			return "canceled"
		}
	})
}

func TestRegenerateReplacesDataset(t *testing.T) {
	d := New(dataset.NewGenerator(5), echo())
	require.NoError(t, d.Regenerate(50))
	first := d.Records()
	require.Len(t, first, 50)
	assert.Equal(t, uint64(1), d.State().Generation)

	require.NoError(t, d.Regenerate(20))
	assert.Len(t, d.Records(), 20)
	assert.Equal(t, uint64(2), d.State().Generation)

	err := d.Regenerate(0)
	assert.ErrorIs(t, err, dataset.ErrInvalidSize)
	assert.Len(t, d.Records(), 20, "failed regeneration keeps data")
	assert.Equal(t, uint64(2), d.State().Generation)
}

func TestRecordsReturnsCopy(t *testing.T) {
	d := New(dataset.NewGenerator(5), echo())
	require.NoError(t, d.Regenerate(3))
	recs := d.Records()
	recs[0].Salary = -1
	assert.NotEqual(t, -1, d.Records()[0].Salary)
}

func TestRequestInsightStoresResult(t *testing.T) {
	d := New(dataset.NewGenerator(5), echo())
	require.NoError(t, d.Regenerate(10))

	text, ok := <-d.RequestInsight(context.Background(), "Mean", "Value: 3")
	require.True(t, ok)
	assert.Equal(t, "Mean: Value: 3", text)

	st := d.State()
	assert.Equal(t, "Mean: Value: 3", st.Insight)
	assert.False(t, st.Loading)
}

func TestRegenerateDiscardsInFlightInsight(t *testing.T) {
	release := make(chan struct{})
	d := New(dataset.NewGenerator(5), gated(release))
	require.NoError(t, d.Regenerate(10))

	ch := d.RequestInsight(context.Background(), "T-Test", "summary")
	assert.True(t, d.State().Loading)

	require.NoError(t, d.Regenerate(10))
	close(release)

	select {
	case text, ok := <-ch:
		assert.False(t, ok, "stale narrative delivered: %q", text)
	case <-time.After(2 * time.Second):
		t.Fatal("narration did not finish")
	}
	st := d.State()
	assert.Empty(t, st.Insight)
	assert.False(t, st.Loading)
}

func TestNewerRequestSupersedesOlder(t *testing.T) {
	release := make(chan struct{})
	d := New(dataset.NewGenerator(5), gated(release))

	old := d.RequestInsight(context.Background(), "first", "")
	newer := d.RequestInsight(context.Background(), "second", "")
	_, ok := <-old
	assert.False(t, ok, "first request is canceled by the second")

	close(release)
	text, ok := <-newer
	require.True(t, ok)
	assert.Equal(t, "late second", text)
	assert.Equal(t, "late second", d.State().Insight)
}

func TestSetModuleClearsInsight(t *testing.T) {
	d := New(dataset.NewGenerator(5), echo())
	<-d.RequestInsight(context.Background(), "x", "y")
	require.NotEmpty(t, d.State().Insight)

	d.SetModule(ModuleOverview)
	assert.NotEmpty(t, d.State().Insight, "same module keeps insight")

	d.SetModule(ModuleRegression)
	st := d.State()
	assert.Equal(t, ModuleRegression, st.Module)
	assert.Empty(t, st.Insight)
}

func TestParseModule(t *testing.T) {
	m, err := ParseModule(" Hypothesis ")
	require.NoError(t, err)
	assert.Equal(t, ModuleHypothesis, m)
	_, err = ParseModule("charts")
	assert.Error(t, err)
}

func TestLoadReplacesDataset(t *testing.T) {
	d := New(dataset.NewGenerator(5), echo())
	recs := []dataset.Record{{ID: 1, Department: dataset.HR}}
	d.Load(recs)
	recs[0].ID = 99
	assert.Equal(t, 1, d.Records()[0].ID)
	assert.Equal(t, uint64(1), d.State().Generation)
}
