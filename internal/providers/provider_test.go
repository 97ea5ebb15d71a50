package providers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvonguyen/cost-reporter/internal/costdata"
	"github.com/lvonguyen/cost-reporter/internal/costdata/costdatatest"
)

type fakeLoader struct {
	key string
	ds  *costdata.Dataset
}

func (f *fakeLoader) LoadDataset(_ context.Context, key string) (*costdata.Dataset, error) {
	f.key = key
	return f.ds, nil
}

func TestWindow(t *testing.T) {
	start, end := Window(time.Date(2025, 10, 31, 17, 45, 0, 0, time.UTC), 30)
	assert.Equal(t, time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC), end)
}

func TestS3Source(t *testing.T) {
	loader := &fakeLoader{ds: costdatatest.FromTotals(time.Now(), 1, 2)}
	src := NewS3Source(loader, "mock/costs.json")

	ds, err := src.FetchDataset(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "mock/costs.json", loader.key)
	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, "s3", src.Name())
}

func TestMockSource(t *testing.T) {
	start := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	src := NewMockSource(1)

	ds, err := src.FetchDataset(context.Background(), start, start.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Equal(t, 7, ds.Len())
	assert.True(t, ds.Mocked)

	ds, err = src.FetchDataset(context.Background(), start, start.AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.Zero(t, ds.Len())
}
