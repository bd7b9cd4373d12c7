package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namecard-ai/namecard-scanner/internal/entity"
)

func ptr(s string) *string { return &s }

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndListRuns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	records := []entity.ContactRecord{
		{FileName: "a.jpg", Name: ptr("Ada Lovelace"), CompanyName: ptr("Analytical Engines")},
		entity.NewErrorRecord("b.jpg", "inference failed: status 500"),
	}

	first, err := s.SaveRun(ctx, time.Now().Add(-time.Hour), records)
	require.NoError(t, err)
	second, err := s.SaveRun(ctx, time.Now(), records[:1])
	require.NoError(t, err)

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	// newest first
	assert.Equal(t, second, runs[0].ID)
	assert.Equal(t, first, runs[1].ID)

	assert.Equal(t, 2, runs[1].Total)
	assert.Equal(t, 1, runs[1].Succeeded)
	assert.Equal(t, 1, runs[1].Failed)
	assert.Equal(t, 0, runs[0].Failed)
}

func TestRunRecordsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	records := []entity.ContactRecord{
		{
			FileName:       "ada.jpg",
			Name:           ptr("Ada Lovelace"),
			Title:          ptr("Analyst"),
			CompanyName:    ptr("Analytical Engines"),
			PhoneNumber:    ptr("+44 20 5550 0100"),
			EmailAddress:   ptr("ada@engines.example"),
			CompanyAddress: ptr("1 Babbage Way, London"),
			CompanyWebsite: ptr("https://engines.example"),
		},
		{FileName: "blank.jpg"},
		entity.NewErrorRecord("broken.jpg", "parse failed: invalid json"),
	}

	runID, err := s.SaveRun(ctx, time.Now(), records)
	require.NoError(t, err)

	got, err := s.RunRecords(ctx, runID)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, records[0].FileName, got[0].FileName)
	require.NotNil(t, got[0].Name)
	assert.Equal(t, "Ada Lovelace", *got[0].Name)
	assert.Equal(t, "https://engines.example", *got[0].CompanyWebsite)

	assert.Nil(t, got[1].Name)
	assert.Nil(t, got[1].Error)

	require.NotNil(t, got[2].Error)
	assert.Equal(t, "parse failed: invalid json", *got[2].Error)
}

func TestRunRecordsUnknownRun(t *testing.T) {
	s := openTestStore(t)
	got, err := s.RunRecords(context.Background(), "no-such-run")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListRunsEmpty(t *testing.T) {
	s := openTestStore(t)
	runs, err := s.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
