package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namecard-ai/namecard-scanner/internal/export"
	"github.com/namecard-ai/namecard-scanner/internal/llm"
	"github.com/namecard-ai/namecard-scanner/internal/queue"
)

// scriptedInferencer replays one canned result per call, in order.
type scriptedInferencer struct {
	completions []string
	errs        []error
	calls       int
}

func (s *scriptedInferencer) Infer(_ context.Context, _ llm.ChatRequest) (string, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	return s.completions[i], nil
}

func cardCompletion(name string) string {
	return fmt.Sprintf(`{"Name": %q, "Company Name": "Acme"}`, name)
}

func testImages(names ...string) []queue.ImageRecord {
	out := make([]queue.ImageRecord, 0, len(names))
	for _, n := range names {
		out = append(out, queue.NewImageRecord(n, []byte{0xFF, 0xD8}, "image/jpeg"))
	}
	return out
}

func TestRunPreservesOrderAndFileNames(t *testing.T) {
	inf := &scriptedInferencer{completions: []string{
		cardCompletion("First Person"),
		cardCompletion("Second Person"),
		cardCompletion("Third Person"),
	}}
	r := NewRunner(inf, nil, nil)

	records, err := r.Run(context.Background(), testImages("a.jpg", "b.png", "c.bmp"))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "a.jpg", records[0].FileName)
	assert.Equal(t, "b.png", records[1].FileName)
	assert.Equal(t, "c.bmp", records[2].FileName)
	require.NotNil(t, records[1].Name)
	assert.Equal(t, "Second Person", *records[1].Name)
	for _, rec := range records {
		assert.Nil(t, rec.Error)
	}
}

func TestRunIsolatesItemFailure(t *testing.T) {
	inf := &scriptedInferencer{
		completions: []string{cardCompletion("Ok One"), "", cardCompletion("Ok Two")},
		errs:        []error{nil, &llm.InferenceError{Detail: "status 500"}, nil},
	}
	r := NewRunner(inf, nil, nil)

	records, err := r.Run(context.Background(), testImages("a.jpg", "b.jpg", "c.jpg"))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Nil(t, records[0].Error)
	require.NotNil(t, records[1].Error)
	assert.Contains(t, *records[1].Error, "inference failed")
	assert.Nil(t, records[1].Name)
	assert.Nil(t, records[2].Error)
}

func TestRunParseFailureBecomesErrorRecord(t *testing.T) {
	inf := &scriptedInferencer{completions: []string{"I could not read this card."}}
	r := NewRunner(inf, nil, nil)

	records, err := r.Run(context.Background(), testImages("blurry.jpg"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].Error)
	assert.Contains(t, *records[0].Error, "parse failed")
}

func TestRunReportsProgress(t *testing.T) {
	inf := &scriptedInferencer{completions: []string{
		cardCompletion("A"), cardCompletion("B"),
	}}
	r := NewRunner(inf, nil, nil)

	var seen [][2]int
	r.Progress = func(completed, total int) {
		seen = append(seen, [2]int{completed, total})
	}

	_, err := r.Run(context.Background(), testImages("a.jpg", "b.jpg"))
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{1, 2}, {2, 2}}, seen)
}

func TestRunCancellationReturnsPartialResults(t *testing.T) {
	inf := &scriptedInferencer{completions: []string{
		cardCompletion("A"), cardCompletion("B"), cardCompletion("C"),
	}}
	r := NewRunner(inf, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	r.Progress = func(completed, total int) {
		if completed == 1 {
			cancel()
		}
	}

	records, err := r.Run(ctx, testImages("a.jpg", "b.jpg", "c.jpg"))
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, records, 1)
	assert.Equal(t, "a.jpg", records[0].FileName)
	assert.Equal(t, 1, inf.calls)
}

func TestTwoImageBatchWithTimeout(t *testing.T) {
	inf := &scriptedInferencer{
		completions: []string{`{"Name": "Jane Doe", "Company Name": "Acme", "Title": null}`, ""},
		errs:        []error{nil, &llm.InferenceError{Detail: "chat request", Err: context.DeadlineExceeded}},
	}
	r := NewRunner(inf, nil, nil)

	records, err := r.Run(context.Background(), testImages("jane.jpg", "slow.jpg"))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Nil(t, records[0].Error)
	require.NotNil(t, records[0].Name)
	assert.Equal(t, "Jane Doe", *records[0].Name)
	require.NotNil(t, records[0].CompanyName)
	assert.Equal(t, "Acme", *records[0].CompanyName)
	assert.Nil(t, records[0].Title)

	require.NotNil(t, records[1].Error)
	assert.Contains(t, *records[1].Error, "deadline exceeded")
	assert.Nil(t, records[1].Name)

	out, err := export.NewService(nil).ToCSV(records)
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "File Name", rows[0][0])
	assert.Equal(t, "jane.jpg", rows[1][0])
	assert.Equal(t, "slow.jpg", rows[2][0])
}

func TestRunEmptyQueue(t *testing.T) {
	r := NewRunner(&scriptedInferencer{}, nil, nil)
	records, err := r.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, records)
}
