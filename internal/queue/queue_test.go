package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/namecard-ai/namecard-scanner/constants"
)

func TestQueueAddSkipsDuplicateNames(t *testing.T) {
	q := New()

	assert.True(t, q.Add(NewImageRecord("a.jpg", []byte{1}, "")))
	assert.True(t, q.Add(NewImageRecord("b.png", []byte{2}, "")))
	assert.False(t, q.Add(NewImageRecord("a.jpg", []byte{3}, "")), "re-adding an existing name must be skipped")

	items := q.Items()
	assert.Len(t, items, 2)
	assert.Equal(t, "a.jpg", items[0].Name)
	assert.Equal(t, []byte{1}, items[0].Bytes, "original bytes must survive a skipped re-add")
	assert.Equal(t, "b.png", items[1].Name)
}

func TestQueueItemsIsACopy(t *testing.T) {
	q := New()
	q.Add(NewImageRecord("a.jpg", []byte{1}, ""))

	items := q.Items()
	items[0].Name = "mutated"

	assert.Equal(t, "a.jpg", q.Items()[0].Name)
}

func TestQueueClear(t *testing.T) {
	q := New()
	q.Add(NewImageRecord("a.jpg", nil, ""))
	q.Clear()

	assert.Zero(t, q.Len())
	assert.True(t, q.Add(NewImageRecord("a.jpg", nil, "")), "cleared names can be re-added")
}

func TestNewImageRecordDetectsContentType(t *testing.T) {
	rec := NewImageRecord("card.png", nil, "")
	assert.Equal(t, constants.ContentTypePNG, rec.ContentType)

	rec = NewImageRecord("card.xyz", nil, "")
	assert.Equal(t, constants.ContentTypeJPEG, rec.ContentType)

	rec = NewImageRecord("card.xyz", nil, constants.ContentTypeBMP)
	assert.Equal(t, constants.ContentTypeBMP, rec.ContentType, "explicit content type wins")
}

func TestCaptureName(t *testing.T) {
	ts := time.Date(2026, 8, 24, 15, 4, 5, 42_000_000, time.UTC)
	assert.Equal(t, "capture_20260824_150405_042.jpg", CaptureName(ts))

	// distinct timestamps yield distinct names
	assert.NotEqual(t, CaptureName(ts), CaptureName(ts.Add(time.Millisecond)))
}
