package queue

import (
	"fmt"
	"sync"
	"time"

	"github.com/namecard-ai/namecard-scanner/constants"
)

// ImageRecord is one queued source image. Bytes are never mutated after
// creation; the record leaves the queue only via Clear.
type ImageRecord struct {
	Name        string
	Bytes       []byte
	ContentType string
}

// NewImageRecord builds an ImageRecord, detecting the content type from the
// filename when none is supplied.
func NewImageRecord(name string, data []byte, contentType string) ImageRecord {
	if contentType == "" {
		contentType = constants.DetectContentType(name)
	}
	return ImageRecord{Name: name, Bytes: data, ContentType: contentType}
}

// Queue is the ordered collection of pending images for a session. Names are
// unique within a queue; re-adding an existing name is skipped, not an error.
// Safe for concurrent use.
type Queue struct {
	mu    sync.Mutex
	items []ImageRecord
	names map[string]struct{}
}

func New() *Queue {
	return &Queue{names: make(map[string]struct{})}
}

// Add appends an image to the queue. Returns false when the name is already
// present and the record was skipped.
func (q *Queue) Add(rec ImageRecord) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.names[rec.Name]; ok {
		return false
	}
	q.names[rec.Name] = struct{}{}
	q.items = append(q.items, rec)
	return true
}

// Items returns a copy of the queued records in insertion order.
func (q *Queue) Items() []ImageRecord {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]ImageRecord, len(q.items))
	copy(out, q.items)
	return out
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Clear removes every queued image.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
	q.names = make(map[string]struct{})
}

// CaptureName synthesizes a deterministic name for a camera-captured frame
// so repeated captures never collide in the queue.
func CaptureName(t time.Time) string {
	return fmt.Sprintf("capture_%s_%03d.jpg", t.Format("20060102_150405"), t.Nanosecond()/1e6)
}
