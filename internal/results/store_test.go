package results

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namecard-ai/namecard-scanner/internal/entity"
)

func ptr(s string) *string { return &s }

func sampleRecords() []entity.ContactRecord {
	return []entity.ContactRecord{
		{FileName: "a.jpg", Name: ptr("Ada Lovelace"), CompanyName: ptr("Analytical Engines")},
		entity.NewErrorRecord("b.jpg", "inference failed: status 500"),
	}
}

func TestReplaceAllDiscardsPrevious(t *testing.T) {
	s := NewStore()
	s.ReplaceAll(sampleRecords())
	require.Equal(t, 2, s.Len())

	s.ReplaceAll([]entity.ContactRecord{{FileName: "c.jpg"}})
	records := s.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "c.jpg", records[0].FileName)
}

func TestAppendSkipsDuplicateFileNames(t *testing.T) {
	s := NewStore()
	s.ReplaceAll(sampleRecords())

	added := s.Append([]entity.ContactRecord{
		{FileName: "a.jpg", Name: ptr("Duplicate")},
		{FileName: "c.jpg", Name: ptr("New Person")},
	})
	assert.Equal(t, 1, added)

	records := s.Records()
	require.Len(t, records, 3)
	assert.Equal(t, "Ada Lovelace", *records[0].Name) // original kept
	assert.Equal(t, "c.jpg", records[2].FileName)
}

func TestSetFieldChangesOnlyNamedField(t *testing.T) {
	s := NewStore()
	s.ReplaceAll(sampleRecords())

	require.NoError(t, s.SetField(0, entity.FieldTitle, "Countess"))

	records := s.Records()
	require.NotNil(t, records[0].Title)
	assert.Equal(t, "Countess", *records[0].Title)
	assert.Equal(t, "Ada Lovelace", *records[0].Name)
	assert.Equal(t, "Analytical Engines", *records[0].CompanyName)
}

func TestSetFieldEmptyClearsToNull(t *testing.T) {
	s := NewStore()
	s.ReplaceAll(sampleRecords())

	require.NoError(t, s.SetField(0, entity.FieldName, ""))
	assert.Nil(t, s.Records()[0].Name)
}

func TestSetFieldErrorIsImmutable(t *testing.T) {
	s := NewStore()
	s.ReplaceAll(sampleRecords())

	err := s.SetField(1, "Error", "edited away")
	require.Error(t, err)

	records := s.Records()
	require.NotNil(t, records[1].Error)
	assert.Equal(t, "inference failed: status 500", *records[1].Error)
}

func TestSetFieldOutOfRange(t *testing.T) {
	s := NewStore()
	s.ReplaceAll(sampleRecords())

	assert.Error(t, s.SetField(-1, entity.FieldName, "x"))
	assert.Error(t, s.SetField(2, entity.FieldName, "x"))
}

func TestRecordsReturnsCopy(t *testing.T) {
	s := NewStore()
	s.ReplaceAll(sampleRecords())

	records := s.Records()
	records[0].FileName = "mutated.jpg"
	assert.Equal(t, "a.jpg", s.Records()[0].FileName)
}

func TestImageRoundTripAndClear(t *testing.T) {
	s := NewStore()
	s.PutImage("a.jpg", []byte{1, 2, 3})

	data, ok := s.Image("a.jpg")
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, data)

	_, ok = s.Image("missing.jpg")
	assert.False(t, ok)

	s.Clear()
	_, ok = s.Image("a.jpg")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}
