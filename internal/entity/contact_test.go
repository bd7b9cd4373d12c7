package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewErrorRecord(t *testing.T) {
	r := NewErrorRecord("card.jpg", "inference failed: timeout")

	assert.Equal(t, "card.jpg", r.FileName)
	require.NotNil(t, r.Error)
	assert.Equal(t, "inference failed: timeout", *r.Error)
	for _, f := range EditableFields {
		v, err := r.Field(f)
		require.NoError(t, err)
		assert.Nil(t, v, f)
	}
}

func TestSetFieldRoundTrip(t *testing.T) {
	var r ContactRecord
	for _, f := range EditableFields {
		require.NoError(t, r.SetField(f, "value for "+f))
	}
	for _, f := range EditableFields {
		v, err := r.Field(f)
		require.NoError(t, err)
		require.NotNil(t, v)
		assert.Equal(t, "value for "+f, *v)
	}
}

func TestSetFieldEmptyClears(t *testing.T) {
	var r ContactRecord
	require.NoError(t, r.SetField(FieldEmailAddress, "a@b.example"))
	require.NoError(t, r.SetField(FieldEmailAddress, ""))
	assert.Nil(t, r.EmailAddress)
}

func TestSetFieldRejectsNonEditable(t *testing.T) {
	var r ContactRecord
	assert.Error(t, r.SetField("File Name", "x.jpg"))
	assert.Error(t, r.SetField("Error", "oops"))
	assert.Error(t, r.SetField("Fax", "555"))
}
