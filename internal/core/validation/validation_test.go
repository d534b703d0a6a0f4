package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type refundRequest struct {
	Amount string `json:"refundAmount" validate:"required"`
	Reason string `json:"reason" validate:"required,max=20"`
	Skip   string `json:"-"`
}

func TestStruct_Valid(t *testing.T) {
	assert.NoError(t, Struct(refundRequest{Amount: "10", Reason: "damaged"}))
}

func TestStruct_FieldErrors(t *testing.T) {
	err := Struct(refundRequest{Reason: "this reason is far too long for the field"})
	require.Error(t, err)

	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 2)
	assert.Contains(t, verr.Fields, "refundAmount")
	assert.Contains(t, verr.Fields, "reason")
	assert.Contains(t, verr.Fields["refundAmount"], "required")
	assert.Contains(t, err.Error(), "; ")
}

func TestStruct_NotAStruct(t *testing.T) {
	err := Struct("plain string")
	require.Error(t, err)

	var verr *Error
	assert.False(t, errors.As(err, &verr))
}
