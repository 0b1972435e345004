package utils

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActorContext(t *testing.T) {
	_, ok := GetActorFromContext(context.Background())
	assert.False(t, ok)

	id := uuid.New()
	ctx := SetActorContext(context.Background(), Actor{ID: id, Role: "client"})
	actor, ok := GetActorFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, id, actor.ID)
	assert.Equal(t, "client", actor.Role)

	_, ok = GetActorFromContext(SetActorContext(context.Background(), Actor{ID: id}))
	assert.False(t, ok)
}

func TestValidateStruct(t *testing.T) {
	type payload struct {
		Action string `validate:"required,oneof=accept cancel"`
		Hours  int    `validate:"gt=0"`
	}

	assert.Nil(t, ValidateStruct(payload{Action: "accept", Hours: 1}))

	errs := ValidateStruct(payload{Action: "fly"})
	assert.Equal(t, "Must be one of: accept, cancel", errs["Action"])
	assert.Equal(t, "Must be greater than 0", errs["Hours"])
	assert.Equal(t, "Action: Must be one of: accept, cancel; Hours: Must be greater than 0", FormatValidationErrors(errs))
}

func TestResponseConflictCarriesData(t *testing.T) {
	rec := httptest.NewRecorder()
	ResponseConflict(rec, "stale", map[string]int{"version": 3})

	assert.Equal(t, http.StatusConflict, rec.Code)
	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Status)
	assert.Equal(t, "stale", body.Message)
	assert.Equal(t, map[string]any{"version": float64(3)}, body.Data)
}

func TestParseIntAndPagination(t *testing.T) {
	assert.Equal(t, 10, ParseInt("", 10))
	assert.Equal(t, 10, ParseInt("abc", 10))
	assert.Equal(t, 10, ParseInt("0", 10))
	assert.Equal(t, 3, ParseInt("3", 10))

	assert.Equal(t, 3, CalculateTotalPages(21, 10))
	assert.Equal(t, 0, CalculateTotalPages(0, 10))
	assert.Equal(t, 20, CalculateOffset(3, 10))
	assert.Equal(t, 0, CalculateOffset(0, 10))
}
