package errors

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationErrors_Error(t *testing.T) {
	var errs ValidationErrors
	assert.Equal(t, "validation failed", errs.Error())

	errs = append(errs, *NewValidationError("categories[0].weight", "must be at most 100", 120))
	assert.Equal(t, "validation failed: categories[0].weight must be at most 100", errs.Error())

	errs = append(errs, *NewValidationError("fix_type", "is required", nil))
	assert.Equal(t, "validation failed: 2 field errors", errs.Error())
}

func TestValidationError_Error(t *testing.T) {
	err := NewValidationErrorWithRule("target_grade", "is required", "required", nil)

	assert.Equal(t, "required", err.Rule)
	assert.Equal(t, "validation error on field 'target_grade': is required", err.Error())
}

func TestValidationErrors_ForRule(t *testing.T) {
	errs := ValidationErrors{
		{Field: "categories[0].name", Message: "is required", Rule: "required"},
		{Field: "categories", Message: "Category weights must total 100% (currently 90%)", Rule: "weight_total"},
	}

	got, ok := errs.ForRule("weight_total")
	require.True(t, ok)
	assert.Equal(t, "categories", got.Field)

	_, ok = errs.ForRule("unique")
	assert.False(t, ok)
}

func TestToValidationErrors(t *testing.T) {
	type rules struct {
		DropLowest int `json:"drop_lowest" validate:"min=0"`
	}
	type category struct {
		Name   string  `json:"name" validate:"required,max=5"`
		Weight float64 `json:"weight" validate:"max=100"`
		Rules  rules   `json:"rules"`
	}
	type request struct {
		Categories []category `json:"categories" validate:"dive"`
		Labels     []string   `json:"labels" validate:"min=2"`
		FixType    string     `json:"fix_type" validate:"oneof=auto reset"`
	}

	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	})

	err := v.Struct(request{
		Categories: []category{{Name: "Homework", Weight: 120, Rules: rules{DropLowest: -1}}},
		FixType:    "nuke",
	})
	errs := ToValidationErrors(err)
	require.Len(t, errs, 5)

	byField := make(map[string]ValidationError, len(errs))
	for _, e := range errs {
		byField[e.Field] = e
	}
	assert.Equal(t, "must contain at least 2 item(s)", byField["labels"].Message)
	assert.Equal(t, "must be at most 5 characters", byField["categories[0].name"].Message)
	assert.Equal(t, "must be at most 100", byField["categories[0].weight"].Message)
	assert.Equal(t, "must be at least 0", byField["categories[0].rules.drop_lowest"].Message)
	assert.Equal(t, "min", byField["categories[0].rules.drop_lowest"].Rule)
	assert.Equal(t, "must be one of: auto reset", byField["fix_type"].Message)
}

func TestToValidationErrors_NonValidatorError(t *testing.T) {
	assert.Nil(t, ToValidationErrors(fmt.Errorf("plain")))
}
