package services

import (
	"testing"

	"github.com/crisjonblvx/facultyflow/internal/models"
	"github.com/crisjonblvx/facultyflow/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplates_AllValidAndCustomLast(t *testing.T) {
	v := validator.New()
	templates := Templates()

	require.Len(t, templates, 8)
	assert.Equal(t, CustomTemplate, templates[len(templates)-1].Subject)

	for _, tmpl := range templates[:len(templates)-1] {
		t.Run(tmpl.Subject, func(t *testing.T) {
			assert.Equal(t, 100.0, models.TotalWeight(tmpl.Categories))
			assert.NoError(t, v.Validate(&models.SetupRequest{Categories: tmpl.Categories}))
		})
	}
}

func TestTemplate_Lookup(t *testing.T) {
	math := Template("  mathematics ")
	assert.Equal(t, "Mathematics", math.Subject)
	require.Len(t, math.Categories, 3)
	assert.Equal(t, 1, math.Categories[1].Rules.DropLowest)

	unknown := Template("Underwater Basket Weaving")
	assert.Equal(t, CustomTemplate, unknown.Subject)
	assert.Empty(t, unknown.Categories)

	assert.True(t, HasTemplate("computer science"))
	assert.False(t, HasTemplate("Astrology"))
}

func TestTemplate_ReturnsCopy(t *testing.T) {
	first := Template("English")
	first.Categories[0].Weight = 1

	second := Template("English")
	assert.Equal(t, 50.0, second.Categories[0].Weight)
}
