package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableNames(t *testing.T) {
	tests := []struct {
		name     string
		model    interface{ TableName() string }
		expected string
	}{
		{"Run", &Run{}, "runs"},
		{"StepSample", &StepSample{}, "step_samples"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.model.TableName())
		})
	}
}

func TestDatabaseModels_RunBeforeSamples(t *testing.T) {
	// samples reference runs, so runs must migrate first
	assert.Len(t, DatabaseModels, 2)
	assert.IsType(t, &Run{}, DatabaseModels[0])
	assert.IsType(t, &StepSample{}, DatabaseModels[1])
}
