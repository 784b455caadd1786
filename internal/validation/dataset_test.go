package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDatasetName(t *testing.T) {
	tests := []struct {
		name    string
		dataset string
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid name - lowercase",
			dataset: "notes",
		},
		{
			name:    "valid name - single character",
			dataset: "a",
		},
		{
			name:    "valid name - with separators",
			dataset: "team-1.todo_items",
		},
		{
			name:    "valid name - max length",
			dataset: strings.Repeat("x", MaxDatasetNameLen),
		},
		{
			name:    "invalid name - empty",
			dataset: "",
			wantErr: true,
			errMsg:  "cannot be empty",
		},
		{
			name:    "invalid name - too long",
			dataset: strings.Repeat("x", MaxDatasetNameLen+1),
			wantErr: true,
			errMsg:  "must not exceed 128 characters",
		},
		{
			name:    "invalid name - slash",
			dataset: "a/b",
			wantErr: true,
			errMsg:  "can only contain",
		},
		{
			name:    "invalid name - space",
			dataset: "my notes",
			wantErr: true,
			errMsg:  "can only contain",
		},
		{
			name:    "invalid name - cyrillic",
			dataset: "заметки",
			wantErr: true,
			errMsg:  "can only contain",
		},
		{
			name:    "invalid name - dot",
			dataset: ".",
			wantErr: true,
			errMsg:  "reserved",
		},
		{
			name:    "invalid name - double dot",
			dataset: "..",
			wantErr: true,
			errMsg:  "reserved",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDatasetName(tt.dataset)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestDatasetNamePattern(t *testing.T) {
	assert.True(t, DatasetNamePattern.MatchString("Data_Set-2.v1"))
	assert.False(t, DatasetNamePattern.MatchString("data set"))
	assert.False(t, DatasetNamePattern.MatchString("data?set"))
}
