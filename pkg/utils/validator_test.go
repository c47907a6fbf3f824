package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAccountNumber(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"digits", "1234567890", false},
		{"spaced", "1234 5678 90", false},
		{"dashed", "1234-5678", false},
		{"too short", "123", true},
		{"letters", "12AB5678", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAccountNumber(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateRoutingCode(t *testing.T) {
	assert.NoError(t, ValidateRoutingCode("HDFC0001234"))
	assert.NoError(t, ValidateRoutingCode("hdfc0001234"))
	assert.Error(t, ValidateRoutingCode("HDFC1001234"))
	assert.Error(t, ValidateRoutingCode("ABC"))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "hello world", SanitizeString(" hello\x00 world\x1f "))
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	assert.Len(t, a, 26)
	assert.NotEqual(t, a, b)
	assert.Less(t, a, b)
}
