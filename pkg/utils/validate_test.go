package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	SessionID string `validate:"required,max=8"`
	Message   string `validate:"maxbytes"`
}

func TestValidateStruct(t *testing.T) {
	assert.NoError(t, ValidateStruct(sample{SessionID: "s1", Message: strings.Repeat("a", MaxMessageBytes)}))

	err := ValidateStruct(sample{Message: strings.Repeat("a", MaxMessageBytes+1)})
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "sessionID failed required")
		assert.Contains(t, err.Error(), "message failed maxbytes")
	}
}
