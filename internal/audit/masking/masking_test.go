package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskValue(t *testing.T) {
	assert.Equal(t, "", MaskValue("  "))
	assert.Equal(t, "****", MaskValue("X12"))
	assert.Equal(t, "****78Z", MaskValue("12345678Z"))
}

func TestMaskFields(t *testing.T) {
	out := MaskFields(map[string]any{
		"identity_document": "12345678Z",
		"name":              "Lucia",
		"guest":             map[string]any{"phone": "600111222"},
		"":                  "dropped",
	}, SensitiveKeys...)

	assert.Equal(t, "****78Z", out["identity_document"])
	assert.Equal(t, "Lucia", out["name"])
	assert.Equal(t, map[string]any{"phone": "****222"}, out["guest"])
	assert.NotContains(t, out, "")
}
