package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-1.0, 0.0, 1.0))
	assert.Equal(t, 1.0, Clamp(2.0, 0.0, 1.0))
	assert.Equal(t, 0.5, Clamp(0.5, 0.0, 1.0))
	assert.Equal(t, float32(1), Clamp(float32(1), float32(0), float32(1)))
}
