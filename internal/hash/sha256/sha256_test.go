package sha256

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSum(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		Sum(""))
	assert.Equal(t, Sum("statute text"), Sum("statute text"))
	assert.NotEqual(t, Sum("statute text"), Sum("statute text amended"))
	assert.Len(t, Sum("x"), 64)
}
