package tags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	t.Run("splits and lowercases", func(t *testing.T) {
		assert.Equal(t, []string{"api", "prod", "web"}, Parse("Prod  web\tAPI").List())
	})

	t.Run("deduplicates", func(t *testing.T) {
		assert.Equal(t, "prod", Parse("prod PROD prod").String())
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Equal(t, []string{}, Parse("   ").List())
		assert.Equal(t, "", Parse("").String())
	})
}

func TestUnion(t *testing.T) {
	merged := Parse("prod").Union(Parse("zebra alpha prod"))
	assert.Equal(t, "alpha prod zebra", merged.String())

	again := merged.Union(Parse("zebra alpha prod"))
	assert.Equal(t, merged.String(), again.String(), "union must be idempotent")
}

func TestContains(t *testing.T) {
	s := Parse("api prod web")
	assert.True(t, s.Contains(Parse("prod web")))
	assert.True(t, s.Contains(Parse("")))
	assert.False(t, s.Contains(Parse("prod staging")))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "a b c", Normalize("c b a b"))
}
