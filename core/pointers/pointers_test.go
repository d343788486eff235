package pointers_test

import (
	"testing"

	"github.com/relabs-tech/dysonrest/core/pointers"
	"github.com/stretchr/testify/assert"
)

func TestSafeString(t *testing.T) {
	name := "Living Room"
	assert.Equal(t, "", pointers.SafeString(nil))
	assert.Equal(t, name, pointers.SafeString(&name))
}

func TestPutIfSet(t *testing.T) {
	variant := "M"
	m := map[string]any{}
	pointers.PutIfSet[string](m, "model", nil)
	pointers.PutIfSet(m, "variant", &variant)

	assert.Equal(t, map[string]any{"variant": "M"}, m)
}
