package testfixtures

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDGeneratorProducesSequentialIDs(t *testing.T) {
	t.Parallel()

	gen := NewIDGenerator("audit")

	assert.Equal(t, "audit-001", gen.Next())
	assert.Equal(t, "audit-002", gen.Next())
	assert.Equal(t, 2, gen.Issued())
}

func TestIDGeneratorDefaultsPrefix(t *testing.T) {
	t.Parallel()

	next := NewIDGenerator("").NextFunc()
	assert.Equal(t, "id-001", next())
}
