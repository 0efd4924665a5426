package file

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPersistence_HealthCheck(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	p := NewPersistence("file://" + root)
	assert.NoError(t, p.HealthCheck(ctx))
	assert.NotNil(t, p.RuleRepository())
	assert.NotNil(t, p.ExecutionRepository())
	assert.NoError(t, p.Close(ctx))

	missing := NewPersistence(filepath.Join(root, "missing"))
	assert.Error(t, missing.HealthCheck(ctx))
}
