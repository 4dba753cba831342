package progress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/harness/package-migrator/internal/style"
)

func TestConsoleReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleReporter(&buf)
	r.Start("Migrating 2 npm packages")
	r.Step("left-pad")
	r.Success("left-pad: 2 migrated")
	r.Error("is-odd: 1 failed")
	r.End()

	assert.Equal(t, "Migrating 2 npm packages...\n  - left-pad...\n  OK left-pad: 2 migrated\n  ERROR is-odd: 1 failed\n", buf.String())
}

func TestStyledReporter_PlainWithoutColour(t *testing.T) {
	style.Init(false)
	var buf bytes.Buffer
	r := NewStyledReporter(&buf)
	r.Success("done")
	assert.Contains(t, buf.String(), "✓ done")
}
