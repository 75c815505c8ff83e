package log

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T) *bytes.Buffer {
	var buf bytes.Buffer
	previous := SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(previous)
		IndentationLevel = 0
		Verbose = false
		ResetErrorOccured()
	})
	return &buf
}

func TestMarkers(t *testing.T) {
	buf := capture(t)

	Log("plain %d\n", 1)
	Success("done\n")
	Warning("careful\n")

	assert.Equal(t, "plain 1\n\033[32mSuccess: \033[0mdone\n\033[33mWarning: \033[0mcareful\n", buf.String())
	assert.False(t, ErrorOccured())
}

func TestIndentation(t *testing.T) {
	buf := capture(t)

	IndentationLevel = 2
	Log("nested\n")

	assert.Equal(t, "    nested\n", buf.String())
}

func TestDebugRequiresVerbose(t *testing.T) {
	buf := capture(t)

	Debug("hidden\n")
	assert.Empty(t, buf.String())

	Verbose = true
	Debug("shown\n")
	assert.Equal(t, "\033[36mDebug: \033[0mshown\n", buf.String())
}

func TestErrorIsRecorded(t *testing.T) {
	buf := capture(t)

	Error("broken: %s\n", "pipe")

	assert.True(t, ErrorOccured())
	assert.Contains(t, buf.String(), "Error: \033[0mbroken: pipe\n")
}

func TestBanner(t *testing.T) {
	buf := capture(t)

	Banner("BUILD COMPLETED SUCCESSFULLY", "Version: v1.0")

	assert.Contains(t, buf.String(), "\nBUILD COMPLETED SUCCESSFULLY\n")
	assert.Contains(t, buf.String(), "Version: v1.0\n")
}
