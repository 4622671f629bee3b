package logging

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, DebugLevel, lvl)

	lvl, err = ParseLevel("WARNING")
	require.NoError(t, err)
	assert.Equal(t, WarnLevel, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestDefaultLoggerRoutesByLevel(t *testing.T) {
	var out, errOut bytes.Buffer
	l := NewWriterLogger(&out, &errOut, false)

	l.Debug("hidden")
	l.Info("frame processed", Fields{"hz": 440})
	l.Error(errors.New("boom"), "stream failed")

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "[INFO] frame processed hz=440")
	assert.Contains(t, errOut.String(), "[ERROR] stream failed: boom")
}

func TestWithFieldsMergesAndSortsKeys(t *testing.T) {
	var out bytes.Buffer
	l := NewWriterLogger(&out, &out, false).WithFields(Fields{"component": "tuner"})
	l.Info("locked", Fields{"note": "A4"})

	assert.Contains(t, out.String(), "locked component=tuner note=A4")
}

func TestOrNoOp(t *testing.T) {
	assert.IsType(t, NoOpLogger{}, OrNoOp(nil))
	l := NewWriterLogger(&bytes.Buffer{}, &bytes.Buffer{}, false)
	assert.Same(t, l, OrNoOp(l))
}
