package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelColor(t *testing.T) {
	assert.Equal(t, "[red]", levelColor("error"))
	assert.Equal(t, "[red]", levelColor("fatal"))
	assert.Equal(t, "[yellow]", levelColor("warn"))
	assert.Equal(t, "[blue]", levelColor("debug"))
	assert.Equal(t, "[blue]", levelColor("trace"))
	assert.Equal(t, "[green]", levelColor("info"))
	assert.Equal(t, "[green]", levelColor(""))
}

func TestConsoleWriter_SparseEvents(t *testing.T) {
	w := NewConsoleWriter()

	// events without a message (e.g. plain .Send() calls) must not crash
	// the writer
	_, err := w.Write([]byte(`{"level":"info"}`))
	require.NoError(t, err)

	_, err = w.Write([]byte(`{"level":"error","step":"styles","message":"boom"}`))
	require.NoError(t, err)

	_, err = w.Write([]byte(`not json`))
	assert.Error(t, err)
}
