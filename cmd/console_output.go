package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/mitchellh/colorstring"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// ConsoleWriter renders zerolog's JSON events as colored one-liners. The
// pipeline emits a small, fixed set of fields: level, message, step (which
// pipeline step produced the event), path (the file being processed), run
// and error.
type ConsoleWriter struct {
	buffer strings.Builder
	lock   sync.Mutex
}

func NewConsoleWriter() *ConsoleWriter {
	return &ConsoleWriter{}
}

func levelColor(level string) string {
	switch level {
	case "fatal", "error":
		return "[red]"
	case "warn":
		return "[yellow]"
	case "debug", "trace":
		return "[blue]"
	default:
		return "[green]"
	}
}

func stringField(evt map[string]interface{}, name string) (string, bool) {
	value, ok := evt[name].(string)
	return value, ok
}

func (w *ConsoleWriter) Write(p []byte) (n int, err error) {
	w.lock.Lock()
	defer w.lock.Unlock()

	var evt map[string]interface{}
	d := json.NewDecoder(bytes.NewReader(p))
	d.UseNumber()
	err = d.Decode(&evt)
	if err != nil {
		return n, eris.Wrapf(err, "cannot decode event: %s", p)
	}

	level, _ := stringField(evt, "level")

	w.buffer.Reset()
	w.buffer.WriteString(levelColor(level))

	if step, ok := stringField(evt, "step"); ok {
		w.buffer.WriteString(step + ": ")
	}

	if level == "error" {
		w.buffer.WriteString("Error: ")
	}

	msg, _ := stringField(evt, "message")
	if path, ok := stringField(evt, "path"); ok {
		// show paths relative to the working directory
		relPath, relErr := filepath.Rel(".", path)
		if relErr == nil {
			msg = strings.ReplaceAll(msg, path, relPath)
		}
	}
	w.buffer.WriteString(msg)

	if errorDetails, ok := stringField(evt, "error"); ok {
		w.buffer.WriteString("\n")
		w.buffer.WriteString(errorDetails)
	}

	if os.Getenv("DOMGEN_DEBUG") != "" {
		w.buffer.WriteString("\n")
		names := make([]string, 0, len(evt))
		for name := range evt {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			w.buffer.WriteString(fmt.Sprintf("  %s: %+v\n", name, evt[name]))
		}
	}

	w.buffer.WriteString("[reset]\n")
	return colorstring.Fprint(os.Stderr, w.buffer.String())
}

func init() {
	zerolog.ErrorMarshalFunc = func(err error) interface{} {
		return eris.ToString(err, os.Getenv("DOMGEN_DEBUG") != "")
	}
}
