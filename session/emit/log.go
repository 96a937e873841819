package emit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// LogEmitter implements Emitter by writing structured log output to a
// writer.
//
// Supports two output modes:
//   - Text mode (default): human-readable key=value lines
//   - JSON mode: one JSON object per line (JSONL)
//
// Example text output:
//
//	[trial_start] session=s-001 test=trails block=0 trial=3
//
// Example JSON output:
//
//	{"session":"s-001","test":"trails","block":0,"trial":3,"msg":"trial_start","meta":null}
//
// Usage:
//
//	// Text output to stderr
//	emitter := emit.NewLogEmitter(os.Stderr, false)
//
//	// JSON output to a session log file
//	f, _ := os.Create("session.jsonl")
//	defer f.Close()
//	emitter := emit.NewLogEmitter(f, true)
type LogEmitter struct {
	mu       sync.Mutex
	writer   io.Writer
	jsonMode bool
}

// NewLogEmitter creates a new LogEmitter writing to the given writer.
// A nil writer defaults to os.Stderr.
func NewLogEmitter(writer io.Writer, jsonMode bool) *LogEmitter {
	if writer == nil {
		writer = os.Stderr
	}
	return &LogEmitter{writer: writer, jsonMode: jsonMode}
}

// Emit writes an event to the configured writer.
func (l *LogEmitter) Emit(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.jsonMode {
		l.emitJSON(event)
	} else {
		l.emitText(event)
	}
}

func (l *LogEmitter) emitJSON(event Event) {
	data, err := json.Marshal(struct {
		Session string                 `json:"session"`
		Test    string                 `json:"test"`
		Block   int                    `json:"block"`
		Trial   int                    `json:"trial"`
		Msg     string                 `json:"msg"`
		Meta    map[string]interface{} `json:"meta"`
	}{
		Session: event.SessionID,
		Test:    event.Test,
		Block:   event.Block,
		Trial:   event.Trial,
		Msg:     event.Msg,
		Meta:    event.Meta,
	})
	if err != nil {
		fmt.Fprintf(l.writer, "{\"error\":\"failed to marshal event: %v\"}\n", err)
		return
	}
	fmt.Fprintf(l.writer, "%s\n", data)
}

func (l *LogEmitter) emitText(event Event) {
	fmt.Fprintf(l.writer, "[%s] session=%s test=%s block=%d trial=%d",
		event.Msg, event.SessionID, event.Test, event.Block, event.Trial)

	if len(event.Meta) > 0 {
		metaJSON, err := json.Marshal(event.Meta)
		if err == nil {
			fmt.Fprintf(l.writer, " meta=%s", metaJSON)
		} else {
			fmt.Fprintf(l.writer, " meta=%v", event.Meta)
		}
	}
	fmt.Fprint(l.writer, "\n")
}
