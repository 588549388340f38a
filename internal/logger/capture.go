package logger

import (
	"bytes"
	"io"
	"os"
	"sync"
)

// Capture is a concurrency-safe buffer that records everything a run logger
// writes, so the full log text can be attached to the run's terminal
// metadata row.
type Capture struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// Write implements io.Writer.
func (c *Capture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

// String returns the captured log text.
func (c *Capture) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

// NewRunLogger creates a logger for a single pipeline run. Output goes to
// stdout and to the returned Capture. Captured output uses the text format
// so the stored log reads like a console transcript.
// Parameters:
//   - pipeline: pipeline name stamped on every entry.
// Returns:
//   - *Logger: run-scoped logger.
//   - *Capture: buffer holding everything the run logged.
func NewRunLogger(pipeline string) (*Logger, *Capture) {
	capture := &Capture{}
	log := New(&Config{
		Level:       "info",
		Format:      "text",
		Output:      io.MultiWriter(os.Stdout, capture),
		ServiceName: "tracktide",
	})
	return log.WithField(FieldPipeline, pipeline), capture
}
