package log

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
)

// EnvLevel names the environment variable holding the log level.
const EnvLevel = "STOREKIT_LOG"

// InitLogger sets up Apex with a custom handler writing to stderr and a log
// level from the STOREKIT_LOG env variable.
func InitLogger() {
	level, err := log.ParseLevel(os.Getenv(EnvLevel))
	if err != nil {
		level = log.ErrorLevel
	}
	log.SetHandler(NewHandler(os.Stderr))
	log.SetLevel(level)
}

// CustomHandler formats log messages as one line each: time, level
// initial, message, then the fields in key order.
type CustomHandler struct {
	mu  sync.Mutex
	out io.Writer
}

func NewHandler(w io.Writer) *CustomHandler {
	return &CustomHandler{out: w}
}

// HandleLog implements the log.Handler interface
func (h *CustomHandler) HandleLog(e *log.Entry) error {
	timestamp := e.Timestamp.Format("2006-01-02 15:04:05")
	if e.Timestamp.IsZero() {
		timestamp = time.Now().Format("2006-01-02 15:04:05")
	}
	level := strings.ToUpper(e.Level.String())

	var b strings.Builder
	fmt.Fprintf(&b, "%s %.1s %s", timestamp, level, e.Message)

	names := e.Fields.Names()
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, " %s=%v", name, e.Fields.Get(name))
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := io.WriteString(h.out, b.String())
	return err
}
