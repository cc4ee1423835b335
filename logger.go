package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strconv"
	"sync"
	"text/template"
	"time"
)

// Logger prints structured, leveled diagnostic output for a Server. Its
// format is a text/template rendered once per call against a small set of
// well-known fields; a template ending in "}" is treated as a JSON header
// and the message is spliced in as another field instead of appended as
// text.
type Logger struct {
	enabled  bool
	name     string
	format   string
	template *template.Template

	bufferPool *sync.Pool
	mutex      sync.Mutex
	levels     []string

	Output io.Writer
}

type logLevel uint8

// The recognized log levels, in ascending severity.
const (
	LevelDebug logLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// DefaultLogFormat is the template NewLogger uses when none is supplied: a
// single JSON object per line.
const DefaultLogFormat = `{"app":"{{.app_name}}","time":"{{.time_rfc3339}}",` +
	`"level":"{{.level}}","file":"{{.short_file}}","line":{{.line}}}`

// NewLogger returns a pointer to a new, enabled Logger named name, writing
// to os.Stdout using format (or DefaultLogFormat when format is empty).
func NewLogger(name, format string) *Logger {
	if format == "" {
		format = DefaultLogFormat
	}

	return &Logger{
		enabled: true,
		name:    name,
		format:  format,
		bufferPool: &sync.Pool{
			New: func() interface{} {
				return bytes.NewBuffer(make([]byte, 0, 256))
			},
		},
		levels: []string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"},
		Output: os.Stdout,
	}
}

// SetEnabled toggles whether the l's leveled methods (Debug through Fatalf)
// emit anything. Print, Printf and Printj always write.
func (l *Logger) SetEnabled(enabled bool) {
	l.enabled = enabled
}

// Print writes i, space-separated, with no level header.
func (l *Logger) Print(i ...interface{}) {
	fmt.Fprintln(l.Output, i...)
}

// Printf writes a formatted line with no level header.
func (l *Logger) Printf(format string, args ...interface{}) {
	fmt.Fprintf(l.Output, format+"\n", args...)
}

// Printj writes m as a JSON line with no level header.
func (l *Logger) Printj(m map[string]interface{}) {
	json.NewEncoder(l.Output).Encode(m)
}

// Debug logs i at LevelDebug.
func (l *Logger) Debug(i ...interface{}) { l.log(LevelDebug, "", i...) }

// Debugf logs a formatted message at LevelDebug.
func (l *Logger) Debugf(format string, args ...interface{}) { l.log(LevelDebug, format, args...) }

// Info logs i at LevelInfo.
func (l *Logger) Info(i ...interface{}) { l.log(LevelInfo, "", i...) }

// Infof logs a formatted message at LevelInfo.
func (l *Logger) Infof(format string, args ...interface{}) { l.log(LevelInfo, format, args...) }

// Warn logs i at LevelWarn.
func (l *Logger) Warn(i ...interface{}) { l.log(LevelWarn, "", i...) }

// Warnf logs a formatted message at LevelWarn.
func (l *Logger) Warnf(format string, args ...interface{}) { l.log(LevelWarn, format, args...) }

// Error logs i at LevelError.
func (l *Logger) Error(i ...interface{}) { l.log(LevelError, "", i...) }

// Errorf logs a formatted message at LevelError.
func (l *Logger) Errorf(format string, args ...interface{}) { l.log(LevelError, format, args...) }

// Fatal logs i at LevelFatal and panics with the rendered message.
func (l *Logger) Fatal(i ...interface{}) { l.log(LevelFatal, "", i...) }

// Fatalf logs a formatted message at LevelFatal and panics with it.
func (l *Logger) Fatalf(format string, args ...interface{}) { l.log(LevelFatal, format, args...) }

func (l *Logger) log(lvl logLevel, format string, args ...interface{}) {
	if !l.enabled {
		return
	}
	if l.template == nil {
		l.template = template.Must(template.New("ingest-logger").Parse(l.format))
	}

	message := ""
	switch {
	case format == "":
		message = fmt.Sprint(args...)
	default:
		message = fmt.Sprintf(format, args...)
	}

	// Fatal panics only after the entry below has been written.
	if lvl == LevelFatal {
		defer panic(message)
	}

	_, file, line, _ := runtime.Caller(2)

	data := map[string]interface{}{
		"app_name":     l.name,
		"time_rfc3339": time.Now().Format(time.RFC3339),
		"level":        l.levels[lvl],
		"short_file":   path.Base(file),
		"long_file":    file,
		"line":         strconv.Itoa(line),
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	buf := l.bufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		l.bufferPool.Put(buf)
	}()

	if err := l.template.Execute(buf, data); err != nil {
		return
	}

	s := buf.Bytes()
	if len(s) > 0 && s[len(s)-1] == '}' {
		buf.Truncate(buf.Len() - 1)
		buf.WriteString(`,"message":"`)
		buf.WriteString(message)
		buf.WriteString(`"}`)
	} else {
		buf.WriteByte(' ')
		buf.WriteString(message)
	}
	buf.WriteByte('\n')

	l.Output.Write(buf.Bytes())
}
