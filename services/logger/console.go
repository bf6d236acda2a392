package logsvc

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/trezcool/rollcall/core"
)

const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
	LevelFatal = "FATAL"
)

// Entry is a logged event, kept by the mock logger.
type Entry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// ConsoleLogger writes events to a std logger, one line per event.
type ConsoleLogger struct {
	std           *log.Logger
	debug         bool
	disableOutput bool

	mu      sync.Mutex
	record  bool
	entries []Entry
}

var _ core.Logger = (*ConsoleLogger)(nil)

func NewConsoleLogger(std *log.Logger, conf *core.Config) *ConsoleLogger {
	return &ConsoleLogger{std: std, debug: conf.Debug}
}

// NewConsoleLoggerMock returns a silent logger remembering every event, debug included.
func NewConsoleLoggerMock() *ConsoleLogger {
	return &ConsoleLogger{debug: true, disableOutput: true, record: true}
}

// Entries returns the recorded events, all of them or those of the given levels.
func (l *ConsoleLogger) Entries(levels ...string) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		if len(levels) == 0 || contains(levels, e.Level) {
			out = append(out, e)
		}
	}
	return out
}

func (l *ConsoleLogger) log(level, msg string, args []interface{}) {
	if level == LevelDebug && !l.debug {
		return
	}
	if l.record {
		l.mu.Lock()
		l.entries = append(l.entries, Entry{Level: level, Msg: msg, Args: args})
		l.mu.Unlock()
	}
	if !l.disableOutput && l.std != nil {
		l.std.Println(formatLine(level, msg, args))
	}
}

func (l *ConsoleLogger) Debug(msg string, args ...interface{}) { l.log(LevelDebug, msg, args) }
func (l *ConsoleLogger) Info(msg string, args ...interface{})  { l.log(LevelInfo, msg, args) }
func (l *ConsoleLogger) Warn(msg string, args ...interface{})  { l.log(LevelWarn, msg, args) }
func (l *ConsoleLogger) Error(msg string, args ...interface{}) { l.log(LevelError, msg, args) }

func (l *ConsoleLogger) Fatal(msg string, args ...interface{}) {
	l.log(LevelFatal, msg, args)
	if !l.disableOutput && l.std != nil {
		l.std.Fatal(msg)
	}
}

// formatLine renders "LEVEL msg key=value ... error=... person=..." with map keys sorted.
func formatLine(level, msg string, args []interface{}) string {
	var b strings.Builder
	b.WriteString(level)
	b.WriteByte(' ')
	b.WriteString(msg)
	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
		case error:
			fmt.Fprintf(&b, " error=%q", v.Error())
		case map[string]interface{}:
			keys := make([]string, 0, len(v))
			for k := range v {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(&b, " %s=%v", k, v[k])
			}
		case core.Person:
			fmt.Fprintf(&b, " person=%s", v.ID)
		default:
			fmt.Fprintf(&b, " %v", v)
		}
	}
	return b.String()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
