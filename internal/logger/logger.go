package logger

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Category classifies operational events the way the relay reports them on
// the console. Each category has its own color when colored output is on.
type Category string

const (
	CategoryConnection    Category = "Connection"
	CategoryDisconnection Category = "Disconnection"
	CategoryRegistration  Category = "Registration"
	CategoryFileCreation  Category = "File creation"
	CategoryError         Category = "Error"
	CategoryWrongData     Category = "Wrong data"
	CategoryServerState   Category = "Server state"
)

var (
	mu           sync.Mutex
	currentLevel = LevelInfo
	useColors    = false
	logger       = stdlog.New(os.Stdout, "", 0)

	categoryColors = map[Category]*color.Color{
		CategoryConnection:    color.New(color.FgGreen),
		CategoryDisconnection: color.New(color.FgCyan),
		CategoryRegistration:  color.New(color.FgYellow),
		CategoryFileCreation:  color.New(color.FgBlue),
		CategoryError:         color.New(color.FgRed),
		CategoryWrongData:     color.New(color.FgMagenta),
		CategoryServerState:   color.New(color.FgGreen),
	}
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func SetLevel(level string) {
	mu.Lock()
	defer mu.Unlock()
	switch strings.ToUpper(level) {
	case "DEBUG":
		currentLevel = LevelDebug
	case "INFO":
		currentLevel = LevelInfo
	case "WARN":
		currentLevel = LevelWarn
	case "ERROR":
		currentLevel = LevelError
	}
}

// SetOutput redirects all log output. Colors are only meaningful on a
// terminal, so callers writing to a file usually disable them too.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = stdlog.New(w, "", 0)
}

func EnableColors() {
	mu.Lock()
	defer mu.Unlock()
	useColors = true
}

func DisableColors() {
	mu.Lock()
	defer mu.Unlock()
	useColors = false
}

func log(level Level, format string, v ...any) {
	mu.Lock()
	defer mu.Unlock()
	if level < currentLevel {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	prefix := fmt.Sprintf("[%s] [%s] ", timestamp, level.String())
	message := fmt.Sprintf(format, v...)
	logger.Println(prefix + message)
}

// Event reports an operational event at INFO level, tinted by category when
// colored output is enabled.
func Event(cat Category, format string, v ...any) {
	mu.Lock()
	defer mu.Unlock()
	if LevelInfo < currentLevel {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	message := fmt.Sprintf(format, v...)
	line := fmt.Sprintf("[%s] [%s] %s", timestamp, cat, message)
	if c, ok := categoryColors[cat]; ok && useColors {
		line = c.Sprint(line)
	}
	logger.Println(line)
}

func Debug(format string, v ...any) {
	log(LevelDebug, format, v...)
}

func Info(format string, v ...any) {
	log(LevelInfo, format, v...)
}

func Warn(format string, v ...any) {
	log(LevelWarn, format, v...)
}

func Error(format string, v ...any) {
	log(LevelError, format, v...)
}
