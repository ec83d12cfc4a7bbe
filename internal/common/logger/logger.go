package logger

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu          sync.RWMutex
	serviceName = "unknown-service"
	hostname, _ = os.Hostname()
	log         = zerolog.New(os.Stdout).With().Timestamp().Logger()
)

// SetServiceName tags every subsequent entry with the given service.
func SetServiceName(name string) {
	mu.Lock()
	defer mu.Unlock()
	serviceName = name
}

// SetOutput redirects log output (tests use io.Discard).
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	log = zerolog.New(w).With().Timestamp().Logger()
}

func entry(level zerolog.Level, action, requestID, orderID string) *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	ev := log.WithLevel(level).
		Str("service", serviceName).
		Str("action", action).
		Str("hostname", hostname)
	if requestID != "" {
		ev = ev.Str("request_id", requestID)
	}
	if orderID != "" {
		ev = ev.Str("order_id", orderID)
	}
	return ev
}

func Info(action, message, requestID, orderID string) {
	entry(zerolog.InfoLevel, action, requestID, orderID).Msg(message)
}

func Debug(action, message, requestID, orderID string) {
	entry(zerolog.DebugLevel, action, requestID, orderID).Msg(message)
}

func Warn(action, message, requestID, orderID, errMsg string) {
	ev := entry(zerolog.WarnLevel, action, requestID, orderID)
	if errMsg != "" {
		ev = ev.Str("error", errMsg)
	}
	ev.Msg(message)
}

func Error(action, message, requestID, orderID, errMsg string) {
	ev := entry(zerolog.ErrorLevel, action, requestID, orderID)
	if errMsg != "" {
		ev = ev.Str("error", errMsg)
	}
	ev.Msg(message)
}
