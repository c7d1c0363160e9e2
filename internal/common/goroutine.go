package common

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync/atomic"
	"time"
)

var goroutineCount int64

// SafeGo runs fn in a goroutine with panic recovery. A panicking
// background task writes a crash log and is logged instead of taking
// the process down.
func SafeGo(name string, fn func()) {
	atomic.AddInt64(&goroutineCount, 1)
	go func() {
		defer atomic.AddInt64(&goroutineCount, -1)
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()
				GetLogger().Error().
					Str("goroutine", name).
					Str("panic", fmt.Sprintf("%v", r)).
					Msg("Recovered from panic in background goroutine")
				writeCrashLog(name, r, stack)
			}
		}()
		fn()
	}()
}

// GoroutineCount returns the number of SafeGo goroutines currently running
func GoroutineCount() int64 {
	return atomic.LoadInt64(&goroutineCount)
}

func writeCrashLog(name string, panicValue interface{}, stack []byte) {
	dir := "logs"
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return
	}
	path := filepath.Join(dir, fmt.Sprintf("crash_%s_%s.log", name, time.Now().Format("20060102_150405")))
	content := fmt.Sprintf("goroutine: %s\ntime: %s\npanic: %v\n\n%s\n",
		name, time.Now().Format(time.RFC3339), panicValue, stack)
	_ = os.WriteFile(path, []byte(content), 0o644)
}
