package logging

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"
)

var (
	debugLogger *log.Logger
	errorLogger *log.Logger
	debugFile   *os.File
	errorFile   *os.File
	mu          sync.Mutex
)

// SetupErrorLog opens the error log file. Warnings and errors are always
// written there in addition to stderr, matching the run summary's promise
// that every per-file failure is enumerable afterwards.
func SetupErrorLog(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if errorFile != nil {
		return nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("failed to open error log: %v", err)
	}
	errorFile = f
	errorLogger = log.New(f, "", log.LstdFlags)
	return nil
}

// SetupDebugLog enables verbose tracing to the given file.
func SetupDebugLog(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if debugFile != nil {
		return nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("failed to open log file: %v", err)
	}
	debugFile = f
	debugLogger = log.New(f, "", log.LstdFlags)
	debugLogger.Printf("--- photodb debug log started at %s ---", time.Now().Format(time.RFC3339))
	return nil
}

// Close closes any open log files.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if debugFile != nil {
		debugLogger.Printf("--- photodb debug log closed at %s ---", time.Now().Format(time.RFC3339))
		debugFile.Close()
		debugFile = nil
		debugLogger = nil
	}
	if errorFile != nil {
		errorFile.Close()
		errorFile = nil
		errorLogger = nil
	}
}

// Info logs an informational message to the debug log when enabled.
func Info(format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()

	if debugLogger != nil {
		debugLogger.Printf("INFO: "+format, args...)
	}
}

// Debug logs a message to the debug log when enabled.
func Debug(format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()

	if debugLogger != nil {
		debugLogger.Printf(format, args...)
	}
}

// Error logs an error to the error log and to stderr.
func Error(format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()

	log.Printf("ERROR: "+format, args...)
	if errorLogger != nil {
		errorLogger.Printf("ERROR: "+format, args...)
	}
	if debugLogger != nil {
		debugLogger.Printf("ERROR: "+format, args...)
	}
}

// Warning logs a warning to the error log and to stderr.
func Warning(format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()

	log.Printf("WARNING: "+format, args...)
	if errorLogger != nil {
		errorLogger.Printf("WARNING: "+format, args...)
	}
}

// FileProcessed records one file's pipeline outcome in the debug log.
func FileProcessed(path string, committed bool, reason string) {
	mu.Lock()
	defer mu.Unlock()

	if debugLogger == nil {
		return
	}
	if committed {
		debugLogger.Printf("COMMITTED: %s", path)
	} else {
		debugLogger.Printf("FAILED: %s - %s", path, reason)
	}
}
