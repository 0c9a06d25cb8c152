// Package logging stores the artifacts of a run on disk: the output of every
// executed test binary, the stream of emitted events and the summary.
package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/acarl005/stripansi"
	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/cppunit-explorer/types"
)

const (
	RunDirectoryPrefix = "testrun-" // Standardized prefix for run directories
	SuitesDirectory    = "suites"
	EventsFilename     = "events.log"
	SummaryFilename    = "summary.log"
)

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// FileLogger handles writing run artifacts to files
type FileLogger struct {
	baseDir   string // Base directory for logs
	logDir    string // Directory of this run
	suitesDir string // Directory for per-suite binary output
	runID     string
	log       log.Logger

	mu     sync.Mutex
	events *AsyncFile
}

// AsyncFile provides non-blocking file writing capabilities
type AsyncFile struct {
	file    *os.File
	queue   chan []byte
	wg      sync.WaitGroup
	mu      sync.Mutex
	stopped bool
}

// NewAsyncFile creates a new AsyncFile for non-blocking writes
func NewAsyncFile(path string) (*AsyncFile, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file %s: %w", path, err)
	}

	af := &AsyncFile{
		file:  file,
		queue: make(chan []byte, 100),
	}

	af.wg.Add(1)
	go af.processQueue()

	return af, nil
}

// Write queues data to be written asynchronously
func (af *AsyncFile) Write(data []byte) error {
	af.mu.Lock()
	defer af.mu.Unlock()

	if af.stopped {
		return fmt.Errorf("async file is closed")
	}

	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)
	af.queue <- dataCopy
	return nil
}

func (af *AsyncFile) processQueue() {
	defer af.wg.Done()

	for data := range af.queue {
		if _, err := af.file.Write(data); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing to file: %v\n", err)
		}
	}
}

// Close stops the async writer and closes the file
func (af *AsyncFile) Close() error {
	af.mu.Lock()
	if !af.stopped {
		af.stopped = true
		close(af.queue)
	}
	af.mu.Unlock()

	af.wg.Wait()
	return af.file.Close()
}

// NewFileLogger creates the directory layout for one run.
func NewFileLogger(baseDir string, runID string, logger log.Logger) (*FileLogger, error) {
	if runID == "" {
		return nil, fmt.Errorf("runID cannot be empty")
	}
	if baseDir == "" {
		return nil, fmt.Errorf("baseDir cannot be empty")
	}
	if logger == nil {
		logger = log.Root()
	}

	logDir := filepath.Join(baseDir, RunDirectoryPrefix+runID)
	suitesDir := filepath.Join(logDir, SuitesDirectory)
	for _, dir := range []string{baseDir, logDir, suitesDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return &FileLogger{
		baseDir:   baseDir,
		logDir:    logDir,
		suitesDir: suitesDir,
		runID:     runID,
		log:       logger,
	}, nil
}

// GetRunID returns the run identifier of this logger.
func (l *FileLogger) GetRunID() string {
	return l.runID
}

// GetDirectory returns the directory holding this run's artifacts.
func (l *FileLogger) GetDirectory() string {
	return l.logDir
}

// WriteSuiteOutput stores the combined output of one test binary execution
// with ANSI escape sequences removed, and returns the file path.
func (l *FileLogger) WriteSuiteOutput(suiteName, executable string, stdout, stderr []byte, execErr error) (string, error) {
	path := filepath.Join(l.suitesDir, SafeFilename(suiteName)+".log")

	var content strings.Builder
	fmt.Fprintf(&content, "SUITE: %s\n", suiteName)
	fmt.Fprintf(&content, "EXECUTABLE: %s\n", executable)
	if execErr != nil {
		fmt.Fprintf(&content, "ERROR: %v\n", execErr)
	}
	fmt.Fprintf(&content, "\nSTDOUT:\n%s\n", stripansi.Strip(string(stdout)))
	fmt.Fprintf(&content, "\nSTDERR:\n%s\n", stripansi.Strip(string(stderr)))

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.WriteFile(path, []byte(content.String()), 0644); err != nil {
		return "", fmt.Errorf("failed to write suite output %s: %w", path, err)
	}
	return path, nil
}

// WriteSummary writes the run summary file.
func (l *FileLogger) WriteSummary(content string) error {
	path := filepath.Join(l.logDir, SummaryFilename)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write summary file: %w", err)
	}
	return nil
}

// Emit appends the event as a JSON line to the run's events file. It
// implements events.Sink.
func (l *FileLogger) Emit(ev types.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.events == nil {
		af, err := NewAsyncFile(filepath.Join(l.logDir, EventsFilename))
		if err != nil {
			l.log.Error("Failed to open events log", "err", err)
			return
		}
		l.events = af
	}
	line, err := json.Marshal(ev)
	if err != nil {
		l.log.Error("Failed to encode event", "type", ev.Type, "err", err)
		return
	}
	if err := l.events.Write(append(line, '\n')); err != nil {
		l.log.Error("Failed to write event", "type", ev.Type, "err", err)
	}
}

// Close flushes and closes any open files.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.events == nil {
		return nil
	}
	err := l.events.Close()
	l.events = nil
	return err
}

// SafeFilename turns a suite name into a file name.
func SafeFilename(name string) string {
	cleaned := unsafeFilenameChars.ReplaceAllString(name, "_")
	cleaned = strings.Trim(cleaned, "_")
	if cleaned == "" || cleaned == "." || cleaned == ".." {
		return "suite"
	}
	return cleaned
}
