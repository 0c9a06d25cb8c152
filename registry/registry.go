package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/yaml.v3"
)

var ErrUnsupportedFormat = errors.New("unsupported executables file format")

// Executable is a test binary together with the CppUnit report it writes.
type Executable struct {
	Name    string
	Path    string
	Report  string
	Timeout time.Duration
}

// Dir is the working directory the binary is started in.
func (e Executable) Dir() string {
	return filepath.Dir(e.Path)
}

// Command is the relative command used to start the binary from Dir.
func (e Executable) Command() string {
	return "./" + filepath.Base(e.Path)
}

type fileConfig struct {
	Executables []fileExecutable `json:"executables"`
}

type fileExecutable struct {
	Name       string `json:"name"`
	Executable string `json:"executable"`
	Report     string `json:"report"`
	Timeout    string `json:"timeout"`
}

// Registry holds the configured executables
type Registry struct {
	config      Config
	executables []Executable
	mu          sync.RWMutex
}

// Config contains registry configuration
type Config struct {
	Log             log.Logger
	ExecutablesFile string // optional YAML or TOML file
	// Executables and Reports are used pairwise when no file is given.
	Executables    []string
	Reports        []string
	DefaultTimeout time.Duration
}

// NewRegistry creates a new registry instance
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}

	r := &Registry{config: cfg}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	cfg.Log.Debug("Registry loaded", "len(executables)", len(r.executables))
	return r, nil
}

// Reload re-reads the executables from the configured source.
func (r *Registry) Reload() error {
	var (
		executables []Executable
		err         error
	)
	if r.config.ExecutablesFile != "" {
		executables, err = LoadFile(r.config.ExecutablesFile, r.config.DefaultTimeout)
	} else {
		executables, err = FromPaths(r.config.Executables, r.config.Reports, r.config.DefaultTimeout)
	}
	if err != nil {
		return fmt.Errorf("failed to load executables: %w", err)
	}

	r.mu.Lock()
	r.executables = executables
	r.mu.Unlock()
	return nil
}

// Executables returns a copy of the configured executables in order.
func (r *Registry) Executables() []Executable {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Executable, len(r.executables))
	copy(out, r.executables)
	return out
}

// Reports returns the report path of every executable.
func (r *Registry) Reports() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.executables))
	for _, e := range r.executables {
		out = append(out, e.Report)
	}
	return out
}

// FromPaths pairs executables with reports by position.
func FromPaths(executables, reports []string, timeout time.Duration) ([]Executable, error) {
	if len(executables) == 0 {
		return nil, fmt.Errorf("at least one executable is required")
	}
	if len(executables) != len(reports) {
		return nil, fmt.Errorf("got %d executables but %d reports", len(executables), len(reports))
	}
	out := make([]Executable, 0, len(executables))
	for i, exe := range executables {
		if exe == "" || reports[i] == "" {
			return nil, fmt.Errorf("executable %d: empty path", i)
		}
		exePath, err := filepath.Abs(exe)
		if err != nil {
			return nil, fmt.Errorf("executable %d: %w", i, err)
		}
		reportPath, err := filepath.Abs(reports[i])
		if err != nil {
			return nil, fmt.Errorf("report %d: %w", i, err)
		}
		out = append(out, Executable{
			Name:    filepath.Base(exePath),
			Path:    exePath,
			Report:  reportPath,
			Timeout: timeout,
		})
	}
	return out, nil
}

// LoadFile reads a YAML (.yaml, .yml) or TOML (.toml) executables file.
// Relative paths are resolved against the file's directory.
func LoadFile(path string, defaultTimeout time.Duration) ([]Executable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read executables file: %w", err)
	}
	return Parse(data, filepath.Ext(path), filepath.Dir(path), defaultTimeout)
}

// Parse decodes an executables document in the format named by ext.
func Parse(data []byte, ext string, baseDir string, defaultTimeout time.Duration) ([]Executable, error) {
	var doc map[string]any
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), &doc); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	// Both decoders produce plain maps, so the JSON form is what the schema sees.
	jsonDoc, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize executables file: %w", err)
	}
	if err := validate(jsonDoc); err != nil {
		return nil, err
	}

	var cfg fileConfig
	if err := json.Unmarshal(jsonDoc, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode executables file: %w", err)
	}

	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, err
	}
	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Join(absBase, p)
	}

	out := make([]Executable, 0, len(cfg.Executables))
	for i, fe := range cfg.Executables {
		exe := Executable{
			Name:    fe.Name,
			Path:    resolve(fe.Executable),
			Report:  resolve(fe.Report),
			Timeout: defaultTimeout,
		}
		if exe.Name == "" {
			exe.Name = filepath.Base(exe.Path)
		}
		if fe.Timeout != "" {
			d, err := time.ParseDuration(fe.Timeout)
			if err != nil {
				return nil, fmt.Errorf("executable %d: invalid timeout: %w", i, err)
			}
			exe.Timeout = d
		}
		out = append(out, exe)
	}
	return out, nil
}
