package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FileSystem abstracts the file lookups the loader performs.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// RealFileSystem implements FileSystem using actual file operations.
type RealFileSystem struct{}

func (RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// ResolvedFiles contains the resolved config and env file paths.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// Resolver finds config and env files for a service.
type Resolver struct {
	FileSystem FileSystem
}

// ResolveFiles returns explicit paths if provided, otherwise searches the
// standard locations.
func (r *Resolver) ResolveFiles(serviceName string, opts LoaderConfig) ResolvedFiles {
	resolved := ResolvedFiles{
		ConfigFile: opts.ConfigFile,
		EnvFile:    opts.EnvFile,
	}
	if resolved.ConfigFile == "" {
		resolved.ConfigFile = r.firstExisting(configCandidates(serviceName))
	}
	if resolved.EnvFile == "" {
		resolved.EnvFile = r.firstExisting(envCandidates(serviceName))
	}
	return resolved
}

func (r *Resolver) firstExisting(paths []string) string {
	for _, p := range paths {
		if r.FileSystem.Exists(p) {
			return p
		}
	}
	return ""
}

func configCandidates(serviceName string) []string {
	var paths []string
	for _, prefix := range []string{".", "..", "../.."} {
		paths = append(paths, fmt.Sprintf("%s/cmd/%s/config.yml", prefix, serviceName))
	}
	return append(paths, "./config/config.yml", "./config.yml")
}

func envCandidates(serviceName string) []string {
	var paths []string
	for _, name := range []string{".env." + serviceName, ".env"} {
		for _, prefix := range []string{".", "..", "../.."} {
			paths = append(paths, fmt.Sprintf("%s/cmd/%s/%s", prefix, serviceName, name))
		}
		paths = append(paths, "./"+name)
	}
	return paths
}

// LoaderConfig holds dependencies and optional file overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string
	EnvFile    string
	Defaults   map[string]any
}

// LoaderOption is a functional option for NewLoader and LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithDefaults registers default values for keys absent from every source.
func WithDefaults(defaults map[string]any) LoaderOption {
	return func(lc *LoaderConfig) {
		if lc.Defaults == nil {
			lc.Defaults = make(map[string]any, len(defaults))
		}
		for k, v := range defaults {
			lc.Defaults[k] = v
		}
	}
}

// Loader owns the viper instance for one service so the configuration can be
// re-read when the file changes.
type Loader struct {
	serviceName string
	files       ResolvedFiles
	v           *viper.Viper
	mu          sync.Mutex
}

// NewLoader resolves the config sources for serviceName and reads them.
// Precedence, lowest first: defaults, YAML file, .env file, process environment.
func NewLoader(serviceName string, opts ...LoaderOption) (*Loader, error) {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.FileSystem == nil {
		lc.FileSystem = RealFileSystem{}
	}

	resolver := &Resolver{FileSystem: lc.FileSystem}
	files := resolver.ResolveFiles(serviceName, lc)

	v := viper.New()
	for k, val := range lc.Defaults {
		v.SetDefault(k, val)
	}

	if files.ConfigFile != "" && lc.FileSystem.Exists(files.ConfigFile) {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", files.ConfigFile, err)
		}
	} else {
		files.ConfigFile = ""
	}

	if files.EnvFile != "" && lc.FileSystem.Exists(files.EnvFile) {
		if err := lc.FileSystem.LoadEnv(files.EnvFile); err != nil {
			return nil, fmt.Errorf("loading env file %s: %w", files.EnvFile, err)
		}
	} else {
		files.EnvFile = ""
	}

	v.AutomaticEnv()
	bindEnvironment(v, os.Environ())

	return &Loader{serviceName: serviceName, files: files, v: v}, nil
}

// Files returns the config and env files the loader actually read.
func (l *Loader) Files() ResolvedFiles { return l.files }

// Unmarshal decodes the current configuration into cfg.
func (l *Loader) Unmarshal(cfg interface{}) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config for service %s: %w", l.serviceName, err)
	}
	return nil
}

// Watch invokes onChange every time the config file is rewritten. It is a
// no-op when no config file was found.
func (l *Loader) Watch(onChange func()) {
	if l.files.ConfigFile == "" {
		return
	}
	l.v.OnConfigChange(func(fsnotify.Event) {
		onChange()
	})
	l.v.WatchConfig()
}

// LoadConfig loads configuration for a service into cfg in one step.
func LoadConfig(serviceName string, cfg interface{}, opts ...LoaderOption) error {
	l, err := NewLoader(serviceName, opts...)
	if err != nil {
		return err
	}
	return l.Unmarshal(cfg)
}

// bindEnvironment maps UPPER_SNAKE variables onto every nested key spelling
// they could stand for, since viper cannot know where the nesting boundary is.
func bindEnvironment(v *viper.Viper, environ []string) {
	for _, env := range environ {
		key, value, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}
		for _, variant := range envKeyVariants(key) {
			v.Set(variant, value)
		}
	}
}

// envKeyVariants expands an environment key into candidate viper keys:
//
//	RESILIENCE_MAX_RETRY_COUNT -> resilience_max_retry_count, resilience.max.retry.count,
//	                              resilience.max_retry_count, resilience.max.retry_count, ...
func envKeyVariants(envKey string) []string {
	lower := strings.ToLower(envKey)
	parts := strings.Split(lower, "_")
	if len(parts) <= 1 {
		return []string{lower}
	}

	seen := make(map[string]bool)
	var variants []string
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			variants = append(variants, s)
		}
	}

	add(lower)
	add(strings.Join(parts, "."))
	for i := 1; i < len(parts); i++ {
		add(strings.Join(parts[:i], ".") + "." + strings.Join(parts[i:], "_"))
	}
	return variants
}
