package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/prometheus/common/model"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/approutes/internal/errors"
	"github.com/vango-dev/approutes/internal/telemetry"
)

const (
	// ConfigFileName is the name of the JSON configuration file.
	ConfigFileName = "approutes.json"

	// DefaultNodeRoot is the default server output directory.
	DefaultNodeRoot = ".next/server"

	// DefaultClientRelativeRoot is where client assets live in the graph.
	DefaultClientRelativeRoot = ".next/client"

	// DefaultClientOutputRoot is where client assets are written.
	DefaultClientOutputRoot = ".next/static"

	// DefaultGraph is the default asset graph file.
	DefaultGraph = ".next/asset-graph.json"

	// DefaultManifest is the default server-path manifest file name.
	DefaultManifest = "server-paths.json"

	// DefaultConcurrency bounds concurrent tree building and emission.
	DefaultConcurrency = 16

	// DefaultCacheSize is the default number of memoized entries per cache.
	DefaultCacheSize = 1024

	// DefaultDebounce is the default watch debounce.
	DefaultDebounce = "100ms"

	// DefaultMetricsNamespace prefixes every exported metric.
	DefaultMetricsNamespace = "approutes"
)

// ConfigFileNames are the accepted configuration files, in lookup order.
var ConfigFileNames = []string{ConfigFileName, "approutes.yaml", "approutes.yml"}

// DefaultPageExtensions are the extensions recognized for convention files.
var DefaultPageExtensions = []string{"tsx", "ts", "jsx", "js"}

// Config represents the complete approutes configuration.
type Config struct {
	// AppDir is the app directory. Empty means app/ or src/app/.
	AppDir string `json:"appDir,omitempty" yaml:"appDir,omitempty"`

	// PageExtensions are the file extensions of convention files, without
	// the leading dot.
	PageExtensions []string `json:"pageExtensions,omitempty" yaml:"pageExtensions,omitempty"`

	// Build contains asset emission configuration.
	Build BuildConfig `json:"build,omitempty" yaml:"build,omitempty"`

	// Cache contains memoization configuration.
	Cache CacheConfig `json:"cache,omitempty" yaml:"cache,omitempty"`

	// Watch contains file watching configuration.
	Watch WatchConfig `json:"watch,omitempty" yaml:"watch,omitempty"`

	// S3 optionally sends emitted assets to a bucket.
	S3 S3Config `json:"s3,omitempty" yaml:"s3,omitempty"`

	// Metrics contains metrics export configuration.
	Metrics MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// BuildConfig contains emission settings.
type BuildConfig struct {
	// NodeRoot is the server output directory.
	NodeRoot string `json:"nodeRoot,omitempty" yaml:"nodeRoot,omitempty"`

	// ClientRelativeRoot is the client asset root within the asset graph.
	ClientRelativeRoot string `json:"clientRelativeRoot,omitempty" yaml:"clientRelativeRoot,omitempty"`

	// ClientOutputRoot is where client assets are written.
	ClientOutputRoot string `json:"clientOutputRoot,omitempty" yaml:"clientOutputRoot,omitempty"`

	// Graph is the asset graph file read by the emit command.
	Graph string `json:"graph,omitempty" yaml:"graph,omitempty"`

	// Concurrency bounds concurrent work. Zero means the default.
	Concurrency int `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`

	// Manifest is the server-path manifest file name within NodeRoot.
	Manifest string `json:"manifest,omitempty" yaml:"manifest,omitempty"`
}

// CacheConfig contains memoization settings.
type CacheConfig struct {
	// Size is the number of entries kept per cache.
	Size int `json:"size,omitempty" yaml:"size,omitempty"`
}

// WatchConfig contains file watching settings.
type WatchConfig struct {
	// Debounce is the quiet period before a change is handled (e.g. "100ms").
	Debounce string `json:"debounce,omitempty" yaml:"debounce,omitempty"`

	// Ignore contains patterns to ignore during watch.
	Ignore []string `json:"ignore,omitempty" yaml:"ignore,omitempty"`
}

// S3Config describes an S3 emission target.
type S3Config struct {
	Bucket   string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	Prefix   string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Region   string `json:"region,omitempty" yaml:"region,omitempty"`
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`

	// PathStyle is required by most S3-compatible stores.
	PathStyle bool `json:"pathStyle,omitempty" yaml:"pathStyle,omitempty"`
}

// MetricsConfig contains metrics export settings.
type MetricsConfig struct {
	// File receives metrics in the Prometheus text format after each
	// command. Empty disables export.
	File string `json:"file,omitempty" yaml:"file,omitempty"`

	// Namespace prefixes metric names.
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`

	// Subsystem goes between the namespace and the metric name.
	Subsystem string `json:"subsystem,omitempty" yaml:"subsystem,omitempty"`

	// Labels are added to every metric, e.g. {"project": "shop"}.
	Labels map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`

	// Buckets are the upper bounds, in seconds, of the operation duration
	// histogram. Empty uses the Prometheus defaults.
	Buckets []float64 `json:"buckets,omitempty" yaml:"buckets,omitempty"`

	// Tracer names the OpenTelemetry tracer spans are recorded with.
	Tracer string `json:"tracer,omitempty" yaml:"tracer,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		PageExtensions: append([]string(nil), DefaultPageExtensions...),
		Build: BuildConfig{
			NodeRoot:           DefaultNodeRoot,
			ClientRelativeRoot: DefaultClientRelativeRoot,
			ClientOutputRoot:   DefaultClientOutputRoot,
			Graph:              DefaultGraph,
			Concurrency:        DefaultConcurrency,
			Manifest:           DefaultManifest,
		},
		Cache: CacheConfig{
			Size: DefaultCacheSize,
		},
		Watch: WatchConfig{
			Debounce: DefaultDebounce,
		},
		Metrics: MetricsConfig{
			Namespace: DefaultMetricsNamespace,
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for approutes.json, approutes.yaml and approutes.yml in order.
func Load(dir string) (*Config, error) {
	if path, ok := find(dir); ok {
		return LoadFile(path)
	}
	return nil, errors.New("E121").
		WithDetail("No approutes.json or approutes.yaml found in " + dir).
		WithSuggestion("Create approutes.json, or run without a config to use the defaults")
}

// LoadFile reads configuration from the specified file path. Files ending
// in .yaml or .yml are parsed as YAML, anything else as JSON.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E121").
				WithDetail("No " + filepath.Base(path) + " found in " + filepath.Dir(path))
		}
		return nil, errors.New("E120").Wrap(err)
	}

	cfg := New()
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errors.New("E120").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			WithLocation(path, 0, 0).
			WithSuggestion("Check that " + filepath.Base(path) + " is valid " + formatName(path))
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path, as YAML when the
// path ends in .yaml or .yml.
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
		// Add newline at end of file
		data = append(data, '\n')
	}
	if err != nil {
		return errors.New("E120").Wrap(err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E120").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// SetDir sets the project directory of a config that was not loaded from
// a file, so relative paths resolve against it.
func (c *Config) SetDir(dir string) {
	c.configPath = filepath.Join(dir, ConfigFileName)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if len(c.PageExtensions) == 0 {
		c.PageExtensions = append([]string(nil), DefaultPageExtensions...)
	}

	// Build
	if c.Build.NodeRoot == "" {
		c.Build.NodeRoot = DefaultNodeRoot
	}
	if c.Build.ClientRelativeRoot == "" {
		c.Build.ClientRelativeRoot = DefaultClientRelativeRoot
	}
	if c.Build.ClientOutputRoot == "" {
		c.Build.ClientOutputRoot = DefaultClientOutputRoot
	}
	if c.Build.Graph == "" {
		c.Build.Graph = DefaultGraph
	}
	if c.Build.Concurrency == 0 {
		c.Build.Concurrency = DefaultConcurrency
	}
	if c.Build.Manifest == "" {
		c.Build.Manifest = DefaultManifest
	}

	if c.Cache.Size == 0 {
		c.Cache.Size = DefaultCacheSize
	}
	if c.Watch.Debounce == "" {
		c.Watch.Debounce = DefaultDebounce
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultMetricsNamespace
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if len(c.PageExtensions) == 0 {
		return errors.New("E122").
			WithDetail("pageExtensions must not be empty")
	}
	for _, ext := range c.PageExtensions {
		if ext == "" || strings.HasPrefix(ext, ".") || strings.ContainsAny(ext, "/\\") {
			return errors.New("E122").
				WithDetail(fmt.Sprintf("invalid page extension %q", ext)).
				WithSuggestion("List extensions without the leading dot, e.g. \"tsx\"")
		}
	}
	if c.Build.Concurrency < 0 {
		return errors.New("E122").
			WithDetail("build.concurrency must not be negative")
	}
	if c.Cache.Size < 0 {
		return errors.New("E122").
			WithDetail("cache.size must not be negative")
	}
	if d, err := time.ParseDuration(c.Watch.Debounce); err != nil || d < 0 {
		return errors.New("E122").
			WithDetail(fmt.Sprintf("invalid watch.debounce %q", c.Watch.Debounce)).
			WithSuggestion("Use a Go duration such as \"100ms\"")
	}
	if c.S3.Bucket != "" && c.S3.Region == "" && c.S3.Endpoint == "" {
		return errors.New("E122").
			WithDetail("s3.bucket requires s3.region or s3.endpoint")
	}
	return c.Metrics.validate()
}

func (m *MetricsConfig) validate() error {
	for _, name := range []string{m.Namespace, m.Subsystem} {
		if name != "" && !model.IsValidMetricName(model.LabelValue(name)) {
			return errors.New("E122").
				WithDetail(fmt.Sprintf("invalid metrics name prefix %q", name)).
				WithSuggestion("Use letters, digits and underscores only")
		}
	}
	for name := range m.Labels {
		if !model.LabelName(name).IsValid() || strings.HasPrefix(name, model.ReservedLabelPrefix) ||
			slices.Contains(telemetry.VariableLabels, name) {
			return errors.New("E122").
				WithDetail(fmt.Sprintf("invalid metrics label %q", name)).
				WithSuggestion(fmt.Sprintf("Label names must not start with \"__\" or be one of %s",
					strings.Join(telemetry.VariableLabels, ", ")))
		}
	}
	for i, bound := range m.Buckets {
		if bound <= 0 || (i > 0 && bound <= m.Buckets[i-1]) {
			return errors.New("E122").
				WithDetail(fmt.Sprintf("metrics.buckets must be positive and increasing, got %v", m.Buckets))
		}
	}
	return nil
}

// Extensions returns the page extensions in the joined form used by the
// tree builder ("tsx,ts,jsx,js").
func (c *Config) Extensions() string {
	return strings.Join(c.PageExtensions, ",")
}

// Debounce returns the parsed watch debounce, or the default when it is
// malformed.
func (c *Config) Debounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d < 0 {
		d, _ = time.ParseDuration(DefaultDebounce)
	}
	return d
}

// HasS3 returns true if emission targets an S3 bucket.
func (c *Config) HasS3() bool {
	return c.S3.Bucket != ""
}

// ProjectPath resolves p against the project directory.
func (c *Config) ProjectPath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir(), p)
}

// AppDirPath returns the absolute path to the configured app directory,
// or "" when it is auto-detected.
func (c *Config) AppDirPath() string {
	return c.ProjectPath(c.AppDir)
}

// NodeRootPath returns the absolute path to the server output directory.
func (c *Config) NodeRootPath() string {
	return c.ProjectPath(c.Build.NodeRoot)
}

// ClientRelativeRootPath returns the absolute client root within the graph.
func (c *Config) ClientRelativeRootPath() string {
	return c.ProjectPath(c.Build.ClientRelativeRoot)
}

// ClientOutputRootPath returns the absolute client output directory.
func (c *Config) ClientOutputRootPath() string {
	return c.ProjectPath(c.Build.ClientOutputRoot)
}

// GraphPath returns the absolute path to the asset graph file.
func (c *Config) GraphPath() string {
	return c.ProjectPath(c.Build.Graph)
}

// ManifestPath returns the absolute path to the server-path manifest.
func (c *Config) ManifestPath() string {
	return filepath.Join(c.NodeRootPath(), c.Build.Manifest)
}

// MetricsFilePath returns the absolute metrics file path, or "".
func (c *Config) MetricsFilePath() string {
	return c.ProjectPath(c.Metrics.File)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, ok := find(dir)
	return ok
}

func find(dir string) (string, bool) {
	for _, name := range ConfigFileNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing a config file, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E121").
				WithDetail("No approutes.json found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the nearest project root
// above the working directory. Without a config file it returns the
// defaults rooted at the working directory.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		cfg := New()
		cfg.SetDir(wd)
		return cfg, nil
	}

	return Load(root)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func formatName(path string) string {
	if isYAML(path) {
		return "YAML"
	}
	return "JSON"
}
