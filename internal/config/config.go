// Package config loads golurectl settings from a YAML file, ALLURE_*
// environment variables and command line flags, in that order of precedence.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/robotomize/go-allure/internal/allure"
	"github.com/robotomize/go-allure/internal/objectstore"
)

var ErrInvalid = errors.New("invalid configuration")

//go:embed schema.json
var schemaData []byte

var (
	configSchema *jsonschema.Schema
	compileOnce  sync.Once
	compileErr   error
)

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Metrics struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type Labels struct {
	Suite  string   `yaml:"suite"`
	Tags   []string `yaml:"tags"`
	Layers []string `yaml:"layers"`
	// Custom labels as key:value pairs.
	Custom []string `yaml:"custom"`
}

type Publish struct {
	Provider           string `yaml:"provider"`
	Bucket             string `yaml:"bucket"`
	Prefix             string `yaml:"prefix"`
	Region             string `yaml:"region"`
	Endpoint           string `yaml:"endpoint"`
	AccessKey          string `yaml:"accessKey"`
	SecretKey          string `yaml:"secretKey"`
	SessionToken       string `yaml:"sessionToken"`
	PathStyle          bool   `yaml:"pathStyle"`
	Concurrency        int    `yaml:"concurrency"`
	GCPProject         string `yaml:"gcpProject"`
	GCPCredentialsFile string `yaml:"gcpCredentialsFile"`
	AzureAccount       string `yaml:"azureAccount"`
	AzureKey           string `yaml:"azureKey"`
	AzureEndpoint      string `yaml:"azureEndpoint"`
	AzureSASToken      string `yaml:"azureSasToken"`
}

type Config struct {
	ResultsDir       string  `yaml:"resultsDir"`
	InvocationDir    string  `yaml:"invocationDir"`
	Clean            bool    `yaml:"clean"`
	ForceAttachments bool    `yaml:"forceAttachments"`
	Dedup            string  `yaml:"dedup"`
	Log              Log     `yaml:"log"`
	Metrics          Metrics `yaml:"metrics"`
	Labels           Labels  `yaml:"labels"`
	Publish          Publish `yaml:"publish"`
}

func Default() Config {
	return Config{
		ResultsDir: "allure-results",
		Dedup:      "strict",
		Log:        Log{Level: "info", Format: "console"},
		Metrics:    Metrics{Path: "metrics.prom"},
		Publish:    Publish{Concurrency: 4},
	}
}

// Load reads the YAML file at path over the defaults. An empty path returns
// the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("os.ReadFile: %w", err)
	}

	if err = Parse(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}

// Parse validates a YAML document against the embedded schema and decodes it
// into cfg.
func Parse(data []byte, cfg *Config) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("yaml.Unmarshal: %w", err)
	}

	if doc == nil {
		return nil
	}

	if err := validate(doc); err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("yaml.Unmarshal: %w", err)
	}

	return nil
}

func compileSchema() error {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaData))
		if err != nil {
			compileErr = fmt.Errorf("unmarshal config schema: %w", err)
			return
		}

		compiler := jsonschema.NewCompiler()
		if err = compiler.AddResource("schema.json", doc); err != nil {
			compileErr = fmt.Errorf("add config schema resource: %w", err)
			return
		}

		configSchema, err = compiler.Compile("schema.json")
		if err != nil {
			compileErr = fmt.Errorf("compile config schema: %w", err)
		}
	})

	return compileErr
}

// validate checks a decoded YAML document. The document goes through JSON so
// the validator sees the same value types as for a JSON file.
func validate(doc any) error {
	if err := compileSchema(); err != nil {
		return err
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	v, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	if err = configSchema.Validate(v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	return nil
}

// ApplyEnv overlays ALLURE_* variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		switch strings.ToLower(strings.TrimSpace(getenv(key))) {
		case "1", "true", "yes", "y":
			*dst = true
		case "0", "false", "no", "n":
			*dst = false
		}
	}
	list := func(key string, dst *[]string) {
		if v := splitCSV(getenv(key)); len(v) > 0 {
			*dst = v
		}
	}

	str("ALLURE_RESULTS_DIR", &c.ResultsDir)
	str("ALLURE_INVOCATION_DIR", &c.InvocationDir)
	boolean("ALLURE_CLEAN", &c.Clean)
	boolean("ALLURE_FORCE_ATTACHMENTS", &c.ForceAttachments)
	str("ALLURE_DEDUP", &c.Dedup)
	str("ALLURE_LOG_LEVEL", &c.Log.Level)
	str("ALLURE_LOG_FORMAT", &c.Log.Format)
	boolean("ALLURE_METRICS_ENABLED", &c.Metrics.Enabled)
	str("ALLURE_METRICS_PATH", &c.Metrics.Path)
	str("ALLURE_SUITE", &c.Labels.Suite)
	list("ALLURE_TAGS", &c.Labels.Tags)
	list("ALLURE_LAYERS", &c.Labels.Layers)
	list("ALLURE_LABELS", &c.Labels.Custom)
	str("ALLURE_PUBLISH_PROVIDER", &c.Publish.Provider)
	str("ALLURE_PUBLISH_BUCKET", &c.Publish.Bucket)
	str("ALLURE_PUBLISH_PREFIX", &c.Publish.Prefix)
	str("ALLURE_PUBLISH_REGION", &c.Publish.Region)
	str("ALLURE_PUBLISH_ENDPOINT", &c.Publish.Endpoint)
	str("ALLURE_PUBLISH_ACCESS_KEY", &c.Publish.AccessKey)
	str("ALLURE_PUBLISH_SECRET_KEY", &c.Publish.SecretKey)
	str("ALLURE_PUBLISH_SESSION_TOKEN", &c.Publish.SessionToken)
	boolean("ALLURE_PUBLISH_PATH_STYLE", &c.Publish.PathStyle)
	str("ALLURE_PUBLISH_GCP_PROJECT", &c.Publish.GCPProject)
	str("ALLURE_PUBLISH_GCP_CREDENTIALS_FILE", &c.Publish.GCPCredentialsFile)
	str("ALLURE_PUBLISH_AZURE_ACCOUNT", &c.Publish.AzureAccount)
	str("ALLURE_PUBLISH_AZURE_KEY", &c.Publish.AzureKey)
	str("ALLURE_PUBLISH_AZURE_ENDPOINT", &c.Publish.AzureEndpoint)
	str("ALLURE_PUBLISH_AZURE_SAS_TOKEN", &c.Publish.AzureSASToken)

	if v, err := strconv.Atoi(strings.TrimSpace(getenv("ALLURE_PUBLISH_CONCURRENCY"))); err == nil && v > 0 {
		c.Publish.Concurrency = v
	}
}

// Validate checks the values flags and environment may have changed.
func (c Config) Validate() error {
	switch c.Dedup {
	case "strict", "warn":
	default:
		return fmt.Errorf("%w: dedup must be strict or warn, got %q", ErrInvalid, c.Dedup)
	}

	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: log format must be console or json, got %q", ErrInvalid, c.Log.Format)
	}

	if c.ResultsDir == "" {
		return fmt.Errorf("%w: results dir is required", ErrInvalid)
	}

	return nil
}

// AllureLabels turns the label settings into labels added to every test.
// Custom entries that are not a single key:value pair are ignored.
func (c Config) AllureLabels() []allure.Label {
	var labels []allure.Label
	if suite := strings.TrimSpace(c.Labels.Suite); suite != "" {
		labels = append(labels, allure.Label{Name: string(allure.LabelSuite), Value: suite})
	}

	for _, tag := range c.Labels.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			labels = append(labels, allure.Label{Name: string(allure.LabelTag), Value: tag})
		}
	}

	for _, layer := range c.Labels.Layers {
		if layer = strings.TrimSpace(layer); layer != "" {
			labels = append(labels, allure.Label{Name: string(allure.LabelLayer), Value: layer})
		}
	}

	for _, custom := range c.Labels.Custom {
		tokens := strings.Split(custom, ":")
		if len(tokens) != 2 {
			continue
		}

		name, value := strings.TrimSpace(tokens[0]), strings.TrimSpace(tokens[1])
		if name == "" || value == "" {
			continue
		}
		labels = append(labels, allure.Label{Name: name, Value: value})
	}

	return labels
}

// ObjectStore converts the publish settings for the objectstore package.
func (c Config) ObjectStore() objectstore.Config {
	return objectstore.Config{
		Provider:           c.Publish.Provider,
		Bucket:             c.Publish.Bucket,
		Prefix:             c.Publish.Prefix,
		Region:             c.Publish.Region,
		Endpoint:           c.Publish.Endpoint,
		AccessKey:          c.Publish.AccessKey,
		SecretKey:          c.Publish.SecretKey,
		SessionToken:       c.Publish.SessionToken,
		S3PathStyle:        c.Publish.PathStyle,
		GCPProject:         c.Publish.GCPProject,
		GCPCredentialsFile: c.Publish.GCPCredentialsFile,
		AzureAccount:       c.Publish.AzureAccount,
		AzureKey:           c.Publish.AzureKey,
		AzureEndpoint:      c.Publish.AzureEndpoint,
		AzureSASToken:      c.Publish.AzureSASToken,
	}
}

func splitCSV(value string) []string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}

	parts := strings.Split(trimmed, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if item := strings.TrimSpace(part); item != "" {
			out = append(out, item)
		}
	}

	return out
}
