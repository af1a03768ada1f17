package cmd

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/proxynas/proxynas/nas"
)

//go:embed search.schema.json
var searchSchemaJSON string

// searchSchema is the compiled JSON Schema for search YAML files.
var searchSchema = mustCompileSchema(searchSchemaJSON, "search.schema.json")

func mustCompileSchema(raw string, name string) *jsonschema.Schema {
	var schemaDoc any
	if err := json.Unmarshal([]byte(raw), &schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}
	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}

// SearchFile is the YAML search configuration accepted by --config.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type SearchFile struct {
	Space      nas.SearchSpace `yaml:"space"`
	NumSamples int             `yaml:"num_samples"`
	SampleSize int             `yaml:"sample_size"`
	Seed       *int64          `yaml:"seed"`
	Workers    int             `yaml:"workers"`
	Meta       bool            `yaml:"meta"`
	// Metrics maps a proxy name to its weight, either as a bare number or as
	// {weight: w, enabled: false}. When present, only the listed proxies run.
	Metrics      map[string]any `yaml:"metrics"`
	Data         string         `yaml:"data"`
	LabelColumns int            `yaml:"label_columns"`
	Output       string         `yaml:"output"`
}

// metricEntry is the long form of one metrics: entry.
type metricEntry struct {
	Weight  *float64 `mapstructure:"weight"`
	Enabled *bool    `mapstructure:"enabled"`
}

// SchemaError lists every schema violation found in a search file.
type SchemaError struct {
	Path       string
	Violations []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s does not match the search schema:\n  %s", e.Path, strings.Join(e.Violations, "\n  "))
}

// LoadSearchFile reads, schema-validates, and strictly decodes a search YAML file.
func LoadSearchFile(path string) (*SearchFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading search config: %w", err)
	}
	return parseSearchFile(path, data)
}

func parseSearchFile(path string, data []byte) (*SearchFile, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if doc == nil {
		return &SearchFile{}, nil
	}
	if violations := validateAgainstSchema(searchSchema, doc); len(violations) > 0 {
		return nil, &SchemaError{Path: path, Violations: violations}
	}

	// Typos must cause errors even where the schema is permissive.
	var f SearchFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return &f, nil
}

func validateAgainstSchema(schema *jsonschema.Schema, instance any) []string {
	err := schema.Validate(instance)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{fmt.Sprintf("schema: %v", err)}
	}
	var errs []string
	collectSchemaErrors(ve, &errs)
	return errs
}

func collectSchemaErrors(ve *jsonschema.ValidationError, errs *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/"
		if len(ve.InstanceLocation) > 0 {
			loc = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		*errs = append(*errs, fmt.Sprintf("%s: %s", loc, ve.Error()))
		return
	}
	for _, c := range ve.Causes {
		collectSchemaErrors(c, errs)
	}
}

// MetricSelection turns the metrics: section into the proxies to run, in
// standard order, and their weights. A nil selection means "all proxies".
func (f *SearchFile) MetricSelection() ([]nas.MetricName, nas.MetricWeights, error) {
	if len(f.Metrics) == 0 {
		return nil, nil, nil
	}
	weights := make(nas.MetricWeights, len(f.Metrics))
	enabled := make(map[nas.MetricName]bool, len(f.Metrics))
	for name, raw := range f.Metrics {
		metric := nas.MetricName(name)
		if !nas.IsValidMetric(name) {
			return nil, nil, fmt.Errorf("metrics: unknown metric %q", name)
		}
		switch v := raw.(type) {
		case int:
			weights[metric] = float64(v)
			enabled[metric] = true
		case float64:
			weights[metric] = v
			enabled[metric] = true
		case map[string]any:
			var entry metricEntry
			if err := mapstructure.Decode(v, &entry); err != nil {
				return nil, nil, fmt.Errorf("metrics: %s: %w", name, err)
			}
			if entry.Weight != nil {
				weights[metric] = *entry.Weight
			}
			enabled[metric] = entry.Enabled == nil || *entry.Enabled
		default:
			return nil, nil, fmt.Errorf("metrics: %s: expected a weight or {weight, enabled}, got %T", name, raw)
		}
	}
	if err := weights.Validate(); err != nil {
		return nil, nil, err
	}

	var names []nas.MetricName
	for _, m := range nas.StandardMetrics() {
		if enabled[m] {
			names = append(names, m)
		}
	}
	if len(names) == 0 {
		return nil, nil, fmt.Errorf("metrics: every listed metric is disabled")
	}
	return names, weights, nil
}
