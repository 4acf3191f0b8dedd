package log

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/titanous/json5"
)

var (
	// ErrUnknownConfigFormat indicates a config file extension that is not
	// YAML, JSON, or JSON5.
	ErrUnknownConfigFormat = errors.New("unknown config format")
	// ErrReadConfig indicates a config file could not be read or decoded.
	ErrReadConfig = errors.New("read config")
)

// FileConfig is the on-disk form of a [Config].
type FileConfig struct {
	Syslog     *SyslogFileConfig `json:"syslog,omitempty"     yaml:"syslog,omitempty"     jsonschema:"remote syslog collector; omit to disable mirroring"`
	Level      string            `json:"level,omitempty"      yaml:"level,omitempty"      jsonschema:"local threshold"`
	Color      string            `json:"color,omitempty"      yaml:"color,omitempty"      jsonschema:"ANSI color framing of local records"`
	LineEnding string            `json:"lineEnding,omitempty" yaml:"lineEnding,omitempty" jsonschema:"terminator of local records"`
}

// SyslogFileConfig holds the syslog destination of a [FileConfig].
type SyslogFileConfig struct {
	Host   string `json:"host"             yaml:"host"             jsonschema:"collector hostname or numeric address"`
	Origin string `json:"origin,omitempty" yaml:"origin,omitempty" jsonschema:"hostname reported in each message"`
	Port   uint16 `json:"port,omitempty"   yaml:"port,omitempty"   jsonschema:"collector UDP port"`
}

// LoadFile reads a config file. The format follows the extension: .yaml
// and .yml are decoded as YAML, .json and .json5 as JSON5.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Config path from CLI flag is expected.
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadConfig, err)
	}

	return DecodeFile(data, strings.TrimPrefix(filepath.Ext(path), "."))
}

// DecodeFile decodes config data in the given format ("yaml", "yml",
// "json", or "json5"). Unknown YAML keys are rejected.
func DecodeFile(data []byte, format string) (*FileConfig, error) {
	var fc FileConfig

	switch strings.ToLower(format) {
	case "yaml", "yml":
		err := yaml.UnmarshalWithOptions(data, &fc, yaml.Strict())
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrReadConfig, err)
		}

	case "json", "json5":
		err := json5.Unmarshal(data, &fc)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrReadConfig, err)
		}

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownConfigFormat, format)
	}

	return &fc, nil
}

// FileConfigSchema returns the JSON Schema describing [FileConfig].
func FileConfigSchema() (*jsonschema.Schema, error) {
	schema, err := jsonschema.For[FileConfig](nil)
	if err != nil {
		return nil, fmt.Errorf("build config schema: %w", err)
	}

	schema.Title = "emblog config"

	enums := map[string][]string{
		"level":      GetAllLevelStrings(),
		"color":      colorModes(),
		"lineEnding": lineEndingNames(),
	}

	for name, values := range enums {
		prop, ok := schema.Properties[name]
		if !ok {
			continue
		}

		for _, v := range values {
			prop.Enum = append(prop.Enum, v)
		}
	}

	return schema, nil
}

func configExtensions() []string {
	return []string{"yaml", "yml", "json", "json5"}
}
