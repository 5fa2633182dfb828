package archetypal

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/samuelduchesne/archetypal-core/config"
	"github.com/samuelduchesne/archetypal-core/schema"
	"github.com/samuelduchesne/archetypal-core/units"
)

// Config configures a Session.
//
//	schema:
//	  path: ${EPLUS_DIR}/Energy+.schema.epJSON
//	  format: epjson
//	  watch: true
//	  units:
//	    - {unit: "Btu/s", family: power, factor: 1055.05585262}
//	parse:
//	  workers: 4
//	  accelerated: true
//	log:
//	  level: debug
//	  format: json
type Config struct {
	Schema SchemaConfig `yaml:"schema"`
	Parse  ParseConfig  `yaml:"parse"`
	Log    LogConfig    `yaml:"log"`
}

// DefaultConfig returns the configuration used for fields a file leaves out.
func DefaultConfig() Config {
	return Config{Log: LogConfig{Level: "info", Format: "text"}}
}

// LoadConfig reads a YAML configuration file over DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if err := config.Load(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Schema.Validate(); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	if err := c.Parse.Validate(); err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}

// SchemaConfig locates the schema file.
type SchemaConfig struct {
	Path string `yaml:"path"`
	// Format is auto, json, yaml or epjson.
	Format string `yaml:"format"`
	// Watch reloads the schema when the file changes.
	Watch bool `yaml:"watch"`
	// Units extends the standard unit vocabulary.
	Units []UnitConfig `yaml:"units"`
}

// UnitConfig defines a unit outside the standard vocabulary:
// base = magnitude*factor + offset in the family's base unit.
type UnitConfig struct {
	Unit   string  `yaml:"unit"`
	Family string  `yaml:"family"`
	Factor float64 `yaml:"factor"`
	Offset float64 `yaml:"offset"`
}

// Validate validates a unit definition.
func (c UnitConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Unit, validation.Required),
		validation.Field(&c.Family, validation.Required),
		validation.Field(&c.Factor, validation.Required),
	)
}

// Validate validates the schema configuration.
func (c *SchemaConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Format, validation.In("auto", "json", "yaml", "yml", "epjson")),
		validation.Field(&c.Units),
	)
}

func (c *SchemaConfig) loadOpt() (schema.LoadOpt, error) {
	f, _ := schema.ParseFormat(c.Format)
	opt := schema.LoadOpt{Format: f}
	if len(c.Units) == 0 {
		return opt, nil
	}
	defs := make([]units.Definition, len(c.Units))
	for i, u := range c.Units {
		defs[i] = units.Definition{Unit: units.Unit(u.Unit), Family: units.Family(u.Family), Factor: u.Factor, Offset: u.Offset}
	}
	vocab, err := units.Standard().Extend(defs...)
	if err != nil {
		return schema.LoadOpt{}, err
	}
	opt.Units = vocab
	return opt, nil
}

// ParseConfig holds the document parsing defaults.
type ParseConfig struct {
	Workers     int   `yaml:"workers"`
	Accelerated bool  `yaml:"accelerated"`
	MaxBytes    int64 `yaml:"max_bytes"`
	MaxFields   int   `yaml:"max_fields"`
}

// Validate validates the parse configuration.
func (c *ParseConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Workers, validation.Min(0)),
		validation.Field(&c.MaxBytes, validation.Min(int64(0))),
		validation.Field(&c.MaxFields, validation.Min(0)),
	)
}

func (c *ParseConfig) opt() ParseOpt {
	return ParseOpt{
		Accelerated: c.Accelerated,
		Workers:     c.Workers,
		MaxBytes:    c.MaxBytes,
		MaxFields:   c.MaxFields,
	}
}

// LogConfig selects the session logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Validate validates the log configuration.
func (c *LogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Level, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.Format, validation.In("text", "json")),
	)
}
