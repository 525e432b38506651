package common

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Supported values of the enumerated configuration fields
var (
	Engines       = []string{"maple", "sqlite"}
	Codecs        = []string{"json", "gob", "yaml"}
	OutputFormats = []string{"text", "json", "yaml"}
)

// StoreConfig holds all configuration parameters of the dstore CLI
type StoreConfig struct {
	// Environment location and lifetime
	DataDir      string `json:"data_dir" yaml:"data_dir"`
	Temporary    bool   `json:"temporary" yaml:"temporary"`
	DeleteOnExit bool   `json:"delete_on_exit" yaml:"delete_on_exit"`

	// Storage engine
	Engine    string `json:"engine" yaml:"engine"`
	NumShards int    `json:"shards" yaml:"shards"`

	// Encoding of keys and values
	Codec string `json:"codec" yaml:"codec"`

	// Cache sizing of persistent environments
	CacheDivisor int   `json:"cache_divisor" yaml:"cache_divisor"`
	CacheSize    int64 `json:"cache_size" yaml:"cache_size"`

	// Logging and output
	LogLevel string `json:"log_level" yaml:"log_level"`
	Output   string `json:"output" yaml:"output"`
}

// Validate checks that all enumerated fields hold supported values
func (c *StoreConfig) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data directory must not be empty")
	}
	if !slices.Contains(Engines, c.Engine) {
		return fmt.Errorf("invalid engine: %s. must be one of %s", c.Engine, strings.Join(Engines, ", "))
	}
	if !slices.Contains(Codecs, c.Codec) {
		return fmt.Errorf("invalid codec: %s. must be one of %s", c.Codec, strings.Join(Codecs, ", "))
	}
	if !slices.Contains(OutputFormats, c.Output) {
		return fmt.Errorf("invalid output format: %s. must be one of %s", c.Output, strings.Join(OutputFormats, ", "))
	}
	if c.CacheDivisor <= 0 {
		return fmt.Errorf("cache divisor must be positive, got %d", c.CacheDivisor)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache size must not be negative, got %d", c.CacheSize)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// String returns a formatted string representation of the configuration
func (c *StoreConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Environment")
	addField("Data Directory", c.DataDir)
	if c.Temporary {
		addField("Policy", "temporary")
		addField("Delete On Exit", strconv.FormatBool(c.DeleteOnExit))
	} else {
		addField("Policy", "persistent")
		if c.CacheSize > 0 {
			addField("Cache Size", fmt.Sprintf("%d bytes", c.CacheSize))
		} else {
			addField("Cache Size", fmt.Sprintf("auto (free heap / %d)", c.CacheDivisor))
		}
	}

	addSection("Storage")
	addField("Engine", c.Engine)
	if c.Engine == "maple" {
		shards := "auto"
		if c.NumShards > 0 {
			shards = strconv.Itoa(c.NumShards)
		}
		addField("Shards", shards)
	}
	addField("Codec", c.Codec)

	addSection("Logging")
	addField("Log Level", c.LogLevel)
	addField("Output", c.Output)

	return sb.String()
}
