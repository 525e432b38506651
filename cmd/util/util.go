package util

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ValentinKolb/dStore/lib/codec"
	"github.com/ValentinKolb/dStore/lib/common"
	"github.com/ValentinKolb/dStore/lib/db"
	"github.com/ValentinKolb/dStore/lib/db/engines/maple"
	"github.com/ValentinKolb/dStore/lib/db/engines/sqlite"
	"github.com/ValentinKolb/dStore/lib/store/estore"
	"github.com/joho/godotenv"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

var log = logger.GetLogger("cmd")

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// --------------------------------------------------------------------------
// Configuration
// --------------------------------------------------------------------------

// SetupStoreFlags adds the environment, engine and output flags to a command
func SetupStoreFlags(cmd *cobra.Command) {
	key := "data-dir"
	cmd.PersistentFlags().String(key, "data", WrapString("Directory of the storage environment, created if it does not exist"))

	key = "engine"
	cmd.PersistentFlags().String(key, "maple", WrapString("Storage engine to use (maple, sqlite)"))

	key = "shards"
	cmd.PersistentFlags().Int(key, 0, WrapString("Number of shards per store for the maple engine (0 = number of CPUs)"))

	key = "codec"
	cmd.PersistentFlags().String(key, codec.Default, WrapString("Encoding of keys and values (json, gob, yaml). A store must always be opened with the codec it was created with"))

	key = "temporary"
	cmd.PersistentFlags().Bool(key, false, WrapString("Use the temporary policy: stores are not durable and discarded when closed"))

	key = "delete-on-exit"
	cmd.PersistentFlags().Bool(key, false, WrapString("Delete the data directory when the command exits (only with --temporary)"))

	key = "cache-divisor"
	cmd.PersistentFlags().Int(key, estore.DefaultCacheDivisor, WrapString("Persistent environments use 1/divisor of the free heap as cache"))

	key = "cache-size"
	cmd.PersistentFlags().Int64(key, 0, WrapString("Absolute cache size in bytes, overrides --cache-divisor (0 = auto)"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "info", WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	key = "output"
	cmd.PersistentFlags().StringP(key, "o", "text", WrapString("Output format of the results (text, json, yaml)"))
}

// InitConfig initializes configuration from .env files and environment variables.
// The format of the environment variables is DSTORE_<flag> (e.g. DSTORE_DATA_DIR=/tmp/ds).
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("dstore")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// GetStoreConfig reads and validates the configuration from viper
func GetStoreConfig() (*common.StoreConfig, error) {
	conf := &common.StoreConfig{
		DataDir:      viper.GetString("data-dir"),
		Temporary:    viper.GetBool("temporary"),
		DeleteOnExit: viper.GetBool("delete-on-exit"),
		Engine:       viper.GetString("engine"),
		NumShards:    viper.GetInt("shards"),
		Codec:        viper.GetString("codec"),
		CacheDivisor: viper.GetInt("cache-divisor"),
		CacheSize:    viper.GetInt64("cache-size"),
		LogLevel:     viper.GetString("log-level"),
		Output:       viper.GetString("output"),
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// --------------------------------------------------------------------------
// Factory
// --------------------------------------------------------------------------

// NewEngine creates the storage engine selected by the configuration
func NewEngine(conf *common.StoreConfig) (db.Engine, error) {
	switch conf.Engine {
	case "maple":
		return maple.NewEngine(&maple.Options{NumShards: conf.NumShards}), nil
	case "sqlite":
		return sqlite.NewEngine(), nil
	default:
		return nil, fmt.Errorf("invalid engine %s", conf.Engine)
	}
}

// OpenFactory creates the string store factory described by the configuration
func OpenFactory(conf *common.StoreConfig) (*estore.Factory[string, string], error) {
	engine, err := NewEngine(conf)
	if err != nil {
		return nil, err
	}
	c, err := codec.ByName(conf.Codec)
	if err != nil {
		return nil, err
	}

	opts := &estore.Options{
		Engine:       engine,
		Codec:        c,
		CacheDivisor: conf.CacheDivisor,
		CacheSize:    conf.CacheSize,
	}
	if conf.Temporary {
		return estore.NewTemporaryFactory[string, string](conf.DataDir, conf.DeleteOnExit, opts), nil
	}
	if conf.DeleteOnExit {
		log.Warningf("--delete-on-exit is ignored for persistent environments")
	}
	return estore.NewPersistentFactory[string, string](conf.DataDir, opts), nil
}

// WithFactory opens the configured factory, runs fn and closes the factory afterwards.
// SIGINT and SIGTERM tear the environment down through the factory's coordinator before exiting.
func WithFactory(fn func(f *estore.Factory[string, string]) error) error {
	conf, err := GetStoreConfig()
	if err != nil {
		return err
	}
	f, err := OpenFactory(conf)
	if err != nil {
		return err
	}
	coordinator := f.Coordinator()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})
	defer func() {
		signal.Stop(sigs)
		close(done)
	}()

	go func() {
		select {
		case sig := <-sigs:
			log.Warningf("received %s, shutting down", sig)
			if err := coordinator.Run(); err != nil {
				log.Errorf("shutdown failed: %v", err)
			}
			os.Exit(1)
		case <-done:
		}
	}()

	runErr := fn(f)
	if err := f.Close(); err != nil {
		log.Errorf("shutdown failed: %v", err)
		return errors.Join(runErr, err)
	}
	return runErr
}

// --------------------------------------------------------------------------
// Output
// --------------------------------------------------------------------------

// Print writes a command result in the configured output format. text is used for
// the text format, v is marshalled for json and yaml.
func Print(cmd *cobra.Command, text string, v any) error {
	w := cmd.OutOrStdout()
	switch viper.GetString("output") {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(v)
	default:
		_, err := fmt.Fprintln(w, text)
		return err
	}
}
