package cmd

import (
	"fmt"
	"reflect"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/tunecast/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long:  `Commands for managing tunecast configuration.`,
}

var configDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump the default configuration",
	Long: `Dump the default configuration values in YAML format.

This shows all available configuration options with their default values.
You can redirect this output to a file to create a configuration template:

  tunecast config dump > config.yaml

Configuration can be set via:
  - Config file (.tunecast.yaml, /etc/tunecast/config.yaml)
  - Environment variables (TUNECAST_SERVER_PORT, TUNECAST_STORAGE_TEMP_DIR, etc.)
  - Command-line flags (for some options)

Environment variables use the TUNECAST_ prefix and underscores for nesting.
Example: server.port -> TUNECAST_SERVER_PORT`,
	RunE: runConfigDump,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configDumpCmd)
}

// toMap converts a config struct to a map keyed by mapstructure tags,
// formatting durations for human readability.
func toMap(v any) map[string]any {
	result := make(map[string]any)
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		key := fieldType.Tag.Get("mapstructure")
		if key == "" {
			key = fieldType.Name
		}

		switch fv := field.Interface().(type) {
		case time.Duration:
			result[key] = fv.String()
		default:
			if field.Kind() == reflect.Struct {
				result[key] = toMap(field.Interface())
			} else {
				result[key] = field.Interface()
			}
		}
	}
	return result
}

func runConfigDump(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	yamlData, err := yaml.Marshal(toMap(cfg))
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	fmt.Println("# tunecast Configuration File")
	fmt.Println("# ===========================")
	fmt.Println("#")
	fmt.Println("# All values shown below are defaults.")
	fmt.Println("# Duration format: 50ms, 30s, 5m, 1h")
	fmt.Println("#")
	fmt.Println("# Environment variable overrides:")
	fmt.Println("#   TUNECAST_SERVER_HOST, TUNECAST_SERVER_PORT")
	fmt.Println("#   TUNECAST_STORAGE_TEMP_DIR, TUNECAST_STORAGE_ORPHAN_MAX_AGE")
	fmt.Println("#   TUNECAST_RELAY_WARMUP_THRESHOLD, TUNECAST_RELAY_MAX_SESSIONS")
	fmt.Println("#   TUNECAST_LOGGING_LEVEL, TUNECAST_LOGGING_FORMAT")
	fmt.Println("#   etc.")
	fmt.Println("#")
	fmt.Println("")
	fmt.Print(string(yamlData))

	return nil
}
