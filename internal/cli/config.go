package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/mhjang/speech2text/internal/config"
)

// validConfigKeys lists all supported configuration keys.
var validConfigKeys = []string{
	config.KeyOutputDir,
	config.KeyBackend,
	config.KeyLanguage,
	config.KeyChunkDuration,
	config.KeyMaxRetries,
	config.KeyFailureTolerance,
	config.KeyParallel,
}

// ConfigCmd creates the config command with subcommands.
// The env parameter provides injectable dependencies for testing.
func ConfigCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long: `Manage persistent configuration settings.

Configuration is stored in ~/.config/speech2text/config.
Settings can also be overridden via environment variables.

Supported settings:
  output-dir         Default directory for output files (env: SPEECH2TEXT_OUTPUT_DIR)
  backend            Recognition backend: google, openai (env: SPEECH2TEXT_BACKEND)
  language           Default audio language (env: SPEECH2TEXT_LANGUAGE)
  chunk-duration     Chunk length in seconds or Go duration syntax
  max-retries        Recognition attempts per chunk
  failure-tolerance  Fraction of chunks allowed to fail (0-1)
  parallel           Max concurrent recognition requests`,
		Example: `  speech2text config set output-dir ~/Documents/transcripts
  speech2text config set backend openai
  speech2text config get language
  speech2text config list`,
	}

	cmd.AddCommand(configSetCmd(env))
	cmd.AddCommand(configGetCmd(env))
	cmd.AddCommand(configListCmd(env))

	return cmd
}

// configSetCmd creates the "config set" subcommand.
func configSetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Example: `  speech2text config set output-dir ~/Documents/transcripts
  speech2text config set chunk-duration 90`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(env, args[0], args[1])
		},
	}
}

// configGetCmd creates the "config get" subcommand.
func configGetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:     "get <key>",
		Short:   "Get a configuration value",
		Example: `  speech2text config get backend`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(env, args[0])
		},
	}
}

// configListCmd creates the "config list" subcommand.
func configListCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "List all configuration values",
		Example: `  speech2text config list`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigList(env)
		},
	}
}

// envFallbacks maps config keys to their environment variables.
var envFallbacks = map[string]string{
	config.KeyOutputDir: config.EnvOutputDir,
	config.KeyBackend:   config.EnvBackend,
	config.KeyLanguage:  config.EnvLanguage,
}

// runConfigSet handles the "config set" command.
func runConfigSet(env *Env, key, value string) error {
	if !isValidConfigKey(key) {
		return fmt.Errorf("unknown config key %q (valid keys: %v)", key, validConfigKeys)
	}

	if key == config.KeyOutputDir {
		if err := config.ValidOutputDir(value); err != nil {
			return fmt.Errorf("invalid output-dir: %w", err)
		}
	}

	if err := config.Save(key, value); err != nil {
		return err
	}

	fmt.Fprintf(env.Stderr, "Set %s = %s\n", key, value)
	return nil
}

// runConfigGet handles the "config get" command.
func runConfigGet(env *Env, key string) error {
	if !isValidConfigKey(key) {
		return fmt.Errorf("unknown config key %q (valid keys: %v)", key, validConfigKeys)
	}

	value, err := config.Get(key)
	if err != nil {
		return err
	}

	if value == "" {
		if envKey, ok := envFallbacks[key]; ok {
			value = env.Getenv(envKey)
		}
	}

	if value != "" {
		fmt.Fprintln(env.Stdout, value)
	}

	return nil
}

// runConfigList handles the "config list" command.
func runConfigList(env *Env) error {
	data, err := config.List()
	if err != nil {
		return err
	}

	for key, envKey := range envFallbacks {
		if _, ok := data[key]; ok {
			continue
		}
		if envVal := env.Getenv(envKey); envVal != "" {
			data[key] = envVal + " (from env)"
		}
	}

	if len(data) == 0 {
		fmt.Fprintln(env.Stdout, "No configuration set.")
		fmt.Fprintln(env.Stdout, "\nAvailable settings:")
		for _, key := range validConfigKeys {
			fmt.Fprintf(env.Stdout, "  %s\n", key)
		}
		return nil
	}

	for _, key := range validConfigKeys {
		if value, ok := data[key]; ok {
			fmt.Fprintf(env.Stdout, "%s=%s\n", key, value)
		}
	}

	return nil
}

// isValidConfigKey checks if a key is a valid configuration key.
func isValidConfigKey(key string) bool {
	return slices.Contains(validConfigKeys, key)
}
