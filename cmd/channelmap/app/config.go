package app

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Reconciliation defaults
	DataDir           string
	AntibodiesPath    string
	Style             string
	Strategy          string
	ChannelsPerCycle  int
	Concurrency       int
	StrictDuplicates  bool
	AllowMissingImage bool

	// Logging configuration. LogLevel holds only the explicit --log-level
	// flag; the environment fallback is kept apart so -v/-q can outrank it.
	LogLevel    string
	LogFormat   string
	LogOutput   string
	logLevelEnv string
}

// LoadConfig loads configuration from all sources in order of precedence:
//  1. Command-line flags (handled by cobra, applied via UpdateFromFlags)
//  2. Environment variables (CHANNELMAP_* prefix)
//  3. .env files
//  4. Config file (~/.channelmap.yaml or ./.channelmap.yaml)
//  5. Defaults
func LoadConfig() (*Config, error) {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	// Set up Viper for environment variables
	viper.SetEnvPrefix("CHANNELMAP")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	// Try to read config file if it exists
	configFile := viper.GetString("config")
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		// Search for config in standard locations
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.AddConfigPath(".")
			viper.SetConfigType("yaml")
			viper.SetConfigName(".channelmap")
		}
	}

	// Read config file (ignore error if not found)
	_ = viper.ReadInConfig()

	// Build config from viper
	config := &Config{
		// Global flags (may be overridden by cobra flags later)
		Verbose: viper.GetBool("verbose"),
		Quiet:   viper.GetBool("quiet"),
		NoColor: viper.GetBool("no_color"),
		Format:  viper.GetString("format"),

		// Config file
		ConfigFile: viper.ConfigFileUsed(),

		// Reconciliation defaults
		DataDir:           viper.GetString("data_dir"),
		AntibodiesPath:    viper.GetString("antibodies_path"),
		Style:             viper.GetString("style"),
		Strategy:          viper.GetString("strategy"),
		ChannelsPerCycle:  viper.GetInt("channels_per_cycle"),
		Concurrency:       viper.GetInt("concurrency"),
		StrictDuplicates:  viper.GetBool("strict_duplicates"),
		AllowMissingImage: viper.GetBool("allow_missing_image"),

		// Logging configuration
		LogFormat: getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", "stderr"),

		logLevelEnv: viper.GetString("log_level"),
	}

	// LOG_LEVEL without the prefix is honored too; the bare name is what
	// the library's own env handling reads.
	if config.logLevelEnv == "" {
		config.logLevelEnv = os.Getenv("LOG_LEVEL")
	}

	return config, nil
}

// UpdateFromFlags updates config values from parsed command flags. This
// should be called after cobra parses flags to ensure flag values take
// precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// loadEnvFiles loads environment variables from .env files. Real
// environment variables are never overridden, and godotenv keeps the first
// value it sees, so .env.local wins over .env.
func loadEnvFiles() {
	envFiles := []string{
		".env.local",
		".env",
	}

	for _, envFile := range envFiles {
		_ = godotenv.Load(envFile)
	}
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
