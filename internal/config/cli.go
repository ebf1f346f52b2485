package config

import (
	"flag"
	"fmt"
	"io"
)

// CLIFlags holds command-line overrides. Nil fields were not set on the
// command line and leave the loaded value untouched.
type CLIFlags struct {
	ConfigPath *string
	EnvFile    *string
	Port       *string
	LogLevel   *string
	Path       *string
}

// ParseFlags parses command-line arguments (without the program name).
func ParseFlags(args []string) (CLIFlags, error) {
	fs := flag.NewFlagSet("bbwebhook", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configPath, envFile, port, logLevel, path string
	)
	fs.StringVar(&configPath, "config", "", "path to YAML config file")
	fs.StringVar(&configPath, "c", "", "path to YAML config file (shorthand)")
	fs.StringVar(&envFile, "env-file", "", "path to dotenv file")
	fs.StringVar(&port, "port", "", "HTTP listen port")
	fs.StringVar(&port, "p", "", "HTTP listen port (shorthand)")
	fs.StringVar(&logLevel, "log-level", "", "log level: debug | info | warn | error")
	fs.StringVar(&path, "path", "", "webhook route")

	if err := fs.Parse(args); err != nil {
		return CLIFlags{}, fmt.Errorf("parse flags: %w", err)
	}

	var flags CLIFlags
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "config", "c":
			flags.ConfigPath = &configPath
		case "env-file":
			flags.EnvFile = &envFile
		case "port", "p":
			flags.Port = &port
		case "log-level":
			flags.LogLevel = &logLevel
		case "path":
			flags.Path = &path
		}
	})
	return flags, nil
}

// LoadWithCLI loads configuration with CLI flags applied on top of the
// defaults < YAML < .env < ENV hierarchy. It returns the YAML path used.
func LoadWithCLI(flags CLIFlags) (*Config, string, error) {
	yamlPath := DefaultConfigFile
	if flags.ConfigPath != nil {
		yamlPath = *flags.ConfigPath
	}
	envPath := DefaultEnvFile
	if flags.EnvFile != nil {
		envPath = *flags.EnvFile
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, yamlPath, fmt.Errorf("config yaml: %w", err)
	}
	if err := loadDotEnv(envPath); err != nil {
		return nil, yamlPath, fmt.Errorf("config dotenv: %w", err)
	}
	loadEnv(&cfg)
	applyCLI(&cfg, flags)

	if err := validate(&cfg); err != nil {
		return nil, yamlPath, fmt.Errorf("config validate: %w", err)
	}
	return &cfg, yamlPath, nil
}

func applyCLI(cfg *Config, flags CLIFlags) {
	if flags.Port != nil {
		cfg.Server.Port = *flags.Port
	}
	if flags.LogLevel != nil {
		cfg.Logging.Level = *flags.LogLevel
	}
	if flags.Path != nil {
		cfg.Server.Path = *flags.Path
	}
}
