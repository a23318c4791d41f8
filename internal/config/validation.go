package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/conneroisu/poolserve/internal/logging"
)

// ValidationError represents a configuration validation error with suggestions
type ValidationError struct {
	Field       string
	Value       interface{}
	Message     string
	Suggestions []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", ve.Field, ve.Message)
}

// ValidationResult holds the result of configuration validation
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []ValidationError
}

// HasErrors returns true if there are any validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings
func (vr *ValidationResult) HasWarnings() bool {
	return len(vr.Warnings) > 0
}

// String returns a formatted string of all validation issues
func (vr *ValidationResult) String() string {
	var builder strings.Builder

	if len(vr.Errors) > 0 {
		builder.WriteString("Validation errors:\n")
		for _, err := range vr.Errors {
			builder.WriteString(fmt.Sprintf("  - %s: %s\n", err.Field, err.Message))
			for _, suggestion := range err.Suggestions {
				builder.WriteString(fmt.Sprintf("    hint: %s\n", suggestion))
			}
		}
		builder.WriteString("\n")
	}

	if len(vr.Warnings) > 0 {
		builder.WriteString("Validation warnings:\n")
		for _, warning := range vr.Warnings {
			builder.WriteString(fmt.Sprintf("  - %s: %s\n", warning.Field, warning.Message))
			for _, suggestion := range warning.Suggestions {
				builder.WriteString(fmt.Sprintf("    hint: %s\n", suggestion))
			}
		}
	}

	return builder.String()
}

// ValidateConfigWithDetails performs comprehensive validation with detailed feedback
func ValidateConfigWithDetails(config *Config) *ValidationResult {
	result := &ValidationResult{
		Valid:    true,
		Errors:   []ValidationError{},
		Warnings: []ValidationError{},
	}

	validateServerConfigDetails(&config.Server, result)
	validateStaticConfigDetails(&config.Static, result)
	validateLiveReloadConfigDetails(config, result)
	validateLogConfigDetails(&config.Log, result)

	result.Valid = !result.HasErrors()

	return result
}

// Validate returns the first validation error, if any.
func (c *Config) Validate() error {
	result := ValidateConfigWithDetails(c)
	if result.HasErrors() {
		return &result.Errors[0]
	}
	return nil
}

func validateServerConfigDetails(config *ServerConfig, result *ValidationResult) {
	if config.Port == 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:       "server.port",
			Value:       config.Port,
			Message:     "port must be between 1 and 65535",
			Suggestions: []string{"Use a port between 1024-65535 for non-privileged access"},
		})
	} else if config.Port < 1024 {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:       "server.port",
			Value:       config.Port,
			Message:     fmt.Sprintf("port %d is privileged", config.Port),
			Suggestions: []string{"Binding may require elevated permissions"},
		})
	}

	if config.Host == "" {
		result.Errors = append(result.Errors, ValidationError{
			Field:       "server.host",
			Value:       config.Host,
			Message:     "host cannot be empty",
			Suggestions: []string{"Use 0.0.0.0 to listen on every interface or 127.0.0.1 for local only"},
		})
	} else if strings.ContainsAny(config.Host, " \t\r\n;&|$`<>\"'") {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "server.host",
			Value:   config.Host,
			Message: "host contains invalid characters",
		})
	}

	if config.Workers < 1 {
		result.Errors = append(result.Errors, ValidationError{
			Field:       "server.workers",
			Value:       config.Workers,
			Message:     "worker pool size must be greater than zero",
			Suggestions: []string{fmt.Sprintf("The default is %d workers", DefaultWorkers)},
		})
	}

	if config.ReadBufferSize < 64 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "server.read_buffer_size",
			Value:   config.ReadBufferSize,
			Message: "read buffer must be at least 64 bytes",
		})
	}
}

func validateStaticConfigDetails(config *StaticConfig, result *ValidationResult) {
	if strings.TrimSpace(config.RootDir) == "" {
		result.Errors = append(result.Errors, ValidationError{
			Field:       "static.root_dir",
			Value:       config.RootDir,
			Message:     "static root directory cannot be empty",
			Suggestions: []string{"Pass --dir <path> or set static.root_dir"},
		})
	} else if info, err := os.Stat(config.RootDir); err != nil || !info.IsDir() {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:       "static.root_dir",
			Value:       config.RootDir,
			Message:     "static root directory does not exist",
			Suggestions: []string{"Every static request will be answered with 404"},
		})
	}

	if config.NotFoundPage == "" || strings.Contains(config.NotFoundPage, "..") {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "static.not_found_page",
			Value:   config.NotFoundPage,
			Message: "not found page must be a file name inside the root directory",
		})
	}

	if config.SleepDelay < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "static.sleep_delay",
			Value:   config.SleepDelay,
			Message: "sleep delay cannot be negative",
		})
	}

	if config.CacheSize < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "static.cache_size",
			Value:   config.CacheSize,
			Message: "cache size cannot be negative",
		})
	}
	if config.CacheSize > 0 && config.CacheTTL <= 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "static.cache_ttl",
			Value:   config.CacheTTL,
			Message: "cache TTL must be positive when caching is enabled",
		})
	}
}

func validateLiveReloadConfigDetails(config *Config, result *ValidationResult) {
	if !config.LiveReload.Enabled {
		return
	}

	if config.LiveReload.Port == 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "live_reload.port",
			Value:   config.LiveReload.Port,
			Message: "live reload port must be between 1 and 65535",
		})
	} else if config.LiveReload.Port == config.Server.Port {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "live_reload.port",
			Value:   config.LiveReload.Port,
			Message: "live reload port must differ from server.port",
		})
	}

	if !config.Static.Watch {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:       "live_reload.enabled",
			Value:       true,
			Message:     "live reload has nothing to announce while static.watch is off",
			Suggestions: []string{"Enable static.watch (--watch)"},
		})
	}
}

func validateLogConfigDetails(config *LogConfig, result *ValidationResult) {
	if _, err := logging.ParseLevel(config.Level); err != nil {
		result.Errors = append(result.Errors, ValidationError{
			Field:       "log.level",
			Value:       config.Level,
			Message:     err.Error(),
			Suggestions: []string{"Use one of debug, info, warn, error"},
		})
	}

	if config.Format != "" && config.Format != "text" && config.Format != "json" {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "log.format",
			Value:   config.Format,
			Message: "log format must be text or json",
		})
	}
}
