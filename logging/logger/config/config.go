package config

import (
	"github.com/spf13/viper"
)

// Config configuration struct
type Config struct {
	Level      int    `json:"level" yaml:"level"`
	Format     string `json:"format" yaml:"format"`
	Output     string `json:"output" yaml:"output"`
	OutputFile string `json:"output_file" yaml:"output_file"`
	// SentryDSN enables forwarding of error level entries when set.
	SentryDSN string `json:"sentry_dsn" yaml:"sentry_dsn"`
}

// GetConfig returns the logger configuration
func GetConfig(v *viper.Viper) *Config {
	if !v.IsSet("logger") {
		return &Config{Level: 4, Format: "text", Output: "stdout"}
	}

	level := 4 // logrus.InfoLevel
	if v.IsSet("logger.level") {
		level = v.GetInt("logger.level")
	}

	return &Config{
		Level:      level,
		Format:     v.GetString("logger.format"),
		Output:     v.GetString("logger.output"),
		OutputFile: v.GetString("logger.output_file"),
		SentryDSN:  v.GetString("observes.sentry.endpoint"),
	}
}
