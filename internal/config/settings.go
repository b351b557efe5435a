package config

import (
	"os"
	"time"

	"github.com/pingcap/errors"
	"github.com/spf13/viper"
)

// Settings is the process-level configuration shared by every command.
type Settings struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	LogLevel       string        `mapstructure:"log_level"`
	LogFormat      string        `mapstructure:"log_format"`
	LogFile        string        `mapstructure:"log_file"`
	SampleInterval time.Duration `mapstructure:"sample_interval"`
}

// SetDefaults registers defaults and environment bindings on v.
// HOST and PORT are read without prefix, everything else as CRUNCH_*.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 5000)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("log_file", "")
	v.SetDefault("sample_interval", time.Second)

	v.SetEnvPrefix("crunch")
	v.AutomaticEnv()
	_ = v.BindEnv("host", "HOST")
	_ = v.BindEnv("port", "PORT")
}

// ReadFile loads cfgFile, or $HOME/.crunch.yaml when cfgFile is empty. A
// missing default file is not an error.
func ReadFile(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		return errors.Annotatef(v.ReadInConfig(), "read config %s failed", cfgFile)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	v.AddConfigPath(home)
	v.SetConfigType("yaml")
	v.SetConfigName(".crunch")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return errors.Annotate(err, "read config failed")
	}
	return nil
}

func Load(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, errors.Annotate(err, "decode settings failed")
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Settings) validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return errors.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}
	if s.SampleInterval < 100*time.Millisecond {
		return errors.Errorf("sample interval must be at least 100ms, got %s", s.SampleInterval)
	}
	switch s.LogFormat {
	case "console", "json":
	default:
		return errors.Errorf("unsupported log format: %s", s.LogFormat)
	}
	return nil
}
