package config

import (
	"os"
	"os/user"
	"path/filepath"
	"reflect"
)

// Version and ExactVersion are filled at compile time with the git version
// of rita-threats
var (
	Version      = "v0.0.0+dev"
	ExactVersion = "undefined"
)

const (
	userConfigPath   = ".rita-threats/config.yaml"
	systemConfigPath = "/etc/rita-threats/config.yaml"
)

type (
	//Config holds the configuration for the running system
	Config struct {
		R RunningCfg
		S StaticCfg
	}
)

// LoadConfig loads the config file at cfgPath. If cfgPath is empty the
// user config and then the system config are tried; if neither exists the
// defaults are used.
func LoadConfig(cfgPath string) (*Config, error) {
	if cfgPath == "" {
		cfgPath = defaultConfigPath()
	}

	config := new(Config)
	if err := loadStaticConfig(cfgPath, &config.S); err != nil {
		return config, err
	}

	if err := initRunningConfig(&config.S, &config.R); err != nil {
		return config, err
	}
	return config, nil
}

// defaultConfigPath returns the first config file found in order of
// precedence, or "" when only the defaults apply
func defaultConfigPath() string {
	if usr, err := user.Current(); err == nil {
		path := filepath.Join(usr.HomeDir, userConfigPath)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	if _, err := os.Stat(systemConfigPath); err == nil {
		return systemConfigPath
	}
	return ""
}

// expandConfig expands environment variables in config strings
func expandConfig(reflected reflect.Value) {
	for i := 0; i < reflected.NumField(); i++ {
		f := reflected.Field(i)
		// process sub configs
		if f.Kind() == reflect.Struct {
			expandConfig(f)
		} else if f.Kind() == reflect.String {
			f.SetString(os.ExpandEnv(f.String()))
		} else if f.Kind() == reflect.Slice && f.Type().Elem().Kind() == reflect.String {
			strs := f.Interface().([]string)
			for i, str := range strs {
				strs[i] = os.ExpandEnv(str)
			}
			f.Set(reflect.ValueOf(strs))
		}
	}
}
