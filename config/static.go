package config

import (
	"fmt"
	"io/ioutil"
	"path/filepath"
	"reflect"

	"github.com/creasty/defaults"
	yaml "gopkg.in/yaml.v2"
)

type (
	//StaticCfg is the container for other static config sections
	StaticCfg struct {
		API          APIStaticCfg         `yaml:"API"`
		Credentials  CredentialsStaticCfg `yaml:"Credentials"`
		Threats      ThreatsStaticCfg     `yaml:"Threats"`
		Display      DisplayStaticCfg     `yaml:"Display"`
		Log          LogStaticCfg         `yaml:"LogConfig"`
		UserConfig   UserCfgStaticCfg     `yaml:"UserConfig"`
		Version      string               `yaml:"-"`
		ExactVersion string               `yaml:"-"`
	}

	//APIStaticCfg contains the means for contacting the threat backend
	APIStaticCfg struct {
		BaseURL   string `yaml:"BaseURL" default:"http://localhost:8000"`
		Timeout   int    `yaml:"Timeout" default:"0"`
		UserAgent string `yaml:"UserAgent" default:"rita-threats"`
	}

	//CredentialsStaticCfg selects where the bearer token comes from.
	//Source is one of static, file or env
	CredentialsStaticCfg struct {
		Source    string `yaml:"Source" default:"file"`
		Token     string `yaml:"Token"`
		TokenFile string `yaml:"TokenFile" default:"$HOME/.rita-threats/token.yaml"`
		TokenEnv  string `yaml:"TokenEnv" default:"RITA_THREATS_TOKEN"`
	}

	//ThreatsStaticCfg holds one section per indicator kind
	ThreatsStaticCfg struct {
		URL    KindStaticCfg `yaml:"URL"`
		Hash   KindStaticCfg `yaml:"Hash"`
		Domain KindStaticCfg `yaml:"Domain"`
		IP     KindStaticCfg `yaml:"IP"`
	}

	//KindStaticCfg overrides the built in settings of an indicator kind.
	//Empty strings keep the built in endpoints and the default credential source
	KindStaticCfg struct {
		Enabled          bool   `yaml:"Enabled" default:"true"`
		Endpoint         string `yaml:"Endpoint"`
		CountEndpoint    string `yaml:"CountEndpoint"`
		CredentialSource string `yaml:"CredentialSource"`
	}

	//DisplayStaticCfg controls how much of a collection is shown at once
	DisplayStaticCfg struct {
		InitialLimit int `yaml:"InitialLimit" default:"50"`
		RevealStep   int `yaml:"RevealStep" default:"50"`
	}

	//LogStaticCfg contains the configuration for logging
	LogStaticCfg struct {
		LogLevel  int    `yaml:"LogLevel" default:"2"`
		LogPath   string `yaml:"LogPath" default:"$HOME/.rita-threats/logs"`
		LogToFile bool   `yaml:"LogToFile"`
	}

	//UserCfgStaticCfg contains settings which only affect the local user
	UserCfgStaticCfg struct {
		UpdateCheckFrequency int    `yaml:"UpdateCheckFrequency" default:"14"`
		StateFile            string `yaml:"StateFile" default:"$HOME/.rita-threats/state.yaml"`
	}
)

//For returns the section for the named kind
func (t *ThreatsStaticCfg) For(name string) (KindStaticCfg, bool) {
	switch name {
	case "url":
		return t.URL, true
	case "hash":
		return t.Hash, true
	case "domain":
		return t.Domain, true
	case "ip":
		return t.IP, true
	}
	return KindStaticCfg{}, false
}

// loadStaticConfig fills in the defaults and then overlays the config file
// at cfgPath, if one was given
func loadStaticConfig(cfgPath string, config *StaticCfg) error {
	var contents []byte
	if cfgPath != "" {
		var err error
		contents, err = ioutil.ReadFile(cfgPath)
		if err != nil {
			return err
		}
	}
	return parseStaticConfig(contents, config)
}

// parseStaticConfig parses the yaml contents over the defaults, expands
// environment variables and cleans file paths
func parseStaticConfig(cfgFile []byte, config *StaticCfg) error {
	if err := defaults.Set(config); err != nil {
		return err
	}

	if err := yaml.Unmarshal(cfgFile, config); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	// expand env variables, config is a pointer
	// so we have to call elem on the reflect value
	expandConfig(reflect.ValueOf(config).Elem())

	config.Credentials.TokenFile = cleanPath(config.Credentials.TokenFile)
	config.Log.LogPath = cleanPath(config.Log.LogPath)
	config.UserConfig.StateFile = cleanPath(config.UserConfig.StateFile)

	// grab the version constants set by the build process
	config.Version = Version
	config.ExactVersion = ExactVersion
	return nil
}

func cleanPath(path string) string {
	if path == "" {
		return path
	}
	return filepath.Clean(path)
}
