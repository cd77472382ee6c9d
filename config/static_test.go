package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const staticConfigParserTestConfig = `
API:
    BaseURL: https://intel.example.com:8443/api
    Timeout: 30
    UserAgent: soc-console
Credentials:
    Source: env
    TokenEnv: SOC_TOKEN
    TokenFile: /home/analyst/.rita-threats/token.yaml
Threats:
    URL:
        Enabled: true
    Hash:
        Enabled: true
        CredentialSource: file
    Domain:
        Enabled: true
        Endpoint: /v2/threat_domains
    IP:
        Enabled: false
Display:
    InitialLimit: 25
    RevealStep: 100
LogConfig:
    LogLevel: 3
    LogPath: /var/lib/rita-threats/logs
    LogToFile: true
UserConfig:
    UpdateCheckFrequency: 7
    StateFile: /var/lib/rita-threats/state.yaml
`

var testConfigFullExp = StaticCfg{
	API: APIStaticCfg{
		BaseURL:   "https://intel.example.com:8443/api",
		Timeout:   30,
		UserAgent: "soc-console",
	},
	Credentials: CredentialsStaticCfg{
		Source:    "env",
		TokenFile: "/home/analyst/.rita-threats/token.yaml",
		TokenEnv:  "SOC_TOKEN",
	},
	Threats: ThreatsStaticCfg{
		URL:    KindStaticCfg{Enabled: true},
		Hash:   KindStaticCfg{Enabled: true, CredentialSource: "file"},
		Domain: KindStaticCfg{Enabled: true, Endpoint: "/v2/threat_domains"},
		IP:     KindStaticCfg{Enabled: false},
	},
	Display: DisplayStaticCfg{
		InitialLimit: 25,
		RevealStep:   100,
	},
	Log: LogStaticCfg{
		LogLevel:  3,
		LogPath:   "/var/lib/rita-threats/logs",
		LogToFile: true,
	},
	UserConfig: UserCfgStaticCfg{
		UpdateCheckFrequency: 7,
		StateFile:            "/var/lib/rita-threats/state.yaml",
	},
}

// TestParseStaticConfig ensures that a yaml config
// string is correctly converted into a StaticCfg struct.
func TestParseStaticConfig(t *testing.T) {
	config := &StaticCfg{}
	err := parseStaticConfig([]byte(staticConfigParserTestConfig), config)

	// We are not testing the version setting ensure they are equal
	testConfigFullExp.Version = config.Version
	testConfigFullExp.ExactVersion = config.ExactVersion

	assert.Nil(t, err)
	assert.Equal(t, testConfigFullExp, *config)
}

func TestParseStaticConfigDefaults(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	config := &StaticCfg{}
	require.Nil(t, parseStaticConfig(nil, config))

	assert.Equal(t, "http://localhost:8000", config.API.BaseURL)
	assert.Equal(t, 0, config.API.Timeout)
	assert.Equal(t, "file", config.Credentials.Source)
	assert.Equal(t, "/home/tester/.rita-threats/token.yaml", config.Credentials.TokenFile)
	assert.Equal(t, "RITA_THREATS_TOKEN", config.Credentials.TokenEnv)
	assert.True(t, config.Threats.URL.Enabled)
	assert.True(t, config.Threats.IP.Enabled)
	assert.Equal(t, 50, config.Display.InitialLimit)
	assert.Equal(t, 50, config.Display.RevealStep)
	assert.Equal(t, 14, config.UserConfig.UpdateCheckFrequency)
}

// TestFilePathCleaning ensures that paths specified
// in a config file are cleaned up correctly.
func TestFilePathCleaning(t *testing.T) {
	testConfig := `
LogConfig:
    LogPath: /var/lib/rita-threats/incorrect/./../logs/
`
	config := &StaticCfg{}
	err := parseStaticConfig([]byte(testConfig), config)

	assert.Nil(t, err)
	assert.Equal(t, "/var/lib/rita-threats/logs", config.Log.LogPath)
}

func TestThreatsFor(t *testing.T) {
	threats := ThreatsStaticCfg{Domain: KindStaticCfg{Endpoint: "/d"}}
	section, ok := threats.For("domain")
	assert.True(t, ok)
	assert.Equal(t, "/d", section.Endpoint)

	_, ok = threats.For("email")
	assert.False(t, ok)
}

func TestLoadConfigFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "rita-threats-config")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte(staticConfigParserTestConfig), 0644))

	conf, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "intel.example.com:8443", conf.R.API.BaseURL.Host)
	assert.Equal(t, "/api", conf.R.API.BaseURL.Path)

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
