package config

import "fmt"

const testConfig = `
API:
    BaseURL: %s
    Timeout: 5
Credentials:
    Source: static
    Token: test-token
Threats:
    IP:
        Enabled: false
Display:
    InitialLimit: 50
    RevealStep: 50
LogConfig:
    LogLevel: 3
    LogToFile: false
UserConfig:
    UpdateCheckFrequency: 0
`

// LoadTestingConfig loads the hard coded testing config pointed at baseURL
func LoadTestingConfig(baseURL string) (*Config, error) {
	config := &Config{}

	// Deserialize the yaml file contents into the static config
	if err := parseStaticConfig([]byte(fmt.Sprintf(testConfig, baseURL)), &config.S); err != nil {
		return nil, err
	}

	config.S.Version = "v0.0.0+testing"
	config.S.ExactVersion = "v0.0.0+testing"

	// Use the static config to initialize the running config
	if err := initRunningConfig(&config.S, &config.R); err != nil {
		return nil, err
	}

	return config, nil
}
