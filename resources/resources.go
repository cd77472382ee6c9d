package resources

import (
	"fmt"

	"github.com/activecm/rita-threats/config"
	"github.com/activecm/rita-threats/credentials"
	"github.com/activecm/rita-threats/datatypes/threat"
	"github.com/activecm/rita-threats/intelapi"
	"github.com/activecm/rita-threats/threatlist"
	log "github.com/sirupsen/logrus"
)

type (
	// Resources provides a data structure for passing system Resources
	Resources struct {
		Config *config.Config
		Log    *log.Logger
		Client *intelapi.Client
	}
)

// InitResources grabs the configuration file and intitializes the configuration data
// returning a *Resources object which has all of the necessary configuration information
func InitResources(userConfig string) (*Resources, error) {
	conf, err := config.LoadConfig(userConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to config: %w", err)
	}

	// Fire up the logging system
	logger := initLogger(&conf.S.Log)
	if conf.S.Log.LogToFile {
		if err := addFileLogger(logger, conf.S.Log.LogPath); err != nil {
			return nil, fmt.Errorf("failed to set up file logging: %w", err)
		}
	}

	return newResources(conf, logger), nil
}

// newResources bundles up the system resources
func newResources(conf *config.Config, logger *log.Logger) *Resources {
	return &Resources{
		Config: conf,
		Log:    logger,
		Client: intelapi.NewClient(
			conf.R.API.BaseURL, conf.R.API.Timeout, conf.S.API.UserAgent, logger,
		),
	}
}

// Kind returns the named kind with the configured endpoint overrides applied.
// Disabled kinds are reported as errors.
func (r *Resources) Kind(name string) (threat.Kind, error) {
	kind, err := threat.Lookup(name)
	if err != nil {
		return kind, err
	}
	section, _ := r.Config.S.Threats.For(kind.Name)
	if !section.Enabled {
		return kind, fmt.Errorf("%s threats are disabled in the configuration", kind.Labels.Singular)
	}
	if section.Endpoint != "" {
		kind.Endpoint = section.Endpoint
	}
	if section.CountEndpoint != "" {
		kind.CountEndpoint = section.CountEndpoint
	}
	return kind, nil
}

// Kinds returns every enabled kind in name order
func (r *Resources) Kinds() []threat.Kind {
	var kinds []threat.Kind
	for _, name := range threat.Names() {
		if kind, err := r.Kind(name); err == nil {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

// Credentials returns the credential provider for kind. A kind without its
// own CredentialSource uses the default source.
func (r *Resources) Credentials(kind threat.Kind) (credentials.Provider, error) {
	creds := r.Config.S.Credentials
	source := creds.Source
	if section, ok := r.Config.S.Threats.For(kind.Name); ok && section.CredentialSource != "" {
		source = section.CredentialSource
	}
	return credentials.New(source, creds.Token, creds.TokenFile, creds.TokenEnv)
}

// DefaultCredentials returns the provider used by kinds without an override
func (r *Resources) DefaultCredentials() (credentials.Provider, error) {
	creds := r.Config.S.Credentials
	return credentials.New(creds.Source, creds.Token, creds.TokenFile, creds.TokenEnv)
}

// TokenStore returns the locally persisted credential store written by login
func (r *Resources) TokenStore() credentials.File {
	return credentials.File{Path: r.Config.S.Credentials.TokenFile}
}

// NewList builds the threat list for the named kind
func (r *Resources) NewList(name string) (*threatlist.List, error) {
	kind, err := r.Kind(name)
	if err != nil {
		return nil, err
	}
	creds, err := r.Credentials(kind)
	if err != nil {
		return nil, err
	}
	return threatlist.New(threatlist.Config{
		Kind:         kind,
		Credentials:  creds,
		InitialLimit: r.Config.S.Display.InitialLimit,
		RevealStep:   r.Config.S.Display.RevealStep,
	}, r.Client, r.Log), nil
}
