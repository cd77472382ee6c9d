package credentials

import (
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	yaml "gopkg.in/yaml.v2"
)

//ErrNoCredential is returned by a Provider which has no token to give out
var ErrNoCredential = errors.New("no credential available")

// Credential sources which may be named in the configuration
const (
	SourceStatic = "static"
	SourceFile   = "file"
	SourceEnv    = "env"
)

type (
	//Provider hands out the bearer token used to authorize backend requests.
	//The token is looked up on every call so that a changed credential is
	//noticed by the caller
	Provider interface {
		Token(ctx context.Context) (string, error)
	}

	//Static is a token supplied directly by the caller
	Static string

	//Env reads the token from the named environment variable
	Env string

	//File reads the token from a locally persisted credential store
	File struct {
		Path string
	}

	//Token is the persisted form of a login response
	Token struct {
		AccessToken string `yaml:"access_token" json:"access_token"`
		TokenType   string `yaml:"token_type" json:"token_type"`
	}
)

//Token returns the static token
func (s Static) Token(ctx context.Context) (string, error) {
	if strings.TrimSpace(string(s)) == "" {
		return "", ErrNoCredential
	}
	return string(s), nil
}

//Token returns the value of the environment variable
func (e Env) Token(ctx context.Context) (string, error) {
	tok := strings.TrimSpace(os.Getenv(string(e)))
	if tok == "" {
		return "", fmt.Errorf("environment variable %s is empty: %w", string(e), ErrNoCredential)
	}
	return tok, nil
}

//Token returns the access token held in the credential store
func (f File) Token(ctx context.Context) (string, error) {
	tok, err := f.Load()
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

//Load reads the credential store. A missing or empty store yields ErrNoCredential
func (f File) Load() (Token, error) {
	var tok Token
	contents, err := ioutil.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return tok, fmt.Errorf("credential store %s does not exist: %w", f.Path, ErrNoCredential)
	}
	if err != nil {
		return tok, err
	}
	if err := yaml.Unmarshal(contents, &tok); err != nil {
		return tok, fmt.Errorf("could not parse credential store %s: %w", f.Path, err)
	}
	if strings.TrimSpace(tok.AccessToken) == "" {
		return tok, fmt.Errorf("credential store %s holds no token: %w", f.Path, ErrNoCredential)
	}
	return tok, nil
}

//Save writes the token to the credential store, readable only by the owner
func (f File) Save(tok Token) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0700); err != nil {
		return err
	}
	contents, err := yaml.Marshal(tok)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(f.Path, contents, 0600)
}

//Remove deletes the credential store. Removing a missing store is not an error
func (f File) Remove() error {
	err := os.Remove(f.Path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

//New builds the Provider for a configured source. token, path and envVar are
//only consulted by the matching source
func New(source, token, path, envVar string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(source)) {
	case SourceStatic:
		return Static(token), nil
	case SourceFile, "":
		if path == "" {
			return nil, errors.New("the file credential source requires a TokenFile")
		}
		return File{Path: path}, nil
	case SourceEnv:
		if envVar == "" {
			return nil, errors.New("the env credential source requires a TokenEnv")
		}
		return Env(envVar), nil
	}
	return nil, fmt.Errorf("unknown credential source %q", source)
}
