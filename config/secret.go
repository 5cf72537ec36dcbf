package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Secret is a reference to a sensitive value, resolved only when
// loaded. References look like "env:NAME", "file:PATH", or "raw:VALUE";
// the reference itself never appears in error messages.
type Secret string

type SecretType string

const (
	Env  SecretType = "env"
	File SecretType = "file"
	Raw  SecretType = "raw"
)

func (s Secret) Load() (string, error) {
	return getSecret(string(s))
}

func (s Secret) LoadOrBlank() string {
	value, _ := getSecret(string(s))
	return value
}

func (s Secret) LoadNonEmpty() (string, error) {
	value, err := getSecret(string(s))
	if err != nil {
		return "", err
	}
	if value == "" {
		return "", errors.New("secret resolved to an empty value")
	}
	return value, nil
}

func NewRawSecret(value string) Secret {
	return Secret(fmt.Sprintf("raw:%s", value))
}

func getSecret(uri string) (string, error) {
	source, path, found := strings.Cut(uri, ":")
	if !found {
		return "", errors.New("secret reference must look like env:NAME, file:PATH, or raw:VALUE")
	}
	switch SecretType(source) {
	case Env:
		return strings.TrimSpace(os.Getenv(path)), nil
	case File:
		if strings.HasPrefix(path, "~") {
			path = strings.Replace(path, "~", os.Getenv("HOME"), 1)
		}
		bz, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(bz)), nil
	case Raw:
		return path, nil
	}
	return "", fmt.Errorf("unknown secret source %q", source)
}
