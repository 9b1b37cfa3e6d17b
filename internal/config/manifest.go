package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Marshal renders cfg as a YAML run manifest keyed by flag name. Unset
// optional values are omitted.
func Marshal(cfg Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return data, nil
}

// Decode rebuilds a Config from a manifest produced by Marshal, or written by
// hand. Missing keys keep their defaults and unknown keys are rejected. The
// result goes through the same environment fallback and checks as Load.
func Decode(data []byte, lookupEnv LookupEnvFunc, opts ...Option) (Config, error) {
	o := newOptions(lookupEnv, opts)

	cfg := Defaults()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, &Error{Kind: ErrInvalidValue, Msg: fmt.Sprintf("parse manifest: %v", err)}
	}

	if err := checkChoices(&cfg); err != nil {
		return Config{}, err
	}
	if err := resolve(&cfg, lookupEnv, o); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
