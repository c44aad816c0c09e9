// Package config loads the provider configuration file: an ordered list of
// backend definitions plus run defaults. File order is significant; it is
// the precedence order used when deduplicating discovery results.
package config

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AeyeOps/mgit-sub001/provider"
)

// DefaultRelPath is the configuration file location relative to the XDG
// config home.
const DefaultRelPath = "mgit/config.yaml"

// Backend is one configured hosting backend.
type Backend struct {
	// Name uniquely identifies this backend instance.
	Name string `yaml:"name" validate:"required"`

	// Kind selects the protocol family.
	Kind string `yaml:"kind" validate:"required,oneof=github bitbucket azuredevops"`

	// Endpoint overrides the kind's public API base URL.
	Endpoint string `yaml:"endpoint" validate:"omitempty,url"`

	// Token is the access credential. Values of the form $VAR or ${VAR}
	// are expanded from the environment at load time.
	Token string `yaml:"token"`

	// Concurrency bounds concurrent listing requests to this backend.
	Concurrency int `yaml:"concurrency" validate:"omitempty,min=1"`

	// RatePerSecond is the request rate ceiling. Zero means unlimited.
	RatePerSecond float64 `yaml:"rate_per_second" validate:"omitempty,min=0"`
}

// Defaults are run settings applied when the caller does not override them.
type Defaults struct {
	// Workers is the sync worker pool size.
	Workers int `yaml:"workers" validate:"omitempty,min=1"`

	// Mode is the sync mode name (skip, pull, force).
	Mode string `yaml:"mode" validate:"omitempty,oneof=skip pull force"`

	// Target is the local directory repositories are synced into.
	Target string `yaml:"target"`
}

// File is the parsed configuration file.
type File struct {
	Providers []Backend `yaml:"providers" validate:"required,min=1,dive"`
	Defaults  Defaults  `yaml:"defaults"`

	// Path is where the file was loaded from.
	Path string `yaml:"-"`
}

// DefaultPath returns the configuration path under the XDG config home.
func DefaultPath() (string, error) {
	return xdg.ConfigFile(DefaultRelPath)
}

// Load reads and validates the configuration. An empty path selects the
// default XDG location.
func Load(path string) (*File, error) {
	if path == "" {
		defaultPath, err := DefaultPath()
		if err != nil {
			return nil, WrapError(err, "resolving config path")
		}
		path = defaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, WrapError(ErrNotFound, path)
		}
		return nil, WrapErrorf(err, "reading %q", path)
	}

	return Parse(data, path)
}

// Parse decodes and validates raw configuration bytes. Unknown fields are
// rejected so typos surface as errors rather than silent defaults.
func Parse(data []byte, path string) (*File, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var file File
	if err := decoder.Decode(&file); err != nil {
		return nil, WrapErrorf(ErrInvalid, "parsing %q: %v", path, err)
	}
	file.Path = filepath.Clean(path)

	for i := range file.Providers {
		file.Providers[i].Token = os.ExpandEnv(file.Providers[i].Token)
	}

	if err := validator.New().Struct(&file); err != nil {
		return nil, WrapErrorf(ErrInvalid, "validating %q: %v", path, err)
	}
	if err := checkUniqueNames(file.Providers); err != nil {
		return nil, WrapErrorf(err, "validating %q", path)
	}

	return &file, nil
}

// Descriptors converts the configured backends into provider descriptors,
// preserving file order.
func (f *File) Descriptors() []provider.Descriptor {
	descs := make([]provider.Descriptor, 0, len(f.Providers))
	for _, b := range f.Providers {
		descs = append(descs, provider.Descriptor{
			Name:             b.Name,
			Kind:             b.Kind,
			Endpoint:         b.Endpoint,
			Token:            b.Token,
			QueryConcurrency: b.Concurrency,
			RatePerSecond:    b.RatePerSecond,
		})
	}
	return descs
}

func checkUniqueNames(backends []Backend) error {
	seen := make(map[string]struct{}, len(backends))
	for _, b := range backends {
		if _, dup := seen[b.Name]; dup {
			return WrapErrorf(ErrInvalid, "duplicate provider name %q", b.Name)
		}
		seen[b.Name] = struct{}{}
	}
	return nil
}
