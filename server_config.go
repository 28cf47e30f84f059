/*
	Copyright NetFoundry Inc.

	Licensed under the Apache License, Version 2.0 (the "License");
	you may not use this file except in compliance with the License.
	You may obtain a copy of the License at

	https://www.apache.org/licenses/LICENSE-2.0

	Unless required by applicable law or agreed to in writing, software
	distributed under the License is distributed on an "AS IS" BASIS,
	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
	See the License for the specific language governing permissions and
	limitations under the License.
*/

package xoperation

import (
	"crypto/tls"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/michaelquigley/pfxlog"
	"github.com/openziti/identity"
	"github.com/pkg/errors"
)

const (
	DefaultMinTLSVersion = tls.VersionTLS12
	DefaultMaxTLSVersion = tls.VersionTLS13

	DefaultWriteTimeout = 10 * time.Second
	DefaultReadTimeout  = 5 * time.Second
	DefaultIdleTimeout  = 5 * time.Second
)

var tlsVersions = []struct {
	name    string
	version uint16
}{
	{"TLS1.0", tls.VersionTLS10},
	{"TLS1.1", tls.VersionTLS11},
	{"TLS1.2", tls.VersionTLS12},
	{"TLS1.3", tls.VersionTLS13},
}

// ParseTLSVersion parses a version name such as "TLS1.2".
func ParseTLSVersion(name string) (uint16, error) {
	for _, candidate := range tlsVersions {
		if strings.EqualFold(candidate.name, name) {
			return candidate.version, nil
		}
	}
	return 0, fmt.Errorf("invalid TLS version [%s], must be one of TLS1.0, TLS1.1, TLS1.2, TLS1.3", name)
}

// TLSVersionName returns the configuration name of a TLS version.
func TLSVersionName(version uint16) string {
	for _, candidate := range tlsVersions {
		if candidate.version == version {
			return candidate.name
		}
	}
	return fmt.Sprintf("0x%04x", version)
}

// ServerConfig describes one Server: the APIs it hosts and the bind points every API is reachable on. A
// ServerConfig without an identity, and without a default identity from its InstanceConfig, serves plain HTTP.
type ServerConfig struct {
	DefaultHttpHandlerProviderImpl
	Name       string
	APIs       []*ApiConfig
	BindPoints []*BindPointConfig
	Options    ServerConfigOptions

	DefaultIdentity identity.Identity
	Identity        identity.Identity
}

// Parse reads a single entry of the web section. pathContext locates the entry in error messages.
func (config *ServerConfig) Parse(values map[interface{}]interface{}, pathContext string) error {
	name, _, err := configString(values, "name")
	if err != nil {
		return err
	}
	if name == "" {
		return errors.New("name is required")
	}
	config.Name = name

	apiMaps, found, err := configMaps(values, "apis")
	if err != nil {
		return err
	}
	if !found {
		return errors.New("apis section is required")
	}
	for i, apiMap := range apiMaps {
		api := &ApiConfig{}
		if err := api.Parse(apiMap); err != nil {
			return errors.Wrapf(err, "error parsing api configuration at index [%d]", i)
		}
		config.APIs = append(config.APIs, api)
	}

	bindPointMaps, found, err := configMaps(values, "bindPoints")
	if err != nil {
		return err
	}
	if !found {
		return errors.New("bindPoints is required")
	}
	for i, bindPointMap := range bindPointMaps {
		bindPoint := &BindPointConfig{}
		if err := bindPoint.Parse(bindPointMap); err != nil {
			return errors.Wrapf(err, "error parsing bindPoint configuration at index [%d]", i)
		}
		config.BindPoints = append(config.BindPoints, bindPoint)
	}

	identityMap, found, err := configSection(values, "identity")
	if err != nil {
		return err
	}
	if found {
		if err := config.loadIdentity(identityMap, pathContext+".identity"); err != nil {
			return err
		}
	}

	config.Options = ServerConfigOptions{}
	config.Options.Default()

	optionsMap, found, err := configSection(values, "options")
	if err != nil {
		return err
	}
	if found {
		if err := config.Options.Parse(optionsMap); err != nil {
			return errors.Wrap(err, "error parsing options section")
		}
	}

	return nil
}

func (config *ServerConfig) loadIdentity(identityMap map[interface{}]interface{}, pathContext string) error {
	identityConfig, err := parseIdentityConfig(identityMap, pathContext)
	if err != nil {
		return fmt.Errorf("error parsing identity section: %v", err)
	}

	if config.Identity, err = identity.LoadIdentity(*identityConfig); err != nil {
		return fmt.Errorf("error loading identity: %v", err)
	}

	if err := config.Identity.WatchFiles(); err != nil {
		pfxlog.Logger().Warnf("could not enable file watching on identity of server [%s]: %v", config.Name, err)
	}

	return nil
}

// Validate checks that every API has a registered binding, that every bind point is a usable address and, when
// the server has an identity, that the identity is valid for every advertised address.
func (config *ServerConfig) Validate(registry Registry) error {
	if config.Name == "" {
		return errors.New("name must not be empty")
	}

	if len(config.APIs) == 0 {
		return errors.New("no APIs specified, must specify at least one")
	}

	for i, api := range config.APIs {
		if err := api.Validate(); err != nil {
			return fmt.Errorf("invalid ApiConfig at index [%d]: %v", i, err)
		}

		if registry.Get(api.Binding()) == nil {
			return fmt.Errorf("invalid ApiConfig at index [%d]: no factory registered for binding [%s]", i, api.Binding())
		}
	}

	if len(config.BindPoints) == 0 {
		return errors.New("no bindPoint specified, must specify at least one")
	}

	for i, bindPoint := range config.BindPoints {
		if bindPoint == nil {
			return fmt.Errorf("nil bindPoint at index [%d]", i)
		}

		if err := bindPoint.Validate(); err != nil {
			return fmt.Errorf("invalid bindPoint at index [%d]: %v", i, err)
		}
	}

	if config.Identity == nil {
		config.Identity = config.DefaultIdentity
	}

	if config.Identity != nil {
		for i, bindPoint := range config.BindPoints {
			if err := config.Identity.ValidFor(hostOf(bindPoint.Address)); err != nil {
				return fmt.Errorf("identity is not valid for bindPoint at index [%d]: %v", i, err)
			}
		}
	}

	return config.Options.Validate()
}

// TLSConfig returns the server side TLS configuration of the identity, or nil when the server has no identity
// and serves plain HTTP.
func (config *ServerConfig) TLSConfig() *tls.Config {
	if config.Identity == nil {
		return nil
	}

	tlsConfig := config.Identity.ServerTLSConfig()
	tlsConfig.ClientAuth = tls.RequestClientCert
	tlsConfig.MinVersion = config.Options.MinTLSVersion
	tlsConfig.MaxVersion = config.Options.MaxTLSVersion

	return tlsConfig
}

// Scheme is the scheme clients reach the server's bind points with.
func (config *ServerConfig) Scheme() string {
	if config.Identity != nil {
		return "https"
	}
	return "http"
}

// ServerConfigOptions are the http.Server options shared by every bind point of a ServerConfig.
type ServerConfigOptions struct {
	ReadTimeout  time.Duration
	IdleTimeout  time.Duration
	WriteTimeout time.Duration

	MinTLSVersion uint16
	MaxTLSVersion uint16

	// Compression enables brotli and gzip response compression.
	Compression bool
}

func (options *ServerConfigOptions) Default() {
	options.ReadTimeout = DefaultReadTimeout
	options.IdleTimeout = DefaultIdleTimeout
	options.WriteTimeout = DefaultWriteTimeout
	options.MinTLSVersion = DefaultMinTLSVersion
	options.MaxTLSVersion = DefaultMaxTLSVersion
	options.Compression = true
}

func (options *ServerConfigOptions) Parse(values map[interface{}]interface{}) error {
	var err error

	if options.ReadTimeout, err = configDuration(values, "readTimeout", options.ReadTimeout); err != nil {
		return err
	}

	if options.IdleTimeout, err = configDuration(values, "idleTimeout", options.IdleTimeout); err != nil {
		return err
	}

	if options.WriteTimeout, err = configDuration(values, "writeTimeout", options.WriteTimeout); err != nil {
		return err
	}

	if options.MinTLSVersion, err = parseTLSVersionOption(values, "minTLSVersion", options.MinTLSVersion); err != nil {
		return err
	}

	if options.MaxTLSVersion, err = parseTLSVersionOption(values, "maxTLSVersion", options.MaxTLSVersion); err != nil {
		return err
	}

	if compression, found, err := configBool(values, "compression"); err != nil {
		return err
	} else if found {
		options.Compression = compression
	}

	return nil
}

func (options *ServerConfigOptions) Validate() error {
	timeouts := []struct {
		name  string
		value time.Duration
	}{
		{"readTimeout", options.ReadTimeout},
		{"idleTimeout", options.IdleTimeout},
		{"writeTimeout", options.WriteTimeout},
	}

	for _, timeout := range timeouts {
		if timeout.value <= 0 {
			return fmt.Errorf("value [%s] for %s too low, must be positive", timeout.value, timeout.name)
		}
	}

	if options.MinTLSVersion > options.MaxTLSVersion {
		return fmt.Errorf("minTLSVersion [%s] must be less than or equal to maxTLSVersion [%s]", TLSVersionName(options.MinTLSVersion), TLSVersionName(options.MaxTLSVersion))
	}

	return nil
}

func parseTLSVersionOption(values map[interface{}]interface{}, key string, current uint16) (uint16, error) {
	name, found, err := configString(values, key)
	if err != nil || !found {
		return current, err
	}

	version, err := ParseTLSVersion(name)
	if err != nil {
		return current, errors.Wrapf(err, "could not use value for %s", key)
	}

	return version, nil
}

func parseIdentityConfig(identityMap map[interface{}]interface{}, pathContext string) (*identity.Config, error) {
	idConfig, err := identity.NewConfigFromMap(identityMap)
	if err != nil {
		return nil, fmt.Errorf("error parsing identity: %v", err)
	}

	if err = idConfig.ValidateWithPathContext(pathContext); err != nil {
		return nil, fmt.Errorf("error parsing identity: %v", err)
	}

	return idConfig, nil
}

func hostOf(address string) string {
	if host, _, err := net.SplitHostPort(address); err == nil {
		return host
	}
	return address
}
