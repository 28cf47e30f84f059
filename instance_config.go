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
	"errors"
	"fmt"

	"github.com/michaelquigley/pfxlog"
	"github.com/openziti/identity"
	"go.uber.org/multierr"
)

// ServerMutator is called for every Server an Instance builds, after its http.Server's are created and before
// they are started.
type ServerMutator func(instance Instance, serverConfig *ServerConfig, server *Server) error

// InstanceConfig is the configuration for an Instance: the ServerConfig's found in its configuration section and
// the optional identity servers fall back to.
type InstanceConfig struct {
	SourceConfig map[interface{}]interface{}

	ServerConfigs []*ServerConfig
	Section       string

	DefaultIdentity        identity.Identity
	DefaultIdentitySection string

	defaultIdentityConfig *identity.Config

	ServerMutators []ServerMutator

	enabled bool
}

// Parse the configuration section and, when present, the default identity section.
func (config *InstanceConfig) Parse(values map[interface{}]interface{}) error {
	config.SourceConfig = values

	if config.Section == "" {
		return errors.New("web section not specified for configuration")
	}

	if err := config.parseDefaultIdentity(values); err != nil {
		return err
	}

	serverMaps, found, err := configMaps(values, config.Section)
	if err != nil {
		return fmt.Errorf("invalid web section [%s]: %v", config.Section, err)
	}
	if !found {
		return fmt.Errorf("web section [%s] must be defined", config.Section)
	}

	for i, serverMap := range serverMaps {
		serverConfig := &ServerConfig{
			DefaultIdentity: config.DefaultIdentity,
		}
		if err := serverConfig.Parse(serverMap, fmt.Sprintf("%s[%d]", config.Section, i)); err != nil {
			return fmt.Errorf("error parsing web configuration [%s] at index [%d]: %v", config.Section, i, err)
		}
		config.ServerConfigs = append(config.ServerConfigs, serverConfig)
	}

	return nil
}

// parseDefaultIdentity reads the identity section unless an identity was supplied up front. Without either,
// servers that declare no identity of their own listen on plain http.
func (config *InstanceConfig) parseDefaultIdentity(values map[interface{}]interface{}) error {
	if config.DefaultIdentity != nil || config.DefaultIdentitySection == "" {
		return nil
	}

	identityMap, found, err := configSection(values, config.DefaultIdentitySection)
	if err != nil {
		return fmt.Errorf("root identity section [%s] is invalid: %v", config.DefaultIdentitySection, err)
	}
	if !found {
		return nil
	}

	identityConfig, err := parseIdentityConfig(identityMap, config.DefaultIdentitySection)
	if err != nil {
		return fmt.Errorf("error parsing root identity section [%s] : %v", config.DefaultIdentitySection, err)
	}
	config.defaultIdentityConfig = identityConfig

	return nil
}

func (config *InstanceConfig) loadDefaultIdentity() error {
	if config.DefaultIdentity != nil || config.defaultIdentityConfig == nil {
		return nil
	}

	defaultIdentity, err := identity.LoadIdentity(*config.defaultIdentityConfig)
	if err != nil {
		return fmt.Errorf("could not load default identity: %v", err)
	}

	if err := defaultIdentity.WatchFiles(); err != nil {
		pfxlog.Logger().Warnf("could not enable file watching on default identity: %v", err)
	}

	config.DefaultIdentity = defaultIdentity
	for _, serverConfig := range config.ServerConfigs {
		serverConfig.DefaultIdentity = defaultIdentity
	}

	return nil
}

// Bindings returns the distinct API bindings used by the configured servers in first use order.
func (config *InstanceConfig) Bindings() []string {
	var bindings []string
	seen := map[string]struct{}{}

	for _, serverConfig := range config.ServerConfigs {
		for _, api := range serverConfig.APIs {
			if _, found := seen[api.Binding()]; !found {
				seen[api.Binding()] = struct{}{}
				bindings = append(bindings, api.Binding())
			}
		}
	}

	return bindings
}

// Validate every ServerConfig, reporting all invalid servers together, and then let each ApiHandlerFactory in
// use validate the whole configuration.
func (config *InstanceConfig) Validate(registry Registry) error {
	if err := config.loadDefaultIdentity(); err != nil {
		return err
	}

	var errs error
	for i, serverConfig := range config.ServerConfigs {
		if err := serverConfig.Validate(registry); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("could not validate server [%s] at %s[%d]: %v", serverConfig.Name, config.Section, i, err))
		}
	}

	if errs != nil {
		return errs
	}

	for _, binding := range config.Bindings() {
		if err := registry.Get(binding).Validate(config); err != nil {
			return fmt.Errorf("error validating ApiConfig binding %s: %v", binding, err)
		}
	}

	config.enabled = true

	return nil
}

// Enabled is true once the configuration has been validated.
func (config *InstanceConfig) Enabled() bool {
	return config.enabled
}
