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
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/michaelquigley/pfxlog"
	"github.com/openziti/identity"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultIdentitySection = "identity"
	DefaultConfigSection   = "web"

	DefaultShutdownTimeout = 15 * time.Second
)

// Instance hosts the Service's of a Registry on the servers described by one configuration section.
type Instance interface {
	DefaultHttpHandlerProvider
	Enabled() bool
	LoadConfig(cfgmap map[interface{}]interface{}) error
	Build() error
	Start() error
	Run() error
	Shutdown()
	GetRegistry() Registry
	GetDemuxFactory() DemuxFactory
	GetConfig() *InstanceConfig
	GetServers() []*Server
}

// InstanceImpl is the Instance used by NewDefaultInstance. Registry and DemuxFactory may be replaced before Build.
type InstanceImpl struct {
	DefaultHttpHandlerProviderImpl
	Config          *InstanceConfig
	Registry        Registry
	DemuxFactory    DemuxFactory
	ShutdownTimeout time.Duration

	servers      []*Server
	shutdownOnce sync.Once
}

var _ Instance = &InstanceImpl{}

// NewDefaultInstance creates an InstanceImpl reading the `web` section. Without a defaultIdentity the `identity`
// section is consulted and, when that is missing too, servers without an identity of their own serve plain HTTP.
func NewDefaultInstance(registry Registry, defaultIdentity identity.Identity) *InstanceImpl {
	return &InstanceImpl{
		Registry:        registry,
		DemuxFactory:    &IsHandledDemuxFactory{},
		ShutdownTimeout: DefaultShutdownTimeout,
		Config: &InstanceConfig{
			Section:                DefaultConfigSection,
			DefaultIdentitySection: DefaultIdentitySection,
			DefaultIdentity:        defaultIdentity,
		},
	}
}

func (instance *InstanceImpl) GetRegistry() Registry         { return instance.Registry }
func (instance *InstanceImpl) GetDemuxFactory() DemuxFactory { return instance.DemuxFactory }
func (instance *InstanceImpl) GetConfig() *InstanceConfig    { return instance.Config }
func (instance *InstanceImpl) GetServers() []*Server         { return instance.servers }
func (instance *InstanceImpl) Enabled() bool                 { return instance.Config.Enabled() }

// LoadConfig parses and validates the configuration against the Registry.
func (instance *InstanceImpl) LoadConfig(cfgmap map[interface{}]interface{}) error {
	if err := instance.Config.Parse(cfgmap); err != nil {
		return err
	}
	return instance.Config.Validate(instance.Registry)
}

// Build creates a Server for every ServerConfig without starting any of them.
func (instance *InstanceImpl) Build() error {
	if !instance.Enabled() {
		return fmt.Errorf("configuration section [%s] has not been loaded", instance.Config.Section)
	}

	servers := make([]*Server, 0, len(instance.Config.ServerConfigs))
	for _, serverConfig := range instance.Config.ServerConfigs {
		server, err := NewServer(instance, serverConfig)
		if err != nil {
			return fmt.Errorf("error building server for %s: %v", serverConfig.Name, err)
		}
		servers = append(servers, server)
	}

	instance.servers = servers
	return nil
}

// Start every built Server and block until all of them stop. A server that fails to start shuts down the others.
func (instance *InstanceImpl) Start() error {
	group := &errgroup.Group{}

	for _, server := range instance.servers {
		server := server
		group.Go(func() error {
			if err := server.Start(); err != nil {
				pfxlog.Logger().WithField("server", server.ServerConfig.Name).Errorf("error starting server: %v", err)
				instance.Shutdown()
				return err
			}
			return nil
		})
	}

	return group.Wait()
}

// Run builds and then starts the Instance.
func (instance *InstanceImpl) Run() error {
	if err := instance.Build(); err != nil {
		return err
	}
	return instance.Start()
}

// Shutdown every Server, waiting at most ShutdownTimeout for in flight requests. Only the first call has an effect.
func (instance *InstanceImpl) Shutdown() {
	instance.shutdownOnce.Do(func() {
		timeout := instance.ShutdownTimeout
		if timeout <= 0 {
			timeout = DefaultShutdownTimeout
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		var wg sync.WaitGroup
		for _, server := range instance.servers {
			wg.Add(1)
			go func(server *Server) {
				defer wg.Done()
				server.Shutdown(ctx)
			}(server)
		}
		wg.Wait()
	})
}

// DefaultHttpHandlerProvider supplies the http.Handler requests fall back to when no ApiHandler claims them.
// Providers form a chain (DemuxHandler -> Server -> Instance) and an unset handler defers to the parent.
type DefaultHttpHandlerProvider interface {
	GetDefaultHttpHandler() http.Handler
	SetDefaultHttpHandler(handler http.Handler)
	SetParent(parent DefaultHttpHandlerProvider)
}

type DefaultHttpHandlerProviderImpl struct {
	Parent      DefaultHttpHandlerProvider
	HttpHandler http.Handler
}

var _ DefaultHttpHandlerProvider = &DefaultHttpHandlerProviderImpl{}

// GetDefaultHttpHandler returns the handler set on this provider or the closest ancestor, nil when none is set.
func (provider *DefaultHttpHandlerProviderImpl) GetDefaultHttpHandler() http.Handler {
	if provider.HttpHandler != nil || provider.Parent == nil {
		return provider.HttpHandler
	}
	return provider.Parent.GetDefaultHttpHandler()
}

func (provider *DefaultHttpHandlerProviderImpl) SetDefaultHttpHandler(handler http.Handler) {
	provider.HttpHandler = handler
}

func (provider *DefaultHttpHandlerProviderImpl) SetParent(parent DefaultHttpHandlerProvider) {
	provider.Parent = parent
}

func handler404(writer http.ResponseWriter, _ *http.Request) {
	writer.WriteHeader(http.StatusNotFound)
}
