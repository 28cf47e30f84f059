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
	"github.com/pkg/errors"
)

// ServiceFactory is an ApiHandlerFactory producing a Service for a fixed set of operations. Each ApiConfig using
// the factory's binding gets its own Service built from the ApiConfig options.
type ServiceFactory struct {
	binding    string
	operations []*Operation

	Formatters       []Formatter
	RequestHandlers  []*OperationHandler
	ResponseHandlers []*OperationHandler
}

var _ ApiHandlerFactory = &ServiceFactory{}

// NewServiceFactory creates a ServiceFactory for binding.
func NewServiceFactory(binding string, operations ...*Operation) *ServiceFactory {
	return &ServiceFactory{
		binding:    binding,
		operations: operations,
	}
}

// Binding returns the factory's binding.
func (factory *ServiceFactory) Binding() string {
	return factory.binding
}

// New creates a Service from the ApiConfig options.
func (factory *ServiceFactory) New(_ *ServerConfig, options map[interface{}]interface{}) (ApiHandler, error) {
	serviceOptions, err := factory.serviceOptions(options)
	if err != nil {
		return nil, err
	}

	service, err := NewService(factory.binding, serviceOptions, factory.operations...)
	if err != nil {
		return nil, err
	}
	service.rawOptions = options

	return service, nil
}

// Validate builds every Service the configuration declares for this binding so that binding errors surface while
// the configuration is loaded instead of when servers start.
func (factory *ServiceFactory) Validate(config *InstanceConfig) error {
	for _, serverConfig := range config.ServerConfigs {
		for _, api := range serverConfig.APIs {
			if api.Binding() != factory.binding {
				continue
			}

			if _, err := factory.New(serverConfig, api.Options()); err != nil {
				return errors.Wrapf(err, "invalid api [%s] on server [%s]", factory.binding, serverConfig.Name)
			}
		}
	}

	return nil
}

func (factory *ServiceFactory) serviceOptions(options map[interface{}]interface{}) (ServiceOptions, error) {
	serviceOptions := ServiceOptions{}
	serviceOptions.Default()

	if len(factory.Formatters) > 0 {
		serviceOptions.Formatters = factory.Formatters
	}
	serviceOptions.RequestHandlers = factory.RequestHandlers
	serviceOptions.ResponseHandlers = factory.ResponseHandlers

	if options != nil {
		if err := serviceOptions.Parse(options); err != nil {
			return serviceOptions, errors.Wrapf(err, "error parsing options for binding [%s]", factory.binding)
		}
	}

	return serviceOptions, nil
}
