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
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// ApiConfig is one entry of a server's apis list: the binding that selects an ApiHandlerFactory from the Registry
// and the options handed to it. For a ServiceFactory the options are parsed into ServiceOptions.
type ApiConfig struct {
	binding string
	options map[interface{}]interface{}
}

// Binding returns the binding of the ApiHandlerFactory that builds the API.
func (api *ApiConfig) Binding() string {
	return api.binding
}

// Options returns the raw options of the API. They are interpreted by the factory.
func (api *ApiConfig) Options() map[interface{}]interface{} {
	return api.options
}

// Parse the configuration map for an ApiConfig.
func (api *ApiConfig) Parse(values map[interface{}]interface{}) error {
	binding, found, err := configString(values, "binding")
	if err != nil {
		return err
	}
	if !found {
		return errors.New("binding is required")
	}
	api.binding = binding

	if api.options, _, err = configSection(values, "options"); err != nil {
		return errors.Wrapf(err, "invalid options for binding [%s]", binding)
	}

	return nil
}

// Validate this configuration object.
func (api *ApiConfig) Validate() error {
	if api.binding == "" {
		return errors.New("binding must be specified")
	}

	return nil
}

const (
	DefaultRootPath = "/"

	DefaultMaxRequestBodySize = 4 << 20
)

// ServiceOptions are the per-service settings of a Service.
type ServiceOptions struct {
	// RootPath is the path prefix the demux routes to the service.
	RootPath string
	// BaseAddress is the address uri templates are relative to. Defaults to RootPath.
	BaseAddress       *url.URL
	TrailingSlashMode TrailingSlashMode
	IsDefault         bool
	// MaxRequestBodySize caps the bytes read from a request body, 0 for no limit.
	MaxRequestBodySize int64

	Formatters       []Formatter
	RequestHandlers  []*OperationHandler
	ResponseHandlers []*OperationHandler
}

// Default provides defaults for all necessary values
func (options *ServiceOptions) Default() {
	options.RootPath = DefaultRootPath
	options.BaseAddress = nil
	options.TrailingSlashMode = AutoRedirect
	options.MaxRequestBodySize = DefaultMaxRequestBodySize
	options.Formatters = []Formatter{JsonFormatter{}}
}

// Parse parses an ApiConfig options map. Unknown keys are ignored.
func (options *ServiceOptions) Parse(values map[interface{}]interface{}) error {
	if rootPath, found, err := configString(values, "rootPath"); err != nil {
		return err
	} else if found {
		options.RootPath = rootPath
	}

	if baseAddressStr, found, err := configString(values, "baseAddress"); err != nil {
		return err
	} else if found {
		baseAddress, err := url.Parse(baseAddressStr)
		if err != nil {
			return errors.Wrapf(err, "could not parse baseAddress [%s]", baseAddressStr)
		}
		options.BaseAddress = baseAddress
	}

	if modeStr, found, err := configString(values, "trailingSlashMode"); err != nil {
		return err
	} else if found {
		mode, err := ParseTrailingSlashMode(modeStr)
		if err != nil {
			return err
		}
		options.TrailingSlashMode = mode
	}

	if isDefault, found, err := configBool(values, "default"); err != nil {
		return err
	} else if found {
		options.IsDefault = isDefault
	}

	if maxBodySize, found, err := configInt(values, "maxRequestBodySize"); err != nil {
		return err
	} else if found {
		options.MaxRequestBodySize = int64(maxBodySize)
	}

	return nil
}

// Validate validates the options and fills in the base address if it was not set
func (options *ServiceOptions) Validate() error {
	if !strings.HasPrefix(options.RootPath, "/") {
		return errors.Errorf("rootPath [%s] must start with /", options.RootPath)
	}

	if options.BaseAddress == nil {
		options.BaseAddress = &url.URL{Path: options.RootPath}
	}

	if !strings.HasPrefix(normalizedBasePath(options.BaseAddress), normalizedBasePath(&url.URL{Path: options.RootPath})) {
		return errors.Errorf("baseAddress [%s] must be below rootPath [%s]", options.BaseAddress, options.RootPath)
	}

	if options.MaxRequestBodySize < 0 {
		return errors.Errorf("maxRequestBodySize [%d] must not be negative", options.MaxRequestBodySize)
	}

	if len(options.Formatters) == 0 {
		return errors.New("at least one formatter is required")
	}

	return nil
}
