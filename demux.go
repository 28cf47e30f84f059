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
	"sort"
	"strings"

	"github.com/michaelquigley/pfxlog"
	"github.com/pkg/errors"
)

// DemuxFactory generates a http.Handler that interrogates a http.Request and routes it to one of a server's
// ApiHandler instances, usually one Service per api. The selected ApiHandler is added to the context with a key
// of HandlerContextKey.
type DemuxFactory interface {
	Build(handlers []ApiHandler) (DemuxHandler, error)
}

type DemuxHandler interface {
	DefaultHttpHandlerProvider
	http.Handler
}

// DemuxHandlerImpl dispatches each request to the ApiHandler chosen by its selection function. Unclaimed requests
// go to the ApiHandler marked as default, else to the default http.Handler of the provider chain, else to the
// last ApiHandler.
type DemuxHandlerImpl struct {
	DefaultHttpHandlerProviderImpl
	defaultApi  ApiHandler
	fallbackApi ApiHandler
	selectApi   func(request *http.Request) ApiHandler
}

var _ DemuxHandler = &DemuxHandlerImpl{}

func newDemuxHandler(handlers []ApiHandler, selectApi func(request *http.Request) ApiHandler) (DemuxHandler, error) {
	defaultApi, err := getDefault(handlers)
	if err != nil {
		return nil, err
	}

	demux := &DemuxHandlerImpl{
		fallbackApi: defaultApi,
		selectApi:   selectApi,
	}
	if isDefaultApi(defaultApi) {
		demux.defaultApi = defaultApi
	}
	return demux, nil
}

func (demux *DemuxHandlerImpl) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	handler := demux.selectApi(request)
	if handler == nil {
		handler = demux.defaultApi
	}

	if handler == nil {
		if defaultHttpHandler := demux.GetDefaultHttpHandler(); defaultHttpHandler != nil {
			defaultHttpHandler.ServeHTTP(writer, request)
			return
		}
		handler = demux.fallbackApi
	}

	if handler == nil {
		handler404(writer, request)
		return
	}

	//store this ApiHandler on the request context, useful for logging by downstream http handlers
	ctx := context.WithValue(request.Context(), HandlerContextKey, handler)
	handler.ServeHTTP(writer, request.WithContext(ctx))
}

// PathPrefixDemuxFactory is a DemuxFactory that routes http.Request requests to the ApiHandler with the longest
// RootPath containing the request path. When nothing matches the default ApiHandler is used.
type PathPrefixDemuxFactory struct{}

var _ DemuxFactory = &PathPrefixDemuxFactory{}

// Build orders the handlers by root path length and rejects handlers sharing a root path.
func (factory *PathPrefixDemuxFactory) Build(handlers []ApiHandler) (DemuxHandler, error) {
	byRootPath := map[string]ApiHandler{}
	for _, handler := range handlers {
		rootPath := strings.TrimSuffix(handler.RootPath(), "/")
		if existing, found := byRootPath[rootPath]; found {
			return nil, fmt.Errorf("duplicate root path [%s] detected for both bindings [%s] and [%s]", handler.RootPath(), handler.Binding(), existing.Binding())
		}
		byRootPath[rootPath] = handler
	}

	ordered := make([]ApiHandler, len(handlers))
	copy(ordered, handlers)
	sort.SliceStable(ordered, func(i, j int) bool {
		return len(ordered[i].RootPath()) > len(ordered[j].RootPath())
	})

	return newDemuxHandler(handlers, func(request *http.Request) ApiHandler {
		for _, handler := range ordered {
			if IsBelowRootPath(request.URL.Path, handler.RootPath()) {
				return handler
			}
		}
		return nil
	})
}

// IsHandledDemuxFactory is a DemuxFactory that routes http.Request requests to a specific ApiHandler by delegating
// to the ApiHandler's IsHandler function. Handlers are asked in order.
type IsHandledDemuxFactory struct{}

var _ DemuxFactory = &IsHandledDemuxFactory{}

// Build performs ApiHandler selection based on IsHandler()
func (factory *IsHandledDemuxFactory) Build(handlers []ApiHandler) (DemuxHandler, error) {
	return newDemuxHandler(handlers, func(request *http.Request) ApiHandler {
		for _, handler := range handlers {
			if handler.IsHandler(request) {
				return handler
			}
		}
		return nil
	})
}

// IsBelowRootPath reports whether path is rootPath or one of its descendants. "/api" contains "/api" and
// "/api/x" but not "/apix".
func IsBelowRootPath(path, rootPath string) bool {
	rootPath = strings.TrimSuffix(rootPath, "/")
	if rootPath == "" {
		return true
	}
	return path == rootPath || strings.HasPrefix(path, rootPath+"/")
}

// DefaultApiHandler is implemented by ApiHandlers that can be marked as the default of a server.
type DefaultApiHandler interface {
	ApiHandler
	IsDefault() bool
}

// isDefaultApi reports whether handler is marked as the default of its server.
func isDefaultApi(handler ApiHandler) bool {
	candidate, ok := handler.(DefaultApiHandler)
	return ok && candidate.IsDefault()
}

// getDefault selects the ApiHandler serving requests no handler claims. At most one handler may declare itself
// the default. When none does, the last handler is used.
func getDefault(handlers []ApiHandler) (ApiHandler, error) {
	if len(handlers) == 0 {
		return nil, errors.New("no handlers provided")
	}

	var defaults []string
	var defaultApi ApiHandler

	for _, handler := range handlers {
		if isDefaultApi(handler) {
			defaults = append(defaults, fmt.Sprintf("[Binding: %s, Type: %T]", handler.Binding(), handler))
			defaultApi = handler
		}
	}

	switch len(defaults) {
	case 0:
		lastHandler := handlers[len(handlers)-1]
		pfxlog.Logger().Warnf("no default handlers were found, using the last handler [Binding: %s, Type: %T] as the default", lastHandler.Binding(), lastHandler)
		return lastHandler, nil
	case 1:
		return defaultApi, nil
	}

	return nil, errors.Errorf("too many default handlers found, ensure that only one handler is marked as the default: %s", strings.Join(defaults, ","))
}
