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
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"

	"github.com/michaelquigley/pfxlog"
	"github.com/openziti/foundation/v2/debugz"
	"github.com/openziti/xoperation/middleware"
	"golang.org/x/sync/errgroup"
)

const (
	// NewAddressHeader is set on every response of a bind point with a new address, telling clients where the
	// server is moving to.
	NewAddressHeader = "xoperation-new-address"
)

// ServerContext is stored on every request context a Server handles, see ServerContextFromRequestContext.
type ServerContext struct {
	BindPoint    *BindPointConfig
	ServerConfig *ServerConfig
	Config       *InstanceConfig
}

// BindPointServer is the http.Server listening on a single bind point of a Server.
type BindPointServer struct {
	*http.Server
	Bindings  []string
	BindPoint *BindPointConfig
	context   *ServerContext
}

func (s *BindPointServer) baseContext(_ net.Listener) context.Context {
	return context.WithValue(context.Background(), ServerContextKey, s.context)
}

// Server hosts the ApiHandlers of one ServerConfig on every one of its bind points.
type Server struct {
	DefaultHttpHandlerProviderImpl
	HttpServers    []*BindPointServer
	Handlers       []ApiHandler
	logWriter      *io.PipeWriter
	OnHandlerPanic func(writer http.ResponseWriter, request *http.Request, panicVal interface{})
	ServerConfig   *ServerConfig
}

// NewServer creates a Server from a ServerConfig. One ApiHandler is created per ApiConfig from the Instance's
// Registry and they are joined by the Instance's DemuxFactory.
func NewServer(instance Instance, serverConfig *ServerConfig) (*Server, error) {
	server := &Server{
		ServerConfig: serverConfig,
	}
	server.SetParent(instance)

	bindings, err := server.buildHandlers(instance.GetRegistry())
	if err != nil {
		return nil, err
	}

	demuxHandler, err := instance.GetDemuxFactory().Build(server.Handlers)
	if err != nil {
		return nil, fmt.Errorf("error creating server [%s]: %v", serverConfig.Name, err)
	}
	demuxHandler.SetParent(server)

	server.logWriter = pfxlog.Logger().WithField("server", serverConfig.Name).Writer()
	tlsConfig := serverConfig.TLSConfig()

	for _, bindPoint := range serverConfig.BindPoints {
		bindPointServer := &BindPointServer{
			Bindings:  bindings,
			BindPoint: bindPoint,
			context: &ServerContext{
				BindPoint:    bindPoint,
				ServerConfig: serverConfig,
				Config:       instance.GetConfig(),
			},
			Server: &http.Server{
				Addr:         bindPoint.InterfaceAddress,
				WriteTimeout: serverConfig.Options.WriteTimeout,
				ReadTimeout:  serverConfig.Options.ReadTimeout,
				IdleTimeout:  serverConfig.Options.IdleTimeout,
				Handler:      server.wrapHandler(bindPoint, demuxHandler),
				TLSConfig:    tlsConfig,
				ErrorLog:     log.New(server.logWriter, "", 0),
			},
		}
		bindPointServer.BaseContext = bindPointServer.baseContext

		server.HttpServers = append(server.HttpServers, bindPointServer)
	}

	for _, mutator := range instance.GetConfig().ServerMutators {
		if err = mutator(instance, serverConfig, server); err != nil {
			_ = server.logWriter.Close()
			return nil, fmt.Errorf("encountered error mutating server [%s]: %v", serverConfig.Name, err)
		}
	}

	return server, nil
}

// buildHandlers creates the ApiHandler of every ApiConfig and returns the bindings in configuration order.
func (server *Server) buildHandlers(registry Registry) ([]string, error) {
	var bindings []string

	for _, api := range server.ServerConfig.APIs {
		factory := registry.Get(api.Binding())
		if factory == nil {
			return nil, fmt.Errorf("encountered api binding [%s] which has no associated factory registered", api.Binding())
		}

		handler, err := factory.New(server.ServerConfig, api.Options())
		if err != nil {
			return nil, fmt.Errorf("encountered error building handler for api binding [%s]: %v", api.Binding(), err)
		}

		pfxlog.Logger().WithField("server", server.ServerConfig.Name).Debugf("built api [%s] at root path [%s]", api.Binding(), handler.RootPath())

		server.Handlers = append(server.Handlers, handler)
		bindings = append(bindings, api.Binding())
	}

	return bindings, nil
}

func (server *Server) wrapHandler(bindPoint *BindPointConfig, handler http.Handler) http.Handler {
	//innermost/bottom -> outermost/top
	handler = server.wrapSetNewAddressHeader(bindPoint, handler)
	handler = server.wrapPanicRecovery(handler)
	if server.ServerConfig.Options.Compression {
		handler = middleware.NewCompressionHandler(handler)
	}
	return handler
}

// wrapPanicRecovery answers a panicking request with OnHandlerPanic or, without one, logs the panic with a stack
// and answers 500.
func (server *Server) wrapPanicRecovery(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		defer func() {
			if panicVal := recover(); panicVal != nil {
				if server.OnHandlerPanic != nil {
					server.OnHandlerPanic(writer, request, panicVal)
					return
				}
				pfxlog.Logger().
					WithField("server", server.ServerConfig.Name).
					WithField("operation", OperationFromRequestContext(request.Context())).
					Errorf("panic caught by server handler for %s %s: %v\n%v", request.Method, request.URL, panicVal, debugz.GenerateLocalStack())
				writer.WriteHeader(http.StatusInternalServerError)
			}
		}()

		handler.ServeHTTP(writer, request)
	})
}

// wrapSetNewAddressHeader advertises the bind point's new address, if any, on every response. Clients can check
// the header to learn that the server is or will be moving from one ip/hostname to another.
func (server *Server) wrapSetNewAddressHeader(bindPoint *BindPointConfig, handler http.Handler) http.Handler {
	newAddress := bindPoint.NewAddressUrl(server.ServerConfig.Scheme())
	if newAddress == "" {
		return handler
	}

	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set(NewAddressHeader, newAddress)
		handler.ServeHTTP(writer, request)
	})
}

// Start listens on every bind point and serves until every http.Server has stopped. It returns the first error
// other than http.ErrServerClosed.
func (server *Server) Start() error {
	logger := pfxlog.Logger().WithField("server", server.ServerConfig.Name)

	var listeners []net.Listener
	for _, httpServer := range server.HttpServers {
		listener, err := httpServer.BindPoint.Listener(server.ServerConfig.Name, httpServer.TLSConfig)
		if err != nil {
			for _, opened := range listeners {
				_ = opened.Close()
			}
			return fmt.Errorf("error listening on %s: %v", httpServer.Addr, err)
		}
		listeners = append(listeners, listener)
	}

	group := &errgroup.Group{}
	for i, httpServer := range server.HttpServers {
		httpServer, listener := httpServer, listeners[i]

		logger.Infof("listening on %s as %s with APIs: %v", listener.Addr(), httpServer.BindPoint.AdvertisedUrl(server.ServerConfig.Scheme()), httpServer.Bindings)

		group.Go(func() error {
			if err := httpServer.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("error serving on %s: %v", httpServer.Addr, err)
			}
			return nil
		})
	}

	return group.Wait()
}

// Shutdown stops every http.Server, waiting for in flight requests until ctx is done.
func (server *Server) Shutdown(ctx context.Context) {
	group := &errgroup.Group{}
	for _, httpServer := range server.HttpServers {
		httpServer := httpServer
		group.Go(func() error {
			return httpServer.Shutdown(ctx)
		})
	}

	if err := group.Wait(); err != nil {
		pfxlog.Logger().WithField("server", server.ServerConfig.Name).Warnf("error during shutdown: %v", err)
	}

	_ = server.logWriter.Close()
}
