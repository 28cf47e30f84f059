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
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newPingService(t *testing.T, binding, rootPath string, isDefault bool) *Service {
	options := ServiceOptions{}
	options.Default()
	options.RootPath = rootPath
	options.IsDefault = isDefault

	ping := NewOperation0("Ping", http.MethodGet, "ping", func() (string, error) {
		return binding, nil
	})

	service, err := NewService(binding, options, ping)
	require.NoError(t, err)
	return service
}

func serve(handler http.Handler, method, target string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(method, target, nil))
	return recorder
}

func Test_getDefault(t *testing.T) {

	t.Run("only services marked as default are default apis", func(t *testing.T) {
		req := require.New(t)
		req.True(isDefaultApi(newPingService(t, "one", "/one", true)))
		req.False(isDefaultApi(newPingService(t, "two", "/two", false)))
	})

	t.Run("a nil slice results in an error", func(t *testing.T) {
		var handlers []ApiHandler = nil

		defaultHandler, err := getDefault(handlers)

		req := require.New(t)
		req.Error(err)
		req.Nil(defaultHandler)
	})

	t.Run("a slice with one non-defaulting service returns that service", func(t *testing.T) {
		s1 := newPingService(t, "one", "/one", false)

		defaultHandler, err := getDefault([]ApiHandler{s1})

		req := require.New(t)
		req.NoError(err)
		req.Same(s1, defaultHandler)
	})

	t.Run("a slice with multiple non-defaulting services returns the last service", func(t *testing.T) {
		s1 := newPingService(t, "one", "/one", false)
		s2 := newPingService(t, "two", "/two", false)
		s3 := newPingService(t, "three", "/three", false)

		defaultHandler, err := getDefault([]ApiHandler{s1, s2, s3})

		req := require.New(t)
		req.NoError(err)
		req.Same(s3, defaultHandler)
	})

	t.Run("a slice with multiple defaulting services returns an error", func(t *testing.T) {
		s1 := newPingService(t, "one", "/one", false)
		s2 := newPingService(t, "two", "/two", true)
		s3 := newPingService(t, "three", "/three", true)

		defaultHandler, err := getDefault([]ApiHandler{s1, s2, s3})

		req := require.New(t)
		req.Error(err)
		req.Contains(err.Error(), "two")
		req.Contains(err.Error(), "three")
		req.Nil(defaultHandler)
	})

	t.Run("a slice with one defaulting service returns the defaulting service", func(t *testing.T) {
		s1 := newPingService(t, "one", "/one", false)
		s2 := newPingService(t, "two", "/two", true)
		s3 := newPingService(t, "three", "/three", false)

		defaultHandler, err := getDefault([]ApiHandler{s1, s2, s3})

		req := require.New(t)
		req.NoError(err)
		req.Same(s2, defaultHandler)
	})
}

func TestPathPrefixDemuxFactory(t *testing.T) {
	t.Run("requests are routed to the service with the longest matching root path", func(t *testing.T) {
		req := require.New(t)
		api := newPingService(t, "api", "/api", false)
		admin := newPingService(t, "admin", "/api/admin", false)

		demux, err := (&PathPrefixDemuxFactory{}).Build([]ApiHandler{api, admin})
		req.NoError(err)

		recorder := serve(demux, http.MethodGet, "/api/admin/ping")
		req.Equal(http.StatusOK, recorder.Code)
		req.Equal(`"admin"`, recorder.Body.String())

		recorder = serve(demux, http.MethodGet, "/api/ping")
		req.Equal(http.StatusOK, recorder.Code)
		req.Equal(`"api"`, recorder.Body.String())
	})

	t.Run("unmatched requests go to the default service", func(t *testing.T) {
		req := require.New(t)
		api := newPingService(t, "api", "/api", true)
		other := newPingService(t, "other", "/other", false)

		demux, err := (&PathPrefixDemuxFactory{}).Build([]ApiHandler{api, other})
		req.NoError(err)

		recorder := serve(demux, http.MethodGet, "/elsewhere")
		req.Equal(http.StatusNotFound, recorder.Code)
	})

	t.Run("root paths match whole path segments", func(t *testing.T) {
		req := require.New(t)
		api := newPingService(t, "api", "/api", false)
		fallback := newPingService(t, "fallback", "/", true)

		demux, err := (&PathPrefixDemuxFactory{}).Build([]ApiHandler{api, fallback})
		req.NoError(err)

		req.Equal(`"api"`, serve(demux, http.MethodGet, "/api/ping").Body.String())
		req.Equal(`"fallback"`, serve(demux, http.MethodGet, "/ping").Body.String())
		req.False(api.IsHandler(httptest.NewRequest(http.MethodGet, "/apix/ping", nil)))
	})

	t.Run("duplicate root paths are rejected", func(t *testing.T) {
		req := require.New(t)
		s1 := newPingService(t, "one", "/same", false)
		s2 := newPingService(t, "two", "/same", false)

		_, err := (&PathPrefixDemuxFactory{}).Build([]ApiHandler{s1, s2})
		req.Error(err)
		req.Contains(err.Error(), "duplicate root path")
	})
}

func TestIsHandledDemuxFactory(t *testing.T) {
	t.Run("the selected service and operation are available from the request context", func(t *testing.T) {
		req := require.New(t)
		var seen ApiHandler

		probe := NewOperation1("Probe", http.MethodGet, "probe", "request", func(request *http.Request) (string, error) {
			seen = HandlerFromRequestContext(request.Context())
			return OperationFromRequestContext(request.Context()), nil
		})
		probeOptions := ServiceOptions{}
		probeOptions.Default()
		probeOptions.RootPath = "/probe"
		probeService, err := NewService("probe", probeOptions, probe)
		req.NoError(err)

		other := newPingService(t, "other", "/other", false)

		demux, err := (&IsHandledDemuxFactory{}).Build([]ApiHandler{other, probeService})
		req.NoError(err)

		recorder := serve(demux, http.MethodGet, "/probe/probe")
		req.Equal(http.StatusOK, recorder.Code)
		req.Equal(`"Probe"`, recorder.Body.String())
		req.Same(probeService, seen)
	})

	t.Run("unmatched requests fall back to the last service", func(t *testing.T) {
		req := require.New(t)

		demux, err := (&IsHandledDemuxFactory{}).Build([]ApiHandler{
			newPingService(t, "one", "/one", false),
			newPingService(t, "two", "/two", false),
		})
		req.NoError(err)

		// the last service is asked to handle a request outside its root path and answers 404
		recorder := serve(demux, http.MethodGet, "/three/ping")
		req.Equal(http.StatusNotFound, recorder.Code)
	})
}

func TestIsBelowRootPath(t *testing.T) {
	req := require.New(t)

	req.True(IsBelowRootPath("/api", "/api"))
	req.True(IsBelowRootPath("/api/", "/api"))
	req.True(IsBelowRootPath("/api/items", "/api/"))
	req.True(IsBelowRootPath("/anything", "/"))
	req.False(IsBelowRootPath("/apix", "/api"))
	req.False(IsBelowRootPath("/", "/api"))
}
