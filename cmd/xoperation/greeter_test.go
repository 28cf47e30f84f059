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

package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/openziti/xoperation"
	"github.com/stretchr/testify/require"
)

const greeterConfig = `
web:
  - name: greeter-server
    bindPoints:
      - interface: 127.0.0.1:18443
        address: localhost:18443
    apis:
      - binding: greeter
        options:
          rootPath: /v1
`

func newGreeterService(t *testing.T) *xoperation.Service {
	t.Helper()

	options := xoperation.ServiceOptions{}
	options.Default()

	service, err := xoperation.NewService(GreeterBinding, options, newGreeterOperations(newGreetings())...)
	require.NoError(t, err)
	return service
}

func do(handler http.Handler, method, target, body string, header http.Header) *httptest.ResponseRecorder {
	var request *http.Request
	if body == "" {
		request = httptest.NewRequest(method, target, nil)
	} else {
		request = httptest.NewRequest(method, target, strings.NewReader(body))
		request.Header.Set("Content-Type", "application/json")
	}
	for name, values := range header {
		request.Header[name] = values
	}

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func decodeGreeting(t *testing.T, recorder *httptest.ResponseRecorder) *Greeting {
	t.Helper()
	greeting := &Greeting{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), greeting))
	return greeting
}

func TestGreeter(t *testing.T) {
	t.Run("unknown names get a default greeting addressed to the caller", func(t *testing.T) {
		req := require.New(t)

		recorder := do(newGreeterService(t), http.MethodGet, "/greetings/ada", "", http.Header{CallerHeader: {"grace"}})
		req.Equal(http.StatusOK, recorder.Code)
		req.Equal(GreeterVersion, recorder.Header().Get(GreeterVersionHeader))

		greeting := decodeGreeting(t, recorder)
		req.Equal("ada", greeting.Name)
		req.Equal("hello, ada", greeting.Message)
		req.Equal("grace", greeting.Caller)
	})

	t.Run("stored greetings are returned and listed", func(t *testing.T) {
		req := require.New(t)

		service := newGreeterService(t)

		recorder := do(service, http.MethodPut, "/greetings/bob", `{"message":"good day, bob"}`, nil)
		req.Equal(http.StatusOK, recorder.Code)
		req.Equal("good day, bob", decodeGreeting(t, recorder).Message)

		recorder = do(service, http.MethodPut, "/greetings/alice", `{"message":"hi alice"}`, nil)
		req.Equal(http.StatusOK, recorder.Code)

		recorder = do(service, http.MethodGet, "/greetings/BOB", "", nil)
		req.Equal("good day, bob", decodeGreeting(t, recorder).Message)

		recorder = do(service, http.MethodGet, "/greetings", "", nil)
		req.Equal(http.StatusOK, recorder.Code)

		var listed []*Greeting
		req.NoError(json.Unmarshal(recorder.Body.Bytes(), &listed))
		req.Len(listed, 2)
		req.Equal("alice", listed[0].Name)
		req.Equal("bob", listed[1].Name)
	})

	t.Run("a greeting without a message is a bad request", func(t *testing.T) {
		req := require.New(t)

		service := newGreeterService(t)
		req.Equal(http.StatusBadRequest, do(service, http.MethodPut, "/greetings/bob", `{"message":""}`, nil).Code)
		req.Equal(http.StatusBadRequest, do(service, http.MethodPut, "/greetings/bob", "", nil).Code)
	})

	t.Run("deleting answers no content and then not found", func(t *testing.T) {
		req := require.New(t)

		service := newGreeterService(t)
		do(service, http.MethodPut, "/greetings/bob", `{"message":"bye"}`, nil)

		recorder := do(service, http.MethodDelete, "/greetings/bob", "", nil)
		req.Equal(http.StatusNoContent, recorder.Code)
		req.Equal(GreeterVersion, recorder.Header().Get(GreeterVersionHeader))

		req.Equal(http.StatusNotFound, do(service, http.MethodDelete, "/greetings/bob", "", nil).Code)
	})

	t.Run("unsupported methods list the allowed ones", func(t *testing.T) {
		recorder := do(newGreeterService(t), http.MethodPost, "/greetings/bob", "", nil)
		require.Equal(t, http.StatusMethodNotAllowed, recorder.Code)
		require.Equal(t, "DELETE, GET, PUT", recorder.Header().Get("Allow"))
	})
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestRoutesCommand(t *testing.T) {
	t.Run("routes are printed below the api root path", func(t *testing.T) {
		req := require.New(t)

		out := &bytes.Buffer{}
		cmd := &RoutesCommand{Config: writeConfig(t, greeterConfig), out: out}
		req.NoError(cmd.Run(newRegistry()))

		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		req.Len(lines, 5)
		req.Equal([]string{"SERVER", "BINDING", "METHOD", "URI", "OPERATION"}, strings.Fields(lines[0]))
		req.Equal([]string{"greeter-server", "greeter", "GET", "/v1/greetings/{name}", "GetGreeting"}, strings.Fields(lines[1]))
		req.Equal([]string{"greeter-server", "greeter", "DELETE", "/v1/greetings/{name}", "DeleteGreeting"}, strings.Fields(lines[4]))
	})

	t.Run("an invalid configuration is reported", func(t *testing.T) {
		cmd := &RoutesCommand{Config: writeConfig(t, "web:\n  - name: x\n"), out: &bytes.Buffer{}}
		require.Error(t, cmd.Run(newRegistry()))
	})
}

func TestCLI(t *testing.T) {
	req := require.New(t)

	path := writeConfig(t, greeterConfig)

	var cli struct {
		Serve   ServeCommand  `cmd:""`
		Routes  RoutesCommand `cmd:""`
		Verbose bool          `short:"v"`
	}

	parser, err := kong.New(&cli, kong.BindTo(newRegistry(), (*xoperation.Registry)(nil)))
	req.NoError(err)

	kongCtx, err := parser.Parse([]string{"routes", "-v", "--config", path})
	req.NoError(err)
	req.Equal("routes", kongCtx.Command())
	req.Equal(path, cli.Routes.Config)
	req.True(cli.Verbose)

	_, err = parser.Parse([]string{"serve", "--config", filepath.Join(t.TempDir(), "missing.yml")})
	req.Error(err)
}
