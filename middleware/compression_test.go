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

package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/require"
)

const body = `{"message":"hello, hello, hello, hello"}`

func textHandler(statusCode int) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.Header().Set("Content-Type", "application/json")
		writer.Header().Set("Content-Length", "40")
		writer.WriteHeader(statusCode)
		if statusCode != http.StatusNoContent {
			_, _ = writer.Write([]byte(body))
		}
	})
}

func serve(handler http.Handler, acceptEncoding string) *httptest.ResponseRecorder {
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	if acceptEncoding != "" {
		request.Header.Set("Accept-Encoding", acceptEncoding)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func TestSelectEncoding(t *testing.T) {
	req := require.New(t)

	req.Equal(EncodingBrotli, SelectEncoding("gzip, deflate, br"))
	req.Equal(EncodingGzip, SelectEncoding("gzip"))
	req.Equal(EncodingGzip, SelectEncoding("br;q=0, gzip;q=0.5"))
	req.Equal(EncodingBrotli, SelectEncoding("*"))
	req.Equal(EncodingGzip, SelectEncoding("br;q=0, *"))
	req.Equal("", SelectEncoding("identity"))
	req.Equal("", SelectEncoding(""))
}

func TestNewCompressionHandler(t *testing.T) {
	t.Run("brotli is used when accepted", func(t *testing.T) {
		req := require.New(t)

		recorder := serve(NewCompressionHandler(textHandler(http.StatusOK)), "gzip, br")
		req.Equal(http.StatusOK, recorder.Code)
		req.Equal(EncodingBrotli, recorder.Header().Get("Content-Encoding"))
		req.Equal("Accept-Encoding", recorder.Header().Get("Vary"))
		req.Empty(recorder.Header().Get("Content-Length"))

		decoded, err := io.ReadAll(brotli.NewReader(recorder.Body))
		req.NoError(err)
		req.Equal(body, string(decoded))
	})

	t.Run("gzip is used when brotli is not accepted", func(t *testing.T) {
		req := require.New(t)

		recorder := serve(NewCompressionHandler(textHandler(http.StatusOK)), "gzip")
		req.Equal(EncodingGzip, recorder.Header().Get("Content-Encoding"))

		reader, err := gzip.NewReader(recorder.Body)
		req.NoError(err)
		decoded, err := io.ReadAll(reader)
		req.NoError(err)
		req.Equal(body, string(decoded))
	})

	t.Run("responses are untouched without an accepted encoding", func(t *testing.T) {
		req := require.New(t)

		recorder := serve(NewCompressionHandler(textHandler(http.StatusOK)), "")
		req.Empty(recorder.Header().Get("Content-Encoding"))
		req.Equal(body, recorder.Body.String())
	})

	t.Run("responses without a body are passed through", func(t *testing.T) {
		req := require.New(t)

		recorder := serve(NewCompressionHandler(textHandler(http.StatusNoContent)), "br")
		req.Equal(http.StatusNoContent, recorder.Code)
		req.Empty(recorder.Header().Get("Content-Encoding"))
		req.Zero(recorder.Body.Len())
	})

	t.Run("already encoded responses are passed through", func(t *testing.T) {
		req := require.New(t)

		handler := http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
			writer.Header().Set("Content-Encoding", "identity")
			_, _ = io.Copy(writer, strings.NewReader(body))
		})

		recorder := serve(NewCompressionHandler(handler), "br")
		req.Equal("identity", recorder.Header().Get("Content-Encoding"))
		req.Equal(body, recorder.Body.String())
	})

	t.Run("an empty body is still a valid stream", func(t *testing.T) {
		req := require.New(t)

		handler := http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
			writer.WriteHeader(http.StatusOK)
		})

		recorder := serve(NewCompressionHandler(handler), "gzip")
		reader, err := gzip.NewReader(recorder.Body)
		req.NoError(err)
		decoded, err := io.ReadAll(reader)
		req.NoError(err)
		req.Empty(decoded)
	})
}
