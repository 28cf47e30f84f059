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

// Package middleware provides http.Handler wrappers shared by every server.
package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
)

const (
	EncodingBrotli = "br"
	EncodingGzip   = "gzip"
)

// NewCompressionHandler compresses response bodies with brotli or gzip, whichever the client's Accept-Encoding
// header accepts, preferring brotli. Responses that already carry a Content-Encoding, or that have no body by
// status, are passed through.
func NewCompressionHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		encoding := SelectEncoding(request.Header.Get("Accept-Encoding"))
		if encoding == "" {
			next.ServeHTTP(writer, request)
			return
		}

		writer.Header().Add("Vary", "Accept-Encoding")

		cw := &compressionWriter{
			ResponseWriter: writer,
			encoding:       encoding,
		}
		defer func() {
			_ = cw.Close()
		}()

		next.ServeHTTP(cw, request)
	})
}

// SelectEncoding returns the preferred supported encoding named by an Accept-Encoding header value or "" when
// the client accepts neither.
func SelectEncoding(acceptEncoding string) string {
	accepted := map[string]bool{}

	for _, part := range strings.Split(acceptEncoding, ",") {
		fields := strings.Split(part, ";")
		name := strings.ToLower(strings.TrimSpace(fields[0]))
		if name == "" {
			continue
		}

		quality := 1.0
		for _, field := range fields[1:] {
			field = strings.TrimSpace(field)
			if strings.HasPrefix(field, "q=") {
				if q, err := strconv.ParseFloat(strings.TrimPrefix(field, "q="), 64); err == nil {
					quality = q
				}
			}
		}

		accepted[name] = quality > 0
	}

	for _, encoding := range []string{EncodingBrotli, EncodingGzip} {
		if enabled, ok := accepted[encoding]; ok {
			if enabled {
				return encoding
			}
			continue
		}

		if accepted["*"] {
			return encoding
		}
	}

	return ""
}

type compressionWriter struct {
	http.ResponseWriter
	encoding      string
	encoder       io.WriteCloser
	headerWritten bool
	passThrough   bool
}

func (w *compressionWriter) WriteHeader(statusCode int) {
	if w.headerWritten {
		return
	}
	w.headerWritten = true

	header := w.Header()
	if !bodyAllowed(statusCode) || header.Get("Content-Encoding") != "" {
		w.passThrough = true
	} else {
		header.Set("Content-Encoding", w.encoding)
		header.Del("Content-Length")
	}

	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *compressionWriter) Write(data []byte) (int, error) {
	if !w.headerWritten {
		w.WriteHeader(http.StatusOK)
	}

	if w.passThrough {
		return w.ResponseWriter.Write(data)
	}

	return w.encoderFor().Write(data)
}

func (w *compressionWriter) Flush() {
	if w.encoder != nil {
		if flusher, ok := w.encoder.(interface{ Flush() error }); ok {
			_ = flusher.Flush()
		}
	}

	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (w *compressionWriter) Close() error {
	if !w.headerWritten || w.passThrough {
		return nil
	}

	// an empty body still has to be a valid stream once Content-Encoding was sent
	return w.encoderFor().Close()
}

func (w *compressionWriter) encoderFor() io.WriteCloser {
	if w.encoder == nil {
		switch w.encoding {
		case EncodingBrotli:
			w.encoder = brotli.NewWriterLevel(w.ResponseWriter, brotli.DefaultCompression)
		default:
			w.encoder = gzip.NewWriter(w.ResponseWriter)
		}
	}
	return w.encoder
}

func bodyAllowed(statusCode int) bool {
	switch {
	case statusCode >= 100 && statusCode <= 199:
		return false
	case statusCode == http.StatusNoContent, statusCode == http.StatusNotModified:
		return false
	}
	return true
}
