package devserver

import (
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

var compressibleTypes = []string{
	"text/",
	"application/javascript",
	"application/json",
	"image/svg+xml",
}

func compressible(contentType string) bool {
	for _, prefix := range compressibleTypes {
		if strings.HasPrefix(contentType, prefix) {
			return true
		}
	}
	return false
}

// compressWriter negotiates brotli or gzip for compressible 200 responses.
type compressWriter struct {
	http.ResponseWriter
	r           *http.Request
	wc          io.WriteCloser
	wroteHeader bool
}

func newCompressWriter(w http.ResponseWriter, r *http.Request) *compressWriter {
	return &compressWriter{ResponseWriter: w, r: r}
}

func (cw *compressWriter) WriteHeader(code int) {
	if cw.wroteHeader {
		return
	}
	cw.wroteHeader = true
	h := cw.Header()
	if code == http.StatusOK && cw.r.Method != http.MethodHead &&
		h.Get("Content-Encoding") == "" && compressible(h.Get("Content-Type")) {
		h.Del("Content-Length")
		cw.wc = brotli.HTTPCompressor(cw.ResponseWriter, cw.r)
	}
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *compressWriter) Write(p []byte) (int, error) {
	if !cw.wroteHeader {
		if cw.Header().Get("Content-Type") == "" {
			cw.Header().Set("Content-Type", http.DetectContentType(p))
		}
		cw.WriteHeader(http.StatusOK)
	}
	if cw.wc != nil {
		return cw.wc.Write(p)
	}
	return cw.ResponseWriter.Write(p)
}

// Close flushes the compressor, if one was started.
func (cw *compressWriter) Close() error {
	if cw.wc != nil {
		return cw.wc.Close()
	}
	return nil
}
