// Package gzippedhttp compresses responses for clients that accept gzip and
// inflates gzip-encoded request bodies.
package gzippedhttp

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
)

// CompressedReader inflates a gzip request body.
type CompressedReader struct {
	r  io.ReadCloser
	zr *gzip.Reader
}

func NewCompressedReader(requestBody io.ReadCloser) (*CompressedReader, error) {
	zr, err := gzip.NewReader(requestBody)
	if err != nil {
		return nil, err
	}

	return &CompressedReader{
		r:  requestBody,
		zr: zr,
	}, nil
}

func (c *CompressedReader) Read(p []byte) (int, error) {
	return c.zr.Read(p)
}

// Close closes the gzip stream and the original body.
func (c *CompressedReader) Close() error {
	if err := c.r.Close(); err != nil {
		return err
	}

	return c.zr.Close()
}

// CompressedHTTPResponseWriter compresses the body when the status allows a
// body and the handler did not encode it already. Compression is chosen at
// the first non-empty Write, so a response without a body never announces
// gzip. The gzip writer is taken from the pool at that point too.
type CompressedHTTPResponseWriter struct {
	w           http.ResponseWriter
	zw          *gzip.Writer
	status      int
	wroteHeader bool
	headerSent  bool
	compress    bool
}

func NewCompressedHTTPResponseWriter(w http.ResponseWriter) *CompressedHTTPResponseWriter {
	return &CompressedHTTPResponseWriter{w: w}
}

// Close sends a pending header, flushes the compressed stream and returns
// the writer to the pool.
func (c *CompressedHTTPResponseWriter) Close() error {
	if c.wroteHeader && !c.headerSent {
		c.sendHeader()
	}
	if c.zw == nil {
		return nil
	}
	err := c.zw.Close()
	gzipWriterPool.Put(c.zw)
	c.zw = nil

	return err
}

func (c *CompressedHTTPResponseWriter) WriteHeader(statusCode int) {
	if c.wroteHeader {
		return
	}
	c.wroteHeader = true
	c.status = statusCode

	header := c.w.Header()
	if !compressible(statusCode) || header.Get("Content-Encoding") != "" || header.Get("Content-Range") != "" {
		c.sendHeader()
	}
}

func (c *CompressedHTTPResponseWriter) sendHeader() {
	c.headerSent = true
	c.w.WriteHeader(c.status)
}

func (c *CompressedHTTPResponseWriter) Write(p []byte) (int, error) {
	if !c.wroteHeader {
		if c.w.Header().Get("Content-Type") == "" {
			c.w.Header().Set("Content-Type", http.DetectContentType(p))
		}
		c.WriteHeader(http.StatusOK)
	}
	if !c.headerSent {
		if len(p) == 0 {
			return 0, nil
		}
		c.compress = true
		header := c.w.Header()
		header.Set("Content-Encoding", "gzip")
		header.Del("Content-Length")
		header.Add("Vary", "Accept-Encoding")
		c.sendHeader()
	}
	if !c.compress {
		return c.w.Write(p)
	}
	if c.zw == nil {
		c.zw = gzipWriterPool.Get().(*gzip.Writer)
		c.zw.Reset(c.w)
	}

	return c.zw.Write(p)
}

func (c *CompressedHTTPResponseWriter) Header() http.Header {
	return c.w.Header()
}

func compressible(statusCode int) bool {
	switch {
	case statusCode < http.StatusOK:
		return false
	case statusCode == http.StatusNoContent,
		statusCode == http.StatusPartialContent,
		statusCode == http.StatusNotModified:
		return false
	default:
		return true
	}
}

var gzipWriterPool = sync.Pool{
	New: func() interface{} {
		w, _ := gzip.NewWriterLevel(nil, gzip.BestSpeed)
		return w
	},
}

// GzipResponse compresses the response when the request's Accept-Encoding
// names gzip.
func GzipResponse(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if request.Method == http.MethodHead || !strings.Contains(request.Header.Get("Accept-Encoding"), "gzip") {
			h.ServeHTTP(response, request)
			return
		}

		compressed := NewCompressedHTTPResponseWriter(response)
		defer compressed.Close()

		h.ServeHTTP(compressed, request)
	}

	return http.HandlerFunc(middleware)
}

// UngzipRequest replaces a gzip-encoded request body with its inflated
// content. A body that is not valid gzip is rejected with 400.
func UngzipRequest(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if !strings.Contains(request.Header.Get("Content-Encoding"), "gzip") {
			h.ServeHTTP(response, request)
			return
		}

		body, err := NewCompressedReader(request.Body)
		if err != nil {
			http.Error(response, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		defer body.Close()

		request.Body = body
		request.Header.Del("Content-Encoding")
		request.ContentLength = -1
		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}
