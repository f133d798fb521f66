package mcp

import (
	"io"
	"net/http"

	"github.com/fenwicklabs/reactor/httpwire"
)

// Handler returns d mounted as a plain http.Handler, for embedding behind
// net/http (or testing with httptest) without running the full reactor
// engine, mirroring the teacher's StreamableHTTPHandler being an
// http.Handler in its own right.
func (d *Dispatcher) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := fromHTTPRequest(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rw := &httpResponseWriter{w: w}
		d.Handle(req, rw)
		rw.finish()
	})
}

func fromHTTPRequest(r *http.Request) (*httpwire.Request, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	headers := make(httpwire.Header, len(r.Header))
	for name := range r.Header {
		headers.Set(name, r.Header.Get(name))
	}
	return &httpwire.Request{
		ClientAddress:     r.RemoteAddr,
		Method:            r.Method,
		URI:               r.URL.RequestURI(),
		Protocol:          r.Proto,
		Headers:           headers,
		Body:              body,
		ContentLength:     r.ContentLength,
		Expect100Continue: r.Header.Get("Expect") == "100-continue",
	}, nil
}

// httpResponseWriter adapts a net/http.ResponseWriter to engine.ResponseWriter,
// so a Dispatcher built against the reactor engine's handler contract also
// runs unmodified behind net/http.
type httpResponseWriter struct {
	w          http.ResponseWriter
	header     httpwire.Header
	status     int
	body       []byte
	streamType string
	pull       func() ([]byte, bool)
}

func (rw *httpResponseWriter) SetStatus(code int) { rw.status = code }

func (rw *httpResponseWriter) Header() httpwire.Header {
	if rw.header == nil {
		rw.header = httpwire.Header{}
	}
	return rw.header
}

func (rw *httpResponseWriter) Write(p []byte) (int, error) {
	rw.body = append(rw.body, p...)
	return len(p), nil
}

func (rw *httpResponseWriter) Stream(contentType string, pull func() (data []byte, done bool), wake <-chan struct{}) {
	rw.streamType = contentType
	rw.pull = pull
	rw.body = nil
}

// finish writes the accumulated status/headers/body, or drains the pull
// function to completion for a streamed response. net/http's Flusher is
// used so each chunk reaches the client as it's produced, matching the
// reactor engine's own incremental SSE delivery.
func (rw *httpResponseWriter) finish() {
	for k, v := range rw.header {
		rw.w.Header().Set(k, v)
	}
	if rw.pull == nil {
		rw.writeStatus()
		rw.w.Write(rw.body)
		return
	}

	rw.w.Header().Set("Content-Type", rw.streamType)
	rw.writeStatus()
	flusher, _ := rw.w.(http.Flusher)
	for {
		chunk, done := rw.pull()
		if len(chunk) > 0 {
			rw.w.Write(chunk)
			if flusher != nil {
				flusher.Flush()
			}
		}
		if done {
			return
		}
		if len(chunk) == 0 {
			// Stream does not keep the wake channel, so an empty, not-done
			// result ends the response here: a long-lived GET subscription
			// served through this adapter delivers only the frames already
			// queued when the handler runs.
			return
		}
	}
}

func (rw *httpResponseWriter) writeStatus() {
	status := rw.status
	if status == 0 {
		status = http.StatusOK
	}
	rw.w.WriteHeader(status)
}
