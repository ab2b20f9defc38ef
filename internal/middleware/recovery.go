package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/josh-kwaku/toko-backend/internal/handler"
	"github.com/josh-kwaku/toko-backend/internal/logging"
)

type panicWriter struct {
	http.ResponseWriter
	wroteHeader bool
}

func (w *panicWriter) WriteHeader(code int) {
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *panicWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

// Recovery turns a handler panic into a 500 INTERNAL_ERROR envelope. The
// log line carries the request id Tracing echoed on the response, since
// Recovery sits outside it. A response that already started is left alone,
// and http.ErrAbortHandler is re-raised for net/http to handle.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pw := &panicWriter{ResponseWriter: w}
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}

			logging.FromContext(r.Context()).Error("panic recovered",
				"error", rec,
				"request_id", w.Header().Get(traceIDHeader),
				"method", r.Method,
				"path", r.URL.Path,
				"response_started", pw.wroteHeader,
				"stack", string(debug.Stack()),
			)
			if !pw.wroteHeader {
				handler.RespondAppError(w, handler.ErrInternalError, nil)
			}
		}()
		next.ServeHTTP(pw, r)
	})
}
