package request

import (
	"fmt"
	"net/http"

	dErrors "clientiq/pkg/domain-errors"
	"clientiq/pkg/platform/httputil"
)

// BodyLimit caps request bodies at maxBytes. A declared Content-Length over
// the cap is refused with 413 before the handler runs; chunked bodies are
// cut off by http.MaxBytesReader and surface as 413 from the JSON decoder.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				httputil.WriteError(r.Context(), w, dErrors.New(dErrors.CodeTooLarge,
					fmt.Sprintf("request body must not exceed %d bytes", maxBytes)))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
