package internal

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader carries the request id between the caller and the server.
const RequestIDHeader = "X-Request-Id"

type requestIDKey struct{}

// requestContext tags the request context with the caller's id, or a new one
// when the header is absent, and echoes it in the response headers.
func requestContext(w http.ResponseWriter, r *http.Request) (context.Context, string) {
	reqID := r.Header.Get(RequestIDHeader)
	if reqID == "" || len(reqID) > 64 {
		reqID = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, reqID)
	return context.WithValue(r.Context(), requestIDKey{}, reqID), reqID
}

// RequestID returns the id stored by the server, or an empty string.
func RequestID(ctx context.Context) string {
	reqID, _ := ctx.Value(requestIDKey{}).(string)
	return reqID
}
