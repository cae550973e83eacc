// Package middleware validates HTTP request bodies against a goshape
// validator before the wrapped handler runs.
package middleware

import (
	"context"
	"net/http"

	json "github.com/goccy/go-json"

	goshape "github.com/reoring/goshape"
)

// ctxKeyValue is the context key for the decoded body.
type ctxKeyValue struct{}

// ContextWithValue attaches a decoded body to the context.
func ContextWithValue(ctx context.Context, v any) context.Context {
	return context.WithValue(ctx, ctxKeyValue{}, decoded{v})
}

// ValueFromContext retrieves the decoded body stored by Validate.
func ValueFromContext(ctx context.Context) (any, bool) {
	v, ok := ctx.Value(ctxKeyValue{}).(decoded)
	return v.value, ok
}

// decoded wraps the body so a JSON null body is still "present".
type decoded struct{ value any }

// DefaultDecodeOpt returns a recommended default for HTTP JSON boundaries.
// - Duplicate keys are errors
// - Nesting is capped at goshape.DefaultMaxDepth
// - Bodies are capped at 1 MiB
func DefaultDecodeOpt() goshape.DecodeOpt {
	opt := goshape.DefaultDecodeOpt()
	opt.MaxBytes = 1 << 20
	return opt
}

// Options configures Validate.
type Options struct {
	Decode goshape.DecodeOpt
	// OnError writes the response for a rejected body. status is 400, 413 or
	// 422; issues is empty when the body decoded but did not conform.
	OnError func(w http.ResponseWriter, r *http.Request, status int, issues goshape.Issues)
}

// Validate decodes each request body as JSON and passes the request on only
// when the value conforms to v. The decoded value is available to the next
// handler through ValueFromContext.
func Validate(v *goshape.Validator, opt Options) func(http.Handler) http.Handler {
	onError := opt.OnError
	if onError == nil {
		onError = writeError
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			value, err := goshape.Decode(r.Context(), goshape.JSONReader(r.Body), opt.Decode)
			if err != nil {
				iss, _ := goshape.AsIssues(err)
				status := http.StatusBadRequest
				if goshape.HasCode(err, goshape.CodeTruncated) {
					status = http.StatusRequestEntityTooLarge
				}
				onError(w, r, status, iss)
				return
			}
			if !v.IsValid(value) {
				onError(w, r, http.StatusUnprocessableEntity, nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithValue(r.Context(), value)))
		})
	}
}

// ErrorPayload shapes Issues for JSON responses.
func ErrorPayload(status int, issues goshape.Issues) map[string]any {
	out := map[string]any{"error": http.StatusText(status)}
	if len(issues) > 0 {
		list := make([]map[string]any, len(issues))
		for i, it := range issues {
			list[i] = map[string]any{"path": it.Path, "code": it.Code, "message": it.Message}
		}
		out["issues"] = list
	}
	return out
}

func writeError(w http.ResponseWriter, r *http.Request, status int, issues goshape.Issues) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorPayload(status, issues))
}
