package session

import "context"

type ctxKey string

const ctxSessionID ctxKey = "session_id"

func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxSessionID, id)
}

func IDFromContext(ctx context.Context) string {
	if v := ctx.Value(ctxSessionID); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
