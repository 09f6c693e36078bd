package core

import "context"

type contextKey string

const ctxKeyClientIP contextKey = "import_client_ip"

// ContextWithClientIP adds the requesting client's address to the context
// for import logging.
func ContextWithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyClientIP, ip)
}

// ClientIPFromContext extracts the client address from the context.
func ClientIPFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyClientIP).(string); ok {
		return v
	}
	return ""
}
