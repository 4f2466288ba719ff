package v1

import (
	"context"

	"github.com/quka-ai/livetable/pkg/security"
)

const (
	TOKEN_CONTEXT_KEY      = "__livetable.access_token"
	LANGUAGE_KEY           = "__livetable.accept_language"
	APPID_KEY              = "__livetable.appid"
	CONNECTION_CONTEXT_KEY = "__livetable.connection_id"
)

func InjectAppid(ctx context.Context) (string, bool) {
	val, ok := ctx.Value(APPID_KEY).(string)
	return val, ok
}

// InjectTokenClaim get user/platform token claims from context
func InjectTokenClaim(ctx context.Context) (security.TokenClaims, bool) {
	val, ok := ctx.Value(TOKEN_CONTEXT_KEY).(security.TokenClaims)
	return val, ok
}

func InjectLanguage(ctx context.Context) (string, bool) {
	val, ok := ctx.Value(LANGUAGE_KEY).(string)
	return val, ok
}

// InjectConnectionID returns the streaming connection that issued the current operation.
// It is empty for http requests.
func InjectConnectionID(ctx context.Context) string {
	val, _ := ctx.Value(CONNECTION_CONTEXT_KEY).(string)
	return val
}

func WithTokenClaim(ctx context.Context, claims security.TokenClaims) context.Context {
	return context.WithValue(ctx, TOKEN_CONTEXT_KEY, claims)
}

func WithLanguage(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, LANGUAGE_KEY, lang)
}

func WithConnectionID(ctx context.Context, connID string) context.Context {
	return context.WithValue(ctx, CONNECTION_CONTEXT_KEY, connID)
}
