package logger

import (
	"time"

	"go.uber.org/zap"
)

// =================================================================================
// STANDARD FIELDS - HTTP
// =================================================================================

// RequestID field for the request id.
func RequestID(v string) zap.Field {
	return zap.String("request_id", v)
}

// Method field for the HTTP method.
func Method(v string) zap.Field {
	return zap.String("method", v)
}

// Path field for the request path.
func Path(v string) zap.Field {
	return zap.String("path", v)
}

// Status field for the HTTP status code.
func Status(v int) zap.Field {
	return zap.Int("status", v)
}

// Duration field for the request duration.
func Duration(v time.Duration) zap.Field {
	return zap.Duration("duration", v)
}

// ClientIP field for the client IP.
func ClientIP(v string) zap.Field {
	return zap.String("client_ip", v)
}

// =================================================================================
// STANDARD FIELDS - IAM DOMAIN
// =================================================================================

// AccountID field for the account id.
func AccountID(v string) zap.Field {
	return zap.String("account_id", v)
}

// Username field for the account username.
func Username(v string) zap.Field {
	return zap.String("username", v)
}

// GroupID field for the group id.
func GroupID(v string) zap.Field {
	return zap.String("group_id", v)
}

// ClientID field for the OAuth client id.
func ClientID(v string) zap.Field {
	return zap.String("client_id", v)
}

// PolicyID field for the scope policy id.
func PolicyID(v string) zap.Field {
	return zap.String("policy_id", v)
}

// TokenID field for the token id.
func TokenID(v string) zap.Field {
	return zap.String("token_id", v)
}

// Scope field for a single OAuth scope.
func Scope(v string) zap.Field {
	return zap.String("scope", v)
}

// Scopes field for a scope set.
func Scopes(v []string) zap.Field {
	return zap.Strings("scopes", v)
}

// Effect field for a policy effect (PERMIT/DENY).
func Effect(v string) zap.Field {
	return zap.String("effect", v)
}

// =================================================================================
// STANDARD FIELDS - SYSTEM
// =================================================================================

// Component field for the component/module.
func Component(v string) zap.Field {
	return zap.String("component", v)
}

// Op field for the current operation.
func Op(v string) zap.Field {
	return zap.String("op", v)
}

// Layer field for the layer (handler, service, repository).
func Layer(v string) zap.Field {
	return zap.String("layer", v)
}

// Err field for an error.
func Err(err error) zap.Field {
	return zap.Error(err)
}

// =================================================================================
// STANDARD FIELDS - DATA
// =================================================================================

// Count field for a count.
func Count(v int) zap.Field {
	return zap.Int("count", v)
}

// ID generic field for an id.
func ID(v string) zap.Field {
	return zap.String("id", v)
}

// Any generic field for any value.
func Any(key string, v any) zap.Field {
	return zap.Any(key, v)
}

// String generic string field.
func String(key, v string) zap.Field {
	return zap.String(key, v)
}

// Int generic int field.
func Int(key string, v int) zap.Field {
	return zap.Int(key, v)
}

// Bool generic bool field.
func Bool(key string, v bool) zap.Field {
	return zap.Bool(key, v)
}
