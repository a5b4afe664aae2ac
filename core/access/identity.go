/*Package access provides authentication for restkit services

A verified caller is represented by an Identity, which middleware adds to the
request context with

  ctx = ContextWithIdentity(ctx, identity)

and which handlers retrieve with

  identity := IdentityFromContext(ctx)

Restkit identities are issued by the service itself as HS256 signed JSON web
tokens, see TokenIssuer and NewJwtMiddleware.
*/
package access

import "context"

// contextKey is the type for context keys. Go linter does not like plain strings
type contextKey string

// the predefined context key
const (
	contextKeyIdentity contextKey = "_identity_"
)

// Identity is the verified caller of a request
type Identity struct {
	// Subject is the uuid of the authenticated user
	Subject string
	// Data is the custom data of the token
	Data map[string]interface{}
}

// ContextWithIdentity returns a new context with the identity added
func ContextWithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, contextKeyIdentity, identity)
}

// IdentityFromContext retrieves the identity from the context, or nil for
// unauthenticated requests
func IdentityFromContext(ctx context.Context) *Identity {
	identity, _ := ctx.Value(contextKeyIdentity).(*Identity)
	return identity
}
