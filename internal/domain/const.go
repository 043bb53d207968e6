package domain

type ctxKey string

// RequesterIDCtxKey carries the authenticated uid resolved by the auth
// middleware through the request context.
const RequesterIDCtxKey ctxKey = "es-requesterId"
