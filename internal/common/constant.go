package common

// AuthorizationHeaderName is the HTTP header carrying the operator token.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the JWT inside the Authorization header.
const BearerPrefix = "Bearer "
