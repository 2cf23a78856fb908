// Package auth protects the mutation routes of the API with a single shared
// bearer token.
//
// The server only ever sees the bcrypt hash of the token:
//
//	AUTH_TOKEN_HASH=$2a$10$...   # empty disables authentication
//
// A new token and its hash are printed by `bookstack token`. Clients send the
// plaintext token on every mutation:
//
//	Authorization: Bearer <token>
//
// Repeated failures from one client IP are locked out for a while, see
// RateLimiter.
package auth
