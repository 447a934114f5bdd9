// Package session stores per-request session state in Redis and binds
// provider-issued credential tokens to it. A session is a flat
// key/value map behind an opaque ID carried in a cookie; logout throws
// the whole map away, which invalidates all tokens client-side.
package session
