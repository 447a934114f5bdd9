// Package api exposes the HTTP surface of the service: login and
// logout, sign-up and confirmation, and the session-guarded profile
// views, plus health and metrics endpoints.
//
// Authentication outcomes follow a strict two-tier policy. A rejected
// credential is a 401, never an error; only infrastructure failures
// (provider outage, store failure) surface as 5xx. Handlers never log
// or echo passwords or tokens.
package api
