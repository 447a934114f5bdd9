// Package identity holds the authentication backend and the attribute
// mapping between Cognito user pool attributes and local user record
// fields.
//
// A login attempt moves through exactly one of three outcomes: a user
// record with session tokens attached, a nil result for a rejected
// credential (not authorized or unknown user), or a propagated error
// for any other provider or store fault. The backend never retries and
// never writes to the local store on a failed path.
package identity
