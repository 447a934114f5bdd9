// Package cognito wraps the AWS Cognito user pool API used for
// authentication, sign-up, and profile management.
//
// The wrapper owns all protocol detail: the USER_PASSWORD_AUTH flow,
// SECRET_HASH computation for app clients with a secret, and the
// classification of provider errors into the two kinds that callers
// treat as ordinary negative outcomes (NotAuthorizedException and
// UserNotFoundException). Everything else surfaces unchanged.
package cognito
