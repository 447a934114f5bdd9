package cognito

import (
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"
)

// The two provider error kinds that call sites treat as an ordinary
// "authentication failed" outcome rather than a fault.
const (
	errCodeNotAuthorized = "NotAuthorizedException"
	errCodeUserNotFound  = "UserNotFoundException"
)

// IsNotAuthorized reports whether err is Cognito rejecting the
// credential pair.
func IsNotAuthorized(err error) bool {
	var notAuthorized *types.NotAuthorizedException
	if errors.As(err, &notAuthorized) {
		return true
	}
	return hasErrorCode(err, errCodeNotAuthorized)
}

// IsUserNotFound reports whether err is Cognito not knowing the user.
func IsUserNotFound(err error) bool {
	var notFound *types.UserNotFoundException
	if errors.As(err, &notFound) {
		return true
	}
	return hasErrorCode(err, errCodeUserNotFound)
}

// IsAuthFailure reports whether err is one of the two error kinds a
// login attempt absorbs as a negative result. Any other provider error
// signals a backend, config, or transport problem and must propagate.
func IsAuthFailure(err error) bool {
	return IsNotAuthorized(err) || IsUserNotFound(err)
}

func hasErrorCode(err error, code string) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == code
	}
	return false
}
