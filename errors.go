package accounts

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	// TextCodeTokenExpired marks rejections caused by an expired token.
	TextCodeTokenExpired = "TOKEN_EXPIRED"
	// TextCodeTokenMalformed marks tokens that failed to parse or verify.
	TextCodeTokenMalformed = "TOKEN_MALFORMED"
	// TextCodeLinkInvalid marks activation/reset links that are no longer usable.
	TextCodeLinkInvalid = "INVALID_OR_EXPIRED_LINK"
)

// ErrEmailTaken is returned when a signup or activation collides with an
// existing account.
var ErrEmailTaken = goerrors.New("email is already taken", goerrors.CategoryConflict).
	WithTextCode("EMAIL_TAKEN").
	WithCode(goerrors.CodeConflict)

// ErrInvalidCredentials covers both unknown email and wrong password so the
// response does not reveal which accounts exist.
var ErrInvalidCredentials = goerrors.New("invalid email or password", goerrors.CategoryAuth).
	WithTextCode("INVALID_CREDENTIALS").
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidOrExpiredLink collapses every activation/reset token failure into
// one answer; expired and tampered links are indistinguishable to callers.
var ErrInvalidOrExpiredLink = goerrors.New("link is invalid or has expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeLinkInvalid).
	WithCode(goerrors.CodeUnauthorized)

// ErrUnauthenticated is returned when a request carries no valid session.
var ErrUnauthenticated = goerrors.New("authentication required", goerrors.CategoryAuth).
	WithTextCode("UNAUTHENTICATED").
	WithCode(goerrors.CodeUnauthorized)

// ErrForbidden is returned when an authenticated user is not permitted to act
// on the target resource.
var ErrForbidden = goerrors.New("you are not allowed to perform this action", goerrors.CategoryAuthz).
	WithTextCode("FORBIDDEN").
	WithCode(goerrors.CodeForbidden)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
	WithTextCode("IDENTITY_NOT_FOUND").
	WithCode(goerrors.CodeNotFound)

// ErrDeliveryFailed surfaces notifier failures to the caller; a swallowed
// delivery error would strand the user without a link.
var ErrDeliveryFailed = goerrors.New("could not deliver notification email", goerrors.CategoryOperation).
	WithTextCode("DELIVERY_FAILED").
	WithCode(goerrors.CodeInternal)

// ErrTokenExpired is the internal verification failure for expired tokens.
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is the internal verification failure for tokens that do
// not parse, carry the wrong signature, or claim the wrong purpose.
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrNoEmptyString rejects empty password input before hashing.
var ErrNoEmptyString = goerrors.New("value must not be empty", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest)

// ErrMismatchedHashAndPassword is the normalized bcrypt mismatch error.
var ErrMismatchedHashAndPassword = goerrors.New("mismatched password", goerrors.CategoryAuth).
	WithTextCode("PASSWORD_MISMATCH").
	WithCode(goerrors.CodeUnauthorized)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode == TextCodeTokenExpired {
		return true
	}

	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode == TextCodeTokenMalformed {
		return true
	}

	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// isUniqueViolation sniffs driver-level unique index failures; the store
// index is the authoritative guard against duplicate emails.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
