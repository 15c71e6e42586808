package auth

import "errors"

var (
	ErrEncoding           = errors.New("auth: claims missing required fields")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrMalformed          = errors.New("auth: malformed token")
	ErrInvalidSignature   = errors.New("auth: invalid signature")
	ErrExpired            = errors.New("auth: token expired")
	ErrWrongTokenKind     = errors.New("auth: wrong token kind")
	ErrRevoked            = errors.New("auth: token revoked")
	ErrReuseDetected      = errors.New("auth: refresh token reuse detected")
	ErrUnauthenticated    = errors.New("auth: unauthenticated")
	ErrForbidden          = errors.New("auth: forbidden")

	// ErrRevocationUnavailable means the denylist could not be consulted.
	// Requests fail closed but are not reported as 401 so clients do not
	// burn their refresh token on an outage.
	ErrRevocationUnavailable = errors.New("auth: revocation store unavailable")
)

// Code is the stable wire name of an auth error, used in {"error": ...}
// bodies. Unknown errors map to "internal".
func Code(err error) string {
	switch {
	case errors.Is(err, ErrReuseDetected):
		return "reuse_detected"
	case errors.Is(err, ErrRevoked):
		return "revoked"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	case errors.Is(err, ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, ErrWrongTokenKind):
		return "wrong_token_kind"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrRevocationUnavailable):
		return "unavailable"
	default:
		return "internal"
	}
}
