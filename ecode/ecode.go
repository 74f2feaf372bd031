// Package ecode defines standardized error codes for API responses.
//
// Error codes follow a standardized numbering scheme:
//   - 0: Success (OK)
//   - -100 to -199: Authentication/authorization errors
//   - -200 to -299: Request validation errors
//   - -300 to -399: Resource errors
//   - -500+: Server errors
package ecode

// Common error codes.
const (
	OK               = 0
	Unauthorized     = -101
	AccessDenied     = -103
	RequestErr       = -400
	ParamErr         = -401
	NothingFound     = -404
	MethodNotAllowed = -405
	Conflict         = -409
	ServerErr        = -500
)

var messages = map[int]string{
	OK:               "success",
	Unauthorized:     "unauthorized",
	AccessDenied:     "access denied",
	RequestErr:       "invalid request",
	ParamErr:         "invalid parameters",
	NothingFound:     "resource not found",
	MethodNotAllowed: "method not allowed",
	Conflict:         "resource conflict",
	ServerErr:        "internal server error",
}

// Text returns the human-readable message for a code.
func Text(code int) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return messages[ServerErr]
}

// Register registers a custom error code with its message.
func Register(code int, message string) {
	messages[code] = message
}
