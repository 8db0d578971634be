package sichel

import (
	"fmt"
)

// ErrorKind classifies protocol error conditions (3.6 Error and Exception
// Conditions).
type ErrorKind int

const (
	// KindUnknown covers codes this package does not know about, e.g. from
	// future protocol extensions. The raw code stays on the error.
	KindUnknown ErrorKind = iota
	KindBadArgument
	KindBadVerb
	KindBadResumptionToken
	KindCannotDisseminateFormat
	KindIDDoesNotExist
	KindNoRecordsMatch
	KindNoMetadataFormats
	KindNoSetHierarchy
)

var kindNames = map[ErrorKind]string{
	KindUnknown:                 "unknown",
	KindBadArgument:             "badArgument",
	KindBadVerb:                 "badVerb",
	KindBadResumptionToken:      "badResumptionToken",
	KindCannotDisseminateFormat: "cannotDisseminateFormat",
	KindIDDoesNotExist:          "idDoesNotExist",
	KindNoRecordsMatch:          "noRecordsMatch",
	KindNoMetadataFormats:       "noMetadataFormats",
	KindNoSetHierarchy:          "noSetHierarchy",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

var kindForCode = map[string]ErrorKind{
	"badArgument":             KindBadArgument,
	"badVerb":                 KindBadVerb,
	"badResumptionToken":      KindBadResumptionToken,
	"cannotDisseminateFormat": KindCannotDisseminateFormat,
	"idDoesNotExist":          KindIDDoesNotExist,
	"noRecordsMatch":          KindNoRecordsMatch,
	"noMetadataFormats":       KindNoMetadataFormats,
	"noSetHierarchy":          KindNoSetHierarchy,
}

// KindForCode maps a protocol error code to its kind. Unknown codes map to
// KindUnknown.
func KindForCode(code string) ErrorKind {
	return kindForCode[code]
}

// OAIError wraps OAI error codes and messages.
type OAIError struct {
	Code    string
	Message string
}

// Error to satisfy interface.
func (e OAIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Kind returns the taxonomy kind for the error code.
func (e OAIError) Kind() ErrorKind {
	return KindForCode(e.Code)
}

// Is matches on the code, so errors.Is(err, OAIError{Code: "noRecordsMatch"})
// works regardless of the server supplied message.
func (e OAIError) Is(target error) bool {
	t, ok := target.(OAIError)
	if !ok {
		return false
	}
	return e.Code == t.Code && (t.Message == "" || t.Message == e.Message)
}

// TransientHTTPError is a retryable HTTP failure that survived all resends.
// StatusCode is the last status seen, zero if the failure happened below
// HTTP, e.g. a timeout or a connection reset. Attempts counts all tries.
type TransientHTTPError struct {
	StatusCode int
	Attempts   int
	Err        error
}

func (e *TransientHTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transient http error after %d attempts: %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("transient http error after %d attempts: status %d", e.Attempts, e.StatusCode)
}

func (e *TransientHTTPError) Unwrap() error { return e.Err }

// FatalHTTPError is an HTTP status outside the retryable set, surfaced
// without any resend.
type FatalHTTPError struct {
	StatusCode int
}

func (e *FatalHTTPError) Error() string {
	return fmt.Sprintf("http error: status %d", e.StatusCode)
}

// ParseError signals a malformed response body.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
