package sichel

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindForCode(t *testing.T) {
	var tests = []struct {
		code string
		kind ErrorKind
	}{
		{"badArgument", KindBadArgument},
		{"badVerb", KindBadVerb},
		{"badResumptionToken", KindBadResumptionToken},
		{"cannotDisseminateFormat", KindCannotDisseminateFormat},
		{"idDoesNotExist", KindIDDoesNotExist},
		{"noRecordsMatch", KindNoRecordsMatch},
		{"noMetadataFormats", KindNoMetadataFormats},
		{"noSetHierarchy", KindNoSetHierarchy},
		{"someFutureCode", KindUnknown},
		{"", KindUnknown},
	}
	for _, test := range tests {
		assert.Equal(t, test.kind, KindForCode(test.code))
	}
}

func TestOAIErrorKindPreservesRawCode(t *testing.T) {
	err := OAIError{Code: "someFutureCode", Message: "not in this protocol version"}
	assert.Equal(t, KindUnknown, err.Kind())
	assert.Equal(t, "someFutureCode", err.Code)
	assert.Equal(t, "someFutureCode: not in this protocol version", err.Error())
}

func TestOAIErrorIs(t *testing.T) {
	err := OAIError{Code: "noRecordsMatch", Message: "no records match your query"}
	assert.True(t, errors.Is(err, OAIError{Code: "noRecordsMatch"}))
	assert.False(t, errors.Is(err, OAIError{Code: "badArgument"}))

	joined := errors.Join(
		OAIError{Code: "badArgument", Message: "bad from"},
		OAIError{Code: "badResumptionToken", Message: "expired"},
	)
	assert.True(t, errors.Is(joined, OAIError{Code: "badArgument"}))
	assert.True(t, errors.Is(joined, OAIError{Code: "badResumptionToken"}))
	assert.False(t, errors.Is(joined, OAIError{Code: "noSetHierarchy"}))
}

func TestHTTPErrorMessages(t *testing.T) {
	transient := &TransientHTTPError{StatusCode: 503, Attempts: 4}
	assert.Equal(t, "transient http error after 4 attempts: status 503", transient.Error())

	fatal := &FatalHTTPError{StatusCode: 404}
	assert.Equal(t, "http error: status 404", fatal.Error())

	parse := &ParseError{Err: errors.New("unexpected EOF")}
	assert.Equal(t, "malformed response: unexpected EOF", parse.Error())
	assert.Equal(t, "unexpected EOF", errors.Unwrap(parse).Error())
}
