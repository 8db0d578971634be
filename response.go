package sichel

import (
	"encoding/xml"
	"errors"
	"strings"
)

// ResumptionToken is part of OAI flow control (3.5).
type ResumptionToken struct {
	Value string `xml:",chardata"`
	// The following optional attributes may be included as part of the
	// resumptionToken element along with the resumptionToken itself. A
	// UTCdatetime indicating when the resumptionToken ceases to be valid.
	ExpirationDate string `xml:"expirationDate,attr"`
	// A count of the number of elements of the complete list thus far
	// returned (i.e. cursor starts at 0).
	Cursor string `xml:"cursor,attr"`
	// An integer indicating the cardinality of the complete list. The value
	// of completeListSize may be only an estimate of the actual cardinality
	// of the complete list and may be revised during the list request
	// sequence.
	CompleteListSize string `xml:"completeListSize,attr"`
}

// Empty reports whether the token signals the end of a list. A token element
// that is present, but has an empty body, means the same as no token at all.
func (t ResumptionToken) Empty() bool {
	return t.Value == ""
}

// Header is the response content of ListIdentifiers and part of each record.
// Servers in the wild skip optional children, so any field may stay zero.
type Header struct {
	XMLName    xml.Name `xml:"header"`
	Identifier string   `xml:"identifier"`
	Datestamp  string   `xml:"datestamp"`
	SetSpecs   []string `xml:"setSpec"`
	Status     string   `xml:"status,attr,omitempty"`
}

// Deleted reports whether the item behind this header has been withdrawn by
// the repository. Deleted items carry no metadata.
func (h Header) Deleted() bool {
	return h.Status == "deleted"
}

// About is a sidecar container of a record, e.g. rights or provenance
// statements. Kept verbatim.
type About struct {
	Raw string `xml:",innerxml"`
}

// Metadata is the verbatim metadata subtree of a record. Interpreting it is
// the job of a MetadataDecoder, never of this package.
type Metadata struct {
	Raw []byte `xml:",innerxml"`
}

// Record couples a header with its metadata payload.
type Record struct {
	XMLName  xml.Name `xml:"record"`
	Header   Header   `xml:"header"`
	Metadata Metadata `xml:"metadata"`
	About    []About  `xml:"about"`
	// Payload is filled in by the metadata decoder configured for the
	// harvest, if any. Stays nil for deleted records.
	Payload any `xml:"-"`
}

// Deleted reports the deletion status of the record header.
func (r Record) Deleted() bool {
	return r.Header.Deleted()
}

// Set describes a repository set.
type Set struct {
	Spec         string  `xml:"setSpec"`
	Name         string  `xml:"setName"`
	Descriptions []About `xml:"setDescription"`
}

// MetadataFormat names a format a repository can disseminate.
type MetadataFormat struct {
	Prefix    string `xml:"metadataPrefix"`
	Schema    string `xml:"schema"`
	Namespace string `xml:"metadataNamespace"`
}

// Identify response.
type Identify struct {
	Name              string   `xml:"repositoryName" json:"name"`
	URL               string   `xml:"baseURL" json:"url"`
	Version           string   `xml:"protocolVersion" json:"version"`
	AdminEmail        []string `xml:"adminEmail" json:"email"`
	EarliestDatestamp string   `xml:"earliestDatestamp" json:"earliest"`
	DeletePolicy      string   `xml:"deletedRecord" json:"delete"`
	Granularity       string   `xml:"granularity" json:"granularity"`
	Compression       []string `xml:"compression" json:"compression,omitempty"`
	Description       []About  `xml:"description" json:"-"`
}

// RequestEcho is the request element a server echoes back. In cases where the
// request did not result in an error, its attributes must match the key=value
// pairs of the protocol request (3.2 XML Response Format).
type RequestEcho struct {
	Verb            string `xml:"verb,attr"`
	Prefix          string `xml:"metadataPrefix,attr"`
	Set             string `xml:"set,attr"`
	From            string `xml:"from,attr"`
	Until           string `xml:"until,attr"`
	Identifier      string `xml:"identifier,attr"`
	ResumptionToken string `xml:"resumptionToken,attr"`
	Endpoint        string `xml:",chardata"`
}

// Response can hold any answer to a request to an OAI server.
type Response struct {
	XMLName xml.Name    `xml:"OAI-PMH"`
	Date    string      `xml:"responseDate"`
	Request RequestEcho `xml:"request"`
	Errors  []struct {
		Code    string `xml:"code,attr"`
		Message string `xml:",chardata"`
	} `xml:"error"`
	ListIdentifiers struct {
		Headers []Header        `xml:"header"`
		Token   ResumptionToken `xml:"resumptionToken"`
	} `xml:"ListIdentifiers"`
	ListMetadataFormats struct {
		Formats []MetadataFormat `xml:"metadataFormat"`
	} `xml:"ListMetadataFormats"`
	ListSets struct {
		Sets  []Set           `xml:"set"`
		Token ResumptionToken `xml:"resumptionToken"`
	} `xml:"ListSets"`
	ListRecords struct {
		Records []Record        `xml:"record"`
		Token   ResumptionToken `xml:"resumptionToken"`
	} `xml:"ListRecords"`
	GetRecord struct {
		Record Record `xml:"record"`
	} `xml:"GetRecord"`
	Identify Identify `xml:"Identify"`
}

// Token returns the resumption token of the list section matching the echoed
// request verb.
func (r *Response) Token() ResumptionToken {
	return r.tokenForVerb(r.Request.Verb)
}

// tokenForVerb dispatches on the verb, since each list verb carries its token
// in its own result element. Verbs without flow control yield an empty token.
func (r *Response) tokenForVerb(verb string) ResumptionToken {
	switch verb {
	case "ListIdentifiers":
		return r.ListIdentifiers.Token
	case "ListRecords":
		return r.ListRecords.Token
	case "ListSets":
		return r.ListSets.Token
	}
	return ResumptionToken{}
}

// Decode parses a raw response body. Malformed XML yields a ParseError. One
// or more protocol error elements turn into typed OAIError values, all codes
// are reported. Missing optional elements are not an error, the response is
// just partially populated.
func Decode(b []byte) (*Response, error) {
	var resp Response
	if err := xml.Unmarshal(b, &resp); err != nil {
		return nil, &ParseError{Err: err}
	}
	if len(resp.Errors) > 0 {
		errs := make([]error, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			errs = append(errs, OAIError{Code: e.Code, Message: strings.TrimSpace(e.Message)})
		}
		if len(errs) == 1 {
			return nil, errs[0]
		}
		return nil, errors.Join(errs...)
	}
	return &resp, nil
}
