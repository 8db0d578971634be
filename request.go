//  Copyright 2015 by Leipzig University Library, http://ub.uni-leipzig.de
//                    The Finc Authors, http://finc.info
//                    Martin Czygan, <martin.czygan@uni-leipzig.de>
//
// This file is part of some open source application.
//
// Some open source application is free software: you can redistribute
// it and/or modify it under the terms of the GNU General Public
// License as published by the Free Software Foundation, either
// version 3 of the License, or (at your option) any later version.
//
// Some open source application is distributed in the hope that it will
// be useful, but WITHOUT ANY WARRANTY; without even the implied warranty
// of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Foobar.  If not, see <http://www.gnu.org/licenses/>.
//
// @license GPL-3.0+ <http://spdx.org/licenses/GPL-3.0+>
//
package sichel

import (
	"errors"
	"fmt"
	"net/url"
)

var (
	ErrNoEndpoint = errors.New("request: an endpoint is required")
	ErrNoVerb     = errors.New("no verb")
	ErrBadVerb    = errors.New("bad verb")

	// OAIVerbs (4. Protocol Requests and Responses)
	OAIVerbs = map[string]bool{
		"Identify":            true,
		"ListIdentifiers":     true,
		"ListSets":            true,
		"ListMetadataFormats": true,
		"ListRecords":         true,
		"GetRecord":           true,
	}
)

// Request can hold any parameter, that you want to send to an OAI server.
// The endpoint lives on the client, a request describes a single protocol
// operation.
type Request struct {
	Verb            string
	From            string
	Until           string
	Set             string
	Prefix          string
	Identifier      string
	ResumptionToken string
}

// Values returns the query parameters for a request. Catches basic errors
// like a missing or bad verb.
func (r Request) Values() (url.Values, error) {
	if r.Verb == "" {
		return nil, ErrNoVerb
	}
	if _, found := OAIVerbs[r.Verb]; !found {
		return nil, ErrBadVerb
	}

	values := url.Values{}
	values.Add("verb", r.Verb)

	// Collectively these requests are called list requests (3.5):
	// ListIdentifiers, ListRecords, ListSets
	if r.ResumptionToken != "" {
		// An exclusive argument with a value that is the flow control token.
		values.Add("resumptionToken", r.ResumptionToken)
		return values, nil
	}

	maybeAdd := func(k, v string) {
		if v != "" {
			values.Add(k, v)
		}
	}

	maybeAdd("from", r.From)
	maybeAdd("until", r.Until)
	maybeAdd("set", r.Set)
	maybeAdd("metadataPrefix", r.Prefix)
	maybeAdd("identifier", r.Identifier)
	return values, nil
}

// URL returns the absolute URL for a request against a given endpoint.
func (r Request) URL(endpoint string) (s string, err error) {
	if endpoint == "" {
		return s, ErrNoEndpoint
	}
	values, err := r.Values()
	if err != nil {
		return s, err
	}
	return fmt.Sprintf("%s?%s", endpoint, values.Encode()), nil
}

// continuation returns the follow-up request for a given token. It carries
// the verb and the token and nothing else.
func (r Request) continuation(token string) Request {
	return Request{Verb: r.Verb, ResumptionToken: token}
}
