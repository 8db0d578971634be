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
	"context"
	"fmt"
	"io"
)

// ListOption configures item iteration.
type ListOption func(*listOptions)

type listOptions struct {
	ignoreDeleted bool
}

// IgnoreDeleted skips items flagged as deleted. If skipping empties a page,
// following pages are fetched until a live item or the end of the list is
// found, the consumer never sees the gap.
func IgnoreDeleted() ListOption {
	return func(o *listOptions) { o.ignoreDeleted = true }
}

// harvest pages through list responses via the resumption token protocol.
// A harvest is single pass and not restartable, the done state is absorbing.
type harvest struct {
	ctx     context.Context
	client  *Client
	req     Request
	started bool
	done    bool
	token   ResumptionToken
}

// next fetches the next page, io.EOF after the last one. The first call
// sends the caller's request as given, every later call sends the verb and
// the captured token, nothing else. Any error ends the harvest, protocol
// errors like badResumptionToken are never recovered from.
func (h *harvest) next() (*Response, error) {
	if h.done {
		return nil, io.EOF
	}
	req := h.req
	if h.started {
		if h.token.Empty() {
			h.done = true
			return nil, io.EOF
		}
		req = h.req.continuation(h.token.Value)
	}
	resp, err := h.client.Harvest(h.ctx, req)
	if err != nil {
		h.done = true
		return nil, err
	}
	h.started = true
	h.token = resp.tokenForVerb(h.req.Verb)
	return resp, nil
}

// Iterator yields decoded items one at a time, fetching pages on demand.
// Create one via the List methods on Client.
type Iterator[T any] struct {
	h       *harvest
	page    []T
	extract func(*Response) []T
	deleted func(T) bool // nil when deletion does not apply to T
	prepare func(*T) error
	opts    listOptions
}

func newIterator[T any](h *harvest, extract func(*Response) []T, options ...ListOption) *Iterator[T] {
	it := &Iterator[T]{h: h, extract: extract}
	for _, opt := range options {
		opt(&it.opts)
	}
	return it
}

// Next returns the next item in server order, across page boundaries. It
// returns io.EOF once the list is exhausted.
func (it *Iterator[T]) Next() (T, error) {
	var zero T
	for {
		for len(it.page) > 0 {
			item := it.page[0]
			it.page = it.page[1:]
			if it.opts.ignoreDeleted && it.deleted != nil && it.deleted(item) {
				continue
			}
			if it.prepare != nil {
				if err := it.prepare(&item); err != nil {
					return zero, err
				}
			}
			return item, nil
		}
		resp, err := it.h.next()
		if err != nil {
			return zero, err
		}
		it.page = it.extract(resp)
	}
}

// All drains the iterator into a slice.
func (it *Iterator[T]) All() ([]T, error) {
	var items []T
	for {
		item, err := it.Next()
		if err == io.EOF {
			return items, nil
		}
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
}

// ResponseIterator yields one response per underlying request, coarser than
// the item iterators. Deletion status is a per-item property and plays no
// role at this granularity.
type ResponseIterator struct {
	h *harvest
}

// Next returns the next response page, io.EOF after the last one.
func (it *ResponseIterator) Next() (*Response, error) {
	return it.h.next()
}

func (c *Client) newHarvest(ctx context.Context, req Request) *harvest {
	return &harvest{ctx: ctx, client: c, req: req}
}

// Responses iterates whole responses instead of items, one per request.
// Works with any list verb.
func (c *Client) Responses(ctx context.Context, req Request) *ResponseIterator {
	return &ResponseIterator{h: c.newHarvest(ctx, req)}
}

// ListRecords issues a ListRecords request and iterates records across all
// pages. A metadata decoder configured for the requested prefix is resolved
// here, once per harvest, and applied to every live record.
func (c *Client) ListRecords(ctx context.Context, req Request, options ...ListOption) *Iterator[Record] {
	req.Verb = "ListRecords"
	decoder := c.Decoders[req.Prefix]
	it := newIterator(c.newHarvest(ctx, req), func(resp *Response) []Record {
		return resp.ListRecords.Records
	}, options...)
	it.deleted = Record.Deleted
	it.prepare = func(r *Record) error {
		return decodeMetadata(decoder, r)
	}
	return it
}

// ListIdentifiers issues a ListIdentifiers request and iterates headers
// across all pages.
func (c *Client) ListIdentifiers(ctx context.Context, req Request, options ...ListOption) *Iterator[Header] {
	req.Verb = "ListIdentifiers"
	it := newIterator(c.newHarvest(ctx, req), func(resp *Response) []Header {
		return resp.ListIdentifiers.Headers
	}, options...)
	it.deleted = Header.Deleted
	return it
}

// ListSets issues a ListSets request and iterates sets across all pages.
func (c *Client) ListSets(ctx context.Context) *Iterator[Set] {
	return newIterator(c.newHarvest(ctx, Request{Verb: "ListSets"}), func(resp *Response) []Set {
		return resp.ListSets.Sets
	})
}

// ListMetadataFormats lists the formats a repository can disseminate,
// optionally for a single item.
func (c *Client) ListMetadataFormats(ctx context.Context, identifier string) *Iterator[MetadataFormat] {
	req := Request{Verb: "ListMetadataFormats", Identifier: identifier}
	return newIterator(c.newHarvest(ctx, req), func(resp *Response) []MetadataFormat {
		return resp.ListMetadataFormats.Formats
	})
}

// Identify issues an Identify request.
func (c *Client) Identify(ctx context.Context) (*Identify, error) {
	resp, err := c.Harvest(ctx, Request{Verb: "Identify"})
	if err != nil {
		return nil, err
	}
	return &resp.Identify, nil
}

// GetRecord fetches a single record by identifier.
func (c *Client) GetRecord(ctx context.Context, identifier, prefix string) (*Record, error) {
	req := Request{Verb: "GetRecord", Identifier: identifier, Prefix: prefix}
	resp, err := c.Harvest(ctx, req)
	if err != nil {
		return nil, err
	}
	record := resp.GetRecord.Record
	if err := decodeMetadata(c.Decoders[prefix], &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// decodeMetadata hands the raw metadata subtree of a live record to the
// decoder, if one is configured. Deleted records carry no metadata and are
// left alone.
func decodeMetadata(decoder MetadataDecoder, r *Record) error {
	if decoder == nil || r.Deleted() {
		return nil
	}
	payload, err := decoder.DecodeMetadata(r.Metadata.Raw)
	if err != nil {
		return fmt.Errorf("decode metadata for %s: %w", r.Header.Identifier, err)
	}
	r.Payload = payload
	return nil
}
