//
// Package sichel implements a client for OAI repositories. The Open
// Archives Initiative Protocol for Metadata Harvesting (OAI-PMH) is a low-
// barrier mechanism for repository interoperability, a verb-based HTTP+XML
// interface returning paged listings of records, identifiers, sets or
// metadata formats.
//
// This project pages through list responses via resumption tokens and exposes
// the results as lazy, pull-based sequences of items or whole responses.
// It comes with a command line tool, called `sichel`.
//
// Basic usage:
//
//     $ sichel http://digitalcommons.unmc.edu/do/oai/ > metadata.xml
//
package sichel
