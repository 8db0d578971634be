package sichel

import (
	"context"
	"time"
)

// RepositoryInfo summarizes an endpoint: identity, supported metadata
// formats and sets.
type RepositoryInfo struct {
	Endpoint string           `json:"endpoint"`
	Identify *Identify        `json:"id,omitempty"`
	Formats  []MetadataFormat `json:"formats,omitempty"`
	Sets     []Set            `json:"sets,omitempty"`
	Errors   []string         `json:"errors,omitempty"`
	Elapsed  float64          `json:"elapsed"`
}

// About gathers basic information about a repository. A failing Identify
// aborts, since the endpoint is then unusable. Missing set hierarchies and
// format listings are common and reported inline instead.
func (c *Client) About(ctx context.Context) (*RepositoryInfo, error) {
	start := time.Now()
	info := &RepositoryInfo{Endpoint: c.Endpoint}
	id, err := c.Identify(ctx)
	if err != nil {
		return nil, err
	}
	info.Identify = id
	formats, err := c.ListMetadataFormats(ctx, "").All()
	if err != nil {
		info.Errors = append(info.Errors, err.Error())
	} else {
		info.Formats = formats
	}
	sets, err := c.ListSets(ctx).All()
	if err != nil {
		info.Errors = append(info.Errors, err.Error())
	} else {
		info.Sets = sets
	}
	info.Elapsed = time.Since(start).Seconds()
	return info, nil
}
