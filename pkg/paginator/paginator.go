// Package paginator follows cursor paginated listings shaped as
// {count, next, previous, results}.
//
// FetchAll keeps requesting while the server returns a non-null next URL.
// There is no page limit: a server that returns a cyclic next chain loops
// forever. The remote service is trusted to terminate the chain.
package paginator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Page is one page of a listing. Next and Previous are nil when absent.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// StatusError is returned when a page responds with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("paginator: %s responded with status %d", e.URL, e.StatusCode)
}

type Paginator[T any] struct {
	url     string
	client  *http.Client
	headers http.Header
}

type Option func(*options)

type options struct {
	client  *http.Client
	headers http.Header
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		if c != nil {
			o.client = c
		}
	}
}

// WithHeader adds a header sent with every page request.
func WithHeader(key, value string) Option {
	return func(o *options) { o.headers.Add(key, value) }
}

func New[T any](url string, opts ...Option) *Paginator[T] {
	o := options{client: http.DefaultClient, headers: http.Header{}}
	for _, fn := range opts {
		fn(&o)
	}
	return &Paginator[T]{url: url, client: o.client, headers: o.headers}
}

// FetchPage requests and decodes a single page.
func (p *Paginator[T]) FetchPage(ctx context.Context, url string) (Page[T], error) {
	var page Page[T]
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return page, err
	}
	for k, vs := range p.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return page, fmt.Errorf("paginator: get %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return page, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return page, fmt.Errorf("paginator: decode %s: %w", url, err)
	}
	return page, nil
}

// FetchAll walks the next chain from the initial URL and returns one page
// holding every result in page order. The returned Next is always nil and
// Previous is the last page's previous link.
func (p *Paginator[T]) FetchAll(ctx context.Context) (Page[T], error) {
	first, err := p.FetchPage(ctx, p.url)
	if err != nil {
		return Page[T]{}, err
	}
	all := first.Results
	last := first
	for last.Next != nil && *last.Next != "" {
		next, err := p.FetchPage(ctx, *last.Next)
		if err != nil {
			return Page[T]{}, err
		}
		all = append(all, next.Results...)
		last = next
	}
	return Page[T]{
		Count:    first.Count,
		Next:     nil,
		Previous: last.Previous,
		Results:  all,
	}, nil
}
