package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/chatsock/chatsock-go/pkg/metrics"
	"github.com/chatsock/chatsock-go/pkg/transport"
)

// FetchRequest describes a request sent over one of the chat channels.
type FetchRequest struct {
	// Method defaults to GET.
	Method string

	// Header is sent with the request. Basic credentials matching the
	// stored ones route the request over the authenticated channel.
	Header http.Header

	Body []byte

	// Timeout bounds the request once sent. Zero means no bound.
	Timeout time.Duration
}

// Fetch sends a request over the authenticated channel when its
// Authorization header carries the stored credentials, and over the
// anonymous channel otherwise. Only the path and query of rawURL are used.
//
// When ctx is done Fetch returns ErrFetchAborted without waiting for the
// response; the request itself is not withdrawn.
func (m *SocketManager) Fetch(ctx context.Context, rawURL string, req *FetchRequest) (*transport.Response, error) {
	if req == nil {
		req = &FetchRequest{}
	}

	path, err := requestPath(rawURL)
	if err != nil {
		return nil, err
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	channel := ChannelUnauthenticated
	var r *transport.Resource
	if m.isAuthenticated(req.Header) {
		channel = ChannelAuthenticated
		r, err = m.GetAuthenticatedResource(ctx)
	} else {
		var p *transport.ResourceProcess
		r, p, err = m.unauthenticatedResource(ctx)
		if err == nil {
			m.armRotation(p, r)
		}
	}
	if err != nil {
		metrics.FetchTotal.WithLabelValues(channel.String(), metrics.ResultFailure).Inc()
		return nil, err
	}

	m.compareChannels()

	type result struct {
		resp *transport.Response
		err  error
	}
	done := make(chan result, 1)
	start := time.Now()

	go func() {
		resp, err := r.SendRequest(context.WithoutCancel(ctx), &transport.Request{
			Verb:    method,
			Path:    path,
			Header:  req.Header,
			Body:    req.Body,
			Timeout: req.Timeout,
		})
		done <- result{resp, err}
	}()

	select {
	case res := <-done:
		metrics.FetchDuration.WithLabelValues(channel.String()).Observe(time.Since(start).Seconds())
		if res.err != nil {
			metrics.FetchTotal.WithLabelValues(channel.String(), metrics.ResultFailure).Inc()
		} else {
			metrics.FetchTotal.WithLabelValues(channel.String(), metrics.ResultSuccess).Inc()
		}
		return res.resp, res.err

	case <-ctx.Done():
		metrics.FetchTotal.WithLabelValues(channel.String(), metrics.ResultAborted).Inc()
		return nil, fmt.Errorf("%w: %w", ErrFetchAborted, ctx.Err())
	}
}

// isAuthenticated reports whether header carries the stored credentials.
func (m *SocketManager) isAuthenticated(header http.Header) bool {
	if header.Get("Authorization") == "" {
		return false
	}

	m.mu.Lock()
	creds := m.credentials
	m.mu.Unlock()
	if creds == nil {
		return false
	}

	username, password, ok := (&http.Request{Header: header}).BasicAuth()
	return ok && username == creds.Username && password == creds.Password
}

// compareChannels records whether the open channels use the same IP
// version.
func (m *SocketManager) compareChannels() {
	m.mu.Lock()
	a, u := m.authenticated, m.unauthenticated
	m.mu.Unlock()

	ra, ru := settledResource(a), settledResource(u)
	if ra == nil || ru == nil {
		return
	}
	m.stats.RequestCompared(ra.IPVersion() != ru.IPVersion())
}

// settledResource returns the live resource of a finished attempt.
func settledResource(p *transport.ResourceProcess) *transport.Resource {
	if p == nil {
		return nil
	}
	select {
	case <-p.Done():
	default:
		return nil
	}
	r, err := p.Result(context.Background())
	if err != nil || r.Closed() {
		return nil
	}
	return r
}

func requestPath(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Path == "" && u.Opaque == "" {
		return "", fmt.Errorf("%w: empty path in %q", ErrInvalidURL, rawURL)
	}
	return u.RequestURI(), nil
}
