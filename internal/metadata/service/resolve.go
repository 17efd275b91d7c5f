package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	ledgermodels "shebuilds/internal/ledger/models"
	"shebuilds/internal/metadata/models"
	"shebuilds/internal/metadata/store"
	"shebuilds/internal/platform/tracer"
	dErrors "shebuilds/pkg/domain-errors"
)

const ipfsScheme = "ipfs://"

// Resolve loads the metadata document of credential id. Ledger lookup errors
// pass through unchanged.
func (s *Service) Resolve(ctx context.Context, id ledgermodels.CredentialID) (*models.Resolved, error) {
	uri, err := s.lookup.TokenURI(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.ResolveURI(ctx, uri)
}

// ResolveURI returns the cached document for uri or fetches and caches it.
func (s *Service) ResolveURI(ctx context.Context, uri string) (res *models.Resolved, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanMetadataResolve, tracer.String(tracer.AttrMetadataURI, uri))
	defer func() {
		span.End(err)
	}()

	fetchURL, err := FetchURL(s.cfg.Gateway, uri)
	if err != nil {
		return nil, err
	}

	if doc, ok := s.fromCache(ctx, uri); ok {
		span.SetAttributes(tracer.Bool(tracer.AttrCacheHit, true))
		return &models.Resolved{URI: uri, FetchURL: fetchURL, Document: *doc, Cached: true}, nil
	}
	span.SetAttributes(tracer.Bool(tracer.AttrCacheHit, false))

	doc, err := s.fetch(ctx, fetchURL)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Save(ctx, uri, doc); err != nil {
		s.logger.WarnContext(ctx, "failed to cache metadata document", "uri", uri, "error", err)
	}
	return &models.Resolved{URI: uri, FetchURL: fetchURL, Document: *doc, FetchedAt: s.now()}, nil
}

// fromCache treats cache failures as misses.
func (s *Service) fromCache(ctx context.Context, uri string) (*models.Document, bool) {
	doc, err := s.cache.Find(ctx, uri)
	if err == nil {
		return doc, true
	}
	if !errors.Is(err, store.ErrNotFound) {
		s.logger.WarnContext(ctx, "metadata cache lookup failed", "uri", uri, "error", err)
	}
	return nil, false
}

// FetchURL maps a metadata URI to the URL it is fetched from. ipfs:// URIs
// are rewritten through gateway; http and https URIs are used as is.
func FetchURL(gateway, uri string) (string, error) {
	if uri == "" {
		return "", dErrors.New(dErrors.CodeNotFound, "credential has no metadata uri")
	}
	if strings.HasPrefix(uri, ipfsScheme) {
		path := strings.TrimPrefix(strings.TrimPrefix(uri, ipfsScheme), "ipfs/")
		if path == "" {
			return "", dErrors.New(dErrors.CodeUnavailable, fmt.Sprintf("metadata uri %q has no content id", uri))
		}
		return strings.TrimRight(gateway, "/") + "/" + path, nil
	}
	u, err := url.Parse(uri)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", dErrors.New(dErrors.CodeUnavailable, fmt.Sprintf("metadata uri %q is not resolvable", uri))
	}
	return u.String(), nil
}

// fetchError carries the failure reason used for metrics. Only transport
// and server failures count against the breaker.
type fetchError struct {
	reason string
	trips  bool
	err    error
}

func (e *fetchError) Error() string { return e.reason + ": " + e.err.Error() }
func (e *fetchError) Unwrap() error { return e.err }

func (s *Service) fetch(ctx context.Context, fetchURL string) (doc *models.Document, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanMetadataFetch, tracer.String(tracer.AttrFetchURL, fetchURL))
	defer func() {
		span.End(err)
	}()

	if !s.breaker.Allow() {
		s.metrics.IncFetchFailure("breaker_open")
		span.AddEvent(tracer.EventBreakerOpen)
		return nil, dErrors.New(dErrors.CodeUnavailable, "metadata fetcher is temporarily disabled")
	}

	start := time.Now()
	doc, ferr := s.get(ctx, fetchURL)
	s.metrics.ObserveFetch(time.Since(start).Seconds())
	span.SetAttributes(tracer.Duration(tracer.AttrFetchDuration, time.Since(start)))

	if ferr == nil {
		s.breaker.Record(nil)
		return doc, nil
	}
	if ferr.trips {
		s.breaker.Record(ferr)
	} else {
		s.breaker.Record(nil)
	}
	s.metrics.IncFetchFailure(ferr.reason)
	s.logger.WarnContext(ctx, "metadata fetch failed", "url", fetchURL, "reason", ferr.reason, "error", ferr.err)
	return nil, dErrors.Wrap(ferr, dErrors.CodeUnavailable, "metadata document unavailable")
}

func (s *Service) get(ctx context.Context, fetchURL string) (*models.Document, *fetchError) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return nil, &fetchError{reason: "transport", err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, errBlockedAddress) {
			return nil, &fetchError{reason: "blocked", err: err}
		}
		return nil, &fetchError{reason: "transport", trips: true, err: err}
	}
	defer resp.Body.Close() //nolint:errcheck // body fully read or abandoned

	if resp.StatusCode != http.StatusOK {
		return nil, &fetchError{
			reason: "status",
			trips:  resp.StatusCode >= http.StatusInternalServerError,
			err:    fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.cfg.MaxBytes+1))
	if err != nil {
		return nil, &fetchError{reason: "transport", trips: true, err: err}
	}
	if int64(len(body)) > s.cfg.MaxBytes {
		return nil, &fetchError{reason: "too_large", err: fmt.Errorf("document exceeds %d bytes", s.cfg.MaxBytes)}
	}

	var doc models.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, &fetchError{reason: "decode", err: err}
	}
	return &doc, nil
}
