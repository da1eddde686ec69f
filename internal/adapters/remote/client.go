// Package remote descarga el export CSV de anuncios por HTTP.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/alejandrodnm/carfair/internal/adapters/csvsource"
	"github.com/alejandrodnm/carfair/internal/domain"
	"golang.org/x/time/rate"
)

const (
	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
	maxBodyBytes  = 512 << 20 // el dataset completo ronda las decenas de MB

	requestsPerSec = 2
)

// Source implementa ports.ListingSource sobre un CSV servido por HTTP.
type Source struct {
	http     *http.Client
	url      string
	limiter  *rate.Limiter
	baseWait time.Duration
	maxBody  int64
}

// NewSource crea un Source para la URL dada.
func NewSource(url string) *Source {
	return &Source{
		http:     &http.Client{Timeout: 2 * time.Minute},
		url:      url,
		limiter:  rate.NewLimiter(requestsPerSec, 1),
		baseWait: baseRetryWait,
		maxBody:  maxBodyBytes,
	}
}

// IsURL devuelve true si path debe cargarse con este adaptador.
func IsURL(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// LoadListings descarga y parsea el CSV.
func (s *Source) LoadListings(ctx context.Context) ([]domain.Listing, error) {
	body, err := s.fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("remote.LoadListings: %s: %w", s.url, err)
	}
	listings, err := csvsource.Parse(ctx, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("remote.LoadListings: %w", err)
	}
	return listings, nil
}

// fetch hace el GET con rate limiting, backoff exponencial y reintentos en 429/5xx.
func (s *Source) fetch(ctx context.Context) ([]byte, error) {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "text/csv")

		resp, err := s.http.Do(req)
		if err != nil {
			if attempt == maxRetries {
				return nil, fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			s.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			slog.Warn("dataset download failed, retrying", "status", resp.StatusCode, "attempt", attempt+1)
			if attempt == maxRetries {
				return nil, fmt.Errorf("server error %d after %d retries", resp.StatusCode, maxRetries)
			}
			s.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			resp.Body.Close()
			return nil, fmt.Errorf("client error %d: %s", resp.StatusCode, string(msg))
		}

		defer resp.Body.Close()
		body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBody+1))
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		if int64(len(body)) > s.maxBody {
			return nil, fmt.Errorf("body exceeds %d bytes", s.maxBody)
		}
		return body, nil
	}
	return nil, fmt.Errorf("exhausted %d retries", maxRetries)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (s *Source) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * s.baseWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
