package pdf

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirillkom/scholar-rag/internal/core/domain"
	"github.com/kirillkom/scholar-rag/internal/infrastructure/resilience"
)

const defaultMaxBytes int64 = 64 << 20

// Downloader fetches PDFs over HTTP.
type Downloader struct {
	httpClient *http.Client
	executor   *resilience.Executor
	maxBytes   int64
}

type Option func(*Downloader)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(d *Downloader) {
		if httpClient != nil {
			d.httpClient = httpClient
		}
	}
}

func WithExecutor(executor *resilience.Executor) Option {
	return func(d *Downloader) {
		d.executor = executor
	}
}

func WithMaxBytes(n int64) Option {
	return func(d *Downloader) {
		if n > 0 {
			d.maxBytes = n
		}
	}
}

func NewDownloader(opts ...Option) *Downloader {
	d := &Downloader{
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		maxBytes:   defaultMaxBytes,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Downloader) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "download pdf", fmt.Errorf("invalid url %q", rawURL))
	}

	body, err := resilience.Call(ctx, d.executor, "pdf.download", func(ctx context.Context) (io.ReadCloser, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("create download request: %w", err)
		}
		resp, err := d.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("pdf download request: %w", err)
		}
		if resp.StatusCode >= 300 {
			defer resp.Body.Close()
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, &resilience.HTTPStatusError{
				Service:    "pdf",
				Operation:  "download",
				StatusCode: resp.StatusCode,
				Status:     resp.Status,
				Body:       string(raw),
			}
		}
		return resp.Body, nil
	}, resilience.ClassifyHTTPError)
	if err != nil {
		return nil, resilience.WrapTemporary("download pdf", err, resilience.ClassifyHTTPError)
	}
	return limitedReadCloser{Reader: io.LimitReader(body, d.maxBytes), Closer: body}, nil
}

type limitedReadCloser struct {
	io.Reader
	io.Closer
}
