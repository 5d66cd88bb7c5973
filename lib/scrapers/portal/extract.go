package portal

import (
	"attendqr/lib/chrono"
	"attendqr/lib/htmlutil"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Extractor runs one extraction cycle against a portal. The zero value uses
// the default candidate lists, the local clock and a fresh Session per cycle.
type Extractor struct {
	LoginPaths []string
	PagePaths  []string
	Selectors  []ImageSelector
	Time       chrono.TimeAPI
	// NewFetcher creates the session for a cycle.
	NewFetcher func() (Fetcher, error)
}

func NewExtractor(opts SessionOptions) Extractor {
	return Extractor{
		NewFetcher: func() (Fetcher, error) {
			return NewSession(opts)
		},
	}
}

func (e Extractor) loginPaths() []string {
	if e.LoginPaths != nil {
		return e.LoginPaths
	}
	return DefaultLoginPaths
}

func (e Extractor) pagePaths() []string {
	if e.PagePaths != nil {
		return e.PagePaths
	}
	return DefaultPagePaths
}

func (e Extractor) selectors() []ImageSelector {
	if e.Selectors != nil {
		return e.Selectors
	}
	return DefaultImageSelectors
}

func (e Extractor) clock() chrono.TimeAPI {
	if e.Time != nil {
		return e.Time
	}
	return chrono.NewStandardTime(nil)
}

func (e Extractor) fetcher() (Fetcher, error) {
	if e.NewFetcher != nil {
		return e.NewFetcher()
	}
	return NewSession(DefaultSessionOptions())
}

func validateBaseUrl(baseUrl string) error {
	parsed, err := url.Parse(baseUrl)
	if err != nil {
		return fmt.Errorf("invalid base url %q: %w", baseUrl, err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("invalid base url %q: expected an http(s) url with a host", baseUrl)
	}
	return nil
}

// Extract logs into the portal at baseUrl (when creds is not nil), probes
// every candidate attendance page and saves the QR images it finds into
// outputDir.
//
// The saved paths are returned in discovery order, nil means nothing was
// found. An error is only returned when baseUrl is invalid, outputDir cannot
// be created or ctx is done.
func (e Extractor) Extract(ctx context.Context, baseUrl string, creds *Credentials, outputDir string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "Extract")
	defer span.End()
	span.SetAttributes(attribute.String("base_url", baseUrl))

	err := validateBaseUrl(baseUrl)
	if err != nil {
		span.SetStatus(codes.Error, "invalid base url")
		return nil, err
	}
	err = os.MkdirAll(outputDir, 0755)
	if err != nil {
		span.SetStatus(codes.Error, "failed to create output directory")
		return nil, fmt.Errorf("%w: %w", ErrPersist, err)
	}

	fetcher, err := e.fetcher()
	if err != nil {
		span.SetStatus(codes.Error, "failed to create session")
		return nil, err
	}

	if creds != nil {
		err = e.login(ctx, fetcher, baseUrl, *creds)
		if err != nil {
			slog.WarnContext(ctx, "login failed, continuing without a session", "err", err)
		}
	}

	var saved []string
	for _, path := range e.pagePaths() {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, "cancelled")
			return nil, err
		}
		saved = append(saved, e.probePage(ctx, fetcher, baseUrl, path, outputDir)...)
	}
	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, "cancelled")
		return nil, err
	}

	span.SetAttributes(attribute.Int("saved", len(saved)))
	if len(saved) == 0 {
		span.SetStatus(codes.Error, "no qr code found")
		slog.WarnContext(ctx, "no qr code found on any candidate page", "base_url", baseUrl)
		return nil, nil
	}
	return saved, nil
}

func (e Extractor) probePage(ctx context.Context, f Fetcher, baseUrl, path, outputDir string) []string {
	link := htmlutil.JoinURL(baseUrl, path)

	ctx, span := tracer.Start(ctx, "probePage")
	defer span.End()
	span.SetAttributes(attribute.String("url", link))

	page, err := f.Get(ctx, link)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch page")
		slog.DebugContext(ctx, "attendance candidate unreachable", "url", link, "err", err)
		return nil
	}
	if !page.OK() {
		slog.DebugContext(ctx, "attendance candidate not found", "url", link, "status", page.Status)
		return nil
	}
	doc, err := page.Document()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse page")
		slog.WarnContext(ctx, "failed to parse attendance candidate", "url", link, "err", err)
		return nil
	}

	images := LocateImages(ctx, doc, e.selectors())
	span.SetAttributes(attribute.Int("candidates", len(images)))
	if len(images) == 0 {
		return nil
	}
	slog.InfoContext(ctx, "found candidate qr images", "url", link, "count", len(images))

	return PersistImages(ctx, f, baseUrl, outputDir, images, e.clock().Now())
}

// Extract runs a single cycle with the default Extractor.
func Extract(ctx context.Context, baseUrl string, creds *Credentials, outputDir string) ([]string, error) {
	return Extractor{}.Extract(ctx, baseUrl, creds, outputDir)
}
