package portal

import (
	"attendqr/lib/restyutil"
	"attendqr/lib/telemetry"
	"bytes"
	"context"
	"fmt"
	"net/http/cookiejar"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// Page is a fetched response, the status is kept so callers can decide what
// counts as a hit.
type Page struct {
	Url    string
	Status int
	Body   []byte
}

func (p Page) OK() bool {
	return p.Status == 200
}

func (p Page) Success() bool {
	return p.Status >= 200 && p.Status < 300
}

func (p Page) Document() (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(p.Body))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrParse, p.Url, err)
	}
	return doc, nil
}

// Fetcher is the http surface the extraction pipeline needs. Transport
// failures are errors, any http status is a Page.
type Fetcher interface {
	Get(ctx context.Context, link string) (Page, error)
	PostForm(ctx context.Context, link string, fields map[string]string) (Page, error)
}

type SessionOptions struct {
	Timeout   time.Duration
	UserAgent string
	// wraps the transport with cloudflare-bp-go, off by default since it
	// rewrites the tls fingerprint and headers of every request.
	CloudflareBypass  bool
	RequestsPerSecond float64
	Burst             int
}

func DefaultSessionOptions() SessionOptions {
	return SessionOptions{
		Timeout:           30 * time.Second,
		UserAgent:         DefaultUserAgent,
		RequestsPerSecond: 5,
		Burst:             5,
	}
}

// Session is a cookie-carrying http client, one is used per extraction cycle.
type Session struct {
	http    *resty.Client
	limiter *rate.Limiter
}

func NewSession(opts SessionOptions) (*Session, error) {
	defaults := DefaultSessionOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaults.UserAgent
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = defaults.RequestsPerSecond
	}
	if opts.Burst <= 0 {
		opts.Burst = defaults.Burst
	}

	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	if opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}
	client.SetHeader("user-agent", opts.UserAgent)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	client.SetTimeout(opts.Timeout)

	s := &Session{
		http:    client,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
	}
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return s.limiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(client, "attendqr.lib.scrapers.portal.http")
	restyutil.InstrumentClient(client, restyInstrumentOutput)

	return s, nil
}

func (s *Session) Get(ctx context.Context, link string) (Page, error) {
	res, err := s.http.R().
		SetContext(ctx).
		Get(link)
	if err != nil {
		return Page{}, fmt.Errorf("%w: GET %s: %w", ErrTransport, link, err)
	}
	return toPage(link, res), nil
}

func (s *Session) PostForm(ctx context.Context, link string, fields map[string]string) (Page, error) {
	res, err := s.http.R().
		SetContext(ctx).
		SetFormData(fields).
		Post(link)
	if err != nil {
		return Page{}, fmt.Errorf("%w: POST %s: %w", ErrTransport, link, err)
	}
	return toPage(link, res), nil
}

func toPage(link string, res *resty.Response) Page {
	return Page{
		Url:    link,
		Status: res.StatusCode(),
		Body:   res.Body(),
	}
}
