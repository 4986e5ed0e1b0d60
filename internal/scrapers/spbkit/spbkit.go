package spbkit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"replaces-backend/internal/components/assert"
	"replaces-backend/internal/components/fallback"
	"replaces-backend/internal/components/telemetry"
	"replaces-backend/internal/db"
	"replaces-backend/internal/htmlutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_resolve_endpoint = "fetcher.resolve-endpoint"
	report_fetch_page       = "fetcher.fetch-page"
)

var (
	ErrResolution = errors.New("failed to resolve replacements endpoint")
	ErrFetch      = errors.New("failed to fetch replacements page")
)

// EndpointCache is the part of the key-value cache the fetcher reads
// its fallback endpoint from.
type EndpointCache interface {
	Get(ctx context.Context, key db.CacheKey) (string, bool, error)
}

type Client struct {
	http          *resty.Client
	config        Config
	anchorMatcher cascadia.Selector
	tel           telemetry.API
}

func NewClient(config Config, tel telemetry.API) (Client, error) {
	assert.NotNil(tel)
	assert.NotEmptyStr(config.IndexUrl)
	config = config.withDefaults()

	anchorMatcher, err := cascadia.Compile("a." + config.AnchorClass)
	if err != nil {
		return Client{}, fmt.Errorf("compile anchor selector: %w", err)
	}

	client := resty.New()
	client.SetTimeout(time.Duration(config.TimeoutSeconds) * time.Second)
	if config.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}
	if config.RequestsPerSecond > 0 {
		limiter := rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1)
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return limiter.Wait(req.Context())
		})
	}
	telemetry.InstrumentResty(client, tel)

	return Client{
		http:          client,
		config:        config,
		anchorMatcher: anchorMatcher,
		tel:           telemetry.NewScopedAPI("spbkit", tel),
	}, nil
}

// ResolveEndpoint finds the link to the replacements page on the index page
// and turns it into the url of the replacements endpoint.
func (c Client) ResolveEndpoint(ctx context.Context) (string, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(c.config.IndexParams).
		Get(c.config.IndexUrl)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrResolution, err)
	}
	if !res.IsSuccess() {
		return "", fmt.Errorf("%w: index page returned %s", ErrResolution, res.Status())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrResolution, err)
	}

	var href string
	for _, a := range htmlutil.GetAnchors(doc.FindMatcher(c.anchorMatcher)) {
		if a.Name == c.config.AnchorLabel {
			href = a.Href
			break
		}
	}
	if href == "" {
		return "", fmt.Errorf("%w: no anchor labeled '%s'", ErrResolution, c.config.AnchorLabel)
	}

	link, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrResolution, err)
	}
	if link.Scheme == "" || link.Host == "" {
		return "", fmt.Errorf("%w: anchor href '%s' is not absolute", ErrResolution, href)
	}

	endpoint := url.URL{
		Scheme: link.Scheme,
		Host:   link.Host,
		Path:   c.config.EndpointPath,
	}
	return endpoint.String(), nil
}

// ResolveEndpointCached resolves the endpoint, falling back to the endpoint
// stored under `key` in `cache` if resolution fails. With `force` resolution
// is skipped and only the cached endpoint is used.
func (c Client) ResolveEndpointCached(ctx context.Context, cache EndpointCache, key db.CacheKey, force bool) (string, error) {
	var cached *string
	value, ok, err := cache.Get(ctx, key)
	if err != nil {
		c.tel.ReportWarning(report_resolve_endpoint, fmt.Errorf("read cached endpoint: %w", err))
	} else if ok {
		cached = &value
	}

	endpoint, err := fallback.Wrap(c.tel, c.ResolveEndpoint, cached, force)(ctx)
	if err != nil {
		c.tel.ReportBroken(report_resolve_endpoint, err)
		if errors.Is(err, ErrResolution) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", ErrResolution, err)
	}
	return endpoint, nil
}

// FetchPage downloads the raw bytes of the replacements page.
func (c Client) FetchPage(ctx context.Context, endpoint string) ([]byte, error) {
	res, err := c.http.R().
		SetContext(ctx).
		Get(endpoint)
	if err != nil {
		c.tel.ReportBroken(report_fetch_page, err, endpoint)
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if !res.IsSuccess() {
		c.tel.ReportBroken(report_fetch_page, "unexpected status", endpoint, res.Status())
		return nil, fmt.Errorf("%w: %s returned %s", ErrFetch, endpoint, res.Status())
	}
	return res.Body(), nil
}
