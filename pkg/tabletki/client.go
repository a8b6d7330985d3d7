package tabletki

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/samvad-hq/tabletki-watch/pkg/httpclient"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	pathLocationByIP = "Locations/locationByIp"
	pathSearchHints  = "Search/searchHintsV2"
	pathProductCard  = "ProductCard/card"

	// DefaultSearchType is the result-type selector the app sends by default.
	DefaultSearchType = "DEFAULT"
)

// Client calls the tabletki.ua mobile API on behalf of one device profile.
//
// The profile's location id is the only state carried between calls; it is
// guarded internally so a Client may be shared across goroutines.
type Client struct {
	token   string
	baseURL string
	http    httpclient.Client
	limiter *rate.Limiter
	log     *zap.Logger

	mu       sync.RWMutex
	identity DeviceProfile
}

// LocateParams controls LocationByIP.
type LocateParams struct {
	// SkipStore leaves the stored location untouched.
	SkipStore bool
}

// SearchParams controls SearchHints.
type SearchParams struct {
	Term          string
	Transliterate bool
	// Type defaults to DefaultSearchType.
	Type string
	// Location overrides the stored location id for this call only.
	Location string
}

// ProductCardParams controls ProductCard.
type ProductCardParams struct {
	Name         string
	GoodsIntCode string
	// SkipContentPlus asks for the card without enriched content.
	SkipContentPlus bool
}

// NewClient builds a client authenticated with appAPIToken.
func NewClient(appAPIToken string, opts ...Option) *Client {
	o := clientOptions{
		baseURL:   DefaultBaseURL,
		transport: httpclient.DefaultOptions(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	log := o.logger
	if log == nil {
		log = zap.NewNop()
	}
	identity := GenerateDevice()
	if o.identity != nil {
		identity = *o.identity
	}
	hc := o.http
	if hc == nil {
		hc = httpclient.NewRestyClient(o.transport)
	}

	return &Client{
		token:    appAPIToken,
		baseURL:  strings.TrimRight(o.baseURL, "/"),
		http:     hc,
		limiter:  o.limiter,
		log:      log,
		identity: identity,
	}
}

// Identity returns a copy of the current device profile.
func (c *Client) Identity() DeviceProfile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identity
}

// SetLocation stores id as the location sent with later calls. An empty id
// clears it.
func (c *Client) SetLocation(id string) {
	c.mu.Lock()
	c.identity.LocationHeader = id
	c.mu.Unlock()
}

// Close releases pooled connections held by the transport.
func (c *Client) Close() error {
	if c == nil || c.http == nil {
		return nil
	}
	return c.http.Close()
}

// LocationByIP resolves the caller's region from its IP address and, unless
// p.SkipStore is set, remembers the region id for later calls.
func (c *Client) LocationByIP(ctx context.Context, p LocateParams) (Location, error) {
	data, url, err := c.call(ctx, http.MethodGet, pathLocationByIP, nil, nil, "")
	if err != nil {
		return Location{}, err
	}
	loc, err := ParseLocation(data)
	if err != nil {
		return Location{}, &SerializationError{URL: url, Err: err}
	}
	if !p.SkipStore {
		c.SetLocation(loc.ID)
		c.log.Debug("location stored", zap.String("location_id", loc.ID))
	}
	return loc, nil
}

// SearchHints returns grouped hints for a free-text term or barcode.
func (c *Client) SearchHints(ctx context.Context, p SearchParams) (SearchHintsResult, error) {
	typ := p.Type
	if typ == "" {
		typ = DefaultSearchType
	}
	translit := 0
	if p.Transliterate {
		translit = 1
	}
	body := map[string]any{
		"term":          p.Term,
		"transliterate": translit,
		"type":          typ,
	}

	data, url, err := c.call(ctx, http.MethodPost, pathSearchHints, nil, body, p.Location)
	if err != nil {
		return SearchHintsResult{}, err
	}
	res, err := ParseSearchHints(data)
	if err != nil {
		return SearchHintsResult{}, &SerializationError{URL: url, Err: err}
	}
	return res, nil
}

// ProductCard fetches the full card of a product by URL name and goods code.
func (c *Client) ProductCard(ctx context.Context, p ProductCardParams) (ProductCard, error) {
	contentPlus := "true"
	if p.SkipContentPlus {
		contentPlus = "false"
	}
	query := map[string]string{
		"name":            p.Name,
		"id":              p.GoodsIntCode,
		"withContentPlus": contentPlus,
	}

	data, url, err := c.call(ctx, http.MethodGet, pathProductCard, query, nil, "")
	if err != nil {
		return ProductCard{}, err
	}
	card, err := ParseProductCard(data)
	if err != nil {
		return ProductCard{}, &SerializationError{URL: url, Err: err}
	}
	return card, nil
}

// ParseTransliterate reports whether s is one of the truthy spellings the
// app accepts ("1", "true", "True").
func ParseTransliterate(s string) bool {
	switch strings.TrimSpace(s) {
	case "1", "true", "True":
		return true
	}
	return false
}

// call performs one API exchange and returns the decoded JSON object together
// with the final URL. location, when set, overrides the stored location.
func (c *Client) call(ctx context.Context, method, path string, query map[string]string, body any, location string) (map[string]any, string, error) {
	url := c.baseURL + "/" + strings.TrimLeft(path, "/")

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, url, &NetworkError{Method: method, URL: url, Err: err}
		}
	}

	headers := c.Identity().Headers(c.token)
	if location != "" {
		headers[HeaderLocation] = location
	}

	resp, err := c.http.Do(ctx, httpclient.Request{
		Method:  method,
		URL:     url,
		Headers: headers,
		Query:   query,
		Body:    body,
	})
	if err != nil {
		return nil, url, &NetworkError{Method: method, URL: url, Err: err}
	}

	final := resp.URL()
	if final == "" {
		final = url
	}
	if !isSuccess(resp.StatusCode()) {
		return nil, final, &APIError{
			StatusCode: resp.StatusCode(),
			URL:        final,
			Payload:    httpclient.DecodeBody(resp.Body()),
		}
	}

	var out map[string]any
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, final, &SerializationError{URL: final, Err: err}
	}
	if out == nil {
		return nil, final, &SerializationError{URL: final, Err: errNotObject}
	}
	return out, final, nil
}

var errNotObject = errors.New("response body is not a JSON object")

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
