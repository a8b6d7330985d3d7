package tabletki

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/samvad-hq/tabletki-watch/pkg/httpclient"
)

func fastTransport() httpclient.Options {
	return httpclient.Options{
		Timeout:    2 * time.Second,
		Retries:    0,
		Backoff:    time.Millisecond,
		MaxBackoff: 2 * time.Millisecond,
	}
}

func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) *Client {
	t.Helper()
	base := []Option{WithBaseURL(srv.URL), WithTransportOptions(fastTransport())}
	c := NewClient("tok", append(base, opts...)...)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestLocationByIPStoresLocation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/Locations/locationByIp" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("AppApiToken") != "tok" {
			t.Errorf("missing token header")
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": "42", "name": "Kyiv", "url": "kyiv", "priority": 3})
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	loc, err := c.LocationByIP(context.Background(), LocateParams{})
	if err != nil {
		t.Fatalf("LocationByIP: %v", err)
	}
	if loc.ID != "42" || loc.Name != "Kyiv" || loc.URL != "kyiv" || loc.Priority != 3 {
		t.Fatalf("unexpected location: %+v", loc)
	}
	if got := c.Identity().LocationHeader; got != "42" {
		t.Fatalf("expected stored location 42, got %q", got)
	}
}

func TestLocationByIPSkipStore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": 42})
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	loc, err := c.LocationByIP(context.Background(), LocateParams{SkipStore: true})
	if err != nil {
		t.Fatalf("LocationByIP: %v", err)
	}
	if loc.ID != "42" {
		t.Fatalf("expected numeric id coerced to text, got %q", loc.ID)
	}
	if got := c.Identity().LocationHeader; got != "" {
		t.Fatalf("expected no stored location, got %q", got)
	}
}

func TestSearchHintsLocationHeader(t *testing.T) {
	var (
		locations []string
		bodies    []map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/Search/searchHintsV2" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		locations = append(locations, r.Header.Get("Location"))
		if len(r.Header.Values("Location")) > 1 {
			t.Errorf("location header sent more than once")
		}
		var body map[string]any
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		bodies = append(bodies, body)
		writeJSON(w, http.StatusOK, map[string]any{
			"code": 0,
			"group": []any{
				map[string]any{"name": "goods", "searchItems": []any{map[string]any{"name": "Ibuprofen", "code": 1025098}}},
			},
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	ctx := context.Background()

	res, err := c.SearchHints(ctx, SearchParams{Term: "4820142437368"})
	if err != nil {
		t.Fatalf("SearchHints: %v", err)
	}
	items := res.Items()
	if len(items) != 1 || items[0].Code == nil || *items[0].Code != "1025098" {
		t.Fatalf("unexpected items: %+v", items)
	}

	if _, err := c.SearchHints(ctx, SearchParams{Term: "4820142437368", Location: "42", Transliterate: true, Type: "GOODS"}); err != nil {
		t.Fatalf("SearchHints with location: %v", err)
	}

	c.SetLocation("7")
	if _, err := c.SearchHints(ctx, SearchParams{Term: "x"}); err != nil {
		t.Fatalf("SearchHints stored: %v", err)
	}
	if _, err := c.SearchHints(ctx, SearchParams{Term: "x", Location: "42"}); err != nil {
		t.Fatalf("SearchHints override: %v", err)
	}

	want := []string{"", "42", "7", "42"}
	for i, w := range want {
		if locations[i] != w {
			t.Fatalf("call %d: expected location %q, got %q", i, w, locations[i])
		}
	}

	if bodies[0]["term"] != "4820142437368" || bodies[0]["transliterate"] != float64(0) || bodies[0]["type"] != "DEFAULT" {
		t.Fatalf("unexpected default body: %v", bodies[0])
	}
	if bodies[1]["transliterate"] != float64(1) || bodies[1]["type"] != "GOODS" {
		t.Fatalf("unexpected body: %v", bodies[1])
	}
}

func TestProductCardMissingImages(t *testing.T) {
	var query map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ProductCard/card" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		query = map[string]string{"name": q.Get("name"), "id": q.Get("id"), "withContentPlus": q.Get("withContentPlus")}
		writeJSON(w, http.StatusOK, map[string]any{"goodsName": "Ibuprofen", "goodsIntCode": 1025098, "priceMin": 99.5})
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	card, err := c.ProductCard(context.Background(), ProductCardParams{Name: "ibuprofen", GoodsIntCode: "1025098"})
	if err != nil {
		t.Fatalf("ProductCard: %v", err)
	}
	if card.Images == nil || len(card.Images) != 0 {
		t.Fatalf("expected empty images, got %#v", card.Images)
	}
	if card.GoodsIntCode == nil || *card.GoodsIntCode != "1025098" {
		t.Fatalf("unexpected goodsIntCode %v", card.GoodsIntCode)
	}
	if card.PriceMin == nil || *card.PriceMin != 99.5 {
		t.Fatalf("unexpected priceMin %v", card.PriceMin)
	}
	if query["name"] != "ibuprofen" || query["id"] != "1025098" || query["withContentPlus"] != "true" {
		t.Fatalf("unexpected query %v", query)
	}

	if _, err := c.ProductCard(context.Background(), ProductCardParams{Name: "n", GoodsIntCode: "1", SkipContentPlus: true}); err != nil {
		t.Fatalf("ProductCard: %v", err)
	}
	if query["withContentPlus"] != "false" {
		t.Fatalf("expected withContentPlus=false, got %q", query["withContentPlus"])
	}
}

func TestAPIErrorCarriesStatusURLAndPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/Search/searchHintsV2" {
			http.Error(w, "upstream exploded", http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "no such card"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.ProductCard(context.Background(), ProductCardParams{Name: "n", GoodsIntCode: "1"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if !errors.Is(err, ErrAPI) || errors.Is(err, ErrNetwork) {
		t.Fatalf("sentinel mismatch for %v", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("unexpected status %d", apiErr.StatusCode)
	}
	if apiErr.URL != srv.URL+"/ProductCard/card?id=1&name=n&withContentPlus=true" {
		t.Fatalf("unexpected url %q", apiErr.URL)
	}
	payload, ok := apiErr.Payload.(map[string]any)
	if !ok || payload["message"] != "no such card" {
		t.Fatalf("unexpected payload %#v", apiErr.Payload)
	}

	_, err = c.SearchHints(context.Background(), SearchParams{Term: "x"})
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Payload != "upstream exploded" {
		t.Fatalf("expected text payload, got %#v", apiErr.Payload)
	}
}

func TestSerializationErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/Locations/locationByIp":
			_, _ = w.Write([]byte("<html>maintenance</html>"))
		case "/Search/searchHintsV2":
			_, _ = w.Write([]byte("null"))
		default:
			writeJSON(w, http.StatusOK, map[string]any{"priceMin": "cheap"})
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	ctx := context.Background()

	_, err := c.LocationByIP(ctx, LocateParams{})
	if !errors.Is(err, ErrSerialization) {
		t.Fatalf("expected serialization error for html body, got %v", err)
	}
	if c.Identity().LocationHeader != "" {
		t.Fatalf("failed lookup must not store a location")
	}

	_, err = c.SearchHints(ctx, SearchParams{Term: "x"})
	if !errors.Is(err, ErrSerialization) {
		t.Fatalf("expected serialization error for null body, got %v", err)
	}

	_, err = c.ProductCard(ctx, ProductCardParams{Name: "n", GoodsIntCode: "1"})
	var serErr *SerializationError
	if !errors.As(err, &serErr) {
		t.Fatalf("expected serialization error for bad coercion, got %v", err)
	}
	if serErr.Unwrap() == nil {
		t.Fatalf("expected wrapped cause")
	}
}

func TestNetworkErrorWhenServerUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	c := newTestClient(t, srv)
	srv.Close()

	_, err := c.LocationByIP(context.Background(), LocateParams{})
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	if !errors.Is(err, ErrNetwork) || netErr.Unwrap() == nil {
		t.Fatalf("expected wrapped network cause, got %v", err)
	}
	if netErr.Method != http.MethodGet {
		t.Fatalf("unexpected method %q", netErr.Method)
	}
}

type fakeResponse struct {
	status int
	body   []byte
	url    string
}

func (r fakeResponse) Body() []byte    { return r.body }
func (r fakeResponse) StatusCode() int { return r.status }
func (r fakeResponse) URL() string     { return r.url }

type fakeHTTP struct {
	resp  fakeResponse
	err   error
	calls atomic.Int32
	last  httpclient.Request
}

func (f *fakeHTTP) Do(_ context.Context, req httpclient.Request) (httpclient.Response, error) {
	f.calls.Add(1)
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeHTTP) Close() error { return nil }

func TestStatusBoundaries(t *testing.T) {
	cases := []struct {
		status int
		ok     bool
	}{
		{199, false},
		{200, true},
		{299, true},
		{300, false},
	}
	for _, tc := range cases {
		if got := isSuccess(tc.status); got != tc.ok {
			t.Fatalf("isSuccess(%d) = %v", tc.status, got)
		}

		fake := &fakeHTTP{resp: fakeResponse{status: tc.status, body: []byte(`{"id":"1"}`)}}
		c := NewClient("tok", WithHTTPClient(fake))
		_, err := c.LocationByIP(context.Background(), LocateParams{})
		if tc.ok && err != nil {
			t.Fatalf("status %d: unexpected error %v", tc.status, err)
		}
		if !tc.ok {
			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.StatusCode != tc.status {
				t.Fatalf("status %d: expected APIError, got %v", tc.status, err)
			}
			if apiErr.URL != DefaultBaseURL+"/Locations/locationByIp" {
				t.Fatalf("status %d: expected fallback url, got %q", tc.status, apiErr.URL)
			}
		}
	}
}

func TestTransportErrorBecomesNetworkError(t *testing.T) {
	cause := errors.New("dial tcp: no such host")
	fake := &fakeHTTP{err: cause}
	c := NewClient("tok", WithHTTPClient(fake))

	_, err := c.SearchHints(context.Background(), SearchParams{Term: "x"})
	if !errors.Is(err, ErrNetwork) || !errors.Is(err, cause) {
		t.Fatalf("expected network error wrapping cause, got %v", err)
	}
	if fake.last.Method != http.MethodPost || fake.last.URL != DefaultBaseURL+"/Search/searchHintsV2" {
		t.Fatalf("unexpected request %+v", fake.last)
	}
}

func TestWithIdentityHeadersReachTransport(t *testing.T) {
	fake := &fakeHTTP{resp: fakeResponse{status: 200, body: []byte(`{}`)}}
	id := GenerateDevice(WithADID("a"), WithLocationHeader("9"))
	c := NewClient("secret", WithHTTPClient(fake), WithIdentity(id))

	if _, err := c.ProductCard(context.Background(), ProductCardParams{Name: "n", GoodsIntCode: "5"}); err != nil {
		t.Fatalf("ProductCard: %v", err)
	}
	h := fake.last.Headers
	if h["adid"] != "a" || h["AppApiToken"] != "secret" || h["Location"] != "9" {
		t.Fatalf("unexpected headers %v", h)
	}
	if fake.last.Query["id"] != "5" {
		t.Fatalf("unexpected query %v", fake.last.Query)
	}
}

func TestRateLimitHonoursContext(t *testing.T) {
	fake := &fakeHTTP{resp: fakeResponse{status: 200, body: []byte(`{}`)}}
	c := NewClient("tok", WithHTTPClient(fake), WithRateLimit(0.01, 1))

	if _, err := c.LocationByIP(context.Background(), LocateParams{}); err != nil {
		t.Fatalf("first call: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.LocationByIP(ctx, LocateParams{})
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected limiter wait to fail as network error, got %v", err)
	}
	if got := fake.calls.Load(); got != 1 {
		t.Fatalf("expected 1 transport call, got %d", got)
	}
}

func TestParseTransliterate(t *testing.T) {
	for in, want := range map[string]bool{"1": true, "true": true, "True": true, "0": false, "": false, "yes": false} {
		if got := ParseTransliterate(in); got != want {
			t.Fatalf("ParseTransliterate(%q) = %v", in, got)
		}
	}
}

func TestWithCookiesReachServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("session")
		if err != nil || c.Value != "abc" {
			t.Errorf("expected session cookie, got %v (%v)", c, err)
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": "1"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv, WithCookies(map[string]string{"session": "abc"}))
	if _, err := c.LocationByIP(context.Background(), LocateParams{}); err != nil {
		t.Fatalf("LocationByIP: %v", err)
	}
}

func TestWithProxyRoutesRequests(t *testing.T) {
	var proxied atomic.Int32
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proxied.Add(1)
		if r.URL.Host != "tabletki.invalid" {
			t.Errorf("expected absolute upstream url, got %s", r.URL)
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": "5"})
	}))
	defer proxy.Close()

	c := NewClient("tok",
		WithBaseURL("http://tabletki.invalid/api/app/v1"),
		WithTransportOptions(fastTransport()),
		WithProxy(proxy.URL),
	)
	defer c.Close()

	loc, err := c.LocationByIP(context.Background(), LocateParams{})
	if err != nil {
		t.Fatalf("LocationByIP through proxy: %v", err)
	}
	if loc.ID != "5" || proxied.Load() != 1 {
		t.Fatalf("expected one proxied call returning id 5, got %q after %d calls", loc.ID, proxied.Load())
	}
}
