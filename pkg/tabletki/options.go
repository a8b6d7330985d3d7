package tabletki

import (
	"github.com/samvad-hq/tabletki-watch/pkg/httpclient"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the versioned root of the mobile API.
const DefaultBaseURL = "https://app.tabletki.ua/api/app/v1"

type clientOptions struct {
	baseURL   string
	identity  *DeviceProfile
	http      httpclient.Client
	transport httpclient.Options
	logger    *zap.Logger
	limiter   *rate.Limiter
}

// Option customizes a Client at construction.
type Option func(*clientOptions)

// WithBaseURL points the client at another API root (tests, mirrors).
func WithBaseURL(u string) Option {
	return func(o *clientOptions) {
		if u != "" {
			o.baseURL = u
		}
	}
}

// WithIdentity uses p instead of a freshly generated device profile.
func WithIdentity(p DeviceProfile) Option {
	return func(o *clientOptions) { o.identity = &p }
}

// WithHTTPClient replaces the resty transport. Transport options, proxy and
// cookies are ignored when a client is supplied.
func WithHTTPClient(c httpclient.Client) Option {
	return func(o *clientOptions) { o.http = c }
}

// WithTransportOptions sets timeouts and the retry budget of the default transport.
func WithTransportOptions(t httpclient.Options) Option {
	return func(o *clientOptions) {
		proxy, cookies, log := o.transport.Proxy, o.transport.Cookies, o.transport.Logger
		o.transport = t
		if o.transport.Proxy == "" {
			o.transport.Proxy = proxy
		}
		if o.transport.Cookies == nil {
			o.transport.Cookies = cookies
		}
		if o.transport.Logger == nil {
			o.transport.Logger = log
		}
	}
}

// WithProxy sends every request of the default transport through proxyURL.
func WithProxy(proxyURL string) Option {
	return func(o *clientOptions) { o.transport.Proxy = proxyURL }
}

// WithCookies attaches the given cookies to every request of the default transport.
func WithCookies(cookies map[string]string) Option {
	return func(o *clientOptions) { o.transport.Cookies = cookies }
}

// WithLogger routes client and transport debug records to log.
func WithLogger(log *zap.Logger) Option {
	return func(o *clientOptions) {
		o.logger = log
		o.transport.Logger = log
	}
}

// WithRateLimit caps outgoing calls at perSecond with the given burst.
// A non-positive rate disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(o *clientOptions) {
		if perSecond <= 0 {
			o.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		o.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}
