package httpclient

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	defaultTimeout    = 15 * time.Second
	defaultRetries    = 3
	defaultBackoff    = 500 * time.Millisecond
	defaultMaxBackoff = 8 * time.Second
)

var (
	retryStatuses = map[int]struct{}{
		http.StatusTooManyRequests:     {},
		http.StatusInternalServerError: {},
		http.StatusBadGateway:          {},
		http.StatusServiceUnavailable:  {},
		http.StatusGatewayTimeout:      {},
	}
	retryMethods = map[string]struct{}{
		http.MethodGet:    {},
		http.MethodPost:   {},
		http.MethodPut:    {},
		http.MethodPatch:  {},
		http.MethodDelete: {},
	}
)

// Options configures the resty-backed transport.
type Options struct {
	// Timeout bounds a single attempt end to end.
	Timeout time.Duration
	// ConnectTimeout and ReadTimeout optionally split the attempt budget into
	// dial and response-header phases.
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration

	// Retries is the number of extra attempts after the first one.
	Retries     int
	Backoff     time.Duration
	MaxBackoff  time.Duration
	Proxy       string
	Cookies     map[string]string
	Logger      *zap.Logger
	DisableLogs bool
}

// DefaultOptions mirrors the upstream mobile app: 15s timeout, 3 retries, 0.5s backoff.
func DefaultOptions() Options {
	return Options{
		Timeout:    defaultTimeout,
		Retries:    defaultRetries,
		Backoff:    defaultBackoff,
		MaxBackoff: defaultMaxBackoff,
	}
}

// RestyClient adapts resty.Client to the httpclient.Client interface.
type RestyClient struct {
	client *resty.Client
	log    *zap.Logger
}

// NewRestyClient creates a RestyClient with retry, backoff and logging configured from opts.
func NewRestyClient(opts Options) *RestyClient {
	opts = normalizeOptions(opts)
	log := opts.Logger
	if log == nil || opts.DisableLogs {
		log = zap.NewNop()
	}

	c := newRestyBaseClient(opts.Timeout)
	c.SetTransport(newTransport(opts))
	c.SetLogger(log.Sugar())
	c.SetRetryCount(opts.Retries)
	c.SetRetryWaitTime(opts.Backoff)
	c.SetRetryMaxWaitTime(opts.MaxBackoff)
	c.AddRetryCondition(shouldRetry)
	c.AddRetryHook(func(resp *resty.Response, err error) {
		fields := []zap.Field{zap.Error(err)}
		if resp != nil && resp.Request != nil {
			fields = append(fields,
				zap.Int("attempt", resp.Request.Attempt),
				zap.String("url", resp.Request.URL),
				zap.Int("status", resp.StatusCode()),
			)
		}
		log.Debug("http retry scheduled", fields...)
	})

	if opts.Proxy != "" {
		c.SetProxy(opts.Proxy)
	}
	if len(opts.Cookies) > 0 {
		cookies := make([]*http.Cookie, 0, len(opts.Cookies))
		for name, value := range opts.Cookies {
			cookies = append(cookies, &http.Cookie{Name: name, Value: value})
		}
		c.SetCookies(cookies)
	}

	return &RestyClient{client: c, log: log}
}

// newRestyBaseClient creates a new resty.Client with the specified timeout.
func newRestyBaseClient(timeout time.Duration) *resty.Client {
	c := resty.New()
	c.SetTimeout(timeout)
	return c
}

func normalizeOptions(opts Options) Options {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaultBackoff
	}
	if opts.MaxBackoff < opts.Backoff {
		opts.MaxBackoff = opts.Backoff
	}
	opts.Proxy = strings.TrimSpace(opts.Proxy)
	return opts
}

func newTransport(opts Options) *http.Transport {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if opts.ConnectTimeout > 0 {
		dialer := &net.Dialer{Timeout: opts.ConnectTimeout, KeepAlive: 30 * time.Second}
		tr.DialContext = dialer.DialContext
		tr.TLSHandshakeTimeout = opts.ConnectTimeout
	}
	if opts.ReadTimeout > 0 {
		tr.ResponseHeaderTimeout = opts.ReadTimeout
	}
	return tr
}

// shouldRetry retries transport failures and the retryable status set, for
// the retryable methods only. Errors raised before the request left the
// client (nil response) are not retried.
func shouldRetry(resp *resty.Response, err error) bool {
	if resp == nil {
		return false
	}
	if resp.Request != nil {
		if _, ok := retryMethods[strings.ToUpper(resp.Request.Method)]; !ok {
			return false
		}
	}
	if err != nil {
		return true
	}
	_, ok := retryStatuses[resp.StatusCode()]
	return ok
}

// Do executes req. Non-2xx responses are returned without error; only
// transport failures that outlive the retry budget produce one.
func (r *RestyClient) Do(ctx context.Context, in Request) (Response, error) {
	method := strings.ToUpper(strings.TrimSpace(in.Method))
	if method == "" {
		method = http.MethodGet
	}

	req := r.client.R().SetContext(ctx)
	for k, v := range in.Headers {
		req.SetHeaderVerbatim(k, v)
	}
	if len(in.Query) > 0 {
		req.SetQueryParams(in.Query)
	}
	if in.Body != nil {
		req.SetHeader("Content-Type", "application/json")
		req.SetBody(in.Body)
	}

	if ce := r.log.Check(zap.DebugLevel, "http request"); ce != nil {
		ce.Write(
			zap.String("method", method),
			zap.String("url", in.URL),
			zap.Any("headers", RedactHeaders(in.Headers)),
			zap.Any("params", in.Query),
			zap.Any("json", in.Body),
		)
	}

	resp, err := req.Execute(method, in.URL)
	if err != nil {
		return nil, err
	}

	body, err := decodeContent(resp.Header().Get("Content-Encoding"), resp.Body())
	if err != nil {
		return nil, err
	}
	out := &restyResponseAdapter{resp: resp, body: body}
	if ce := r.log.Check(zap.DebugLevel, "http response"); ce != nil {
		ce.Write(
			zap.Int("status", out.StatusCode()),
			zap.String("url", out.URL()),
			zap.Any("body", DecodeBody(out.Body())),
		)
	}
	return out, nil
}

// Close releases idle pooled connections.
func (r *RestyClient) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	r.client.GetClient().CloseIdleConnections()
	return nil
}

// restyResponseAdapter adapts resty.Response to the httpclient.Response interface.
type restyResponseAdapter struct {
	resp *resty.Response
	body []byte
}

func (r *restyResponseAdapter) Body() []byte    { return r.body }
func (r *restyResponseAdapter) StatusCode() int { return r.resp.StatusCode() }

func (r *restyResponseAdapter) URL() string {
	if raw := r.resp.RawResponse; raw != nil && raw.Request != nil && raw.Request.URL != nil {
		return raw.Request.URL.String()
	}
	if r.resp.Request != nil {
		return r.resp.Request.URL
	}
	return ""
}
