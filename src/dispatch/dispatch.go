package dispatch

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"light-translator/src/settings"
)

// Options mirrors the optional second argument of the proxy_request command.
type Options struct {
	Method  *string           `json:"method,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    *string           `json:"body,omitempty"`
}

// RequestSpec describes one outbound request. The URL is not validated before dispatch.
type RequestSpec struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    *string
}

// NewSpec builds a RequestSpec from the command arguments, defaulting the method to GET.
func NewSpec(url string, opts *Options) RequestSpec {
	spec := RequestSpec{URL: url, Method: http.MethodGet}
	if opts == nil {
		return spec
	}
	if opts.Method != nil {
		spec.Method = *opts.Method
	}
	spec.Headers = opts.Headers
	spec.Body = opts.Body
	return spec
}

// RequestResult is always returned, never an error. StatusCode and Data are nil only on
// transport failure, in which case Error is set.
type RequestResult struct {
	OK         bool    `json:"ok"`
	StatusCode *int    `json:"statusCode"`
	Data       *string `json:"data"`
	Error      *string `json:"error"`
}

func failure(err error) RequestResult {
	msg := err.Error()
	return RequestResult{OK: false, Error: &msg}
}

// ProxySource supplies the proxy configuration current at dispatch time.
type ProxySource interface {
	Proxy() *settings.ProxyConfig
}

// Dispatcher executes requests through a client built fresh from the current proxy
// configuration on every call, so proxy changes apply to the next request.
type Dispatcher struct {
	proxies ProxySource
}

func New(proxies ProxySource) *Dispatcher {
	return &Dispatcher{proxies: proxies}
}

// ParseMethod maps a method name case-insensitively onto the supported verbs;
// anything unrecognized falls back to GET.
func ParseMethod(m string) string {
	switch strings.ToUpper(strings.TrimSpace(m)) {
	case http.MethodPost:
		return http.MethodPost
	case http.MethodPut:
		return http.MethodPut
	case http.MethodDelete:
		return http.MethodDelete
	case http.MethodPatch:
		return http.MethodPatch
	default:
		return http.MethodGet
	}
}

// Dispatch performs the request and encodes every failure mode in the result.
func (d *Dispatcher) Dispatch(ctx context.Context, spec RequestSpec) RequestResult {
	var cfg *settings.ProxyConfig
	if d.proxies != nil {
		cfg = d.proxies.Proxy()
	}

	client, err := newClient(cfg)
	if err != nil {
		log.Printf("dispatch: proxy setup failed: %v", err)
		return failure(err)
	}
	defer client.CloseIdleConnections()

	method := ParseMethod(spec.Method)

	var body io.Reader
	if spec.Body != nil {
		body = strings.NewReader(*spec.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, spec.URL, body)
	if err != nil {
		return failure(fmt.Errorf("create request: %w", err))
	}
	for k, v := range spec.Headers {
		if strings.EqualFold(k, "Host") {
			req.Host = v
			continue
		}
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		log.Printf("dispatch: %s %s failed: %v", method, spec.URL, err)
		return failure(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("dispatch: %s %s body read failed: %v", method, spec.URL, err)
		return failure(fmt.Errorf("read body: %w", err))
	}

	status := resp.StatusCode
	text := string(data)
	log.Printf("dispatch: %s %s -> %d (%d bytes)", method, spec.URL, status, len(data))
	return RequestResult{
		OK:         status >= 200 && status < 300,
		StatusCode: &status,
		Data:       &text,
	}
}
