package coordinator

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// HTTPFetcher is the default Fetcher: a plain GET returning the response
// body. Retries, auth and anything beyond "send GET, receive JSON" belong
// to the host.
type HTTPFetcher struct {
	// BaseURL is prepended to every request path.
	BaseURL string

	// Client is the HTTP client to use. Defaults to http.DefaultClient.
	Client *http.Client
}

// NewHTTPFetcher creates a fetcher rooted at baseURL.
func NewHTTPFetcher(baseURL string) *HTTPFetcher {
	return &HTTPFetcher{BaseURL: baseURL, Client: http.DefaultClient}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, path string, params map[string]any) ([]byte, error) {
	target := strings.TrimRight(f.BaseURL, "/") + path
	if query := EncodeQuery(params); query != "" {
		target += "?" + query
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response for %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", path, resp.StatusCode)
	}
	return body, nil
}

// FlattenParams converts a parameter object into flat string pairs:
// nested maps become dotted keys ("filter.model"), slices are comma-joined,
// and nil values are omitted entirely.
func FlattenParams(params map[string]any) map[string]string {
	flat := make(map[string]string, len(params))
	flattenInto(flat, "", params)
	return flat
}

func flattenInto(flat map[string]string, prefix string, params map[string]any) {
	for key, value := range params {
		if value == nil {
			continue
		}
		name := key
		if prefix != "" {
			name = prefix + "." + key
		}
		switch v := value.(type) {
		case map[string]any:
			flattenInto(flat, name, v)
		case []string:
			flat[name] = strings.Join(v, ",")
		case []any:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				if item == nil {
					continue
				}
				parts = append(parts, fmt.Sprintf("%v", item))
			}
			flat[name] = strings.Join(parts, ",")
		case string:
			flat[name] = v
		default:
			flat[name] = fmt.Sprintf("%v", v)
		}
	}
}

// EncodeQuery renders params as a query string with flattened, sorted keys.
// Sorting keeps outgoing URLs deterministic for logs and tests.
func EncodeQuery(params map[string]any) string {
	flat := FlattenParams(params)
	if len(flat) == 0 {
		return ""
	}

	keys := make([]string, 0, len(flat))
	for key := range flat {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(flat[key]))
	}
	return b.String()
}
