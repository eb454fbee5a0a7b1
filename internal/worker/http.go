package worker

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	maxResponseBody    = 10 * 1024 * 1024 // 10 MB
)

// httpArgs — аргументы встроенной функции http.
type httpArgs struct {
	// Method — HTTP метод. По умолчанию GET.
	Method string `json:"method,omitempty"`

	// URL — адрес запроса. Обязателен.
	URL string `json:"url"`

	// Headers — заголовки запроса.
	Headers map[string]string `json:"headers,omitempty"`

	// Body — тело запроса, отправляется как есть. При непустом Body
	// без явного Content-Type ставится application/json.
	Body json.RawMessage `json:"body,omitempty"`

	// FollowRedirects — следовать ли редиректам. По умолчанию да.
	FollowRedirects *bool `json:"follow_redirects,omitempty"`

	// ValidateSSL — проверять ли сертификат сервера. По умолчанию да.
	ValidateSSL *bool `json:"validate_ssl,omitempty"`

	// TimeoutSec — таймаут запроса в секундах (0 — 30 секунд).
	TimeoutSec int `json:"timeout_sec,omitempty"`
}

// httpFunc выполняет HTTP запрос и возвращает статус, заголовки и тело.
//
// Код ответа не интерпретируется: 500 — такой же результат, как 200.
// Вызывающая сторона смотрит на status_code в значении. Ошибкой
// считается только невозможность выполнить запрос.
func httpFunc(ctx context.Context, args json.RawMessage) (any, error) {
	var a httpArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, fmt.Errorf("decode http args: %w", err)
		}
	}
	if a.URL == "" {
		return nil, fmt.Errorf("http: url is required")
	}

	method := strings.ToUpper(a.Method)
	if method == "" {
		method = http.MethodGet
	}

	req, err := buildHTTPRequest(ctx, method, &a)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := buildHTTPClient(&a).Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	return parseHTTPResponse(resp)
}

func buildHTTPRequest(ctx context.Context, method string, a *httpArgs) (*http.Request, error) {
	var bodyReader io.Reader
	if len(a.Body) > 0 {
		bodyReader = bytes.NewReader(a.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.URL, bodyReader)
	if err != nil {
		return nil, err
	}

	for key, value := range a.Headers {
		req.Header.Set(key, value)
	}
	if len(a.Body) > 0 && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

func buildHTTPClient(a *httpArgs) *http.Client {
	timeout := defaultHTTPTimeout
	if a.TimeoutSec > 0 {
		timeout = time.Duration(a.TimeoutSec) * time.Second
	}

	validateSSL := a.ValidateSSL == nil || *a.ValidateSSL

	var checkRedirect func(*http.Request, []*http.Request) error
	if a.FollowRedirects != nil && !*a.FollowRedirects {
		checkRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	return &http.Client{
		Timeout:       timeout,
		CheckRedirect: checkRedirect,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: !validateSSL},
		},
	}
}

func parseHTTPResponse(resp *http.Response) (any, error) {
	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	// JSON-ответ отдаём структурой, остальное — строкой.
	var body any
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(bodyBytes, &body); err != nil {
			body = string(bodyBytes)
		}
	} else {
		body = string(bodyBytes)
	}

	headers := make(map[string]string)
	for key := range resp.Header {
		headers[key] = resp.Header.Get(key)
	}

	return map[string]any{
		"status_code": resp.StatusCode,
		"headers":     headers,
		"body":        body,
	}, nil
}
