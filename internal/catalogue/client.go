// Пакет catalogue — HTTP-клиент внешнего каталога (OGC Records - Transactions).
// Выполняет ровно один запрос на операцию и классифицирует исход;
// retry/backoff отсутствуют намеренно — решение об обработке отказа
// принимает вызывающий код.
package catalogue

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

// contentType — тип содержимого всех запросов к каталогу.
const contentType = "application/geo+json"

// Классифицированные исходы операций каталога.
var (
	// ErrConflict — каталог уже содержит Item с таким id (409).
	ErrConflict = errors.New("item уже существует в каталоге")
	// ErrNotFound — каталог не содержит Item с таким id (404).
	ErrNotFound = errors.New("item не найден в каталоге")
)

// StatusError — не классифицированный отказ каталога: статус и тело ответа.
type StatusError struct {
	// Code — HTTP статус-код ответа.
	Code int
	// Body — тело ответа каталога.
	Body string
}

// Error форматирует отказ в стиле, который gateway включает в failure_reason.
func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP Error %d: %s: %s", e.Code, http.StatusText(e.Code), e.Body)
}

// Client — HTTP-клиент каталога. Endpoint передаётся в каждую операцию:
// он различен для каждой коллекции (часть grant-кортежа).
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// New создаёт клиент каталога.
// timeout — таймаут HTTP-запросов (RG_CATALOGUE_TIMEOUT).
// caCertPath — путь к CA-сертификату для TLS (пустая строка — стандартный пул).
func New(timeout time.Duration, caCertPath string, logger *slog.Logger) (*Client, error) {
	transport := &http.Transport{
		// Настройка пула idle-соединений для эффективного переиспользования
		MaxIdleConnsPerHost: 10,
	}

	if caCertPath != "" {
		tlsConfig, err := buildTLSConfig(caCertPath)
		if err != nil {
			return nil, fmt.Errorf("загрузка CA-сертификата каталога: %w", err)
		}
		transport.TLSClientConfig = tlsConfig
		logger.Info("CA-сертификат каталога добавлен в пул доверия",
			slog.String("ca_cert", caCertPath),
		)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		logger: logger.With(slog.String("component", "catalogue_client")),
	}, nil
}

// Register публикует канонический документ Item в каталоге.
// nil — создано; ErrConflict — id уже занят; *StatusError — прочие отказы.
func (c *Client) Register(ctx context.Context, endpoint string, item []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, normalizeURL(endpoint), bytes.NewReader(item))
	if err != nil {
		return fmt.Errorf("создание запроса Register: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("запрос Register к %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusConflict:
		return ErrConflict
	default:
		return readStatusError(resp)
	}
}

// Fetch возвращает документ Item из каталога.
// ErrNotFound — каталог не знает такого id.
func (c *Client) Fetch(ctx context.Context, endpoint, id string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, itemURL(endpoint, id), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("создание запроса Fetch: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("запрос Fetch к %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("чтение ответа каталога: %w", err)
		}
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, readStatusError(resp)
	}
}

// Remove удаляет Item из каталога.
// ErrNotFound — каталог не знает такого id.
func (c *Client) Remove(ctx context.Context, endpoint, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, itemURL(endpoint, id), http.NoBody)
	if err != nil {
		return fmt.Errorf("создание запроса Remove: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("запрос Remove к %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	default:
		return readStatusError(resp)
	}
}

// readStatusError читает тело ответа и формирует StatusError.
func readStatusError(resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &StatusError{
		Code: resp.StatusCode,
		Body: string(body),
	}
}

// buildTLSConfig создаёт TLS-конфигурацию с кастомным CA-сертификатом.
func buildTLSConfig(caCertPath string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("чтение CA-сертификата: %w", err)
	}

	caCertPool, err := x509.SystemCertPool()
	if err != nil {
		caCertPool = x509.NewCertPool()
	}
	caCertPool.AppendCertsFromPEM(caCert)

	return &tls.Config{
		RootCAs: caCertPool,
	}, nil
}

// itemURL формирует URL записи каталога.
func itemURL(endpoint, id string) string {
	return normalizeURL(endpoint) + "/" + id
}

// normalizeURL убирает trailing slash из URL.
func normalizeURL(rawURL string) string {
	return strings.TrimRight(rawURL, "/")
}
