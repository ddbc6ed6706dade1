package catalogue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// newTestClient создаёт клиент с коротким таймаутом для тестов.
func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := New(5*time.Second, "", slog.Default())
	if err != nil {
		t.Fatalf("ошибка создания клиента: %v", err)
	}
	return c
}

// TestRegister_Created проверяет успешную регистрацию и заголовки запроса.
func TestRegister_Created(t *testing.T) {
	var gotContentType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("метод: ожидался POST, получен %s", r.Method)
		}
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := newTestClient(t)
	item := []byte(`{"id":"ITEM1"}`)

	if err := c.Register(context.Background(), srv.URL, item); err != nil {
		t.Fatalf("неожиданный отказ регистрации: %v", err)
	}
	if gotContentType != "application/geo+json" {
		t.Errorf("Content-Type: ожидался application/geo+json, получен %q", gotContentType)
	}
	if string(gotBody) != string(item) {
		t.Errorf("тело запроса: ожидалось %s, получено %s", item, gotBody)
	}
}

// TestRegister_Conflict проверяет классификацию 409 как ErrConflict.
func TestRegister_Conflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	c := newTestClient(t)
	err := c.Register(context.Background(), srv.URL, []byte(`{}`))
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("ожидался ErrConflict, получено %v", err)
	}
}

// TestRegister_StatusError проверяет, что прочие статусы несут код и тело.
func TestRegister_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("maintenance"))
	}))
	defer srv.Close()

	c := newTestClient(t)
	err := c.Register(context.Background(), srv.URL, []byte(`{}`))

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("ожидался StatusError, получено %v", err)
	}
	if statusErr.Code != http.StatusServiceUnavailable {
		t.Errorf("код: ожидалось 503, получено %d", statusErr.Code)
	}
	if statusErr.Body != "maintenance" {
		t.Errorf("тело: ожидалось maintenance, получено %q", statusErr.Body)
	}
}

// TestRegister_NetworkError проверяет, что сетевой отказ не маскируется.
func TestRegister_NetworkError(t *testing.T) {
	c := newTestClient(t)
	err := c.Register(context.Background(), "http://127.0.0.1:1", []byte(`{}`))
	if err == nil {
		t.Fatal("ожидалась ошибка при недоступном каталоге")
	}
	if errors.Is(err, ErrConflict) || errors.Is(err, ErrNotFound) {
		t.Fatalf("сетевой отказ классифицирован неверно: %v", err)
	}
}

// TestFetch проверяет получение Item и классификацию 404.
func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ITEM1":
			_, _ = w.Write([]byte(`{"id":"ITEM1"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := newTestClient(t)

	body, err := c.Fetch(context.Background(), srv.URL, "ITEM1")
	if err != nil {
		t.Fatalf("неожиданный отказ Fetch: %v", err)
	}
	if string(body) != `{"id":"ITEM1"}` {
		t.Errorf("тело: получено %s", body)
	}

	if _, err := c.Fetch(context.Background(), srv.URL, "MISSING"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ожидался ErrNotFound, получено %v", err)
	}
}

// TestRemove проверяет удаление и классификацию 404.
func TestRemove(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("метод: ожидался DELETE, получен %s", r.Method)
		}
		if r.URL.Path == "/GONE" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(t)

	if err := c.Remove(context.Background(), srv.URL, "ITEM1"); err != nil {
		t.Fatalf("неожиданный отказ Remove: %v", err)
	}
	if err := c.Remove(context.Background(), srv.URL, "GONE"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ожидался ErrNotFound, получено %v", err)
	}
}

// TestItemURL проверяет нормализацию endpoint с trailing slash.
func TestItemURL(t *testing.T) {
	got := itemURL("http://cat.example/collections/PRR_TEST/items/", "ITEM1")
	want := "http://cat.example/collections/PRR_TEST/items/ITEM1"
	if got != want {
		t.Errorf("itemURL: ожидалось %q, получено %q", want, got)
	}
}
