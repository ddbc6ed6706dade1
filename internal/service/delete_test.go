package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/arturkryukov/stacreg/internal/catalogue"
	"github.com/arturkryukov/stacreg/internal/storage/backup"
)

const deleteItemBody = `{
	"id": "ITEM1",
	"collection": "PRR_TEST",
	"properties": {"datetime": "2015-05-19T12:00:00Z"},
	"assets": {}
}`

func testDeleter(t *testing.T) *Deleter {
	t.Helper()
	client, err := catalogue.New(5*time.Second, "", discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	return NewDeleter(client, discardLogger())
}

// catalogueWithItem поднимает каталог, отдающий один Item
// и принимающий его удаление.
func catalogueWithItem(t *testing.T, deleted *bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/ITEM1"):
			_, _ = w.Write([]byte(deleteItemBody))
		case r.Method == http.MethodDelete && strings.HasSuffix(r.URL.Path, "/ITEM1"):
			if deleted != nil {
				*deleted = true
			}
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// TestDelete_Success проверяет полное удаление: каталог, резервная
// копия, дерево ассетов.
func TestDelete_Success(t *testing.T) {
	grant := testGrant(t)
	grant.ExtraAuths = 1

	var deleted bool
	srv := catalogueWithItem(t, &deleted)
	grant.CatalogueURL = srv.URL

	if err := backup.Write(grant.StacsPath, "2015/05/19", "ITEM1", []byte(deleteItemBody)); err != nil {
		t.Fatal(err)
	}
	assetsTree := filepath.Join(grant.AssetsPath, "2015", "05", "19", "ITEM1")
	if err := os.MkdirAll(assetsTree, 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(assetsTree, "b.tgz"), []byte("x"), 0o640); err != nil {
		t.Fatal(err)
	}

	res := testDeleter(t).Delete(context.Background(), grant, "ITEM1")
	if res.Failure != nil || res.NotFound {
		t.Fatalf("неожиданный результат: %+v", res)
	}
	if !deleted {
		t.Error("каталог не получил DELETE")
	}
	if _, err := os.Stat(backup.Path(grant.StacsPath, "2015/05/19", "ITEM1")); !os.IsNotExist(err) {
		t.Error("резервная копия должна быть удалена")
	}
	if _, err := os.Stat(assetsTree); !os.IsNotExist(err) {
		t.Error("дерево ассетов должно быть удалено")
	}
}

// TestDelete_Unauthorized проверяет требование права на удаление.
func TestDelete_Unauthorized(t *testing.T) {
	grant := testGrant(t)
	grant.ExtraAuths = 2

	res := testDeleter(t).Delete(context.Background(), grant, "ITEM1")
	want := "User is not authorized to delete items in this collection"
	if res.Failure == nil || res.Failure.Reason != want {
		t.Fatalf("ожидался отказ по правам, получено %+v", res)
	}
}

// TestDelete_NotFound проверяет отличимый результат для отсутствующей
// в каталоге записи: локальная файловая система не трогается.
func TestDelete_NotFound(t *testing.T) {
	grant := testGrant(t)
	grant.ExtraAuths = 1

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()
	grant.CatalogueURL = srv.URL

	if err := backup.Write(grant.StacsPath, "2015/05/19", "ITEM1", []byte(deleteItemBody)); err != nil {
		t.Fatal(err)
	}

	res := testDeleter(t).Delete(context.Background(), grant, "ITEM1")
	if !res.NotFound {
		t.Fatalf("ожидался NotFound, получено %+v", res)
	}
	if _, err := os.Stat(backup.Path(grant.StacsPath, "2015/05/19", "ITEM1")); err != nil {
		t.Error("резервная копия не должна трогаться при отсутствии записи в каталоге")
	}
}

// TestDelete_MissingArtifacts проверяет накопление заметок об
// отсутствующих локальных артефактах после удаления из каталога.
func TestDelete_MissingArtifacts(t *testing.T) {
	grant := testGrant(t)
	grant.ExtraAuths = 1

	srv := catalogueWithItem(t, nil)
	grant.CatalogueURL = srv.URL

	res := testDeleter(t).Delete(context.Background(), grant, "ITEM1")
	if res.Failure == nil {
		t.Fatal("ожидался отказ с заметками об отсутствующих артефактах")
	}
	if !strings.Contains(res.Failure.Reason, "Cannot delete STAC Item backup. It does not exist.") {
		t.Errorf("нет заметки о резервной копии: %s", res.Failure.Reason)
	}
	if !strings.Contains(res.Failure.Reason, "Cannot delete STAC Item Assets. They do not exist.") {
		t.Errorf("нет заметки об ассетах: %s", res.Failure.Reason)
	}
}

// TestDelete_CatalogueRefusedDelete проверяет отказ каталога на DELETE.
func TestDelete_CatalogueRefusedDelete(t *testing.T) {
	grant := testGrant(t)
	grant.ExtraAuths = 1

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(deleteItemBody))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("maintenance"))
	}))
	defer srv.Close()
	grant.CatalogueURL = srv.URL

	res := testDeleter(t).Delete(context.Background(), grant, "ITEM1")
	if res.Failure == nil || !strings.HasPrefix(res.Failure.Reason, "Catalogue refused DELETE: ") {
		t.Fatalf("ожидался отказ DELETE, получено %+v", res)
	}
}

// TestDelete_BadDates проверяет отказ при неразборчивых датах
// документа из каталога.
func TestDelete_BadDates(t *testing.T) {
	grant := testGrant(t)
	grant.ExtraAuths = 1

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": "ITEM1", "properties": {"datetime": "garbage"}}`))
	}))
	defer srv.Close()
	grant.CatalogueURL = srv.URL

	res := testDeleter(t).Delete(context.Background(), grant, "ITEM1")
	want := "Failed to parse product date time. garbage is an invalid ISO time"
	if res.Failure == nil || res.Failure.Reason != want {
		t.Fatalf("ожидалась причина %q, получено %+v", want, res)
	}
}
