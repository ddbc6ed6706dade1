package backup

import (
	"os"
	"path/filepath"
	"testing"
)

// TestWriteRead проверяет запись документа и раскладку по дате/id.
func TestWriteRead(t *testing.T) {
	root := t.TempDir()
	data := []byte(`{"id":"ITEM1","collection":"PRR_TEST"}`)

	if err := Write(root, "2015/05/19", "ITEM1", data); err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}

	path := filepath.Join(root, "2015", "05", "19", "ITEM1")
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("документ не найден по ожидаемому пути: %v", err)
	}
	if string(got) != string(data) {
		t.Error("содержимое документа не совпадает")
	}
}

// TestWrite_NoTmpLeftover проверяет отсутствие temp-файла после записи.
func TestWrite_NoTmpLeftover(t *testing.T) {
	root := t.TempDir()

	if err := Write(root, "2015/05/19", "ITEM1", []byte("{}")); err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}

	tmp := filepath.Join(root, "2015", "05", "19", "ITEM1.tmp")
	if _, err := os.Stat(tmp); !os.IsNotExist(err) {
		t.Error("temp-файл не удалён после атомарной записи")
	}
}

// TestWrite_Overwrite проверяет перезапись существующего документа.
func TestWrite_Overwrite(t *testing.T) {
	root := t.TempDir()

	if err := Write(root, "2015/05/19", "ITEM1", []byte("old")); err != nil {
		t.Fatal(err)
	}
	if err := Write(root, "2015/05/19", "ITEM1", []byte("new")); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(Path(root, "2015/05/19", "ITEM1"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "new" {
		t.Errorf("содержимое: ожидалось new, получено %q", got)
	}
}

// TestRemove проверяет удаление и различение отсутствующего документа.
func TestRemove(t *testing.T) {
	root := t.TempDir()

	if err := Write(root, "2015/05/19", "ITEM1", []byte("{}")); err != nil {
		t.Fatal(err)
	}

	removed, err := Remove(root, "2015/05/19", "ITEM1")
	if err != nil {
		t.Fatalf("ошибка удаления: %v", err)
	}
	if !removed {
		t.Error("ожидалось removed=true для существующего документа")
	}

	removed, err = Remove(root, "2015/05/19", "ITEM1")
	if err != nil {
		t.Fatalf("повторное удаление не должно быть ошибкой: %v", err)
	}
	if removed {
		t.Error("ожидалось removed=false для отсутствующего документа")
	}
}
