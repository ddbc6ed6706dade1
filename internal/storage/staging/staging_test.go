package staging

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// writeFile создаёт файл с содержимым, включая родительские директории.
func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("создание директории: %v", err)
	}
	if err := os.WriteFile(path, data, 0o640); err != nil {
		t.Fatalf("запись файла: %v", err)
	}
}

// TestResolve_File проверяет разрешение обычного файла.
func TestResolve_File(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "b.tgz"), make([]byte, 100))

	entry, err := Resolve(root, "a/b.tgz")
	if err != nil {
		t.Fatalf("неожиданный отказ: %v", err)
	}
	if entry.Kind != KindFile {
		t.Errorf("классификация: ожидался файл")
	}
	if entry.Size != 100 {
		t.Errorf("размер: ожидалось 100, получено %d", entry.Size)
	}
}

// TestResolve_Directory проверяет классификацию директории.
func TestResolve_Directory(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "bundle"), 0o750); err != nil {
		t.Fatal(err)
	}

	entry, err := Resolve(root, "bundle")
	if err != nil {
		t.Fatalf("неожиданный отказ: %v", err)
	}
	if entry.Kind != KindDir {
		t.Error("классификация: ожидалась директория")
	}
}

// TestResolve_Escape проверяет отказ при выходе через "..".
func TestResolve_Escape(t *testing.T) {
	root := t.TempDir()

	if _, err := Resolve(root, "../../etc/passwd"); !errors.Is(err, ErrEscapes) {
		t.Fatalf("ожидался ErrEscapes, получено %v", err)
	}
}

// TestResolve_NotFound проверяет отказ для отсутствующего элемента.
func TestResolve_NotFound(t *testing.T) {
	root := t.TempDir()

	if _, err := Resolve(root, "missing.dat"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ожидался ErrNotFound, получено %v", err)
	}
}

// TestResolve_Symlink проверяет отказ для символической ссылки.
func TestResolve_Symlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("симлинки недоступны")
	}
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "real.dat"), []byte("data"))
	if err := os.Symlink(filepath.Join(root, "real.dat"), filepath.Join(root, "link.dat")); err != nil {
		t.Fatal(err)
	}

	if _, err := Resolve(root, "link.dat"); !errors.Is(err, ErrSymlink) {
		t.Fatalf("ожидался ErrSymlink, получено %v", err)
	}
}

// TestResolve_SymlinkEscape проверяет, что симлинк в промежуточном
// компоненте не позволяет выйти за пределы staging-корня.
func TestResolve_SymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("симлинки недоступны")
	}
	base := t.TempDir()
	root := filepath.Join(base, "staging")
	outside := filepath.Join(base, "outside")
	writeFile(t, filepath.Join(outside, "secret.txt"), []byte("secret"))
	if err := os.MkdirAll(root, 0o750); err != nil {
		t.Fatal(err)
	}
	// Директория-симлинк внутри staging указывает наружу
	if err := os.Symlink(outside, filepath.Join(root, "sneaky")); err != nil {
		t.Fatal(err)
	}

	if _, err := Resolve(root, "sneaky/secret.txt"); !errors.Is(err, ErrEscapes) {
		t.Fatalf("ожидался ErrEscapes, получено %v", err)
	}
}
