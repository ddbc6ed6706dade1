// Пакет staging — безопасное разрешение путей в staging-области.
// Инвариант: разрешённый путь каждого локального ассета лежит строго
// внутри staging-корня. Проверка выполняется на полностью
// нормализованном абсолютном пути (включая раскрытие симлинков в
// промежуточных компонентах), а не на строковом префиксе сырого href.
package staging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Классифицированные отказы разрешения.
var (
	// ErrEscapes — нормализованный путь выходит за пределы staging-корня.
	ErrEscapes = errors.New("путь выходит за пределы staging-области")
	// ErrNotFound — элемент отсутствует в staging-области.
	ErrNotFound = errors.New("элемент не найден в staging-области")
	// ErrSymlink — элемент является символической ссылкой; ссылки не перемещаются.
	ErrSymlink = errors.New("элемент является символической ссылкой")
)

// Kind — классификация staging-элемента.
type Kind int

const (
	// KindFile — обычный файл.
	KindFile Kind = iota
	// KindDir — директория (перемещается целиком).
	KindDir
	// KindOther — не файл и не директория (устройство, сокет, fifo).
	KindOther
)

// Entry — разрешённый staging-элемент.
type Entry struct {
	// Path — нормализованный абсолютный путь внутри staging-корня.
	Path string
	// Kind — классификация элемента.
	Kind Kind
	// Size — размер в байтах (для обычных файлов).
	Size int64
}

// Resolve нормализует href относительно staging-корня, проверяет
// containment, существование и тип элемента.
func Resolve(root, href string) (*Entry, error) {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("нормализация staging-корня %s: %w", root, err)
	}

	// Join очищает путь и разрешает ".." лексически
	joined := filepath.Join(rootAbs, href)
	if !within(joined, rootAbs) {
		return nil, ErrEscapes
	}

	info, err := os.Lstat(joined)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stat %s: %w", joined, err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return nil, ErrSymlink
	}

	// Симлинки в промежуточных компонентах могли вывести путь за корень —
	// раскрываем их и проверяем containment повторно.
	resolved, err := filepath.EvalSymlinks(joined)
	if err != nil {
		return nil, fmt.Errorf("раскрытие симлинков %s: %w", joined, err)
	}
	rootResolved, err := filepath.EvalSymlinks(rootAbs)
	if err != nil {
		return nil, fmt.Errorf("раскрытие симлинков корня %s: %w", rootAbs, err)
	}
	if !within(resolved, rootResolved) {
		return nil, ErrEscapes
	}

	entry := &Entry{Path: resolved}
	switch {
	case info.IsDir():
		entry.Kind = KindDir
	case info.Mode().IsRegular():
		entry.Kind = KindFile
		entry.Size = info.Size()
	default:
		entry.Kind = KindOther
	}
	return entry, nil
}

// within сообщает, лежит ли путь p внутри корня root (или совпадает с ним).
// Оба пути должны быть нормализованы.
func within(p, root string) bool {
	if p == root {
		return true
	}
	return strings.HasPrefix(p, root+string(os.PathSeparator))
}
