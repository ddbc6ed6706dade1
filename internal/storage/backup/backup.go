// Пакет backup — durable-копия канонического JSON-документа Item,
// независимая от каталога. Раскладка: <root>/<YYYY>/<MM>/<DD>/<id>.
// Запись атомарна: temp файл → fsync → rename.
package backup

import (
	"fmt"
	"os"
	"path/filepath"
)

// Write атомарно записывает канонический документ Item.
// root — backup-корень коллекции (stacs_path из grant);
// datePath — дата-префикс вида "2015/05/19"; id — идентификатор Item.
func Write(root, datePath, id string, data []byte) error {
	path := filepath.Join(root, filepath.FromSlash(datePath), id)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("не удалось создать директорию %s: %w", dir, err)
	}

	tmpPath := path + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка записи: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return nil
}

// Path возвращает путь backup-документа Item.
func Path(root, datePath, id string) string {
	return filepath.Join(root, filepath.FromSlash(datePath), id)
}

// Remove удаляет backup-документ Item.
// removed=false — документа не было (не ошибка: вызывающий код решает,
// как трактовать отсутствие).
func Remove(root, datePath, id string) (removed bool, err error) {
	path := Path(root, datePath, id)

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("ошибка удаления backup %s: %w", path, err)
	}
	return true, nil
}
