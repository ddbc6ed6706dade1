// Пакет relocate — перемещение ассетов из staging в долговременное
// хранилище. Каждое перемещение — атомарный rename в пределах одного
// тома; у перемещённого источника подчищается sidecar-файл метаданных
// <source>.xattr. Отката завершённых перемещений нет: при первом отказе
// последовательность останавливается и сообщает, сколько операций
// уже выполнено.
package relocate

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/arturkryukov/stacreg/internal/domain/model"
)

// XattrSuffix — суффикс sidecar-файла метаданных staging-области.
const XattrSuffix = ".xattr"

// PartialError — отказ посреди последовательности перемещений.
// Операции до Failed выполнены и остаются на месте.
type PartialError struct {
	// Completed — количество успешно выполненных операций.
	Completed int
	// Failed — операция, на которой произошёл отказ.
	Failed model.MoveOperation
	// Err — причина отказа.
	Err error
}

// Error описывает отказ с указанием прогресса.
func (e *PartialError) Error() string {
	return fmt.Sprintf("перемещение %s → %s: %v (выполнено операций: %d)",
		e.Failed.Source, e.Failed.Destination, e.Err, e.Completed)
}

// Unwrap возвращает первопричину отказа.
func (e *PartialError) Unwrap() error {
	return e.Err
}

// Move выполняет перемещения по порядку.
// Для каждой операции: создание родительских директорий назначения,
// атомарный rename, удаление sidecar <source>.xattr (отсутствие — не ошибка).
func Move(ops []model.MoveOperation) error {
	for idx, op := range ops {
		if err := moveOne(op); err != nil {
			return &PartialError{
				Completed: idx,
				Failed:    op,
				Err:       err,
			}
		}
	}
	return nil
}

// moveOne выполняет одну операцию перемещения.
func moveOne(op model.MoveOperation) error {
	dir := filepath.Dir(op.Destination)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("не удалось создать директорию %s: %w", dir, err)
	}

	if err := os.Rename(op.Source, op.Destination); err != nil {
		return fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	if err := os.Remove(op.Source + XattrSuffix); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления sidecar %s: %w", op.Source+XattrSuffix, err)
	}

	return nil
}

// RemoveTree рекурсивно удаляет поддерево ассетов Item.
// removed=false — поддерева не было.
func RemoveTree(path string) (removed bool, err error) {
	if _, statErr := os.Stat(path); statErr != nil {
		if os.IsNotExist(statErr) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", path, statErr)
	}

	if err := os.RemoveAll(path); err != nil {
		return false, fmt.Errorf("ошибка удаления поддерева %s: %w", path, err)
	}
	return true, nil
}
