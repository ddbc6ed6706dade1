// result.go — размеченные результаты pipeline: отказ и операция перемещения.
package model

// UnknownID — подставляется вместо id, когда идентификатор Item
// не удалось определить.
const UnknownID = "unknown"

// Failure — отказ обработки одного Item. Это ожидаемый бизнес-результат,
// а не ошибка: в batch-ответе занимает слот своего Item.
// Формат сериализации — контракт API gateway.
type Failure struct {
	// ID — идентификатор Item или "unknown", если id не удалось определить.
	ID string `json:"id"`
	// Reason — человекочитаемая причина отказа.
	Reason string `json:"failure_reason"`
}

// NewFailure создаёт отказ для Item с известным id.
func NewFailure(id, reason string) *Failure {
	return &Failure{ID: id, Reason: reason}
}

// MoveOperation — запланированное перемещение одного staging-элемента
// (файла или директории целиком) в долговременное хранилище.
// Source и Destination — абсолютные пути; destination-пути всех операций
// одного Item попарно различны.
type MoveOperation struct {
	// Source — разрешённый абсолютный путь в staging-области.
	Source string
	// Destination — абсолютный путь назначения в хранилище ассетов.
	Destination string
	// IsDir — перемещается директория целиком.
	IsDir bool
}
