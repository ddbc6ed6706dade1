// Пакет errors — конструкторы ответов об отказе в формате gateway.
// Единый формат отказа: {"id": "...", "failure_reason": "..."} — он же
// используется в слотах FeatureCollection-ответа при batch-ингестии.
package errors //nolint:revive // имя пакета повторяет контракт API, конфликт со stdlib осознан

import (
	"encoding/json"
	"net/http"

	"github.com/arturkryukov/stacreg/internal/domain/model"
)

// UnknownID — подставляется вместо id, когда идентификатор Item
// не удалось определить из запроса.
const UnknownID = "unknown"

// WriteFailure записывает отказ одного Item с указанным HTTP-статусом.
func WriteFailure(w http.ResponseWriter, statusCode int, f *model.Failure) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(f)
}

// ValidationFailure — 422 с причиной отказа и id "unknown".
func ValidationFailure(w http.ResponseWriter, reason string) {
	WriteFailure(w, http.StatusUnprocessableEntity, model.NewFailure(UnknownID, reason))
}

// Unauthorized — 401 с заголовком WWW-Authenticate: Basic.
// Тело — поле detail, как его отдаёт AAI-слой.
func Unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Basic")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

// WriteJSON записывает произвольный JSON-ответ с указанным статусом.
func WriteJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
