// delete.go — обработчик DELETE /collections/{collectionId}/items/{recordId}.
// Необратимая операция: запись каталога, резервная копия и ассеты
// удаляются вместе. Требует права на удаление в grant.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/arturkryukov/stacreg/internal/api/errors"
	"github.com/arturkryukov/stacreg/internal/domain/model"
)

// DeleteItem — удаление Item из каталога и datastore.
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	collectionID := chi.URLParam(r, "collectionId")
	recordID := chi.URLParam(r, "recordId")

	grant, ok := h.authorizedGrant(w, r, collectionID)
	if !ok {
		return
	}

	res := h.deleter.Delete(r.Context(), grant, recordID)
	switch {
	case res.NotFound:
		apierrors.WriteFailure(w, http.StatusNotFound,
			model.NewFailure(recordID, "Item not found in the catalogue"))
	case res.Failure != nil:
		apierrors.WriteFailure(w, http.StatusUnprocessableEntity, res.Failure)
	default:
		apierrors.WriteJSON(w, http.StatusCreated,
			map[string]string{"id": recordID, "message": "deleted"})
	}
}
