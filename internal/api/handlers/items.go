// items.go — обработчик POST /collections/{collectionId}/items.
// Принимает GeoJSON Feature (один Item) или FeatureCollection (пакет).
package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/arturkryukov/stacreg/internal/api/errors"
	"github.com/arturkryukov/stacreg/internal/domain/model"
	"github.com/arturkryukov/stacreg/internal/service"
)

const reasonBadBodyType = "You need to post an item of the type Feature or FeatureCollection"

// geoEnvelope — верхний уровень тела запроса: только тип и features,
// полный документ разбирается в model.Item.
type geoEnvelope struct {
	Type     string            `json:"type"`
	Features []json.RawMessage `json:"features"`
}

// featureCollectionResponse — ответ пакетной регистрации: слот каждого
// Item содержит либо обновлённый документ, либо отказ.
type featureCollectionResponse struct {
	Type     string `json:"type"`
	Features []any  `json:"features"`
}

// PostItems — регистрация одного Item или пакета в коллекции.
func (h *Handler) PostItems(w http.ResponseWriter, r *http.Request) {
	collectionID := chi.URLParam(r, "collectionId")

	grant, ok := h.authorizedGrant(w, r, collectionID)
	if !ok {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		apierrors.ValidationFailure(w, err.Error())
		return
	}

	var envelope geoEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		apierrors.ValidationFailure(w, err.Error())
		return
	}

	switch {
	case envelope.Type == "Feature":
		item := &model.Item{}
		if err := json.Unmarshal(body, item); err != nil {
			apierrors.ValidationFailure(w, err.Error())
			return
		}
		h.ingestFeature(w, r, item, grant, collectionID)

	case envelope.Type == "FeatureCollection" && len(envelope.Features) > 0:
		items := make([]*model.Item, len(envelope.Features))
		for idx, raw := range envelope.Features {
			items[idx] = &model.Item{}
			if err := json.Unmarshal(raw, items[idx]); err != nil {
				apierrors.ValidationFailure(w, err.Error())
				return
			}
		}
		h.ingestFeatureCollection(w, r, items, grant, collectionID)

	default:
		apierrors.ValidationFailure(w, reasonBadBodyType)
	}
}

// ingestFeature обрабатывает один Item: 201 с обновлённым документом,
// 409 при конфликте, 422 при прочих отказах.
func (h *Handler) ingestFeature(w http.ResponseWriter, r *http.Request, item *model.Item, grant *model.Grant, collectionID string) {
	res := h.ingestor.Ingest(r.Context(), item, grant, collectionID)
	if res.Failure != nil {
		status := http.StatusUnprocessableEntity
		if res.Conflict() {
			status = http.StatusConflict
		}
		apierrors.WriteFailure(w, status, res.Failure)
		return
	}
	apierrors.WriteJSON(w, http.StatusCreated, res.Item)
}

// ingestFeatureCollection обрабатывает пакет: ответ — FeatureCollection
// с результатом каждого Item в исходном порядке, статус сводный.
func (h *Handler) ingestFeatureCollection(w http.ResponseWriter, r *http.Request, items []*model.Item, grant *model.Grant, collectionID string) {
	results := h.ingestor.IngestCollection(r.Context(), items, grant, collectionID)

	features := make([]any, len(results))
	for idx, res := range results {
		if res.Failure != nil {
			features[idx] = res.Failure
		} else {
			features[idx] = res.Item
		}
	}

	status := service.AggregateStatus(results)
	if status != http.StatusCreated {
		h.logger.Info("пакет зарегистрирован частично",
			slog.String("collection", collectionID),
			slog.Int("items", len(results)),
			slog.Int("status", status),
		)
	}
	apierrors.WriteJSON(w, status, featureCollectionResponse{
		Type:     "FeatureCollection",
		Features: features,
	})
}
