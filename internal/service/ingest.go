// ingest.go — конвейер регистрации Item и пакетная обработка.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/arturkryukov/stacreg/internal/catalogue"
	"github.com/arturkryukov/stacreg/internal/domain/model"
	"github.com/arturkryukov/stacreg/internal/storage/backup"
	"github.com/arturkryukov/stacreg/internal/storage/relocate"
)

// ReasonConflict — причина отказа для уже зарегистрированного Item.
// Отличается от прочих отказов кодом ответа (409 вместо 422).
const ReasonConflict = "Item already exists"

var (
	itemsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rg_items_ingested_total",
		Help: "Количество обработанных STAC Item по результату.",
	}, []string{"result"})

	assetsRelocated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rg_assets_relocated_total",
		Help: "Количество перемещённых в datastore ассетов.",
	})
)

// ItemResult — результат конвейера для одного Item.
// Failure == nil означает успешную регистрацию; Item тогда содержит
// мутированный документ (заполненные по умолчанию поля, переписанные href).
type ItemResult struct {
	Item    *model.Item
	Failure *model.Failure
}

// Conflict сообщает, является ли отказ конфликтом регистрации.
func (r ItemResult) Conflict() bool {
	return r.Failure != nil && r.Failure.Reason == ReasonConflict
}

// Ingestor — конвейер регистрации Item: валидация, разрешение ассетов,
// регистрация в каталоге, резервная копия STAC, перемещение ассетов.
// Шаги после регистрации в каталоге не откатываются при последующей
// неудаче: каталог не предоставляет протокола подготовки/фиксации.
type Ingestor struct {
	validator *Validator
	resolver  *Resolver
	catalogue *catalogue.Client
	logger    *slog.Logger
}

// NewIngestor создаёт конвейер регистрации.
func NewIngestor(validator *Validator, resolver *Resolver, cat *catalogue.Client, logger *slog.Logger) *Ingestor {
	return &Ingestor{
		validator: validator,
		resolver:  resolver,
		catalogue: cat,
		logger:    logger,
	}
}

// Ingest проводит один Item через конвейер регистрации.
func (ing *Ingestor) Ingest(ctx context.Context, item *model.Item, grant *model.Grant, collectionID string) ItemResult {
	if fail := ing.validator.Validate(item, collectionID); fail != nil {
		itemsIngested.WithLabelValues("rejected").Inc()
		return ItemResult{Item: item, Failure: fail}
	}

	ops, fail := ing.resolver.Resolve(item, grant)
	if fail != nil {
		itemsIngested.WithLabelValues("rejected").Inc()
		return ItemResult{Item: item, Failure: fail}
	}

	// Документ сериализуется один раз: одни и те же байты уходят
	// в каталог и в резервную копию.
	body, err := json.Marshal(item)
	if err != nil {
		itemsIngested.WithLabelValues("error").Inc()
		return ItemResult{Item: item, Failure: model.NewFailure(item.ID,
			fmt.Sprintf("Failed to serialize STAC item: %v", err))}
	}

	if err := ing.catalogue.Register(ctx, grant.CatalogueURL, body); err != nil {
		if errors.Is(err, catalogue.ErrConflict) {
			itemsIngested.WithLabelValues("conflict").Inc()
			return ItemResult{Item: item, Failure: model.NewFailure(item.ID, ReasonConflict)}
		}
		itemsIngested.WithLabelValues("error").Inc()
		return ItemResult{Item: item, Failure: model.NewFailure(item.ID,
			fmt.Sprintf("Catalogue refused STAC: %v", err))}
	}

	itemTime, err := ItemTime(item)
	if err != nil {
		itemsIngested.WithLabelValues("error").Inc()
		return ItemResult{Item: item, Failure: model.NewFailure(item.ID, err.Error())}
	}
	datePath := DatePath(itemTime)

	if err := backup.Write(grant.StacsPath, datePath, item.ID, body); err != nil {
		ing.logger.Error("не удалось сохранить резервную копию STAC",
			"item", item.ID, "error", err)
		itemsIngested.WithLabelValues("error").Inc()
		return ItemResult{Item: item, Failure: model.NewFailure(item.ID,
			fmt.Sprintf("Failed to store STAC in datastore: %v", err))}
	}

	if err := relocate.Move(ops); err != nil {
		failedName := "unknown"
		var partial *relocate.PartialError
		if errors.As(err, &partial) {
			failedName = filepath.Base(partial.Failed.Destination)
			assetsRelocated.Add(float64(partial.Completed))
		}
		ing.logger.Error("не удалось переместить ассеты в datastore",
			"item", item.ID, "error", err)
		itemsIngested.WithLabelValues("error").Inc()
		return ItemResult{Item: item, Failure: model.NewFailure(item.ID,
			fmt.Sprintf("Failed to store asset %s in datastore: %v", failedName, err))}
	}
	assetsRelocated.Add(float64(len(ops)))

	ing.logger.Info("STAC Item зарегистрирован",
		"item", item.ID, "collection", collectionID, "assets", len(ops))
	itemsIngested.WithLabelValues("ingested").Inc()
	return ItemResult{Item: item}
}

// IngestCollection обрабатывает Items пакета параллельно, по горутине
// на Item. Результаты сохраняют порядок входа, отказ одного Item
// не влияет на остальные.
func (ing *Ingestor) IngestCollection(ctx context.Context, items []*model.Item, grant *model.Grant, collectionID string) []ItemResult {
	results := make([]ItemResult, len(items))
	var wg sync.WaitGroup
	for idx, item := range items {
		wg.Add(1)
		go func(idx int, item *model.Item) {
			defer wg.Done()
			results[idx] = ing.Ingest(ctx, item, grant, collectionID)
		}(idx, item)
	}
	wg.Wait()
	return results
}

// AggregateStatus сводит результаты пакета в один код ответа:
// любой неконфликтный отказ даёт 422, иначе любой конфликт даёт 409,
// иначе 201.
func AggregateStatus(results []ItemResult) int {
	status := http.StatusCreated
	for _, r := range results {
		if r.Failure == nil {
			continue
		}
		if !r.Conflict() {
			return http.StatusUnprocessableEntity
		}
		status = http.StatusConflict
	}
	return status
}
