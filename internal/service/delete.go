// delete.go — оркестратор удаления Item из каталога и datastore.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/arturkryukov/stacreg/internal/catalogue"
	"github.com/arturkryukov/stacreg/internal/domain/model"
	"github.com/arturkryukov/stacreg/internal/storage/backup"
	"github.com/arturkryukov/stacreg/internal/storage/relocate"
)

var itemsDeleted = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "rg_items_deleted_total",
	Help: "Количество операций удаления STAC Item по результату.",
}, []string{"result"})

// DeleteResult — результат удаления. NotFound означает отсутствие
// записи в каталоге и отличается от прочих отказов кодом ответа.
type DeleteResult struct {
	NotFound bool
	Failure  *model.Failure
}

// Deleter — удаление Item: запись каталога, резервная копия STAC
// и дерево ассетов. Пути в datastore пересчитываются из дат документа,
// полученного из каталога, той же раскладкой, что при регистрации.
type Deleter struct {
	catalogue *catalogue.Client
	logger    *slog.Logger
}

// NewDeleter создаёт оркестратор удаления.
func NewDeleter(cat *catalogue.Client, logger *slog.Logger) *Deleter {
	return &Deleter{catalogue: cat, logger: logger}
}

// Delete удаляет Item из каталога и datastore. Отсутствие локальных
// артефактов после успешного удаления из каталога не прерывает операцию,
// но накапливается в причине отказа.
func (d *Deleter) Delete(ctx context.Context, grant *model.Grant, recordID string) DeleteResult {
	if !grant.CanDelete() {
		itemsDeleted.WithLabelValues("unauthorized").Inc()
		return DeleteResult{Failure: model.NewFailure(recordID,
			"User is not authorized to delete items in this collection")}
	}

	body, err := d.catalogue.Fetch(ctx, grant.CatalogueURL, recordID)
	if err != nil {
		if errors.Is(err, catalogue.ErrNotFound) {
			itemsDeleted.WithLabelValues("not_found").Inc()
			return DeleteResult{NotFound: true}
		}
		itemsDeleted.WithLabelValues("error").Inc()
		return DeleteResult{Failure: model.NewFailure(recordID,
			fmt.Sprintf("Catalogue refused GET: %v", err))}
	}

	var item model.Item
	if err := json.Unmarshal(body, &item); err != nil {
		itemsDeleted.WithLabelValues("error").Inc()
		return DeleteResult{Failure: model.NewFailure(recordID,
			fmt.Sprintf("Catalogue refused GET: %v", err))}
	}
	if item.ID == "" {
		item.ID = recordID
	}

	if item.Properties == nil {
		itemsDeleted.WithLabelValues("error").Inc()
		return DeleteResult{Failure: model.NewFailure(item.ID,
			"Missing required property field from the STAC JSON")}
	}
	if fail := (&Validator{}).validateDates(&item); fail != nil {
		itemsDeleted.WithLabelValues("error").Inc()
		return DeleteResult{Failure: fail}
	}
	itemTime, err := ItemTime(&item)
	if err != nil {
		itemsDeleted.WithLabelValues("error").Inc()
		return DeleteResult{Failure: model.NewFailure(item.ID, err.Error())}
	}
	datePath := DatePath(itemTime)

	if err := d.catalogue.Remove(ctx, grant.CatalogueURL, recordID); err != nil {
		itemsDeleted.WithLabelValues("error").Inc()
		return DeleteResult{Failure: model.NewFailure(item.ID,
			fmt.Sprintf("Catalogue refused DELETE: %v", err))}
	}

	// Запись каталога уже удалена: отсутствие локальных артефактов
	// не останавливает операцию, но попадает в итоговый отказ.
	notes := ""
	removed, err := backup.Remove(grant.StacsPath, datePath, item.ID)
	if err != nil {
		d.logger.Error("не удалось удалить резервную копию STAC",
			"item", item.ID, "error", err)
		notes += fmt.Sprintf("Cannot delete STAC Item backup. %v.", err)
	} else if !removed {
		notes += "Cannot delete STAC Item backup. It does not exist."
	}

	assetsTree := filepath.Join(grant.AssetsPath, filepath.FromSlash(datePath), item.ID)
	removed, err = relocate.RemoveTree(assetsTree)
	if err != nil {
		d.logger.Error("не удалось удалить дерево ассетов",
			"item", item.ID, "path", assetsTree, "error", err)
		notes += fmt.Sprintf("Cannot delete STAC Item Assets. %v.", err)
	} else if !removed {
		notes += "Cannot delete STAC Item Assets. They do not exist."
	}

	if notes != "" {
		itemsDeleted.WithLabelValues("partial").Inc()
		return DeleteResult{Failure: model.NewFailure(item.ID, notes)}
	}

	d.logger.Info("STAC Item удалён", "item", item.ID)
	itemsDeleted.WithLabelValues("deleted").Inc()
	return DeleteResult{}
}
