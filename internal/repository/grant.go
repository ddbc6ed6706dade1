// grant.go — запросы к таблице user_collection_write_map:
// права пользователя на коллекцию и связанные пути хранилищ.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/arturkryukov/stacreg/internal/domain/model"
)

// grantColumns — список столбцов user_collection_write_map для SELECT-запросов.
const grantColumns = `stagein_path, assets_path, stacs_path, datastore_url, cat_post_url, extra_auths`

// GrantRepository — read-only доступ к правам (пользователь, коллекция).
type GrantRepository struct {
	db DBTX
}

// NewGrantRepository создаёт репозиторий прав.
func NewGrantRepository(db DBTX) *GrantRepository {
	return &GrantRepository{db: db}
}

// GetGrant возвращает кортеж прав для пары (userID, collection)
// или ErrNotFound, если пользователь не авторизован в коллекцию.
func (r *GrantRepository) GetGrant(ctx context.Context, userID int64, collection string) (*model.Grant, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM user_collection_write_map WHERE user_id = $1 AND collection_name = $2`,
		grantColumns,
	)

	g := &model.Grant{}
	err := r.db.QueryRow(ctx, query, userID, collection).Scan(
		&g.StageinPath, &g.AssetsPath, &g.StacsPath,
		&g.DatastoreURL, &g.CatalogueURL, &g.ExtraAuths,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения прав на коллекцию: %w", err)
	}
	return g, nil
}
