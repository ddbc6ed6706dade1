package service

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/arturkryukov/stacreg/internal/domain/model"
	"github.com/arturkryukov/stacreg/internal/storage/staging"
)

// DatePath возвращает датированный префикс раскладки datastore: YYYY/MM/DD.
func DatePath(t time.Time) string {
	return fmt.Sprintf("%04d/%02d/%02d", t.Year(), int(t.Month()), t.Day())
}

// Resolver — разрешение локальных ассетов Item в операции перемещения.
// Для каждого локального ассета проверяется нахождение в staging-области,
// вычисляется назначение в datastore и переписывается href. Повторные
// ссылки на один и тот же файл планируются один раз, совпадение назначений
// у разных файлов — отказ.
type Resolver struct {
	extended bool
}

// NewResolver создаёт resolver для выбранного профиля.
func NewResolver(extended bool) *Resolver {
	return &Resolver{extended: extended}
}

// claim — один локальный ассет после проверки staging-области.
type claim struct {
	key   string
	asset *model.Asset
	entry *staging.Entry
}

// Resolve проверяет ассеты Item и строит список операций перемещения.
// Мутирует Item: href локальных ассетов переписываются на datastore-URL.
func (r *Resolver) Resolve(item *model.Item, grant *model.Grant) ([]model.MoveOperation, *model.Failure) {
	itemTime, err := ItemTime(item)
	if err != nil {
		return nil, model.NewFailure(item.ID, err.Error())
	}
	basePath := DatePath(itemTime) + "/" + item.ID

	claims, fail := r.collectClaims(item, grant)
	if fail != nil {
		return nil, fail
	}

	// Записи обрабатываются в порядке staging-путей: директория
	// встречается раньше своего содержимого и поглощает вложенные ссылки.
	sort.SliceStable(claims, func(i, j int) bool { return claims[i].entry.Path < claims[j].entry.Path })

	var ops []model.MoveOperation
	var dirs []claim
	subBySource := make(map[string]string)
	sourceBySub := make(map[string]string)

	for _, c := range claims {
		if parent, ok := absorbingDir(dirs, c.entry.Path); ok {
			rel := strings.TrimPrefix(c.entry.Path, parent.entry.Path+string(filepath.Separator))
			c.asset.Href = grant.DatastoreURL + subBySource[parent.entry.Path] + "/" + filepath.ToSlash(rel)
			continue
		}

		if sub, seen := subBySource[c.entry.Path]; seen {
			// Тот же физический файл уже запланирован
			c.asset.Href = grant.DatastoreURL + sub
			continue
		}

		base := filepath.Base(c.entry.Path)
		sub := basePath + "/" + base
		if prev, taken := sourceBySub[sub]; taken && prev != c.entry.Path {
			return nil, model.NewFailure(item.ID,
				fmt.Sprintf("Asset %s file name is not unique. Another asset in the product has the same file name", c.key))
		}
		subBySource[c.entry.Path] = sub
		sourceBySub[sub] = c.entry.Path

		ops = append(ops, model.MoveOperation{
			Source:      c.entry.Path,
			Destination: filepath.Join(grant.AssetsPath, filepath.FromSlash(sub)),
			IsDir:       c.entry.Kind == staging.KindDir,
		})
		if c.entry.Kind == staging.KindDir {
			dirs = append(dirs, c)
		}
		c.asset.Href = grant.DatastoreURL + sub
	}

	if r.extended && !hasDataRole(item.Assets) {
		return nil, model.NewFailure(item.ID,
			"At least one asset must have the role data or documentation")
	}

	return ops, nil
}

// collectClaims проверяет каждый локальный ассет в порядке ключей:
// нахождение внутри staging-области, вид записи, имя файла, file:size.
func (r *Resolver) collectClaims(item *model.Item, grant *model.Grant) ([]claim, *model.Failure) {
	keys := make([]string, 0, len(item.Assets))
	for key := range item.Assets {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var claims []claim
	for _, key := range keys {
		asset := item.Assets[key]
		// URL и ассеты без href не перемещаются
		if !asset.HasHref || strings.Contains(asset.Href, "://") {
			continue
		}

		entry, err := staging.Resolve(grant.StageinPath, asset.Href)
		switch {
		case err == nil:
		case errors.Is(err, staging.ErrEscapes):
			return nil, model.NewFailure(item.ID,
				fmt.Sprintf("%s asset %s escapes the staging area location", key, asset.Href))
		case errors.Is(err, staging.ErrNotFound):
			return nil, model.NewFailure(item.ID,
				fmt.Sprintf("%s asset %s not found in the staging area location", key, asset.Href))
		case errors.Is(err, staging.ErrSymlink):
			return nil, model.NewFailure(item.ID,
				fmt.Sprintf("%s asset %s is a link. Sharing of links is not supported", key, asset.Href))
		default:
			return nil, model.NewFailure(item.ID,
				fmt.Sprintf("%s asset %s cannot be read in the staging area location", key, asset.Href))
		}

		switch entry.Kind {
		case staging.KindFile:
			if r.extended && asset.FileSize != nil && *asset.FileSize != entry.Size {
				return nil, model.NewFailure(item.ID,
					fmt.Sprintf("Asset %s file:size %d does not match the staged file size %d",
						key, *asset.FileSize, entry.Size))
			}
		case staging.KindDir:
			if !r.extended {
				return nil, model.NewFailure(item.ID,
					fmt.Sprintf("%s asset %s is not a file. Sharing of directories is not supported", key, asset.Href))
			}
		default:
			return nil, model.NewFailure(item.ID,
				fmt.Sprintf("%s asset %s is not a file. Sharing of directories is not supported", key, asset.Href))
		}

		if base := filepath.Base(entry.Path); !validID(base) {
			return nil, model.NewFailure(item.ID,
				fmt.Sprintf("Asset %s file name is invalid. Only [a-zA-Z0-9._-] are allowed", key))
		}

		claims = append(claims, claim{key: key, asset: asset, entry: entry})
	}
	return claims, nil
}

// absorbingDir ищет уже запланированную директорию, содержащую путь.
func absorbingDir(dirs []claim, path string) (claim, bool) {
	for _, d := range dirs {
		if strings.HasPrefix(path, d.entry.Path+string(filepath.Separator)) {
			return d, true
		}
	}
	return claim{}, false
}

// hasDataRole сообщает, есть ли среди ассетов роль data или documentation.
func hasDataRole(assets map[string]*model.Asset) bool {
	for _, asset := range assets {
		for _, role := range asset.Roles {
			if role == "data" || role == "documentation" {
				return true
			}
		}
	}
	return false
}
