// Пакет model — доменные модели Registration Gateway.
// item.go — STAC Item и Asset с сохранением неизвестных полей.
//
// Gateway не является валидатором схемы STAC: документ проходит через
// pipeline «как есть», мутируются только поля, которыми pipeline владеет
// (collection, links, geometry, даты, href ассетов). Все остальные члены
// JSON-объекта сохраняются побайтово в Extra и возвращаются при сериализации.
package model

import (
	"encoding/json"
	"fmt"
)

// Item — одна метаданная запись STAC (один физический продукт данных).
type Item struct {
	// ID — идентификатор Item ([A-Za-z0-9._-], максимум 100 символов).
	ID string
	// Collection — имя коллекции. HasCollection различает отсутствие
	// поля и присутствие (присутствующее, но отличное от целевой
	// коллекции значение — причина отказа).
	Collection    string
	HasCollection bool
	// Geometry — геометрия как есть. nil — поле отсутствовало,
	// после валидации всегда присутствует (возможно как JSON null).
	Geometry json.RawMessage
	// Properties — свойства Item (datetime, start_datetime, ...).
	// nil — поле отсутствовало или было null.
	Properties map[string]any
	// Links — ссылки как есть. nil — поле отсутствовало.
	Links []json.RawMessage
	// Assets — ассеты по ключу. nil — поле отсутствовало.
	Assets map[string]*Asset
	// StacExtensions — список URI расширений STAC. nil — поле отсутствовало.
	StacExtensions []string
	// Extra — все прочие члены верхнего уровня (type, stac_version, bbox, ...).
	Extra map[string]json.RawMessage
}

// Asset — именованная ссылка на бинарный файл или директорию Item.
type Asset struct {
	// Href — URL или путь относительно staging-корня.
	// HasHref различает отсутствие поля (такой ассет не перемещается).
	Href    string
	HasHref bool
	// Roles — ролевые теги ассета (extended-профиль). nil — поле отсутствовало.
	Roles []string
	// FileSize — заявленный размер файла в байтах (file:size), nil — не заявлен.
	FileSize *int64
	// Extra — все прочие члены ассета (type, title, checksums, ...).
	Extra map[string]json.RawMessage
}

// UnmarshalJSON разбирает Item, вынимая известные поля и сохраняя
// остальные члены верхнего уровня в Extra без интерпретации.
func (i *Item) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*i = Item{Extra: make(map[string]json.RawMessage)}
	for key, val := range raw {
		switch key {
		case "id":
			if err := json.Unmarshal(val, &i.ID); err != nil {
				return fmt.Errorf("поле id: %w", err)
			}
		case "collection":
			if err := json.Unmarshal(val, &i.Collection); err != nil {
				return fmt.Errorf("поле collection: %w", err)
			}
			i.HasCollection = true
		case "geometry":
			i.Geometry = val
		case "properties":
			if err := json.Unmarshal(val, &i.Properties); err != nil {
				return fmt.Errorf("поле properties: %w", err)
			}
		case "links":
			if err := json.Unmarshal(val, &i.Links); err != nil {
				return fmt.Errorf("поле links: %w", err)
			}
		case "assets":
			if err := json.Unmarshal(val, &i.Assets); err != nil {
				return fmt.Errorf("поле assets: %w", err)
			}
		case "stac_extensions":
			if err := json.Unmarshal(val, &i.StacExtensions); err != nil {
				return fmt.Errorf("поле stac_extensions: %w", err)
			}
		default:
			i.Extra[key] = val
		}
	}
	return nil
}

// MarshalJSON сериализует Item обратно: известные поля плюс Extra.
// Отсутствовавшие и не заполненные валидатором поля не добавляются.
func (i Item) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(i.Extra)+7)
	for k, v := range i.Extra {
		out[k] = v
	}

	idJSON, err := json.Marshal(i.ID)
	if err != nil {
		return nil, err
	}
	out["id"] = idJSON

	if i.HasCollection {
		v, err := json.Marshal(i.Collection)
		if err != nil {
			return nil, err
		}
		out["collection"] = v
	}
	if i.Geometry != nil {
		out["geometry"] = i.Geometry
	}
	if i.Properties != nil {
		v, err := json.Marshal(i.Properties)
		if err != nil {
			return nil, err
		}
		out["properties"] = v
	}
	if i.Links != nil {
		v, err := json.Marshal(i.Links)
		if err != nil {
			return nil, err
		}
		out["links"] = v
	}
	if i.Assets != nil {
		v, err := json.Marshal(i.Assets)
		if err != nil {
			return nil, err
		}
		out["assets"] = v
	}
	if i.StacExtensions != nil {
		v, err := json.Marshal(i.StacExtensions)
		if err != nil {
			return nil, err
		}
		out["stac_extensions"] = v
	}

	return json.Marshal(out)
}

// UnmarshalJSON разбирает Asset, сохраняя неизвестные члены в Extra.
func (a *Asset) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*a = Asset{Extra: make(map[string]json.RawMessage)}
	for key, val := range raw {
		switch key {
		case "href":
			if err := json.Unmarshal(val, &a.Href); err != nil {
				return fmt.Errorf("поле href: %w", err)
			}
			a.HasHref = true
		case "roles":
			if err := json.Unmarshal(val, &a.Roles); err != nil {
				return fmt.Errorf("поле roles: %w", err)
			}
		case "file:size":
			if err := json.Unmarshal(val, &a.FileSize); err != nil {
				return fmt.Errorf("поле file:size: %w", err)
			}
		default:
			a.Extra[key] = val
		}
	}
	return nil
}

// MarshalJSON сериализует Asset: известные поля плюс Extra.
func (a Asset) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(a.Extra)+3)
	for k, v := range a.Extra {
		out[k] = v
	}

	if a.HasHref {
		v, err := json.Marshal(a.Href)
		if err != nil {
			return nil, err
		}
		out["href"] = v
	}
	if a.Roles != nil {
		v, err := json.Marshal(a.Roles)
		if err != nil {
			return nil, err
		}
		out["roles"] = v
	}
	if a.FileSize != nil {
		v, err := json.Marshal(a.FileSize)
		if err != nil {
			return nil, err
		}
		out["file:size"] = v
	}

	return json.Marshal(out)
}
