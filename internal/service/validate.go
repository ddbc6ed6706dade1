package service

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/arturkryukov/stacreg/internal/domain/model"
)

// canonicalTimeLayout — каноническая форма дат после нормализации
// (UTC, без долей секунды).
const canonicalTimeLayout = "2006-01-02T15:04:05Z07:00"

// isoLayouts — принимаемые входные формы ISO-8601, от самой полной
// к самой короткой. Первая подошедшая выигрывает.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// validID сообщает, удовлетворяет ли строка правилу идентификатора:
// только [a-zA-Z0-9._-], длина не более 100.
func validID(s string) bool {
	return len(s) <= 100 && idPattern.MatchString(s)
}

// parseISOTime разбирает строку даты в одной из принимаемых форм ISO-8601.
// Время без зоны трактуется как UTC.
func parseISOTime(s string) (time.Time, bool) {
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Validator — проверка и нормализация STAC Item перед регистрацией.
// Проверки выполняются по порядку, первая неудача останавливает проход.
// Валидатор мутирует Item: заполняет отсутствующие collection, links,
// geometry и, в расширенном профиле, переписывает даты в каноническую форму.
type Validator struct {
	extended          bool
	requiredExtension string
}

// NewValidator создаёт валидатор для выбранного профиля.
func NewValidator(extended bool, requiredExtension string) *Validator {
	return &Validator{extended: extended, requiredExtension: requiredExtension}
}

// Validate проверяет Item против целевой коллекции.
// nil означает принятие, иначе возвращается причина отказа.
func (v *Validator) Validate(item *model.Item, collectionID string) *model.Failure {
	if item.ID == "" {
		return model.NewFailure(model.UnknownID, "ID is required in the STAC item to be ingested")
	}
	if !validID(item.ID) {
		return model.NewFailure(item.ID, "ID field is invalid. Only [a-zA-Z0-9._-] are allowed")
	}

	if v.extended && !containsString(item.StacExtensions, v.requiredExtension) {
		return model.NewFailure(item.ID,
			fmt.Sprintf("stac_extensions must include %s", v.requiredExtension))
	}

	if !item.HasCollection {
		item.Collection = collectionID
		item.HasCollection = true
	} else if item.Collection != collectionID {
		return model.NewFailure(item.ID,
			"Collection ID contained in the STAC JSON is different from the one in the POST")
	}

	if item.Links == nil {
		item.Links = []json.RawMessage{}
	}
	if item.Geometry == nil {
		item.Geometry = json.RawMessage("null")
	}

	if item.Properties == nil {
		return model.NewFailure(item.ID, "Missing required property field from the STAC JSON")
	}

	if fail := v.validateDates(item); fail != nil {
		return fail
	}

	if len(item.Assets) == 0 {
		return model.NewFailure(item.ID, "No assets found in the STAC item to be ingested")
	}

	return nil
}

// validateDates разбирает обязательные поля дат и, в расширенном профиле,
// переписывает их в каноническую форму UTC.
func (v *Validator) validateDates(item *model.Item) *model.Failure {
	if !v.extended {
		raw, ok, fail := dateProperty(item, "datetime")
		if fail != nil {
			return fail
		}
		if !ok {
			raw, ok, fail = dateProperty(item, "start_datetime")
			if fail != nil {
				return fail
			}
			if !ok {
				return model.NewFailure(item.ID, "datetime or start_datetime properties are mandatory")
			}
		}
		if _, parsed := parseISOTime(raw); !parsed {
			return model.NewFailure(item.ID,
				fmt.Sprintf("Failed to parse product date time. %s is an invalid ISO time", raw))
		}
		return nil
	}

	startRaw, okStart := propertyString(item.Properties, "start_datetime")
	endRaw, okEnd := propertyString(item.Properties, "end_datetime")
	if !okStart || !okEnd {
		return model.NewFailure(item.ID, "start_datetime and end_datetime properties are mandatory")
	}

	start, parsed := parseISOTime(startRaw)
	if !parsed {
		return model.NewFailure(item.ID,
			fmt.Sprintf("Failed to parse product date time. %s is an invalid ISO time", startRaw))
	}
	end, parsed := parseISOTime(endRaw)
	if !parsed {
		return model.NewFailure(item.ID,
			fmt.Sprintf("Failed to parse product date time. %s is an invalid ISO time", endRaw))
	}

	// datetime по умолчанию берётся из start_datetime
	dt := start
	if dtRaw, ok := propertyString(item.Properties, "datetime"); ok {
		if dt, parsed = parseISOTime(dtRaw); !parsed {
			return model.NewFailure(item.ID,
				fmt.Sprintf("Failed to parse product date time. %s is an invalid ISO time", dtRaw))
		}
	}

	item.Properties["datetime"] = dt.UTC().Format(canonicalTimeLayout)
	item.Properties["start_datetime"] = start.UTC().Format(canonicalTimeLayout)
	item.Properties["end_datetime"] = end.UTC().Format(canonicalTimeLayout)
	return nil
}

// ItemTime возвращает дату Item, определяющую раскладку путей в datastore:
// datetime, при его отсутствии start_datetime. Валидатор гарантирует
// разборчивость, поэтому неудача здесь — внутренняя ошибка.
func ItemTime(item *model.Item) (time.Time, error) {
	raw, ok := propertyString(item.Properties, "datetime")
	if !ok {
		raw, ok = propertyString(item.Properties, "start_datetime")
		if !ok {
			return time.Time{}, fmt.Errorf("item %s: нет полей datetime и start_datetime", item.ID)
		}
	}
	t, parsed := parseISOTime(raw)
	if !parsed {
		return time.Time{}, fmt.Errorf("item %s: неразборчивая дата %q", item.ID, raw)
	}
	return t, nil
}

// dateProperty возвращает строковое значение поля даты. Присутствующее,
// но нестроковое значение — сразу отказ разбора с этим значением в причине.
func dateProperty(item *model.Item, key string) (string, bool, *model.Failure) {
	val, ok := item.Properties[key]
	if !ok || val == nil {
		return "", false, nil
	}
	s, isStr := val.(string)
	if !isStr {
		return "", false, model.NewFailure(item.ID,
			fmt.Sprintf("Failed to parse product date time. %v is an invalid ISO time", val))
	}
	return s, true, nil
}

// propertyString возвращает строковое значение свойства.
// Отсутствующее, null или нестроковое значение даёт ("", false).
func propertyString(props map[string]any, key string) (string, bool) {
	val, ok := props[key]
	if !ok || val == nil {
		return "", false
	}
	s, isStr := val.(string)
	if !isStr {
		return "", false
	}
	return s, true
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
