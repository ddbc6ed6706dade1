package model

import (
	"encoding/json"
	"testing"
)

// TestItem_UnknownMembersPreserved проверяет сохранение неизвестных
// членов верхнего уровня и ассетов при сериализации обратно.
func TestItem_UnknownMembersPreserved(t *testing.T) {
	raw := `{
		"type": "Feature",
		"stac_version": "1.0.0",
		"id": "ITEM1",
		"bbox": [1.0, 2.0, 3.0, 4.0],
		"properties": {"datetime": "2015-05-19T12:00:00Z", "custom:field": 7},
		"assets": {
			"product": {
				"href": "a/b.tgz",
				"title": "Product",
				"type": "application/octet-stream",
				"checksum:multihash": "deadbeef"
			}
		}
	}`

	var item Item
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		t.Fatal(err)
	}

	out, err := json.Marshal(item)
	if err != nil {
		t.Fatal(err)
	}

	var got map[string]json.RawMessage
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatal(err)
	}

	if string(got["type"]) != `"Feature"` {
		t.Errorf("type не сохранён: %s", got["type"])
	}
	if string(got["stac_version"]) != `"1.0.0"` {
		t.Errorf("stac_version не сохранён: %s", got["stac_version"])
	}
	if len(got["bbox"]) == 0 {
		t.Error("bbox не сохранён")
	}

	var asset map[string]json.RawMessage
	var assets map[string]json.RawMessage
	if err := json.Unmarshal(got["assets"], &assets); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(assets["product"], &asset); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"href", "title", "type", "checksum:multihash"} {
		if len(asset[key]) == 0 {
			t.Errorf("член ассета %s не сохранён", key)
		}
	}
}

// TestItem_AbsentVsNull проверяет различение отсутствующих полей
// и явного null.
func TestItem_AbsentVsNull(t *testing.T) {
	var absent Item
	if err := json.Unmarshal([]byte(`{"id": "A"}`), &absent); err != nil {
		t.Fatal(err)
	}
	if absent.Geometry != nil {
		t.Error("отсутствующая geometry должна быть nil")
	}
	if absent.HasCollection {
		t.Error("отсутствующий collection не должен считаться присутствующим")
	}

	out, err := json.Marshal(absent)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]json.RawMessage
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"geometry", "collection", "links", "assets"} {
		if _, present := got[key]; present {
			t.Errorf("отсутствовавшее поле %s не должно появляться", key)
		}
	}

	var withNull Item
	if err := json.Unmarshal([]byte(`{"id": "A", "geometry": null}`), &withNull); err != nil {
		t.Fatal(err)
	}
	if string(withNull.Geometry) != "null" {
		t.Errorf("явный null geometry должен сохраниться: %q", withNull.Geometry)
	}
}

// TestAsset_KnownFields проверяет разбор известных полей ассета.
func TestAsset_KnownFields(t *testing.T) {
	var asset Asset
	raw := `{"href": "a/b.tgz", "roles": ["data"], "file:size": 100}`
	if err := json.Unmarshal([]byte(raw), &asset); err != nil {
		t.Fatal(err)
	}

	if asset.Href != "a/b.tgz" || !asset.HasHref {
		t.Errorf("href: %+v", asset)
	}
	if len(asset.Roles) != 1 || asset.Roles[0] != "data" {
		t.Errorf("roles: %v", asset.Roles)
	}
	if asset.FileSize == nil || *asset.FileSize != 100 {
		t.Errorf("file:size: %v", asset.FileSize)
	}

	var noHref Asset
	if err := json.Unmarshal([]byte(`{"title": "x"}`), &noHref); err != nil {
		t.Fatal(err)
	}
	if noHref.HasHref {
		t.Error("отсутствующий href не должен считаться присутствующим")
	}
}
