// grant.go — права пользователя на коллекцию из Identity/Policy Store.
package model

// Grant — кортеж прав на запись в коллекцию для пары (пользователь, коллекция).
// Читается из таблицы user_collection_write_map, неизменяем после загрузки.
type Grant struct {
	// StageinPath — корень staging-области, куда поставщик выложил ассеты.
	StageinPath string
	// AssetsPath — корень долговременного хранилища ассетов.
	AssetsPath string
	// StacsPath — корень backup-хранилища канонических STAC-документов.
	StacsPath string
	// DatastoreURL — URL-префикс, которым переписываются href ассетов.
	DatastoreURL string
	// CatalogueURL — endpoint внешнего каталога для этой коллекции.
	CatalogueURL string
	// ExtraAuths — битовая маска дополнительных прав.
	ExtraAuths int64
}

// CanDelete сообщает, разрешено ли удаление Item в этой коллекции.
// Наблюдаемое правило AAI-схемы: нечётная маска разрешает удаление.
func (g *Grant) CanDelete() bool {
	return g.ExtraAuths%2 == 1
}
