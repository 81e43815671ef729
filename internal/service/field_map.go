package service

// chapterFieldColumns es el mapeo total y explícito entre los nombres
// camelCase que manda el CMS y las columnas snake_case del storage. Campos
// que no figuran acá se rechazan en lugar de pasar de largo en silencio.
var chapterFieldColumns = map[string]string{
	"categoryId": "category_id",
	"title":      "title",
	"slug":       "slug",
	"content":    "content",
	"sortOrder":  "sort_order",
}

// ChapterColumnForField traduce un campo del request a su columna.
func ChapterColumnForField(field string) (string, bool) {
	column, ok := chapterFieldColumns[field]
	return column, ok
}

// ChapterFieldForColumn es la traducción inversa, para dar forma a respuestas.
func ChapterFieldForColumn(column string) (string, bool) {
	for field, col := range chapterFieldColumns {
		if col == column {
			return field, true
		}
	}
	return "", false
}
