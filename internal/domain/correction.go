package domain

// Correction — одна применённая обработчиком коррекция.
//
// Записывается при каждом исправлении в рамках одного supervised-запуска.
// Упорядоченный список коррекций ограничен сверху MaxCorrections;
// попытка превысить лимит фатальна для запуска.
type Correction struct {
	// Handler — имя обработчика, применившего коррекцию.
	Handler string `json:"handler"`

	// Description — человекочитаемое описание того, что было исправлено.
	Description string `json:"description"`
}
