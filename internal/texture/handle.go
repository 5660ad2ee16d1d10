package texture

import (
	"path"
	"strings"
)

// Handle неизменяемая ссылка на текстуру земли. Идентичность, нормализованное
// имя файла, поэтому два Handle на один файл равны по ==. Пиксели Handle не держит:
// ими владеет общий Cache.
type Handle struct {
	name string
}

// NewHandle создаёт Handle без регистрации в кеше (для тестов и сравнения)
func NewHandle(filename string) Handle {
	return Handle{name: Normalize(filename)}
}

// Filename возвращает нормализованное имя файла текстуры
func (h Handle) Filename() string {
	return h.name
}

// IsZero возвращает true для пустого Handle
func (h Handle) IsZero() bool {
	return h.name == ""
}

func (h Handle) String() string {
	return h.name
}

// Normalize приводит путь к виду, используемому как ключ кеша:
// нижний регистр, прямые слэши, без ведущих "./".
func Normalize(filename string) string {
	name := strings.ToLower(strings.ReplaceAll(filename, "\\", "/"))
	name = strings.TrimLeft(name, "/")
	if name == "" {
		return ""
	}
	return path.Clean(name)
}
