package world

// Table — явно владеемый реестр мировых объектов (id -> объект).
// Передаётся движкам по ссылке; глобального синглтона нет.
// Мутируется только из авторитетного тика, поэтому не содержит блокировок.
type Table struct {
	objects map[string]*Object
}

// NewTable создаёт пустой реестр объектов
func NewTable() *Table {
	return &Table{objects: make(map[string]*Object)}
}

// Add регистрирует объект. ID обязан быть уникальным,
// пока объект зарегистрирован.
func (t *Table) Add(obj *Object) {
	t.objects[obj.ID] = obj
}

// Remove снимает объект с регистрации (уход игрока).
// Уничтожение объекта регистрацию не снимает — он ждёт респавна.
func (t *Table) Remove(id string) {
	delete(t.objects, id)
}

// Get возвращает объект по id
func (t *Table) Get(id string) (*Object, bool) {
	obj, ok := t.objects[id]
	return obj, ok
}

// Len возвращает число зарегистрированных объектов
func (t *Table) Len() int {
	return len(t.objects)
}

// ForEach вызывает fn для каждого зарегистрированного объекта
func (t *Table) ForEach(fn func(*Object)) {
	for _, obj := range t.objects {
		fn(obj)
	}
}

// Present возвращает все присутствующие объекты
func (t *Table) Present() []*Object {
	result := make([]*Object, 0, len(t.objects))
	for _, obj := range t.objects {
		if obj.Present() {
			result = append(result, obj)
		}
	}
	return result
}

// CountByKind возвращает число присутствующих объектов каждого вида
func (t *Table) CountByKind() map[string]int {
	counts := make(map[string]int)
	for _, obj := range t.objects {
		if obj.Present() {
			counts[obj.Template.Kind.String()]++
		}
	}
	return counts
}
