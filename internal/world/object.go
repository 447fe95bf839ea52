package world

import (
	"time"

	"github.com/annel0/arena-sync/internal/config"
	"github.com/annel0/arena-sync/internal/vec"
)

// ObjectKind определяет вид мирового объекта
type ObjectKind uint8

const (
	KindResourceNode ObjectKind = iota // Добываемый ресурс (дерево, камень)
	KindCreature                       // Враждебное существо
	KindCharacter                      // Персонаж игрока
)

// String возвращает строковое представление вида объекта
func (k ObjectKind) String() string {
	switch k {
	case KindResourceNode:
		return "resource_node"
	case KindCreature:
		return "creature"
	case KindCharacter:
		return "character"
	default:
		return "unknown"
	}
}

// KindFromString разбирает вид объекта из конфигурации
func KindFromString(s string) ObjectKind {
	switch s {
	case "creature":
		return KindCreature
	case "character":
		return KindCharacter
	default:
		return KindResourceNode
	}
}

// DropTable описывает правило выпадения лута подтипа.
// Пустой Kind означает, что дроп не настроен.
type DropTable struct {
	Kind        string
	Chance      float64 // Вероятность для hit-дропа; death-дроп гарантирован
	MinQuantity int
	MaxQuantity int
	Variants    []string // Непустой список — случайный вариант награды
}

// Configured сообщает, настроен ли дроп
func (d DropTable) Configured() bool { return d.Kind != "" }

// Template неизменяемое описание подтипа, общее для всех его экземпляров.
// Никогда не мутирует после создания.
type Template struct {
	Subtype      string
	Kind         ObjectKind
	MaxHealth    float64
	RespawnDelay time.Duration
	HitDrop      DropTable
	DeathDrop    DropTable
	KillReward   int64
}

// TemplateFromConfig строит шаблон подтипа из конфигурации
func TemplateFromConfig(cfg config.SubtypeConfig) *Template {
	return &Template{
		Subtype:      cfg.Name,
		Kind:         KindFromString(cfg.Kind),
		MaxHealth:    cfg.MaxHealth,
		RespawnDelay: time.Duration(cfg.RespawnDelayMs) * time.Millisecond,
		HitDrop:      dropFromConfig(cfg.HitDrop),
		DeathDrop:    dropFromConfig(cfg.DeathDrop),
		KillReward:   cfg.KillReward,
	}
}

func dropFromConfig(cfg config.DropConfig) DropTable {
	return DropTable{
		Kind:        cfg.Kind,
		Chance:      cfg.Chance,
		MinQuantity: cfg.MinQuantity,
		MaxQuantity: cfg.MaxQuantity,
		Variants:    cfg.Variants,
	}
}

// Object представляет мировой объект — единицу авторитетного состояния.
// Объект либо присутствует (жив, участвует в таргетинге), либо отсутствует
// (уничтожен, ждёт респавна; шаблон сохраняется для возрождения).
type Object struct {
	ID        string
	Template  *Template
	Pos       vec.Vec2
	Height    float64 // Косметическая высота, не авторитетна
	Health    float64
	RespawnAt *time.Time // Установлен только пока объект уничтожен
}

// Present сообщает, присутствует ли объект в живом наборе
func (o *Object) Present() bool {
	return o.Health > 0 && o.RespawnAt == nil
}

// ClampHealth ограничивает здоровье диапазоном [0, max]
func (o *Object) ClampHealth() {
	if o.Health < 0 {
		o.Health = 0
	}
	if o.Health > o.Template.MaxHealth {
		o.Health = o.Template.MaxHealth
	}
}
