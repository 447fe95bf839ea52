package world

import (
	"math"
	"math/rand"

	"github.com/annel0/arena-sync/internal/logging"
	"github.com/annel0/arena-sync/internal/vec"
)

// Множитель лимита попыток rejection sampling на один подтип
const placementAttemptsPerObject = 10

// Circle описывает круговую зону исключения (безопасная зона игроков)
type Circle struct {
	Center vec.Vec2
	Radius float64
}

// Contains сообщает, лежит ли точка внутри круга
func (c Circle) Contains(p vec.Vec2) bool {
	return c.Center.DistanceSquaredTo(p) < c.Radius*c.Radius
}

// Hexagon — выпуклая граница арены: правильный шестиугольник
// с заданным радиусом описанной окружности.
type Hexagon struct {
	vertices [6]vec.Vec2
}

// NewHexagon строит правильный шестиугольник вокруг начала координат
func NewHexagon(circumradius float64) Hexagon {
	var h Hexagon
	for i := 0; i < 6; i++ {
		angle := float64(i) * math.Pi / 3
		h.vertices[i] = vec.FromPolar(angle, circumradius)
	}
	return h
}

// Contains проверяет принадлежность точки полигону методом ray casting
func (h Hexagon) Contains(p vec.Vec2) bool {
	inside := false
	j := len(h.vertices) - 1
	for i := 0; i < len(h.vertices); i++ {
		vi, vj := h.vertices[i], h.vertices[j]
		if (vi.Z > p.Z) != (vj.Z > p.Z) {
			// Точка пересечения луча +X со стороной полигона
			crossX := (vj.X-vi.X)*(p.Z-vi.Z)/(vj.Z-vi.Z) + vi.X
			if p.X < crossX {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// PlacementSpec описывает требования размещения одного подтипа
type PlacementSpec struct {
	Subtype   string
	Count     int     // Целевое число позиций N
	MinRadius float64 // Внутренний радиус кольца спавна
	MaxRadius float64 // Внешний радиус кольца спавна
	Spacing   float64 // Минимальная дистанция до уже размещённых позиций того же подтипа
}

// Placer размещает мировые объекты внутри арены методом rejection sampling.
// Детерминирован при фиксированном *rand.Rand.
type Placer struct {
	arena  Hexagon
	zones  []Circle
	rng    *rand.Rand
	logger *logging.Logger
}

// NewPlacer создаёт движок размещения для арены с зонами исключения
func NewPlacer(arena Hexagon, zones []Circle, rng *rand.Rand) *Placer {
	return &Placer{
		arena:  arena,
		zones:  zones,
		rng:    rng,
		logger: logging.GetWorldLogger(),
	}
}

// Place возвращает до spec.Count позиций, удовлетворяющих всем ограничениям:
// строго внутри арены, строго вне каждой зоны исключения, попарная дистанция
// внутри подтипа не меньше spec.Spacing. Недобор при исчерпании попыток —
// не ошибка, а предупреждение о плотности: геометрия может не вмещать N точек.
func (p *Placer) Place(spec PlacementSpec) []vec.Vec2 {
	placed := make([]vec.Vec2, 0, spec.Count)
	if spec.Count <= 0 {
		return placed
	}

	spacingSq := spec.Spacing * spec.Spacing
	maxAttempts := spec.Count * placementAttemptsPerObject

	for attempt := 0; attempt < maxAttempts && len(placed) < spec.Count; attempt++ {
		angle := p.rng.Float64() * 2 * math.Pi
		radius := spec.MinRadius + p.rng.Float64()*(spec.MaxRadius-spec.MinRadius)
		candidate := vec.FromPolar(angle, radius)

		if !p.arena.Contains(candidate) {
			continue
		}
		if p.insideAnyZone(candidate) {
			continue
		}
		if tooClose(candidate, placed, spacingSq) {
			continue
		}

		placed = append(placed, candidate)
	}

	if len(placed) < spec.Count {
		p.logger.Warn("размещение %s: получено %d из %d позиций (плотность ограничена spacing=%.1f)",
			spec.Subtype, len(placed), spec.Count, spec.Spacing)
	}

	return placed
}

// insideAnyZone проверяет кандидата против всех зон исключения
func (p *Placer) insideAnyZone(candidate vec.Vec2) bool {
	for _, zone := range p.zones {
		if zone.Contains(candidate) {
			return true
		}
	}
	return false
}

// tooClose — линейный проход по уже размещённым позициям того же подтипа
func tooClose(candidate vec.Vec2, placed []vec.Vec2, spacingSq float64) bool {
	for _, existing := range placed {
		if candidate.DistanceSquaredTo(existing) < spacingSq {
			return true
		}
	}
	return false
}
