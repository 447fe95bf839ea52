package vec

import "math"

// Vec2 представляет планарные координаты мира (X, Z).
// Высота косметическая и не входит в авторитетное состояние.
type Vec2 struct {
	X, Z float64
}

// Add складывает два вектора
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Z: v.Z + other.Z}
}

// Sub вычитает вектор
func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{X: v.X - other.X, Z: v.Z - other.Z}
}

// Mul умножает вектор на скаляр
func (v Vec2) Mul(scalar float64) Vec2 {
	return Vec2{X: v.X * scalar, Z: v.Z * scalar}
}

// Length возвращает длину вектора
func (v Vec2) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Z*v.Z)
}

// Normalized возвращает нормализованный вектор
func (v Vec2) Normalized() Vec2 {
	length := v.Length()
	if length == 0 {
		return Vec2{}
	}
	return Vec2{X: v.X / length, Z: v.Z / length}
}

// DistanceTo вычисляет расстояние до другой точки
func (v Vec2) DistanceTo(other Vec2) float64 {
	dx := v.X - other.X
	dz := v.Z - other.Z
	return math.Sqrt(dx*dx + dz*dz)
}

// DistanceSquaredTo вычисляет квадрат расстояния до другой точки.
// Используется в проверках дистанции, где корень не нужен.
func (v Vec2) DistanceSquaredTo(other Vec2) float64 {
	dx := v.X - other.X
	dz := v.Z - other.Z
	return dx*dx + dz*dz
}

// Lerp линейно интерполирует между v и other с весом t из [0, 1]
func (v Vec2) Lerp(other Vec2, t float64) Vec2 {
	return Vec2{
		X: v.X + (other.X-v.X)*t,
		Z: v.Z + (other.Z-v.Z)*t,
	}
}

// FromPolar создаёт вектор из полярных координат (угол в радианах)
func FromPolar(angle, radius float64) Vec2 {
	return Vec2{
		X: math.Cos(angle) * radius,
		Z: math.Sin(angle) * radius,
	}
}
