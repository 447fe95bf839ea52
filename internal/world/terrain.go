package world

import (
	"github.com/aquilax/go-perlin"
)

const (
	terrainNoiseAlpha = 2.0   // Сглаживание шума
	terrainNoiseBeta  = 2.0   // Частота шума
	terrainNoiseN     = 3     // Количество октав
	terrainNoiseScale = 128.0 // Мировых единиц на период шума
	terrainAmplitude  = 6.0   // Максимальная косметическая высота
)

// HeightField — косметическое поле высот на шуме Перлина.
// Высота сэмплируется один раз при размещении и передаётся рендеру
// в событиях спавна; авторитетное состояние её не использует.
type HeightField struct {
	noise *perlin.Perlin
}

// NewHeightField создаёт поле высот с указанным сидом
func NewHeightField(seed int64) *HeightField {
	return &HeightField{
		noise: perlin.NewPerlin(terrainNoiseAlpha, terrainNoiseBeta, terrainNoiseN, seed),
	}
}

// HeightAt возвращает высоту рельефа в точке (от 0 до terrainAmplitude)
func (h *HeightField) HeightAt(x, z float64) float64 {
	// Noise2D возвращает значение от -1 до 1
	noise := h.noise.Noise2D(x/terrainNoiseScale, z/terrainNoiseScale)
	return (noise + 1.0) / 2.0 * terrainAmplitude
}
