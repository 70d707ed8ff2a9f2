package content

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/aquilax/go-perlin"

	"github.com/annel0/mmo-sim/internal/ai"
	"github.com/annel0/mmo-sim/internal/vec"
)

// TerrainParams - параметры генерации демо-карты
type TerrainParams struct {
	Seed      int64
	Cols      int
	Rows      int
	Cell      float64
	Amplitude float64 // перепад высот
	// Клетки, где шум выше порога, вырезаются (0..1, 0 - без дыр)
	HoleThreshold float64
}

// DefaultTerrainParams возвращает параметры по умолчанию
func DefaultTerrainParams(seed int64) TerrainParams {
	return TerrainParams{
		Seed:          seed,
		Cols:          16,
		Rows:          16,
		Cell:          4,
		Amplitude:     2,
		HoleThreshold: 0.72,
	}
}

const (
	heightFrequency = 0.043
	holeFrequency   = 0.17
	holeOffset      = 101.3
)

// GenerateTerrain строит карту-сетку с высотами по шуму Перлина и вырезанными препятствиями.
// Каждая клетка делится на два треугольника, поэтому все регионы плоские.
func GenerateTerrain(name string, p TerrainParams) (*MapDefinition, error) {
	if p.Cols <= 0 || p.Rows <= 0 || p.Cell <= 0 {
		return nil, fmt.Errorf("%w: размер сетки %dx%d, клетка %.2f", ErrInvalidMap, p.Cols, p.Rows, p.Cell)
	}

	alpha := 2.0  // Сглаживание шума
	beta := 2.0   // Частота шума
	n := int32(3) // Количество октав
	noise := perlin.NewPerlin(alpha, beta, n, p.Seed)

	def := &MapDefinition{Name: name}
	def.Navmesh.Merge = true

	stride := p.Cols + 1
	for r := 0; r <= p.Rows; r++ {
		for c := 0; c <= p.Cols; c++ {
			x, z := float64(c)*p.Cell, float64(r)*p.Cell
			y := noise.Noise2D(x*heightFrequency, z*heightFrequency) * p.Amplitude
			def.Navmesh.Vertices = append(def.Navmesh.Vertices, vec.New(x, y, z))
		}
	}

	spawnCol, spawnRow := p.Cols/2, p.Rows/2
	var open [][2]int
	for r := 0; r < p.Rows; r++ {
		for c := 0; c < p.Cols; c++ {
			nearSpawn := abs(c-spawnCol) <= 1 && abs(r-spawnRow) <= 1
			if !nearSpawn && p.HoleThreshold > 0 {
				h := (noise.Noise2D(float64(c)*holeFrequency+holeOffset, float64(r)*holeFrequency+holeOffset) + 1) / 2
				if h > p.HoleThreshold {
					continue
				}
			}
			v00 := r*stride + c
			v10 := v00 + 1
			v01 := v00 + stride
			v11 := v01 + 1
			def.Navmesh.Polygons = append(def.Navmesh.Polygons, []int{v00, v10, v11}, []int{v00, v11, v01})
			open = append(open, [2]int{c, r})
		}
	}

	center := func(cell [2]int) vec.Vec3 {
		v00 := def.Navmesh.Vertices[cell[1]*stride+cell[0]]
		v11 := def.Navmesh.Vertices[(cell[1]+1)*stride+cell[0]+1]
		return v00.Lerp(v11, 0.5)
	}

	def.Player = PlayerDef{
		Spawn:        center([2]int{spawnCol, spawnRow}),
		MaxHealth:    100,
		MaxMana:      50,
		Abilities:    []string{"strike", "mend"},
		RespawnDelay: 5 * time.Second,
	}
	def.Abilities = []AbilityDef{
		{ID: "strike", Damage: 12, Range: 2.5, Cooldown: time.Second},
		{ID: "mend", Heal: 25, ManaCost: 15, Cooldown: 4 * time.Second},
		{ID: "bite", Damage: 5, Range: 2.5},
		{ID: "maul", Damage: 11, Range: 2.5},
	}

	rng := rand.New(rand.NewSource(p.Seed))
	pick := func() vec.Vec3 { return center(open[rng.Intn(len(open))]) }

	patrols := []ai.PatrolType{ai.PatrolGlobal, ai.PatrolArea, ai.PatrolPath, ai.PatrolStatic}
	monsters := len(open) / 32
	if monsters < 1 {
		monsters = 1
	}
	for i := 0; i < monsters; i++ {
		s := ai.SpawnDef{
			ID:         fmt.Sprintf("wolf-%d", i+1),
			Name:       "Волк",
			Patrol:     patrols[i%len(patrols)],
			Position:   pick(),
			Aggressive: i%3 != 2,
			Abilities: []ai.AbilityChance{
				{ID: "bite", Chance: 0.7},
				{ID: "maul", Chance: 0.3},
			},
			MaxHealth:    60,
			MaxMana:      10,
			RespawnDelay: 15 * time.Second,
		}
		if s.Patrol == ai.PatrolArea || s.Patrol == ai.PatrolPath {
			s.Points = []vec.Vec3{pick(), pick(), pick()}
		}
		def.Spawns = append(def.Spawns, s)
	}

	for i := 0; i < len(open)/48+1; i++ {
		def.Pickups = append(def.Pickups, PickupDef{
			ID:           fmt.Sprintf("herb-%d", i+1),
			Item:         "herb",
			Position:     pick(),
			RespawnDelay: 30 * time.Second,
		})
	}

	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
