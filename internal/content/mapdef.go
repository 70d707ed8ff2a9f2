package content

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/annel0/mmo-sim/internal/ai"
	"github.com/annel0/mmo-sim/internal/navmesh"
	"github.com/annel0/mmo-sim/internal/vec"
)

var (
	ErrMapNotFound = errors.New("карта не найдена")
	ErrInvalidMap  = errors.New("некорректное описание карты")
)

// MapDefinition - описание карты: геометрия навмеша, таблица спавна, способности и предметы
type MapDefinition struct {
	Name      string        `yaml:"name" json:"name"`
	Navmesh   NavmeshDef    `yaml:"navmesh" json:"navmesh"`
	Player    PlayerDef     `yaml:"player" json:"player"`
	Spawns    []ai.SpawnDef `yaml:"spawns" json:"spawns"`
	Abilities []AbilityDef  `yaml:"abilities" json:"abilities"`
	Pickups   []PickupDef   `yaml:"pickups" json:"pickups"`
}

// NavmeshDef - вершины и полигоны как списки индексов
type NavmeshDef struct {
	Vertices []vec.Vec3 `yaml:"vertices" json:"vertices"`
	Polygons [][]int    `yaml:"polygons" json:"polygons"`
	Merge    bool       `yaml:"merge" json:"merge"`
}

// PlayerDef - параметры игроков на карте
type PlayerDef struct {
	Spawn        vec.Vec3      `yaml:"spawn" json:"spawn"`
	MaxHealth    float64       `yaml:"max_health" json:"max_health"`
	MaxMana      float64       `yaml:"max_mana" json:"max_mana"`
	Abilities    []string      `yaml:"abilities" json:"abilities"` // слоты панели способностей
	RespawnDelay time.Duration `yaml:"respawn_delay" json:"respawn_delay"`
}

// AbilityDef - табличная способность
type AbilityDef struct {
	ID       string        `yaml:"id" json:"id"`
	Damage   float64       `yaml:"damage" json:"damage"`
	Heal     float64       `yaml:"heal" json:"heal"`
	ManaCost float64       `yaml:"mana_cost" json:"mana_cost"`
	Cooldown time.Duration `yaml:"cooldown" json:"cooldown"`
	Range    float64       `yaml:"range" json:"range"`
}

// PickupDef - предмет, лежащий на карте
type PickupDef struct {
	ID           string        `yaml:"id" json:"id"`
	Item         string        `yaml:"item" json:"item"`
	Position     vec.Vec3      `yaml:"position" json:"position"`
	RespawnDelay time.Duration `yaml:"respawn_delay" json:"respawn_delay"`
}

// Parse разбирает YAML описание карты и проверяет его
func Parse(data []byte) (*MapDefinition, error) {
	var def MapDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMap, err)
	}
	def.applyDefaults()
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// LoadFile читает описание карты из файла
func LoadFile(path string) (*MapDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMapNotFound, path)
		}
		return nil, fmt.Errorf("чтение карты %s: %w", path, err)
	}
	return Parse(data)
}

// Marshal сериализует карту обратно в YAML
func (d *MapDefinition) Marshal() ([]byte, error) {
	return yaml.Marshal(d)
}

func (d *MapDefinition) applyDefaults() {
	if d.Player.MaxHealth <= 0 {
		d.Player.MaxHealth = 100
	}
	if d.Player.MaxMana <= 0 {
		d.Player.MaxMana = 50
	}
	if d.Player.RespawnDelay <= 0 {
		d.Player.RespawnDelay = 5 * time.Second
	}
	for i := range d.Spawns {
		s := &d.Spawns[i]
		if s.Patrol == "" {
			s.Patrol = ai.PatrolStatic
		}
		if s.MaxHealth <= 0 {
			s.MaxHealth = 100
		}
		if s.RespawnDelay <= 0 {
			s.RespawnDelay = 10 * time.Second
		}
	}
}

// Validate проверяет ссылки и индексы
func (d *MapDefinition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: пустое имя", ErrInvalidMap)
	}
	if len(d.Navmesh.Polygons) == 0 {
		return fmt.Errorf("%w: %s без полигонов", ErrInvalidMap, d.Name)
	}
	for i, poly := range d.Navmesh.Polygons {
		if len(poly) < 3 {
			return fmt.Errorf("%w: полигон %d содержит %d вершин", ErrInvalidMap, i, len(poly))
		}
		for _, idx := range poly {
			if idx < 0 || idx >= len(d.Navmesh.Vertices) {
				return fmt.Errorf("%w: полигон %d ссылается на вершину %d", ErrInvalidMap, i, idx)
			}
		}
	}

	abilities := make(map[string]bool, len(d.Abilities))
	for _, a := range d.Abilities {
		if a.ID == "" {
			return fmt.Errorf("%w: способность без id", ErrInvalidMap)
		}
		abilities[a.ID] = true
	}
	for _, id := range d.Player.Abilities {
		if !abilities[id] {
			return fmt.Errorf("%w: у игрока неизвестная способность %q", ErrInvalidMap, id)
		}
	}

	seen := make(map[string]bool, len(d.Spawns))
	for _, s := range d.Spawns {
		if s.ID == "" || seen[s.ID] {
			return fmt.Errorf("%w: пустой или повторный id спавна %q", ErrInvalidMap, s.ID)
		}
		seen[s.ID] = true
		switch s.Patrol {
		case ai.PatrolStatic, ai.PatrolGlobal:
		case ai.PatrolArea, ai.PatrolPath:
			if len(s.Points) == 0 {
				return fmt.Errorf("%w: спавн %s без точек патруля", ErrInvalidMap, s.ID)
			}
		default:
			return fmt.Errorf("%w: спавн %s: тип патруля %q", ErrInvalidMap, s.ID, s.Patrol)
		}
		for _, a := range s.Abilities {
			if !abilities[a.ID] {
				return fmt.Errorf("%w: спавн %s: неизвестная способность %q", ErrInvalidMap, s.ID, a.ID)
			}
		}
	}
	return nil
}

// Polygons разворачивает индексы в полигоны навмеша
func (d *MapDefinition) Polygons() []navmesh.Polygon {
	polys := make([]navmesh.Polygon, 0, len(d.Navmesh.Polygons))
	for _, idx := range d.Navmesh.Polygons {
		poly := make(navmesh.Polygon, len(idx))
		for i, v := range idx {
			poly[i] = d.Navmesh.Vertices[v]
		}
		polys = append(polys, poly)
	}
	return polys
}

// BuildNavMesh строит навмеш карты
func (d *MapDefinition) BuildNavMesh(opts navmesh.BuildOptions) (*navmesh.NavMesh, error) {
	opts.MergeConvexRegions = d.Navmesh.Merge
	m, err := navmesh.Build(d.Polygons(), opts)
	if err != nil {
		return nil, fmt.Errorf("навмеш карты %s: %w", d.Name, err)
	}
	return m, nil
}

// Ability ищет способность по id
func (d *MapDefinition) Ability(id string) (AbilityDef, bool) {
	for _, a := range d.Abilities {
		if a.ID == id {
			return a, true
		}
	}
	return AbilityDef{}, false
}
