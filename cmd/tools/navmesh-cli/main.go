package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/annel0/mmo-sim/internal/content"
	"github.com/annel0/mmo-sim/internal/navmesh"
	"github.com/annel0/mmo-sim/internal/vec"
)

func main() {
	var (
		command  = flag.String("cmd", "stats", "Command: stats, path, clamp, gen, import, list")
		mapFile  = flag.String("map", "", "Map YAML file")
		seed     = flag.Int64("seed", 0, "Generate terrain with this seed instead of reading -map")
		size     = flag.Int("size", 16, "Generated terrain size in cells")
		from     = flag.String("from", "", "Start point x,y,z")
		to       = flag.String("to", "", "End point x,y,z")
		nearest  = flag.Bool("nearest", false, "Snap an off-mesh destination to the nearest region")
		noMerge  = flag.Bool("no-merge", false, "Disable convex region merging declared by the map")
		out      = flag.String("out", "", "Output file for gen (stdout if empty)")
		storeDir = flag.String("store", "", "Badger content store directory for import/list")
	)
	flag.Parse()

	var err error
	switch *command {
	case "list":
		err = listStore(*storeDir)
	case "gen":
		err = generate(*seed, *size, *out)
	default:
		var def *content.MapDefinition
		def, err = loadDefinition(*mapFile, *seed, *size)
		if err != nil {
			break
		}
		switch *command {
		case "import":
			err = importMap(*storeDir, def)
		case "stats", "path", "clamp":
			err = query(*command, def, *noMerge, *from, *to, *nearest)
		default:
			err = fmt.Errorf("unknown command %q", *command)
		}
	}
	if err != nil {
		log.Fatalf("❌ %s failed: %v", *command, err)
	}
}

func loadDefinition(path string, seed int64, size int) (*content.MapDefinition, error) {
	if path != "" {
		return content.LoadFile(path)
	}
	if seed == 0 {
		return nil, errors.New("either -map or -seed is required")
	}
	return terrain(seed, size)
}

func terrain(seed int64, size int) (*content.MapDefinition, error) {
	p := content.DefaultTerrainParams(seed)
	p.Cols, p.Rows = size, size
	return content.GenerateTerrain(fmt.Sprintf("terrain-%d", seed), p)
}

func query(command string, def *content.MapDefinition, noMerge bool, fromArg, toArg string, nearest bool) error {
	if noMerge {
		def.Navmesh.Merge = false
	}
	nav, err := def.BuildNavMesh(navmesh.DefaultBuildOptions())
	if err != nil {
		return err
	}

	if command == "stats" {
		st := nav.Stats()
		fmt.Printf("🗺️  Map:          %s\n", def.Name)
		fmt.Printf("   Input polys:  %d\n", st.InputRegions)
		fmt.Printf("   Regions:      %d (merged %d)\n", st.Regions, st.Merges)
		fmt.Printf("   Border edges: %d\n", st.BorderEdges)
		fmt.Printf("   Graph edges:  %d\n", st.GraphEdges)
		fmt.Printf("   Spawns:       %d\n", len(def.Spawns))
		return nil
	}

	a, err := parsePoint(fromArg)
	if err != nil {
		return fmt.Errorf("-from: %w", err)
	}
	b, err := parsePoint(toArg)
	if err != nil {
		return fmt.Errorf("-to: %w", err)
	}

	if command == "clamp" {
		p := nav.ClampMovement(a, b)
		fmt.Printf("📍 %s -> %s clamped to %s (travelled %.3f)\n", fmtPoint(a), fmtPoint(b), fmtPoint(p), a.PlanarDistance(p))
		return nil
	}

	var path []vec.Vec3
	if nearest {
		path = nav.FindPathNearest(a, b)
	} else {
		path = nav.FindPath(a, b)
	}
	if len(path) == 0 {
		fmt.Println("🚫 No path")
		return nil
	}
	fmt.Printf("🧭 Path: %d points, length %.3f\n", len(path), navmesh.PathLength(path))
	for i, p := range path {
		fmt.Printf("   %2d. %s\n", i, fmtPoint(p))
	}
	return nil
}

func generate(seed int64, size int, out string) error {
	if seed == 0 {
		return errors.New("-seed is required")
	}
	def, err := terrain(seed, size)
	if err != nil {
		return err
	}
	data, err := def.Marshal()
	if err != nil {
		return err
	}
	if out == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("✅ %s written (%d polygons)\n", out, len(def.Navmesh.Polygons))
	return nil
}

func importMap(dir string, def *content.MapDefinition) error {
	if dir == "" {
		return errors.New("-store is required")
	}
	store, err := content.OpenStore(dir)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Put(def); err != nil {
		return err
	}
	fmt.Printf("✅ %s imported into %s\n", def.Name, dir)
	return nil
}

func listStore(dir string) error {
	if dir == "" {
		return errors.New("-store is required")
	}
	store, err := content.OpenStore(dir)
	if err != nil {
		return err
	}
	defer store.Close()
	names, err := store.List()
	if err != nil {
		return err
	}
	fmt.Printf("📦 %d maps in %s\n", len(names), dir)
	for _, name := range names {
		fmt.Printf("   • %s\n", name)
	}
	return nil
}

func parsePoint(s string) (vec.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return vec.Vec3{}, fmt.Errorf("expected x,y,z, got %q", s)
	}
	var xyz [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return vec.Vec3{}, err
		}
		xyz[i] = v
	}
	return vec.New(xyz[0], xyz[1], xyz[2]), nil
}

func fmtPoint(p vec.Vec3) string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", p.X, p.Y, p.Z)
}
