package main

import (
	"errors"
	"fmt"

	"github.com/annel0/mmo-sim/internal/config"
	"github.com/annel0/mmo-sim/internal/content"
	"github.com/annel0/mmo-sim/internal/logging"
)

// loadMaps собирает описания карт из конфигурации.
// Если задан badger_path, загруженные файлы кэшируются в хранилище контента,
// а карта без файла ищется в нем по имени.
func loadMaps(cfg *config.Config) ([]*content.MapDefinition, error) {
	var store *content.Store
	if cfg.Content.BadgerPath != "" {
		var err error
		store, err = content.OpenStore(cfg.Content.BadgerPath)
		if err != nil {
			return nil, err
		}
		defer store.Close()
	}

	defs := make([]*content.MapDefinition, 0, len(cfg.Maps))
	for _, mc := range cfg.Maps {
		def, err := loadMap(mc, store)
		if err != nil {
			return nil, err
		}
		def.Name = mc.Name
		defs = append(defs, def)
		logging.Info("🗺️ Карта %s: полигонов %d, спавнов %d", def.Name, len(def.Navmesh.Polygons), len(def.Spawns))
	}
	return defs, nil
}

func loadMap(mc config.MapConfig, store *content.Store) (*content.MapDefinition, error) {
	if mc.Generate != nil {
		p := content.DefaultTerrainParams(mc.Generate.Seed)
		if mc.Generate.Cols > 0 {
			p.Cols = mc.Generate.Cols
		}
		if mc.Generate.Rows > 0 {
			p.Rows = mc.Generate.Rows
		}
		if mc.Generate.Cell > 0 {
			p.Cell = mc.Generate.Cell
		}
		return content.GenerateTerrain(mc.Name, p)
	}

	def, err := content.LoadFile(mc.File)
	switch {
	case err == nil:
		if store != nil {
			if err := store.Put(def); err != nil {
				logging.Warn("Карта %s не сохранена в хранилище: %v", mc.Name, err)
			}
		}
		return def, nil
	case store != nil && errors.Is(err, content.ErrMapNotFound):
		return store.Get(mc.Name)
	default:
		return nil, fmt.Errorf("карта %s: %w", mc.Name, err)
	}
}
