package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/xtding233/gacha-stage/internal/gacha"
	"github.com/xtding233/gacha-stage/internal/progression"
)

// CatalogFile mirrors the YAML layout accepted by ImportCatalog.
//
//	sets:
//	  - name: humble beginnings
//	    enabled: true
//	    dir: media/gacha/sets/humble beginnings   # optional base for relative image paths
//	    entries:
//	      - {name: slime, rarity: common, image: slime.png, shiny: shiny/slime.png}
type CatalogFile struct {
	Sets []CatalogSet `yaml:"sets"`
}

type CatalogSet struct {
	Name    string             `yaml:"name"`
	Enabled bool               `yaml:"enabled"`
	Dir     string             `yaml:"dir,omitempty"`
	Entries []CatalogFileEntry `yaml:"entries"`
}

type CatalogFileEntry struct {
	Name   string `yaml:"name"`
	Rarity string `yaml:"rarity"`
	Image  string `yaml:"image"`
	Shiny  string `yaml:"shiny,omitempty"`
}

// ReadCatalogFile parses and validates a catalog YAML file.
func ReadCatalogFile(path string) (CatalogFile, error) {
	var cf CatalogFile
	b, err := os.ReadFile(path)
	if err != nil {
		return cf, err
	}
	if err := yaml.Unmarshal(b, &cf); err != nil {
		return cf, fmt.Errorf("parse %s: %w", path, err)
	}
	return cf, nil
}

// Entries converts the file into catalog entries, resolving image paths against each set's dir.
func (cf CatalogFile) Entries() ([]progression.CatalogEntry, error) {
	var out []progression.CatalogEntry
	for _, set := range cf.Sets {
		if normalizeSet(set.Name) == "" {
			return nil, fmt.Errorf("catalog set without a name")
		}
		for _, fe := range set.Entries {
			tier, err := gacha.ParseTier(fe.Rarity)
			if err != nil {
				return nil, fmt.Errorf("set %q entry %q: %w", set.Name, fe.Name, err)
			}
			out = append(out, progression.CatalogEntry{
				Name:           fe.Name,
				Set:            normalizeSet(set.Name),
				Rarity:         tier,
				ImagePath:      joinAsset(set.Dir, fe.Image),
				ShinyImagePath: joinAsset(set.Dir, fe.Shiny),
				Enabled:        set.Enabled,
			})
		}
	}
	return out, nil
}

// ImportCatalog upserts every entry of cf into s and returns how many were written.
func ImportCatalog(ctx context.Context, s Store, cf CatalogFile) (int, error) {
	entries, err := cf.Entries()
	if err != nil {
		return 0, err
	}
	for i, e := range entries {
		if _, err := s.AddEntry(ctx, e); err != nil {
			return i, err
		}
	}
	return len(entries), nil
}

func joinAsset(dir, p string) string {
	if p == "" || dir == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
