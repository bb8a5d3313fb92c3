package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/angelmondragon/gatic-backend/internal/inventory"
)

// seedFile mirrors the YAML schema of a seed catalog.
type seedFile struct {
	Actor    string     `yaml:"actor"`
	Articles []seedItem `yaml:"articulos"`
}

type seedItem struct {
	Name        string   `yaml:"nombre"`
	Model       string   `yaml:"modelo"`
	Brand       string   `yaml:"marca"`
	Category    string   `yaml:"categoria"`
	Description string   `yaml:"descripcion"`
	Supplier    string   `yaml:"proveedor"`
	Location    string   `yaml:"ubicacion"`
	UnitCost    string   `yaml:"costoUnitario"`
	Quantity    int      `yaml:"cantidad"`
	Serials     []string `yaml:"numerosSerie"`
}

func loadCatalog(path string) (*seedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return parseCatalog(raw)
}

func parseCatalog(raw []byte) (*seedFile, error) {
	var file seedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	if len(file.Articles) == 0 {
		return nil, fmt.Errorf("seed file has no articulos")
	}
	return &file, nil
}

// inputs expands every seed entry into create commands. Serialized entries
// become one command per numeroSerie; bulk entries become a single command.
func (f *seedFile) inputs() ([]inventory.CreateInput, error) {
	var out []inventory.CreateInput
	for i, item := range f.Articles {
		if strings.TrimSpace(item.Name) == "" || strings.TrimSpace(item.Model) == "" {
			return nil, fmt.Errorf("articulo %d: nombre and modelo are required", i)
		}
		cost := decimal.Zero
		if strings.TrimSpace(item.UnitCost) != "" {
			parsed, err := decimal.NewFromString(strings.TrimSpace(item.UnitCost))
			if err != nil {
				return nil, fmt.Errorf("articulo %d: costoUnitario: %w", i, err)
			}
			cost = parsed
		}
		base := inventory.CreateInput{
			Name:        strings.TrimSpace(item.Name),
			Model:       strings.TrimSpace(item.Model),
			Brand:       strings.TrimSpace(item.Brand),
			Category:    strings.TrimSpace(item.Category),
			Description: optional(item.Description),
			Supplier:    optional(item.Supplier),
			Location:    optional(item.Location),
			UnitCost:    cost,
		}

		if len(item.Serials) == 0 {
			if item.Quantity <= 0 {
				return nil, fmt.Errorf("articulo %d: cantidad must be positive", i)
			}
			base.Quantity = item.Quantity
			out = append(out, base)
			continue
		}
		if item.Quantity != 0 && item.Quantity != len(item.Serials) {
			return nil, fmt.Errorf("articulo %d: cantidad %d does not match %d numerosSerie", i, item.Quantity, len(item.Serials))
		}
		for _, serial := range item.Serials {
			in := base
			in.SerialNumber = optional(serial)
			if in.SerialNumber == nil {
				return nil, fmt.Errorf("articulo %d: blank numeroSerie", i)
			}
			in.Quantity = 1
			out = append(out, in)
		}
	}
	return out, nil
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
