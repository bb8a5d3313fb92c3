package main

import (
	"context"

	"github.com/angelmondragon/gatic-backend/internal/inventory"
	"github.com/angelmondragon/gatic-backend/internal/reconcile"
	"github.com/angelmondragon/gatic-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/gatic-backend/pkg/errors"
	"github.com/angelmondragon/gatic-backend/pkg/logger"
)

type stockCreator interface {
	Create(ctx context.Context, actor string, input inventory.CreateInput) (*inventory.Item, error)
}

type groupReader interface {
	ListGroup(ctx context.Context, key reconcile.Key) ([]models.InventoryRow, error)
}

type seeder struct {
	stock  stockCreator
	groups groupReader
	logg   *logger.Logger
}

type seedReport struct {
	Created int
	Skipped int
}

// run creates every input once. Serialized units already registered are
// skipped, and so is every bulk entry whose group existed before the run, so
// re-running a seed never grows a fleet.
func (s seeder) run(ctx context.Context, actor string, inputs []inventory.CreateInput) (seedReport, error) {
	var report seedReport

	present := map[reconcile.Key]bool{}
	for _, in := range inputs {
		key := reconcile.Key{Name: in.Name, Model: in.Model}
		if in.SerialNumber != nil {
			continue
		}
		if _, seen := present[key]; seen {
			continue
		}
		rows, err := s.groups.ListGroup(ctx, key)
		if err != nil {
			return report, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory group")
		}
		present[key] = len(rows) > 0
	}

	for _, in := range inputs {
		groupCtx := s.logg.WithFields(ctx, map[string]any{"nombre": in.Name, "modelo": in.Model})
		if in.SerialNumber == nil && present[reconcile.Key{Name: in.Name, Model: in.Model}] {
			report.Skipped++
			s.logg.Warn(groupCtx, "group already stocked, skipping bulk entry")
			continue
		}
		item, err := s.stock.Create(ctx, actor, in)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) && in.SerialNumber != nil {
				report.Skipped++
				s.logg.Warn(s.logg.WithField(groupCtx, "numeroSerie", *in.SerialNumber), "serial already registered, skipping")
				continue
			}
			return report, err
		}
		report.Created++
		s.logg.Debug(s.logg.WithField(groupCtx, "articuloId", item.ID), "seeded articulo")
	}
	return report, nil
}
