// Package catalog loads the effect and ability content tables.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/rpcombat/internal/game/ability"
	"github.com/cory-johannsen/rpcombat/internal/game/effect"
)

// Catalog holds the immutable effect and ability tables.
type Catalog struct {
	Effects   *effect.Registry
	Abilities *ability.Registry
}

// Options locates the content directories.
type Options struct {
	EffectsDir   string
	AbilitiesDir string
	// Neutral is the LiveStats value pruned after aggregation.
	Neutral int
}

// Load reads both content directories concurrently and checks that every
// effect an ability references exists.
//
// Postcondition: Returns a fully cross-checked Catalog or an error.
func Load(ctx context.Context, opts Options, logger *zap.Logger) (*Catalog, error) {
	var (
		effects   *effect.Registry
		abilities *ability.Registry
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		reg, err := effect.LoadDirectory(opts.EffectsDir, opts.Neutral)
		if err != nil {
			return fmt.Errorf("loading effects: %w", err)
		}
		effects = reg
		return ctx.Err()
	})
	g.Go(func() error {
		reg, err := ability.LoadDirectory(opts.AbilitiesDir)
		if err != nil {
			return fmt.Errorf("loading abilities: %w", err)
		}
		abilities = reg
		return ctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c := &Catalog{Effects: effects, Abilities: abilities}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	logger.Info("catalog loaded",
		zap.Int("effects", effects.Len()),
		zap.Int("abilities", abilities.Len()),
	)
	return c, nil
}

// Validate reports every ability effect reference that does not resolve.
func (c *Catalog) Validate() error {
	var errs []error
	for _, a := range c.Abilities.All() {
		for _, list := range [][]string{a.AttackEffects, a.AbilityEffects} {
			for _, id := range list {
				if _, ok := c.Effects.Effect(id); !ok {
					errs = append(errs, fmt.Errorf("ability %q references unknown effect %q", a.ID, id))
				}
			}
		}
	}
	return errors.Join(errs...)
}
