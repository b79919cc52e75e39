// Package gameserver hosts the combat engine behind a gRPC service: it
// loads character snapshots, serializes mutations per character, runs the
// engine, and persists the results.
package gameserver

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/cory-johannsen/rpcombat/internal/game/ability"
	"github.com/cory-johannsen/rpcombat/internal/game/character"
	"github.com/cory-johannsen/rpcombat/internal/game/effect"
	"github.com/cory-johannsen/rpcombat/internal/game/rules"
	"github.com/cory-johannsen/rpcombat/internal/storage/postgres"
)

// CharacterStore loads and persists character snapshots.
type CharacterStore interface {
	Get(ctx context.Context, id string) (character.State, error)
	LoadMany(ctx context.Context, ids []string) (map[string]character.State, error)
	SaveAll(ctx context.Context, states []character.State) error
}

// RelationshipSource reports a character's ally and enemy sets.
type RelationshipSource interface {
	Relations(ctx context.Context, characterID string) (postgres.Relations, error)
}

// ActivateInput is one activation request as received from a client.
// Allies and enemies come from the relationship store.
type ActivateInput struct {
	AbilityID string
	Mode      ability.Mode
	CasterID  string
	TargetID  string
	Nearby    []string
}

// Service runs engine operations against persisted characters.
type Service struct {
	activator *ability.Activator
	effects   effect.Catalog
	store     CharacterStore
	relations RelationshipSource
	locker    Locker
	tracer    trace.Tracer
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a Service.
//
// Precondition: every argument must be non-nil.
func NewService(
	activator *ability.Activator,
	store CharacterStore,
	relations RelationshipSource,
	locker Locker,
	tracer trace.Tracer,
	logger *zap.Logger,
) *Service {
	return &Service{
		activator: activator,
		effects:   activator.Effects,
		store:     store,
		relations: relations,
		locker:    locker,
		tracer:    tracer,
		logger:    logger,
		now:       time.Now,
	}
}

// withLocks runs fn while holding the locks for ids.
func (s *Service) withLocks(ctx context.Context, ids []string, fn func() error) error {
	release, err := s.locker.Acquire(ctx, ids)
	if err != nil {
		return fmt.Errorf("acquiring character locks: %w", err)
	}
	defer func() {
		if relErr := release(context.WithoutCancel(ctx)); relErr != nil {
			s.logger.Warn("releasing character locks", zap.Strings("ids", ids), zap.Error(relErr))
		}
	}()
	return fn()
}

// load fetches ids and rebuilds each snapshot's LiveStats from its effects.
func (s *Service) load(ctx context.Context, ids []string) (map[string]character.State, error) {
	states, err := s.store.LoadMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	for id, st := range states {
		states[id] = st.Rebuild(s.effects)
	}
	return states, nil
}

// GetCharacter returns the stored snapshot of id with LiveStats rebuilt.
func (s *Service) GetCharacter(ctx context.Context, id string) (character.State, error) {
	if id == "" {
		return character.State{}, rules.Validationf("character_id", "must not be empty")
	}
	st, err := s.store.Get(ctx, id)
	if err != nil {
		return character.State{}, err
	}
	return st.Rebuild(s.effects), nil
}

// ActivateAbility resolves one activation and persists every changed
// character.
//
// Postcondition: The caster and every character the activation could reach
// are locked for the duration of the call.
func (s *Service) ActivateAbility(ctx context.Context, in ActivateInput) (ability.Activation, error) {
	ctx, span := s.tracer.Start(ctx, "gameserver.ActivateAbility", trace.WithAttributes(
		attribute.String("ability.id", in.AbilityID),
		attribute.String("caster.id", in.CasterID),
	))
	defer span.End()

	if in.CasterID == "" {
		return ability.Activation{}, rules.Validationf("caster_id", "must not be empty")
	}
	rel, err := s.relations.Relations(ctx, in.CasterID)
	if err != nil {
		return ability.Activation{}, fmt.Errorf("loading relationships: %w", err)
	}

	ids := []string{in.CasterID}
	if in.TargetID != "" {
		ids = append(ids, in.TargetID)
	}
	ids = append(ids, in.Nearby...)
	ids = append(ids, rel.Allies...)
	ids = append(ids, rel.Enemies...)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	var act ability.Activation
	err = s.withLocks(ctx, ids, func() error {
		states, err := s.load(ctx, ids)
		if err != nil {
			return err
		}
		act, err = s.activator.Activate(ability.Request{
			AbilityID:  in.AbilityID,
			Mode:       in.Mode,
			CasterID:   in.CasterID,
			TargetID:   in.TargetID,
			Nearby:     in.Nearby,
			Allies:     rel.Allies,
			Enemies:    rel.Enemies,
			Characters: states,
			At:         s.now(),
		})
		if err != nil {
			return err
		}
		return s.store.SaveAll(ctx, sortedStates(act.States))
	})
	if err != nil {
		span.RecordError(err)
		return ability.Activation{}, err
	}

	span.SetAttributes(attribute.Int("targets", len(act.Targets)))
	s.logger.Info("ability activated",
		zap.String("ability", in.AbilityID),
		zap.String("mode", in.Mode.String()),
		zap.String("caster", in.CasterID),
		zap.Int("targets", len(act.Targets)),
		zap.Int("mutated", len(act.States)),
	)
	return act, nil
}

// ProcessTurn advances one character by a turn and persists the result.
func (s *Service) ProcessTurn(ctx context.Context, id string) (character.TurnResult, error) {
	ctx, span := s.tracer.Start(ctx, "gameserver.ProcessTurn", trace.WithAttributes(attribute.String("character.id", id)))
	defer span.End()

	if id == "" {
		return character.TurnResult{}, rules.Validationf("character_id", "must not be empty")
	}
	var res character.TurnResult
	err := s.withLocks(ctx, []string{id}, func() error {
		st, err := s.store.Get(ctx, id)
		if err != nil {
			return err
		}
		res, err = character.ProcessTurn(st.Rebuild(s.effects), s.activator.TurnContext())
		if err != nil {
			return err
		}
		return s.store.SaveAll(ctx, []character.State{res.State})
	})
	if err != nil {
		span.RecordError(err)
		return character.TurnResult{}, err
	}
	s.logger.Debug("turn processed",
		zap.String("character", id),
		zap.Int("expired", len(res.Expired)),
		zap.Int("healed", res.Healed),
		zap.Int("damaged", res.Damaged),
	)
	return res, nil
}

// SceneEnd is the per-character outcome of EndScene.
type SceneEnd struct {
	State   character.State
	Removed []effect.Active
}

// EndScene removes every Scene effect from the listed characters.
func (s *Service) EndScene(ctx context.Context, ids []string) ([]SceneEnd, error) {
	ctx, span := s.tracer.Start(ctx, "gameserver.EndScene", trace.WithAttributes(attribute.StringSlice("character.ids", ids)))
	defer span.End()

	if len(ids) == 0 {
		return nil, rules.Validationf("character_ids", "must not be empty")
	}
	keys := slices.Clone(ids)
	slices.Sort(keys)
	keys = slices.Compact(keys)

	var out []SceneEnd
	err := s.withLocks(ctx, keys, func() error {
		states, err := s.load(ctx, keys)
		if err != nil {
			return err
		}
		changed := make([]character.State, 0, len(keys))
		for _, id := range keys {
			st, ok := states[id]
			if !ok {
				return rules.NotFound("character", id)
			}
			next, removed := character.EndScene(st, s.effects)
			out = append(out, SceneEnd{State: next, Removed: removed})
			if len(removed) > 0 {
				changed = append(changed, next)
			}
		}
		if len(changed) == 0 {
			return nil
		}
		return s.store.SaveAll(ctx, changed)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return out, nil
}

func sortedStates(m map[string]character.State) []character.State {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]character.State, 0, len(ids))
	for _, id := range ids {
		out = append(out, m[id])
	}
	return out
}
