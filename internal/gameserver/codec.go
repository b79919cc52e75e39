package gameserver

import (
	"slices"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/rpcombat/internal/game/ability"
	"github.com/cory-johannsen/rpcombat/internal/game/character"
	"github.com/cory-johannsen/rpcombat/internal/game/combat"
	"github.com/cory-johannsen/rpcombat/internal/game/effect"
	"github.com/cory-johannsen/rpcombat/internal/game/rules"
)

// Payloads travel as google.protobuf.Struct. Decoding rejects fields of the
// wrong JSON type with a validation error; absent fields read as zero.

func stringField(in *structpb.Struct, key string) (string, error) {
	v, ok := in.GetFields()[key]
	if !ok {
		return "", nil
	}
	sv, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", rules.Validationf(key, "must be a string")
	}
	return sv.StringValue, nil
}

func stringListField(in *structpb.Struct, key string) ([]string, error) {
	v, ok := in.GetFields()[key]
	if !ok {
		return nil, nil
	}
	lv, ok := v.GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, rules.Validationf(key, "must be a list of strings")
	}
	out := make([]string, 0, len(lv.ListValue.GetValues()))
	for _, item := range lv.ListValue.GetValues() {
		sv, ok := item.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, rules.Validationf(key, "must be a list of strings")
		}
		out = append(out, sv.StringValue)
	}
	return out, nil
}

func decodeActivate(in *structpb.Struct) (ActivateInput, error) {
	var (
		out ActivateInput
		err error
	)
	if out.AbilityID, err = stringField(in, "ability_id"); err != nil {
		return out, err
	}
	if out.CasterID, err = stringField(in, "caster_id"); err != nil {
		return out, err
	}
	if out.TargetID, err = stringField(in, "target_id"); err != nil {
		return out, err
	}
	if out.Nearby, err = stringListField(in, "nearby"); err != nil {
		return out, err
	}
	mode, err := stringField(in, "mode")
	if err != nil {
		return out, err
	}
	if mode == "" {
		mode = ability.ModeAbility.String()
	}
	out.Mode, err = ability.ParseMode(mode)
	return out, err
}

func encodeStruct(m map[string]any) (*structpb.Struct, error) {
	return structpb.NewStruct(m)
}

func stringsToAny(ss []string) []any {
	out := make([]any, 0, len(ss))
	for _, s := range ss {
		out = append(out, s)
	}
	return out
}

func activeToMap(a effect.Active) map[string]any {
	m := map[string]any{
		"effect_id":  a.EffectID,
		"name":       a.Name,
		"category":   a.Category.String(),
		"duration":   a.Duration.String(),
		"applied_at": a.AppliedAt.UTC().Format(time.RFC3339Nano),
	}
	if a.Attribution != (effect.Attribution{}) {
		m["attribution"] = map[string]any{
			"caster_name": a.Attribution.CasterName,
			"source_type": a.Attribution.SourceType,
			"source_id":   a.Attribution.SourceID,
		}
	}
	return m
}

func activesToAny(effects []effect.Active) []any {
	out := make([]any, 0, len(effects))
	for _, a := range effects {
		out = append(out, activeToMap(a))
	}
	return out
}

func liveToMap(l effect.LiveStats) map[string]any {
	statMap := make(map[string]any, len(l.Stats))
	for k, v := range l.Stats {
		statMap[k] = v
	}
	controls := make(map[string]any, len(l.Controls))
	for k, v := range l.Controls {
		controls[k] = v
	}
	return map[string]any{
		"stats":            statMap,
		"controls":         controls,
		"damage_reduction": l.DamageReduction,
	}
}

func stateToMap(s character.State) map[string]any {
	return map[string]any{
		"id":   s.ID,
		"name": s.Name,
		"attributes": map[string]any{
			"physical":   s.Attributes.Physical,
			"dexterity":  s.Attributes.Dexterity,
			"mental":     s.Attributes.Mental,
			"perception": s.Attributes.Perception,
		},
		"max_hp":      s.MaxHP,
		"current_hp":  s.CurrentHP,
		"unconscious": s.Unconscious(),
		"roleplay":    s.Roleplay,
		"powers":      stringsToAny(s.Powers),
		"effects":     activesToAny(s.Effects),
		"live":        liveToMap(s.Live),
	}
}

func termsToAny(terms []effect.FormulaTerm) []any {
	out := make([]any, 0, len(terms))
	for _, t := range terms {
		out = append(out, map[string]any{"name": t.Name, "value": t.Value})
	}
	return out
}

func turnToMap(r character.TurnResult) map[string]any {
	ticks := make([]any, 0, len(r.Ticks))
	for _, t := range r.Ticks {
		ticks = append(ticks, map[string]any{
			"effect_id": t.EffectID,
			"category":  t.Category.String(),
			"amount":    t.Amount,
			"terms":     termsToAny(t.Terms),
		})
	}
	return map[string]any{
		"character": stateToMap(r.State),
		"expired":   activesToAny(r.Expired),
		"healed":    r.Healed,
		"damaged":   r.Damaged,
		"ticks":     ticks,
		"remaining": r.Remaining,
	}
}

func sideToMap(s combat.Side) map[string]any {
	mods := make([]any, 0, len(s.Modifiers))
	for _, m := range s.Modifiers {
		mods = append(mods, map[string]any{"source": m.Source, "stat": string(m.Stat), "value": m.Value})
	}
	return map[string]any{
		"contestant_id": s.ContestantID,
		"die":           s.Die,
		"modifiers":     mods,
		"total":         s.Total,
	}
}

func checkToMap(c combat.CheckResult) map[string]any {
	m := map[string]any{
		"shape":         c.Shape.String(),
		"roll":          sideToMap(c.Roll),
		"tn":            c.TN,
		"success":       c.Success,
		"critical":      c.Critical,
		"critical_miss": c.CriticalMiss,
	}
	if c.Opposed != nil {
		m["opposed"] = sideToMap(*c.Opposed)
	}
	return m
}

func applyToMap(r *character.ApplyResult) map[string]any {
	damage := make([]any, 0, len(r.Damage))
	for _, d := range r.Damage {
		damage = append(damage, map[string]any{
			"effect_id":     d.EffectID,
			"terms":         termsToAny(d.Terms),
			"raw":           d.Raw,
			"critical":      d.Critical,
			"pre_reduction": d.PreReduction,
			"reduction":     d.Reduction,
			"net":           d.Net,
		})
	}
	heals := make([]any, 0, len(r.Heals))
	for _, h := range r.Heals {
		heals = append(heals, map[string]any{
			"effect_id": h.EffectID,
			"terms":     termsToAny(h.Terms),
			"amount":    h.Amount,
			"before":    h.Before,
			"after":     h.After,
			"applied":   h.Applied,
		})
	}
	return map[string]any{
		"applied":   activesToAny(r.Applied),
		"skipped":   stringsToAny(r.Skipped),
		"triggered": stringsToAny(r.Triggered),
		"damage":    damage,
		"heals":     heals,
		"hp_delta":  r.HPDelta,
		"mutated":   r.Mutated,
	}
}

func activationToMap(a ability.Activation) map[string]any {
	targets := make([]any, 0, len(a.Targets))
	for _, t := range a.Targets {
		tm := map[string]any{
			"target_id": t.TargetID,
			"check":     checkToMap(t.Check),
		}
		if t.Apply != nil {
			tm["result"] = applyToMap(t.Apply)
		}
		targets = append(targets, tm)
	}
	ids := make([]string, 0, len(a.States))
	for id := range a.States {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	chars := make([]any, 0, len(ids))
	for _, id := range ids {
		chars = append(chars, stateToMap(a.States[id]))
	}
	return map[string]any{
		"ability_id":  a.Ability.ID,
		"ability":     a.Ability.DisplayName(),
		"mode":        a.Mode.String(),
		"caster_turn": turnToMap(a.CasterTurn),
		"targets":     targets,
		"characters":  chars,
	}
}

func sceneEndsToMap(ends []SceneEnd) map[string]any {
	out := make([]any, 0, len(ends))
	for _, e := range ends {
		out = append(out, map[string]any{
			"character": stateToMap(e.State),
			"removed":   activesToAny(e.Removed),
		})
	}
	return map[string]any{"characters": out}
}
