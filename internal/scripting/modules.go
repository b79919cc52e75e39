package scripting

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/rpcombat/internal/game/dice"
	"github.com/cory-johannsen/rpcombat/internal/game/effect"
	"github.com/cory-johannsen/rpcombat/internal/game/stats"
)

// RegisterModules exposes the formula environment to L:
//
//	caster, target          tables keyed by lower-case attribute name
//	target_hp, target_max_hp numbers
//	tier(v)                 the tier-table modifier for v
//	roll(expr)              the total of a dice expression such as "1d6+1"
//
// Precondition: L must be from NewSandboxedState.
func RegisterModules(L *lua.LState, env effect.FormulaEnv) {
	L.SetGlobal("caster", attributeTable(L, env.Caster))
	L.SetGlobal("target", attributeTable(L, env.Target))
	L.SetGlobal("target_hp", lua.LNumber(env.TargetHP))
	L.SetGlobal("target_max_hp", lua.LNumber(env.TargetMaxHP))

	L.SetGlobal("tier", L.NewFunction(func(L *lua.LState) int {
		v := L.CheckInt(1)
		L.Push(lua.LNumber(env.Tier.Modifier(v)))
		return 1
	}))
	L.SetGlobal("roll", L.NewFunction(func(L *lua.LState) int {
		expr := L.CheckString(1)
		if env.Source == nil {
			L.RaiseError("roll(%q): no die source", expr)
			return 0
		}
		r, err := dice.RollExpr(expr, env.Source)
		if err != nil {
			L.RaiseError("roll(%q): %s", expr, err.Error())
			return 0
		}
		L.Push(lua.LNumber(r.Total()))
		return 1
	}))
}

func attributeTable(L *lua.LState, a stats.Attributes) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("physical", lua.LNumber(a.Physical))
	t.RawSetString("dexterity", lua.LNumber(a.Dexterity))
	t.RawSetString("mental", lua.LNumber(a.Mental))
	t.RawSetString("perception", lua.LNumber(a.Perception))
	return t
}
