package scripting

import (
	"fmt"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
	"go.uber.org/zap"

	"github.com/cory-johannsen/rpcombat/internal/game/effect"
)

// FormulaEvaluator runs the script term of effect formulas. Each evaluation
// gets a fresh sandbox with its own instruction budget; compiled chunks are
// cached by source text.
//
// FormulaEvaluator is safe for concurrent use.
type FormulaEvaluator struct {
	instLimit int
	logger    *zap.Logger

	mu     sync.Mutex
	protos map[string]*lua.FunctionProto
}

// NewFormulaEvaluator creates a FormulaEvaluator.
//
// Precondition: logger must be non-nil; instLimit 0 uses DefaultInstructionLimit.
func NewFormulaEvaluator(instLimit int, logger *zap.Logger) *FormulaEvaluator {
	return &FormulaEvaluator{
		instLimit: instLimit,
		logger:    logger,
		protos:    make(map[string]*lua.FunctionProto),
	}
}

// Compile parses and compiles script, caching the result.
func (e *FormulaEvaluator) Compile(script string) (*lua.FunctionProto, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.protos[script]; ok {
		return p, nil
	}
	chunk, err := parse.Parse(strings.NewReader(script), "formula")
	if err != nil {
		return nil, fmt.Errorf("scripting: parsing formula: %w", err)
	}
	p, err := lua.Compile(chunk, "formula")
	if err != nil {
		return nil, fmt.Errorf("scripting: compiling formula: %w", err)
	}
	e.protos[script] = p
	return p, nil
}

// EvalFormula runs script against env and returns its numeric result
// truncated toward zero.
//
// Postcondition: Returns an error when the script fails to compile, raises,
// exceeds the instruction budget, or returns a non-number.
func (e *FormulaEvaluator) EvalFormula(script string, env effect.FormulaEnv) (int, error) {
	proto, err := e.Compile(script)
	if err != nil {
		return 0, err
	}

	L, cancel := NewSandboxedState(e.instLimit)
	defer cancel()
	defer L.Close()
	RegisterModules(L, env)

	L.Push(L.NewFunctionFromProto(proto))
	if err := L.PCall(0, 1, nil); err != nil {
		e.logger.Warn("scripting: formula runtime error", zap.Error(err))
		return 0, fmt.Errorf("scripting: running formula: %w", err)
	}
	ret := L.Get(-1)
	L.Pop(1)

	n, ok := ret.(lua.LNumber)
	if !ok {
		return 0, fmt.Errorf("scripting: formula returned %s, want number", ret.Type())
	}
	return int(n), nil
}

var _ effect.ScriptEvaluator = (*FormulaEvaluator)(nil)
