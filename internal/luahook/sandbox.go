package luahook

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/ast"
	"github.com/yuin/gopher-lua/parse"
)

const (
	sandboxTimeoutViolation     = "sandbox timeout"
	sandboxInstructionViolation = "sandbox instruction limit"
)

// ErrViolation wraps sandbox limit violations.
var ErrViolation = errors.New("lua sandbox violation")

// Limits bounds a hook run. Zero disables a limit.
type Limits struct {
	TimeoutMs        int
	InstructionLimit int
}

func newSandboxLuaState() *lua.LState {
	L := lua.NewState(lua.Options{
		SkipOpenLibs:     true,
		RegistrySize:     256,
		RegistryMaxSize:  4096,
		RegistryGrowStep: 0,
	})
	openLib := func(name string, f lua.LGFunction) {
		L.Push(L.NewFunction(f))
		L.Push(lua.LString(name))
		L.Call(1, 0)
	}
	openLib(lua.BaseLibName, lua.OpenBase)
	openLib(lua.StringLibName, lua.OpenString)
	openLib(lua.TabLibName, lua.OpenTable)
	openLib(lua.MathLibName, lua.OpenMath)
	// The base library can reach the filesystem.
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}

// unboundedLoopCost is charged for a loop whose trip count is not a
// constant: while, repeat, generic for, and numeric for with computed bounds.
const unboundedLoopCost = 1_000_000

// instructionLimitWouldTrip is a static cost estimate: gopher-lua has no
// instruction hook, so the limit is checked against the parsed chunk before
// it runs. Each statement costs one; a numeric for with literal bounds costs
// its trip count times its body; any other loop costs unboundedLoopCost.
func instructionLimitWouldTrip(code string, instructionLimit int) bool {
	if instructionLimit <= 0 {
		return false
	}
	stmts, err := parse.Parse(strings.NewReader(code), chunkName)
	if err != nil {
		// LoadString reports the syntax error.
		return false
	}
	return blockCost(stmts) > int64(instructionLimit)
}

func blockCost(stmts []ast.Stmt) int64 {
	var cost int64
	for _, st := range stmts {
		cost = addCost(cost, stmtCost(st))
	}
	return cost
}

func stmtCost(st ast.Stmt) int64 {
	switch x := st.(type) {
	case *ast.NumberForStmt:
		n, ok := tripCount(x)
		if !ok {
			return addCost(unboundedLoopCost, blockCost(x.Stmts))
		}
		return mulCost(n, addCost(1, blockCost(x.Stmts)))
	case *ast.GenericForStmt:
		return addCost(unboundedLoopCost, blockCost(x.Stmts))
	case *ast.WhileStmt:
		return addCost(unboundedLoopCost, blockCost(x.Stmts))
	case *ast.RepeatStmt:
		return addCost(unboundedLoopCost, blockCost(x.Stmts))
	case *ast.DoBlockStmt:
		return addCost(1, blockCost(x.Stmts))
	case *ast.IfStmt:
		return addCost(1, addCost(blockCost(x.Then), blockCost(x.Else)))
	case *ast.GotoStmt:
		return unboundedLoopCost
	default:
		return 1
	}
}

// tripCount evaluates `for i = a, b[, c]` when a, b and c are numeric
// literals, optionally negated.
func tripCount(st *ast.NumberForStmt) (int64, bool) {
	init, ok := literal(st.Init)
	if !ok {
		return 0, false
	}
	limit, ok := literal(st.Limit)
	if !ok {
		return 0, false
	}
	step := 1.0
	if st.Step != nil {
		if step, ok = literal(st.Step); !ok || step == 0 {
			return 0, false
		}
	}
	n := math.Floor((limit-init)/step) + 1
	if n <= 0 {
		return 0, true
	}
	if n > math.MaxInt32 {
		return 0, false
	}
	return int64(n), true
}

func literal(e ast.Expr) (float64, bool) {
	switch x := e.(type) {
	case *ast.NumberExpr:
		f, err := strconv.ParseFloat(x.Value, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case *ast.UnaryMinusOpExpr:
		f, ok := literal(x.Expr)
		return -f, ok
	default:
		return 0, false
	}
}

const costCap = math.MaxInt64 / 2

func addCost(a, b int64) int64 {
	if a+b > costCap || a+b < 0 {
		return costCap
	}
	return a + b
}

func mulCost(a, b int64) int64 {
	if a != 0 && b > costCap/a {
		return costCap
	}
	return a * b
}

func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "deadline") || strings.Contains(msg, "context canceled")
}

// run executes code with globals set and returns its single result.
func run(ctx context.Context, globals map[string]any, code string, lim Limits) (any, error) {
	if instructionLimitWouldTrip(code, lim.InstructionLimit) {
		return nil, violation(sandboxInstructionViolation)
	}

	L := newSandboxLuaState()
	defer L.Close()

	if lim.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(lim.TimeoutMs)*time.Millisecond)
		defer cancel()
	}
	L.SetContext(ctx)

	for k, v := range globals {
		L.SetGlobal(k, toLValue(L, v))
	}

	fn, err := L.LoadString(code)
	if err != nil {
		return nil, err
	}
	L.Push(fn)
	if err := L.PCall(0, 1, nil); err != nil {
		if isTimeoutError(err) {
			return nil, violation(sandboxTimeoutViolation)
		}
		return nil, err
	}
	ret := L.Get(-1)
	L.Pop(1)
	return fromLValue(ret), nil
}

func violation(msg string) error {
	return &violationError{msg: msg}
}

type violationError struct{ msg string }

func (e *violationError) Error() string { return e.msg }
func (e *violationError) Unwrap() error { return ErrViolation }
