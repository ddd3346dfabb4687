package celengine

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// Variables visible to campaign eligibility expressions.
var eligibilityVars = map[string]*cel.Type{
	"engagements":      cel.IntType,
	"impressions":      cel.IntType,
	"likes":            cel.IntType,
	"replies":          cel.IntType,
	"quotes":           cel.IntType,
	"reposts":          cel.IntType,
	"content_count":    cel.IntType,
	"disclosure_found": cel.BoolType,
}

var (
	envOnce sync.Once
	env     *cel.Env
	envErr  error

	programCache = sync.Map{}
)

// EligibilityEnv returns the shared environment for eligibility expressions.
func EligibilityEnv() (*cel.Env, error) {
	envOnce.Do(func() {
		opts := make([]cel.EnvOption, 0, len(eligibilityVars))
		for name, typ := range eligibilityVars {
			opts = append(opts, cel.Variable(name, typ))
		}
		env, envErr = cel.NewEnv(opts...)
	})
	return env, envErr
}

func ValidateExpression(env *cel.Env, expr string) error {
	_, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return issues.Err()
	}
	return nil
}

type programKey struct {
	env  *cel.Env
	expr string
}

func program(env *cel.Env, expr string) (cel.Program, error) {
	key := programKey{env: env, expr: expr}
	if v, ok := programCache.Load(key); ok {
		return v.(cel.Program), nil
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, err
	}

	programCache.Store(key, prg)
	return prg, nil
}

// Evaluate runs a boolean expression against attrs. Compiled programs are
// cached per expression text.
func Evaluate(env *cel.Env, expr string, attrs map[string]interface{}) (bool, error) {
	prg, err := program(env, expr)
	if err != nil {
		return false, err
	}

	out, _, err := prg.Eval(attrs)
	if err != nil {
		return false, err
	}

	val := out.Value()

	b, ok := val.(bool)
	if !ok {
		return false, fmt.Errorf("expected bool from expression, got %T (%v)", val, val)
	}

	return b, nil
}
