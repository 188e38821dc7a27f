// Package filter evaluates CEL expressions over decoded store entries.
package filter

import (
	"encoding/json"
	"strings"

	"github.com/google/cel-go/cel"
)

// Input is the view of one entry an expression can see.
type Input struct {
	Feed       string // hex feed key
	Offset     uint64
	Key        string
	Value      []byte
	Deleted    bool
	Structural bool
	Clock      []uint64
}

// Filter wraps a compiled CEL program. The zero value and a Filter built
// from an empty expression match everything.
type Filter struct {
	prog    cel.Program
	enabled bool
}

// New compiles expr. Available variables: feed, offset, key, value (string),
// size, deleted, structural, clock (list of int) and json (value parsed as
// JSON, or null).
func New(expr string) (*Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return &Filter{}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("feed", cel.StringType),
		cel.Variable("offset", cel.IntType),
		cel.Variable("key", cel.StringType),
		cel.Variable("value", cel.StringType),
		cel.Variable("size", cel.IntType),
		cel.Variable("deleted", cel.BoolType),
		cel.Variable("structural", cel.BoolType),
		cel.Variable("clock", cel.ListType(cel.IntType)),
		cel.Variable("json", cel.DynType),
	)
	if err != nil {
		return nil, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return nil, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return nil, iss2.Err()
	}
	if !checked.OutputType().IsExactType(cel.BoolType) {
		return nil, errNotBool(checked.OutputType().String())
	}
	prog, err := env.Program(checked)
	if err != nil {
		return nil, err
	}
	return &Filter{prog: prog, enabled: true}, nil
}

type errNotBool string

func (e errNotBool) Error() string { return "filter: expression must be bool, got " + string(e) }

// Match evaluates the expression. Evaluation errors count as no match.
func (f *Filter) Match(in Input) bool {
	if f == nil || !f.enabled {
		return true
	}
	var jsonObj any
	if len(in.Value) > 0 {
		_ = json.Unmarshal(in.Value, &jsonObj)
	}
	clock := make([]int64, len(in.Clock))
	for i, c := range in.Clock {
		clock[i] = int64(c)
	}
	out, _, err := f.prog.Eval(map[string]any{
		"feed":       in.Feed,
		"offset":     int64(in.Offset),
		"key":        in.Key,
		"value":      string(in.Value),
		"size":       int64(len(in.Value)),
		"deleted":    in.Deleted,
		"structural": in.Structural,
		"clock":      clock,
		"json":       jsonObj,
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
