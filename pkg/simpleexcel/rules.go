package simpleexcel

import (
	"fmt"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// RuleTemplate styles a cell when its expression holds:
//
//	highlight:
//	  - when: value < 0
//	    style: {font_color: FF0000}
//	  - when: blank
//	    style: {background: FFEB9C}
//
// Expressions see the cell as value (number, string, bool, time or nil),
// its display text as text and blank.
type RuleTemplate struct {
	When  string         `yaml:"when"`
	Style *StyleTemplate `yaml:"style"`
}

type rule struct {
	src     string
	program *vm.Program
	style   *Style
}

// ruleVars is the expression environment. Value stays untyped so comparisons
// are checked against the cell at run time.
type ruleVars struct {
	Value interface{} `expr:"value"`
	Text  string      `expr:"text"`
	Blank bool        `expr:"blank"`
}

func ruleEnv(raw interface{}) ruleVars {
	v := ValueOf(raw)
	env := ruleVars{Text: v.String(), Blank: v.Kind == KindBlank}
	switch v.Kind {
	case KindNumber:
		env.Value = v.Number
	case KindBool:
		env.Value = v.Bool
	case KindText, KindFormula:
		env.Value = v.Text
	case KindDate, KindDateTime:
		env.Value = v.DateTime.In(time.UTC)
	}
	return env
}

// CompileRules builds a Conditional applying the style of the first rule
// whose expression is true. Expressions that fail at run time do not match.
func CompileRules(rules []RuleTemplate) (Conditional, error) {
	compiled := make([]rule, 0, len(rules))
	for i, r := range rules {
		if r.When == "" {
			return nil, fmt.Errorf("rule %d: when is required", i)
		}
		program, err := expr.Compile(r.When, expr.Env(ruleVars{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		style, err := r.Style.Style()
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		compiled = append(compiled, rule{src: r.When, program: program, style: style})
	}
	if len(compiled) == 0 {
		return nil, nil
	}

	return func(raw interface{}) *Style {
		env := ruleEnv(raw)
		for _, r := range compiled {
			out, err := expr.Run(r.program, env)
			if err != nil {
				continue
			}
			if ok, _ := out.(bool); ok {
				return r.style
			}
		}
		return nil
	}, nil
}

// chainConditionals merges the styles of all non-nil conditionals in order.
func chainConditionals(fns ...Conditional) Conditional {
	var live []Conditional
	for _, fn := range fns {
		if fn != nil {
			live = append(live, fn)
		}
	}
	switch len(live) {
	case 0:
		return nil
	case 1:
		return live[0]
	}
	return func(raw interface{}) *Style {
		layers := make([]*Style, len(live))
		for i, fn := range live {
			layers[i] = fn(raw)
		}
		return MergeAll(layers...)
	}
}
