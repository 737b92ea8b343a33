// Package resolver renders ${...} templates against a nested key/value
// context. An expression is a dotted attribute/index path, optionally chained
// with built-in filters and/or ||-separated fallbacks; $${...} escapes to a
// literal ${...}. Context entries whose own values are templates are
// pre-resolved with a bounded pass budget; entries that would need to resolve
// themselves surface as a cycle error naming the offending keys.
package resolver

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/viant/stepflow/internal/clock"
	"github.com/viant/structology/visitor"
	"github.com/viant/toolbox"
)

// escapeSentinel temporarily protects the literal $$ marker during rendering.
const escapeSentinel = "\x00"

// DefaultMaxPasses bounds recursive pre-resolution and rendering passes.
const DefaultMaxPasses = 5

// Service resolves templates.
type Service struct {
	maxPasses int
	funcs     map[string]Function
}

// Option customises the resolver.
type Option func(*Service)

// WithMaxPasses overrides the recursive resolution pass budget.
func WithMaxPasses(passes int) Option {
	return func(s *Service) {
		if passes > 0 {
			s.maxPasses = passes
		}
	}
}

// WithFunction registers or replaces a built-in function.
func WithFunction(name string, fn Function) Option {
	return func(s *Service) {
		s.funcs[name] = fn
	}
}

// New creates a resolver service.
func New(options ...Option) *Service {
	s := &Service{
		maxPasses: DefaultMaxPasses,
		funcs:     builtinFunctions(),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Resolve renders a template to a string. A template without ${ is returned
// unchanged without touching the context.
func (s *Service) Resolve(template string, ctx map[string]interface{}) (string, error) {
	if !strings.Contains(template, "${") {
		return template, nil
	}
	if ctx == nil {
		ctx = map[string]interface{}{}
	}
	s.ensureSystem(ctx)
	s.preResolve(ctx)

	work := strings.ReplaceAll(template, "$$", escapeSentinel)
	for pass := 0; pass < s.maxPasses; pass++ {
		out, err := s.renderOnce(work, ctx)
		if err != nil {
			return "", err
		}
		stable := out == work || !strings.Contains(out, "${")
		work = out
		if stable {
			break
		}
	}
	if strings.Contains(work, "${") {
		if keys := s.cycleKeys(work, ctx); len(keys) > 0 {
			return "", cycleError(keys)
		}
	}
	return strings.ReplaceAll(work, escapeSentinel, "$"), nil
}

// ResolveValue behaves like Resolve but preserves the native type when the
// whole template is a single ${...} token, so that step inputs keep ints,
// bools and structures instead of their string form.
func (s *Service) ResolveValue(template string, ctx map[string]interface{}) (interface{}, error) {
	if !strings.Contains(template, "${") {
		return template, nil
	}
	if !strings.HasPrefix(template, "${") || findMatchingClosingBrace(template) != len(template)-1 {
		return s.Resolve(template, ctx)
	}
	if ctx == nil {
		ctx = map[string]interface{}{}
	}
	s.ensureSystem(ctx)
	s.preResolve(ctx)

	value, err := s.evaluate(template[2:len(template)-1], ctx)
	if err != nil {
		return nil, err
	}
	if text, ok := value.(string); ok && strings.Contains(text, "${") {
		return s.Resolve(text, ctx)
	}
	return value, nil
}

// ResolveAll recursively traverses maps and slices, resolving any string that
// carries a template.
func (s *Service) ResolveAll(value interface{}, ctx map[string]interface{}) (interface{}, error) {
	switch actual := value.(type) {
	case map[string]interface{}:
		expanded := make(map[string]interface{})
		visit := visitor.MapVisitorOf[string, interface{}](actual)
		err := visit(func(key string, element interface{}) (bool, error) {
			expandedKey := key
			if strings.Contains(key, "${") {
				resolved, err := s.Resolve(key, ctx)
				if err != nil {
					return false, err
				}
				expandedKey = resolved
			}
			resolved, err := s.ResolveAll(element, ctx)
			if err != nil {
				return false, err
			}
			expanded[expandedKey] = resolved
			return true, nil
		})
		return expanded, err
	case []interface{}:
		expanded := make([]interface{}, len(actual))
		for i, item := range actual {
			resolved, err := s.ResolveAll(item, ctx)
			if err != nil {
				return nil, err
			}
			expanded[i] = resolved
		}
		return expanded, nil
	case string:
		return s.ResolveValue(actual, ctx)
	default:
		return actual, nil
	}
}

// ensureSystem seeds the reserved system namespace used by templates such as
// ${system.timestamp}.
func (s *Service) ensureSystem(ctx map[string]interface{}) {
	if _, ok := ctx["system"]; ok {
		return
	}
	now := clock.Now()
	ctx["system"] = map[string]interface{}{
		"timestamp": now.UTC().Format(time.RFC3339),
		"epoch":     now.Unix(),
	}
}

// preResolve rewrites context entries whose own string values are templates,
// repeating until stable or the pass budget is exhausted. Entries that fail
// to resolve are left untouched; the failure surfaces later only when a
// template actually needs them.
func (s *Service) preResolve(ctx map[string]interface{}) {
	terminal := map[string]bool{}
	for pass := 0; pass < s.maxPasses; pass++ {
		changed := false
		for key, value := range ctx {
			text, ok := value.(string)
			if !ok || terminal[key] || !strings.Contains(text, "${") {
				continue
			}
			out, err := s.renderOnce(text, ctx)
			if err != nil {
				terminal[key] = true
				continue
			}
			if out != text {
				ctx[key] = out
				changed = true
			}
		}
		if !changed {
			break
		}
	}
}

// renderOnce substitutes every ${...} span exactly once, left to right,
// without rescanning substituted text; recursive values converge across the
// caller's pass loop instead.
func (s *Service) renderOnce(work string, ctx map[string]interface{}) (string, error) {
	var b strings.Builder
	i := 0
	for {
		idx := strings.Index(work[i:], "${")
		if idx == -1 {
			b.WriteString(work[i:])
			break
		}
		start := i + idx
		b.WriteString(work[i:start])
		end := findMatchingClosingBrace(work[start:])
		if end == -1 {
			return "", syntaxError(work[start:], "missing closing brace")
		}
		value, err := s.evaluate(work[start+2:start+end], ctx)
		if err != nil {
			return "", err
		}
		b.WriteString(stringifyValue(value))
		i = start + end + 1
	}
	return b.String(), nil
}

// evaluate resolves one expression: the first ||-alternative producing a
// non-empty, non-null value wins; a reference absent with no fallback is a
// resolution error.
func (s *Service) evaluate(exprText string, ctx map[string]interface{}) (interface{}, error) {
	expr, err := parseExpression(exprText)
	if err != nil {
		return nil, err
	}
	anyFound := false
	var lastValue interface{}
	for _, aTerm := range expr.terms {
		value, found, err := s.evalTerm(aTerm, ctx)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		anyFound = true
		lastValue = value
		if !isEmpty(value) {
			return value, nil
		}
	}
	if anyFound {
		return lastValue, nil
	}
	return nil, missingError(exprText)
}

func (s *Service) evalTerm(aTerm *term, ctx map[string]interface{}) (interface{}, bool, error) {
	var value interface{}
	switch {
	case aTerm.hasLit:
		value = aTerm.literal
	case aTerm.call != nil:
		fn, ok := s.funcs[aTerm.call.name]
		if !ok {
			return nil, false, syntaxError(aTerm.call.name, "unknown function %q", aTerm.call.name)
		}
		result, err := fn(evalArguments(aTerm.call.args, ctx))
		if err != nil {
			return nil, false, err
		}
		value = result
	default:
		resolved, ok := navigate(aTerm.path, ctx)
		if !ok {
			return nil, false, nil
		}
		value = resolved
	}
	value, err := s.applyFilters(value, aTerm.filters, ctx)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// cycleKeys classifies leftover ${...} spans after the pass budget: the
// closure of context entries that keep referencing each other through their
// own template values.
func (s *Service) cycleKeys(work string, ctx map[string]interface{}) []string {
	pending := extractRoots(work)
	seen := map[string]bool{}
	for len(pending) > 0 {
		key := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		if seen[key] {
			continue
		}
		text, ok := ctx[key].(string)
		if !ok || !strings.Contains(text, "${") {
			continue
		}
		seen[key] = true
		pending = append(pending, extractRoots(text)...)
	}
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// extractRoots returns the leading identifiers of all path terms in every
// ${...} span of the given text.
func extractRoots(text string) []string {
	var roots []string
	i := 0
	for {
		idx := strings.Index(text[i:], "${")
		if idx == -1 {
			break
		}
		start := i + idx
		end := findMatchingClosingBrace(text[start:])
		if end == -1 {
			break
		}
		if expr, err := parseExpression(text[start+2 : start+end]); err == nil {
			for _, aTerm := range expr.terms {
				if root := aTerm.rootName(); root != "" {
					roots = append(roots, root)
				}
			}
		}
		i = start + end + 1
	}
	return roots
}

// findMatchingClosingBrace finds the position of the matching closing brace
// for an expression starting with "${". It accounts for nested braces.
func findMatchingClosingBrace(s string) int {
	if !strings.HasPrefix(s, "${") {
		return -1
	}
	depth := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '{' {
			depth++
		} else if s[i] == '}' {
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// Truthy reports whether a resolved guard value gates a step in.
func Truthy(value interface{}) bool {
	switch actual := value.(type) {
	case nil:
		return false
	case bool:
		return actual
	case string:
		switch strings.ToLower(strings.TrimSpace(actual)) {
		case "", "false", "0", "no", "none", "null", "nil":
			return false
		}
		return true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return toolbox.AsFloat(actual) != 0
	}
	return true
}

// stringifyValue converts a value to its string representation for interpolation
func stringifyValue(val interface{}) string {
	if val == nil {
		return ""
	}
	v := reflect.ValueOf(val)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64)
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	case reflect.String:
		return v.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}
