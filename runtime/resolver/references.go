package resolver

import "strings"

// Reference describes one variable reference found in a template span.
type Reference struct {
	// Root is the leading identifier of the referenced path.
	Root string
	// Path is the full dotted/indexed path text.
	Path string
	// Dotted reports whether the reference descends below its root.
	Dotted bool
}

// References extracts the variable references of every ${...} span in a
// template; escaped $${...} spans and malformed expressions are skipped.
func References(template string) []Reference {
	if !strings.Contains(template, "${") {
		return nil
	}
	work := strings.ReplaceAll(template, "$$", escapeSentinel)
	var result []Reference
	i := 0
	for {
		idx := strings.Index(work[i:], "${")
		if idx == -1 {
			break
		}
		start := i + idx
		end := findMatchingClosingBrace(work[start:])
		if end == -1 {
			break
		}
		if expr, err := parseExpression(work[start+2 : start+end]); err == nil {
			for _, aTerm := range expr.terms {
				if len(aTerm.path) == 0 {
					continue
				}
				result = append(result, Reference{
					Root:   aTerm.path[0].name,
					Path:   pathText(aTerm.path),
					Dotted: len(aTerm.path) > 1,
				})
			}
		}
		i = start + end + 1
	}
	return result
}
