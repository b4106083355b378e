package metric

import (
	"sort"
	"strings"
)

// TagsOf returns the tags a metric answers to: its name and its layer.
func TagsOf(name string) TagSet {
	name = Normalize(name)
	set := TagSet{name: {}}
	if layer := LayerOf(name); layer != "" {
		set[layer] = struct{}{}
	}
	return set
}

// Select returns the native metrics satisfying expr, in canonical order.
func (r *Registry) Select(expr Expr) []Spec {
	if expr == nil {
		expr = trueExpr{}
	}
	var names []string
	for _, name := range order {
		if expr.Eval(TagsOf(name)) {
			names = append(names, name)
		}
	}
	return r.Specs(names)
}

// SelectExplicit resolves an explicit metric list. Known metrics come first in
// canonical order, followed by unknown names in the order given; duplicates drop.
func (r *Registry) SelectExplicit(names []string) []Spec {
	return r.Specs(OrderNames(names))
}

// OrderNames normalizes, dedupes and orders metric names.
func OrderNames(names []string) []string {
	seen := map[string]struct{}{}
	var ordered []string
	for _, raw := range names {
		name := Normalize(raw)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		ordered = append(ordered, name)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return rank(ordered[i]) < rank(ordered[j])
	})
	return ordered
}

// SplitList splits a comma-separated metric list.
func SplitList(text string) []string {
	var names []string
	for _, part := range strings.Split(text, ",") {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	return names
}

// SelectForScenario applies the selection rules: an explicit list or expression wins
// over scenario tags. The explicit text may be a comma list or a tag expression.
func (r *Registry) SelectForScenario(tags []string, explicit string) ([]Spec, error) {
	explicit = strings.TrimSpace(explicit)
	if explicit == "" {
		return r.Select(CompileTags(tags)), nil
	}
	if LooksLikeExpr(explicit) {
		expr, err := ParseExpr(explicit)
		if err != nil {
			return nil, err
		}
		return r.Select(expr), nil
	}
	return r.SelectExplicit(SplitList(explicit)), nil
}
