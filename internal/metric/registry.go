package metric

import "rageval/internal/spec"

// Spec is a metric ready to evaluate. Its threshold always comes from configuration.
type Spec struct {
	Name           string     `json:"name"`
	Threshold      float64    `json:"threshold"`
	RequiresReason bool       `json:"requires_reason"`
	Capability     Capability `json:"-"`
}

// Registry builds Specs from the effective configuration.
type Registry struct {
	cfg spec.Config
}

// NewRegistry binds a registry to resolved settings.
func NewRegistry(cfg spec.Config) *Registry {
	return &Registry{cfg: cfg}
}

// Spec resolves a metric name into a Spec.
func (r *Registry) Spec(name string) Spec {
	name = Normalize(name)
	threshold, _ := r.cfg.Threshold(name)
	return Spec{
		Name:           name,
		Threshold:      threshold,
		RequiresReason: r.cfg.Evaluation.IncludeReason,
		Capability:     Lookup(name, r.cfg.Evaluation.CostOptimized),
	}
}

// Specs resolves names in the given order.
func (r *Registry) Specs(names []string) []Spec {
	specs := make([]Spec, 0, len(names))
	for _, name := range names {
		specs = append(specs, r.Spec(name))
	}
	return specs
}
