package backend

import "github.com/deepsen/smli/internal/schema"

// planEnvelope is the interchange document handed to an external engine: a
// schema tag, Steps, and one type-descriptor entry per free variable. Steps
// is a readable description of the operator tree; the envelope carries no
// engine plan-language field (the real engine's logical-plan language is out
// of this package's scope; this is only the envelope an external bridge
// would wrap it in).
type planEnvelope struct {
	Schema   string            `json:"schema"`
	Steps    []string          `json:"steps"`
	FreeVars []freeVarEnvelope `json:"free_vars"`
}

type freeVarEnvelope struct {
	Name string         `json:"name"`
	Type TypeDescriptor `json:"type"`
}

// PlanSchemaV1 tags the envelope EncodePlan produces.
const PlanSchemaV1 = "smli.plan/v1"

// EncodePlan renders the deterministic JSON envelope for a pushed-down
// plan. steps is a human-readable description of each operator in the
// tree, in execution order.
func EncodePlan(steps []string, freeVars []FreeVar) ([]byte, error) {
	env := planEnvelope{Schema: PlanSchemaV1, Steps: steps}
	for _, fv := range freeVars {
		env.FreeVars = append(env.FreeVars, freeVarEnvelope{Name: fv.Name, Type: fv.Type})
	}
	data, err := schema.MarshalDeterministic(env)
	if err != nil {
		return nil, err
	}
	return schema.FormatJSON(data)
}
