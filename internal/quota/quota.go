package quota

// Kind names a quota-governed resource.
type Kind string

const (
	KindGraph        Kind = "graph"
	KindNodeTemplate Kind = "node_template"
)

// Limits maps plan tiers to per-kind ceilings. The mapping is injected so new
// plans or resource kinds are data, not control flow. Graph limits come from
// the profile row when one exists; DefaultGraphs applies when it does not.
type Limits struct {
	DefaultGraphs int
	Templates     map[string]int
	DefaultTmpl   int
}

// Defaults returns the production plan table.
func Defaults() Limits {
	return Limits{
		DefaultGraphs: 20,
		Templates: map[string]int{
			"plus": 50,
		},
		DefaultTmpl: 20,
	}
}

// TemplateLimit resolves the saved-node-template ceiling for a plan.
func (l Limits) TemplateLimit(plan string) int {
	if max, ok := l.Templates[plan]; ok {
		return max
	}
	return l.DefaultTmpl
}

// GraphLimit resolves the diagram ceiling. maxGraphs is the profile value;
// zero means no profile row exists yet.
func (l Limits) GraphLimit(maxGraphs int) int {
	if maxGraphs > 0 {
		return maxGraphs
	}
	return l.DefaultGraphs
}

// Snapshot is the live usage picture attached to quota rejections.
type Snapshot struct {
	Used int    `json:"used"`
	Max  int    `json:"max"`
	Plan string `json:"plan"`
}
