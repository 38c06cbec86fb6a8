package tasks

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LocalReachableFunc reports whether a local backend is reachable. This is a
// connectivity hint supplied by the host application, not a network probe;
// resolution must stay free of blocking I/O.
type LocalReachableFunc func(backendID string) bool

// Options modifies a single resolution
type Options struct {
	// ExplicitBackend forces a backend to the front of the ordering,
	// overriding every heuristic
	ExplicitBackend string
}

// Resolution is the outcome of resolving a task to a backend preference list
type Resolution struct {
	// Backends is the preference ordering, primary first, deduplicated
	Backends []string

	// CostTable maps backend id to estimated USD cost per 1k tokens
	CostTable map[string]float64

	// UsedLocal reports whether the local backend was promoted to primary
	UsedLocal bool

	// Route is the table entry the ordering came from
	Route Route
}

// Resolver maps a logical task to an ordered backend preference list and
// cost table. It is pure: no I/O, no clock, no network.
type Resolver struct {
	routes         map[Task]Route
	costTable      map[string]float64
	localBackend   string
	localReachable LocalReachableFunc
}

// NewResolver creates a resolver over the given routing table and cost table.
// Pass nil for either to use the defaults. A caller-supplied table missing
// the general route gets it backfilled from the defaults, since general is
// the fallback arm for every unknown task. localBackend names the on-host
// backend promoted by prefer-local routes ("ollama" by convention);
// localReachable may be nil, which disables local promotion.
func NewResolver(routes map[Task]Route, costTable map[string]float64, localBackend string, localReachable LocalReachableFunc) *Resolver {
	if routes == nil {
		routes = DefaultRoutes()
	}
	if _, ok := routes[TaskGeneral]; !ok {
		merged := make(map[Task]Route, len(routes)+1)
		for task, route := range routes {
			merged[task] = route
		}
		merged[TaskGeneral] = DefaultRoutes()[TaskGeneral]
		routes = merged
	}
	if costTable == nil {
		costTable = DefaultCostTable()
	}
	return &Resolver{
		routes:         routes,
		costTable:      costTable,
		localBackend:   localBackend,
		localReachable: localReachable,
	}
}

// Resolve returns the backend ordering for a task. Unknown tasks resolve via
// the general route rather than failing. Explicit backend choice takes
// precedence over prefer-local promotion and the configured ordering.
func (r *Resolver) Resolve(task Task, opts Options) Resolution {
	route, ok := r.routes[task]
	if !ok {
		route = r.routes[TaskGeneral]
	}

	ordering := route.Backends()
	usedLocal := false

	if route.PreferLocal && r.localBackend != "" && r.localReachable != nil && r.localReachable(r.localBackend) {
		ordering = append([]string{r.localBackend}, ordering...)
		usedLocal = true
	}

	if opts.ExplicitBackend != "" {
		ordering = append([]string{opts.ExplicitBackend}, ordering...)
		usedLocal = opts.ExplicitBackend == r.localBackend
	}

	return Resolution{
		Backends:  dedupe(ordering),
		CostTable: r.costTable,
		UsedLocal: usedLocal,
		Route:     route,
	}
}

// CostPer1K returns the estimated USD cost per 1k tokens for a backend,
// zero when the backend is not in the table
func (r *Resolver) CostPer1K(backendID string) float64 {
	return r.costTable[backendID]
}

// routesFile is the YAML shape of a routing table override file
type routesFile struct {
	Routes []Route            `yaml:"routes"`
	Costs  map[string]float64 `yaml:"costs"`
}

// LoadRoutes reads routing table overrides from a YAML file and merges them
// over the defaults. Unknown tasks in the file are rejected; a route naming
// no primary backend is a configuration error.
func LoadRoutes(path string) (map[Task]Route, map[string]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	var file routesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, nil, err
	}

	routes := DefaultRoutes()
	for _, route := range file.Routes {
		if route.Primary == "" {
			return nil, nil, fmt.Errorf("route for task %q has no primary backend", route.Task)
		}
		canonical := ParseTask(string(route.Task))
		if canonical == TaskGeneral && route.Task != TaskGeneral {
			return nil, nil, fmt.Errorf("unknown task %q in routes file", route.Task)
		}
		route.Task = canonical
		routes[canonical] = route
	}

	costs := DefaultCostTable()
	for backend, cost := range file.Costs {
		if cost < 0 {
			return nil, nil, fmt.Errorf("negative cost for backend %q", backend)
		}
		costs[backend] = cost
	}

	return routes, costs, nil
}

// dedupe removes duplicate backend ids, keeping first occurrence
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
