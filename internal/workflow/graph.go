package workflow

import "context"

// Node names.
const (
	nodeCollect  = "collect_profile"
	nodeAnalyze  = "analyze_profile"
	nodeGenerate = "generate_content"
	nodeCompile  = "compile_results"
	nodeDone     = "done"
)

type node func(ctx context.Context, r *run, s *State)

// graph is a fixed state machine. Each edge picks the next node from the
// state left behind by the current one.
type graph struct {
	entry string
	nodes map[string]node
	edges map[string]func(*State) string
}

func newGraph() graph {
	return graph{
		entry: nodeCollect,
		nodes: map[string]node{
			nodeCollect:  collectProfile,
			nodeAnalyze:  analyzeProfile,
			nodeGenerate: generateContent,
			nodeCompile:  compileResults,
		},
		edges: map[string]func(*State) string{
			nodeCollect:  unlessCritical(nodeAnalyze),
			nodeAnalyze:  unlessCritical(nodeGenerate),
			nodeGenerate: always(nodeCompile),
			nodeCompile:  always(nodeDone),
		},
	}
}

func (g graph) run(ctx context.Context, r *run, s *State) {
	for name := g.entry; name != nodeDone; name = g.edges[name](s) {
		g.nodes[name](ctx, r, s)
	}
}

// unlessCritical jumps straight to compilation after a critical provider
// error. Any other error still moves on to next.
func unlessCritical(next string) func(*State) string {
	return func(s *State) string {
		if s.critical() {
			return nodeCompile
		}
		return next
	}
}

func always(next string) func(*State) string {
	return func(*State) string { return next }
}
