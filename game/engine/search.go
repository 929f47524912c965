package engine

import "fmt"

// Mode selects a search strategy.
type Mode string

const (
	// ModeShortest is the round-synchronised breadth-first search that stops
	// at the first goal state; the path has the minimum number of moves.
	ModeShortest Mode = "shortest"
	// ModeBudget explores everything reachable within a move budget and keeps
	// the goal state with the most moves left over.
	ModeBudget Mode = "budget"
)

// ParseMode accepts a mode name; empty means ModeShortest.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeShortest:
		return ModeShortest, nil
	case ModeBudget:
		return ModeBudget, nil
	}
	return "", fmt.Errorf("unknown search mode %q", s)
}

// Progress is reported to an observer while a search runs.
type Progress struct {
	Mode Mode `json:"mode"`
	// Round is the completed round (shortest) or number of pops (budget).
	Round    int `json:"round"`
	Frontier int `json:"frontier"`
	Visited  int `json:"visited"`
}

// Result is the outcome of one search. A search that finds nothing is a
// normal result with Found == false, not an error.
type Result struct {
	Mode      Mode      `json:"mode"`
	Found     bool      `json:"found"`
	Solution  *Solution `json:"-"`
	Visited   int       `json:"visited"`
	Rounds    int       `json:"rounds,omitempty"`
	Expanded  int       `json:"expanded"`
	Budget    int       `json:"budget,omitempty"`
	StepsLeft int       `json:"steps_left,omitempty"`
	Truncated bool      `json:"truncated,omitempty"`
}

// Moves returns the solution length, or -1 without a solution.
func (r Result) Moves() int {
	if r.Solution == nil {
		return -1
	}
	return len(r.Solution.Steps)
}

type searchOptions struct {
	observer      func(Progress)
	stateLimit    int
	progressEvery int
}

// Option tunes a search.
type Option func(*searchOptions)

// WithObserver registers fn to receive progress. Shortest mode reports once
// per round, budget mode once every 1024 expansions.
func WithObserver(fn func(Progress)) Option {
	return func(o *searchOptions) { o.observer = fn }
}

// WithStateLimit stops a search once the visited table holds n states.
// The result is then marked Truncated and carries no solution.
func WithStateLimit(n int) Option {
	return func(o *searchOptions) { o.stateLimit = n }
}

func applyOptions(opts []Option) searchOptions {
	o := searchOptions{progressEvery: 1024}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o searchOptions) observe(p Progress) {
	if o.observer != nil {
		o.observer(p)
	}
}

func (o searchOptions) full(t visitedTable) bool {
	return o.stateLimit > 0 && len(t) >= o.stateLimit
}

// Search runs the strategy named by mode. budget is ignored by ModeShortest.
func Search(b *Board, root State, mode Mode, budget int, opts ...Option) (Result, error) {
	switch mode {
	case "", ModeShortest:
		return SearchShortest(b, root, opts...), nil
	case ModeBudget:
		if budget <= 0 || budget > MaxBudget {
			return Result{}, fmt.Errorf("%w: %d (want 1..%d)", ErrInvalidBudget, budget, MaxBudget)
		}
		return SearchBudget(b, root, budget, opts...), nil
	}
	return Result{}, fmt.Errorf("unknown search mode %q", mode)
}

// SearchShortest explores the state graph round by round from root and
// returns as soon as a move lands the player on the goal. Since each round
// is one move deeper than the last, the first goal found uses the fewest
// moves.
//
// On boards with hazards the next round is split in two: states whose
// player stands on a hazard active at their parity wait one extra round
// before being expanded. The set of reachable states is the same either way.
func SearchShortest(b *Board, root State, opts ...Option) Result {
	o := applyOptions(opts)
	res := Result{Mode: ModeShortest}

	t := visitedTable{root: {root: true}}
	if root.AtGoal(b) {
		sol := t.reconstruct(root)
		res.Found, res.Solution, res.Visited = true, &sol, 1
		return res
	}

	current := make([]State, 0, 128)
	next := make([]State, 0, 128)
	deferred := make([]State, 0, 128)
	current = append(current, root)

	for round := 0; len(current)+len(next)+len(deferred) > 0; round++ {
		for _, s := range current {
			res.Expanded++
			for _, dir := range AllDirections() {
				cand, ok := Transition(b, s, dir)
				if !ok {
					continue
				}
				if _, seen := t[cand]; seen {
					continue
				}
				t[cand] = entry{edge: Edge{Predecessor: s, Direction: dir}}

				if cand.AtGoal(b) {
					sol := t.reconstruct(cand)
					res.Found, res.Solution = true, &sol
					res.Visited, res.Rounds = len(t), round+1
					return res
				}
				if o.full(t) {
					res.Truncated, res.Visited, res.Rounds = true, len(t), round+1
					return res
				}

				if b.HazardActive(cand.Player, cand.Parity) {
					deferred = append(deferred, cand)
				} else {
					next = append(next, cand)
				}
			}
		}
		res.Rounds = round + 1
		o.observe(Progress{Mode: ModeShortest, Round: round + 1, Frontier: len(next), Visited: len(t)})

		current, next, deferred = next, deferred, current[:0]
	}

	res.Visited = len(t)
	return res
}
