package merge

import (
	"strings"

	"github.com/mixedstack/tracer/internal/frame"
)

type (
	// Classification says whether a native frame is an interpreter
	// evaluation boundary or an ordinary frame.
	Classification int

	// MatchKind selects how a rule pattern is applied to a function name.
	MatchKind string

	// Rule is one boundary heuristic entry. Matching is case-sensitive.
	Rule struct {
		Kind    MatchKind `json:"kind"`
		Pattern string    `json:"pattern"`
	}

	// Merger interleaves a python stack into a native stack, using its rule
	// table to recognize the boundary frames where the interpreter hands
	// control to python code.
	Merger struct {
		rules []Rule
	}
)

const (
	Ordinary Classification = iota
	Boundary
)

const (
	MatchContains MatchKind = "contains"
	MatchPrefix   MatchKind = "prefix"
)

// DefaultRules returns the known names of the CPython frame evaluation entry
// points across interpreter versions. The matching is deliberately loose:
// unwinders disagree on the exact symbol names, and a false positive on a
// user function containing one of these substrings is an accepted tradeoff.
func DefaultRules() []Rule {
	return []Rule{
		{Kind: MatchContains, Pattern: "PyEval_EvalFrame"},
		{Kind: MatchContains, Pattern: "PyEval_EvalCode"},
		{Kind: MatchPrefix, Pattern: "PyEval"},
		{Kind: MatchContains, Pattern: "EvalFrameDefault"},
		{Kind: MatchContains, Pattern: "EvalFrameEx"},
	}
}

func New(rules []Rule) Merger {
	return Merger{rules: rules}
}

// Rules returns a copy of the merger's rule table.
func (m Merger) Rules() []Rule {
	rules := make([]Rule, len(m.rules))
	copy(rules, m.rules)
	return rules
}

// Classify is a pure function of the frame's function name: any rule hit
// makes the frame a Boundary, otherwise it is Ordinary.
func (m Merger) Classify(f frame.Frame) Classification {
	name := f.FunctionName()
	for _, r := range m.rules {
		switch r.Kind {
		case MatchPrefix:
			if strings.HasPrefix(name, r.Pattern) {
				return Boundary
			}
		default:
			if strings.Contains(name, r.Pattern) {
				return Boundary
			}
		}
	}
	return Ordinary
}

// Merge walks nativeFrames once, in order, and substitutes the next unconsumed
// python frame at each boundary. A boundary with no python frames left keeps
// the native frame so no native context is lost. Python frames left over after
// the walk are appended as a trailing suffix so no python frame is ever
// dropped, even when the native trace shows fewer boundaries than there are
// python frames (recursive python calls may share one native boundary).
// Neither input is ever reordered. Both inputs are outermost-first.
func (m Merger) Merge(pythonFrames, nativeFrames []frame.Frame) []frame.Frame {
	merged := make([]frame.Frame, 0, len(nativeFrames)+len(pythonFrames))
	cursor := 0
	for _, f := range nativeFrames {
		if m.Classify(f) == Boundary && cursor < len(pythonFrames) {
			merged = append(merged, pythonFrames[cursor])
			cursor++
			continue
		}
		merged = append(merged, f)
	}
	return append(merged, pythonFrames[cursor:]...)
}

// Merge interleaves the two stacks with the default boundary rules.
func Merge(pythonFrames, nativeFrames []frame.Frame) []frame.Frame {
	return New(DefaultRules()).Merge(pythonFrames, nativeFrames)
}

// Classify classifies a frame with the default boundary rules.
func Classify(f frame.Frame) Classification {
	return New(DefaultRules()).Classify(f)
}
