// Package vote contains the per-layer refresh rate preferences consumed by
// the selection engine.
package vote

import "fmt"

// Type describes the different options a layer can vote for.
type Type int

const (
	// NoVote means the layer does not care about the refresh rate.
	NoVote Type = iota
	// Min asks for the minimal refresh rate currently available.
	Min
	// Max asks for the maximal refresh rate currently available.
	Max
	// Heuristic carries a rate the platform inferred for the layer.
	Heuristic
	// ExplicitDefault carries a rate the app requested with default
	// compatibility; candidates that do not divide evenly are still eligible.
	ExplicitDefault
	// ExplicitExactOrMultiple carries a rate the app requested with
	// exact-or-multiple compatibility; only candidates whose period evenly
	// divides the desired period (or is an exact multiple of it) qualify.
	ExplicitExactOrMultiple
)

func (t Type) String() string {
	switch t {
	case NoVote:
		return "NoVote"
	case Min:
		return "Min"
	case Max:
		return "Max"
	case Heuristic:
		return "Heuristic"
	case ExplicitDefault:
		return "ExplicitDefault"
	case ExplicitExactOrMultiple:
		return "ExplicitExactOrMultiple"
	default:
		return "Unknown"
	}
}

// ParseType maps a vote's wire name back to its Type.
func ParseType(s string) (Type, error) {
	switch s {
	case "NoVote":
		return NoVote, nil
	case "Min":
		return Min, nil
	case "Max":
		return Max, nil
	case "Heuristic":
		return Heuristic, nil
	case "ExplicitDefault":
		return ExplicitDefault, nil
	case "ExplicitExactOrMultiple":
		return ExplicitExactOrMultiple, nil
	default:
		return NoVote, fmt.Errorf("%w: %q", ErrUnknownVote, s)
	}
}

// Scores reports whether the vote contributes a numeric per-candidate score
// (as opposed to abstaining or forcing an extreme).
func (t Type) Scores() bool {
	return t == Heuristic || t == ExplicitDefault || t == ExplicitExactOrMultiple
}

// LayerRequirement captures one visible layer's requirements for a refresh
// rate. Instances are consumed within a single selection call and never
// stored.
type LayerRequirement struct {
	// Name is the layer's name, used for debugging only.
	Name string
	// Vote is the layer's vote type.
	Vote Type
	// DesiredFPS is the layer's desired refresh rate, when applicable.
	DesiredFPS float64
	// Weight is in [0, 1]; the higher the weight the more impact the layer
	// has on choosing the refresh rate.
	Weight float64
}
