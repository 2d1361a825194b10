package mrchain

import "fmt"

// StageKind discriminates map stages from reduce stages.
type StageKind int

const (
	MapKind StageKind = iota
	ReduceKind
)

func (k StageKind) String() string {
	if k == MapKind {
		return "map"
	}
	return "reduce"
}

// StageSpec describes one processing stage independent of execution. Engines
// receive StageSpecs through Engine.CreateJob; exactly one of Map or Reduce
// is non-nil, matching Kind.
type StageSpec struct {
	Name   string
	Kind   StageKind
	Map    Mapper
	Reduce Reducer
}

func (s *StageSpec) String() string {
	return fmt.Sprintf("%s(%s)", s.Kind, s.Name)
}

// Stage is a typed stage descriptor. The type parameters declare the
// key/value schema the stage consumes (KIN, VIN) and produces (KOUT, VOUT).
// They are phantom parameters: data stays loosely typed at runtime, but Then
// rejects chains whose schemas do not line up.
type Stage[KIN, VIN, KOUT, VOUT any] struct {
	spec *StageSpec
}

// Spec exposes the untyped descriptor, e.g. for submitting directly to an
// engine in tests.
func (s Stage[KIN, VIN, KOUT, VOUT]) Spec() *StageSpec { return s.spec }

// MapStage declares a map stage running the given Mapper.
func MapStage[KIN, VIN, KOUT, VOUT any](name string, m Mapper) Stage[KIN, VIN, KOUT, VOUT] {
	return Stage[KIN, VIN, KOUT, VOUT]{spec: &StageSpec{
		Name: name,
		Kind: MapKind,
		Map:  m,
	}}
}

// ReduceStage declares a reduce stage running the given Reducer.
func ReduceStage[KIN, VIN, KOUT, VOUT any](name string, r Reducer) Stage[KIN, VIN, KOUT, VOUT] {
	return Stage[KIN, VIN, KOUT, VOUT]{spec: &StageSpec{
		Name:   name,
		Kind:   ReduceKind,
		Reduce: r,
	}}
}
