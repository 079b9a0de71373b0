package plants

import (
	"github.com/san-kum/pidsim/internal/dynamo"
	"github.com/san-kum/pidsim/internal/integrators"
)

// Kind enumerates the available plant models.
type Kind int

const (
	Reactor Kind = iota
	DCMotor
	SecondOrder
)

var kindNames = map[Kind]string{
	Reactor:     "Reactor",
	DCMotor:     "DC Motor",
	SecondOrder: "2nd Order ODE",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Reactor"
}

// Kinds lists every plant kind in display order.
func Kinds() []Kind {
	return []Kind{Reactor, DCMotor, SecondOrder}
}

// Names lists the display names of every plant kind.
func Names() []string {
	kinds := Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return names
}

// Lookup maps a display name to its kind. Matching is case-sensitive and
// unknown names select Reactor.
func Lookup(name string) Kind {
	for k, n := range kindNames {
		if n == name {
			return k
		}
	}
	return Reactor
}

type options struct {
	solver dynamo.Solver
}

type Option func(*options)

// WithSolver sets the ODE solver used by Advance. The solver is owned by
// the plant and must not be shared.
func WithSolver(s dynamo.Solver) Option {
	return func(o *options) {
		if s != nil {
			o.solver = s
		}
	}
}

// New builds a fresh plant of the given kind in its initial condition.
func New(kind Kind, opts ...Option) Plant {
	o := options{solver: integrators.NewRK45()}
	for _, opt := range opts {
		opt(&o)
	}

	switch kind {
	case DCMotor:
		return NewMotor(DefaultMotorParams(), o.solver)
	case SecondOrder:
		return NewOscillator(DefaultOscillatorParams(), o.solver)
	default:
		return NewReactor(DefaultReactorParams(), o.solver)
	}
}

// NewByName is New(Lookup(name), opts...).
func NewByName(name string, opts ...Option) Plant {
	return New(Lookup(name), opts...)
}
