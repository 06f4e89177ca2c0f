package riglogic

import (
	gomath "math"

	"gonum.org/v1/gonum/mat"

	"github.com/Faultbox/midgard-rig/pkg/formats"
)

// Activation is a neural layer's output function.
type Activation int

const (
	ActivationLinear Activation = iota
	ActivationReLU
	ActivationLeakyReLU
	ActivationTanh
	ActivationSigmoid
)

var activationNames = map[string]Activation{
	"":          ActivationLinear,
	"linear":    ActivationLinear,
	"relu":      ActivationReLU,
	"leakyrelu": ActivationLeakyReLU,
	"tanh":      ActivationTanh,
	"sigmoid":   ActivationSigmoid,
}

// ParseActivation resolves an activation name.
func ParseActivation(name string) (Activation, bool) {
	a, ok := activationNames[name]
	return a, ok
}

type layer struct {
	weights    *mat.Dense
	biases     *mat.VecDense
	activation Activation
	// alpha is the negative slope of leaky ReLU.
	alpha float64
}

// network maps gathered control values through dense layers and scatters
// the result into ML controls.
type network struct {
	name    string
	inputs  []int
	outputs []int
	layers  []layer
}

const defaultLeakyAlpha = 0.01

func compileNetwork(n formats.BHVNetwork) network {
	net := network{
		name:    n.Name,
		inputs:  append([]int(nil), n.Inputs...),
		outputs: append([]int(nil), n.Outputs...),
	}
	in := len(n.Inputs)
	for _, l := range n.Layers {
		out := len(l.Biases)
		act, _ := ParseActivation(l.Activation)
		alpha := defaultLeakyAlpha
		if len(l.Params) > 0 {
			alpha = float64(l.Params[0])
		}
		biases := make([]float64, out)
		for i, b := range l.Biases {
			biases[i] = float64(b)
		}
		net.layers = append(net.layers, layer{
			weights:    denseFromFloat32(out, in, l.Weights),
			biases:     mat.NewVecDense(out, biases),
			activation: act,
			alpha:      alpha,
		})
		in = out
	}
	return net
}

// evaluate runs the network on the control vector, writing outputs at
// mlBase + output index. a and b are scratch vectors the layers alternate
// between.
func (n *network) evaluate(controls []float64, mlBase int, a, b *mat.VecDense) {
	x := resizeVec(a, max(len(n.inputs), 1))
	for i, idx := range n.inputs {
		x.SetVec(i, controls[idx])
	}

	y := b
	for _, l := range n.layers {
		resizeVec(y, l.biases.Len())
		if l.weights != nil {
			y.MulVec(l.weights, x)
		}
		y.AddVec(y, l.biases)
		for i := 0; i < y.Len(); i++ {
			y.SetVec(i, l.activate(y.AtVec(i)))
		}
		x, y = y, x
	}

	for i, out := range n.outputs {
		controls[mlBase+out] = x.AtVec(i)
	}
}

func (l *layer) activate(v float64) float64 {
	switch l.activation {
	case ActivationReLU:
		return gomath.Max(v, 0)
	case ActivationLeakyReLU:
		if v < 0 {
			return l.alpha * v
		}
		return v
	case ActivationTanh:
		return gomath.Tanh(v)
	case ActivationSigmoid:
		return 1 / (1 + gomath.Exp(-v))
	default:
		return v
	}
}
