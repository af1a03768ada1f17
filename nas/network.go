package nas

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// bnEpsilon stabilizes the batch-normalization variance.
const bnEpsilon = 1e-5

// Param is one named parameter tensor of a Network.
// Biases and batch-norm scales are stored as 1×n matrices.
type Param struct {
	Name  string
	Value *mat.Dense
}

// layer is one linear layer plus its optional hidden-layer decorations.
type layer struct {
	weight      *mat.Dense // out×in
	bias        *mat.Dense // 1×out
	gamma, beta *mat.Dense // 1×out, nil unless batch normalization is enabled
	activation  Activation // empty for the output layer
	dropout     float64
	hidden      bool
}

// Network is a constructed feed-forward classifier bound to one ArchitectureConfig.
// A Network is owned by the evaluation that built it and is not safe for concurrent use.
type Network struct {
	Config    ArchitectureConfig
	InputDim  int
	OutputDim int

	layers      []*layer
	dropoutSeed int64
}

// Build constructs the network for cfg. All weights are drawn from seed so the
// same (cfg, seed) pair always produces the same network.
func Build(cfg ArchitectureConfig, inputDim, outputDim int, seed int64) (*Network, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if inputDim < 1 {
		return nil, &InvalidConfigError{Field: "input_dim", Value: inputDim, Reason: "must be >= 1"}
	}
	if outputDim < 1 {
		return nil, &InvalidConfigError{Field: "output_dim", Value: outputDim, Reason: "must be >= 1"}
	}

	rng := newRandFromSeed(seed)
	n := &Network{
		Config:    cfg,
		InputDim:  inputDim,
		OutputDim: outputDim,
		layers:    make([]*layer, 0, cfg.Depth+1),
	}

	in := inputDim
	for i := 0; i < cfg.Depth; i++ {
		ly := &layer{
			weight:     initWeight(rng, cfg.Width, in, cfg.Activation),
			bias:       mat.NewDense(1, cfg.Width, nil),
			activation: cfg.Activation,
			dropout:    cfg.DropoutRate,
			hidden:     true,
		}
		if cfg.UseBatchNorm {
			ly.gamma = filledRow(cfg.Width, 1)
			ly.beta = mat.NewDense(1, cfg.Width, nil)
		}
		n.layers = append(n.layers, ly)
		in = cfg.Width
	}
	n.layers = append(n.layers, &layer{
		weight: initWeight(rng, outputDim, in, ""),
		bias:   mat.NewDense(1, outputDim, nil),
	})
	// Drawn after the weights so adding dropout never changes the initial weights.
	n.dropoutSeed = rng.Int63()
	return n, nil
}

// initWeight draws an out×in weight matrix. Rectifiers use He normal init,
// everything else (including the output layer) Glorot normal.
func initWeight(rng *rand.Rand, out, in int, act Activation) *mat.Dense {
	var std float64
	switch act {
	case ActivationReLU, ActivationLeakyReLU, ActivationELU:
		std = math.Sqrt(2.0 / float64(in))
	default:
		std = math.Sqrt(2.0 / float64(in+out))
	}
	data := make([]float64, out*in)
	for i := range data {
		data[i] = rng.NormFloat64() * std
	}
	return mat.NewDense(out, in, data)
}

func filledRow(n int, v float64) *mat.Dense {
	data := make([]float64, n)
	for i := range data {
		data[i] = v
	}
	return mat.NewDense(1, n, data)
}

// Params returns the parameter tensors in a fixed order: per layer weight, bias,
// then batch-norm gamma and beta when present. The returned matrices alias the
// network's storage.
func (n *Network) Params() []Param {
	params := make([]Param, 0, 4*len(n.layers))
	for i, ly := range n.layers {
		prefix := fmt.Sprintf("hidden%d", i)
		if !ly.hidden {
			prefix = "output"
		}
		params = append(params,
			Param{Name: prefix + ".weight", Value: ly.weight},
			Param{Name: prefix + ".bias", Value: ly.bias},
		)
		if ly.gamma != nil {
			params = append(params,
				Param{Name: prefix + ".bn_gamma", Value: ly.gamma},
				Param{Name: prefix + ".bn_beta", Value: ly.beta},
			)
		}
	}
	return params
}

// NumParams returns the total number of scalar parameters.
func (n *Network) NumParams() int {
	total := 0
	for _, p := range n.Params() {
		r, c := p.Value.Dims()
		total += r * c
	}
	return total
}

// ParamVector flattens all parameters in Params() order.
func (n *Network) ParamVector() []float64 {
	vec := make([]float64, 0, n.NumParams())
	for _, p := range n.Params() {
		vec = append(vec, p.Value.RawMatrix().Data...)
	}
	return vec
}

// AddScaled adds h·dir to the parameters in place. dir must be laid out like ParamVector.
func (n *Network) AddScaled(dir []float64, h float64) {
	off := 0
	for _, p := range n.Params() {
		data := p.Value.RawMatrix().Data
		for i := range data {
			data[i] += h * dir[off+i]
		}
		off += len(data)
	}
	if off != len(dir) {
		panic(fmt.Sprintf("AddScaled: direction has %d entries, network has %d parameters", len(dir), off))
	}
}

// Clone returns a deep copy that shares no storage with n.
func (n *Network) Clone() *Network {
	c := &Network{
		Config:      n.Config,
		InputDim:    n.InputDim,
		OutputDim:   n.OutputDim,
		layers:      make([]*layer, len(n.layers)),
		dropoutSeed: n.dropoutSeed,
	}
	for i, ly := range n.layers {
		cp := *ly
		cp.weight = mat.DenseCopyOf(ly.weight)
		cp.bias = mat.DenseCopyOf(ly.bias)
		if ly.gamma != nil {
			cp.gamma = mat.DenseCopyOf(ly.gamma)
			cp.beta = mat.DenseCopyOf(ly.beta)
		}
		c.layers[i] = &cp
	}
	return c
}

// AbsClone returns a deep copy with every parameter replaced by its absolute value.
func (n *Network) AbsClone() *Network {
	c := n.Clone()
	for _, p := range c.Params() {
		p.Value.Apply(func(_, _ int, v float64) float64 { return math.Abs(v) }, p.Value)
	}
	return c
}

// HiddenUnits returns the number of hidden units across all hidden layers.
func (n *Network) HiddenUnits() int {
	return n.Config.Depth * n.Config.Width
}

// === Forward ===

// PassOptions selects how a forward pass treats the hidden-layer decorations.
type PassOptions struct {
	// Linear skips activations, batch normalization and dropout, leaving a
	// product of affine maps.
	Linear bool
}

type layerCache struct {
	input  *mat.Dense // N×in, the layer's input
	actIn  *mat.Dense // N×out, activation input (after batch norm if any)
	xhat   *mat.Dense // N×out, batch-normalized pre-activation; nil without batch norm
	invStd []float64  // per-unit 1/sqrt(var+eps); nil without batch norm
	mask   *mat.Dense // N×out inverted-dropout scale; nil without dropout
	out    *mat.Dense // N×out, the layer's output
}

// Pass holds the cached intermediates of one forward pass.
type Pass struct {
	Options PassOptions
	Logits  *mat.Dense
	layers  []layerCache
	net     *Network
}

// Forward runs x (N×InputDim) through the network.
// Returns an EvaluationError if any intermediate value is NaN or Inf.
func (n *Network) Forward(x *mat.Dense, opts PassOptions) (*Pass, error) {
	rows, cols := x.Dims()
	if cols != n.InputDim {
		return nil, fmt.Errorf("forward: input has %d features, network expects %d", cols, n.InputDim)
	}
	pass := &Pass{Options: opts, layers: make([]layerCache, len(n.layers)), net: n}

	a := x
	for l, ly := range n.layers {
		out, _ := ly.weight.Dims()
		z := mat.NewDense(rows, out, nil)
		z.Mul(a, ly.weight.T())
		addRow(z, ly.bias)

		c := layerCache{input: a, actIn: z}
		h := z
		if ly.hidden && !opts.Linear {
			if ly.gamma != nil {
				c.xhat, c.invStd = batchNormalize(z)
				h = mat.NewDense(rows, out, nil)
				h.Apply(func(_, j int, v float64) float64 {
					return v*ly.gamma.At(0, j) + ly.beta.At(0, j)
				}, c.xhat)
				c.actIn = h
			}
			h = activate(c.actIn, ly.activation)
			if ly.dropout > 0 {
				c.mask = n.dropoutMask(l, rows, out, ly.dropout)
				h.MulElem(h, c.mask)
			}
		}
		c.out = h
		if !allFinite(h) {
			return nil, &EvaluationError{Stage: "forward", Err: fmt.Errorf("layer %d: %w", l, errNonFinite)}
		}
		pass.layers[l] = c
		a = h
	}
	pass.Logits = a
	return pass, nil
}

// ActivationCodes returns the N×HiddenUnits binary matrix of active (>0)
// hidden-unit inputs, concatenated across hidden layers.
func (p *Pass) ActivationCodes() *mat.Dense {
	rows, _ := p.Logits.Dims()
	codes := mat.NewDense(rows, p.net.HiddenUnits(), nil)
	off := 0
	for l, ly := range p.net.layers {
		if !ly.hidden {
			continue
		}
		c := p.layers[l].actIn
		_, w := c.Dims()
		for i := 0; i < rows; i++ {
			for j := 0; j < w; j++ {
				if c.At(i, j) > 0 {
					codes.Set(i, off+j, 1)
				}
			}
		}
		off += w
	}
	return codes
}

func (n *Network) dropoutMask(l, rows, cols int, rate float64) *mat.Dense {
	rng := newRandFromSeed(n.dropoutSeed + int64(l))
	mask := mat.NewDense(rows, cols, nil)
	if rate >= 1 {
		return mask
	}
	keep := 1 / (1 - rate)
	data := mask.RawMatrix().Data
	for i := range data {
		if rng.Float64() >= rate {
			data[i] = keep
		}
	}
	return mask
}

// batchNormalize standardizes each column with batch statistics.
func batchNormalize(z *mat.Dense) (*mat.Dense, []float64) {
	rows, cols := z.Dims()
	xhat := mat.NewDense(rows, cols, nil)
	invStd := make([]float64, cols)
	for j := 0; j < cols; j++ {
		mean := 0.0
		for i := 0; i < rows; i++ {
			mean += z.At(i, j)
		}
		mean /= float64(rows)
		variance := 0.0
		for i := 0; i < rows; i++ {
			d := z.At(i, j) - mean
			variance += d * d
		}
		variance /= float64(rows)
		invStd[j] = 1 / math.Sqrt(variance+bnEpsilon)
		for i := 0; i < rows; i++ {
			xhat.Set(i, j, (z.At(i, j)-mean)*invStd[j])
		}
	}
	return xhat, invStd
}

func activate(x *mat.Dense, act Activation) *mat.Dense {
	r, c := x.Dims()
	h := mat.NewDense(r, c, nil)
	h.Apply(func(_, _ int, v float64) float64 { return activationValue(v, act) }, x)
	return h
}

func activationValue(v float64, act Activation) float64 {
	switch act {
	case ActivationReLU:
		return math.Max(0, v)
	case ActivationLeakyReLU:
		if v > 0 {
			return v
		}
		return leakySlope * v
	case ActivationTanh:
		return math.Tanh(v)
	case ActivationSigmoid:
		return 1 / (1 + math.Exp(-v))
	case ActivationELU:
		if v > 0 {
			return v
		}
		return math.Expm1(v)
	default:
		panic(fmt.Sprintf("unknown activation %q", act))
	}
}

// activationDerivative is f'(v) evaluated at the activation input v.
func activationDerivative(v float64, act Activation) float64 {
	switch act {
	case ActivationReLU:
		if v > 0 {
			return 1
		}
		return 0
	case ActivationLeakyReLU:
		if v > 0 {
			return 1
		}
		return leakySlope
	case ActivationTanh:
		t := math.Tanh(v)
		return 1 - t*t
	case ActivationSigmoid:
		s := 1 / (1 + math.Exp(-v))
		return s * (1 - s)
	case ActivationELU:
		if v > 0 {
			return 1
		}
		return math.Exp(v)
	default:
		panic(fmt.Sprintf("unknown activation %q", act))
	}
}

// === Backward ===

// LayerGrad holds the per-sample backward quantities of one layer. Per-sample
// parameter gradients are outer products of Delta rows with Input rows, so they
// never need to be materialized.
type LayerGrad struct {
	Name      string
	Input     *mat.Dense // N×in
	Delta     *mat.Dense // N×out, ∂L/∂(linear output) per sample
	NormDelta *mat.Dense // N×out, ∂L/∂(batch-norm output) per sample; nil unless batch norm ran
	XHat      *mat.Dense // N×out; nil unless batch norm ran
	// HasNorm is set for layers carrying batch-norm parameters, even when a
	// linear pass skipped them (their gradient is then zero).
	HasNorm bool
}

// Gradients is the result of one backward pass.
type Gradients struct {
	Layers []LayerGrad
}

// Backward propagates dOut (N×OutputDim, ∂L/∂logits) through the pass.
// Batch-norm statistics are treated as constants.
func (n *Network) Backward(pass *Pass, dOut *mat.Dense) (*Gradients, error) {
	if pass.net != n {
		return nil, fmt.Errorf("backward: pass was produced by a different network")
	}
	rows, _ := dOut.Dims()
	grads := &Gradients{Layers: make([]LayerGrad, len(n.layers))}

	delta := dOut
	for l := len(n.layers) - 1; l >= 0; l-- {
		ly := n.layers[l]
		c := pass.layers[l]
		lg := LayerGrad{Name: fmt.Sprintf("hidden%d", l), Input: c.input, XHat: c.xhat, HasNorm: ly.gamma != nil}
		if !ly.hidden {
			lg.Name = "output"
		}

		dz := delta
		if ly.hidden && !pass.Options.Linear {
			_, out := delta.Dims()
			d := mat.NewDense(rows, out, nil)
			d.Copy(delta)
			if c.mask != nil {
				d.MulElem(d, c.mask)
			}
			d.Apply(func(i, j int, v float64) float64 {
				return v * activationDerivative(c.actIn.At(i, j), ly.activation)
			}, d)
			if ly.gamma != nil {
				lg.NormDelta = d
				dz = mat.NewDense(rows, out, nil)
				dz.Apply(func(_, j int, v float64) float64 {
					return v * ly.gamma.At(0, j) * c.invStd[j]
				}, d)
			} else {
				dz = d
			}
		}
		lg.Delta = dz
		if !allFinite(dz) {
			return nil, &EvaluationError{Stage: "backward", Err: fmt.Errorf("layer %d: %w", l, errNonFinite)}
		}
		grads.Layers[l] = lg

		if l > 0 {
			_, in := ly.weight.Dims()
			prev := mat.NewDense(rows, in, nil)
			prev.Mul(dz, ly.weight)
			delta = prev
		}
	}
	return grads, nil
}

// ParamGrads returns the batch (summed over samples) gradient of every
// parameter, in Params() order.
func (g *Gradients) ParamGrads() []*mat.Dense {
	out := make([]*mat.Dense, 0, 4*len(g.Layers))
	for _, lg := range g.Layers {
		_, nOut := lg.Delta.Dims()
		_, nIn := lg.Input.Dims()
		w := mat.NewDense(nOut, nIn, nil)
		w.Mul(lg.Delta.T(), lg.Input)
		out = append(out, w, mat.NewDense(1, nOut, columnSums(lg.Delta)))
		switch {
		case lg.NormDelta != nil:
			prod := mat.DenseCopyOf(lg.NormDelta)
			prod.MulElem(prod, lg.XHat)
			out = append(out,
				mat.NewDense(1, nOut, columnSums(prod)),
				mat.NewDense(1, nOut, columnSums(lg.NormDelta)),
			)
		case lg.HasNorm:
			out = append(out, mat.NewDense(1, nOut, nil), mat.NewDense(1, nOut, nil))
		}
	}
	return out
}

// Vector flattens ParamGrads in Params() order.
func (g *Gradients) Vector() []float64 {
	var vec []float64
	for _, m := range g.ParamGrads() {
		vec = append(vec, m.RawMatrix().Data...)
	}
	return vec
}

// === Loss ===

// CrossEntropy computes the mean softmax cross-entropy of logits (N×C) against
// integer labels and returns ∂loss/∂logits.
func CrossEntropy(logits *mat.Dense, labels []int) (float64, *mat.Dense, error) {
	rows, cols := logits.Dims()
	if len(labels) != rows {
		return 0, nil, fmt.Errorf("cross-entropy: %d labels for %d rows", len(labels), rows)
	}
	grad := mat.NewDense(rows, cols, nil)
	loss := 0.0
	probs := make([]float64, cols)
	for i := 0; i < rows; i++ {
		y := labels[i]
		if y < 0 || y >= cols {
			return 0, nil, fmt.Errorf("cross-entropy: label %d at row %d outside [0,%d)", y, i, cols)
		}
		row := logits.RawRowView(i)
		maxLogit := row[0]
		for _, v := range row[1:] {
			maxLogit = math.Max(maxLogit, v)
		}
		sum := 0.0
		for j, v := range row {
			probs[j] = math.Exp(v - maxLogit)
			sum += probs[j]
		}
		for j := range probs {
			probs[j] /= sum
			g := probs[j]
			if j == y {
				g -= 1
			}
			grad.Set(i, j, g/float64(rows))
		}
		loss -= math.Log(math.Max(probs[y], math.SmallestNonzeroFloat64))
	}
	return loss / float64(rows), grad, nil
}

// === helpers ===

func addRow(m, row *mat.Dense) {
	m.Apply(func(_, j int, v float64) float64 { return v + row.At(0, j) }, m)
}

func columnSums(m *mat.Dense) []float64 {
	r, c := m.Dims()
	sums := make([]float64, c)
	for i := 0; i < r; i++ {
		for j, v := range m.RawRowView(i) {
			sums[j] += v
		}
	}
	return sums
}

func allFinite(m *mat.Dense) bool {
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		for _, v := range m.RawRowView(i) {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}
