package model

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"gonum.org/v1/gonum/mat"
)

// ErrTrainingDiverged is returned when the loss becomes NaN or infinite
var ErrTrainingDiverged = errors.New("model training diverged")

const (
	adamBeta1   = 0.9
	adamBeta2   = 0.999
	adamEpsilon = 1e-7
)

type activation string

const (
	activationLinear activation = "linear"
	activationReLU   activation = "relu"
)

// Architecture describes a feed-forward regression network
type Architecture struct {
	Inputs       int
	Hidden       []int
	Dropout      float64
	LearningRate float64
}

// DefaultArchitecture is 10 inputs, two ReLU layers (64, 32) with 20% dropout
// and a single linear output.
func DefaultArchitecture() Architecture {
	return Architecture{
		Inputs:       FeatureWidth,
		Hidden:       []int{64, 32},
		Dropout:      0.2,
		LearningRate: 0.001,
	}
}

// TrainConfig controls a single Fit call
type TrainConfig struct {
	Epochs          int
	BatchSize       int
	ValidationSplit float64
	LearningRate    float64
}

// TrainReport summarises a finished Fit call
type TrainReport struct {
	Epochs        int     `json:"epochs"`
	Samples       int     `json:"samples"`
	TrainSamples  int     `json:"train_samples"`
	Loss          float64 `json:"loss"`
	ValidationMSE float64 `json:"validation_mse"`
}

// Predictor runs inference on one feature vector
type Predictor interface {
	Predict(features []float64) float64
}

type dense struct {
	in, out int
	act     activation
	w       *mat.Dense
	b       []float64

	mw, vw []float64
	mb, vb []float64

	input *mat.Dense
	z     *mat.Dense
	mask  *mat.Dense
}

func newDense(in, out int, act activation, rng *rand.Rand) *dense {
	limit := math.Sqrt(6 / float64(in+out))
	data := make([]float64, in*out)
	for i := range data {
		data[i] = (rng.Float64()*2 - 1) * limit
	}
	return &dense{
		in:  in,
		out: out,
		act: act,
		w:   mat.NewDense(in, out, data),
		b:   make([]float64, out),
		mw:  make([]float64, in*out),
		vw:  make([]float64, in*out),
		mb:  make([]float64, out),
		vb:  make([]float64, out),
	}
}

func (l *dense) forward(x *mat.Dense, dropout float64, rng *rand.Rand, training bool) *mat.Dense {
	rows, _ := x.Dims()
	z := mat.NewDense(rows, l.out, nil)
	z.Mul(x, l.w)
	z.Apply(func(_, j int, v float64) float64 { return v + l.b[j] }, z)

	a := z
	if l.act == activationReLU {
		a = mat.NewDense(rows, l.out, nil)
		a.Apply(func(_, _ int, v float64) float64 { return math.Max(0, v) }, z)
	}

	var mask *mat.Dense
	if training && dropout > 0 && l.act == activationReLU {
		keep := 1 - dropout
		mask = mat.NewDense(rows, l.out, nil)
		mask.Apply(func(_, _ int, _ float64) float64 {
			if rng.Float64() < keep {
				return 1 / keep
			}
			return 0
		}, mask)
		a.MulElem(a, mask)
	}

	if training {
		l.input, l.z, l.mask = x, z, mask
	}
	return a
}

// backward propagates grad (dLoss/dOutput) through the layer, applies an Adam
// step to the weights and returns dLoss/dInput.
func (l *dense) backward(grad *mat.Dense, lr float64, step int) *mat.Dense {
	rows, _ := grad.Dims()
	dz := mat.DenseCopyOf(grad)
	if l.mask != nil {
		dz.MulElem(dz, l.mask)
	}
	if l.act == activationReLU {
		dz.Apply(func(i, j int, v float64) float64 {
			if l.z.At(i, j) > 0 {
				return v
			}
			return 0
		}, dz)
	}

	var dw mat.Dense
	dw.Mul(l.input.T(), dz)
	db := make([]float64, l.out)
	for i := 0; i < rows; i++ {
		for j := 0; j < l.out; j++ {
			db[j] += dz.At(i, j)
		}
	}

	var dx mat.Dense
	dx.Mul(dz, l.w.T())

	adamUpdate(l.w.RawMatrix().Data, dw.RawMatrix().Data, l.mw, l.vw, lr, step)
	adamUpdate(l.b, db, l.mb, l.vb, lr, step)

	l.input, l.z, l.mask = nil, nil, nil
	return &dx
}

func adamUpdate(params, grads, m, v []float64, lr float64, step int) {
	c1 := 1 - math.Pow(adamBeta1, float64(step))
	c2 := 1 - math.Pow(adamBeta2, float64(step))
	for i, g := range grads {
		m[i] = adamBeta1*m[i] + (1-adamBeta1)*g
		v[i] = adamBeta2*v[i] + (1-adamBeta2)*g*g
		params[i] -= lr * (m[i] / c1) / (math.Sqrt(v[i]/c2) + adamEpsilon)
	}
}

// Network is a small multi-layer perceptron trained with Adam on MSE loss.
// It is not safe for concurrent use; Handle serialises access.
type Network struct {
	arch   Architecture
	layers []*dense
	step   int
	rng    *rand.Rand
}

// NewNetwork builds an untrained network with Glorot-uniform weights
func NewNetwork(arch Architecture, rng *rand.Rand) *Network {
	n := &Network{arch: arch, rng: rng}
	in := arch.Inputs
	for _, width := range arch.Hidden {
		n.layers = append(n.layers, newDense(in, width, activationReLU, rng))
		in = width
	}
	n.layers = append(n.layers, newDense(in, 1, activationLinear, rng))
	return n
}

// Predict runs inference without dropout
func (n *Network) Predict(features []float64) float64 {
	x := mat.NewDense(1, len(features), append([]float64(nil), features...))
	out := n.forward(x, false)
	return out.At(0, 0)
}

func (n *Network) forward(x *mat.Dense, training bool) *mat.Dense {
	a := x
	for _, l := range n.layers {
		a = l.forward(a, n.arch.Dropout, n.rng, training)
	}
	return a
}

func (n *Network) trainBatch(x *mat.Dense, y []float64, lr float64) float64 {
	out := n.forward(x, true)
	rows := len(y)

	grad := mat.NewDense(rows, 1, nil)
	loss := 0.0
	for i, label := range y {
		diff := out.At(i, 0) - label
		loss += diff * diff
		grad.Set(i, 0, 2*diff/float64(rows))
	}

	n.step++
	g := grad
	for i := len(n.layers) - 1; i >= 0; i-- {
		g = n.layers[i].backward(g, lr, n.step)
	}
	return loss / float64(rows)
}

func (n *Network) mse(x [][]float64, y []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	sum := 0.0
	for i := range x {
		diff := n.Predict(x[i]) - y[i]
		sum += diff * diff
	}
	return sum / float64(len(x))
}

// Fit trains the network in place with shuffled mini-batches. The trailing
// ValidationSplit fraction of the samples is held out and only evaluated.
// The context is checked between batches.
func (n *Network) Fit(ctx context.Context, x [][]float64, y []float64, cfg TrainConfig) (TrainReport, error) {
	if len(x) == 0 || len(x) != len(y) {
		return TrainReport{}, fmt.Errorf("%w: %d samples, %d labels", domain.ErrInsufficientData, len(x), len(y))
	}

	epochs := cfg.Epochs
	if epochs <= 0 {
		epochs = 1
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}
	lr := cfg.LearningRate
	if lr <= 0 {
		lr = n.arch.LearningRate
	}

	trainN := len(x) - int(float64(len(x))*cfg.ValidationSplit)
	if trainN < 1 || trainN > len(x) {
		trainN = len(x)
	}
	valX, valY := x[trainN:], y[trainN:]

	report := TrainReport{Samples: len(x), TrainSamples: trainN}
	order := make([]int, trainN)
	for i := range order {
		order[i] = i
	}

	width := len(x[0])
	for epoch := 0; epoch < epochs; epoch++ {
		n.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		epochLoss := 0.0
		for start := 0; start < trainN; start += batchSize {
			if err := ctx.Err(); err != nil {
				return report, fmt.Errorf("training interrupted after %d epochs: %w", report.Epochs, err)
			}

			end := min(start+batchSize, trainN)
			xb := mat.NewDense(end-start, width, nil)
			yb := make([]float64, end-start)
			for r, idx := range order[start:end] {
				xb.SetRow(r, x[idx])
				yb[r] = y[idx]
			}

			loss := n.trainBatch(xb, yb, lr)
			if math.IsNaN(loss) || math.IsInf(loss, 0) {
				return report, fmt.Errorf("%w at epoch %d", ErrTrainingDiverged, epoch+1)
			}
			epochLoss += loss * float64(end-start)
		}

		report.Epochs = epoch + 1
		report.Loss = epochLoss / float64(trainN)
	}

	report.ValidationMSE = n.mse(valX, valY)
	return report, nil
}
