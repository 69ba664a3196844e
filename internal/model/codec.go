package model

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"gonum.org/v1/gonum/mat"
)

// SnapshotVersion is bumped whenever the encoded layout changes
const SnapshotVersion = 1

// LayerSnapshot is the serialised form of one dense layer
type LayerSnapshot struct {
	In         int       `msgpack:"in"`
	Out        int       `msgpack:"out"`
	Activation string    `msgpack:"activation"`
	Weights    []float64 `msgpack:"weights"`
	Bias       []float64 `msgpack:"bias"`
}

// Snapshot is the persisted state of a category model. Optimizer moments are
// not kept; a restored model resumes training with a fresh Adam state.
type Snapshot struct {
	Version     int             `msgpack:"version"`
	CategoryID  int64           `msgpack:"category_id"`
	Layers      []LayerSnapshot `msgpack:"layers"`
	Trainings   int             `msgpack:"trainings"`
	SamplesSeen int             `msgpack:"samples_seen"`
	TrainedAt   time.Time       `msgpack:"trained_at"`
}

func newSnapshot(categoryID int64, n *Network, trainings, samples int, trainedAt time.Time) *Snapshot {
	s := &Snapshot{
		Version:     SnapshotVersion,
		CategoryID:  categoryID,
		Trainings:   trainings,
		SamplesSeen: samples,
		TrainedAt:   trainedAt,
	}
	for _, l := range n.layers {
		s.Layers = append(s.Layers, LayerSnapshot{
			In:         l.in,
			Out:        l.out,
			Activation: string(l.act),
			Weights:    append([]float64(nil), l.w.RawMatrix().Data...),
			Bias:       append([]float64(nil), l.b...),
		})
	}
	return s
}

// Encode serialises the snapshot with msgpack
func (s *Snapshot) Encode() ([]byte, error) {
	data, err := msgpack.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot for category %d: %w", s.CategoryID, err)
	}
	return data, nil
}

// DecodeSnapshot parses a msgpack snapshot and checks its version
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if s.Version != SnapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", s.Version)
	}
	return &s, nil
}

// Restore rebuilds a network from the snapshot. The layer shapes must match arch.
func (s *Snapshot) Restore(arch Architecture, rng *rand.Rand) (*Network, error) {
	want := append(append([]int(nil), arch.Hidden...), 1)
	if len(s.Layers) != len(want) {
		return nil, fmt.Errorf("snapshot has %d layers, architecture expects %d", len(s.Layers), len(want))
	}

	n := &Network{arch: arch, rng: rng}
	in := arch.Inputs
	for i, ls := range s.Layers {
		if ls.In != in || ls.Out != want[i] {
			return nil, fmt.Errorf("layer %d shape %dx%d, expected %dx%d", i, ls.In, ls.Out, in, want[i])
		}
		if len(ls.Weights) != ls.In*ls.Out || len(ls.Bias) != ls.Out {
			return nil, fmt.Errorf("layer %d has corrupt parameter buffers", i)
		}
		act := activation(ls.Activation)
		if act != activationReLU && act != activationLinear {
			return nil, fmt.Errorf("layer %d has unknown activation %q", i, ls.Activation)
		}
		n.layers = append(n.layers, &dense{
			in:  ls.In,
			out: ls.Out,
			act: act,
			w:   mat.NewDense(ls.In, ls.Out, append([]float64(nil), ls.Weights...)),
			b:   append([]float64(nil), ls.Bias...),
			mw:  make([]float64, ls.In*ls.Out),
			vw:  make([]float64, ls.In*ls.Out),
			mb:  make([]float64, ls.Out),
			vb:  make([]float64, ls.Out),
		})
		in = ls.Out
	}
	return n, nil
}
