package nn

import (
	"math"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/scrawl-ml/scrawl/internal/backend/cpu"
	"github.com/scrawl-ml/scrawl/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRNG() *rand.Rand {
	return rand.New(rand.NewSource(42))
}

// TestLinear_ForwardValues tests y = x @ W^T + b with hand-set weights.
func TestLinear_ForwardValues(t *testing.T) {
	backend := cpu.New()
	layer := NewLinear(3, 2, testRNG(), backend)

	copy(layer.weight.Raw().Data(), []float32{
		1, 0, -1,
		2, 1, 0,
	})
	copy(layer.bias.Raw().Data(), []float32{0.5, -0.5})

	input, err := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{1, 3}, backend)
	require.NoError(t, err)

	out := layer.Forward(input)
	require.True(t, out.Shape().Equal(tensor.Shape{1, 2}))
	// Row: [1*1+2*0+3*(-1)+0.5, 1*2+2*1+3*0-0.5]
	assert.InDelta(t, -1.5, out.At(0, 0), 1e-6)
	assert.InDelta(t, 3.5, out.At(0, 1), 1e-6)
}

// TestLinear_Parameters tests parameter count and shapes.
func TestLinear_Parameters(t *testing.T) {
	layer := NewLinear(9216, 128, testRNG(), cpu.New())
	params := layer.Parameters()
	require.Len(t, params, 2)
	assert.True(t, params[0].Raw().Shape().Equal(tensor.Shape{128, 9216}))
	assert.True(t, params[1].Raw().Shape().Equal(tensor.Shape{128}))
}

// TestConv2D_ForwardShape tests the output spatial arithmetic.
func TestConv2D_ForwardShape(t *testing.T) {
	backend := cpu.New()
	conv := NewConv2D(1, 32, 3, 1, 0, testRNG(), backend)

	input := tensor.Zeros(tensor.Shape{2, 1, 28, 28}, backend)
	out := conv.Forward(input)
	assert.True(t, out.Shape().Equal(tensor.Shape{2, 32, 26, 26}))

	outH, outW := conv.OutputSize(28, 28)
	assert.Equal(t, 26, outH)
	assert.Equal(t, 26, outW)
}

// TestConv2D_BiasBroadcast tests that the per-channel bias lands on every
// spatial position of its channel.
func TestConv2D_BiasBroadcast(t *testing.T) {
	backend := cpu.New()
	conv := NewConv2D(1, 2, 2, 1, 0, testRNG(), backend)

	conv.weight.Raw().Fill(0)
	copy(conv.bias.Raw().Data(), []float32{1, -1})

	input := tensor.Zeros(tensor.Shape{1, 1, 3, 3}, backend)
	out := conv.Forward(input)

	require.True(t, out.Shape().Equal(tensor.Shape{1, 2, 2, 2}))
	for i, v := range out.Data() {
		want := float32(1)
		if i >= 4 {
			want = -1
		}
		assert.Equal(t, want, v, "element %d", i)
	}
}

// TestMaxPool2D_Forward tests pooling values and shape reduction.
func TestMaxPool2D_Forward(t *testing.T) {
	backend := cpu.New()
	pool := NewMaxPool2D(2, 2, backend)

	input, err := tensor.FromSlice([]float32{
		1, 2, 5, 3,
		4, 0, 1, 2,
		9, 1, 0, 6,
		2, 3, 4, 5,
	}, tensor.Shape{1, 1, 4, 4}, backend)
	require.NoError(t, err)

	out := pool.Forward(input)
	require.True(t, out.Shape().Equal(tensor.Shape{1, 1, 2, 2}))
	assert.Equal(t, []float32{4, 5, 9, 6}, out.Data())
}

// TestFlatten_Forward tests collapsing feature maps into rows.
func TestFlatten_Forward(t *testing.T) {
	backend := cpu.New()
	flatten := NewFlatten[*cpu.Backend]()

	input := tensor.Zeros(tensor.Shape{2, 64, 12, 12}, backend)
	out := flatten.Forward(input)
	assert.True(t, out.Shape().Equal(tensor.Shape{2, 9216}))
}

// TestDropout_TrainingMasks tests that training mode zeroes roughly p of
// the elements and rescales survivors by 1/(1-p).
func TestDropout_TrainingMasks(t *testing.T) {
	backend := cpu.New()
	drop := NewDropout(0.5, testRNG(), backend)

	input := tensor.Ones(tensor.Shape{10000}, backend)
	out := drop.Forward(input)

	zeros := 0
	for _, v := range out.Data() {
		switch v {
		case 0:
			zeros++
		case 2:
			// survivor scaled by 1/(1-0.5)
		default:
			t.Fatalf("unexpected value %v", v)
		}
	}
	ratio := float64(zeros) / float64(input.NumElements())
	assert.InDelta(t, 0.5, ratio, 0.03)
}

// TestDropout_EvalIdentity tests that inference mode passes input through.
func TestDropout_EvalIdentity(t *testing.T) {
	backend := cpu.New()
	drop := NewDropout(0.5, testRNG(), backend)
	drop.SetTraining(false)

	input := tensor.Ones(tensor.Shape{8}, backend)
	out := drop.Forward(input)
	assert.Equal(t, input.Data(), out.Data())
}

// TestSequential_ForwardAndParams tests chaining and parameter collection.
func TestSequential_ForwardAndParams(t *testing.T) {
	backend := cpu.New()
	rng := testRNG()
	model := NewSequential[*cpu.Backend](
		NewLinear(4, 8, rng, backend),
		NewReLU[*cpu.Backend](),
		NewLinear(8, 2, rng, backend),
	)

	assert.Equal(t, 3, model.Len())
	assert.Len(t, model.Parameters(), 4)

	input := tensor.Zeros(tensor.Shape{5, 4}, backend)
	out := model.Forward(input)
	assert.True(t, out.Shape().Equal(tensor.Shape{5, 2}))
}

// TestSequential_SetTraining tests propagation to dropout layers.
func TestSequential_SetTraining(t *testing.T) {
	backend := cpu.New()
	drop := NewDropout(0.9, testRNG(), backend)
	model := NewSequential[*cpu.Backend](NewReLU[*cpu.Backend](), drop)

	model.SetTraining(false)
	assert.False(t, drop.training)
	model.SetTraining(true)
	assert.True(t, drop.training)
}

// TestXavier_Bounds tests that Glorot init stays inside its bound.
func TestXavier_Bounds(t *testing.T) {
	backend := cpu.New()
	w := Xavier(100, 50, tensor.Shape{50, 100}, testRNG(), backend)

	bound := float32(math.Sqrt(6.0 / 150.0))
	var lo, hi float32
	for _, v := range w.Data() {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	assert.GreaterOrEqual(t, lo, -bound)
	assert.LessOrEqual(t, hi, bound)
	assert.Less(t, lo, float32(0))
	assert.Greater(t, hi, float32(0))
}

// TestCrossEntropyLoss_KnownValue tests the loss against a hand-computed
// softmax log-loss.
func TestCrossEntropyLoss_KnownValue(t *testing.T) {
	backend := cpu.New()
	criterion := NewCrossEntropyLoss(backend)

	// Uniform logits over 10 classes: loss is ln(10) regardless of target.
	logits := tensor.Zeros(tensor.Shape{4, 10}, backend)
	targets := tensor.Zeros(tensor.Shape{4, 10}, backend)
	for r := 0; r < 4; r++ {
		targets.Raw().Data()[r*10+r] = 1
	}

	loss := criterion.Forward(logits, targets)
	assert.InDelta(t, math.Log(10), float64(loss.Item()), 1e-5)
}

// TestAccuracy tests argmax agreement counting.
func TestAccuracy(t *testing.T) {
	backend := cpu.New()
	logits, err := tensor.FromSlice([]float32{
		0.1, 0.9, 0.0, // predicts 1
		0.8, 0.1, 0.1, // predicts 0
		0.2, 0.3, 0.5, // predicts 2
	}, tensor.Shape{3, 3}, backend)
	require.NoError(t, err)
	targets, err := tensor.FromSlice([]float32{
		0, 1, 0, // class 1: correct
		0, 0, 1, // class 2: wrong
		0, 0, 1, // class 2: correct
	}, tensor.Shape{3, 3}, backend)
	require.NoError(t, err)

	assert.InDelta(t, 2.0/3.0, Accuracy(logits, targets), 1e-6)
}

// TestCheckpoint_RoundTrip tests that weights survive save and restore
// into a freshly initialized model.
func TestCheckpoint_RoundTrip(t *testing.T) {
	backend := cpu.New()
	path := filepath.Join(t.TempDir(), "ckpt.scrw")

	model := NewSequential[*cpu.Backend](
		NewLinear(4, 3, testRNG(), backend),
		NewReLU[*cpu.Backend](),
		NewLinear(3, 2, testRNG(), backend),
	)

	ckpt := &Checkpoint[*cpu.Backend]{
		Model:     model,
		RunID:     "test-run",
		Epoch:     7,
		Step:      4200,
		Loss:      0.05,
		Accuracy:  0.98,
		Optimizer: "sgd",
	}
	require.NoError(t, ckpt.Save(path))

	restored := NewSequential[*cpu.Backend](
		NewLinear(4, 3, rand.New(rand.NewSource(7)), backend),
		NewReLU[*cpu.Backend](),
		NewLinear(3, 2, rand.New(rand.NewSource(7)), backend),
	)

	meta, err := LoadCheckpoint(path, restored)
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, 7, meta.Epoch)
	assert.Equal(t, "test-run", meta.RunID)

	want := model.Parameters()
	got := restored.Parameters()
	require.Equal(t, len(want), len(got))
	for i := range want {
		assert.Equal(t, want[i].Raw().Data(), got[i].Raw().Data(), "parameter %d", i)
	}
}

// TestLoadStateDict_ShapeMismatch tests rejection of incompatible weights.
func TestLoadStateDict_ShapeMismatch(t *testing.T) {
	backend := cpu.New()
	model := NewSequential[*cpu.Backend](NewLinear(4, 3, testRNG(), backend))

	bad := StateDict[*cpu.Backend](NewSequential[*cpu.Backend](NewLinear(5, 3, testRNG(), backend)))
	err := LoadStateDict[*cpu.Backend](model, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shape")
}
