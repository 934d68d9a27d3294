package tensor

// Backend is the compute interface behind tensor operations. It declares
// exactly the operations the digit-classification graph exercises; anything
// a CNN forward or backward pass does goes through one of these.
//
// Implementations:
//   - cpu: pure Go kernels (im2col convolution, batch-parallel matmul)
//   - autodiff: decorator over any Backend that records onto a gradient tape
type Backend interface {
	// Element-wise binary operations with NumPy-style broadcasting.
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor

	// MatMul multiplies two 2D tensors: [M, K] @ [K, N] -> [M, N].
	MatMul(a, b *RawTensor) *RawTensor

	// Conv2D convolves input [N, C_in, H, W] with kernel
	// [C_out, C_in, KH, KW] producing [N, C_out, H_out, W_out].
	Conv2D(input, kernel *RawTensor, stride, padding int) *RawTensor

	// Conv2DInputBackward computes the input gradient of Conv2D given the
	// output gradient (a full convolution of the gradient with the kernel).
	Conv2DInputBackward(input, kernel, outputGrad *RawTensor, stride, padding int) *RawTensor

	// Conv2DKernelBackward computes the kernel gradient of Conv2D
	// (a cross-correlation of the input with the output gradient).
	Conv2DKernelBackward(input, kernel, outputGrad *RawTensor, stride, padding int) *RawTensor

	// MaxPool2D pools input [N, C, H, W] with a square window.
	MaxPool2D(input *RawTensor, kernelSize, stride int) *RawTensor

	// MaxPool2DBackward routes the output gradient back to the positions
	// recorded in maxIndices (flat indices into the input buffer).
	MaxPool2DBackward(input, outputGrad *RawTensor, maxIndices []int) *RawTensor

	// Shape operations.
	Reshape(t *RawTensor, newShape Shape) *RawTensor
	Transpose(t *RawTensor, axes ...int) *RawTensor

	// Scale multiplies every element by v.
	Scale(t *RawTensor, v float32) *RawTensor

	// ReLU applies max(0, x) element-wise.
	ReLU(t *RawTensor) *RawTensor

	// Softmax normalizes each row of a 2D tensor into a distribution,
	// shifted by the row max for numerical stability.
	Softmax(t *RawTensor) *RawTensor

	// CrossEntropy computes mean softmax cross-entropy between logits
	// [batch, classes] and one-hot targets of the same shape, returning a
	// scalar [1] tensor.
	CrossEntropy(logits, targets *RawTensor) *RawTensor

	// Name identifies the backend in logs.
	Name() string
}
