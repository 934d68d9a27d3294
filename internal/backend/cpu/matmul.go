package cpu

import (
	"fmt"

	"github.com/scrawl-ml/scrawl/internal/tensor"
	"golang.org/x/sync/errgroup"
)

// MatMul multiplies two 2D tensors: [M, K] @ [K, N] -> [M, N].
// Rows of the result are computed in parallel across workers.
func (c *Backend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape, bShape := a.Shape(), b.Shape()
	if len(aShape) != 2 || len(bShape) != 2 {
		panic(fmt.Sprintf("matmul: want 2D operands, got %v @ %v", aShape, bShape))
	}
	m, k := aShape[0], aShape[1]
	if bShape[0] != k {
		panic(fmt.Sprintf("matmul: inner dimensions differ: %v @ %v", aShape, bShape))
	}
	n := bShape[1]

	out := tensor.MustRaw(tensor.Shape{m, n})
	aData, bData, outData := a.Data(), b.Data(), out.Data()

	// Small products are not worth the goroutine overhead.
	if m*n*k < 1<<15 || c.workers <= 1 {
		matmulRows(outData, aData, bData, 0, m, k, n)
		return out
	}

	var g errgroup.Group
	g.SetLimit(c.workers)
	chunk := (m + c.workers - 1) / c.workers
	for lo := 0; lo < m; lo += chunk {
		hi := lo + chunk
		if hi > m {
			hi = m
		}
		g.Go(func() error {
			matmulRows(outData, aData, bData, lo, hi, k, n)
			return nil
		})
	}
	// Workers never return errors; Wait is only a join point.
	_ = g.Wait()
	return out
}

// matmulRows computes rows [lo, hi) of C = A @ B with the ikj loop order so
// the inner loop walks both B and C contiguously.
func matmulRows(c, a, b []float32, lo, hi, k, n int) {
	for i := lo; i < hi; i++ {
		row := c[i*n : (i+1)*n]
		for j := range row {
			row[j] = 0
		}
		for kk := 0; kk < k; kk++ {
			av := a[i*k+kk]
			if av == 0 {
				continue
			}
			bRow := b[kk*n : (kk+1)*n]
			for j, bv := range bRow {
				row[j] += av * bv
			}
		}
	}
}
