package model

import (
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/ariannamethod/yent/internal/ggml"
)

// Forward runs one transformer step for token id t at position p,
// mutating state in place and leaving the result in state.Logits. p must
// be less than cfg.ContextLength.
func Forward(m *Model, state *State, t, p int) {
	cfg := m.Config
	w := m.Weights

	w.TokenEmbedding.CopyRowInto(state.X, t, cfg.Dim)

	for l := 0; l < cfg.NumberOfLayers; l++ {
		layer := w.Layers[l]

		ggml.RMSNormInto(state.Xb, state.X, layer.RMSAttW, cfg.RMSNormEps)

		layer.WQ.Matmul(state.Xb, state.Q, cfg.Dim, cfg.Dim)
		layer.WK.Matmul(state.Xb, state.K, cfg.KVDim, cfg.Dim)
		layer.WV.Matmul(state.Xb, state.V, cfg.KVDim, cfg.Dim)
		if layer.QBias != nil {
			ggml.AddInPlace(state.Q, layer.QBias)
		}
		if layer.KBias != nil {
			ggml.AddInPlace(state.K, layer.KBias)
		}
		if layer.VBias != nil {
			ggml.AddInPlace(state.V, layer.VBias)
		}

		applyRoPE(m.RoPE, cfg, state, p)

		keyCache := state.KeyCache[l]
		valueCache := state.ValueCache[l]
		copy(keyCache[p*cfg.KVDim:(p+1)*cfg.KVDim], state.K)
		copy(valueCache[p*cfg.KVDim:(p+1)*cfg.KVDim], state.V)

		attention(cfg, state, keyCache, valueCache, p)

		layer.WO.Matmul(state.Xb, state.Xb2, cfg.Dim, cfg.Dim)
		ggml.AddInPlace(state.X, state.Xb2)

		ggml.RMSNormInto(state.Xb, state.X, layer.RMSFFNW, cfg.RMSNormEps)
		layer.WGate.Matmul(state.Xb, state.Hb, cfg.HiddenDim, cfg.Dim)
		layer.WUp.Matmul(state.Xb, state.Hb2, cfg.HiddenDim, cfg.Dim)
		for i := range state.Hb {
			state.Hb[i] = ggml.SiLU(state.Hb[i])
		}
		ggml.MulInPlace(state.Hb, state.Hb2)
		layer.WDown.Matmul(state.Hb, state.Xb, cfg.Dim, cfg.HiddenDim)
		ggml.AddInPlace(state.X, state.Xb)
	}

	ggml.RMSNormInto(state.X, state.X, w.RMSFinalW, cfg.RMSNormEps)
	w.WCls.Matmul(state.X, state.Logits, cfg.VocabularySize, cfg.Dim)
}

// applyRoPE rotates q across every head and k across only the first
// numberOfKeyValueHeads heads, per §4.6 step c.
func applyRoPE(table RoPETable, cfg Config, state *State, p int) {
	half := cfg.HeadSize / 2
	base := p * half

	for h := 0; h < cfg.NumberOfHeads; h++ {
		rotateHead(state.Q, h*cfg.HeadSize, half, table.Cos[base:base+half], table.Sin[base:base+half])
	}
	for h := 0; h < cfg.NumberOfKeyValueHeads; h++ {
		rotateHead(state.K, h*cfg.HeadSize, half, table.Cos[base:base+half], table.Sin[base:base+half])
	}
}

func rotateHead(buf []float32, offset, half int, cos, sin []float32) {
	for ic := 0; ic < half; ic++ {
		a := buf[offset+ic]
		b := buf[offset+ic+half]
		c, s := cos[ic], sin[ic]
		buf[offset+ic] = a*c - b*s
		buf[offset+ic+half] = a*s + b*c
	}
}

// attention computes grouped-query attention for every head, fanning out
// across goroutines (one of the two structured-parallelism regions) and
// joining before returning.
func attention(cfg Config, state *State, keyCache, valueCache []float32, p int) {
	invSqrtHeadSize := float32(1 / math.Sqrt(float64(cfg.HeadSize)))

	var g errgroup.Group
	for h := 0; h < cfg.NumberOfHeads; h++ {
		h := h
		g.Go(func() error {
			qOff := h * cfg.HeadSize
			kvOff := (h / cfg.KVMul) * cfg.HeadSize
			attRow := state.Att[h*cfg.ContextLength : h*cfg.ContextLength+cfg.ContextLength]

			for t := 0; t <= p; t++ {
				score := dotSlice(state.Q[qOff:qOff+cfg.HeadSize], keyCache[t*cfg.KVDim+kvOff:t*cfg.KVDim+kvOff+cfg.HeadSize])
				attRow[t] = score * invSqrtHeadSize
			}
			ggml.SoftmaxInPlace(attRow, 0, p+1)

			xbSeg := state.Xb[h*cfg.HeadSize : (h+1)*cfg.HeadSize]
			ggml.FillInPlace(xbSeg, 0)
			for t := 0; t <= p; t++ {
				ggml.SaxpyInPlace(xbSeg, 0, valueCache, t*cfg.KVDim+kvOff, cfg.HeadSize, attRow[t])
			}
			return nil
		})
	}
	_ = g.Wait()
}

func dotSlice(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
