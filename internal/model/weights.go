package model

import "github.com/ariannamethod/yent/internal/ggml"

// Layer holds one transformer block's weight bindings. Projection
// matrices stay as tensor views and are dequantized lazily inside
// Matmul/Dot; norm weights and biases are small enough to dequantize
// once at load time into plain float32 slices.
type Layer struct {
	RMSAttW []float32 // [dim]
	WQ      ggml.View // [dim, dim]
	WK      ggml.View // [kvDim, dim]
	WV      ggml.View // [kvDim, dim]
	WO      ggml.View // [dim, dim]

	QBias []float32 // [dim], nil when absent
	KBias []float32 // [kvDim], nil when absent
	VBias []float32 // [kvDim], nil when absent

	RMSFFNW []float32 // [dim]
	WGate   ggml.View // [hiddenDim, dim]
	WDown   ggml.View // [dim, hiddenDim]
	WUp     ggml.View // [hiddenDim, dim]
}

// Weights is the full set of tensor bindings for one loaded model.
// Projection views are read-only and freely shareable across sessions.
type Weights struct {
	TokenEmbedding ggml.View // [vocab, dim]
	Layers         []Layer
	RMSFinalW      []float32 // [dim]

	// WCls is the classifier projection. When the GGUF file has no
	// output.weight tensor, WCls aliases TokenEmbedding directly (tied
	// embeddings) rather than duplicating storage.
	WCls ggml.View // [vocab, dim]
}

// materialize dequantizes a View fully into a fresh float32 slice, used
// for the small per-layer vectors (norm weights, biases) that are read
// on every forward step and cheap enough to keep decoded.
func materialize(v ggml.View) []float32 {
	out := make([]float32, v.Size())
	for i := range out {
		out[i] = v.Get(i)
	}
	return out
}
