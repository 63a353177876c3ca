package model

import (
	"fmt"
	"log/slog"

	"github.com/ariannamethod/yent/internal/ggml"
	"github.com/ariannamethod/yent/internal/gguf"
	"github.com/ariannamethod/yent/internal/tokenizer"
)

// Model bundles everything the generation loop needs: the model
// configuration, the weight bindings, the precomputed RoPE table, and
// the tokenizer. Weight Views are copied out of the GGUF file's mmap at
// load time; the file is kept open until Close.
type Model struct {
	Config    Config
	Weights   Weights
	RoPE      RoPETable
	Tokenizer *tokenizer.Tokenizer

	file *gguf.File
}

// Close unmaps the backing GGUF file. Weights hold their own copies and
// are not affected.
func (m *Model) Close() error { return m.file.Close() }

// Load opens path, validates the required Qwen2 metadata keys and
// tensors, and wires them into a Model. See the external-interfaces
// listing for the exact required keys and tensor names.
func Load(path string) (*Model, error) {
	f, err := gguf.Open(path)
	if err != nil {
		return nil, err
	}

	cfg, err := loadConfig(path, f.KV)
	if err != nil {
		f.Close()
		return nil, err
	}

	tok, err := loadTokenizer(f.KV)
	if err != nil {
		f.Close()
		return nil, err
	}

	w, err := loadWeights(f, cfg)
	if err != nil {
		f.Close()
		return nil, err
	}

	slog.Info("model loaded", "path", path, "layers", cfg.NumberOfLayers, "dim", cfg.Dim, "vocab", cfg.VocabularySize)

	return &Model{
		Config:    cfg,
		Weights:   w,
		RoPE:      ComputeRoPETable(cfg),
		Tokenizer: tok,
		file:      f,
	}, nil
}

func loadConfig(path string, kv gguf.KV) (Config, error) {
	required := []string{
		"qwen2.embedding_length",
		"qwen2.feed_forward_length",
		"qwen2.block_count",
		"qwen2.attention.head_count",
		"qwen2.context_length",
		"qwen2.attention.layer_norm_rms_epsilon",
		"qwen2.rope.freq_base",
	}
	for _, key := range required {
		if err := kv.Require(path, key); err != nil {
			return Config{}, err
		}
	}

	dim := int(kv.Uint32("qwen2.embedding_length", 0))
	hiddenDim := int(kv.Uint32("qwen2.feed_forward_length", 0))
	numberOfLayers := int(kv.Uint32("qwen2.block_count", 0))
	numberOfHeads := int(kv.Uint32("qwen2.attention.head_count", 0))
	numberOfKeyValueHeads := int(kv.Uint32("qwen2.attention.head_count_kv", uint32(numberOfHeads)))
	contextLength := int(kv.Uint32("qwen2.context_length", 0))
	rmsNormEps := kv.Float32("qwen2.attention.layer_norm_rms_epsilon", 1e-6)
	ropeTheta := kv.Float32("qwen2.rope.freq_base", 10000)

	tokens := kv.Strings("tokenizer.ggml.tokens")
	vocabularySize := len(tokens)

	return NewConfig(dim, hiddenDim, numberOfLayers, numberOfHeads, numberOfKeyValueHeads, vocabularySize, contextLength, rmsNormEps, ropeTheta)
}

func loadTokenizer(kv gguf.KV) (*tokenizer.Tokenizer, error) {
	model := kv.String("tokenizer.ggml.model", "")
	tokens := kv.Strings("tokenizer.ggml.tokens")
	scores := kv.Float32s("tokenizer.ggml.scores")
	merges := kv.Strings("tokenizer.ggml.merges")
	types := kv.Int32s("tokenizer.ggml.token_type")
	return tokenizer.New(model, tokens, scores, merges, types)
}

func loadWeights(f *gguf.File, cfg Config) (Weights, error) {
	view := func(name string) (ggml.View, error) { return f.View(name) }

	tokenEmbd, err := view("token_embd.weight")
	if err != nil {
		return Weights{}, err
	}
	outputNorm, err := view("output_norm.weight")
	if err != nil {
		return Weights{}, err
	}

	wcls := tokenEmbd
	if _, ok := f.Tensors["output.weight"]; ok {
		wcls, err = view("output.weight")
		if err != nil {
			return Weights{}, err
		}
	}

	layers := make([]Layer, cfg.NumberOfLayers)
	for i := range layers {
		p := fmt.Sprintf("blk.%d.", i)

		rmsAttW, err := view(p + "attn_norm.weight")
		if err != nil {
			return Weights{}, err
		}
		wq, err := view(p + "attn_q.weight")
		if err != nil {
			return Weights{}, err
		}
		wk, err := view(p + "attn_k.weight")
		if err != nil {
			return Weights{}, err
		}
		wv, err := view(p + "attn_v.weight")
		if err != nil {
			return Weights{}, err
		}
		wo, err := view(p + "attn_output.weight")
		if err != nil {
			return Weights{}, err
		}
		rmsFFNW, err := view(p + "ffn_norm.weight")
		if err != nil {
			return Weights{}, err
		}
		wGate, err := view(p + "ffn_gate.weight")
		if err != nil {
			return Weights{}, err
		}
		wDown, err := view(p + "ffn_down.weight")
		if err != nil {
			return Weights{}, err
		}
		wUp, err := view(p + "ffn_up.weight")
		if err != nil {
			return Weights{}, err
		}

		layers[i] = Layer{
			RMSAttW: materialize(rmsAttW),
			WQ:      wq,
			WK:      wk,
			WV:      wv,
			WO:      wo,
			QBias:   optionalBias(f, p+"attn_q.bias"),
			KBias:   optionalBias(f, p+"attn_k.bias"),
			VBias:   optionalBias(f, p+"attn_v.bias"),
			RMSFFNW: materialize(rmsFFNW),
			WGate:   wGate,
			WDown:   wDown,
			WUp:     wUp,
		}
	}

	return Weights{
		TokenEmbedding: tokenEmbd,
		Layers:         layers,
		RMSFinalW:      materialize(outputNorm),
		WCls:           wcls,
	}, nil
}

// optionalBias returns the dequantized bias vector for name, or nil if
// the GGUF file has no such tensor, per "biases skipped if absent".
func optionalBias(f *gguf.File, name string) []float32 {
	if _, ok := f.Tensors[name]; !ok {
		return nil
	}
	v, err := f.View(name)
	if err != nil {
		return nil
	}
	return materialize(v)
}
