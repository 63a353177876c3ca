package model

// State holds one generation session's mutable activation buffers and KV
// cache, preallocated once and reused for every forward step. State must
// not be shared across concurrent sessions.
type State struct {
	X   []float32 // [dim]
	Xb  []float32 // [dim]
	Xb2 []float32 // [dim]
	Hb  []float32 // [hiddenDim]
	Hb2 []float32 // [hiddenDim]
	Q   []float32 // [dim]
	K   []float32 // [kvDim]
	V   []float32 // [kvDim]

	Att    []float32 // [numberOfHeads, contextLength]
	Logits []float32 // [vocab]

	KeyCache   [][]float32 // [layer][contextLength * kvDim]
	ValueCache [][]float32

	LatestToken int
}

// NewState preallocates every buffer State needs for cfg, sized so no
// further allocation happens on the hot path. latestToken should be the
// id of <|im_start|> per §3.
func NewState(cfg Config, latestToken int) *State {
	s := &State{
		X:           make([]float32, cfg.Dim),
		Xb:          make([]float32, cfg.Dim),
		Xb2:         make([]float32, cfg.Dim),
		Hb:          make([]float32, cfg.HiddenDim),
		Hb2:         make([]float32, cfg.HiddenDim),
		Q:           make([]float32, cfg.Dim),
		K:           make([]float32, cfg.KVDim),
		V:           make([]float32, cfg.KVDim),
		Att:         make([]float32, cfg.NumberOfHeads*cfg.ContextLength),
		Logits:      make([]float32, cfg.VocabularySize),
		KeyCache:    make([][]float32, cfg.NumberOfLayers),
		ValueCache:  make([][]float32, cfg.NumberOfLayers),
		LatestToken: latestToken,
	}
	for l := 0; l < cfg.NumberOfLayers; l++ {
		s.KeyCache[l] = make([]float32, cfg.ContextLength*cfg.KVDim)
		s.ValueCache[l] = make([]float32, cfg.ContextLength*cfg.KVDim)
	}
	return s
}
