package gguf

import "log/slog"

// KV holds the decoded metadata key-value pairs of a GGUF file. Array
// values decode to []any of the element type; scalars decode to their
// natural Go type (uint8 through uint64, int8 through int64, float32,
// float64, bool, string).
type KV map[string]any

// String returns the string value of key, or def if absent or the wrong
// type. A key present with the wrong type is logged at debug level; an
// absent key is not logged.
func (kv KV) String(key, def string) string {
	v, ok := kv[key]
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		slog.Debug("gguf: key present with unexpected type", "key", key, "want", "string")
		return def
	}
	return s
}

// Uint32 returns key as a uint32, converting from whatever unsigned or
// signed integer type it was stored as.
func (kv KV) Uint32(key string, def uint32) uint32 {
	v, ok := kv[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case uint64:
		return uint32(n)
	case uint32:
		return n
	case uint16:
		return uint32(n)
	case uint8:
		return uint32(n)
	case int64:
		return uint32(n)
	case int32:
		return uint32(n)
	case int16:
		return uint32(n)
	case int8:
		return uint32(n)
	default:
		slog.Debug("gguf: key present with unexpected type", "key", key, "want", "uint32")
		return def
	}
}

// Float32 returns key as a float32.
func (kv KV) Float32(key string, def float32) float32 {
	v, ok := kv[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float32:
		return n
	case float64:
		return float32(n)
	default:
		slog.Debug("gguf: key present with unexpected type", "key", key, "want", "float32")
		return def
	}
}

// Bool returns key as a bool.
func (kv KV) Bool(key string, def bool) bool {
	v, ok := kv[key]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		slog.Debug("gguf: key present with unexpected type", "key", key, "want", "bool")
		return def
	}
	return b
}

// Strings returns key as a []string, unwrapping an ARRAY of STRING.
func (kv KV) Strings(key string) []string {
	v, ok := kv[key]
	if !ok {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		s, ok := e.(string)
		if !ok {
			slog.Debug("gguf: array element with unexpected type", "key", key, "want", "string")
			continue
		}
		out = append(out, s)
	}
	return out
}

// Float32s returns key as a []float32, unwrapping an ARRAY of FLOAT32.
func (kv KV) Float32s(key string) []float32 {
	v, ok := kv[key]
	if !ok {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]float32, 0, len(raw))
	for _, e := range raw {
		switch n := e.(type) {
		case float32:
			out = append(out, n)
		case float64:
			out = append(out, float32(n))
		default:
			slog.Debug("gguf: array element with unexpected type", "key", key, "want", "float32")
		}
	}
	return out
}

// Int32s returns key as a []int32, unwrapping an ARRAY of any integer type.
func (kv KV) Int32s(key string) []int32 {
	v, ok := kv[key]
	if !ok {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]int32, 0, len(raw))
	for _, e := range raw {
		switch n := e.(type) {
		case int64:
			out = append(out, int32(n))
		case int32:
			out = append(out, n)
		case uint64:
			out = append(out, int32(n))
		case uint32:
			out = append(out, int32(n))
		case int16:
			out = append(out, int32(n))
		case uint16:
			out = append(out, int32(n))
		case int8:
			out = append(out, int32(n))
		case uint8:
			out = append(out, int32(n))
		default:
			slog.Debug("gguf: array element with unexpected type", "key", key, "want", "int32")
		}
	}
	return out
}

// Require looks up a required key and returns a FormatError naming it if
// absent, for the metadata keys the loader cannot proceed without.
func (kv KV) Require(path, key string) error {
	if _, ok := kv[key]; !ok {
		return formatErrorf(path, "missing required metadata key %q", key)
	}
	return nil
}
