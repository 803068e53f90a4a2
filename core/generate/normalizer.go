package generate

import "strings"

// maxDepth bounds recursion into nested response wrappers so a cyclic
// or adversarially deep value cannot blow the stack.
const maxDepth = 32

// candidateKeys are probed in order on mapping-shaped responses.
var candidateKeys = []string{"audioUrl", "audio_url", "url", "audio", "output"}

// wrapperKeys hold nested response envelopes worth recursing into.
var wrapperKeys = []string{"result", "data", "prediction"}

// ExtractAudioURL locates a playable audio URL inside an arbitrarily
// shaped value decoded from a generative API response. The value is one
// of the JSON variants: a string, a []any, a map[string]any, or
// anything else (unrecognized). A miss is ("", false), not an error.
func ExtractAudioURL(v any) (string, bool) {
	return extract(v, 0)
}

func extract(v any, depth int) (string, bool) {
	if depth > maxDepth {
		return "", false
	}

	if u, ok := asURL(v); ok {
		return u, true
	}

	switch val := v.(type) {
	case []any:
		for _, item := range val {
			if u, ok := extract(item, depth+1); ok {
				return u, true
			}
		}
	case map[string]any:
		for _, key := range candidateKeys {
			if inner, present := val[key]; present {
				if u, ok := extract(inner, depth+1); ok {
					return u, true
				}
			}
		}
		if files, ok := val["files"].([]any); ok {
			for _, f := range files {
				if m, ok := f.(map[string]any); ok {
					if u, ok := asURL(m["url"]); ok {
						return u, true
					}
					continue
				}
				if u, ok := asURL(f); ok {
					return u, true
				}
			}
		}
		for _, key := range wrapperKeys {
			if inner, present := val[key]; present {
				if u, ok := extract(inner, depth+1); ok {
					return u, true
				}
			}
		}
	}

	return "", false
}

// asURL matches the direct shape: a string carrying an HTTP scheme.
// Mappings holding a "url" entry go through the candidate-key probe so
// the documented key priority holds.
func asURL(v any) (string, bool) {
	if s, ok := v.(string); ok && strings.HasPrefix(s, "http") {
		return s, true
	}
	return "", false
}
