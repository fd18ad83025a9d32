// Package openaitest provides a scripted openai.Client for tests.
package openaitest

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"sync"

	"github.com/yungbote/bizplan-backend/internal/platform/openai"
)

type Call struct {
	Kind   string // embed | json | images | text
	Name   string
	System string
	User   string
	Images int
}

// Fake answers with the configured funcs. A nil func yields ErrUnscripted,
// except Embed which falls back to HashEmbed.
type Fake struct {
	EmbedFunc  func(inputs []string) ([][]float32, error)
	JSONFunc   func(system, user, schemaName string) (map[string]any, error)
	ImagesFunc func(system, user string, images []openai.ImageInput, schemaName string) (map[string]any, error)
	TextFunc   func(system, user string) (string, error)

	mu    sync.Mutex
	calls []Call
}

var ErrUnscripted = errors.New("openaitest: unscripted call")

var _ openai.Client = (*Fake)(nil)

func (f *Fake) record(c Call) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
}

func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallsNamed returns the JSON/image calls made with schemaName.
func (f *Fake) CallsNamed(schemaName string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Name == schemaName {
			out = append(out, c)
		}
	}
	return out
}

func (f *Fake) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	f.record(Call{Kind: "embed"})
	if f.EmbedFunc != nil {
		return f.EmbedFunc(inputs)
	}
	out := make([][]float32, len(inputs))
	for i, s := range inputs {
		out[i] = HashEmbed(s)
	}
	return out, nil
}

func (f *Fake) GenerateJSON(_ context.Context, system, user, schemaName string, _ map[string]any) (map[string]any, error) {
	f.record(Call{Kind: "json", Name: schemaName, System: system, User: user})
	if f.JSONFunc == nil {
		return nil, ErrUnscripted
	}
	return f.JSONFunc(system, user, schemaName)
}

func (f *Fake) GenerateJSONWithImages(_ context.Context, system, user string, images []openai.ImageInput, schemaName string, _ map[string]any) (map[string]any, error) {
	f.record(Call{Kind: "images", Name: schemaName, System: system, User: user, Images: len(images)})
	if f.ImagesFunc == nil {
		return nil, ErrUnscripted
	}
	return f.ImagesFunc(system, user, images, schemaName)
}

func (f *Fake) GenerateText(_ context.Context, system, user string) (string, error) {
	f.record(Call{Kind: "text", System: system, User: user})
	if f.TextFunc == nil {
		return "", ErrUnscripted
	}
	return f.TextFunc(system, user)
}

// HashEmbed is a deterministic bag-of-runes embedding: texts sharing runes
// point in similar directions.
func HashEmbed(s string) []float32 {
	const dim = 32
	v := make([]float32, dim)
	for _, r := range s {
		h := fnv.New32a()
		_, _ = h.Write([]byte(string(r)))
		v[h.Sum32()%dim]++
	}
	var norm float64
	for _, x := range v {
		norm += float64(x * x)
	}
	if norm == 0 {
		v[0] = 1
		return v
	}
	n := float32(math.Sqrt(norm))
	for i := range v {
		v[i] /= n
	}
	return v
}
