package resolve

import (
	"context"
	"fmt"

	"github.com/splitview/content-service/internal/content"
	"github.com/splitview/content-service/internal/sniff"
)

// Decoder turns a raw payload into renderable content for the kinds it
// claims. Owner is the pane identity any blob handles are tagged with.
type Decoder interface {
	Name() string
	Kinds() []sniff.Kind
	Decode(ctx context.Context, owner string, req content.Request, data []byte) (content.Content, error)
}

// Registry maps sniffed kinds onto their decoder.
type Registry struct {
	byKind   map[sniff.Kind]Decoder
	decoders []Decoder
}

func NewRegistry() *Registry {
	return &Registry{byKind: make(map[sniff.Kind]Decoder)}
}

func (r *Registry) Register(d Decoder) {
	r.decoders = append(r.decoders, d)
	for _, k := range d.Kinds() {
		r.byKind[k] = d
	}
}

func (r *Registry) Resolve(kind sniff.Kind) (Decoder, error) {
	if d, ok := r.byKind[kind]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("no decoder registered for kind %q", kind)
}
