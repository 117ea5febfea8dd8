// Package pane owns per-pane viewer state as a single state machine.
// Every async resolution is tagged with the request id it answers; the
// one reducer (Commit) is the only place results enter, which is where
// stale results are discarded and superseded blob handles are released.
package pane

import (
	"sync"

	"github.com/splitview/content-service/internal/blob"
	"github.com/splitview/content-service/internal/content"
)

type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateFailed  State = "failed"
)

// Pane is one viewer slot. Panes share nothing; each owns its request
// counter, its content, and the blob handles tagged with its id.
type Pane struct {
	mu sync.Mutex

	id    string
	blobs *blob.Store

	state   State
	current content.Request
	content content.Content
	nextID  uint64
}

func New(id string, blobs *blob.Store) *Pane {
	return &Pane{id: id, blobs: blobs, state: StateIdle}
}

// ID is the owner tag for blob handles allocated on this pane's behalf.
func (p *Pane) ID() string { return p.id }

// Begin issues a request for a URL locator. Re-requesting the locator the
// pane is already showing (or already fetching) is a no-op and returns
// false; the caller skips resolution entirely.
func (p *Pane) Begin(url string) (content.Request, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if url != "" && p.current.URL == url && !p.current.IsUpload &&
		(p.state == StateReady || p.state == StateLoading) {
		return content.Request{}, false
	}

	p.nextID++
	p.current = content.Request{ID: p.nextID, URL: url}
	p.state = StateLoading
	return p.current, true
}

// BeginUpload issues a request for an uploaded file. Uploads are never
// debounced: the same filename can carry different bytes.
func (p *Pane) BeginUpload(fileName string, data []byte) (content.Request, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextID++
	p.current = content.Request{ID: p.nextID, IsUpload: true, FileName: fileName, Data: data}
	p.state = StateLoading
	return p.current, true
}

// Commit is the reducer. A result answering anything but the pane's
// current request is stale: it is dropped and any handles it minted are
// released so a superseded resolution cannot leak. A live result replaces
// the previous content, releasing that content's handles.
func (p *Pane) Commit(req content.Request, c content.Content) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if req.ID != p.current.ID || p.state != StateLoading {
		p.releaseHandles(c)
		return false
	}

	p.releaseHandles(p.content)
	p.content = c
	if c.Type == content.TypeError {
		p.state = StateFailed
	} else {
		p.state = StateReady
	}
	return true
}

// Unmount releases the pane's content and sweeps any handle still tagged
// with its id.
func (p *Pane) Unmount() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.releaseHandles(p.content)
	if p.blobs != nil {
		p.blobs.ReleaseOwner(p.id)
	}
	p.content = content.Content{}
	p.current = content.Request{}
	p.state = StateIdle
}

func (p *Pane) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Content returns the committed content. Meaningful in StateReady and, for
// the failure message, StateFailed.
func (p *Pane) Content() content.Content {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.content
}

func (p *Pane) releaseHandles(c content.Content) {
	if p.blobs == nil {
		return
	}
	for _, url := range c.ObjectURLs() {
		p.blobs.Release(url)
	}
}
