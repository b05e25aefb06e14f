package anchors

import "sync"

// Provider builds the corpus at most once. Concurrent callers that arrive while
// the loader runs block until it finishes and then share its result.
type Provider struct {
	once   sync.Once
	load   func() (*Corpus, error)
	corpus *Corpus
	err    error
}

// NewProvider wraps a loader, typically Store.Load or Generate.
func NewProvider(load func() (*Corpus, error)) *Provider {
	return &Provider{load: load}
}

// Corpus returns the loaded corpus. A load error is returned to every caller.
func (p *Provider) Corpus() (*Corpus, error) {
	p.once.Do(func() {
		p.corpus, p.err = p.load()
	})
	return p.corpus, p.err
}
