// Package defillama enriches records from the DefiLlama protocol listing.
package defillama

import (
	"context"
	"strings"
	"sync"

	"github.com/corralhq/corral/internal/transport"
	"github.com/corralhq/corral/pkg/match"
	"github.com/corralhq/corral/pkg/records"
)

const (
	providerName = "defillama"

	// DefaultEndpoint is the public protocol listing.
	DefaultEndpoint = "https://api.llama.fi/protocols"
)

type protocol struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Category string `json:"category"`
	Twitter  string `json:"twitter"`
}

// Provider looks up protocols by name against the DefiLlama listing. The
// listing is fetched once and cached for the provider's lifetime.
type Provider struct {
	client   *transport.Client
	endpoint string

	once  sync.Once
	index map[string]protocol
	err   error
}

// Option configures a Provider.
type Option func(*Provider)

// WithEndpoint overrides the protocol listing URL, mainly for tests.
func WithEndpoint(url string) Option {
	return func(p *Provider) {
		p.endpoint = url
	}
}

// WithTransport swaps the HTTP client.
func WithTransport(c *transport.Client) Option {
	return func(p *Provider) {
		p.client = c
	}
}

// New creates a DefiLlama provider.
func New(opts ...Option) *Provider {
	p := &Provider{
		client:   transport.New(providerName),
		endpoint: DefaultEndpoint,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements pipeline.Provider.
func (p *Provider) Name() string { return providerName }

// Fetch returns website, category, and Twitter handle for the named
// protocol, or nil when the listing has no entry for it.
func (p *Provider) Fetch(ctx context.Context, query string) (map[string]string, error) {
	p.once.Do(func() { p.load(ctx) })
	if p.err != nil {
		return nil, p.err
	}

	proto, ok := p.index[match.Normalize(query)]
	if !ok {
		return nil, nil
	}

	data := map[string]string{}
	if proto.URL != "" {
		data[records.FieldWebsite] = proto.URL
	}
	if proto.Category != "" {
		data[records.FieldCategory] = proto.Category
	}
	if handle := strings.TrimPrefix(proto.Twitter, "@"); handle != "" {
		data[records.FieldXHandle] = "@" + handle
	}
	return data, nil
}

func (p *Provider) load(ctx context.Context) {
	var protocols []protocol
	if err := p.client.GetJSON(ctx, p.endpoint, &protocols); err != nil {
		p.err = err
		return
	}

	// First listing entry wins for colliding normalized names; the listing
	// is ordered by TVL so the dominant protocol comes first.
	p.index = make(map[string]protocol, len(protocols))
	for _, proto := range protocols {
		key := match.Normalize(proto.Name)
		if key == "" {
			continue
		}
		if _, ok := p.index[key]; !ok {
			p.index[key] = proto
		}
	}
}
