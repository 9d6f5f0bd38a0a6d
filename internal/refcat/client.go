// Package refcat is a read-only client for the external reference catalog's
// GraphQL API. The catalog is the authority that corpus records are linked
// against: profiles are projects, products are things profiles build, and a
// root ties both to a canonical identifier, slug, and website.
package refcat

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/corralhq/corral/internal/transport"
	"github.com/corralhq/corral/pkg/errors"
	"github.com/corralhq/corral/pkg/logging"
)

const (
	// DefaultPageSize is the pagination batch for bulk fetches.
	DefaultPageSize = 500
	// DefaultRequestDelay paces per-record lookups.
	DefaultRequestDelay = 300 * time.Millisecond

	providerName = "reference-catalog"
)

// Root is the canonical anchor of a catalog entry.
type Root struct {
	ID      string `json:"id"`
	Slug    string `json:"slug"`
	URLMain string `json:"urlMain"`
}

// Profile is a project-level catalog entry.
type Profile struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status named  `json:"profileStatus"`
	Root   Root   `json:"root"`
}

// Product is something built under a profile's root.
type Product struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   named  `json:"productType"`
	Status named  `json:"productStatus"`
	Root   Root   `json:"root"`
}

// Social is one social link attached to a root.
type Social struct {
	Name string `json:"name"`
	Type named  `json:"socialType"`
}

// RootDetail is a root with its profiles, returned by slug lookup.
type RootDetail struct {
	Root
	Profiles []Profile `json:"profileInfos"`
}

type named struct {
	Name string `json:"name"`
}

// Client talks to the reference catalog. Construct with New.
type Client struct {
	endpoint string
	http     *transport.Client
	pageSize int
}

// Option configures a Client.
type Option func(*Client)

// WithPageSize overrides the bulk-fetch pagination size.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithTransport swaps the HTTP layer, mainly for tests.
func WithTransport(t *transport.Client) Option {
	return func(c *Client) {
		c.http = t
	}
}

// New creates a catalog client for the given GraphQL endpoint.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		http:     transport.New(providerName, transport.WithRequestDelay(DefaultRequestDelay)),
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// query executes a GraphQL query and decodes the data field into out.
func (c *Client) query(ctx context.Context, query string, variables map[string]any, out any) error {
	var resp graphqlResponse
	req := graphqlRequest{Query: query, Variables: variables}
	if err := c.http.PostJSON(ctx, c.endpoint, req, &resp); err != nil {
		return err
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, len(resp.Errors))
		for i, e := range resp.Errors {
			msgs[i] = e.Message
		}
		return errors.NewAPIError(providerName, 0, "graphql: "+strings.Join(msgs, "; "))
	}
	if out == nil || resp.Data == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return errors.WrapParse("json", "graphql response", err)
	}
	return nil
}

const profilesQuery = `
query($limit: Int!, $offset: Int!) {
  profileInfos(limit: $limit, offset: $offset) {
    id name
    profileStatus { name }
    root { id slug urlMain }
  }
}`

// Profiles downloads every profile via pagination, terminating on the first
// empty page.
func (c *Client) Profiles(ctx context.Context) ([]Profile, error) {
	var all []Profile
	for offset := 0; ; offset += c.pageSize {
		var page struct {
			Profiles []Profile `json:"profileInfos"`
		}
		err := c.query(ctx, profilesQuery, map[string]any{"limit": c.pageSize, "offset": offset}, &page)
		if err != nil {
			return nil, err
		}
		if len(page.Profiles) == 0 {
			break
		}
		all = append(all, page.Profiles...)
	}
	logging.Ctx(ctx).Debug().Int("count", len(all)).Msg("fetched catalog profiles")
	return all, nil
}

const productsQuery = `
query($limit: Int!, $offset: Int!) {
  products(limit: $limit, offset: $offset) {
    id name
    productType { name }
    productStatus { name }
    root { id slug urlMain }
  }
}`

// Products downloads every product via pagination, terminating on the first
// empty page.
func (c *Client) Products(ctx context.Context) ([]Product, error) {
	var all []Product
	for offset := 0; ; offset += c.pageSize {
		var page struct {
			Products []Product `json:"products"`
		}
		err := c.query(ctx, productsQuery, map[string]any{"limit": c.pageSize, "offset": offset}, &page)
		if err != nil {
			return nil, err
		}
		if len(page.Products) == 0 {
			break
		}
		all = append(all, page.Products...)
	}
	logging.Ctx(ctx).Debug().Int("count", len(all)).Msg("fetched catalog products")
	return all, nil
}

const rootBySlugQuery = `
query($slug: String!) {
  roots(where: { slug: { _eq: $slug } }, limit: 1) {
    id slug urlMain
    profileInfos { id name profileStatus { name } }
  }
}`

// RootBySlug looks up a single root by its slug. Returns nil when the slug
// is unknown.
func (c *Client) RootBySlug(ctx context.Context, slug string) (*RootDetail, error) {
	var page struct {
		Roots []RootDetail `json:"roots"`
	}
	if err := c.query(ctx, rootBySlugQuery, map[string]any{"slug": slug}, &page); err != nil {
		return nil, err
	}
	if len(page.Roots) == 0 {
		return nil, nil
	}
	return &page.Roots[0], nil
}

const rootSocialsQuery = `
query($rootId: String!) {
  roots(where: { id: { _eq: $rootId } }, limit: 1) {
    socials { name socialType { name } }
  }
}`

// RootSocials fetches the social links attached to a root.
func (c *Client) RootSocials(ctx context.Context, rootID string) ([]Social, error) {
	var page struct {
		Roots []struct {
			Socials []Social `json:"socials"`
		} `json:"roots"`
	}
	if err := c.query(ctx, rootSocialsQuery, map[string]any{"rootId": rootID}, &page); err != nil {
		return nil, err
	}
	if len(page.Roots) == 0 {
		return nil, nil
	}
	return page.Roots[0].Socials, nil
}
