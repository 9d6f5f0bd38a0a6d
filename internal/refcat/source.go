package refcat

import (
	"context"
	"strings"

	"github.com/corralhq/corral/pkg/expand"
)

// twitterSocialType is the catalog's label for Twitter/X social links.
const twitterSocialType = "Twitter / X"

// Source adapts a Client to the expansion matcher's catalog interface.
type Source struct {
	client *Client
}

// NewSource wraps a catalog client for use by pkg/expand.
func NewSource(client *Client) *Source {
	return &Source{client: client}
}

// Entries bulk-downloads all profiles and products, flattened to expansion
// entries.
func (s *Source) Entries(ctx context.Context) ([]expand.Entry, error) {
	profiles, err := s.client.Profiles(ctx)
	if err != nil {
		return nil, err
	}
	products, err := s.client.Products(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]expand.Entry, 0, len(profiles)+len(products))
	for _, p := range profiles {
		entries = append(entries, expand.Entry{
			Name:     p.Name,
			Type:     expand.TypeProfile,
			ID:       p.ID,
			Status:   p.Status.Name,
			RootSlug: p.Root.Slug,
			RootURL:  p.Root.URLMain,
			RootID:   p.Root.ID,
		})
	}
	for _, p := range products {
		entries = append(entries, expand.Entry{
			Name:        p.Name,
			Type:        expand.TypeProduct,
			ID:          p.ID,
			Status:      p.Status.Name,
			ProductType: p.Type.Name,
			RootSlug:    p.Root.Slug,
			RootURL:     p.Root.URLMain,
			RootID:      p.Root.ID,
		})
	}
	return entries, nil
}

// RootBySlug resolves a candidate slug to an expansion entry. A root with a
// profile reports the profile's name and status; a bare root falls back to
// the slug.
func (s *Source) RootBySlug(ctx context.Context, slug string) (*expand.Entry, error) {
	root, err := s.client.RootBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, nil
	}

	entry := &expand.Entry{
		Name:     root.Slug,
		Type:     expand.TypeRoot,
		ID:       root.ID,
		RootSlug: root.Slug,
		RootURL:  root.URLMain,
		RootID:   root.ID,
	}
	if len(root.Profiles) > 0 {
		p := root.Profiles[0]
		entry.Name = p.Name
		entry.Type = expand.TypeProfile
		entry.ID = p.ID
		entry.Status = p.Status.Name
	}
	return entry, nil
}

// RootTwitterHandles returns the root's Twitter/X handles, lowercased with
// the leading @ removed.
func (s *Source) RootTwitterHandles(ctx context.Context, rootID string) ([]string, error) {
	socials, err := s.client.RootSocials(ctx, rootID)
	if err != nil {
		return nil, err
	}
	var handles []string
	for _, social := range socials {
		if social.Type.Name != twitterSocialType {
			continue
		}
		handle := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(social.Name)), "@")
		if handle != "" {
			handles = append(handles, handle)
		}
	}
	return handles, nil
}
