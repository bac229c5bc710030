package npm

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/matzehuels/dtsfetch/pkg/acquire"
	"github.com/matzehuels/dtsfetch/pkg/cache"
	dterrors "github.com/matzehuels/dtsfetch/pkg/errors"
	"github.com/matzehuels/dtsfetch/pkg/integrations"
)

const (
	DefaultRegistryURL = "https://registry.npmjs.org"
	DefaultCacheTTL    = 10 * time.Minute
)

// Client reads dist-tags and version lists from an npm registry.
type Client struct {
	*integrations.Client
	baseURL string
	refresh bool
}

// NewClient creates a Client for the registry at baseURL (DefaultRegistryURL
// when empty), caching documents in c for ttl.
func NewClient(c cache.Cache, baseURL string, ttl time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultRegistryURL
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	headers := map[string]string{
		"Accept":     "application/vnd.npm.install-v1+json",
		"User-Agent": integrations.UserAgent(""),
	}
	return &Client{
		Client:  integrations.NewClient(c, "npm:", ttl, headers),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// SetRefresh makes subsequent lookups bypass the cache.
func (c *Client) SetRefresh(refresh bool) { c.refresh = refresh }

// ResolveTag returns the version a dist-tag points at. A tag that is itself a
// published version resolves to itself. Unknown tags resolve to "".
func (c *Client) ResolveTag(ctx context.Context, module, tag string) (string, error) {
	doc, err := c.fetch(ctx, module)
	if err != nil {
		return "", err
	}
	if v, ok := doc.DistTags[tag]; ok {
		return v, nil
	}
	if _, ok := doc.Versions[tag]; ok {
		return tag, nil
	}
	return "", nil
}

// Versions lists the dist-tags and published versions of module.
func (c *Client) Versions(ctx context.Context, module string) (*acquire.Versions, error) {
	doc, err := c.fetch(ctx, module)
	if err != nil {
		return nil, err
	}
	return &acquire.Versions{
		Tags:     doc.DistTags,
		Versions: slices.Sorted(maps.Keys(doc.Versions)),
	}, nil
}

func (c *Client) fetch(ctx context.Context, module string) (*packument, error) {
	if err := dterrors.ValidateNpmPackageName(module); err != nil {
		return nil, err
	}

	var doc packument
	err := c.Cached(ctx, "doc:"+module, c.refresh, &doc, func() error {
		return c.Get(ctx, c.baseURL+"/"+escapeName(module), &doc)
	})
	if err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			return nil, fmt.Errorf("%w: npm package %s", err, module)
		}
		return nil, err
	}
	return &doc, nil
}

// escapeName encodes the scope separator the way the registry expects it.
func escapeName(module string) string {
	return strings.Replace(module, "/", "%2f", 1)
}

type packument struct {
	Name     string              `json:"name"`
	DistTags map[string]string   `json:"dist-tags"`
	Versions map[string]struct{} `json:"versions"`
}
