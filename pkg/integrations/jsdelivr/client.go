package jsdelivr

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/matzehuels/dtsfetch/pkg/acquire"
	"github.com/matzehuels/dtsfetch/pkg/cache"
	"github.com/matzehuels/dtsfetch/pkg/errors"
	"github.com/matzehuels/dtsfetch/pkg/integrations"
)

const (
	DefaultDataURL  = "https://data.jsdelivr.com"
	DefaultCDNURL   = "https://cdn.jsdelivr.net"
	DefaultCacheTTL = 24 * time.Hour
	TagTTL          = 10 * time.Minute
)

// TagSource answers the tag questions of an acquisition.
type TagSource interface {
	ResolveTag(ctx context.Context, module, tag string) (string, error)
	Versions(ctx context.Context, module string) (*acquire.Versions, error)
}

// Options configures a [Client].
type Options struct {
	Name     string        // Embedding project, sent in the User-Agent
	DataURL  string        // Default: DefaultDataURL
	CDNURL   string        // Default: DefaultCDNURL
	CacheTTL time.Duration // Default: DefaultCacheTTL
	Refresh  bool          // Bypass cached responses
	Tags     TagSource     // Replaces the jsDelivr tag lookups (optional)
}

func (o Options) withDefaults() Options {
	opts := o
	if opts.DataURL == "" {
		opts.DataURL = DefaultDataURL
	}
	if opts.CDNURL == "" {
		opts.CDNURL = DefaultCDNURL
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	opts.DataURL = strings.TrimSuffix(opts.DataURL, "/")
	opts.CDNURL = strings.TrimSuffix(opts.CDNURL, "/")
	return opts
}

// Client implements [acquire.Registry] against jsDelivr.
type Client struct {
	*integrations.Client
	opts Options
}

var _ acquire.Registry = (*Client)(nil)

// NewClient creates a Client caching its responses in c. A nil cache
// disables caching.
func NewClient(c cache.Cache, opts Options) *Client {
	opts = opts.withDefaults()
	headers := map[string]string{
		"User-Agent": integrations.UserAgent(opts.Name),
		"Accept":     "application/json",
	}
	return &Client{
		Client: integrations.NewClient(c, "jsdelivr:", opts.CacheTTL, headers),
		opts:   opts,
	}
}

// ResolveTag resolves a dist-tag or range to a version. It returns "" when
// jsDelivr knows the package but no matching version.
func (c *Client) ResolveTag(ctx context.Context, module, tag string) (string, error) {
	if err := errors.ValidateNpmPackageName(module); err != nil {
		return "", err
	}
	if c.opts.Tags != nil {
		return c.opts.Tags.ResolveTag(ctx, module, tag)
	}

	var resp resolveResponse
	key := "resolve:" + module + "@" + tag
	err := c.CachedTTL(ctx, key, TagTTL, c.opts.Refresh, &resp, func() error {
		return c.Get(ctx, c.dataURL("/v1/package/resolve/npm/%s@%s", module, url.PathEscape(tag)), &resp)
	})
	if err != nil {
		return "", fmt.Errorf("resolve %s@%s: %w", module, tag, err)
	}
	return resp.Version, nil
}

// Versions lists the dist-tags and published versions of module.
func (c *Client) Versions(ctx context.Context, module string) (*acquire.Versions, error) {
	if err := errors.ValidateNpmPackageName(module); err != nil {
		return nil, err
	}
	if c.opts.Tags != nil {
		return c.opts.Tags.Versions(ctx, module)
	}

	var resp packageResponse
	err := c.CachedTTL(ctx, "versions:"+module, TagTTL, c.opts.Refresh, &resp, func() error {
		return c.Get(ctx, c.dataURL("/v1/package/npm/%s", module), &resp)
	})
	if err != nil {
		return nil, fmt.Errorf("versions of %s: %w", module, err)
	}
	return &acquire.Versions{Tags: resp.Tags, Versions: resp.Versions}, nil
}

// FileTree returns the flat file listing of module@version.
func (c *Client) FileTree(ctx context.Context, module, version, raw string) (*acquire.FileTree, error) {
	if err := errors.ValidateNpmPackageName(module); err != nil {
		return nil, err
	}

	var resp flatResponse
	key := "tree:" + module + "@" + version
	err := c.Cached(ctx, key, c.opts.Refresh, &resp, func() error {
		return c.Get(ctx, c.dataURL("/v1/package/npm/%s@%s/flat", module, url.PathEscape(version)), &resp)
	})
	if err != nil {
		return nil, fmt.Errorf("files of %s@%s: %w", module, version, err)
	}

	tree := &acquire.FileTree{Module: module, Version: version, Raw: raw}
	for _, f := range resp.Files {
		tree.Files = append(tree.Files, acquire.File{Name: f.Name})
	}
	return tree, nil
}

// FileText downloads one file of module@version from the CDN.
func (c *Client) FileText(ctx context.Context, module, version, path string) (string, error) {
	if err := errors.ValidateNpmPackageName(module); err != nil {
		return "", err
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var text string
	key := "file:" + module + "@" + version + path
	err := c.Cached(ctx, key, c.opts.Refresh, &text, func() error {
		var err error
		text, err = c.GetText(ctx, c.opts.CDNURL+"/npm/"+module+"@"+version+path)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("%s@%s%s: %w", module, version, path, err)
	}
	return text, nil
}

func (c *Client) dataURL(format string, args ...any) string {
	return c.opts.DataURL + fmt.Sprintf(format, args...)
}

type resolveResponse struct {
	Version string `json:"version"`
}

type packageResponse struct {
	Tags     map[string]string `json:"tags"`
	Versions versionList       `json:"versions"`
}

type flatResponse struct {
	Files []struct {
		Name string `json:"name"`
	} `json:"files"`
}

// versionList accepts both the plain string list and the object list
// ({"version": "1.0.0", "links": {...}}) returned by jsDelivr.
type versionList []string

func (v *versionList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(versionList, 0, len(raw))
	for _, item := range raw {
		var s string
		if json.Unmarshal(item, &s) == nil {
			out = append(out, s)
			continue
		}
		var obj struct {
			Version string `json:"version"`
		}
		if err := json.Unmarshal(item, &obj); err != nil {
			return err
		}
		out = append(out, obj.Version)
	}
	*v = out
	return nil
}
