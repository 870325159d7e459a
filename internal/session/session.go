// Package session composes the per-user console surface: site chrome,
// the capability-filtered navigation menu, and the current-user profile.
// Local console definitions take precedence; the upstream fills in whatever
// they leave unset.
package session

import (
	"context"
	"log/slog"

	"github.com/pitabwire/curator/model"
)

// ConsoleSource supplies locally defined site chrome and menu entries.
type ConsoleSource interface {
	Site() model.SiteDefinition
	Menu() []model.MenuItemDefinition
}

// UpstreamSource supplies the upstream's own site, menu, and user endpoints.
type UpstreamSource interface {
	Site(ctx context.Context, rctx *model.RequestContext) (model.SiteDefinition, error)
	Menu(ctx context.Context, rctx *model.RequestContext) ([]model.MenuItemDefinition, error)
	CurrentUser(ctx context.Context, rctx *model.RequestContext) (model.CurrentUser, error)
}

// Settings carries UI tuning knobs the gateway advertises with the session.
// The client applies them locally; search-as-you-type keystrokes are held
// for the debounce interval before a list call fires.
type Settings struct {
	SearchDebounceMs int64 `json:"searchDebounceMs"`
}

// Profile is the session payload handed to the UI after authentication.
type Profile struct {
	User         model.CurrentUser          `json:"user"`
	Capabilities model.Capabilities         `json:"capabilities"`
	Site         model.SiteDefinition       `json:"site"`
	Menu         []model.MenuItemDefinition `json:"menu"`
	Settings     Settings                   `json:"settings"`
}

// Composer builds session profiles.
type Composer struct {
	console  ConsoleSource
	upstream UpstreamSource
	log      *slog.Logger
}

// NewComposer creates a Composer. The upstream source may be nil when the
// console runs entirely from local definitions.
func NewComposer(console ConsoleSource, upstream UpstreamSource, log *slog.Logger) *Composer {
	if log == nil {
		log = slog.Default()
	}
	return &Composer{console: console, upstream: upstream, log: log}
}

// Profile assembles the session surface for the authenticated subject. The
// menu is filtered by the subject's capabilities before it leaves the
// service, so a role never learns about sections it cannot open. Upstream
// failures on the chrome endpoints degrade to the local definitions instead
// of failing the session.
func (c *Composer) Profile(ctx context.Context, rctx *model.RequestContext) (Profile, error) {
	caps := rctx.Capabilities()

	p := Profile{
		User:         c.currentUser(ctx, rctx),
		Capabilities: caps,
		Site:         c.site(ctx, rctx),
	}
	p.Menu = FilterMenu(c.menu(ctx, rctx), caps)
	return p, nil
}

func (c *Composer) currentUser(ctx context.Context, rctx *model.RequestContext) model.CurrentUser {
	if c.upstream != nil {
		user, err := c.upstream.CurrentUser(ctx, rctx)
		if err == nil && user.UserID != "" {
			return user
		}
		if err != nil {
			c.log.Warn("current-user fetch failed, using token claims", "error", err)
		}
	}
	return model.CurrentUser{
		Name:   rctx.Name,
		Email:  rctx.Email,
		Access: rctx.Role,
		UserID: rctx.SubjectID,
	}
}

func (c *Composer) site(ctx context.Context, rctx *model.RequestContext) model.SiteDefinition {
	site := c.console.Site()
	if site.Title != "" || c.upstream == nil {
		return site
	}
	remote, err := c.upstream.Site(ctx, rctx)
	if err != nil {
		c.log.Warn("site fetch failed, using local definition", "error", err)
		return site
	}
	return remote
}

func (c *Composer) menu(ctx context.Context, rctx *model.RequestContext) []model.MenuItemDefinition {
	if local := c.console.Menu(); len(local) > 0 {
		return local
	}
	if c.upstream == nil {
		return nil
	}
	remote, err := c.upstream.Menu(ctx, rctx)
	if err != nil {
		c.log.Warn("menu fetch failed, menu will be empty", "error", err)
		return nil
	}
	return remote
}

// FilterMenu removes entries hidden from the menu or gated behind sections
// the capability set cannot see. A branch whose children all filter away is
// dropped unless it has a path of its own.
func FilterMenu(items []model.MenuItemDefinition, caps model.Capabilities) []model.MenuItemDefinition {
	var out []model.MenuItemDefinition
	for _, item := range items {
		if item.HideInMenu {
			continue
		}
		if !caps.SectionVisible(item.Section) {
			continue
		}
		kept := item
		kept.Children = FilterMenu(item.Children, caps)
		if len(item.Children) > 0 && len(kept.Children) == 0 && kept.Path == "" {
			continue
		}
		out = append(out, kept)
	}
	return out
}
