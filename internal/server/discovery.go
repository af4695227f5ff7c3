package server

import (
	"net/http"

	"github.com/TwigBush/restodir/internal/httpx"
	"github.com/TwigBush/restodir/internal/locale"
	"github.com/TwigBush/restodir/internal/policy"
	"github.com/TwigBush/restodir/internal/tenant"
)

// discoveryResp tells a frontend where the API lives and how tenant hosts
// and locales are laid out.
type discoveryResp struct {
	APIBase        string   `json:"api_base"`
	RootDomain     string   `json:"root_domain,omitempty"`
	TenantHost     string   `json:"tenant_host,omitempty"`
	WebsitePath    string   `json:"website_path"`
	Locales        []string `json:"locales"`
	DefaultLocale  string   `json:"default_locale"`
	AuthCookie     string   `json:"auth_cookie"`
	PolicySubjects []string `json:"policy_subjects"`
}

func discoveryHandler(res *tenant.Resolver, lr *locale.Router, cookie string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out := discoveryResp{
			APIBase:        httpx.BaseURL(r) + apiPrefix,
			WebsitePath:    tenant.WebsitePath("{locale}", "{slug}"),
			Locales:        lr.Locales(),
			DefaultLocale:  lr.Default(),
			AuthCookie:     cookie,
			PolicySubjects: []string{string(policy.Session), string(policy.Restaurant), string(policy.Menu)},
		}
		// no tenant hosts while subdomain routing is disabled
		if root := res.RootHost(); root != "" {
			out.RootDomain = root
			out.TenantHost = "{slug}." + root
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	}
}
