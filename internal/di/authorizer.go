package di

import (
	"fmt"

	"github.com/TwigBush/restodir/internal/authz"
	"github.com/TwigBush/restodir/internal/config"
	"github.com/TwigBush/restodir/internal/metrics"
	"github.com/TwigBush/restodir/internal/policy"
)

// ProvideAuthorizer builds the configured backend and wraps it with decision
// metrics. m may be nil.
func ProvideAuthorizer(cfg config.AuthzConfig, m *metrics.Metrics) (authz.Authorizer, error) {
	var a authz.Authorizer
	switch cfg.Backend {
	case "openfga":
		fga, err := authz.NewOpenFGA(authz.OpenFGAConfig{
			APIURL:   cfg.FGA.APIURL,
			StoreID:  cfg.FGA.StoreID,
			APIToken: cfg.FGA.APIToken,
			ModelID:  cfg.FGA.ModelID,
		}, policy.Default())
		if err != nil {
			return nil, err
		}
		a = fga
	case "mock":
		a = &authz.Mock{AlwaysAllow: true}
	case "", "local":
		a = authz.NewEngine(policy.Default())
	default:
		return nil, fmt.Errorf("unknown authz backend %q", cfg.Backend)
	}
	return authz.WithMetrics(a, m), nil
}
