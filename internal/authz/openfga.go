package authz

import (
	"context"
	"fmt"

	fga "github.com/openfga/go-sdk/client"
	"github.com/openfga/go-sdk/credentials"

	"github.com/TwigBush/restodir/internal/policy"
)

// OpenFGA asks an OpenFGA store for object-scoped rules. Rules without an
// object go to the local engine, and a menu outside the restaurant in the
// path is denied before the store is asked.
type OpenFGA struct {
	c     *fga.OpenFgaClient
	local *Engine
}

type OpenFGAConfig struct {
	APIURL   string
	StoreID  string
	APIToken string // optional
	ModelID  string // optional but recommended in prod
}

func NewOpenFGA(cfg OpenFGAConfig, table *policy.Table) (*OpenFGA, error) {
	conf := &fga.ClientConfiguration{
		ApiUrl:  cfg.APIURL,
		StoreId: cfg.StoreID,
	}
	if cfg.ModelID != "" {
		conf.AuthorizationModelId = cfg.ModelID
	}
	if cfg.APIToken != "" {
		conf.Credentials = &credentials.Credentials{
			Method: credentials.CredentialsMethodApiToken,
			Config: &credentials.Config{ApiToken: cfg.APIToken},
		}
	}

	client, err := fga.NewSdkClient(conf)
	if err != nil {
		return nil, fmt.Errorf("openfga_client_init: %w", err)
	}
	return &OpenFGA{c: client, local: NewEngine(table)}, nil
}

// Relation maps an action to its model relation, e.g. suggestChanges to
// can_suggest_changes.
func Relation(a policy.Action) string { return "can_" + a.Snake() }

func (o *OpenFGA) Check(ctx context.Context, req Request) (Decision, error) {
	if req.Object == "" {
		return o.local.Check(ctx, req)
	}
	if !req.Caller.Authenticated() {
		return Decision{Reason: ReasonAnonymous}, nil
	}
	if req.Subject == policy.Menu && req.Action != policy.Create && !req.Ownership.BelongsToRestaurant {
		return Decision{Reason: ReasonDenied}, nil
	}

	// ownership lives in the store as tuples; see deploy/openfga.fga
	checkReq := fga.ClientCheckRequest{
		User:     UserRef(req.Caller.ID),
		Relation: Relation(req.Action),
		Object:   req.Object,
	}

	resp, err := o.c.Check(ctx).Body(checkReq).Execute()
	if err != nil {
		return Decision{}, fmt.Errorf("fga_check_error: %w", err)
	}
	if resp.Allowed != nil && *resp.Allowed {
		return Decision{Allowed: true}, nil
	}
	return Decision{Allowed: false, Reason: ReasonDenied}, nil
}

func (o *OpenFGA) WriteRelationships(ctx context.Context, rels []Relationship) error {
	if len(rels) == 0 {
		return nil
	}
	body := make(fga.ClientWriteTuplesBody, 0, len(rels))
	for _, r := range rels {
		body = append(body, fga.ClientTupleKey{User: r.User, Relation: r.Relation, Object: r.Object})
	}
	if _, err := o.c.WriteTuples(ctx).Body(body).Execute(); err != nil {
		return fmt.Errorf("fga_write_error: %w", err)
	}
	return nil
}

// DeleteRelationships removes tuples one write per tuple, so a tuple that
// was never written does not keep the others in place.
func (o *OpenFGA) DeleteRelationships(ctx context.Context, rels []Relationship) error {
	if len(rels) == 0 {
		return nil
	}
	body := make(fga.ClientDeleteTuplesBody, 0, len(rels))
	for _, r := range rels {
		body = append(body, fga.ClientTupleKeyWithoutCondition{User: r.User, Relation: r.Relation, Object: r.Object})
	}
	resp, err := o.c.DeleteTuples(ctx).Body(body).
		Options(fga.ClientWriteOptions{Transaction: &fga.TransactionOptions{Disable: true, MaxPerChunk: 1}}).
		Execute()
	if err != nil {
		return fmt.Errorf("fga_delete_error: %w", err)
	}
	failed := 0
	for _, d := range resp.Deletes {
		if d.Status != fga.SUCCESS {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("fga_delete_error: %d of %d tuples not deleted", failed, len(rels))
	}
	return nil
}
