package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/TwigBush/restodir/internal/policy"
)

type ruleOut struct {
	Subject string `json:"subject" yaml:"subject"`
	Action  string `json:"action"  yaml:"action"`
}

type decisionOut struct {
	Rule    string `json:"rule"    yaml:"rule"`
	Caller  string `json:"caller"  yaml:"caller"`
	Allowed bool   `json:"allowed" yaml:"allowed"`
}

func cmdPolicy() *cobra.Command {
	c := &cobra.Command{
		Use:   "policy",
		Short: "Inspect the authorization policy table",
	}
	c.AddCommand(cmdPolicyList(), cmdPolicyCheck())
	return c
}

func cmdPolicyList() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every (subject, action) rule",
		RunE: func(cmd *cobra.Command, args []string) error {
			rules := policy.Default().Rules()
			out := make([]ruleOut, 0, len(rules))
			for _, r := range rules {
				out = append(out, ruleOut{Subject: string(r.Subject), Action: string(r.Action)})
			}
			return printOut(cmd.OutOrStdout(), out)
		},
	}
}

func cmdPolicyCheck() *cobra.Command {
	var (
		subject, action, caller, creator string
		admins                           []string
		belongs                          bool
	)
	c := &cobra.Command{
		Use:   "check",
		Short: "Evaluate one rule against a caller and ownership facts",
		Example: "  restodir policy check --subject Restaurant --action edit --caller u1 --creator u1\n" +
			"  restodir policy check --subject Menu --action edit --caller u2 --admins u2 --belongs",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := policy.ParseSubject(subject)
			if err != nil {
				return err
			}
			a, err := policy.ParseAction(action)
			if err != nil {
				return err
			}
			rule := policy.Rule{Subject: s, Action: a}
			own := policy.Ownership{CreatorID: creator, BelongsToRestaurant: belongs}
			for _, id := range admins {
				if id = strings.TrimSpace(id); id != "" {
					own.Admins = append(own.Admins, id)
				}
			}
			return printOut(cmd.OutOrStdout(), decisionOut{
				Rule:    rule.String(),
				Caller:  caller,
				Allowed: policy.Evaluate(policy.Caller{ID: caller}, s, a, own),
			})
		},
	}
	c.Flags().StringVar(&subject, "subject", "", "Session|Restaurant|Menu")
	c.Flags().StringVar(&action, "action", "", "create|edit|delete|claim|suggestChanges")
	c.Flags().StringVar(&caller, "caller", "", "caller profile id (empty is anonymous)")
	c.Flags().StringVar(&creator, "creator", "", "restaurant creator id")
	c.Flags().StringSliceVar(&admins, "admins", nil, "administrator ids")
	c.Flags().BoolVar(&belongs, "belongs", false, "the menu belongs to the restaurant")
	_ = c.MarkFlagRequired("subject")
	_ = c.MarkFlagRequired("action")
	return c
}
