package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"caveatlab/delegraph/internal/account"
	"caveatlab/delegraph/internal/caveat"
	"caveatlab/delegraph/internal/graph"
	"caveatlab/delegraph/internal/session"
)

var (
	previewFrom    string
	previewTo      string
	previewParent  string
	previewNative  string
	previewTargets string
	previewERC20   string
	previewToken   string
	previewAfter   string
	previewBefore  string
	previewDays    int
	previewJSON    bool
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Build and validate a delegation with fabricated salt and signature",
	Long: `Builds a delegation from --from to --to with the given caveats, validates
it and prints it with its decoded caveats. Accounts may be given by id, name,
address or address prefix. --parent takes a delegation id or hash from the
session; without it the delegation is a root grant.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := previewRequest(time.Now())
		if err != nil {
			return err
		}

		sess, err := OpenSession()
		if err != nil {
			return err
		}
		defer sess.Close()

		draft, err := sess.Preview(req)
		if err != nil {
			return err
		}

		if previewJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(draft)
		}

		d := draft.Delegation
		from, _ := account.Resolve(sess.Accounts, d.Delegator)
		to, _ := account.Resolve(sess.Accounts, d.Delegate)
		fmt.Printf("\n  %s -> %s\n", from.Name, to.Name)
		fmt.Printf("  id:        %s\n", d.ID())
		fmt.Printf("  hash:      %s\n", d.Hash().Hex())
		if d.IsRoot() {
			fmt.Printf("  authority: ROOT\n")
		} else {
			fmt.Printf("  authority: %s\n", d.Authority)
			fmt.Printf("  chain:     %d links to root\n", len(draft.Chain))
		}
		fmt.Printf("  salt:      %s\n", d.Salt)
		fmt.Printf("  signature: %s\n", truncID(d.Signature, 42))
		fmt.Printf("  caveats:   %s\n", graph.CaveatLabel(len(draft.Caveats)))
		for i, c := range draft.Caveats {
			fmt.Printf("    - %s  (%s)\n", c.Description(), d.Caveats[i].Enforcer)
		}
		fmt.Println()
		return nil
	},
}

func init() {
	previewCmd.Flags().StringVar(&previewFrom, "from", "", "Delegator account")
	previewCmd.Flags().StringVar(&previewTo, "to", "", "Delegate account")
	previewCmd.Flags().StringVar(&previewParent, "parent", "", "Parent delegation id or hash")
	previewCmd.Flags().StringVar(&previewNative, "native", "", "Native token limit in ETH")
	previewCmd.Flags().StringVar(&previewTargets, "targets", "", "Comma-separated allowed target addresses")
	previewCmd.Flags().StringVar(&previewERC20, "erc20", "", "ERC-20 transfer limit in whole tokens (needs --token)")
	previewCmd.Flags().StringVar(&previewToken, "token", "", "Token symbol or address for --erc20")
	previewCmd.Flags().StringVar(&previewAfter, "after", "", "Valid from (unix seconds or RFC 3339)")
	previewCmd.Flags().StringVar(&previewBefore, "before", "", "Valid until (unix seconds or RFC 3339)")
	previewCmd.Flags().IntVar(&previewDays, "days", 0, "Valid for this many days from now")
	previewCmd.Flags().BoolVar(&previewJSON, "json", false, "Output as JSON")
	previewCmd.MarkFlagRequired("from")
	previewCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(previewCmd)
}

// previewRequest turns the preview flags into a session request. Caveats
// are listed in catalog order.
func previewRequest(now time.Time) (session.Request, error) {
	req := session.Request{From: previewFrom, To: previewTo, Parent: previewParent}

	if targets := splitList(previewTargets); len(targets) > 0 {
		req.Caveats = append(req.Caveats, caveat.Spec{Type: caveat.KindAllowedTargets, Targets: targets})
	}
	if previewNative != "" {
		req.Caveats = append(req.Caveats, caveat.Spec{Type: caveat.KindNativeTokenLimit, Amount: previewNative})
	}
	if previewERC20 != "" {
		if previewToken == "" {
			return req, fmt.Errorf("--erc20 needs --token")
		}
		req.Caveats = append(req.Caveats, caveat.Spec{Type: caveat.KindERC20Limit, Amount: previewERC20, Token: previewToken})
	}

	if previewDays != 0 && (previewAfter != "" || previewBefore != "") {
		return req, fmt.Errorf("--days cannot be combined with --after or --before")
	}
	switch {
	case previewDays < 0:
		return req, fmt.Errorf("--days must be positive")
	case previewDays > 0:
		start := uint64(now.Unix())
		end := start + uint64(previewDays)*24*60*60
		req.Caveats = append(req.Caveats, caveat.Spec{Type: caveat.KindTimeWindow, After: &start, Before: &end})
	case previewAfter != "" || previewBefore != "":
		spec := caveat.Spec{Type: caveat.KindTimeWindow}
		if previewAfter != "" {
			v, err := parseTimestamp(previewAfter)
			if err != nil {
				return req, fmt.Errorf("--after: %w", err)
			}
			spec.After = &v
		}
		if previewBefore != "" {
			v, err := parseTimestamp(previewBefore)
			if err != nil {
				return req, fmt.Errorf("--before: %w", err)
			}
			spec.Before = &v
		}
		req.Caveats = append(req.Caveats, spec)
	}
	return req, nil
}
