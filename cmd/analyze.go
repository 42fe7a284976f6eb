package cmd

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"caveatlab/delegraph/internal/account"
	"caveatlab/delegraph/internal/graph"
)

var (
	analyzeJSON         bool
	analyzeTopN         int
	analyzeHubThreshold int
	analyzeExpiryWarn   string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze delegation chains: topology, duplicates, choke points, expiry, health score",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := OpenSession()
		if err != nil {
			return err
		}
		defer sess.Close()

		config := graph.DefaultConfig()
		config.HubThreshold = analyzeHubThreshold
		config.TopN = analyzeTopN
		if analyzeExpiryWarn != "" {
			warn, err := parseDuration(analyzeExpiryWarn)
			if err != nil {
				return fmt.Errorf("--expiry-warning: %w", err)
			}
			config.ExpiryWarning = warn
		}

		report, err := sess.Analyze(config)
		if err != nil {
			return fmt.Errorf("analyzing delegations: %w", err)
		}

		if analyzeJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		printHumanReadable(report, func(addr string) string {
			a, _ := account.Resolve(sess.Accounts, addr)
			return a.Name
		})
		return nil
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Output as JSON")
	analyzeCmd.Flags().IntVar(&analyzeTopN, "top-n", 10, "Number of top items to show per section")
	analyzeCmd.Flags().IntVar(&analyzeHubThreshold, "hub-threshold", 3, "Out-degree above which a delegator is a hub")
	analyzeCmd.Flags().StringVar(&analyzeExpiryWarn, "expiry-warning", "24h", "Flag time windows closing within this duration (e.g. 24h, 3d)")
	rootCmd.AddCommand(analyzeCmd)
}

func printHumanReadable(report *graph.AnalysisReport, names func(string) string) {
	// Health bar
	barLen := int(report.HealthScore * 20)
	if barLen > 20 {
		barLen = 20
	}
	bar := strings.Repeat("█", barLen) + strings.Repeat("░", 20-barLen)
	fmt.Printf("\n  Delegation Health: %.0f%%  [%s]\n", report.HealthScore*100, bar)
	fmt.Printf("  breakdown: reachability=%.2f uniqueness=%.2f freshness=%.2f redundancy=%.2f\n\n",
		report.HealthBreakdown.Reachability,
		report.HealthBreakdown.Uniqueness,
		report.HealthBreakdown.Freshness,
		report.HealthBreakdown.Redundancy)

	// Topology
	t := report.Topology
	fmt.Println("  TOPOLOGY")
	fmt.Println("  ────────────────────────────────────────")
	fmt.Printf("  Accounts: %d  Delegations: %d  Trees: %d\n", t.TotalAccounts, t.TotalDelegations, t.NumTrees)
	fmt.Printf("  Roots: %d (%d root grants)  Max depth: %d\n", t.RootCount, t.RootGrants, t.MaxDepth)

	for i, tree := range t.Trees {
		roots := make([]string, len(tree.Roots))
		for j, r := range tree.Roots {
			roots[j] = names(r)
		}
		fmt.Printf("    tree %d: %d accounts, %d delegations, roots: %s\n",
			i+1, tree.Accounts, tree.Delegations, strings.Join(roots, ", "))
	}

	if t.UnreachableCount > 0 {
		fmt.Printf("  Unreachable: %d accounts no root reaches\n", t.UnreachableCount)
		for _, addr := range t.Unreachable {
			fmt.Printf("    - %s (%s)\n", account.FormatAddress(addr), names(addr))
		}
		if t.UnreachableCount > len(t.Unreachable) {
			fmt.Printf("    ... and %d more\n", t.UnreachableCount-len(t.Unreachable))
		}
	}
	if len(t.SelfLoops) > 0 {
		fmt.Printf("  Self-delegations: %d\n", len(t.SelfLoops))
	}

	// Depth distribution
	fmt.Println("\n  Depth distribution:")
	for _, b := range t.DepthHistogram {
		if b.Count > 0 {
			barWidth := int(math.Log2(float64(b.Count))) + 2
			fmt.Printf("    level %2d: %4d  %s\n", b.Level, b.Count, strings.Repeat("=", barWidth))
		}
	}

	// Hubs
	if len(t.Hubs) > 0 {
		fmt.Println("\n  Top hubs (out-degree > threshold):")
		for _, hub := range t.Hubs {
			fmt.Printf("    %s out=%d in=%d  %s\n",
				account.FormatAddress(hub.Address), hub.OutDegree, hub.InDegree, hub.Name)
		}
	}

	// Duplicates
	if len(report.Duplicates) > 0 {
		fmt.Println("\n  DUPLICATE IDENTITIES")
		fmt.Println("  ────────────────────────────────────────")
		for _, g := range report.Duplicates {
			kind := "conflicting"
			if g.Identical {
				kind = "identical"
			}
			fmt.Printf("    %s at positions %v (%s)\n", truncID(g.DelegationID, 40), g.Positions, kind)
		}
	}

	// Expiry
	e := report.Expiry
	if e.ExpiredCount > 0 || e.PendingCount > 0 || e.ExpiringCount > 0 {
		fmt.Println("\n  TIME WINDOWS")
		fmt.Println("  ────────────────────────────────────────")
		printExpiry("expired", e.Expired, names)
		printExpiry("not yet valid", e.Pending, names)
		printExpiry("expiring soon", e.Expiring, names)
	}

	// Choke points
	cp := report.ChokePoints
	if cp.APCount > 0 || cp.BridgeCount > 0 {
		fmt.Println("\n  CHOKE POINTS")
		fmt.Println("  ────────────────────────────────────────")
		if cp.APCount > 0 {
			fmt.Printf("  %d articulation accounts (removal splits a tree):\n", cp.APCount)
			for _, ap := range cp.ArticulationAccounts {
				fmt.Printf("    %s -> %d pieces  %s\n",
					account.FormatAddress(ap.Address), ap.ComponentsIfRemoved, ap.Name)
			}
		}
		if cp.BridgeCount > 0 {
			fmt.Printf("  %d bridge delegations (sole link between two parts):\n", cp.BridgeCount)
			for _, be := range cp.BridgeDelegations {
				fmt.Printf("    %s -> %s\n", names(be.Delegator), names(be.Delegate))
			}
		}
	}

	fmt.Println()
}

func printExpiry(title string, items []graph.ExpiringDelegation, names func(string) string) {
	if len(items) == 0 {
		return
	}
	fmt.Printf("  %d %s:\n", len(items), title)
	for _, it := range items {
		fmt.Printf("    %s -> %s  %s (%s)\n", names(it.Delegator), names(it.Delegate), it.Window, it.Relative)
	}
}

func truncID(id string, limit int) string {
	if len(id) <= limit {
		return id
	}
	return id[:limit] + "..."
}
