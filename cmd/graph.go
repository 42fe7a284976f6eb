package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"caveatlab/delegraph/internal/account"
)

var graphJSON bool

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Build the delegation graph: leveled account nodes and delegation edges",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := OpenSession()
		if err != nil {
			return err
		}
		defer sess.Close()

		g, err := sess.Graph()
		if err != nil {
			return err
		}

		if graphJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(g)
		}

		fmt.Printf("\n  %d accounts, %d delegations (source: %s)\n", len(g.Nodes), len(g.Edges), sess.Source)
		level := -1
		for _, n := range g.Nodes {
			if n.Data.Level != level {
				level = n.Data.Level
				fmt.Printf("\n  LEVEL %d\n", level)
			}
			root := ""
			if n.Data.IsRoot {
				root = "  [root]"
			}
			fmt.Printf("    %-8s %s  (%.0f, %.0f)%s\n",
				n.Data.Name, account.FormatAddress(n.Data.Address), n.Position.X, n.Position.Y, root)
		}

		if len(g.Edges) > 0 {
			fmt.Println("\n  DELEGATIONS")
			fmt.Println("  ────────────────────────────────────────")
		}
		for _, e := range g.Edges {
			from, _ := g.Node(e.Source)
			to, _ := g.Node(e.Target)
			fmt.Printf("  %s -> %s  (%s)\n", from.Data.Name, to.Data.Name, e.Data.Label)
			for _, c := range e.Data.Caveats {
				fmt.Printf("      - %s\n", c.Description())
			}
		}
		fmt.Println()
		return nil
	},
}

func init() {
	graphCmd.Flags().BoolVar(&graphJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(graphCmd)
}
