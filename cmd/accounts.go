package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var accountsJSON bool

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List the session's accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := OpenSession()
		if err != nil {
			return err
		}
		defer sess.Close()

		accounts := sess.Accounts.All()
		if accountsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(accounts)
		}
		for _, a := range accounts {
			fmt.Printf("  %-8s %-8s %s  %s\n", a.ID, a.Name, a.Address, a.Balance)
		}
		return nil
	},
}

func init() {
	accountsCmd.Flags().BoolVar(&accountsJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(accountsCmd)
}
