package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"caveatlab/delegraph/internal/caveat"
	"caveatlab/delegraph/internal/delegation"
)

var (
	caveatsJSON    bool
	decodeEnforcer string
	decodeTerms    string
	decodeArgs     string
)

var caveatsCmd = &cobra.Command{
	Use:   "caveats",
	Short: "List the supported caveat types and their enforcers",
	RunE: func(cmd *cobra.Command, args []string) error {
		chain := cfg.Chain()
		if caveatsJSON {
			type entry struct {
				caveat.Meta
				Enforcer string `json:"enforcer"`
			}
			var out []entry
			for _, m := range caveat.Catalog() {
				out = append(out, entry{Meta: m, Enforcer: chain.Enforcers[m.Kind].Hex()})
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}

		fmt.Printf("\n  Caveat enforcers on %s (chain %d)\n\n", chain.Name, chain.ID)
		for _, m := range caveat.Catalog() {
			fmt.Printf("  %-26s %s\n", m.Kind, m.Name)
			fmt.Printf("  %-26s %s\n", "", m.Description)
			fmt.Printf("  %-26s enforcer %s\n\n", "", chain.Enforcers[m.Kind].Hex())
		}
		return nil
	},
}

var caveatsDecodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Decode one wire caveat into its human-readable restriction",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := OpenSession()
		if err != nil {
			return err
		}
		defer sess.Close()

		decoded, err := sess.Enforcers.Decode(delegation.Caveat{
			Enforcer: decodeEnforcer,
			Terms:    decodeTerms,
			Args:     decodeArgs,
		})
		if err != nil {
			return fmt.Errorf("decoding caveat: %w", err)
		}

		if caveatsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(decoded)
		}
		fmt.Printf("  %s: %s\n", decoded.Kind(), decoded.Description())
		return nil
	},
}

func init() {
	caveatsCmd.PersistentFlags().BoolVar(&caveatsJSON, "json", false, "Output as JSON")
	caveatsDecodeCmd.Flags().StringVar(&decodeEnforcer, "enforcer", "", "Enforcer contract address")
	caveatsDecodeCmd.Flags().StringVar(&decodeTerms, "terms", "0x", "Hex-encoded terms")
	caveatsDecodeCmd.Flags().StringVar(&decodeArgs, "args", "0x", "Hex-encoded args")
	caveatsDecodeCmd.MarkFlagRequired("enforcer")
	caveatsCmd.AddCommand(caveatsDecodeCmd)
	rootCmd.AddCommand(caveatsCmd)
}
