package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odyssey/handoff/internal/config"
	"github.com/odyssey/handoff/internal/rules"
)

var configShowEffectiveFlag bool

var configShowCmd = &cobra.Command{
	Use:   showCmdStr,
	Short: "Print the project configuration",
	Long: `Print .handoff/config.yml, comments included.

With --effective, prints the merged rule tables that compress and decompress
actually use instead.
`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

func init() {
	configShowCmd.Flags().BoolVar(&configShowEffectiveFlag, "effective", false, "print the merged rule tables")
	configCmd.AddCommand(configShowCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, cm, err := config.ReadHandoffConfig(projectDirpath)
	if err != nil {
		return err
	}

	if !configShowEffectiveFlag {
		data, err := config.MarshalHandoffConfig(cfg, cm)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	}

	table, err := cfg.BuildRuleTable()
	if err != nil {
		return err
	}
	printRules("Dictionary", table.Dictionary())
	printRules("Symbols", table.Symbols())
	fmt.Printf("\nRule fingerprint: %s\n", table.Fingerprint())
	return nil
}

func printRules(title string, rs []rules.Rule) {
	fmt.Printf("%s (%d):\n", title, len(rs))
	for _, r := range rs {
		fmt.Printf("  %-24s %s\n", r.Long, colorize(ansiLightBlue, r.Short))
	}
}
