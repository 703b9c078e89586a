package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/mieubrisse/stacktrace"
	"github.com/spf13/cobra"

	"github.com/odyssey/handoff/internal/config"
)

var configInitForceFlag bool

var configInitCmd = &cobra.Command{
	Use:   initCmdStr,
	Short: "Initialize handoff configuration and directories",
	Long: `Initialize handoff in the current project.

Seeds .handoff/config.yml with the documented defaults and creates the source
and compact directories. The command is idempotent: an existing config is
left alone unless --force is given, which asks for confirmation when run
interactively.
`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForceFlag, forceFlagName, false, "overwrite an existing config with the defaults")
	configCmd.AddCommand(configInitCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configFilepath := config.GetConfigFilepath(projectDirpath)

	if configInitForceFlag {
		overwrite := true
		if isatty.IsTerminal(os.Stdin.Fd()) {
			reader := bufio.NewReader(os.Stdin)
			answer, err := promptYesNo(reader, fmt.Sprintf("Overwrite %s with the defaults? [y/N] ", displayPath(configFilepath)))
			if err != nil {
				return err
			}
			overwrite = answer
		}
		if overwrite {
			if err := config.ResetConfigFile(projectDirpath); err != nil {
				return err
			}
			fmt.Printf("Reset %s\n", displayPath(configFilepath))
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	for _, dir := range []string{cfg.GetSourceDir(), cfg.GetCompactDir()} {
		dirpath := config.ResolveDirpath(projectDirpath, dir)
		if err := os.MkdirAll(dirpath, 0755); err != nil {
			return stacktrace.Propagate(err, "failed to create directory '%s'", dirpath)
		}
	}

	fmt.Printf("Config:      %s\n", displayPath(configFilepath))
	fmt.Printf("Sources:     %s\n", cfg.GetSourceDir())
	fmt.Printf("Compact:     %s\n", cfg.GetCompactDir())
	fmt.Printf("Human:       %s\n", cfg.GetHumanDir())
	fmt.Printf("\nRun '%s %s --%s' to compress every document.\n", handoffCmdStr, compressCmdStr, compressAllFlagName)
	return nil
}

// promptYesNo asks a yes/no question, defaulting to no.
func promptYesNo(reader *bufio.Reader, prompt string) (bool, error) {
	for {
		fmt.Print(prompt)
		answer, err := reader.ReadString('\n')
		if err != nil {
			return false, stacktrace.Propagate(err, "failed to read input")
		}
		answer = strings.TrimSpace(strings.ToLower(answer))

		switch answer {
		case "y", "yes":
			return true, nil
		case "n", "no", "":
			return false, nil
		default:
			fmt.Println("Please enter y or n.")
		}
	}
}
