package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/aecg-cli/internal/core/domain"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage application settings",
	Long: `View and change the settings stored in ~/.aecg/config.toml.

Keys:
  index.nprocs        files decoded in parallel
  index.stddev        summary standard deviation (population or sample)
  index.annlead       default primary annotated lead
  index.allintervals  keep every interval by default (true or false)
  index.strict        require the HL7 v3 namespace on the root (true or false)
  log.level           debug, info, warn or error
  log.format          console or json
  store.dir           directory of the index database`,
	RunE: runConfigList,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show all settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigList,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Show one setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

func init() {
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigList(cmd *cobra.Command, _ []string) error {
	if err := requireService("settings", settingsService); err != nil {
		return err
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	entries := settings.Entries()
	rows := make([]table.Row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, table.Row{e.Name, e.Value})
	}
	render(cmd.OutOrStdout(), "Settings", table.Row{"Key", "Value"}, rows)
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	if err := requireService("settings", settingsService); err != nil {
		return err
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	for _, e := range settings.Entries() {
		if e.Name == args[0] {
			cmd.Println(e.Value)
			return nil
		}
	}
	return fmt.Errorf("unknown setting %q: %w", args[0], domain.ErrInvalidInput)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if err := requireService("settings", settingsService); err != nil {
		return err
	}

	if err := settingsService.SetValue(args[0], args[1]); err != nil {
		return fmt.Errorf("failed to set %s: %w", args[0], err)
	}

	cmd.Printf("%s = %s\n", args[0], args[1])
	return nil
}
