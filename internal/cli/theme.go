package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agusx1211/scamsim/internal/config"
	"github.com/agusx1211/scamsim/internal/theme"
)

var themeCmd = &cobra.Command{
	Use:       "theme [dark|light|toggle]",
	Short:     "Show or set the player theme",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{theme.Dark, theme.Light, "toggle"},
	RunE:      runTheme,
}

func init() {
	rootCmd.AddCommand(themeCmd)
}

func runTheme(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFile()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(args) == 0 {
		fmt.Fprintln(out, cfg.Theme)
		return nil
	}

	switch args[0] {
	case "toggle":
		cfg.Theme = theme.Toggle(cfg.Theme)
	case theme.Dark, theme.Light:
		cfg.Theme = args[0]
	default:
		return fmt.Errorf("unknown theme %q (want %s, %s or toggle)", args[0], theme.Dark, theme.Light)
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Fprintf(out, "theme set to %s%s%s\n", styleBoldWhite, cfg.Theme, colorReset)
	return nil
}
