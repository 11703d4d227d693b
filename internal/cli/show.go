package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agusx1211/scamsim/internal/config"
)

var showCmd = &cobra.Command{
	Use:   "show <scenario>",
	Short: "Show a scenario's details",
	Long: `Show a scenario's persona, category and IOC categories.

IOC values stay hidden unless --reveal is given, since they are meant to be
discovered during playback.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().Bool("reveal", false, "Also print IOC values and the turn that reveals them")
	showCmd.Flags().Bool("script", false, "Print the full script")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return err
	}
	sc, err := catalog.Scenario(args[0])
	if err != nil {
		return err
	}

	reveal, _ := cmd.Flags().GetBool("reveal")
	script, _ := cmd.Flags().GetBool("script")
	out := cmd.OutOrStdout()

	printHeader(out, sc.Title)
	printField(out, "ID", sc.ID)
	printField(out, "Category", sc.Category)
	if p, err := catalog.Persona(sc.Persona); err == nil {
		printField(out, "Persona", fmt.Sprintf("%s (%s)", p.Name, p.ID))
	} else {
		printField(out, "Persona", sc.Persona)
	}
	printField(out, "Turns", fmt.Sprint(len(sc.Turns)))
	printField(out, "Description", sc.Description)

	if len(sc.IOCs) > 0 {
		if reveal {
			printHeader(out, "IOCs")
			for _, ioc := range sc.IOCs {
				printFieldColored(out, ioc.Category, fmt.Sprintf("%s (turn %d)", ioc.Value, ioc.RevealAt), colorYellow)
			}
		} else {
			seen := map[string]bool{}
			var cats []string
			for _, ioc := range sc.IOCs {
				if !seen[ioc.Category] {
					seen[ioc.Category] = true
					cats = append(cats, ioc.Category)
				}
			}
			printField(out, "IOCs", fmt.Sprintf("%d (%s)", len(sc.IOCs), strings.Join(cats, ", ")))
		}
	}

	if script {
		printHeader(out, "Script")
		for i, turn := range sc.Turns {
			fmt.Fprintf(out, "  %s%2d%s %s%-8s%s %s\n", colorDim, i, colorReset, roleColor(turn.Role), turn.Role, colorReset, turn.Text)
			if !reveal {
				continue
			}
			for _, ioc := range sc.IOCsAt(i) {
				fmt.Fprintf(out, "     %s! %s %s%s\n", colorYellow, ioc.Category, ioc.Value, colorReset)
			}
		}
	}
	fmt.Fprintln(out)
	return nil
}
