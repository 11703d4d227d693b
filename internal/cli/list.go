package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agusx1211/scamsim/internal/config"
	"github.com/agusx1211/scamsim/internal/scenario"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List personas and their scenarios",
	Args:    cobra.NoArgs,
	RunE:    runList,
}

func init() {
	listCmd.Flags().String("persona", "", "Only list scenarios for this persona")
	listCmd.Flags().Bool("json", false, "Print scenario summaries as JSON")
	rootCmd.AddCommand(listCmd)
}

type scenarioListing struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Persona  string `json:"persona"`
	Turns    int    `json:"turns"`
	IOCs     int    `json:"iocs"`
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	personaID, _ := cmd.Flags().GetString("persona")
	asJSON, _ := cmd.Flags().GetBool("json")
	out := cmd.OutOrStdout()

	personas := catalog.Personas()
	if personaID != "" {
		p, err := catalog.Persona(personaID)
		if err != nil {
			return err
		}
		personas = []scenario.Persona{*p}
	}

	if asJSON {
		var rows []scenarioListing
		for _, p := range personas {
			for _, sc := range catalog.ScenariosFor(p.ID) {
				rows = append(rows, scenarioListing{
					ID:       sc.ID,
					Title:    sc.Title,
					Category: sc.Category,
					Persona:  sc.Persona,
					Turns:    len(sc.Turns),
					IOCs:     len(sc.IOCs),
				})
			}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	for _, p := range personas {
		printHeader(out, fmt.Sprintf("%s (%s), %d, %s", p.Name, p.ID, p.Age, p.Location))
		scenarios := catalog.ScenariosFor(p.ID)
		if len(scenarios) == 0 {
			fmt.Fprintf(out, "  %sno scenarios%s\n", colorDim, colorReset)
			continue
		}
		for _, sc := range scenarios {
			fmt.Fprintf(out, "  %s%-16s%s %s %s(%s, %s)%s\n",
				styleBoldWhite, sc.ID, colorReset, sc.Title,
				colorDim, plural(len(sc.Turns), "turn", "turns"), plural(len(sc.IOCs), "IOC", "IOCs"), colorReset)
		}
	}
	fmt.Fprintln(out)
	return nil
}
