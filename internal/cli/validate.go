package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/agusx1211/scamsim/internal/config"
	"github.com/agusx1211/scamsim/internal/scenario"
)

var validateCmd = &cobra.Command{
	Use:   "validate [catalog.yaml]",
	Short: "Validate a scenario catalog",
	Long: `Load a catalog file and check every persona reference, turn role and IOC
reveal index. Without a file, the configured (or embedded) catalog is checked.

With --watch the file is checked again every time it is saved.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().Bool("watch", false, "Re-validate the catalog file on every save")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	var (
		catalog *scenario.Catalog
		path    string
		source  string
		err     error
	)
	if len(args) == 1 {
		path = args[0]
		source = path
		catalog, err = scenario.LoadFile(path)
	} else {
		var cfg *config.Config
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		path = cfg.CatalogPath
		source = path
		if source == "" {
			source = "embedded catalog"
		}
		catalog, err = loadCatalog(cfg)
	}

	watch, _ := cmd.Flags().GetBool("watch")
	out := cmd.OutOrStdout()
	if !watch {
		if err != nil {
			return fmt.Errorf("%s: %w", source, err)
		}
		reportCatalog(out, source, catalog)
		return nil
	}

	if path == "" {
		return fmt.Errorf("--watch needs a catalog file")
	}
	report := func(c *scenario.Catalog, err error) {
		if err != nil {
			fmt.Fprintf(out, "%s✗%s %s: %v\n", styleBoldRed, colorReset, source, err)
			return
		}
		reportCatalog(out, source, c)
	}
	report(catalog, err)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	fmt.Fprintf(out, "%swatching %s, ctrl+c to stop%s\n", colorDim, path, colorReset)
	return scenario.Watch(ctx, path, report)
}

func reportCatalog(w io.Writer, source string, catalog *scenario.Catalog) {
	turns, iocs := 0, 0
	for _, sc := range catalog.Scenarios() {
		turns += len(sc.Turns)
		iocs += len(sc.IOCs)
	}
	fmt.Fprintf(w, "%s✓%s %s: %s, %s, %s, %s\n",
		styleBoldGreen, colorReset, source,
		plural(len(catalog.Personas()), "persona", "personas"),
		plural(len(catalog.Scenarios()), "scenario", "scenarios"),
		plural(turns, "turn", "turns"),
		plural(iocs, "IOC", "IOCs"),
	)
}
