package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/agusx1211/scamsim/internal/config"
	"github.com/agusx1211/scamsim/internal/scenario"
)

// loadCatalog returns the catalog named by cfg, or the embedded one.
func loadCatalog(cfg *config.Config) (*scenario.Catalog, error) {
	if path := strings.TrimSpace(cfg.CatalogPath); path != "" {
		c, err := scenario.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading catalog: %w", err)
		}
		return c, nil
	}
	return scenario.Default()
}

// printHeader prints a formatted section header.
func printHeader(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s%s%s\n", styleBoldCyan, title, colorReset)
	fmt.Fprintln(w, colorDim+strings.Repeat("-", len(title)+2)+colorReset)
}

// printField prints a labeled field.
func printField(w io.Writer, label, value string) {
	fmt.Fprintf(w, "  %s%-16s%s %s\n", colorBold, label+":", colorReset, value)
}

// printFieldColored prints a labeled field with colored value.
func printFieldColored(w io.Writer, label, value, color string) {
	fmt.Fprintf(w, "  %s%-16s%s %s%s%s\n", colorBold, label+":", colorReset, color, value, colorReset)
}

// roleColor returns the ANSI color for a speaker role.
func roleColor(r scenario.Role) string {
	switch r {
	case scenario.RoleScammer:
		return styleBoldRed
	case scenario.RolePersona:
		return styleBoldGreen
	default:
		return colorDim
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}

func formatElapsed(d time.Duration) string {
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
