package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agusx1211/scamsim/internal/audit"
	"github.com/agusx1211/scamsim/internal/config"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the playback audit log",
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify [path]",
	Short: "Recompute the audit log hash chain",
	Long: `Recompute every entry hash and chain hash in the audit log and report the
first line that does not match. Defaults to the configured audit log.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAuditVerify,
}

func init() {
	auditCmd.AddCommand(auditVerifyCmd)
	rootCmd.AddCommand(auditCmd)
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	var path string
	if len(args) == 1 {
		path = args[0]
	} else {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		path = cfg.ResolvedAuditPath()
	}

	n, err := audit.Verify(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("no audit log at %s (enable it with 'scamsim play --audit')", path)
	}
	if err != nil {
		var chainErr *audit.ChainError
		if errors.As(err, &chainErr) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s✗%s %s: %d entries verified before line %d\n",
				styleBoldRed, colorReset, path, n, chainErr.Line)
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s✓%s %s: %s verified\n", styleBoldGreen, colorReset, path, plural(n, "entry", "entries"))
	return nil
}
