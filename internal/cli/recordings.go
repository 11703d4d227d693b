package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/agusx1211/scamsim/internal/config"
	"github.com/agusx1211/scamsim/internal/recording"
)

var recordingsCmd = &cobra.Command{
	Use:   "recordings [file]",
	Short: "List saved transcripts, or print one",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRecordings,
}

func init() {
	rootCmd.AddCommand(recordingsCmd)
}

func runRecordings(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if len(args) == 1 {
		t, err := recording.Load(args[0])
		if err != nil {
			return err
		}
		printTranscript(cmd, t)
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	dir := cfg.ResolvedRecordingsDir()
	paths, err := recording.List(dir)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Fprintf(out, "%sno recordings in %s%s\n", colorDim, dir, colorReset)
		return nil
	}
	for _, p := range paths {
		t, err := recording.Load(p)
		if err != nil {
			fmt.Fprintf(out, "  %s%s%s %s(unreadable: %v)%s\n", styleBoldWhite, filepath.Base(p), colorReset, colorRed, err, colorReset)
			continue
		}
		fmt.Fprintf(out, "  %s%-22s%s %-14s %s  %s\n",
			styleBoldWhite, filepath.Base(p), colorReset,
			t.ScenarioID, t.StartedAt.Local().Format("2006-01-02 15:04"), plural(len(t.Events), "event", "events"))
	}
	return nil
}

func printTranscript(cmd *cobra.Command, t *recording.Transcript) {
	out := cmd.OutOrStdout()
	printHeader(out, "Transcript "+t.SessionID)
	printField(out, "Scenario", t.ScenarioID)
	printField(out, "Started", t.StartedAt.Local().Format("2006-01-02 15:04:05"))
	printField(out, "Elapsed", formatElapsed(t.Elapsed))
	fmt.Fprintln(out)
	for _, ev := range t.Events {
		offset := ev.Timestamp.Sub(t.StartedAt).Round(100 * time.Millisecond)
		switch ev.Type {
		case recording.EventMessage:
			fmt.Fprintf(out, "  %s%8s%s %s%-8s%s %s\n", colorDim, offset, colorReset, roleColor(ev.Role), ev.Role, colorReset, ev.Text)
		case recording.EventReveal:
			for _, ioc := range ev.IOCs {
				fmt.Fprintf(out, "  %s%8s%s %s! %s%s %s\n", colorDim, offset, colorReset, colorYellow, ioc.Category, colorReset, ioc.Value)
			}
		default:
			fmt.Fprintf(out, "  %s%8s %s%s\n", colorDim, offset, ev.Type, colorReset)
		}
	}
	fmt.Fprintln(out)
}
