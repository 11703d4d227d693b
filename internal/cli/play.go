package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/agusx1211/scamsim/internal/audit"
	"github.com/agusx1211/scamsim/internal/config"
	"github.com/agusx1211/scamsim/internal/debug"
	"github.com/agusx1211/scamsim/internal/playback"
	"github.com/agusx1211/scamsim/internal/recording"
	"github.com/agusx1211/scamsim/internal/scenario"
	"github.com/agusx1211/scamsim/internal/tui"
)

var playCmd = &cobra.Command{
	Use:   "play [scenario]",
	Short: "Play a scenario",
	Long: `Play a scenario in the interactive player, or auto-play it as plain text
when stdout is not a terminal (or with --plain).

Without a scenario id the player opens on the persona carousel.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlay,
}

func init() {
	addPlayFlags(playCmd)
	rootCmd.AddCommand(playCmd)
}

func addPlayFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("plain", false, "Auto-play as plain text instead of the interactive player")
	cmd.Flags().Bool("fast", false, "Collapse every delay to zero")
	cmd.Flags().Bool("record", false, "Save a JSON transcript of every session to the recordings directory")
	cmd.Flags().Bool("audit", false, "Append events to the hash-chained audit log")
}

func runPlay(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	plain, _ := cmd.Flags().GetBool("plain")
	fast, _ := cmd.Flags().GetBool("fast")
	record, _ := cmd.Flags().GetBool("record")
	withAudit, _ := cmd.Flags().GetBool("audit")

	pacing := cfg.Pacing()
	if fast {
		pacing = playback.Instant()
	}

	var sinks []playback.Sink
	var rec *recording.Recorder
	if record {
		rec = recording.New(cfg.ResolvedRecordingsDir())
		sinks = append(sinks, rec)
	}
	if withAudit || cfg.Audit.Enabled {
		log, err := audit.Open(cfg.ResolvedAuditPath())
		if err != nil {
			return fmt.Errorf("opening audit log: %w", err)
		}
		defer func() {
			log.Close()
			if n := log.Failed(); n > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s not written to %s\n", plural(n, "audit entry was", "audit entries were"), log.Path())
			}
		}()
		sinks = append(sinks, log)
	}

	scenarioID := ""
	if len(args) > 0 {
		scenarioID = args[0]
	}

	out := cmd.OutOrStdout()
	interactive := !plain && isTerminal(out)
	debug.LogKV("cli", "play", "scenario", scenarioID, "interactive", interactive, "fast", fast, "record", record)

	if interactive {
		err = tui.Run(catalog, tui.Options{
			Pacing:    pacing,
			Theme:     cfg.Theme,
			SaveTheme: saveTheme,
			Sinks:     sinks,
			Scenario:  scenarioID,
		})
	} else {
		if scenarioID == "" {
			return fmt.Errorf("a scenario id is required when not running in a terminal (see 'scamsim list')")
		}
		var sc *scenario.Scenario
		sc, err = catalog.Scenario(scenarioID)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		err = playPlain(ctx, out, catalog, sc, playback.Options{Pacing: pacing}, sinks...)
	}
	if err != nil {
		return err
	}

	if rec != nil {
		paths, err := rec.SaveAll()
		for _, path := range paths {
			fmt.Fprintf(cmd.ErrOrStderr(), "%srecording saved to %s%s\n", colorDim, path, colorReset)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

func saveTheme(name string) error {
	cfg, err := config.LoadFile()
	if err != nil {
		return err
	}
	cfg.Theme = name
	return config.Save(cfg)
}

// playPlain auto-plays sc to the end, printing each turn and reveal to w.
// It returns early with ctx's error if ctx is cancelled.
func playPlain(ctx context.Context, w io.Writer, catalog *scenario.Catalog, sc *scenario.Scenario, opts playback.Options, sinks ...playback.Sink) error {
	speaker := map[scenario.Role]string{
		scenario.RoleScammer: "Scammer",
		scenario.RolePersona: "Persona",
		scenario.RoleSystem:  "Note",
	}
	if p, err := catalog.Persona(sc.Persona); err == nil {
		speaker[scenario.RolePersona] = p.Name
	}

	done := make(chan struct{})
	var once sync.Once
	finish := func() { once.Do(func() { close(done) }) }

	var revealed int
	printer := playback.Funcs{
		Cleared: func(ev playback.Cleared) {
			fmt.Fprintf(w, "%s%s%s (%s)\n\n", styleBoldCyan, sc.Title, colorReset, plural(ev.Total, "turn", "turns"))
		},
		Message: func(ev playback.Message) {
			fmt.Fprintf(w, "%s%s:%s %s\n", roleColor(ev.Role), speaker[ev.Role], colorReset, ev.Text)
		},
		Reveal: func(ev playback.Reveal) {
			for _, ioc := range ev.IOCs {
				revealed++
				fmt.Fprintf(w, "  %s! %s%s %s\n", colorYellow, ioc.Category, colorReset, ioc.Value)
			}
		},
		Ended: func(playback.Ended) { finish() },
		AutoPlay: func(ev playback.AutoPlayChanged) {
			if !ev.Running {
				finish()
			}
		},
	}

	engine := playback.New(playback.Tee(append([]playback.Sink{printer}, sinks...)...), opts)
	defer engine.Close()

	engine.Reset(sc)
	engine.StartAutoPlay()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	st := engine.Snapshot()
	fmt.Fprintf(w, "\n%sconversation complete:%s %s, %s revealed, %s elapsed\n",
		styleBoldGreen, colorReset,
		plural(st.Cursor, "turn", "turns"),
		plural(revealed, "IOC", "IOCs"),
		formatElapsed(st.Elapsed),
	)
	return nil
}
