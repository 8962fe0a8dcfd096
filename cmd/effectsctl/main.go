package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"skineffects.io/internal/persistence/indexdb"
	persistlog "skineffects.io/internal/persistence/log"
	"skineffects.io/internal/persistence/snapshot"
	"skineffects.io/internal/sim/effects"
	"skineffects.io/internal/sim/tuning"
	"skineffects.io/internal/sim/world"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var tuningPath, baseURL string

	root := &cobra.Command{
		Use:           "effectsctl",
		Short:         "Inspect skin effect exports, journals and the transition index",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&tuningPath, "tuning", "./configs/tuning.yaml", "tuning.yaml used to compute levels")
	root.PersistentFlags().StringVar(&baseURL, "url", "http://127.0.0.1:8080", "server base url")

	root.AddCommand(newInspectCmd(&tuningPath))
	root.AddCommand(newTransitionsCmd())
	root.AddCommand(newExportsCmd())
	root.AddCommand(newSessionsCmd())
	root.AddCommand(newFramesCmd())
	root.AddCommand(newStateCmd(&baseURL))
	root.AddCommand(newExportCmd(&baseURL))
	return root
}

func loadTuning(path string) (tuning.Tuning, error) {
	t, err := tuning.Load(path)
	if err != nil {
		if os.IsNotExist(err) {
			return tuning.Defaults(), nil
		}
		return t, err
	}
	return t, nil
}

func newInspectCmd(tuningPath *string) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "inspect <export.store.zst>",
		Short: "Print the characters and levels held in a store export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := snapshot.ReadSnapshot(args[0])
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}
			tune, err := loadTuning(*tuningPath)
			if err != nil {
				return err
			}
			return printStore(cmd.OutOrStdout(), snap, tune.Effects())
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw export as JSON")
	return cmd
}

func printStore(out io.Writer, snap snapshot.StoreV1, cfg effects.Config) error {
	_, _ = fmt.Fprintf(out, "export v%d session=%s frame=%d entries=%d deflower_off=%d\n",
		snap.Header.Version, snap.Header.SessionID, snap.Header.Frame, len(snap.Entries), len(snap.DeflowerOff))

	tw := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	_, _ = fmt.Fprint(tw, "CHARACTER\tKEY")
	for _, n := range effects.Names {
		_, _ = fmt.Fprintf(tw, "\t%s", n)
	}
	_, _ = fmt.Fprintln(tw, "\tFLAGS")
	for _, e := range snap.Entries {
		es := &effects.Snapshot{Raw: make(map[effects.Name]float64, len(e.Raw))}
		for k, v := range e.Raw {
			es.Raw[effects.Name(k)] = v
		}
		key := e.Key
		if key == "" {
			key = "-"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s", e.Character, key)
		for _, n := range effects.Names {
			_, _ = fmt.Fprintf(tw, "\t%d", es.Level(cfg, n))
		}
		flags := ""
		if e.DeflowerDisabled {
			flags = "deflower_disabled"
		}
		for _, m := range e.Consumed {
			if flags != "" {
				flags += ","
			}
			flags += m
		}
		if flags == "" {
			flags = "-"
		}
		_, _ = fmt.Fprintf(tw, "\t%s\n", flags)
	}
	return tw.Flush()
}

func newTransitionsCmd() *cobra.Command {
	var (
		dbPath string
		filter indexdb.TransitionFilter
	)
	cmd := &cobra.Command{
		Use:   "transitions",
		Short: "Query scene hand-offs from the sqlite index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := indexdb.OpenReader(dbPath)
			if err != nil {
				return err
			}
			defer r.Close()
			rows, err := r.Transitions(context.Background(), filter)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no transitions")
				return nil
			}
			return printTransitions(cmd.OutOrStdout(), rows)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "./data/worlds/main/index/effects.sqlite", "index database path")
	cmd.Flags().StringVar(&filter.Session, "session", "", "session id (one server run)")
	cmd.Flags().StringVar(&filter.Character, "character", "", "character id or host key")
	cmd.Flags().StringVar(&filter.Stage, "stage", "", "started|applied|drained")
	cmd.Flags().Uint64Var(&filter.FromFrame, "from", 0, "first frame (inclusive)")
	cmd.Flags().IntVar(&filter.Limit, "limit", 100, "max rows")
	return cmd
}

func printTransitions(out io.Writer, rows []world.TransitionEntry) error {
	tw := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "SESSION\tFRAME\tKEY\tSTAGE\tPOLICY\tAFTER_SCENE\tFROM\tTO\tRESTORED\tINTERRUPTED")
	for _, e := range rows {
		key := e.Key
		if key == "" {
			key = e.Character
		}
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%t\t%s\t%s\t%t\t%t\n",
			dash(e.Session), e.Frame, key, e.Stage, dash(e.Policy), e.AfterScene, dash(e.From), dash(e.To), e.Restored, e.Interrupted)
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func newExportsCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "exports",
		Short: "List store exports recorded in the sqlite index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := indexdb.OpenReader(dbPath)
			if err != nil {
				return err
			}
			defer r.Close()
			rows, err := r.Exports(context.Background())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "RECORDED_AT\tSESSION\tFRAME\tENTRIES\tPATH")
			for _, e := range rows {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", e.RecordedAt, e.SessionID, e.Frame, e.Entries, e.Path)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "./data/worlds/main/index/effects.sqlite", "index database path")
	return cmd
}

func newSessionsCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List the server runs recorded in the sqlite index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := indexdb.OpenReader(dbPath)
			if err != nil {
				return err
			}
			defer r.Close()
			rows, err := r.Sessions(context.Background())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "SESSION\tFRAMES\tFIRST\tLAST\tREJECTED")
			for _, s := range rows {
				_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", dash(s.SessionID), s.Frames, s.FirstFrame, s.LastFrame, s.Rejected)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "./data/worlds/main/index/effects.sqlite", "index database path")
	return cmd
}

type journalSummary struct {
	Files      int
	Sessions   int
	Frames     int
	Messages   int
	Rejected   int
	FirstFrame uint64
	LastFrame  uint64
}

func newFramesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "frames <world-dir>",
		Short: "Summarize the frame journal of a world data directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := summarizeJournal(args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "files=%d sessions=%d frames=%d messages=%d rejected=%d first=%d last=%d\n",
				s.Files, s.Sessions, s.Frames, s.Messages, s.Rejected, s.FirstFrame, s.LastFrame)
			return nil
		},
	}
}

func summarizeJournal(dir string) (journalSummary, error) {
	var s journalSummary
	files, err := persistlog.ListFiles(filepath.Join(dir, "frames"), "frames")
	if err != nil {
		return s, err
	}
	s.Files = len(files)
	var session string
	for _, path := range files {
		err := persistlog.ReadJSONL(path, func(line []byte) error {
			var e world.FrameLogEntry
			if err := json.Unmarshal(line, &e); err != nil {
				return err
			}
			if s.Frames == 0 || e.Session != session {
				session = e.Session
				s.Sessions++
			}
			if s.Frames == 0 {
				s.FirstFrame = e.Frame
			}
			s.Frames++
			s.Messages += len(e.Messages)
			s.Rejected += e.Rejected
			s.LastFrame = e.Frame
			return nil
		})
		if err != nil {
			return s, err
		}
	}
	return s, nil
}
