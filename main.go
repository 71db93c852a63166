package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"taskboard/app/config"
	"taskboard/app/hierarchy"
	"taskboard/app/models"
	"taskboard/app/services"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootFlags struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:          "taskboard",
		Short:        "Inspect task hierarchies and taskboard configuration",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "error", "log level for diagnostics on stderr")

	root.AddCommand(newTreeCmd(flags), newStatsCmd(), newConfigCmd(flags))
	return root
}

func (f *rootFlags) logger(w io.Writer) (*slog.Logger, error) {
	level, err := config.ParseLevel(f.logLevel)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

type queryFlags struct {
	search   string
	status   string
	priority string
	assignee string
}

func (q *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&q.search, "search", "", "case-insensitive title or description match")
	cmd.Flags().StringVar(&q.status, "status", "", "only sub-tasks with this status")
	cmd.Flags().StringVar(&q.priority, "priority", "", "only sub-tasks with this priority")
	cmd.Flags().StringVar(&q.assignee, "assignee", "", "only sub-tasks assigned to this person")
}

func (q *queryFlags) query() services.Query {
	return services.Query{Search: q.search, Status: q.status, Priority: q.priority, Assignee: q.assignee}
}

func newTreeCmd(flags *rootFlags) *cobra.Command {
	var (
		q      queryFlags
		expand string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "tree FILE",
		Short: "Render a YAML or JSON sub-task fixture as an outline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := flags.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			subs, err := readFixture(args[0])
			if err != nil {
				return err
			}

			opts := services.TreeOptions{Query: q.query()}
			if expand == "all" {
				opts.ExpandAll = true
			} else {
				opts.Expanded = hierarchy.ParseExpanded(expand)
			}
			view, err := services.BuildTreeView(subs, opts, logger)
			if err != nil {
				return fmt.Errorf("could not build task tree: %w", err)
			}

			for _, w := range view.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: sub-task %s: parent %s not found, shown at root\n", w.NodeID, w.ParentID)
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(view)
			}
			renderOutline(cmd.OutOrStdout(), view)
			return nil
		},
	}
	q.register(cmd)
	cmd.Flags().StringVar(&expand, "expand", "", `comma-separated sub-task IDs to expand, or "all"`)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the tree view as JSON")
	return cmd
}

func renderOutline(w io.Writer, view *services.TreeView) {
	if len(view.Rows) == 0 {
		fmt.Fprintln(w, "no sub-tasks")
		return
	}
	for _, row := range view.Rows {
		marker := "-"
		switch {
		case row.Expanded:
			marker = "v"
		case row.HasChildren:
			marker = ">"
		}
		st := row.SubTask
		line := fmt.Sprintf("%s%s %s [%s, %s]", strings.Repeat("  ", row.Depth), marker, st.Title, st.Status, st.Priority)
		if st.AssignedTo != "" {
			line += " @" + st.AssignedTo
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "%d of %d shown\n", len(view.Rows), view.Total)
}

func newStatsCmd() *cobra.Command {
	var q queryFlags
	cmd := &cobra.Command{
		Use:   "stats FILE",
		Short: "Count the sub-tasks of a fixture by status, priority and level",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subs, err := readFixture(args[0])
			if err != nil {
				return err
			}
			stats := services.ComputeStats(subs, q.query(), time.Now())
			out, err := yaml.Marshal(stats)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	q.register(cmd)
	return cmd
}

func newConfigCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective server configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}
			if cfg.Neo4j.Password != "" {
				cfg.Neo4j.Password = "********"
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

// fixture is the on-disk shape read by tree and stats. JSON files decode
// through the same YAML decoder.
type fixture struct {
	TaskID   string           `yaml:"task_id"`
	SubTasks []fixtureSubTask `yaml:"sub_tasks"`
}

type fixtureSubTask struct {
	ID              string   `yaml:"id"`
	TaskID          string   `yaml:"task_id"`
	ParentSubTaskID *string  `yaml:"parent_sub_task_id"`
	Title           string   `yaml:"title"`
	Description     string   `yaml:"description"`
	Status          string   `yaml:"status"`
	Priority        string   `yaml:"priority"`
	AssignedTo      string   `yaml:"assigned_to"`
	DueDate         string   `yaml:"due_date"`
	Tags            []string `yaml:"tags"`
	Level           int      `yaml:"level"`
	OrderIndex      int      `yaml:"order_index"`
}

func readFixture(path string) ([]models.SubTask, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseFixture(raw)
}

func parseFixture(raw []byte) ([]models.SubTask, error) {
	var f fixture
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}

	taskID := f.TaskID
	if taskID == "" {
		taskID = "fixture"
	}
	subs := make([]models.SubTask, 0, len(f.SubTasks))
	for i, in := range f.SubTasks {
		if in.ID == "" {
			return nil, fmt.Errorf("sub_tasks[%d]: id is required", i)
		}
		status, err := models.ParseStatus(in.Status)
		if err != nil {
			return nil, fmt.Errorf("sub-task %s: %w", in.ID, err)
		}
		priority, err := models.ParsePriority(in.Priority)
		if err != nil {
			return nil, fmt.Errorf("sub-task %s: %w", in.ID, err)
		}
		st := models.SubTask{
			ID:              in.ID,
			TaskID:          in.TaskID,
			ParentSubTaskID: in.ParentSubTaskID,
			Title:           in.Title,
			Description:     in.Description,
			Status:          status,
			Priority:        priority,
			AssignedTo:      in.AssignedTo,
			Tags:            in.Tags,
			Level:           in.Level,
			OrderIndex:      in.OrderIndex,
		}
		if st.TaskID == "" {
			st.TaskID = taskID
		}
		if st.ParentSubTaskID != nil && *st.ParentSubTaskID == "" {
			st.ParentSubTaskID = nil
		}
		if in.DueDate != "" {
			due, err := parseDate(in.DueDate)
			if err != nil {
				return nil, fmt.Errorf("sub-task %s: due_date: %w", in.ID, err)
			}
			st.DueDate = &due
		}
		subs = append(subs, st)
	}
	return subs, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}
