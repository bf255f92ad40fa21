package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"taskboard/internal/app"
	"taskboard/internal/config"
	"taskboard/internal/models/task"
	"taskboard/internal/store"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func exportCmd(configPath *string) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print the stored task collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			st, err := app.OpenStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			blob, err := st.Get(cmd.Context(), cfg.Storage.Key)
			if err != nil && !errors.Is(err, store.ErrAbsent) {
				return err
			}
			tasks, err := task.UnmarshalList(blob)
			if err != nil {
				return err
			}
			return writeTasks(cmd.OutOrStdout(), format, tasks)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format (json, yaml)")
	return cmd
}

func writeTasks(w io.Writer, format string, tasks []task.Task) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(tasks)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(tasks)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
