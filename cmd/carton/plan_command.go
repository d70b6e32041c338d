package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"carton/internal/container"
	"carton/internal/preflight"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "plan <manifest.csv> <output-root>",
		Short: "Preview the container tree without touching the filesystem",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			manifestPath, err := expandArg(args[0])
			if err != nil {
				return err
			}
			outputRoot, err := expandArg(args[1])
			if err != nil {
				return err
			}

			if err := preflight.Err([]preflight.Result{
				preflight.CheckManifestFile("Manifest", manifestPath),
			}); err != nil {
				return err
			}

			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}
			planned, err := ctx.newContainer(manifestPath, outputRoot, logger, nil, false, false)
			if err != nil {
				return err
			}
			root, err := planned.Plan(cmd.Context())
			if err != nil {
				return err
			}

			if jsonFlag {
				return writeJSON(cmd, planJSON(root))
			}

			out := cmd.OutOrStdout()
			folders, files := root.Count()
			fmt.Fprintf(out, "Planned %d %s and %d %s under %s\n",
				folders, plural(folders, "folder", "folders"),
				files, plural(files, "file", "files"),
				root.OutputPath)
			fmt.Fprintln(out, renderTable([]string{"PATH", "KIND", "SOURCE"}, planRows(root)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit the plan as JSON")
	return cmd
}

func planRows(root *container.Node) [][]string {
	var rows [][]string
	_ = root.Walk(func(node *container.Node) error {
		if node == root {
			return nil
		}
		rel, err := filepath.Rel(root.OutputPath, node.OutputPath)
		if err != nil {
			rel = node.OutputPath
		}
		rows = append(rows, []string{rel, string(node.Kind), node.SourcePath})
		return nil
	})
	return rows
}

func planJSON(root *container.Node) map[string]any {
	type plannedNode struct {
		Path   string `json:"path"`
		Kind   string `json:"kind"`
		Source string `json:"source,omitempty"`
	}
	nodes := make([]plannedNode, 0, 16)
	_ = root.Walk(func(node *container.Node) error {
		if node == root {
			return nil
		}
		nodes = append(nodes, plannedNode{
			Path:   node.OutputPath,
			Kind:   string(node.Kind),
			Source: node.SourcePath,
		})
		return nil
	})
	folders, files := root.Count()
	return map[string]any{
		"output_root": root.OutputPath,
		"folders":     folders,
		"files":       files,
		"nodes":       nodes,
	}
}
