package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/d-kuro/todo-mcp/internal/todo"
)

// Export file formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// exportVersion is the version of the export document layout.
const exportVersion = 1

// Export is the document written by export and read by import.
type Export struct {
	Version    int             `json:"version" yaml:"version"`
	ExportedAt string          `json:"exportedAt" yaml:"exportedAt"`
	Todos      []todo.TodoItem `json:"todos" yaml:"todos"`
}

// NewExportCmd creates a command writing the stored todos to a file or stdout.
func NewExportCmd() *cobra.Command {
	var (
		format string
		output string
		status string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export todos as YAML or JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := todo.Status(strings.ToLower(status))
			if !todo.IsValidFilter(filter) {
				return fmt.Errorf("invalid status %q, must be one of: pending, completed, all", status)
			}
			if format == "" {
				format = formatFromPath(output)
			}

			return withStore(cmd, func(ctx context.Context, repo *todo.Repository) error {
				doc := Export{
					Version:    exportVersion,
					ExportedAt: todo.FormatTime(time.Now()),
					Todos:      repo.FindByStatus(ctx, filter),
				}

				if output == "" || output == "-" {
					return encodeExport(cmd.OutOrStdout(), doc, format)
				}

				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				if err := encodeExport(f, doc, format); err != nil {
					_ = f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d todos to %s\n", len(doc.Todos), output)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: yaml or json, inferred from --output when empty")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file, stdout when empty")
	cmd.Flags().StringVarP(&status, "status", "s", string(todo.StatusAll), "Export only todos with this status")
	return cmd
}

// NewImportCmd creates a command loading todos from an export file.
func NewImportCmd() *cobra.Command {
	var (
		format    string
		overwrite bool
	)

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import todos from a YAML or JSON export",
		Long: `Import todos from a file written by export. Use - to read stdin.
Todos whose title already exists are skipped unless --overwrite is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if format == "" {
				format = formatFromPath(path)
			}

			var r io.Reader = cmd.InOrStdin()
			if path != "-" {
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", path, err)
				}
				defer f.Close()
				r = f
			}

			doc, err := decodeExport(r, format)
			if err != nil {
				return err
			}

			return withStore(cmd, func(ctx context.Context, repo *todo.Repository) error {
				result, err := repo.Import(ctx, doc.Todos, overwrite)
				if err != nil {
					return fmt.Errorf("import failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d todos: %d added, %d updated, %d skipped\n",
					len(doc.Todos), result.Added, result.Updated, result.Skipped)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Input format: yaml or json, inferred from the file extension when empty")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite todos whose title already exists")
	return cmd
}

func formatFromPath(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

func encodeExport(w io.Writer, doc Export, format string) error {
	switch strings.ToLower(format) {
	case FormatYAML, "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("error encoding todos as yaml: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("error encoding todos as json: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format %q, must be yaml or json", format)
	}
}

func decodeExport(r io.Reader, format string) (Export, error) {
	var doc Export
	switch strings.ToLower(format) {
	case FormatYAML, "yml":
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
			return Export{}, fmt.Errorf("error decoding yaml: %w", err)
		}
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return Export{}, fmt.Errorf("error decoding json: %w", err)
		}
	default:
		return Export{}, fmt.Errorf("unsupported format %q, must be yaml or json", format)
	}

	if doc.Version > exportVersion {
		return Export{}, fmt.Errorf("unsupported export version %d", doc.Version)
	}
	return doc, nil
}
