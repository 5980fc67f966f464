package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lherron/tasklens/internal/domain"
	"github.com/lherron/tasklens/internal/tasks"
)

// Format represents an output format
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatTSV   Format = "tsv"
)

// Options for rendering
type Options struct {
	Format    Format
	Porcelain bool
	// Fields are the task columns for table and TSV output. Defaults to
	// domain.DisplayFields.
	Fields []string
}

// Renderer handles output rendering
type Renderer struct {
	writer io.Writer
	opts   Options
}

// NewRenderer creates a new renderer
func NewRenderer(writer io.Writer, opts Options) *Renderer {
	if opts.Format == "" {
		opts.Format = FormatTable
	}
	if len(opts.Fields) == 0 {
		opts.Fields = domain.DisplayFields
	}
	return &Renderer{
		writer: writer,
		opts:   opts,
	}
}

// RenderTasks renders task records in the configured format.
func (r *Renderer) RenderTasks(records []domain.TaskRecord) error {
	switch r.opts.Format {
	case FormatJSON:
		if records == nil {
			records = []domain.TaskRecord{}
		}
		return r.RenderJSON(map[string]any{"tasks": records})
	case FormatYAML:
		return r.RenderYAML(PlainTasks(records))
	case FormatTSV, FormatTable:
		headers := append([]string{"id"}, r.opts.Fields...)
		rows := make([][]string, 0, len(records))
		for _, rec := range records {
			row := []string{rec.ID}
			for _, f := range r.opts.Fields {
				row = append(row, cell(tasks.RenderValue(rec.Field(f))))
			}
			rows = append(rows, row)
		}
		if r.opts.Format == FormatTSV {
			return r.RenderTSV(headers, rows)
		}
		return r.RenderTable(headers, rows)
	default:
		return fmt.Errorf("unknown format %q", r.opts.Format)
	}
}

// RenderIdentity renders a resolved session.
func (r *Renderer) RenderIdentity(id *domain.Identity) error {
	switch r.opts.Format {
	case FormatJSON:
		return r.RenderJSON(id)
	case FormatYAML:
		return r.RenderYAML(id)
	default:
		rows := [][]string{}
		add := func(kind, entityID, label string) {
			if entityID != "" {
				rows = append(rows, []string{kind, entityID, label})
			}
		}
		if id.Workspace != nil {
			add("workspace", id.Workspace.ID, id.Workspace.Name)
		}
		if id.Client != nil {
			add("client", id.Client.ID, strings.TrimSpace(id.Client.GivenName+" "+id.Client.FamilyName))
		}
		if id.Company != nil {
			add("company", id.Company.ID, id.Company.Name)
		}
		if id.InternalUser != nil {
			add("internal user", id.InternalUser.ID, id.InternalUser.Email)
		}
		if len(rows) == 0 {
			_, err := fmt.Fprintln(r.writer, "anonymous (internal view)")
			return err
		}
		return r.RenderTable([]string{"kind", "id", "name"}, rows)
	}
}

// RenderJSON renders data as JSON
func (r *Renderer) RenderJSON(data interface{}) error {
	encoder := json.NewEncoder(r.writer)
	if !r.opts.Porcelain {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// RenderYAML renders data as YAML
func (r *Renderer) RenderYAML(data interface{}) error {
	encoder := yaml.NewEncoder(r.writer)
	defer encoder.Close()
	return encoder.Encode(data)
}

// RenderTSV renders data as tab-separated values
func (r *Renderer) RenderTSV(headers []string, rows [][]string) error {
	if _, err := fmt.Fprintln(r.writer, strings.Join(headers, "\t")); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(r.writer, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return nil
}

// RenderTable renders data as a formatted table
func (r *Renderer) RenderTable(headers []string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, c := range row {
			if i < len(widths) && len(c) > widths[i] {
				widths[i] = len(c)
			}
		}
	}

	if r.opts.Porcelain {
		return r.RenderTSV(headers, rows)
	}

	r.renderTableRow(headers, widths)
	r.renderTableSeparator(widths)
	for _, row := range rows {
		r.renderTableRow(row, widths)
	}
	return nil
}

func (r *Renderer) renderTableRow(cells []string, widths []int) {
	for i, c := range cells {
		if i < len(widths) {
			if i < len(cells)-1 {
				fmt.Fprintf(r.writer, "%-*s  ", widths[i], c)
			} else {
				fmt.Fprint(r.writer, c)
			}
		}
	}
	fmt.Fprintln(r.writer)
}

func (r *Renderer) renderTableSeparator(widths []int) {
	for i, width := range widths {
		fmt.Fprint(r.writer, strings.Repeat("-", width))
		if i < len(widths)-1 {
			fmt.Fprint(r.writer, "  ")
		}
	}
	fmt.Fprintln(r.writer)
}

// cell keeps table and TSV rows on one line.
func cell(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
