package cli

import (
	"github.com/lherron/tasklens/internal/render"
)

// outputFlags are the format switches shared by listing commands.
type outputFlags struct {
	json      bool
	yaml      bool
	tsv       bool
	porcelain bool
}

func (o outputFlags) options() render.Options {
	format := render.FormatTable
	switch {
	case o.json:
		format = render.FormatJSON
	case o.yaml:
		format = render.FormatYAML
	case o.tsv:
		format = render.FormatTSV
	}
	return render.Options{Format: format, Porcelain: o.porcelain}
}
