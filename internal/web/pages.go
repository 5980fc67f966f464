package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strings"

	"github.com/lherron/tasklens/internal/domain"
	"github.com/lherron/tasklens/internal/tasks"
)

//go:embed templates/*.html
var templatesFS embed.FS

type pageRenderer struct {
	tmpl *template.Template
}

func newPageRenderer() *pageRenderer {
	return &pageRenderer{
		tmpl: template.Must(template.ParseFS(templatesFS, "templates/*.html")),
	}
}

type fieldView struct {
	Key   string
	Value string
	// HTML is set for rich text fields.
	HTML template.HTML
}

type taskView struct {
	ID     string
	Fields []fieldView
	// Search is the lower-cased, newline-joined rendering of every value,
	// matched by the in-page filter exactly like tasks.Filter.
	Search string
}

type pageData struct {
	Title   string
	Heading string
	Error   string
	Query   string
	Nonce   string
	Tasks   []taskView
	Total   int
}

func newTaskView(rec domain.TaskRecord) taskView {
	view := taskView{ID: rec.ID}
	for _, key := range domain.DisplayFields {
		field := fieldView{Key: key, Value: tasks.RenderValue(rec.Field(key))}
		if markdownFields[key] {
			field.HTML = renderMarkdown(field.Value)
		}
		view.Fields = append(view.Fields, field)
	}
	values := []string{rec.ID, rec.CreatedTime}
	for _, v := range rec.Fields {
		values = append(values, tasks.RenderValue(v))
	}
	view.Search = strings.ToLower(strings.Join(values, "\n"))
	return view
}

func (p *pageRenderer) render(w http.ResponseWriter, data pageData) error {
	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, "tasks.html", data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, err := w.Write(buf.Bytes())
	return err
}

// renderTasks renders records (after applying the request's query) or,
// when err is set, only a safe error message.
func (s *Server) renderTasks(w http.ResponseWriter, r *http.Request, title, heading string, records []domain.TaskRecord, err error) {
	data := pageData{
		Title:   title,
		Heading: heading,
		Query:   r.URL.Query().Get("q"),
		Nonce:   NonceFromContext(r.Context()),
	}
	if err != nil {
		data.Error = domain.UserMessage(err)
	} else {
		data.Total = len(records)
		for _, rec := range tasks.Filter(records, data.Query) {
			data.Tasks = append(data.Tasks, newTaskView(rec))
		}
	}
	if renderErr := s.pages.render(w, data); renderErr != nil {
		s.logger.Error("render page failed", "stage", "render", "path", r.URL.Path, "error", renderErr)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (s *Server) handlePortal(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		s.renderTasks(w, r, "Tasks", "", nil, domain.ErrMissingToken)
		return
	}

	res, err := s.board.Scoped(r.Context(), token)
	if err != nil {
		s.logger.Error("portal page failed", "stage", "page.portal", "error", err)
		s.renderTasks(w, r, "Tasks", "", nil, err)
		return
	}

	heading := ""
	if res.Identity.Company != nil && res.Identity.Company.Name != "" {
		heading = res.Identity.Company.Name
	}
	s.renderTasks(w, r, "Tasks", heading, res.Tasks, nil)
}

func (s *Server) handleInternal(w http.ResponseWriter, r *http.Request) {
	res, err := s.board.Internal(r.Context())
	if err != nil {
		s.logger.Error("internal page failed", "stage", "page.internal", "error", err)
		s.renderTasks(w, r, "All tasks", "", nil, err)
		return
	}
	s.renderTasks(w, r, "All tasks", "All tasks", res.Tasks, nil)
}
