package service

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/lineaapp/linea/internal/markdown"
	"github.com/lineaapp/linea/internal/model"
	"github.com/lineaapp/linea/internal/state"
	"github.com/lineaapp/linea/internal/timeline"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

const (
	ExportFormatMarkdown = "markdown"
	ExportFormatHTML     = "html"
)

var (
	ErrFeatureRequiresPremium = errors.New("feature requires premium")
	ErrUnknownExportFormat    = errors.New("unknown export format")
)

type Export struct {
	Filename    string
	ContentType string
	Body        []byte
}

type exportFrontMatter struct {
	Title      string    `yaml:"title"`
	ExportedAt time.Time `yaml:"exported_at"`
	Events     int       `yaml:"events"`
	Years      []int     `yaml:"years,flow"`
}

// ExportService renders the current timeline as a document grouped by year.
type ExportService struct {
	timelines *TimelineService
	parser    *markdown.Parser
	now       func() time.Time
}

func NewExportService(timelines *TimelineService) *ExportService {
	return &ExportService{
		timelines: timelines,
		parser:    markdown.NewParser(),
		now:       time.Now,
	}
}

func (s *ExportService) Export(st *state.AppState, format string) (*Export, error) {
	if !st.IsPremium() {
		return nil, ErrFeatureRequiresPremium
	}
	if format == "" {
		format = ExportFormatMarkdown
	}
	if format != ExportFormatMarkdown && format != ExportFormatHTML {
		return nil, ErrUnknownExportFormat
	}

	current, err := s.timelines.CurrentTimeline(st)
	if err != nil {
		return nil, err
	}

	md, err := s.renderMarkdown(current)
	if err != nil {
		return nil, err
	}

	base := exportFilename(current.Name)
	if format == ExportFormatMarkdown {
		return &Export{
			Filename:    base + ".md",
			ContentType: "text/markdown; charset=utf-8",
			Body:        md,
		}, nil
	}

	body, _, err := s.parser.ParseWithFrontmatter(md)
	if err != nil {
		return nil, fmt.Errorf("failed to render html: %w", err)
	}

	var page bytes.Buffer
	fmt.Fprintf(&page, "<!DOCTYPE html>\n<html lang=\"fr\">\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n",
		htmlEscaper.Replace(current.Name))
	page.Write(body)
	page.WriteString("</body>\n</html>\n")

	return &Export{
		Filename:    base + ".html",
		ContentType: "text/html; charset=utf-8",
		Body:        page.Bytes(),
	}, nil
}

func (s *ExportService) renderMarkdown(tl model.Timeline) ([]byte, error) {
	view := timeline.BuildView(tl.Events)

	fm, err := yaml.Marshal(exportFrontMatter{
		Title:      tl.Name,
		ExportedAt: s.now().UTC().Truncate(time.Second),
		Events:     len(view.Events),
		Years:      view.Years,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode front matter: %w", err)
	}

	var b bytes.Buffer
	b.WriteString("---\n")
	b.Write(fm)
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "# %s\n", markdownEscaper.Replace(tl.Name))

	for _, group := range view.Groups {
		fmt.Fprintf(&b, "\n## %d\n", group.Year)
		for _, e := range group.Events {
			fmt.Fprintf(&b, "\n### %s\n\n", markdownEscaper.Replace(e.Title))
			fmt.Fprintf(&b, "*%s · %s*\n", eventDates(e), e.Category.Style().Label)
			if e.Description != "" {
				fmt.Fprintf(&b, "\n%s\n", e.Description)
			}
			for _, m := range e.Media {
				if m.Type == model.MediaTypePhoto {
					fmt.Fprintf(&b, "\n![](%s)\n", m.FileURL)
				} else {
					fmt.Fprintf(&b, "\n[%s](%s)\n", m.Type, m.FileURL)
				}
			}
		}
	}

	return b.Bytes(), nil
}

func eventDates(e model.TimelineEvent) string {
	start := frenchDate(e.StartDate.Time)
	if e.EndDate == nil || e.EndDate.Compare(e.StartDate) == 0 {
		return start
	}
	return start + " au " + frenchDate(e.EndDate.Time)
}

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func exportFilename(name string) string {
	plain, _, err := transform.String(stripAccents, name)
	if err != nil {
		plain = name
	}

	var b strings.Builder
	for _, r := range strings.ToLower(plain) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('-')
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "timeline"
	}
	return out
}

var (
	markdownEscaper = strings.NewReplacer("#", `\#`, "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`, "<", "&lt;")
	htmlEscaper     = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
)
