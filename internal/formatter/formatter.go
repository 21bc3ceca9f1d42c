// Package formatter turns a markdown reply into display markup.
//
// Rendering is CommonMark plus the GFM extensions with a hard break on every
// newline. The rendered HTML then goes through three rewrites, in order:
// progress bars after "N% complete|progress|done", a class on list openings,
// and a scroll container around tables.
package formatter

import (
	"bytes"
	"html"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

const (
	ListClass          = "enhanced-list"
	TableClass         = "enhanced-table"
	TableContainer     = "table-container"
	ProgressIndicator  = "progress-indicator"
	ProgressBarElement = "progress-bar"
)

var (
	progressPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)%\s*(?:complete|progress|done)`)
	listOpenPattern = regexp.MustCompile(`<(ul|ol)(\s[^>]*)?>`)
	tableOpen       = regexp.MustCompile(`<table(\s[^>]*)?>`)
	tableClose      = regexp.MustCompile(`</table>`)
	classAttr       = regexp.MustCompile(`\sclass\s*=\s*(?:"([^"]*)"|'([^']*)')`)
)

// Formatter is safe for concurrent use.
type Formatter struct {
	md        goldmark.Markdown
	sanitizer *bluemonday.Policy
}

type Option func(*Formatter)

// WithSanitizer runs p over the final markup.
func WithSanitizer(p *bluemonday.Policy) Option {
	return func(f *Formatter) { f.sanitizer = p }
}

func New(opts ...Option) *Formatter {
	f := &Formatter{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(
				gmhtml.WithHardWraps(),
				// replies are trusted markup; sanitizing is opt-in
				gmhtml.WithUnsafe(),
			),
		),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

var defaultFormatter = New()

// Format renders raw with the default, non-sanitizing Formatter.
func Format(raw string) string { return defaultFormatter.Format(raw) }

func (f *Formatter) Format(raw string) string {
	var buf bytes.Buffer
	if err := f.md.Convert([]byte(raw), &buf); err != nil {
		log.Warn().Err(err).Msg("markdown conversion failed, showing escaped text")
		return "<p>" + html.EscapeString(raw) + "</p>"
	}
	out := buf.String()
	out = injectProgressBars(out)
	out = decorateLists(out)
	out = wrapTables(out)
	if f.sanitizer != nil {
		out = f.sanitizer.Sanitize(out)
	}
	return out
}

// injectProgressBars appends a bar after each percentage marker. The width is
// the parsed value as written, so 150% stays 150%.
func injectProgressBars(s string) string {
	return progressPattern.ReplaceAllStringFunc(s, func(match string) string {
		sub := progressPattern.FindStringSubmatch(match)
		pct, err := strconv.ParseFloat(sub[1], 64)
		if err != nil {
			return match
		}
		return match + progressBar(pct)
	})
}

func progressBar(pct float64) string {
	width := strconv.FormatFloat(pct, 'f', -1, 64)
	return "\n<div class=\"" + ProgressIndicator + "\">\n" +
		"<div class=\"" + ProgressBarElement + "\" style=\"width: " + width + "%\"></div>\n" +
		"</div>"
}

func decorateLists(s string) string {
	return listOpenPattern.ReplaceAllStringFunc(s, func(tag string) string {
		m := listOpenPattern.FindStringSubmatch(tag)
		return "<" + m[1] + withClass(m[2], ListClass) + ">"
	})
}

// wrapTables puts every table, with or without attributes, in a scroll
// container, so each </table> closes a container opened here.
func wrapTables(s string) string {
	s = tableOpen.ReplaceAllStringFunc(s, func(tag string) string {
		m := tableOpen.FindStringSubmatch(tag)
		return `<div class="` + TableContainer + `"><table` + withClass(m[1], TableClass) + ">"
	})
	return tableClose.ReplaceAllString(s, `</table></div>`)
}

// withClass adds class to the attribute list attrs. An existing class
// attribute is extended in place rather than duplicated.
func withClass(attrs, class string) string {
	loc := classAttr.FindStringSubmatchIndex(attrs)
	if loc == nil {
		return ` class="` + class + `"` + attrs
	}
	var existing string
	if loc[2] >= 0 {
		existing = attrs[loc[2]:loc[3]]
	} else {
		existing = attrs[loc[4]:loc[5]]
	}
	names := strings.Fields(existing)
	if !slices.Contains(names, class) {
		names = append([]string{class}, names...)
	}
	merged := strings.ReplaceAll(strings.Join(names, " "), `"`, "&quot;")
	return attrs[:loc[0]] + ` class="` + merged + `"` + attrs[loc[1]:]
}
