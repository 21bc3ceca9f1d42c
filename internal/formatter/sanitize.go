package formatter

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

var (
	classValue = regexp.MustCompile(`^[A-Za-z0-9_\- ]+$`)
	widthValue = regexp.MustCompile(`^\d+(\.\d+)?%$`)
)

// SafePolicy is a user-content policy that keeps the markup produced by the
// rewrites: container divs, the classes they add and progress-bar widths.
func SafePolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("div")
	p.AllowAttrs("class").Matching(classValue).Globally()
	p.AllowStyles("width").Matching(widthValue).OnElements("div")
	return p
}
