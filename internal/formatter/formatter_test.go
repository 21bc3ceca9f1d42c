package formatter

import (
	"strings"
	"sync"
	"testing"
)

func TestFormat_ProgressBar(t *testing.T) {
	cases := []struct {
		in    string
		width string
	}{
		{"50% complete", `style="width: 50%"`},
		{"Phase 2 is 12.5% done", `style="width: 12.5%"`},
		{"75% COMPLETE", `style="width: 75%"`},
		{"80%progress", `style="width: 80%"`},
		{"150% progress", `style="width: 150%"`},
	}
	for _, c := range cases {
		out := Format(c.in)
		if !strings.Contains(out, `<div class="progress-indicator">`) {
			t.Fatalf("%q: progress indicator missing: %s", c.in, out)
		}
		if !strings.Contains(out, c.width) {
			t.Fatalf("%q: want %s in %s", c.in, c.width, out)
		}
	}
}

func TestFormat_ProgressBarFollowsMatch(t *testing.T) {
	out := Format("50% complete")
	want := "<p>50% complete\n<div class=\"progress-indicator\">\n<div class=\"progress-bar\" style=\"width: 50%\"></div>\n</div></p>\n"
	if out != want {
		t.Fatalf("got %q\nwant %q", out, want)
	}
}

func TestFormat_NoProgressWithoutKeyword(t *testing.T) {
	for _, in := range []string{"50% of the budget", "50 complete", "done: 50%"} {
		if out := Format(in); strings.Contains(out, "progress-bar") {
			t.Fatalf("%q: unexpected progress bar: %s", in, out)
		}
	}
}

func TestFormat_MultipleProgressMarkers(t *testing.T) {
	out := Format("JAIN-1B: 40% complete\nCABOT-1B: 90% done")
	if n := strings.Count(out, `class="progress-bar"`); n != 2 {
		t.Fatalf("want 2 bars, got %d: %s", n, out)
	}
}

func TestFormat_Lists(t *testing.T) {
	ul := Format("- a\n- b")
	if !strings.Contains(ul, `<ul class="enhanced-list">`) || strings.Contains(ul, "<ul>") {
		t.Fatalf("ul not decorated: %s", ul)
	}
	ol := Format("1. a\n2. b")
	if !strings.Contains(ol, `<ol class="enhanced-list">`) {
		t.Fatalf("ol not decorated: %s", ol)
	}
	started := Format("3. a\n4. b")
	if !strings.Contains(started, `<ol class="enhanced-list" start="3">`) {
		t.Fatalf("ol with start not decorated: %s", started)
	}
}

func TestFormat_Tables(t *testing.T) {
	md := "| Project | Phase |\n|---|---|\n| JAIN-1B | Framing |\n\n| a |\n|---|\n| b |"
	out := Format(md)
	if n := strings.Count(out, `<div class="table-container"><table class="enhanced-table">`); n != 2 {
		t.Fatalf("want 2 wrapped tables, got %d: %s", n, out)
	}
	if n := strings.Count(out, `</table></div>`); n != 2 {
		t.Fatalf("want 2 closed wrappers, got %d: %s", n, out)
	}
	if strings.Contains(out, "<table>") {
		t.Fatalf("bare table left: %s", out)
	}
}

func TestFormat_RawTableWithAttributes(t *testing.T) {
	out := Format(`<table class="x" id="t"><tr><td>a</td></tr></table>`)
	if !strings.Contains(out, `<div class="table-container"><table class="enhanced-table x" id="t">`) {
		t.Fatalf("table with attributes not wrapped: %s", out)
	}
	opened := strings.Count(out, `<div class="table-container">`)
	closed := strings.Count(out, `</table></div>`)
	if opened != 1 || closed != 1 {
		t.Fatalf("unbalanced wrapper: %d opened, %d closed: %s", opened, closed, out)
	}
}

func TestFormat_ExistingClassMerged(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`<ul class="x">`, `<ul class="enhanced-list x">`},
		{`<ol start="2" class='a b'>`, `<ol start="2" class="enhanced-list a b">`},
		{`<ul class="enhanced-list">`, `<ul class="enhanced-list">`},
		{`<ul id="l">`, `<ul class="enhanced-list" id="l">`},
		{`<table class="">`, `<div class="table-container"><table class="enhanced-table">`},
	}
	for _, c := range cases {
		out := wrapTables(decorateLists(c.in))
		if out != c.want {
			t.Fatalf("%s: got %s, want %s", c.in, out, c.want)
		}
		if strings.Count(out, "class=") != strings.Count(c.want, "class=") {
			t.Fatalf("%s: duplicate class attribute in %s", c.in, out)
		}
	}
}

func TestFormat_RawListClassNotDuplicated(t *testing.T) {
	out := Format("<ul class=\"x\">\n<li>a</li>\n</ul>")
	if !strings.Contains(out, `<ul class="enhanced-list x">`) || strings.Count(out, "class=") != 1 {
		t.Fatalf("class not merged: %s", out)
	}
}

func TestFormat_HardBreaks(t *testing.T) {
	out := Format("line one\nline two")
	if !strings.Contains(out, "line one<br") {
		t.Fatalf("newline not turned into a break: %s", out)
	}
}

func TestFormat_PlainMarkdownUnchanged(t *testing.T) {
	in := "hello *world* and **bold**"
	want := "<p>hello <em>world</em> and <strong>bold</strong></p>\n"
	first := Format(in)
	if first != want {
		t.Fatalf("got %q, want %q", first, want)
	}
	if second := Format(in); second != first {
		t.Fatalf("not deterministic: %q vs %q", first, second)
	}
}

func TestFormat_RawHTMLPassesThrough(t *testing.T) {
	out := Format(`status: <span class="tag">late</span>`)
	if !strings.Contains(out, `<span class="tag">late</span>`) {
		t.Fatalf("raw html dropped: %s", out)
	}
}

func TestFormat_Sanitized(t *testing.T) {
	f := New(WithSanitizer(SafePolicy()))
	out := f.Format("<script>alert(1)</script>\n\n- 60% complete\n- <a href=\"javascript:x()\">x</a>")
	if strings.Contains(out, "<script") || strings.Contains(out, "alert(1)") {
		t.Fatalf("script survived: %s", out)
	}
	if strings.Contains(out, "javascript:") {
		t.Fatalf("javascript url survived: %s", out)
	}
	if !strings.Contains(out, `class="enhanced-list"`) {
		t.Fatalf("list class stripped: %s", out)
	}
	if !strings.Contains(out, `class="progress-bar"`) {
		t.Fatalf("progress bar stripped: %s", out)
	}
}

func TestFormat_Concurrent(t *testing.T) {
	f := New()
	want := f.Format("- 10% done\n- item")
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := f.Format("- 10% done\n- item"); got != want {
				t.Errorf("concurrent output differs: %q", got)
			}
		}()
	}
	wg.Wait()
}
