package util

import (
	"reflect"
	"testing"
)

func TestPlainText(t *testing.T) {
	got := PlainText("<h1>Title</h1><p>Hello\n   <b>world</b></p><script>x()</script>")
	if got != "Title Hello world" {
		t.Errorf("PlainText() = %q", got)
	}
}

func TestHTMLParagraphs(t *testing.T) {
	got := HTMLParagraphs("<div><p>one</p><ul><li><p>two</p></li></ul><p> </p></div>")
	want := []string{"one", "two"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("HTMLParagraphs() = %v, want %v", got, want)
	}

	got = HTMLParagraphs("just text")
	if !reflect.DeepEqual(got, []string{"just text"}) {
		t.Errorf("HTMLParagraphs() = %v", got)
	}
}

func TestExcerpt(t *testing.T) {
	if got := Excerpt("<p>abcdef</p>", 3); got != "abc" {
		t.Errorf("Excerpt() = %q", got)
	}
	if got := Excerpt("", 3); got != "" {
		t.Errorf("Excerpt() = %q", got)
	}
}
