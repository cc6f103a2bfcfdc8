package parser

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		query string
		opts  Options
		want  []string
	}{
		{"Red Fish", Options{}, []string{"red", "fish"}},
		{"red AND fish", Options{}, []string{"red", "fish"}},
		{"red and fish", Options{}, []string{"red", "and", "fish"}},
		{"red and fish", Options{StopWords: true}, []string{"red", "fish"}},
		{"  hello,   world!  ", Options{}, []string{"hello", "world"}},
		{"e-mail", Options{}, []string{"e", "mail"}},
		{"", Options{}, []string{}},
		{"AND", Options{}, []string{}},
	}
	for _, tt := range tests {
		plan := Parse(tt.query, tt.opts)
		if !reflect.DeepEqual(plan.Terms, tt.want) {
			t.Errorf("Parse(%q).Terms = %v, want %v", tt.query, plan.Terms, tt.want)
		}
		if plan.RawQuery != tt.query {
			t.Errorf("RawQuery = %q, want %q", plan.RawQuery, tt.query)
		}
	}
}

func TestNormalized(t *testing.T) {
	a := Parse("Red   FISH", Options{})
	b := Parse("red AND fish", Options{})
	if a.Normalized() != b.Normalized() {
		t.Errorf("%q != %q", a.Normalized(), b.Normalized())
	}
	if !Parse("!!!", Options{}).Empty() {
		t.Error("punctuation-only query is not empty")
	}
}
