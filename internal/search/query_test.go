package search

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	types "github.com/yungbote/unifind-backend/internal/domain"
)

func TestBuildRedisQueryTerms(t *testing.T) {
	owner := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	got := BuildRedisQuery(Query{OwnerID: owner, Text: "Invoice", StorageType: types.StorageGoogleDrive, Filetype: "PDF"})

	for _, want := range []string{
		`@owner_id:{11111111\-2222\-3333\-4444\-555555555555}`,
		`@storage_type:{google_drive}`,
		`@filetype:{pdf}`,
		`@filename:(invoice|invoice*|*invoice|*invoice*|%%invoice%%)`,
		` | @filename_lc:{w'invoice*'} | @filename_lc:{w'*invoice'} | @filename_lc:{w'*invoice*'})`,
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("query %q missing %q", got, want)
		}
	}
}

func TestBuildRedisQueryTermsAreAlternatives(t *testing.T) {
	got := BuildRedisQuery(Query{OwnerID: uuid.New(), Text: "Annual Invoice"})
	want := "(@filename:(annual|annual*|*annual|*annual*|%%annual%%)" +
		" | @filename:(invoice|invoice*|*invoice|*invoice*|%%invoice%%)" +
		" | @filename_lc:{w'annual invoice*'}" +
		" | @filename_lc:{w'*annual invoice'}" +
		" | @filename_lc:{w'*annual invoice*'})"
	if !strings.HasSuffix(got, want) {
		t.Fatalf("query %q\nwant suffix %q", got, want)
	}
	if strings.Contains(got, ") @filename:(") {
		t.Fatalf("term clauses must not be intersected: %q", got)
	}

	got = BuildRedisQuery(Query{OwnerID: uuid.New(), Text: "a.txt"})
	for _, want := range []string{
		"@filename:(a)",
		"@filename:(txt|txt*|*txt|*txt*|%txt%)",
		"@filename_lc:{w'*a.txt'}",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("query %q missing %q", got, want)
		}
	}
}

func TestBuildRedisQueryFuzzyBudget(t *testing.T) {
	owner := uuid.New()
	cases := []struct {
		text string
		want string
	}{
		{"ab", "@filename:(ab|ab*|*ab|*ab*)"},
		{"memo", "@filename:(memo|memo*|*memo|*memo*|%memo%)"},
		{"x", "@filename:(x)"},
	}
	for _, tc := range cases {
		got := BuildRedisQuery(Query{OwnerID: owner, Text: tc.text})
		if !strings.Contains(got, tc.want) {
			t.Fatalf("%q: query %q missing %q", tc.text, got, tc.want)
		}
	}
}

func TestBuildRedisQueryWildcard(t *testing.T) {
	got := BuildRedisQuery(Query{OwnerID: uuid.New(), Text: "Rep*rt"})
	if !strings.Contains(got, `@filename_lc:{w'*rep*rt*'}`) {
		t.Fatalf("wildcard query = %q", got)
	}
	if strings.Contains(got, "@filename:(") {
		t.Fatalf("wildcard query must not carry term clauses: %q", got)
	}
}

func TestSearchable(t *testing.T) {
	cases := map[string]bool{
		"invoice": true,
		"  ":      false,
		"***":     false,
		"--":      false,
		"*a":      true,
	}
	for in, want := range cases {
		if got := Searchable(in); got != want {
			t.Fatalf("Searchable(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestGlobMatch(t *testing.T) {
	cases := []struct {
		pattern, s string
		want       bool
	}{
		{"*rep*rt*", "quarterly report.pdf", true},
		{"*rep*rt*", "reprint", false},
		{"*", "", true},
		{"a*", "abc", true},
		{"*b*b", "b", false},
	}
	for _, tc := range cases {
		if got := globMatch(tc.pattern, tc.s); got != tc.want {
			t.Fatalf("globMatch(%q, %q) = %v", tc.pattern, tc.s, got)
		}
	}
}

func TestMatchQuery(t *testing.T) {
	cases := []struct {
		text, name string
		want       bool
	}{
		{"annual invoice", "annual_report.pdf", true},
		{"a.txt", "data.txt", true},
		{"report 2024", "annual_report.pdf", true},
		{"holidya", "holiday.jpg", true},
		{"kitten", "sitting.png", false},
		{"x", "box.txt", false},
		{"budget memo", "holiday.jpg", false},
	}
	for _, tc := range cases {
		_, got := matchQuery(wholeQuery(tc.text), Terms(tc.text), tc.name)
		if got != tc.want {
			t.Fatalf("matchQuery(%q, %q) = %v, want %v", tc.text, tc.name, got, tc.want)
		}
	}

	full, _ := matchQuery("annual report", Terms("annual report"), "annual_report.pdf")
	partial, _ := matchQuery("annual invoice", Terms("annual invoice"), "annual_report.pdf")
	if full >= partial {
		t.Fatalf("matching every term should rank first: full=%d partial=%d", full, partial)
	}
}
