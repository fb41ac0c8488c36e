package structurer

import (
	"errors"
	"strings"
	"testing"
)

const sampleResume = `Jane Doe
Senior Backend Engineer
jane.doe@example.com | +1 (415) 555-0142
github.com/janedoe | linkedin.com/in/jane-doe

Summary
Backend engineer with eight years building distributed systems.

Experience
Acme Corp, Staff Engineer (2020-2024)
Led the payments platform team.

Education
BSc Computer Science, State University

Skills
Go, PostgreSQL, Kubernetes

Projects
github.com/janedoe/ratelimiter - token bucket rate limiter
`

func TestStructureTxt(t *testing.T) {
	doc, err := Structure([]byte(sampleResume), FormatTXT, "resume.txt")
	if err != nil {
		t.Fatalf("Structure: %v", err)
	}
	if doc.Filename != "resume.txt" {
		t.Fatalf("filename = %q", doc.Filename)
	}

	var labels []SectionLabel
	for _, s := range doc.Sections {
		labels = append(labels, s.Label)
	}
	want := []SectionLabel{SectionSummary, SectionSummary, SectionExperience, SectionEducation, SectionSkills, SectionProjects}
	if len(labels) != len(want) {
		t.Fatalf("section labels = %v, want %v", labels, want)
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Fatalf("section %d label = %q, want %q", i, labels[i], want[i])
		}
	}
}

// Joining section texts must reconstruct the cleaned document.
func TestSectionsReconstruct(t *testing.T) {
	doc, err := Structure([]byte(sampleResume), FormatTXT, "resume.txt")
	if err != nil {
		t.Fatalf("Structure: %v", err)
	}
	var parts []string
	for _, s := range doc.Sections {
		parts = append(parts, s.Text)
	}
	got := strings.Join(strings.Fields(strings.Join(parts, "\n")), " ")
	wantText := strings.Join(strings.Fields(doc.Text), " ")
	if got != wantText {
		t.Fatalf("reconstructed text differs\ngot:  %q\nwant: %q", got, wantText)
	}
}

func TestStructureEmpty(t *testing.T) {
	_, err := Structure([]byte("  \n\t \n"), FormatTXT, "blank.txt")
	if !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("err = %v, want ErrEmptyDocument", err)
	}
}

func TestStructureUnsupportedFormat(t *testing.T) {
	_, err := Structure([]byte("hello"), Format("rtf"), "resume.rtf")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestHeadingLabel(t *testing.T) {
	cases := []struct {
		line  string
		label SectionLabel
		ok    bool
	}{
		{"Experience", SectionExperience, true},
		{"WORK EXPERIENCE:", SectionExperience, true},
		{"## Skills", SectionSkills, true},
		{"About Me", SectionSummary, true},
		{"Certifications", SectionOther, true},
		{"I have experience with Go and Kubernetes", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		label, ok := headingLabel(c.line)
		if ok != c.ok || label != c.label {
			t.Fatalf("headingLabel(%q) = %q, %v; want %q, %v", c.line, label, ok, c.label, c.ok)
		}
	}
}

func TestCleanTextCollapsesBlankRuns(t *testing.T) {
	got := cleanText("a\r\n\r\n\r\n\r\nb\x00c")
	if got != "a\n\nbc" {
		t.Fatalf("cleanText = %q", got)
	}
}
