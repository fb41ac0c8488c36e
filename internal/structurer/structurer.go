package structurer

import (
	"errors"
	"fmt"
	"strings"
)

// Format is the declared upload format of a resume document.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatTXT  Format = "txt"
	FormatDOCX Format = "docx"
	FormatMD   Format = "md"
)

var (
	// ErrUnsupportedFormat is returned when the declared format is not one of
	// pdf, txt, docx, md.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrEmptyDocument is returned when no text survives extraction and cleanup.
	ErrEmptyDocument = errors.New("document contains no extractable text")
)

// SectionLabel names a logical resume section.
type SectionLabel string

const (
	SectionSummary    SectionLabel = "summary"
	SectionExperience SectionLabel = "experience"
	SectionEducation  SectionLabel = "education"
	SectionSkills     SectionLabel = "skills"
	SectionProjects   SectionLabel = "projects"
	SectionOther      SectionLabel = "other"
)

// Section is one labeled span of resume text, in document order.
type Section struct {
	Label SectionLabel `json:"label"`
	Text  string       `json:"text"`
}

// ContactInfo holds the identifiers extracted from the full cleaned text.
// All values are deduplicated by normalized lowercase form.
type ContactInfo struct {
	Emails         []string `json:"emails,omitempty"`
	Phones         []string `json:"phones,omitempty"`
	LinkedIn       string   `json:"linkedin,omitempty"`
	GitHubProfiles []string `json:"github_profiles,omitempty"`
	GitHubRepos    []string `json:"github_repos,omitempty"`
}

// StructuredDocument is the immutable structured form of one uploaded resume.
type StructuredDocument struct {
	Filename string      `json:"filename"`
	Text     string      `json:"text"`
	Sections []Section   `json:"sections"`
	Contact  ContactInfo `json:"contact"`
}

// Structure turns raw file bytes into a StructuredDocument: extract text for
// the declared format, normalize it, segment into labeled sections and pull
// contact identifiers out of the full text.
func Structure(raw []byte, format Format, filename string) (*StructuredDocument, error) {
	text, err := extractText(raw, format)
	if err != nil {
		return nil, err
	}

	cleaned := cleanText(text)
	if strings.TrimSpace(cleaned) == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, filename)
	}

	return &StructuredDocument{
		Filename: filename,
		Text:     cleaned,
		Sections: splitSections(cleaned),
		Contact:  extractContact(cleaned),
	}, nil
}
