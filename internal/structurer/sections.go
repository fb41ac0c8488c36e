package structurer

import "strings"

// headingVocabulary maps known heading keywords to section labels. Keywords
// not tied to one of the core labels still count as headings and open an
// "other" section.
var headingVocabulary = map[string]SectionLabel{
	"summary":              SectionSummary,
	"objective":            SectionSummary,
	"profile":              SectionSummary,
	"about me":             SectionSummary,
	"about":                SectionSummary,
	"experience":           SectionExperience,
	"work experience":      SectionExperience,
	"employment":           SectionExperience,
	"employment history":   SectionExperience,
	"work history":         SectionExperience,
	"professional experience": SectionExperience,
	"education":            SectionEducation,
	"academic background":  SectionEducation,
	"qualifications":       SectionEducation,
	"skills":               SectionSkills,
	"technical skills":     SectionSkills,
	"core competencies":    SectionSkills,
	"technologies":         SectionSkills,
	"projects":             SectionProjects,
	"personal projects":    SectionProjects,
	"selected projects":    SectionProjects,
	"certifications":       SectionOther,
	"certificates":         SectionOther,
	"publications":         SectionOther,
	"awards":               SectionOther,
	"achievements":         SectionOther,
	"languages":            SectionOther,
	"interests":            SectionOther,
	"volunteering":         SectionOther,
	"references":           SectionOther,
}

const maxHeadingLen = 48

// headingLabel reports whether the line reads as a section heading, and the
// label it opens. Headings are short lines whose text, after stripping
// decoration, matches the vocabulary.
func headingLabel(line string) (SectionLabel, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || len(trimmed) > maxHeadingLen {
		return "", false
	}
	trimmed = strings.TrimLeft(trimmed, "#*-• \t")
	trimmed = strings.TrimRight(trimmed, ":*# \t")
	key := strings.ToLower(strings.Join(strings.Fields(trimmed), " "))
	label, ok := headingVocabulary[key]
	return label, ok
}

// splitSections segments cleaned text into labeled sections in document
// order. Text before the first recognized heading becomes a summary section.
// Heading lines stay inside the section they open, so joining all section
// texts reconstructs the document.
func splitSections(text string) []Section {
	lines := strings.Split(text, "\n")

	var sections []Section
	current := Section{Label: SectionSummary}
	var buf []string

	flush := func() {
		body := strings.Join(buf, "\n")
		if strings.TrimSpace(body) != "" {
			current.Text = body
			sections = append(sections, current)
		}
		buf = buf[:0]
	}

	for _, line := range lines {
		if label, ok := headingLabel(line); ok {
			flush()
			current = Section{Label: label}
		}
		buf = append(buf, line)
	}
	flush()

	if len(sections) == 0 {
		return []Section{{Label: SectionSummary, Text: text}}
	}
	return sections
}
