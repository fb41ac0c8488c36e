package structurer

import (
	"regexp"
	"sort"
	"strings"
)

var (
	emailRe    = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phoneRe    = regexp.MustCompile(`\+?\d[\d().\-\s]{6,}\d`)
	linkedinRe = regexp.MustCompile(`(?i)linkedin\.com/in/([A-Za-z0-9\-_.%]+)`)
	// year spans like "2020-2024" carry enough digits to look like a phone
	yearRangeRe = regexp.MustCompile(`^\d{4}\s*[-–]\s*\d{4}$`)
	githubRe   = regexp.MustCompile(`(?i)github\.com/([A-Za-z0-9][A-Za-z0-9\-]*)(?:/([A-Za-z0-9._\-]+))?`)
)

// reserved first path segments on github.com that are not usernames.
var githubReserved = map[string]bool{
	"features": true, "topics": true, "trending": true, "orgs": true,
	"about": true, "settings": true, "login": true, "explore": true,
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// extractContact pulls contact identifiers out of the full cleaned text.
// Results are lowercase-normalized, deduplicated and sorted for stable output.
func extractContact(text string) ContactInfo {
	var info ContactInfo

	info.Emails = dedupeLower(emailRe.FindAllString(text, -1))

	seenPhones := map[string]bool{}
	for _, cand := range phoneRe.FindAllString(text, -1) {
		n := digitCount(cand)
		if n < 8 || n > 15 {
			continue
		}
		if yearRangeRe.MatchString(strings.TrimSpace(cand)) {
			continue
		}
		norm := strings.Join(strings.Fields(cand), " ")
		if !seenPhones[norm] {
			seenPhones[norm] = true
			info.Phones = append(info.Phones, norm)
		}
	}

	if m := linkedinRe.FindStringSubmatch(text); m != nil {
		info.LinkedIn = strings.ToLower(strings.TrimRight(m[1], "."))
	}

	profiles := map[string]bool{}
	repos := map[string]bool{}
	for _, m := range githubRe.FindAllStringSubmatch(text, -1) {
		owner := strings.ToLower(m[1])
		if githubReserved[owner] {
			continue
		}
		if m[2] != "" {
			repo := strings.ToLower(strings.TrimSuffix(m[2], "."))
			repos[owner+"/"+repo] = true
		} else {
			profiles[owner] = true
		}
	}
	info.GitHubProfiles = sortedKeys(profiles)
	info.GitHubRepos = sortedKeys(repos)

	return info
}

func dedupeLower(in []string) []string {
	seen := map[string]bool{}
	for _, v := range in {
		seen[strings.ToLower(v)] = true
	}
	return sortedKeys(seen)
}

func sortedKeys(m map[string]bool) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
