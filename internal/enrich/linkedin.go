package enrich

import (
	"context"
	"errors"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	readability "github.com/go-shiori/go-readability"

	"github.com/hiresight-ai/hiresight/config"
	"github.com/hiresight-ai/hiresight/provider"
)

const linkedinNarrativeSystem = `You are a career analyst. From the profile text you are given, write a structured narrative with exactly these seven parts, each under its own heading:
1. Professional Overview
2. Technical Skills
3. Experience Highlights
4. Education & Qualifications
5. Professional Network
6. Career Trajectory
7. Recommendations
Only use information present in the text. If a part has no supporting information, state that briefly.`

const resumeFallbackSystem = `You are a career analyst. The candidate's LinkedIn page could not be retrieved. From the resume text you are given, write the same seven-part narrative (Professional Overview, Technical Skills, Experience Highlights, Education & Qualifications, Professional Network, Career Trajectory, Recommendations), drawing only on the resume. Note where information is unavailable.`

// LinkedInFetcher renders the public profile page headless, extracts readable
// text and asks the model for a structured narrative. When the page cannot be
// fetched it can fall back to a narrative built from the resume itself.
type LinkedInFetcher struct {
	enabled       bool
	timeout       time.Duration
	maxChars      int
	fallbackToDoc bool
	provider      provider.Provider
	fetchHTML     func(ctx context.Context, pageURL string) (string, error)
	logger        *log.Logger
}

func NewLinkedInFetcher(cfg config.LinkedInConfig, p provider.Provider, logger *log.Logger) *LinkedInFetcher {
	cfg = cfg.Normalize()
	if logger == nil {
		logger = log.Default()
	}
	return &LinkedInFetcher{
		enabled:       cfg.Enabled,
		timeout:       cfg.Timeout,
		maxChars:      cfg.MaxChars,
		fallbackToDoc: cfg.FallbackToDoc,
		provider:      p,
		fetchHTML:     fetchRenderedHTML,
		logger:        logger,
	}
}

// Fetch resolves a profile slug into a tagged narrative result. resumeText
// feeds the fallback narrative when the live page is unreachable.
func (l *LinkedInFetcher) Fetch(ctx context.Context, slug, resumeText string) LinkedInResult {
	if !l.enabled {
		return LinkedInResult{Outcome: OutcomeNotFound}
	}
	if strings.TrimSpace(slug) == "" {
		return LinkedInResult{Outcome: OutcomeNotFound}
	}

	pageText, err := l.fetchProfileText(ctx, slug)
	if err != nil {
		srcErr := &SourceError{Source: "linkedin", Err: err}
		l.logger.Printf("[enrich] %v", srcErr)
		res := LinkedInResult{Outcome: OutcomeError, Err: srcErr.Error()}
		if l.fallbackToDoc && l.provider != nil {
			if narrative, ferr := l.provider.Complete(ctx, resumeFallbackSystem, resumeText); ferr == nil {
				res.Narrative = narrative
				res.Fallback = true
			}
		}
		return res
	}

	narrative, err := l.provider.Complete(ctx, linkedinNarrativeSystem, pageText)
	if err != nil {
		srcErr := &SourceError{Source: "linkedin", Err: err}
		l.logger.Printf("[enrich] %v", srcErr)
		return LinkedInResult{Outcome: OutcomeError, Err: srcErr.Error()}
	}
	return LinkedInResult{Outcome: OutcomeFound, Narrative: narrative}
}

func (l *LinkedInFetcher) fetchProfileText(ctx context.Context, slug string) (string, error) {
	pageURL := "https://www.linkedin.com/in/" + url.PathEscape(slug)

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	html, err := l.fetchHTML(ctx, pageURL)
	if err != nil {
		return "", err
	}

	parsed, _ := url.Parse(pageURL)
	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return "", errors.New("no readable text on profile page")
	}
	if len(text) > l.maxChars {
		text = text[:l.maxChars]
	}
	return text, nil
}

func fetchRenderedHTML(ctx context.Context, pageURL string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.UserAgent("HireSight/1.0 (+contact@hiresight.ai)"),
	)
	actx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	bctx, cancelBrowser := chromedp.NewContext(actx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(bctx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	return html, err
}
