// Package recommend maps a metrics bundle to prioritized SEO findings.
//
// The synthesizer is a fixed, ordered rule table: each rule inspects one
// signal and fires at most once. Rules never suppress each other, carry no
// state, and produce identical output for identical input.
package recommend

import (
	"fmt"
	"time"

	"github.com/rankrocket/rankrocket-crawler/internal/seo"
)

// Optimal ranges and thresholds the rules test against.
const (
	TitleMinLength    = 50
	TitleMaxLength    = 60
	MetaDescMinLength = 150
	MetaDescMaxLength = 160
	InternalLinkRatio = 0.8
	SlowLoadThreshold = 3 * time.Second
	LargePageBytes    = 1_000_000
)

// Impact scores are fixed per rule, not computed.
const (
	ImpactMissingTitle     = 0.9
	ImpactShortTitle       = 0.6
	ImpactLongTitle        = 0.7
	ImpactMissingMetaDesc  = 0.8
	ImpactShortMetaDesc    = 0.5
	ImpactLongMetaDesc     = 0.6
	ImpactMissingH1        = 0.8
	ImpactMultipleH1       = 0.7
	ImpactNoH2             = 0.4
	ImpactNoLinks          = 0.6
	ImpactNoInternalLinks  = 0.5
	ImpactLowInternalRatio = 0.3
	ImpactImagesMissingAlt = 0.5
	ImpactSlowLoad         = 0.8
	ImpactLargePage        = 0.6
)

type rule func(b seo.MetricsBundle) *seo.Recommendation

var rules = []rule{
	titleRule,
	metaDescriptionRule,
	missingH1Rule,
	multipleH1Rule,
	noH2Rule,
	linksRule,
	internalRatioRule,
	imageAltRule,
	slowLoadRule,
	largePageRule,
}

// Synthesize derives the recommendation list for one bundle. It is pure and
// side-effect free; callers attach the submission ID it passes through.
func Synthesize(submissionID string, b seo.MetricsBundle) []seo.Recommendation {
	var recs []seo.Recommendation
	for _, r := range rules {
		if rec := r(b); rec != nil {
			rec.SubmissionID = submissionID
			recs = append(recs, *rec)
		}
	}
	return recs
}

func titleRule(b seo.MetricsBundle) *seo.Recommendation {
	switch n := len(b.Title); {
	case n == 0:
		return &seo.Recommendation{
			Category:       seo.CategoryTitle,
			Priority:       seo.RecHigh,
			Title:          "Missing Page Title",
			Description:    "Your page is missing a title tag. This is crucial for SEO.",
			CurrentValue:   "None",
			SuggestedValue: fmt.Sprintf("Add a descriptive title tag (%d-%d characters)", TitleMinLength, TitleMaxLength),
			ImpactScore:    ImpactMissingTitle,
		}
	case n < TitleMinLength:
		return &seo.Recommendation{
			Category:       seo.CategoryTitle,
			Priority:       seo.RecMedium,
			Title:          "Title Too Short",
			Description:    "Your title is shorter than the optimal length for SEO.",
			CurrentValue:   fmt.Sprintf("%d characters", n),
			SuggestedValue: fmt.Sprintf("Expand to %d-%d characters", TitleMinLength, TitleMaxLength),
			ImpactScore:    ImpactShortTitle,
		}
	case n > TitleMaxLength:
		return &seo.Recommendation{
			Category:       seo.CategoryTitle,
			Priority:       seo.RecMedium,
			Title:          "Title Too Long",
			Description:    "Your title may be truncated in search results.",
			CurrentValue:   fmt.Sprintf("%d characters", n),
			SuggestedValue: fmt.Sprintf("Reduce to %d-%d characters", TitleMinLength, TitleMaxLength),
			ImpactScore:    ImpactLongTitle,
		}
	default:
		return nil
	}
}

func metaDescriptionRule(b seo.MetricsBundle) *seo.Recommendation {
	switch n := len(b.MetaDescription); {
	case n == 0:
		return &seo.Recommendation{
			Category:       seo.CategoryMetaDescription,
			Priority:       seo.RecHigh,
			Title:          "Missing Meta Description",
			Description:    "Your page is missing a meta description. This affects click-through rates.",
			CurrentValue:   "None",
			SuggestedValue: fmt.Sprintf("Add a compelling meta description (%d-%d characters)", MetaDescMinLength, MetaDescMaxLength),
			ImpactScore:    ImpactMissingMetaDesc,
		}
	case n < MetaDescMinLength:
		return &seo.Recommendation{
			Category:       seo.CategoryMetaDescription,
			Priority:       seo.RecMedium,
			Title:          "Meta Description Too Short",
			Description:    "Your meta description could be more descriptive.",
			CurrentValue:   fmt.Sprintf("%d characters", n),
			SuggestedValue: fmt.Sprintf("Expand to %d-%d characters", MetaDescMinLength, MetaDescMaxLength),
			ImpactScore:    ImpactShortMetaDesc,
		}
	case n > MetaDescMaxLength:
		return &seo.Recommendation{
			Category:       seo.CategoryMetaDescription,
			Priority:       seo.RecMedium,
			Title:          "Meta Description Too Long",
			Description:    "Your meta description may be truncated in search results.",
			CurrentValue:   fmt.Sprintf("%d characters", n),
			SuggestedValue: fmt.Sprintf("Reduce to %d-%d characters", MetaDescMinLength, MetaDescMaxLength),
			ImpactScore:    ImpactLongMetaDesc,
		}
	default:
		return nil
	}
}

func missingH1Rule(b seo.MetricsBundle) *seo.Recommendation {
	if len(b.H1Tags) != 0 {
		return nil
	}
	return &seo.Recommendation{
		Category:       seo.CategoryHeadings,
		Priority:       seo.RecHigh,
		Title:          "Missing H1 Tag",
		Description:    "Your page is missing an H1 tag, which is important for SEO structure.",
		CurrentValue:   "0 H1 tags",
		SuggestedValue: "Add exactly 1 H1 tag",
		ImpactScore:    ImpactMissingH1,
	}
}

func multipleH1Rule(b seo.MetricsBundle) *seo.Recommendation {
	if len(b.H1Tags) <= 1 {
		return nil
	}
	return &seo.Recommendation{
		Category:       seo.CategoryHeadings,
		Priority:       seo.RecMedium,
		Title:          "Multiple H1 Tags",
		Description:    "Multiple H1 tags can confuse search engines about your page's main topic.",
		CurrentValue:   fmt.Sprintf("%d H1 tags", len(b.H1Tags)),
		SuggestedValue: "Use only 1 H1 tag per page",
		ImpactScore:    ImpactMultipleH1,
	}
}

func noH2Rule(b seo.MetricsBundle) *seo.Recommendation {
	if len(b.H2Tags) != 0 {
		return nil
	}
	return &seo.Recommendation{
		Category:       seo.CategoryHeadings,
		Priority:       seo.RecLow,
		Title:          "No H2 Tags",
		Description:    "H2 tags help structure your content and improve readability.",
		CurrentValue:   "0 H2 tags",
		SuggestedValue: "Add H2 tags to structure your content",
		ImpactScore:    ImpactNoH2,
	}
}

func linksRule(b seo.MetricsBundle) *seo.Recommendation {
	total := len(b.InternalLinks) + len(b.ExternalLinks)
	switch {
	case total == 0:
		return &seo.Recommendation{
			Category:       seo.CategoryLinks,
			Priority:       seo.RecMedium,
			Title:          "No Links Found",
			Description:    "Your page has no links, which may hurt SEO and user experience.",
			CurrentValue:   "0 links",
			SuggestedValue: "Add relevant internal and external links",
			ImpactScore:    ImpactNoLinks,
		}
	case len(b.InternalLinks) == 0:
		return &seo.Recommendation{
			Category:       seo.CategoryLinks,
			Priority:       seo.RecMedium,
			Title:          "No Internal Links",
			Description:    "Internal links help search engines understand your site structure.",
			CurrentValue:   "0 internal links",
			SuggestedValue: "Add internal links to related pages",
			ImpactScore:    ImpactNoInternalLinks,
		}
	default:
		return nil
	}
}

func internalRatioRule(b seo.MetricsBundle) *seo.Recommendation {
	total := len(b.InternalLinks) + len(b.ExternalLinks)
	if total == 0 || len(b.InternalLinks) == 0 {
		return nil
	}
	ratio := float64(len(b.InternalLinks)) / float64(total)
	if ratio >= InternalLinkRatio {
		return nil
	}
	return &seo.Recommendation{
		Category:       seo.CategoryLinks,
		Priority:       seo.RecLow,
		Title:          "Low Internal Link Ratio",
		Description:    "Consider adding more internal links to improve site navigation.",
		CurrentValue:   fmt.Sprintf("%.0f%% internal links", ratio*100),
		SuggestedValue: fmt.Sprintf("Aim for %.0f%%+ internal links", InternalLinkRatio*100),
		ImpactScore:    ImpactLowInternalRatio,
	}
}

func imageAltRule(b seo.MetricsBundle) *seo.Recommendation {
	missing := 0
	for _, img := range b.Images {
		if img.Alt == "" {
			missing++
		}
	}
	if missing == 0 {
		return nil
	}
	return &seo.Recommendation{
		Category:       seo.CategoryImages,
		Priority:       seo.RecMedium,
		Title:          "Images Missing Alt Text",
		Description:    "Alt text improves accessibility and helps search engines understand your images.",
		CurrentValue:   fmt.Sprintf("%d images without alt text", missing),
		SuggestedValue: "Add descriptive alt text to all images",
		ImpactScore:    ImpactImagesMissingAlt,
	}
}

func slowLoadRule(b seo.MetricsBundle) *seo.Recommendation {
	if b.FetchDuration <= SlowLoadThreshold {
		return nil
	}
	return &seo.Recommendation{
		Category:       seo.CategoryPerformance,
		Priority:       seo.RecHigh,
		Title:          "Slow Page Load Time",
		Description:    "Page load time affects both user experience and SEO rankings.",
		CurrentValue:   fmt.Sprintf("%.2f seconds", b.FetchDuration.Seconds()),
		SuggestedValue: "Optimize to load under 3 seconds",
		ImpactScore:    ImpactSlowLoad,
	}
}

func largePageRule(b seo.MetricsBundle) *seo.Recommendation {
	if b.PageBytes <= LargePageBytes {
		return nil
	}
	return &seo.Recommendation{
		Category:       seo.CategoryPerformance,
		Priority:       seo.RecMedium,
		Title:          "Large Page Size",
		Description:    "Large page sizes can slow down loading, especially on mobile devices.",
		CurrentValue:   fmt.Sprintf("%.2f MB", float64(b.PageBytes)/1024/1024),
		SuggestedValue: "Optimize images and minimize CSS/JS",
		ImpactScore:    ImpactLargePage,
	}
}
