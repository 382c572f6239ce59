package recommend

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rankrocket/rankrocket-crawler/internal/seo"
)

func healthyBundle() seo.MetricsBundle {
	return seo.MetricsBundle{
		Title:           strings.Repeat("t", 55),
		MetaDescription: strings.Repeat("d", 155),
		H1Tags:          []string{"Main Heading"},
		H2Tags:          []string{"Section"},
		InternalLinks:   []string{"/a", "/b", "/c", "/d"},
		ExternalLinks:   []string{"https://other.com"},
		Images:          []seo.ImageInfo{{Src: "/img.png", Alt: "a picture"}},
		PageBytes:       200_000,
		FetchDuration:   800 * time.Millisecond,
		StatusCode:      200,
	}
}

func TestSynthesizeHealthyPageHasNoFindings(t *testing.T) {
	t.Parallel()

	recs := Synthesize("sub-1", healthyBundle())
	require.Empty(t, recs)
}

func TestSynthesizeIsDeterministic(t *testing.T) {
	t.Parallel()

	b := seo.MetricsBundle{FetchDuration: 5 * time.Second}
	first := Synthesize("sub-1", b)
	second := Synthesize("sub-1", b)
	require.Equal(t, first, second)
}

func TestTitleRule(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		title      string
		wantTitle  string
		wantImpact float64
		wantPrio   seo.RecPriority
	}{
		{name: "missing", title: "", wantTitle: "Missing Page Title", wantImpact: ImpactMissingTitle, wantPrio: seo.RecHigh},
		{name: "short", title: strings.Repeat("x", 40), wantTitle: "Title Too Short", wantImpact: ImpactShortTitle, wantPrio: seo.RecMedium},
		{name: "long", title: strings.Repeat("x", 75), wantTitle: "Title Too Long", wantImpact: ImpactLongTitle, wantPrio: seo.RecMedium},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			b := healthyBundle()
			b.Title = tc.title
			recs := Synthesize("sub-1", b)
			require.Len(t, recs, 1)
			rec := recs[0]
			require.Equal(t, "sub-1", rec.SubmissionID)
			require.Equal(t, seo.CategoryTitle, rec.Category)
			require.Equal(t, tc.wantTitle, rec.Title)
			require.Equal(t, tc.wantPrio, rec.Priority)
			require.InDelta(t, tc.wantImpact, rec.ImpactScore, 1e-9)
		})
	}

	t.Run("boundaries fire nothing", func(t *testing.T) {
		t.Parallel()
		for _, n := range []int{TitleMinLength, TitleMaxLength} {
			b := healthyBundle()
			b.Title = strings.Repeat("x", n)
			require.Empty(t, Synthesize("sub-1", b))
		}
	})
}

func TestMetaDescriptionRule(t *testing.T) {
	t.Parallel()

	b := healthyBundle()
	b.MetaDescription = ""
	recs := Synthesize("sub-1", b)
	require.Len(t, recs, 1)
	require.Equal(t, seo.CategoryMetaDescription, recs[0].Category)
	require.Equal(t, "Missing Meta Description", recs[0].Title)
	require.InDelta(t, ImpactMissingMetaDesc, recs[0].ImpactScore, 1e-9)

	b.MetaDescription = strings.Repeat("d", MetaDescMaxLength+10)
	recs = Synthesize("sub-1", b)
	require.Len(t, recs, 1)
	require.Equal(t, "Meta Description Too Long", recs[0].Title)
	require.InDelta(t, ImpactLongMetaDesc, recs[0].ImpactScore, 1e-9)
}

func TestHeadingRules(t *testing.T) {
	t.Parallel()

	b := healthyBundle()
	b.H1Tags = nil
	recs := Synthesize("sub-1", b)
	require.Len(t, recs, 1)
	require.Equal(t, "Missing H1 Tag", recs[0].Title)
	require.Equal(t, seo.RecHigh, recs[0].Priority)

	b = healthyBundle()
	b.H1Tags = []string{"One", "Two"}
	recs = Synthesize("sub-1", b)
	require.Len(t, recs, 1)
	require.Equal(t, "Multiple H1 Tags", recs[0].Title)
	require.Equal(t, "2 H1 tags", recs[0].CurrentValue)

	b = healthyBundle()
	b.H2Tags = nil
	recs = Synthesize("sub-1", b)
	require.Len(t, recs, 1)
	require.Equal(t, "No H2 Tags", recs[0].Title)
	require.Equal(t, seo.RecLow, recs[0].Priority)
}

func TestLinkRules(t *testing.T) {
	t.Parallel()

	// No links at all: only the no-links finding fires, not the ratio rule.
	b := healthyBundle()
	b.InternalLinks = nil
	b.ExternalLinks = nil
	recs := Synthesize("sub-1", b)
	require.Len(t, recs, 1)
	require.Equal(t, "No Links Found", recs[0].Title)

	b = healthyBundle()
	b.InternalLinks = nil
	recs = Synthesize("sub-1", b)
	require.Len(t, recs, 1)
	require.Equal(t, "No Internal Links", recs[0].Title)

	// 1 internal of 5 total is below the 80% target.
	b = healthyBundle()
	b.InternalLinks = []string{"/a"}
	b.ExternalLinks = []string{"https://e1.com", "https://e2.com", "https://e3.com", "https://e4.com"}
	recs = Synthesize("sub-1", b)
	require.Len(t, recs, 1)
	require.Equal(t, "Low Internal Link Ratio", recs[0].Title)
	require.Equal(t, "20% internal links", recs[0].CurrentValue)
	require.InDelta(t, ImpactLowInternalRatio, recs[0].ImpactScore, 1e-9)
}

func TestImageAltRule(t *testing.T) {
	t.Parallel()

	b := healthyBundle()
	b.Images = []seo.ImageInfo{
		{Src: "/a.png", Alt: "described"},
		{Src: "/b.png"},
		{Src: "/c.png"},
	}
	recs := Synthesize("sub-1", b)
	require.Len(t, recs, 1)
	require.Equal(t, seo.CategoryImages, recs[0].Category)
	require.Equal(t, "2 images without alt text", recs[0].CurrentValue)
}

func TestPerformanceRules(t *testing.T) {
	t.Parallel()

	b := healthyBundle()
	b.FetchDuration = 4 * time.Second
	recs := Synthesize("sub-1", b)
	require.Len(t, recs, 1)
	require.Equal(t, "Slow Page Load Time", recs[0].Title)
	require.Equal(t, "4.00 seconds", recs[0].CurrentValue)
	require.InDelta(t, ImpactSlowLoad, recs[0].ImpactScore, 1e-9)

	b = healthyBundle()
	b.PageBytes = 2 * 1024 * 1024
	recs = Synthesize("sub-1", b)
	require.Len(t, recs, 1)
	require.Equal(t, "Large Page Size", recs[0].Title)
	require.Equal(t, "2.00 MB", recs[0].CurrentValue)
}

func TestSynthesizeBrokenPageAccumulatesFindings(t *testing.T) {
	t.Parallel()

	recs := Synthesize("sub-1", seo.MetricsBundle{})
	titles := make([]string, 0, len(recs))
	for _, r := range recs {
		titles = append(titles, r.Title)
	}
	require.Equal(t, []string{
		"Missing Page Title",
		"Missing Meta Description",
		"Missing H1 Tag",
		"No H2 Tags",
		"No Links Found",
	}, titles)
}
