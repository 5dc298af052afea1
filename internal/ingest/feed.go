package ingest

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/seenimoa/reporate/internal/snapshot"
	"github.com/seenimoa/reporate/pkg/models"
	"github.com/seenimoa/reporate/pkg/utils"
)

// DefaultPolicyKeywords pick monetary policy releases out of a press feed.
var DefaultPolicyKeywords = []string{
	"monetary policy",
	"repo rate",
	"policy rate",
	"policy repo",
}

// FeedFilter selects which feed items become events.
type FeedFilter struct {
	// Keywords are matched case-insensitively against the item title.
	// Empty means DefaultPolicyKeywords.
	Keywords []string
	// Since drops items published before this IST date.
	Since *civil.Date
}

const maxDescription = 280

// ParsePressFeed reads an RSS or Atom press-release feed and returns a
// policy event for each matching item, dated by its IST publication day
// and sorted ascending. Items without any timestamp are skipped.
func ParsePressFeed(r io.Reader, filter FeedFilter) ([]snapshot.RawEvent, error) {
	feed, err := gofeed.NewParser().Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse press feed: %w", err)
	}

	keywords := filter.Keywords
	if len(keywords) == 0 {
		keywords = DefaultPolicyKeywords
	}

	events := make([]snapshot.RawEvent, 0, len(feed.Items))
	for _, item := range feed.Items {
		if !matchesAny(item.Title, keywords) {
			continue
		}
		ts := item.PublishedParsed
		if ts == nil {
			ts = item.UpdatedParsed
		}
		if ts == nil {
			continue
		}
		day := PublishedIST(*ts)
		if filter.Since != nil && day.Before(*filter.Since) {
			continue
		}
		events = append(events, snapshot.RawEvent{
			Date:        day.String(),
			Label:       strings.TrimSpace(item.Title),
			Description: truncate(cleanHTML(item.Description), maxDescription),
			Type:        string(models.EventPolicy),
			Citation:    item.Link,
		})
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].Date < events[j].Date })
	return events, nil
}

// PublishedIST is the IST calendar day of t.
func PublishedIST(t time.Time) civil.Date {
	return civil.DateOf(t.In(utils.IST))
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.TrimSpace(spaces.ReplaceAllString(doc.Text(), " "))
}

// matchesAny checks if text contains any of the keywords (case-insensitive).
func matchesAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}
