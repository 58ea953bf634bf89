package scraper

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// DiscoveredBook is one textbook found in the public catalog, with the
// classification metadata parsed out of its catalog path and file name.
type DiscoveredBook struct {
	Title          string `json:"title"`
	PDFURL         string `json:"pdf_url"`
	EducationLevel string `json:"education_level"` // elementary | secondary | high_school
	YearNumber     int    `json:"year_number"`
	Subject        string `json:"subject"`
	Specialization string `json:"specialization,omitempty"`
	Edition        string `json:"edition,omitempty"`
	SourcePageURL  string `json:"source_page_url"`
}

const (
	baseURL    = "https://www.koutoubi.mr"
	sitemapURL = baseURL + "/sitemap.xml"
)

var yearMap = map[string]int{
	"1ere": 1, "2eme": 2, "3eme": 3, "4eme": 4, "5eme": 5, "6eme": 6, "7eme": 7,
}

var specializationPatterns = []string{"TM", "C", "D", "A", "O"}

var (
	locRe    = regexp.MustCompile(`<loc>(.*?)</loc>`)
	rowRe    = regexp.MustCompile(`(?is)<tr[^>]*>(.*?)</tr>`)
	cellRe   = regexp.MustCompile(`(?is)<td[^>]*>(.*?)</td>`)
	pdfURLRe = regexp.MustCompile(`(?i)href=["'](https?://docs\.bsimr\.com/[^"']*\.pdf)["']`)
	tagRe    = regexp.MustCompile(`<[^>]+>`)
	yearRe   = regexp.MustCompile(`^(20\d{2})$`)
)

// Scraper walks the catalog sitemap and extracts textbook download tables.
type Scraper struct {
	client *http.Client
}

func New() *Scraper {
	return &Scraper{client: &http.Client{Timeout: 30 * time.Second}}
}

func parseEducationLevel(path string) string {
	switch {
	case strings.Contains(path, "fondamentals/"):
		return "elementary"
	case strings.Contains(path, "secondaire1/"):
		return "secondary"
	case strings.Contains(path, "secondaire2/"):
		return "high_school"
	}
	return ""
}

func parseYearNumber(path string) int {
	for key, value := range yearMap {
		if strings.Contains(path, "/"+key+"/") || strings.Contains(path, "/"+key) {
			return value
		}
	}
	return 0
}

func parseSubject(path string) string {
	for _, prefix := range []string{"fondamentals/", "secondaire1/", "secondaire2/"} {
		idx := strings.Index(path, prefix)
		if idx == -1 {
			continue
		}
		rest := path[idx+len(prefix):]
		parts := []string{}
		for _, p := range strings.Split(rest, "/") {
			if p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) >= 2 {
			return parts[1]
		}
	}
	return ""
}

func parseSpecialization(pdfURL, title string) string {
	combined := pdfURL + " " + title
	for _, spec := range specializationPatterns {
		re := regexp.MustCompile(`(?i)[_\s-]` + spec + `[_\s.-]|[_\s-]` + spec + `$|\b` + spec + `\b`)
		if re.MatchString(combined) {
			return strings.ToUpper(spec)
		}
	}
	return ""
}

func (s *Scraper) fetchWithRetry(ctx context.Context, url string, retries int) ([]byte, error) {
	var lastErr error
	for i := 0; i <= retries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "maktaba-bot/1.0")

		resp, err := s.client.Do(req)
		if err != nil {
			lastErr = err
			time.Sleep(time.Duration(i+1) * time.Second)
			continue
		}
		if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusNotFound {
			resp.Body.Close()
			return nil, nil
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			time.Sleep(time.Duration(i+1) * time.Second)
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return body, nil
	}
	return nil, fmt.Errorf("fetch %s: %w", url, lastErr)
}

func (s *Scraper) fetchSitemapURLs(ctx context.Context) ([]string, error) {
	body, err := s.fetchWithRetry(ctx, sitemapURL, 2)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, fmt.Errorf("sitemap unavailable at %s", sitemapURL)
	}

	var urls []string
	for _, m := range locRe.FindAllStringSubmatch(string(body), -1) {
		url := strings.TrimSpace(m[1])
		url = strings.Replace(url, "koutoubi.netlify.app", "www.koutoubi.mr", 1)
		urls = append(urls, url)
	}
	return urls, nil
}

func isTextbookPageURL(url string) bool {
	return strings.Contains(url, "fondamentals/") ||
		strings.Contains(url, "secondaire1/") ||
		strings.Contains(url, "secondaire2/")
}

// ExtractBooks pulls textbook rows out of a catalog page's HTML download table.
func ExtractBooks(html, pageURL string) []DiscoveredBook {
	var books []DiscoveredBook

	level := parseEducationLevel(pageURL)
	year := parseYearNumber(pageURL)
	subject := parseSubject(pageURL)
	if level == "" || year == 0 || subject == "" {
		return books
	}

	for _, rowMatch := range rowRe.FindAllStringSubmatch(html, -1) {
		rowHTML := rowMatch[1]

		var cells []string
		for _, cellMatch := range cellRe.FindAllStringSubmatch(rowHTML, -1) {
			cells = append(cells, strings.TrimSpace(cellMatch[1]))
		}
		if len(cells) < 2 {
			continue
		}

		var pdfURL string
		for _, cell := range cells {
			if m := pdfURLRe.FindStringSubmatch(cell); m != nil {
				pdfURL = m[1]
				break
			}
		}
		if pdfURL == "" {
			continue
		}

		title := strings.TrimSpace(tagRe.ReplaceAllString(cells[0], ""))
		if title == "" || title == "Download" || title == "Télécharger" {
			title = "Unknown"
		}

		var edition string
		for _, cell := range cells {
			stripped := strings.TrimSpace(tagRe.ReplaceAllString(cell, ""))
			if m := yearRe.FindStringSubmatch(stripped); m != nil {
				edition = m[1]
				break
			}
		}

		books = append(books, DiscoveredBook{
			Title:          title,
			PDFURL:         pdfURL,
			EducationLevel: level,
			YearNumber:     year,
			Subject:        subject,
			Specialization: parseSpecialization(pdfURL, title),
			Edition:        edition,
			SourcePageURL:  pageURL,
		})
	}

	return books
}

// DiscoverBooks scrapes every textbook page reachable from the sitemap and
// returns the unique books found, keyed by PDF URL. Individual page failures
// are logged and skipped.
func (s *Scraper) DiscoverBooks(ctx context.Context) ([]DiscoveredBook, error) {
	log.Println("scraper: fetching sitemap")
	allURLs, err := s.fetchSitemapURLs(ctx)
	if err != nil {
		return nil, err
	}

	var pageURLs []string
	for _, u := range allURLs {
		if isTextbookPageURL(u) {
			pageURLs = append(pageURLs, u)
		}
	}
	log.Printf("scraper: %d textbook page URLs in sitemap", len(pageURLs))

	var allBooks []DiscoveredBook
	seen := make(map[string]bool)

	for _, pageURL := range pageURLs {
		body, err := s.fetchWithRetry(ctx, pageURL, 2)
		if err != nil {
			log.Printf("scraper: error fetching %s: %v", pageURL, err)
			continue
		}
		if body == nil {
			log.Printf("scraper: skipping %s (fetch failed or 403/404)", pageURL)
			continue
		}

		for _, book := range ExtractBooks(string(body), pageURL) {
			if !seen[book.PDFURL] {
				seen[book.PDFURL] = true
				allBooks = append(allBooks, book)
			}
		}

		select {
		case <-ctx.Done():
			return allBooks, ctx.Err()
		case <-time.After(300 * time.Millisecond):
		}
	}

	log.Printf("scraper: discovered %d unique books", len(allBooks))
	return allBooks, nil
}
