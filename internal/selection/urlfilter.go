package selection

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"SEOPilot/internal/domain"
)

var socialDomains = []string{
	"youtube.com",
	"youtu.be",
	"facebook.com",
	"twitter.com",
	"x.com",
	"linkedin.com",
	"instagram.com",
	"tiktok.com",
	"pinterest.com",
	"reddit.com",
}

var listingFragments = []string{
	"/tag/",
	"/tags/",
	"/temas/",
	"/category/",
	"/categoria/",
	"?page=",
	"&page=",
	"#",
}

var pagedPath = regexp.MustCompile(`/page/\d+/?$`)

var binaryExtensions = map[string]struct{}{
	".pdf": {}, ".zip": {}, ".rar": {}, ".gz": {},
	".doc": {}, ".docx": {}, ".xls": {}, ".xlsx": {}, ".ppt": {}, ".pptx": {},
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {},
	".mp3": {}, ".mp4": {},
}

// IsSocial reports whether the URL points at a social network.
func IsSocial(rawURL string) bool {
	host := domain.OriginDomain(rawURL)
	if host == "" {
		return false
	}
	for _, d := range socialDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// IsNonArticle reports whether the URL looks like a listing, a fragment link or a binary file.
func IsNonArticle(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, fragment := range listingFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}

	u, err := url.Parse(lower)
	if err != nil {
		return true
	}
	if pagedPath.MatchString(u.Path) {
		return true
	}
	_, binary := binaryExtensions[path.Ext(u.Path)]
	return binary
}

// dropSocial keeps non-social URLs in order, capped at limit.
func dropSocial(urls []string, limit int) []string {
	kept := make([]string, 0, len(urls))
	for _, u := range urls {
		if limit > 0 && len(kept) >= limit {
			break
		}
		if strings.TrimSpace(u) == "" || IsSocial(u) {
			continue
		}
		kept = append(kept, u)
	}
	return kept
}
