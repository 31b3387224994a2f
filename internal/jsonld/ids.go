package jsonld

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify 去除重音後轉成小寫連字號格式: "Zona VIP Ñandú" -> "zona-vip-nandu"
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Trim(nonSlugChars.ReplaceAllString(strings.ToLower(folded), "-"), "-")
}

// IDs 以網站網址與活動 slug 建立固定的 @id，不使用亂數或計數器
type IDs struct {
	Base     string
	EventURL string
}

func NewIDs(baseURL, eventSlug string) IDs {
	base := strings.TrimRight(baseURL, "/")
	ids := IDs{Base: base}
	if eventSlug != "" {
		ids.EventURL = EventURL(base, eventSlug)
	}
	return ids
}

// EventURL 活動頁網址
func EventURL(baseURL, slug string) string {
	return strings.TrimRight(baseURL, "/") + "/eventos/" + slug
}

// ListingURL 活動列表頁網址
func ListingURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/eventos"
}

func (ids IDs) WebSite() string      { return ids.Base + "/#website" }
func (ids IDs) Organization() string { return ids.Base + "/#organization" }
func (ids IDs) ItemList() string     { return ListingURL(ids.Base) + "/#itemlist" }
func (ids IDs) WebPage() string      { return ids.event("webpage") }
func (ids IDs) Event() string        { return ids.event("event") }
func (ids IDs) Place() string        { return ids.event("place") }
func (ids IDs) FAQ() string          { return ids.event("faq") }
func (ids IDs) Breadcrumb() string   { return ids.event("breadcrumb") }
func (ids IDs) Organizer() string    { return ids.event("organizer") }

// Offer {eventUrl}/#offer-{zone}-{phase}
func (ids IDs) Offer(zoneName, phaseName string) string {
	return ids.event("offer-" + joinSlugs(zoneName, phaseName))
}

// Performance {eventUrl}/#performance-{artist}
func (ids IDs) Performance(artist string) string {
	return ids.event("performance-" + joinSlugs(artist))
}

func (ids IDs) event(fragment string) string {
	return ids.EventURL + "/#" + fragment
}

func joinSlugs(parts ...string) string {
	slugs := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := Slugify(p); s != "" {
			slugs = append(slugs, s)
		}
	}
	return strings.Join(slugs, "-")
}

// uniqueID 重複時依序接上 disambiguators 的 slug，結果只取決於輸入
func uniqueID(used map[string]struct{}, id string, disambiguators ...string) string {
	candidate := id
	for _, d := range disambiguators {
		if _, taken := used[candidate]; !taken {
			break
		}
		if s := Slugify(d); s != "" {
			candidate += "-" + s
		}
	}
	used[candidate] = struct{}{}
	return candidate
}
