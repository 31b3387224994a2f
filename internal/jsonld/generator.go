// Package jsonld builds schema.org JSON-LD graphs for the site and its events.
package jsonld

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"go-gin-event-commerce/config"
	"go-gin-event-commerce/internal/model"
	"go-gin-event-commerce/internal/timeutil"
	"go-gin-event-commerce/pkg/logger"

	"go.uber.org/zap"
)

var firstInteger = regexp.MustCompile(`\d+`)

// Generator 由網站設定與活動文件產生 JSON-LD，不持有可變狀態
type Generator struct {
	site config.SiteConfig
	log  *zap.Logger
}

func NewGenerator(site config.SiteConfig) *Generator {
	site.BaseURL = strings.TrimRight(site.BaseURL, "/")
	return &Generator{site: site, log: logger.WithComponent("jsonld")}
}

// SiteGraph WebSite + Organization
func (g *Generator) SiteGraph() Graph {
	ids := NewIDs(g.site.BaseURL, "")
	return Graph{
		Context: SchemaContext,
		Graph:   []any{g.webSite(ids), g.organization(ids)},
	}
}

// EventGraph 單一 @graph 文件，所有 @id 參照都能在同一份文件中找到
func (g *Generator) EventGraph(event *model.Event, now time.Time) Graph {
	return Graph{Context: SchemaContext, Graph: g.eventNodes(event, now)}
}

// EventDocuments 每個節點各自帶 @context 的獨立文件
func (g *Generator) EventDocuments(event *model.Event, now time.Time) []any {
	nodes := g.eventNodes(event, now)
	for _, n := range nodes {
		if c, ok := n.(contextual); ok {
			c.SetContext(SchemaContext)
		}
	}
	return nodes
}

// EventListGraph 活動列表頁的 ItemList
func (g *Generator) EventListGraph(events []*model.Event) Graph {
	ids := NewIDs(g.site.BaseURL, "")
	list := &ItemList{
		Node:          Node{Type: "ItemList", ID: ids.ItemList()},
		Name:          g.site.Name,
		URL:           ListingURL(g.site.BaseURL),
		NumberOfItems: len(events),
	}
	for i, ev := range events {
		list.ItemListElement = append(list.ItemListElement, ListItem{
			Node:     Node{Type: "ListItem"},
			Position: i + 1,
			Name:     ev.Name,
			URL:      EventURL(g.site.BaseURL, ev.Slug),
		})
	}
	return Graph{
		Context: SchemaContext,
		Graph:   []any{g.webSite(ids), g.organization(ids), list},
	}
}

func (g *Generator) eventNodes(event *model.Event, now time.Time) []any {
	ids := NewIDs(g.site.BaseURL, event.Slug)
	nodes := []any{
		g.webSite(ids),
		g.organization(ids),
		g.webPage(ids, event, now),
		g.event(ids, event),
	}
	if faq := g.faqPage(ids, event); faq != nil {
		nodes = append(nodes, faq)
	}
	return append(nodes, g.breadcrumb(ids, event))
}

func (g *Generator) webSite(ids IDs) *WebSite {
	return &WebSite{
		Node:        Node{Type: "WebSite", ID: ids.WebSite()},
		URL:         g.site.BaseURL,
		Name:        g.site.Name,
		Description: g.site.Description,
		InLanguage:  g.site.Language,
		Publisher:   refTo(ids.Organization()),
		PotentialAction: &SearchAction{
			Node: Node{Type: "SearchAction"},
			Target: EntryPoint{
				Node:        Node{Type: "EntryPoint"},
				URLTemplate: ListingURL(g.site.BaseURL) + "?q=" + searchTermPlaceholder,
			},
			QueryInput: searchQueryInput,
		},
	}
}

func (g *Generator) organization(ids IDs) *Organization {
	org := &Organization{
		Node:      Node{Type: "Organization", ID: ids.Organization()},
		Name:      g.site.Name,
		URL:       g.site.BaseURL,
		SameAs:    g.site.SameAs,
		Email:     g.site.Email,
		Telephone: g.site.Telephone,
	}
	if g.site.LogoURL != "" {
		org.Logo = &ImageObject{
			Node:   Node{Type: "ImageObject"},
			URL:    g.site.LogoURL,
			Width:  g.site.LogoWidth,
			Height: g.site.LogoHeight,
		}
	}
	return org
}

func (g *Generator) webPage(ids IDs, event *model.Event, now time.Time) *WebPage {
	loc := timeutil.Location(event.Timezone)
	published := event.CreatedAt.OrElse(now)
	modified := event.UpdatedAt.OrElse(published)

	page := &WebPage{
		Node:          Node{Type: "WebPage", ID: ids.WebPage()},
		URL:           ids.EventURL,
		Name:          firstNonEmpty(event.SEOTitle, event.Name),
		Description:   description(event),
		InLanguage:    g.site.Language,
		IsPartOf:      refTo(ids.WebSite()),
		About:         refTo(ids.Event()),
		MainEntity:    refTo(ids.Event()),
		Breadcrumb:    refTo(ids.Breadcrumb()),
		DatePublished: timeutil.FormatISO(published, loc),
		DateModified:  timeutil.FormatISO(modified, loc),
	}
	if event.ImageURL != "" {
		page.PrimaryImageOfPage = &ImageObject{Node: Node{Type: "ImageObject"}, URL: event.ImageURL}
	}
	return page
}

func (g *Generator) event(ids IDs, event *model.Event) *Event {
	tz := event.Timezone
	eventType := "MusicEvent"
	if event.IsFestival() {
		eventType = "Festival"
	}

	place := g.place(ids, event)
	node := &Event{
		Node:                    Node{Type: eventType, ID: ids.Event()},
		Name:                    event.Name,
		URL:                     ids.EventURL,
		Description:             description(event),
		Image:                   images(event),
		StartDate:               timeutil.FormatDateTime(event.StartDate, event.StartTime, tz),
		EndDate:                 endDate(event),
		DoorTime:                doorTime(event),
		EventStatus:             EventScheduled,
		EventAttendanceMode:     OfflineAttendanceMode,
		InLanguage:              g.site.Language,
		Keywords:                keywords(event),
		Location:                place,
		Organizer:               g.organizer(ids, event),
		Performer:               performers(event),
		Offers:                  g.offers(ids, event),
		MaximumAttendeeCapacity: event.TotalCapacity(),
		Audience: &PeopleAudience{
			Node:           Node{Type: "PeopleAudience"},
			RequiredMinAge: requiredMinAge(event.AgeRange),
		},
		MainEntityOfPage: refTo(ids.WebPage()),
	}
	node.SubEvent = performances(ids, event)
	return node
}

func (g *Generator) place(ids IDs, event *model.Event) *Place {
	l := event.Location
	place := &Place{
		Node: Node{Type: "Place", ID: ids.Place()},
		Name: firstNonEmpty(l.VenueName, l.City),
	}
	if firstNonEmpty(l.Address, l.City, l.Region, l.PostalCode, l.Country) != "" {
		place.Address = &PostalAddress{
			Node:            Node{Type: "PostalAddress"},
			StreetAddress:   l.Address,
			AddressLocality: l.City,
			AddressRegion:   l.Region,
			PostalCode:      l.PostalCode,
			AddressCountry:  l.Country,
		}
	}
	if l.Lat != nil && l.Lng != nil {
		place.Geo = &GeoCoordinates{
			Node:      Node{Type: "GeoCoordinates"},
			Latitude:  *l.Lat,
			Longitude: *l.Lng,
		}
	}
	return place
}

// organizer 有自訂主辦資訊時內嵌 Organization，否則參照網站的 Organization
func (g *Generator) organizer(ids IDs, event *model.Event) any {
	if event.Organizer.IsEmpty() {
		return refTo(ids.Organization())
	}
	o := event.Organizer
	return &Organization{
		Node:      Node{Type: "Organization", ID: ids.Organizer()},
		Name:      firstNonEmpty(o.Name, g.site.Name),
		URL:       o.URL,
		Email:     o.Email,
		Telephone: o.Phone,
	}
}

func (g *Generator) offers(ids IDs, event *model.Event) []Offer {
	loc := timeutil.Location(event.Timezone)
	used := make(map[string]struct{})
	var offers []Offer

	for _, phase := range event.SalesPhases {
		starts, hasStart := timeutil.ParseInstant(phase.StartDate, loc)
		ends, hasEnd := timeutil.ParseInstant(phase.EndDate, loc)
		if hasStart && hasEnd && ends.Before(starts) {
			g.log.Warn("dropping offers for phase that ends before it starts",
				zap.String("event", event.Slug),
				zap.String("phase", phase.ID),
				zap.String("startDate", phase.StartDate),
				zap.String("endDate", phase.EndDate),
			)
			continue
		}

		for _, zp := range phase.ZonesPricing {
			zone, ok := event.Zone(zp.ZoneID)
			if !ok || !zp.HasPrice() {
				continue
			}
			offer := Offer{
				Node:          Node{Type: "Offer", ID: uniqueID(used, ids.Offer(zone.Name, phase.Name), phase.ID, zone.ID)},
				Name:          strings.TrimSpace(zone.Name + " - " + phase.Name),
				Category:      phase.Name,
				URL:           ids.EventURL,
				Price:         zp.PriceValue(),
				PriceCurrency: event.Currency,
				Availability:  AvailabilityInStock,
			}
			if hasStart {
				offer.ValidFrom = timeutil.FormatISO(starts, loc)
				offer.AvailabilityStarts = offer.ValidFrom
			}
			if hasEnd {
				offer.AvailabilityEnds = timeutil.FormatISO(ends, loc)
				offer.PriceValidUntil = offer.AvailabilityEnds
			}
			offers = append(offers, offer)
		}
	}
	return offers
}

func (g *Generator) faqPage(ids IDs, event *model.Event) *FAQPage {
	var questions []Question
	for _, f := range event.FAQSection {
		if strings.TrimSpace(f.Question) == "" || strings.TrimSpace(f.Answer) == "" {
			continue
		}
		questions = append(questions, Question{
			Node:           Node{Type: "Question"},
			Name:           f.Question,
			AcceptedAnswer: Answer{Node: Node{Type: "Answer"}, Text: f.Answer},
		})
	}
	if len(questions) == 0 {
		return nil
	}
	return &FAQPage{
		Node:       Node{Type: "FAQPage", ID: ids.FAQ()},
		URL:        ids.EventURL,
		IsPartOf:   refTo(ids.WebPage()),
		MainEntity: questions,
	}
}

func (g *Generator) breadcrumb(ids IDs, event *model.Event) *BreadcrumbList {
	item := func(pos int, name, url string) ListItem {
		return ListItem{Node: Node{Type: "ListItem"}, Position: pos, Name: name, Item: url}
	}
	return &BreadcrumbList{
		Node: Node{Type: "BreadcrumbList", ID: ids.Breadcrumb()},
		ItemListElement: []ListItem{
			item(1, "Inicio", g.site.BaseURL),
			item(2, "Eventos", ListingURL(g.site.BaseURL)),
			item(3, event.Name, ids.EventURL),
		},
	}
}

func performers(event *model.Event) []Person {
	var people []Person
	for _, a := range event.ArtistLineup {
		if p, ok := person(a); ok {
			people = append(people, p)
		}
	}
	return people
}

func person(a model.Artist) (Person, bool) {
	name := strings.TrimSpace(a.Name)
	if name == "" {
		return Person{}, false
	}
	p := Person{Node: Node{Type: "Person"}, Name: name, Image: a.ImageURL}
	if ig := instagramURL(a.Instagram); ig != "" {
		p.SameAs = []string{ig}
	}
	return p, true
}

// performances 有個別演出日期或時間的藝人產生子活動
func performances(ids IDs, event *model.Event) []Event {
	used := make(map[string]struct{})
	var subs []Event
	for _, a := range event.ArtistLineup {
		if a.PerformanceDate == "" && a.PerformanceTime == "" {
			continue
		}
		p, ok := person(a)
		if !ok {
			continue
		}
		date := firstNonEmpty(a.PerformanceDate, event.StartDate)
		subs = append(subs, Event{
			Node:                Node{Type: "MusicEvent", ID: uniqueID(used, ids.Performance(p.Name), a.PerformanceDate, a.PerformanceTime)},
			Name:                event.Name + ": " + p.Name,
			URL:                 ids.EventURL,
			StartDate:           timeutil.FormatDateTime(date, a.PerformanceTime, event.Timezone),
			EventStatus:         EventScheduled,
			EventAttendanceMode: OfflineAttendanceMode,
			Location:            refTo(ids.Place()),
			Performer:           []Person{p},
		})
	}
	return subs
}

// endDate 只有 endTime 時沿用 startDate，結束早於開始則視為隔天
func endDate(event *model.Event) string {
	tz := event.Timezone
	if event.EndDate != "" {
		return timeutil.FormatDateTime(event.EndDate, event.EndTime, tz)
	}
	if event.EndTime == "" {
		return ""
	}
	start, ok := timeutil.CombineDateTime(event.StartDate, event.StartTime, tz)
	if !ok {
		return ""
	}
	end, ok := timeutil.CombineDateTime(event.StartDate, event.EndTime, tz)
	if !ok {
		return ""
	}
	if end.Before(start) {
		end = end.AddDate(0, 0, 1)
	}
	return timeutil.FormatISO(end, timeutil.Location(tz))
}

// doorTime 可能只是時間，也可能是完整日期時間
func doorTime(event *model.Event) string {
	if event.DoorTime == "" {
		return ""
	}
	if timeutil.NormalizeClock(event.DoorTime) != "" {
		return timeutil.FormatDateTime(event.StartDate, event.DoorTime, event.Timezone)
	}
	return timeutil.FormatDateTime(event.DoorTime, "", event.Timezone)
}

func requiredMinAge(ageRange string) int {
	if m := firstInteger.FindString(ageRange); m != "" {
		if age, err := strconv.Atoi(m); err == nil {
			return age
		}
	}
	return DefaultRequiredMinAge
}

func instagramURL(handle string) string {
	h := strings.TrimSpace(handle)
	if h == "" {
		return ""
	}
	if strings.HasPrefix(h, "http://") || strings.HasPrefix(h, "https://") {
		return h
	}
	return "https://www.instagram.com/" + strings.TrimPrefix(h, "@")
}

func description(event *model.Event) string {
	return firstNonEmpty(event.SEODescription, event.ShortDescription, event.Description)
}

func images(event *model.Event) []string {
	var out []string
	if event.ImageURL != "" {
		out = append(out, event.ImageURL)
	}
	for _, img := range event.Gallery {
		if img != "" && img != event.ImageURL {
			out = append(out, img)
		}
	}
	return out
}

func keywords(event *model.Event) string {
	words := append(append([]string(nil), event.Categories...), event.Tags...)
	return strings.Join(words, ", ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
