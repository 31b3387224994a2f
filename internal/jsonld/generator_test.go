package jsonld

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"go-gin-event-commerce/config"
	"go-gin-event-commerce/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseURL = "https://tickets.example.pe"

var now = time.Date(2025, 11, 20, 15, 0, 0, 0, time.UTC)

func testSite() config.SiteConfig {
	return config.SiteConfig{
		BaseURL:    baseURL + "/",
		Name:       "Eventos Lima",
		Language:   "es-PE",
		LogoURL:    baseURL + "/logo.png",
		LogoWidth:  512,
		LogoHeight: 512,
		SameAs:     []string{"https://instagram.com/eventoslima"},
	}
}

func price(v float64) *float64 {
	return &v
}

func coord(v float64) *float64 {
	return &v
}

func iso(t time.Time) string {
	return t.Format(time.RFC3339)
}

func testEvent() *model.Event {
	return &model.Event{
		ID:               "evt-1",
		Slug:             "noche-de-salsa",
		Name:             "Noche de Salsa",
		ShortDescription: "Salsa en vivo",
		Description:      "Una noche completa de salsa",
		StartDate:        "2025-12-12",
		StartTime:        "22:00",
		EndTime:          "03:00",
		DoorTime:         "20:30",
		Timezone:         "UTC-05:00",
		Currency:         "PEN",
		AgeRange:         "Mayores de 21 años",
		Zones: []model.Zone{
			{ID: "general", Name: "General", Capacity: 100, IsActive: true},
			{ID: "vip", Name: "VIP", Capacity: 40, IsActive: true},
		},
		SalesPhases: []model.SalesPhase{
			{
				ID:        "preventa",
				Name:      "Preventa",
				StartDate: iso(now.Add(-24 * time.Hour)),
				EndDate:   iso(now.Add(24 * time.Hour)),
				ZonesPricing: []model.ZonePricing{
					{ZoneID: "general", Price: price(135), Available: 100},
					{ZoneID: "vip", Price: price(250), Available: 40},
					{ZoneID: "ghost", Price: price(10), Available: 5},
				},
			},
			{
				ID:        "broken",
				Name:      "Mal configurada",
				StartDate: "2025-12-10T00:00:00Z",
				EndDate:   "2025-12-01T00:00:00Z",
				ZonesPricing: []model.ZonePricing{
					{ZoneID: "general", Price: price(150), Available: 100},
				},
			},
			{
				ID:        "puerta",
				Name:      "Puerta",
				StartDate: "2025-12-12T18:00:00",
				EndDate:   "2025-12-12T23:59:00",
				ZonesPricing: []model.ZonePricing{
					{ZoneID: "general", Price: price(180), Available: 100},
					{ZoneID: "vip"},
				},
			},
		},
		Location: model.Location{
			VenueName: "Arena Lima",
			Address:   "Av. Javier Prado 123",
			City:      "Lima",
			Country:   "PE",
			Lat:       coord(-12.09),
			Lng:       coord(-77.02),
		},
		ArtistLineup: []model.Artist{
			{Name: "Orquesta Sabor", Instagram: "@orquestasabor", PerformanceTime: "23:00"},
			{Name: "DJ Timba"},
		},
		FAQSection: []model.FAQ{{Question: "¿Hay estacionamiento?", Answer: "Sí, <b>gratis</b> & seguro"}},
		CreatedAt:  model.NewTimestamp(time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)),
	}
}

func decode(t *testing.T, v any) map[string]any {
	t.Helper()
	b, err := Marshal(v)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

func graphNodes(t *testing.T, doc map[string]any) map[string]map[string]any {
	t.Helper()
	nodes := map[string]map[string]any{}
	for _, raw := range doc["@graph"].([]any) {
		n := raw.(map[string]any)
		nodes[n["@type"].(string)] = n
	}
	return nodes
}

func offersOf(t *testing.T, event map[string]any) []map[string]any {
	t.Helper()
	var out []map[string]any
	raw, _ := event["offers"].([]any)
	for _, o := range raw {
		out = append(out, o.(map[string]any))
	}
	return out
}

// collectIDs 有 @type 的物件是定義，只有 @id 的物件是參照
func collectIDs(v any, defined, referenced map[string]bool) {
	switch val := v.(type) {
	case map[string]any:
		if id, ok := val["@id"].(string); ok {
			if _, typed := val["@type"]; typed {
				defined[id] = true
			} else if len(val) == 1 {
				referenced[id] = true
			}
		}
		for _, child := range val {
			collectIDs(child, defined, referenced)
		}
	case []any:
		for _, child := range val {
			collectIDs(child, defined, referenced)
		}
	}
}

func TestGenerator_EventGraph_EndToEnd(t *testing.T) {
	event := &model.Event{
		Slug:     "e2e",
		Name:     "E2E",
		Currency: "PEN",
		Timezone: "UTC-05:00",
		Zones:    []model.Zone{{ID: "z1", Name: "General", Capacity: 100, IsActive: true}},
		SalesPhases: []model.SalesPhase{{
			ID:           "p1",
			Name:         "Fase 1",
			StartDate:    iso(now.Add(-24 * time.Hour)),
			EndDate:      iso(now.Add(24 * time.Hour)),
			ZonesPricing: []model.ZonePricing{{ZoneID: "z1", Price: price(135), Available: 100}},
		}},
	}

	doc := decode(t, NewGenerator(testSite()).EventGraph(event, now))
	ev := graphNodes(t, doc)["MusicEvent"]
	offers := offersOf(t, ev)

	require.Len(t, offers, 1)
	assert.Equal(t, AvailabilityInStock, offers[0]["availability"])
	assert.Equal(t, 135.0, offers[0]["price"])
	assert.Equal(t, "PEN", offers[0]["priceCurrency"])
	assert.Equal(t, "2025-11-19T10:00:00-05:00", offers[0]["validFrom"])
	assert.Equal(t, "2025-11-21T10:00:00-05:00", offers[0]["availabilityEnds"])
	assert.Equal(t, float64(100), ev["maximumAttendeeCapacity"])
}

func TestGenerator_EventGraph(t *testing.T) {
	gen := NewGenerator(testSite())
	doc := decode(t, gen.EventGraph(testEvent(), now))
	eventURL := baseURL + "/eventos/noche-de-salsa"

	assert.Equal(t, SchemaContext, doc["@context"])
	nodes := graphNodes(t, doc)
	for _, typ := range []string{"WebSite", "Organization", "WebPage", "MusicEvent", "FAQPage", "BreadcrumbList"} {
		assert.Contains(t, nodes, typ)
	}

	t.Run("site nodes", func(t *testing.T) {
		assert.Equal(t, baseURL+"/#website", nodes["WebSite"]["@id"])
		assert.Equal(t, baseURL+"/#organization", nodes["Organization"]["@id"])
		logo := nodes["Organization"]["logo"].(map[string]any)
		assert.Equal(t, "ImageObject", logo["@type"])
		target := nodes["WebSite"]["potentialAction"].(map[string]any)["target"].(map[string]any)
		assert.Equal(t, baseURL+"/eventos?q={search_term_string}", target["urlTemplate"])
	})

	t.Run("web page dates", func(t *testing.T) {
		page := nodes["WebPage"]
		assert.Equal(t, eventURL+"/#webpage", page["@id"])
		assert.Equal(t, "2025-10-01T07:00:00-05:00", page["datePublished"])
		assert.Equal(t, "2025-10-01T07:00:00-05:00", page["dateModified"])
	})

	ev := nodes["MusicEvent"]

	t.Run("event dates carry the normalized offset", func(t *testing.T) {
		assert.Equal(t, eventURL+"/#event", ev["@id"])
		assert.Equal(t, "2025-12-12T22:00:00-05:00", ev["startDate"])
		// end time before start time rolls over to the next day
		assert.Equal(t, "2025-12-13T03:00:00-05:00", ev["endDate"])
		assert.Equal(t, "2025-12-12T20:30:00-05:00", ev["doorTime"])
	})

	t.Run("description precedence", func(t *testing.T) {
		assert.Equal(t, "Salsa en vivo", ev["description"])
	})

	t.Run("location with geo", func(t *testing.T) {
		place := ev["location"].(map[string]any)
		assert.Equal(t, eventURL+"/#place", place["@id"])
		assert.Equal(t, "Arena Lima", place["name"])
		geo := place["geo"].(map[string]any)
		assert.Equal(t, -12.09, geo["latitude"])
		address := place["address"].(map[string]any)
		assert.Equal(t, "Lima", address["addressLocality"])
	})

	t.Run("organizer falls back to site organization", func(t *testing.T) {
		assert.Equal(t, map[string]any{"@id": baseURL + "/#organization"}, ev["organizer"])
	})

	t.Run("performers and sub events", func(t *testing.T) {
		performers := ev["performer"].([]any)
		require.Len(t, performers, 2)
		first := performers[0].(map[string]any)
		assert.Equal(t, []any{"https://www.instagram.com/orquestasabor"}, first["sameAs"])

		subs := ev["subEvent"].([]any)
		require.Len(t, subs, 1)
		sub := subs[0].(map[string]any)
		assert.Equal(t, eventURL+"/#performance-orquesta-sabor", sub["@id"])
		assert.Equal(t, "2025-12-12T23:00:00-05:00", sub["startDate"])
	})

	t.Run("audience and capacity", func(t *testing.T) {
		audience := ev["audience"].(map[string]any)
		assert.Equal(t, float64(21), audience["requiredMinAge"])
		assert.Equal(t, float64(140), ev["maximumAttendeeCapacity"])
	})

	t.Run("offers", func(t *testing.T) {
		offers := offersOf(t, ev)
		ids := make([]string, 0, len(offers))
		for _, o := range offers {
			ids = append(ids, o["@id"].(string))
		}
		// ghost zone, the inverted phase and the unpriced vip row are all absent
		assert.Equal(t, []string{
			eventURL + "/#offer-general-preventa",
			eventURL + "/#offer-vip-preventa",
			eventURL + "/#offer-general-puerta",
		}, ids)
		assert.Equal(t, "2025-12-12T18:00:00-05:00", offers[2]["availabilityStarts"])
		assert.Equal(t, "2025-12-12T23:59:00-05:00", offers[2]["priceValidUntil"])
	})

	t.Run("breadcrumb trail", func(t *testing.T) {
		items := nodes["BreadcrumbList"]["itemListElement"].([]any)
		require.Len(t, items, 3)
		assert.Equal(t, baseURL, items[0].(map[string]any)["item"])
		assert.Equal(t, baseURL+"/eventos", items[1].(map[string]any)["item"])
		assert.Equal(t, eventURL, items[2].(map[string]any)["item"])
		assert.Equal(t, float64(3), items[2].(map[string]any)["position"])
	})

	t.Run("faq", func(t *testing.T) {
		faq := nodes["FAQPage"]
		questions := faq["mainEntity"].([]any)
		require.Len(t, questions, 1)
		answer := questions[0].(map[string]any)["acceptedAnswer"].(map[string]any)
		assert.Equal(t, "Sí, <b>gratis</b> & seguro", answer["text"])
	})
}

func TestGenerator_OfferDateOrder(t *testing.T) {
	gen := NewGenerator(testSite())
	event := testEvent()

	doc := decode(t, gen.EventGraph(event, now))
	ev := graphNodes(t, doc)["MusicEvent"]
	for _, o := range offersOf(t, ev) {
		assert.NotContains(t, o["@id"], "mal-configurada")
		starts, okStart := o["availabilityStarts"].(string)
		ends, okEnd := o["availabilityEnds"].(string)
		if okStart && okEnd {
			s, err := time.Parse(time.RFC3339, starts)
			require.NoError(t, err)
			e, err := time.Parse(time.RFC3339, ends)
			require.NoError(t, err)
			assert.False(t, e.Before(s))
		}
	}
}

func TestGenerator_ReferentialIntegrity(t *testing.T) {
	gen := NewGenerator(testSite())

	events := []*model.Event{testEvent()}
	custom := testEvent()
	custom.Organizer = &model.Organizer{Name: "Salsa Producciones", URL: "https://salsa.pe"}
	custom.FAQSection = nil
	custom.EventType = "Festival"
	events = append(events, custom)

	for _, event := range events {
		doc := decode(t, gen.EventGraph(event, now))
		defined, referenced := map[string]bool{}, map[string]bool{}
		collectIDs(doc, defined, referenced)
		require.NotEmpty(t, referenced)
		for id := range referenced {
			assert.True(t, defined[id], "dangling reference %s", id)
		}
	}
}

func TestGenerator_CustomOrganizerAndFestival(t *testing.T) {
	event := testEvent()
	event.Organizer = &model.Organizer{Name: "Salsa Producciones", Email: "hola@salsa.pe"}
	event.Categories = []string{"Música", "Festival"}
	event.FAQSection = nil
	event.AgeRange = ""
	event.Location.Lng = nil

	nodes := graphNodes(t, decode(t, NewGenerator(testSite()).EventGraph(event, now)))

	assert.NotContains(t, nodes, "FAQPage")
	ev, ok := nodes["Festival"]
	require.True(t, ok)
	organizer := ev["organizer"].(map[string]any)
	assert.Equal(t, "Organization", organizer["@type"])
	assert.Equal(t, baseURL+"/eventos/noche-de-salsa/#organizer", organizer["@id"])
	assert.Equal(t, float64(DefaultRequiredMinAge), ev["audience"].(map[string]any)["requiredMinAge"])
	assert.NotContains(t, ev["location"].(map[string]any), "geo")
}

func TestGenerator_Idempotent(t *testing.T) {
	gen := NewGenerator(testSite())

	first, err := Marshal(gen.EventGraph(testEvent(), now))
	require.NoError(t, err)
	second, err := Marshal(gen.EventGraph(testEvent(), now))
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))

	docsA, err := ScriptTags(gen.EventDocuments(testEvent(), now))
	require.NoError(t, err)
	docsB, err := ScriptTags(gen.EventDocuments(testEvent(), now))
	require.NoError(t, err)
	assert.Equal(t, docsA, docsB)
}

func TestGenerator_MissingCreatedAtFallsBackToNow(t *testing.T) {
	event := testEvent()
	event.CreatedAt = model.Timestamp{}

	nodes := graphNodes(t, decode(t, NewGenerator(testSite()).EventGraph(event, now)))
	assert.Equal(t, "2025-11-20T10:00:00-05:00", nodes["WebPage"]["datePublished"])
}

func TestGenerator_EventDocuments(t *testing.T) {
	docs := NewGenerator(testSite()).EventDocuments(testEvent(), now)
	require.Len(t, docs, 6)
	for _, d := range docs {
		out := decode(t, d)
		assert.Equal(t, SchemaContext, out["@context"])
		assert.NotEmpty(t, out["@type"])
	}
}

func TestGenerator_SiteAndListGraphs(t *testing.T) {
	gen := NewGenerator(testSite())

	site := decode(t, gen.SiteGraph())
	assert.Len(t, site["@graph"], 2)

	second := testEvent()
	second.Slug = "rock-fest"
	second.Name = "Rock Fest"
	list := graphNodes(t, decode(t, gen.EventListGraph([]*model.Event{testEvent(), second})))
	items := list["ItemList"]["itemListElement"].([]any)
	require.Len(t, items, 2)
	assert.Equal(t, baseURL+"/eventos/rock-fest", items[1].(map[string]any)["url"])
	assert.Equal(t, float64(2), list["ItemList"]["numberOfItems"])
}

func TestOfferIDCollisions(t *testing.T) {
	event := testEvent()
	event.SalesPhases = []model.SalesPhase{
		{ID: "a", Name: "Preventa", ZonesPricing: []model.ZonePricing{{ZoneID: "general", Price: price(100)}}},
		{ID: "b", Name: "Preventa", ZonesPricing: []model.ZonePricing{{ZoneID: "general", Price: price(120)}}},
	}

	nodes := graphNodes(t, decode(t, NewGenerator(testSite()).EventGraph(event, now)))
	offers := offersOf(t, nodes["MusicEvent"])
	require.Len(t, offers, 2)
	eventURL := baseURL + "/eventos/noche-de-salsa"
	assert.Equal(t, eventURL+"/#offer-general-preventa", offers[0]["@id"])
	assert.Equal(t, eventURL+"/#offer-general-preventa-b", offers[1]["@id"])
	// unparseable phase dates leave the bounds out instead of guessing
	assert.NotContains(t, offers[0], "validFrom")
}

func TestScriptTag_Sanitizes(t *testing.T) {
	event := testEvent()
	event.Name = `</script><script>alert("x")</script> & más`

	tag, err := ScriptTag(NewGenerator(testSite()).EventGraph(event, now))
	require.NoError(t, err)

	body := strings.TrimSuffix(strings.TrimPrefix(tag, `<script type="application/ld+json">`), `</script>`)
	assert.NotContains(t, body, "<")
	assert.NotContains(t, body, ">")
	assert.NotContains(t, body, "&")

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &doc))
	assert.Equal(t, event.Name, graphNodes(t, doc)["MusicEvent"]["name"])
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "zona-vip-nandu", Slugify("Zona VIP Ñandú"))
	assert.Equal(t, "preventa-2x1", Slugify("  ¡Preventa 2x1!  "))
	assert.Equal(t, "", Slugify("***"))
}
