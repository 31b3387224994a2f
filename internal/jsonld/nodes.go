package jsonld

const (
	SchemaContext = "https://schema.org"

	AvailabilityInStock   = "https://schema.org/InStock"
	EventScheduled        = "https://schema.org/EventScheduled"
	OfflineAttendanceMode = "https://schema.org/OfflineEventAttendanceMode"
	DefaultRequiredMinAge = 18
	searchQueryInput      = "required name=search_term_string"
	searchTermPlaceholder = "{search_term_string}"
)

// Node 所有 schema.org 節點共用的 @context/@type/@id
type Node struct {
	Context string `json:"@context,omitempty"`
	Type    string `json:"@type,omitempty"`
	ID      string `json:"@id,omitempty"`
}

// SetContext 獨立輸出的文件需要各自帶 @context
func (n *Node) SetContext(ctx string) {
	n.Context = ctx
}

type contextual interface {
	SetContext(ctx string)
}

// Ref 只帶 @id 的節點參照
type Ref struct {
	ID string `json:"@id"`
}

func refTo(id string) *Ref {
	return &Ref{ID: id}
}

// Graph 單一 @context + @graph 文件
type Graph struct {
	Context string `json:"@context"`
	Graph   []any  `json:"@graph"`
}

type WebSite struct {
	Node
	URL             string        `json:"url"`
	Name            string        `json:"name"`
	Description     string        `json:"description,omitempty"`
	InLanguage      string        `json:"inLanguage,omitempty"`
	Publisher       *Ref          `json:"publisher,omitempty"`
	PotentialAction *SearchAction `json:"potentialAction,omitempty"`
}

type SearchAction struct {
	Node
	Target     EntryPoint `json:"target"`
	QueryInput string     `json:"query-input"`
}

type EntryPoint struct {
	Node
	URLTemplate string `json:"urlTemplate"`
}

type Organization struct {
	Node
	Name      string       `json:"name"`
	URL       string       `json:"url,omitempty"`
	Logo      *ImageObject `json:"logo,omitempty"`
	SameAs    []string     `json:"sameAs,omitempty"`
	Email     string       `json:"email,omitempty"`
	Telephone string       `json:"telephone,omitempty"`
}

type ImageObject struct {
	Node
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

type WebPage struct {
	Node
	URL                string       `json:"url"`
	Name               string       `json:"name"`
	Description        string       `json:"description,omitempty"`
	InLanguage         string       `json:"inLanguage,omitempty"`
	IsPartOf           *Ref         `json:"isPartOf,omitempty"`
	About              *Ref         `json:"about,omitempty"`
	MainEntity         *Ref         `json:"mainEntity,omitempty"`
	Breadcrumb         *Ref         `json:"breadcrumb,omitempty"`
	PrimaryImageOfPage *ImageObject `json:"primaryImageOfPage,omitempty"`
	DatePublished      string       `json:"datePublished,omitempty"`
	DateModified       string       `json:"dateModified,omitempty"`
}

// Event MusicEvent 或 Festival；子演出也使用同一結構
type Event struct {
	Node
	Name                    string          `json:"name"`
	URL                     string          `json:"url,omitempty"`
	Description             string          `json:"description,omitempty"`
	Image                   []string        `json:"image,omitempty"`
	StartDate               string          `json:"startDate,omitempty"`
	EndDate                 string          `json:"endDate,omitempty"`
	DoorTime                string          `json:"doorTime,omitempty"`
	EventStatus             string          `json:"eventStatus,omitempty"`
	EventAttendanceMode     string          `json:"eventAttendanceMode,omitempty"`
	InLanguage              string          `json:"inLanguage,omitempty"`
	Keywords                string          `json:"keywords,omitempty"`
	Location                any             `json:"location,omitempty"`
	Organizer               any             `json:"organizer,omitempty"`
	Performer               []Person        `json:"performer,omitempty"`
	Offers                  []Offer         `json:"offers,omitempty"`
	SubEvent                []Event         `json:"subEvent,omitempty"`
	MaximumAttendeeCapacity int             `json:"maximumAttendeeCapacity,omitempty"`
	Audience                *PeopleAudience `json:"audience,omitempty"`
	MainEntityOfPage        *Ref            `json:"mainEntityOfPage,omitempty"`
}

type Place struct {
	Node
	Name    string          `json:"name,omitempty"`
	Address *PostalAddress  `json:"address,omitempty"`
	Geo     *GeoCoordinates `json:"geo,omitempty"`
}

type PostalAddress struct {
	Node
	StreetAddress   string `json:"streetAddress,omitempty"`
	AddressLocality string `json:"addressLocality,omitempty"`
	AddressRegion   string `json:"addressRegion,omitempty"`
	PostalCode      string `json:"postalCode,omitempty"`
	AddressCountry  string `json:"addressCountry,omitempty"`
}

type GeoCoordinates struct {
	Node
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Person struct {
	Node
	Name   string   `json:"name"`
	SameAs []string `json:"sameAs,omitempty"`
	Image  string   `json:"image,omitempty"`
}

type Offer struct {
	Node
	Name               string  `json:"name,omitempty"`
	Category           string  `json:"category,omitempty"`
	URL                string  `json:"url,omitempty"`
	Price              float64 `json:"price"`
	PriceCurrency      string  `json:"priceCurrency,omitempty"`
	Availability       string  `json:"availability"`
	ValidFrom          string  `json:"validFrom,omitempty"`
	AvailabilityStarts string  `json:"availabilityStarts,omitempty"`
	AvailabilityEnds   string  `json:"availabilityEnds,omitempty"`
	PriceValidUntil    string  `json:"priceValidUntil,omitempty"`
}

type PeopleAudience struct {
	Node
	RequiredMinAge int `json:"requiredMinAge"`
}

type FAQPage struct {
	Node
	URL        string     `json:"url,omitempty"`
	IsPartOf   *Ref       `json:"isPartOf,omitempty"`
	MainEntity []Question `json:"mainEntity,omitempty"`
}

type Question struct {
	Node
	Name           string `json:"name"`
	AcceptedAnswer Answer `json:"acceptedAnswer"`
}

type Answer struct {
	Node
	Text string `json:"text"`
}

type BreadcrumbList struct {
	Node
	ItemListElement []ListItem `json:"itemListElement,omitempty"`
}

type ListItem struct {
	Node
	Position int    `json:"position"`
	Name     string `json:"name,omitempty"`
	Item     string `json:"item,omitempty"`
	URL      string `json:"url,omitempty"`
}

type ItemList struct {
	Node
	Name            string     `json:"name,omitempty"`
	URL             string     `json:"url,omitempty"`
	NumberOfItems   int        `json:"numberOfItems"`
	ItemListElement []ListItem `json:"itemListElement,omitempty"`
}
