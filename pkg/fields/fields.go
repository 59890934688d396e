// Package fields maps caller-requested channel attributes onto the YouTube
// Data API "part" parameter.
//
// The API groups channel attributes into parts (snippet, statistics, ...)
// and only returns the parts named in a request. Resolve turns a flat list
// of attribute names into the smallest set of parts that covers them,
// together with the attributes to read back out of each part.
//
// Example usage:
//
//	plan := fields.Resolve([]string{"viewCount", "keywords"}, fields.ChannelCatalog())
//	plan.PartParam()       // "brandingSettings,statistics"
//	plan.AttributesByPart  // {"brandingSettings": ["keywords"], "statistics": ["viewCount"]}
package fields

import "strings"

// Part is a named group of attributes the API returns together.
type Part struct {
	Name       string
	Attributes []string
}

// Catalog is an ordered list of parts. Declaration order is the resolution
// priority: an attribute listed under several parts belongs to the first.
type Catalog []Part

// Part names with special handling.
const (
	PartBrandingSettings = "brandingSettings"
	PartSnippet          = "snippet"
)

// ChannelCatalog returns the channel parts readable with an API key.
func ChannelCatalog() Catalog {
	return Catalog{
		{Name: PartBrandingSettings, Attributes: []string{"keywords"}},
		{Name: "contentOwnerDetails", Attributes: []string{"contentOwner", "timeLinked"}},
		{Name: PartSnippet, Attributes: []string{"title", "description", "customUrl", "publishedAt", "defaultLanguage", "country"}},
		{Name: "statistics", Attributes: []string{"viewCount", "commentCount", "subscriberCount", "videoCount", "hiddenSubscriberCount"}},
		{Name: "status", Attributes: []string{"privacyStatus", "isLinked", "longUploadsStatus", "madeForKids", "selfDeclaredMadeForKids"}},
		{Name: "topicDetails", Attributes: []string{"topicCategories"}},
	}
}

// Attributes returns every attribute in catalog order.
func (c Catalog) Attributes() []string {
	var all []string
	for _, p := range c {
		all = append(all, p.Attributes...)
	}
	return all
}

// PartOf returns the first part listing attr.
func (c Catalog) PartOf(attr string) (string, bool) {
	for _, p := range c {
		for _, a := range p.Attributes {
			if a == attr {
				return p.Name, true
			}
		}
	}
	return "", false
}

// Plan is the resolved part selection for one request.
type Plan struct {
	// Parts holds the parts to request, in catalog order.
	Parts []string

	// AttributesByPart maps each part to the requested attributes it
	// covers, in request order.
	AttributesByPart map[string][]string

	// Dropped lists requested names that no part contains. They are not
	// an error; the caller may log them.
	Dropped []string
}

// PartParam returns the comma-joined value for the API "part" parameter.
func (p Plan) PartParam() string {
	return strings.Join(p.Parts, ",")
}

// Empty reports whether the plan selects nothing to fetch.
func (p Plan) Empty() bool {
	return len(p.Parts) == 0
}

// Resolve builds a Plan for the requested attributes. An empty request
// selects every attribute in the catalog. Repeated names count once.
func Resolve(requested []string, catalog Catalog) Plan {
	if len(requested) == 0 {
		requested = catalog.Attributes()
	}

	plan := Plan{AttributesByPart: make(map[string][]string)}
	seen := make(map[string]bool, len(requested))

	for _, attr := range requested {
		if seen[attr] {
			continue
		}
		seen[attr] = true

		part, ok := catalog.PartOf(attr)
		if !ok {
			plan.Dropped = append(plan.Dropped, attr)
			continue
		}
		plan.AttributesByPart[part] = append(plan.AttributesByPart[part], attr)
	}

	for _, p := range catalog {
		if _, ok := plan.AttributesByPart[p.Name]; ok {
			plan.Parts = append(plan.Parts, p.Name)
		}
	}

	return plan
}
