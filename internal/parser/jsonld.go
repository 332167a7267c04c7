package parser

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/eventcrawl/internal/domain"
)

// jsonldScriptSelector matches embedded Schema.org blocks.
const jsonldScriptSelector = `script[type="application/ld+json"]`

// jsonldTypeMap maps lowercased Schema.org @type values onto entity types.
var jsonldTypeMap = map[string]string{
	"event":        domain.TypeEvents,
	"music event":  domain.TypeEvents,
	"eventseries":  domain.TypeEvents,
	"festival":     domain.TypeFestivals,
	"sportsevent":  domain.TypeSports,
	"sports event": domain.TypeSports,
}

// ExtractFromJSONLD pulls candidate entities from JSON-LD blocks in the
// document. Blocks that are not valid JSON are skipped; a node with an
// unparsable startDate or endDate fails the whole page so the caller can
// count it as a parse failure.
func ExtractFromJSONLD(doc *goquery.Document) ([]domain.Entity, error) {
	var results []domain.Entity
	var nodeErr error

	doc.Find(jsonldScriptSelector).EachWithBreak(func(_ int, script *goquery.Selection) bool {
		var payload any
		if err := json.Unmarshal([]byte(script.Text()), &payload); err != nil {
			return true
		}
		for _, node := range flattenGraph(payload) {
			mappedType := normalisedType(node["@type"])
			if mappedType == "" {
				continue
			}
			entity, err := entityFromNode(node, mappedType)
			if err != nil {
				nodeErr = err
				return false
			}
			results = append(results, entity)
		}
		return true
	})

	if nodeErr != nil {
		return nil, nodeErr
	}
	return results, nil
}

// flattenGraph unwraps @graph and @list containers into a flat node list.
func flattenGraph(payload any) []map[string]any {
	var nodes []map[string]any
	switch value := payload.(type) {
	case map[string]any:
		if graph, ok := value["@graph"].([]any); ok {
			for _, item := range graph {
				if node, isMap := item.(map[string]any); isMap {
					nodes = append(nodes, flattenGraph(node)...)
				}
			}
		} else if list, ok := value["@list"].([]any); ok {
			for _, item := range list {
				if node, isMap := item.(map[string]any); isMap {
					nodes = append(nodes, node)
				}
			}
		} else {
			nodes = append(nodes, value)
		}
	case []any:
		for _, item := range value {
			if node, isMap := item.(map[string]any); isMap {
				nodes = append(nodes, flattenGraph(node)...)
			}
		}
	}
	return nodes
}

// normalisedType resolves a Schema.org @type value, which may be a string or
// a list, onto one of our entity types. Unknown types map to "".
func normalisedType(typeValue any) string {
	switch value := typeValue.(type) {
	case []any:
		for _, item := range value {
			if mapped := normalisedType(item); mapped != "" {
				return mapped
			}
		}
	case string:
		return jsonldTypeMap[strings.ToLower(value)]
	}
	return ""
}

// firstString returns the first non-blank string from a scalar or list value.
func firstString(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

// parseNodeSlot builds a time slot from a node's startDate and endDate.
// Both must be present for the slot to exist.
func parseNodeSlot(node map[string]any) (*domain.TimeSlot, error) {
	start := firstString(node["startDate"])
	end := firstString(node["endDate"])
	if start == "" || end == "" {
		return nil, nil
	}
	parsedStart, err := ParseISO(start)
	if err != nil {
		return nil, err
	}
	parsedEnd, err := ParseISO(end)
	if err != nil {
		return nil, err
	}
	return &domain.TimeSlot{Start: parsedStart.ISOFormat(), End: parsedEnd.ISOFormat()}, nil
}

// nodeTimeSlots collects the node's own slot plus any subEvent slots.
func nodeTimeSlots(node map[string]any) ([]any, error) {
	var slots []any
	top, err := parseNodeSlot(node)
	if err != nil {
		return nil, err
	}
	if top != nil {
		slots = append(slots, top.SlotMap())
	}
	if subEvents, ok := node["subEvent"].([]any); ok {
		for _, raw := range subEvents {
			sub, isMap := raw.(map[string]any)
			if !isMap {
				continue
			}
			slot, slotErr := parseNodeSlot(sub)
			if slotErr != nil {
				return nil, slotErr
			}
			if slot != nil {
				slots = append(slots, slot.SlotMap())
			}
		}
	}
	return slots, nil
}

// addressFields extracts the venue name and postal address parts from a
// Schema.org location object.
func addressFields(location any) (venueName, address, city, country string) {
	loc, ok := location.(map[string]any)
	if !ok {
		return "", "", "", ""
	}
	venueName = firstString(loc["name"])
	addr, ok := loc["address"].(map[string]any)
	if !ok {
		return venueName, "", "", ""
	}
	address = firstString(addr["streetAddress"])
	if address == "" {
		address = firstString(addr["street"])
	}
	if address == "" {
		address = firstString(addr["addressStreet"])
	}
	city = firstString(addr["addressLocality"])
	if city == "" {
		city = firstString(addr["city"])
	}
	country = firstString(addr["addressCountry"])
	return venueName, address, city, country
}

// offersPrice pulls the first price string from a Schema.org offers value.
func offersPrice(offers any) string {
	switch value := offers.(type) {
	case map[string]any:
		return firstString(value["price"])
	case []any:
		for _, raw := range value {
			if offer, ok := raw.(map[string]any); ok {
				if price := firstString(offer["price"]); price != "" {
					return price
				}
			}
		}
	}
	return ""
}

// nodeImages collects image URLs from a scalar or list image value.
func nodeImages(raw any) []any {
	var images []any
	switch value := raw.(type) {
	case []any:
		for _, item := range value {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				images = append(images, strings.TrimSpace(s))
			}
		}
	case string:
		if strings.TrimSpace(value) != "" {
			images = append(images, strings.TrimSpace(value))
		}
	}
	return images
}

// entityFromNode maps one JSON-LD node onto an entity of the mapped type.
func entityFromNode(node map[string]any, mappedType string) (domain.Entity, error) {
	slot, err := parseNodeSlot(node)
	if err != nil {
		return nil, err
	}
	slots, err := nodeTimeSlots(node)
	if err != nil {
		return nil, err
	}

	venueName, address, city, country := addressFields(node["location"])

	entity := domain.Entity{
		domain.FieldType:      mappedType,
		domain.FieldSourceID:  "",
		domain.FieldTitle:     firstString(node["name"]),
		domain.FieldVenueName: venueName,
		domain.FieldAddress:   address,
		domain.FieldCity:      city,
		domain.FieldCountry:   country,
		domain.FieldTimeSlots: slots,
	}
	if slot != nil {
		entity[domain.FieldStart] = slot.Start
		entity[domain.FieldEnd] = slot.End
	}
	if timezone := firstString(node["eventTimeZone"]); timezone != "" {
		entity[domain.FieldTimezone] = timezone
	}
	if price := offersPrice(node["offers"]); price != "" {
		entity[domain.FieldPriceText] = price
	}
	if organizer := firstString(node["organizer"]); organizer != "" {
		entity[domain.FieldOrganizer] = organizer
	}
	if pageURL := firstString(node["url"]); pageURL != "" {
		entity[domain.FieldURL] = pageURL
	}
	if images := nodeImages(node["image"]); len(images) > 0 {
		entity[domain.FieldImages] = images
	}
	if mappedType == domain.TypeSports {
		sportType := firstString(node["sport"])
		if sportType == "" {
			sportType = firstString(node["sportType"])
		}
		entity[domain.FieldSportType] = sportType
	}
	return entity, nil
}
