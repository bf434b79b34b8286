package crmfeed

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"crm-sync/internal/core/domain"
)

// JSONFeedMapper разбирает текущий фид {"estates": [...]}. Записи
// декодируются в map[string]any: набор ключей у объектов плавает,
// а динамические характеристики ищутся по имени ключа.
type JSONFeedMapper struct{}

// ParseFeed разбирает конверт и маппит все записи. Отсутствие ключа
// estates - битый конверт; estates: [] - валидный пустой фид.
func (m *JSONFeedMapper) ParseFeed(body []byte) ([]domain.ListingRecord, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal json feed: %w", err)
	}

	rawEstates, ok := envelope["estates"]
	if !ok {
		return nil, fmt.Errorf("json feed envelope has no 'estates' array")
	}

	var estates []map[string]any
	if err := json.Unmarshal(rawEstates, &estates); err != nil {
		return nil, fmt.Errorf("'estates' is not an array of objects: %w", err)
	}

	records := make([]domain.ListingRecord, 0, len(estates))
	for _, raw := range estates {
		records = append(records, m.mapEstate(raw))
	}
	return records, nil
}

func (m *JSONFeedMapper) mapEstate(raw map[string]any) domain.ListingRecord {
	street := ""
	streetType := ""
	city := ""
	var location *domain.Location

	if rawLoc, ok := raw["location"].(map[string]any); ok {
		street = getText(rawLoc["street"])
		streetType = getText(rawLoc["street_type"])
		city = getText(rawLoc["city"])

		var metros []domain.Metro
		if rawMetros, ok := rawLoc["metros"].([]any); ok {
			for _, rawMetro := range rawMetros {
				metroMap, ok := rawMetro.(map[string]any)
				if !ok {
					continue
				}
				distance := 0
				if n := getNumber(metroMap["distance"]); n != nil {
					distance = int(*n)
				}
				metros = append(metros, domain.Metro{
					Name:     getText(metroMap["name"]),
					Distance: distance,
				})
			}
		}

		location = &domain.Location{
			Country:    getText(rawLoc["country"]),
			Region:     getText(rawLoc["region"]),
			City:       city,
			Borough:    getText(rawLoc["borough"]),
			District:   getText(rawLoc["district"]),
			County:     getText(rawLoc["county"]),
			Street:     street,
			StreetType: streetType,
			Lat:        getNumber(rawLoc["map_lat"]),
			Lng:        getNumber(rawLoc["map_lng"]),
			Metros:     metros,
		}
	}

	// Семантика текущего формата: за городом - если нет улицы или ее
	// типа, либо город не начинается с "Київ" (проверка по префиксу,
	// в отличие от строгого сравнения в легаси-формате).
	isOutOfCity := street == "" || streetType == "" ||
		!strings.HasPrefix(strings.ToLower(city), "київ")

	var price *domain.Price
	if rawPrice, ok := raw["price"].(map[string]any); ok {
		if value := getNumber(rawPrice["value"]); value != nil {
			currency := getText(rawPrice["currency"])
			if currency == "" {
				currency = "USD"
			}
			price = &domain.Price{Value: *value, Currency: currency}
		}
	}

	var contact *domain.Contact
	if rawUser, ok := raw["user"].(map[string]any); ok {
		var phones []string
		switch rawPhones := rawUser["phones"].(type) {
		case []any:
			for _, p := range rawPhones {
				if s := getText(p); s != "" {
					phones = append(phones, s)
				}
			}
		default:
			if s := getText(rawPhones); s != "" {
				phones = append(phones, s)
			}
		}
		contact = &domain.Contact{
			Name:  getText(rawUser["name"]),
			Phone: strings.Join(phones, ", "),
			Email: getText(rawUser["email"]),
		}
	}

	var images []string
	if rawImages, ok := raw["images"].([]any); ok {
		for _, img := range rawImages {
			if s := getText(img); s != "" {
				images = append(images, s)
			}
		}
	}

	var characteristics []domain.Characteristic
	for key, value := range raw {
		if !isCharacteristicKey(key) {
			continue
		}
		text := getText(value)
		characteristics = append(characteristics, domain.Characteristic{
			Key:          key,
			Value:        text,
			ValueNumeric: getNumber(value),
		})
	}
	if rawProps, ok := raw["properties"].([]any); ok {
		for _, rawProp := range rawProps {
			propMap, ok := rawProp.(map[string]any)
			if !ok {
				continue
			}
			value := getText(propMap["value"])
			characteristics = append(characteristics, domain.Characteristic{
				Key:          getText(propMap["name"]),
				Value:        value,
				ValueNumeric: numericProjection(value),
			})
		}
	}

	isNewBuilding := false
	if n := getNumber(raw["is_new_building"]); n != nil && *n != 0 {
		isNewBuilding = true
	}

	return domain.ListingRecord{
		ExternalID:      getText(raw["id"]),
		Status:          getText(raw["status"]),
		Title:           getText(raw["title"]),
		Description:     getText(raw["description"]),
		Deal:            getText(raw["deal"]),
		Type:            getText(raw["realty_type"]),
		IsNewBuilding:   isNewBuilding,
		IsOutOfCity:     isOutOfCity,
		Article:         getText(raw["article"]),
		Category:        getText(raw["category"]),
		NewBuildingName: getText(raw["newbuilding_name"]),
		CreatedAt:       parseFeedTime(getText(raw["created_at"])),
		UpdatedAt:       parseFeedTime(getText(raw["updated_at"])),
		Location:        location,
		Price:           price,
		Contact:         contact,
		Images:          images,
		Characteristics: characteristics,
	}
}

// getText терпимо извлекает текст из любой встречающейся формы поля:
// строка, {"_": "..."}, {"value": "..."}, число или null.
func getText(field any) string {
	switch v := field.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case map[string]any:
		if inner, ok := v["_"]; ok {
			return getText(inner)
		}
		if inner, ok := v["value"]; ok {
			return getText(inner)
		}
		return ""
	default:
		return ""
	}
}

// getNumber терпимо извлекает число; отсутствующее или нечисловое
// значение дает nil, а не ошибку.
func getNumber(field any) *float64 {
	switch v := field.(type) {
	case float64:
		n := v
		return &n
	case string:
		return numericProjection(v)
	case map[string]any:
		if s := getText(v); s != "" {
			return numericProjection(s)
		}
		return nil
	default:
		return nil
	}
}
