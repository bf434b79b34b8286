package crmfeed

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"crm-sync/internal/core/domain"
)

// LegacyXMLMapper разбирает легаси-фид <response><item>...</item></response>.
// Текстовые поля в нем встречаются и как chardata, и как атрибут value,
// поэтому все текстовые узлы читаются через xmlText.
type LegacyXMLMapper struct{}

type xmlEnvelope struct {
	XMLName xml.Name  `xml:"response"`
	Items   []xmlItem `xml:"item"`
}

type xmlItem struct {
	InternalID      string        `xml:"internal-id,attr"`
	Status          xmlText       `xml:"status"`
	Title           xmlText       `xml:"title"`
	Description     xmlText       `xml:"description"`
	Deal            xmlText       `xml:"deal"`
	RealtyType      xmlText       `xml:"realty_type"`
	IsNewBuilding   xmlText       `xml:"is_new_building"`
	Article         xmlText       `xml:"article"`
	Category        xmlText       `xml:"category"`
	NewBuildingName xmlText       `xml:"newbuilding_name"`
	CreatedAt       xmlText       `xml:"created_at"`
	UpdatedAt       xmlText       `xml:"updated_at"`
	Location        *xmlLocation  `xml:"location"`
	Price           *xmlPrice     `xml:"price"`
	Images          xmlImages     `xml:"images"`
	User            *xmlUser      `xml:"user"`
	Properties      xmlProperties `xml:"properties"`

	// Все необъявленные элементы: сюда попадают динамические
	// характеристики вроде area_total, floor, rooms.
	Dynamic []xmlDynamicField `xml:",any"`
}

// xmlText поддерживает обе встречающиеся формы текстового узла:
// <field>значение</field> и <field value="значение"/>.
type xmlText struct {
	Value string `xml:"value,attr"`
	Text  string `xml:",chardata"`
}

// String возвращает обрезанный текст узла; chardata приоритетнее атрибута.
func (t xmlText) String() string {
	if s := strings.TrimSpace(t.Text); s != "" {
		return s
	}
	return strings.TrimSpace(t.Value)
}

type xmlLocation struct {
	Country    xmlText   `xml:"country"`
	Region     xmlText   `xml:"region"`
	City       xmlText   `xml:"city"`
	Borough    xmlText   `xml:"borough"`
	District   xmlText   `xml:"district"`
	County     xmlText   `xml:"county"`
	Street     xmlText   `xml:"street"`
	StreetType xmlText   `xml:"street_type"`
	MapLat     xmlText   `xml:"map_lat"`
	MapLng     xmlText   `xml:"map_lng"`
	Metros     xmlMetros `xml:"metros"`
}

type xmlMetros struct {
	Metro []xmlMetro `xml:"metro"`
}

// xmlMetro: <metro value="300">Лук'янівська</metro>
type xmlMetro struct {
	Distance string `xml:"value,attr"`
	Name     string `xml:",chardata"`
}

// xmlPrice: <price currency="USD">100000</price>
type xmlPrice struct {
	Currency string `xml:"currency,attr"`
	Value    string `xml:",chardata"`
}

type xmlImages struct {
	URLs []string `xml:"image_url"`
}

type xmlUser struct {
	Name   xmlText   `xml:"name"`
	Phones xmlPhones `xml:"phones"`
	Email  xmlText   `xml:"email"`
}

type xmlPhones struct {
	Phone []xmlText `xml:"phone"`
}

type xmlProperties struct {
	Property []xmlProperty `xml:"property"`
}

// xmlProperty: <property label="Опалення">централізоване</property>
type xmlProperty struct {
	Label string `xml:"label,attr"`
	Value string `xml:",chardata"`
}

type xmlDynamicField struct {
	XMLName xml.Name
	Text    string `xml:",chardata"`
}

// ParseFeed разбирает конверт и маппит все записи. Ошибка только при
// битом конверте; кривые одиночные записи деградируют до пустых полей.
func (m *LegacyXMLMapper) ParseFeed(body []byte) ([]domain.ListingRecord, error) {
	var envelope xmlEnvelope
	if err := xml.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal xml feed: %w", err)
	}

	records := make([]domain.ListingRecord, 0, len(envelope.Items))
	for _, item := range envelope.Items {
		records = append(records, m.mapItem(item))
	}
	return records, nil
}

func (m *LegacyXMLMapper) mapItem(item xmlItem) domain.ListingRecord {
	street := ""
	streetType := ""
	city := ""
	var location *domain.Location

	if item.Location != nil {
		street = item.Location.Street.String()
		streetType = item.Location.StreetType.String()
		city = item.Location.City.String()

		metros := make([]domain.Metro, 0, len(item.Location.Metros.Metro))
		for _, metro := range item.Location.Metros.Metro {
			distance, err := strconv.Atoi(strings.TrimSpace(metro.Distance))
			if err != nil {
				distance = 0
			}
			metros = append(metros, domain.Metro{
				Name:     strings.TrimSpace(metro.Name),
				Distance: distance,
			})
		}

		location = &domain.Location{
			Country:    item.Location.Country.String(),
			Region:     item.Location.Region.String(),
			City:       city,
			Borough:    item.Location.Borough.String(),
			District:   item.Location.District.String(),
			County:     item.Location.County.String(),
			Street:     street,
			StreetType: streetType,
			Lat:        numericProjection(item.Location.MapLat.String()),
			Lng:        numericProjection(item.Location.MapLng.String()),
			Metros:     metros,
		}
	}

	// Семантика легаси-формата: за городом - если нет улицы или ее
	// типа, если город село ("с. ...") или если город не Киев
	// (строгое сравнение).
	cityLower := strings.ToLower(city)
	isOutOfCity := street == "" || streetType == "" ||
		strings.HasPrefix(cityLower, "с.") || cityLower != "київ"

	var price *domain.Price
	if item.Price != nil {
		if value := numericProjection(item.Price.Value); value != nil {
			currency := strings.TrimSpace(item.Price.Currency)
			if currency == "" {
				currency = "USD"
			}
			price = &domain.Price{Value: *value, Currency: currency}
		}
	}

	var contact *domain.Contact
	if item.User != nil {
		phones := make([]string, 0, len(item.User.Phones.Phone))
		for _, phone := range item.User.Phones.Phone {
			if s := phone.String(); s != "" {
				phones = append(phones, s)
			}
		}
		contact = &domain.Contact{
			Name:  item.User.Name.String(),
			Phone: strings.Join(phones, ", "),
			Email: item.User.Email.String(),
		}
	}

	images := make([]string, 0, len(item.Images.URLs))
	for _, url := range item.Images.URLs {
		if s := strings.TrimSpace(url); s != "" {
			images = append(images, s)
		}
	}

	var characteristics []domain.Characteristic
	for _, field := range item.Dynamic {
		key := field.XMLName.Local
		if !isCharacteristicKey(key) {
			continue
		}
		value := strings.TrimSpace(field.Text)
		characteristics = append(characteristics, domain.Characteristic{
			Key:          key,
			Value:        value,
			ValueNumeric: numericProjection(value),
		})
	}
	for _, prop := range item.Properties.Property {
		value := strings.TrimSpace(prop.Value)
		characteristics = append(characteristics, domain.Characteristic{
			Key:          strings.TrimSpace(prop.Label),
			Value:        value,
			ValueNumeric: numericProjection(value),
		})
	}

	isNewBuilding := false
	if n := numericProjection(item.IsNewBuilding.String()); n != nil && *n != 0 {
		isNewBuilding = true
	}

	return domain.ListingRecord{
		ExternalID:      strings.TrimSpace(item.InternalID),
		Status:          item.Status.String(),
		Title:           item.Title.String(),
		Description:     item.Description.String(),
		Deal:            item.Deal.String(),
		Type:            item.RealtyType.String(),
		IsNewBuilding:   isNewBuilding,
		IsOutOfCity:     isOutOfCity,
		Article:         item.Article.String(),
		Category:        item.Category.String(),
		NewBuildingName: item.NewBuildingName.String(),
		CreatedAt:       parseFeedTime(item.CreatedAt.String()),
		UpdatedAt:       parseFeedTime(item.UpdatedAt.String()),
		Location:        location,
		Price:           price,
		Contact:         contact,
		Images:          images,
		Characteristics: characteristics,
	}
}
