package crmfeed

import (
	"testing"

	"crm-sync/internal/core/domain"
)

const jsonFixture = `{
  "estates": [
    {
      "id": 2001,
      "status": "published",
      "title": "Оренда квартири",
      "description": {"_": "Світла квартира"},
      "deal": "оренда",
      "realty_type": "квартира",
      "is_new_building": 0,
      "article": "CD-42",
      "category": "новобудова",
      "newbuilding_name": {"value": "ЖК Паркове місто"},
      "created_at": "2024-04-05T09:00:00Z",
      "updated_at": "2024-04-06 12:00:00",
      "location": {
        "country": "Україна",
        "region": "Київська область",
        "city": "Київ",
        "street": "Оболонський проспект",
        "street_type": "просп.",
        "map_lat": 50.5012,
        "map_lng": "30.4977",
        "metros": [
          {"name": "Оболонь", "distance": 450},
          {"name": "Мінська", "distance": "abc"}
        ]
      },
      "price": {"value": 850, "currency": "USD"},
      "images": ["https://img.example.com/a.jpg", "", "https://img.example.com/b.jpg"],
      "user": {
        "name": "Ігор",
        "phones": ["+380931234567"],
        "email": "ihor@example.com"
      },
      "area_total": "72.3",
      "floor": 5,
      "properties": [
        {"name": "Ремонт", "value": "євроремонт"},
        {"name": "Кімнат", "value": "3"}
      ]
    },
    {
      "id": "2002",
      "title": "Ділянка"
    }
  ]
}`

func TestJSONFeedMapperParseFeed(t *testing.T) {
	mapper := &JSONFeedMapper{}
	records, err := mapper.ParseFeed([]byte(jsonFixture))
	if err != nil {
		t.Fatalf("ParseFeed returned error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	rec := records[0]
	if rec.ExternalID != "2001" {
		t.Errorf("numeric id must stringify, got %q", rec.ExternalID)
	}
	if rec.Description != "Світла квартира" {
		t.Errorf("wrapped {\"_\": ...} text = %q", rec.Description)
	}
	if rec.NewBuildingName != "ЖК Паркове місто" {
		t.Errorf("wrapped {\"value\": ...} text = %q", rec.NewBuildingName)
	}
	if rec.IsNewBuilding {
		t.Error("is_new_building = 0 must map to false")
	}
	if rec.IsOutOfCity {
		t.Error("Київ with street must not be out of city")
	}
	if rec.CreatedAt.IsZero() || rec.UpdatedAt.IsZero() {
		t.Error("both timestamp layouts must parse")
	}

	if rec.Location == nil {
		t.Fatal("Location is nil")
	}
	if rec.Location.Lat == nil || *rec.Location.Lat != 50.5012 {
		t.Errorf("Lat = %v", rec.Location.Lat)
	}
	if rec.Location.Lng == nil || *rec.Location.Lng != 30.4977 {
		t.Errorf("string coordinate must parse, Lng = %v", rec.Location.Lng)
	}
	if len(rec.Location.Metros) != 2 {
		t.Fatalf("expected 2 metros, got %d", len(rec.Location.Metros))
	}
	if rec.Location.Metros[0].Name != "Оболонь" || rec.Location.Metros[0].Distance != 450 {
		t.Errorf("metro[0] = %+v", rec.Location.Metros[0])
	}
	if rec.Location.Metros[1].Distance != 0 {
		t.Errorf("non-numeric distance must default to 0, got %d", rec.Location.Metros[1].Distance)
	}

	if rec.Price == nil || rec.Price.Value != 850 || rec.Price.Currency != "USD" {
		t.Errorf("Price = %+v", rec.Price)
	}
	if len(rec.Images) != 2 {
		t.Errorf("empty image entries must be dropped, got %v", rec.Images)
	}
	if rec.Contact == nil || rec.Contact.Phone != "+380931234567" {
		t.Errorf("Contact = %+v", rec.Contact)
	}

	area := findCharacteristic(t, rec.Characteristics, "area_total")
	if area.Value != "72.3" || area.ValueNumeric == nil || *area.ValueNumeric != 72.3 {
		t.Errorf("area_total = %+v", area)
	}
	floor := findCharacteristic(t, rec.Characteristics, "floor")
	if floor.Value != "5" || floor.ValueNumeric == nil || *floor.ValueNumeric != 5 {
		t.Errorf("floor = %+v", floor)
	}
	repair := findCharacteristic(t, rec.Characteristics, "Ремонт")
	if repair.Value != "євроремонт" || repair.ValueNumeric != nil {
		t.Errorf("property = %+v", repair)
	}
	rooms := findCharacteristic(t, rec.Characteristics, "Кімнат")
	if rooms.ValueNumeric == nil || *rooms.ValueNumeric != 3 {
		t.Errorf("numeric property = %+v", rooms)
	}
}

func TestJSONFeedMapperDegradedRecord(t *testing.T) {
	mapper := &JSONFeedMapper{}
	records, err := mapper.ParseFeed([]byte(jsonFixture))
	if err != nil {
		t.Fatalf("ParseFeed returned error: %v", err)
	}

	rec := records[1]
	if rec.ExternalID != "2002" {
		t.Fatalf("ExternalID = %q", rec.ExternalID)
	}
	if rec.Price != nil {
		t.Errorf("missing price must map to nil, got %+v", rec.Price)
	}
	if rec.Location != nil || rec.Contact != nil {
		t.Error("missing location/user blocks must stay nil")
	}
	if !rec.IsOutOfCity {
		t.Error("record without street must be out of city")
	}
	if !rec.CreatedAt.IsZero() {
		t.Error("missing timestamp must stay zero")
	}
}

func TestJSONFeedMapperIsOutOfCity(t *testing.T) {
	tests := []struct {
		name     string
		location string
		want     bool
	}{
		{
			"kyiv with street",
			`{"city": "Київ", "street": "Хрещатик", "street_type": "вул."}`,
			false,
		},
		{
			// текущий формат сравнивает город по префиксу
			"kyiv prefix",
			`{"city": "Київська Русанівка", "street": "Ентузіастів", "street_type": "вул."}`,
			false,
		},
		{
			"kyiv without street",
			`{"city": "Київ", "street_type": "вул."}`,
			true,
		},
		{
			"other city",
			`{"city": "Бровари", "street": "Лісова", "street_type": "вул."}`,
			true,
		},
	}

	mapper := &JSONFeedMapper{}
	for _, tt := range tests {
		body := `{"estates": [{"id": 1, "location": ` + tt.location + `}]}`
		records, err := mapper.ParseFeed([]byte(body))
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if got := records[0].IsOutOfCity; got != tt.want {
			t.Errorf("%s: IsOutOfCity = %v; want %v", tt.name, got, tt.want)
		}
	}
}

func TestJSONFeedMapperEnvelope(t *testing.T) {
	mapper := &JSONFeedMapper{}

	if _, err := mapper.ParseFeed([]byte(`not json`)); err == nil {
		t.Error("non-json body must be a malformed envelope error")
	}
	if _, err := mapper.ParseFeed([]byte(`{"items": []}`)); err == nil {
		t.Error("envelope without 'estates' must be an error")
	}

	records, err := mapper.ParseFeed([]byte(`{"estates": []}`))
	if err != nil {
		t.Fatalf("empty estates is a valid zero-record run, got: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected 0 records, got %d", len(records))
	}
}

func TestMapperFor(t *testing.T) {
	m, err := MapperFor(domain.FeedFormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := m.(*JSONFeedMapper); !ok {
		t.Errorf("json format selected %T", m)
	}

	m, err = MapperFor(domain.FeedFormatXML)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := m.(*LegacyXMLMapper); !ok {
		t.Errorf("xml format selected %T", m)
	}

	if _, err := MapperFor("yaml"); err == nil {
		t.Error("unknown format must be an error")
	}
}
