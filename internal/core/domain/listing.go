package domain

import "time"

// FeedFormat определяет формат фида CRM
type FeedFormat string

const (
	FeedFormatJSON FeedFormat = "json" // текущий фид: {"estates": [...]}
	FeedFormatXML  FeedFormat = "xml"  // легаси-фид: <response><item>...</item></response>
)

// SyncType определяет режим синхронизации
type SyncType string

const (
	SyncTypeDay SyncType = "day" // инкрементальная: только create/update
	SyncTypeAll SyncType = "all" // полная: фид авторитетен, отсутствующие записи удаляются
)

// ListingRecord – каноническое представление объекта недвижимости,
// не зависящее от формата фида. Маппер приводит оба формата к этой
// структуре; дальше она идет в хранилище и в очередь на перевод
// (поэтому у всех полей есть json-теги).
type ListingRecord struct {
	ExternalID      string    `json:"external_id"`
	Status          string    `json:"status"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Deal            string    `json:"deal"`
	Type            string    `json:"type"`
	IsNewBuilding   bool      `json:"is_new_building"`
	IsOutOfCity     bool      `json:"is_out_of_city"`
	Article         string    `json:"article"`
	Category        string    `json:"category"`
	NewBuildingName string    `json:"newbuilding_name"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	Location        *Location        `json:"location,omitempty"`
	Price           *Price           `json:"price,omitempty"`
	Contact         *Contact         `json:"contact,omitempty"`
	Images          []string         `json:"images,omitempty"`
	Characteristics []Characteristic `json:"characteristics,omitempty"`
}

// Location – адресные данные объекта, один-к-одному с ListingRecord.
type Location struct {
	Country    string   `json:"country"`
	Region     string   `json:"region"`
	City       string   `json:"city"`
	Borough    string   `json:"borough,omitempty"`
	District   string   `json:"district,omitempty"`
	County     string   `json:"county,omitempty"`
	Street     string   `json:"street,omitempty"`
	StreetType string   `json:"street_type,omitempty"`
	Lat        *float64 `json:"lat,omitempty"`
	Lng        *float64 `json:"lng,omitempty"`
	Metros     []Metro  `json:"metros,omitempty"`
}

// Price – цена в валюте фида. Нормализованное значение в USD
// вычисляется при синхронизации и хранится рядом в БД.
type Price struct {
	Value    float64 `json:"value"`
	Currency string  `json:"currency"`
}

// Contact – контактные данные продавца. Несколько телефонов
// склеиваются маппером в одну строку через запятую.
type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// Metro – станция метро рядом с объектом. Стабильного ID у метро
// в фиде нет, поэтому в БД они пересоздаются при каждой синхронизации.
type Metro struct {
	Name     string `json:"name"`
	Distance int    `json:"distance"`
}

// Characteristic – динамическая характеристика объекта (этаж, площадь,
// комнаты и произвольные label/value пары из фида). ValueNumeric
// заполняется, если значение парсится как число.
type Characteristic struct {
	Key          string   `json:"key"`
	Value        string   `json:"value"`
	ValueNumeric *float64 `json:"value_numeric,omitempty"`
}

// HasTranslatableText сообщает, есть ли в записи хоть что-то,
// что имеет смысл отправлять на перевод. Пустые записи воркер
// пропускает, чтобы не тратить вызовы внешнего API.
func (r *ListingRecord) HasTranslatableText() bool {
	if r.Title != "" || r.Description != "" || r.Deal != "" || r.Type != "" ||
		r.Category != "" || r.NewBuildingName != "" {
		return true
	}
	if loc := r.Location; loc != nil {
		if loc.Country != "" || loc.Region != "" || loc.City != "" ||
			loc.County != "" || loc.Borough != "" || loc.District != "" ||
			loc.Street != "" || loc.StreetType != "" {
			return true
		}
		if len(loc.Metros) > 0 {
			return true
		}
	}
	return len(r.Characteristics) > 0
}
