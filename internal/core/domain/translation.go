package domain

import "errors"

// ErrListingNotFound возвращается хранилищем, когда запись для
// частичного обновления переводов уже удалена (например, полной
// синхронизацией между постановкой в очередь и дренажом).
var ErrListingNotFound = errors.New("listing not found")

// ListingTranslation – набор переведенных полей для частичного
// обновления. Воркер перевода пишет ТОЛЬКО эти колонки; колонки,
// которыми владеет синхронизация, не затрагиваются никогда.
type ListingTranslation struct {
	ExternalID        string `json:"external_id"`
	TitleEn           string `json:"title_en"`
	DescriptionEn     string `json:"description_en"`
	DealEn            string `json:"deal_en"`
	TypeEn            string `json:"type_en"`
	CategoryEn        string `json:"category_en"`
	NewBuildingNameEn string `json:"newbuilding_name_en"`

	Location        *LocationTranslation        `json:"location,omitempty"`
	Metros          []MetroTranslation          `json:"metros,omitempty"`
	Characteristics []CharacteristicTranslation `json:"characteristics,omitempty"`
}

// LocationTranslation – переводы текстовых полей локации.
type LocationTranslation struct {
	CountryEn    string `json:"country_en"`
	RegionEn     string `json:"region_en"`
	CityEn       string `json:"city_en"`
	CountyEn     string `json:"county_en"`
	BoroughEn    string `json:"borough_en"`
	DistrictEn   string `json:"district_en"`
	StreetEn     string `json:"street_en"`
	StreetTypeEn string `json:"street_type_en"`
}

// MetroTranslation сопоставляется с текущей строкой метро по
// (listing, name) – суррогатного ID у метро нет.
type MetroTranslation struct {
	Name   string `json:"name"`
	NameEn string `json:"name_en"`
}

// CharacteristicTranslation сопоставляется по составному ключу
// (listing, key). Характеристики пересоздаются при каждой
// синхронизации, поэтому сопоставление выполняется по текущему
// состоянию БД на момент дренажа.
type CharacteristicTranslation struct {
	Key     string `json:"key"`
	KeyEn   string `json:"key_en"`
	ValueEn string `json:"value_en"`
}
