package postgres

import (
	"context"
	"errors"
	"fmt"
	"log"

	"crm-sync/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresListingStorageAdapter реализует ListingStoragePort для PostgreSQL.
type PostgresListingStorageAdapter struct {
	pool *pgxpool.Pool
}

// NewPostgresListingStorageAdapter создает новый экземпляр адаптера.
func NewPostgresListingStorageAdapter(pool *pgxpool.Pool) (*PostgresListingStorageAdapter, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgxpool.Pool cannot be nil")
	}
	return &PostgresListingStorageAdapter{pool: pool}, nil
}

// UpsertListing сохраняет весь агрегат в одной транзакции. Дочерние
// строки обновляются каждая по своей стратегии: location/price/contact -
// upsert по listing_id, картинки - диффом по URL с сохранением порядка,
// метро и характеристики - полным пересозданием (у фида нет для них
// стабильной идентичности). Переводные колонки (*_en) не затрагиваются:
// ими владеет воркер перевода.
func (a *PostgresListingStorageAdapter) UpsertListing(ctx context.Context, rec domain.ListingRecord, priceUsd *float64) (int64, error) {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin upsert transaction (crm_id: %s): %w", rec.ExternalID, err)
	}
	// Откат без эффекта, если транзакция уже закоммичена.
	defer tx.Rollback(ctx)

	var listingID int64
	err = tx.QueryRow(ctx, `
        INSERT INTO listings (
            crm_id, status, title, description, deal, realty_type,
            is_new_building, is_out_of_city, article, category,
            newbuilding_name, feed_created_at, feed_updated_at, updated_at
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
        ON CONFLICT (crm_id) DO UPDATE SET
            status = EXCLUDED.status,
            title = EXCLUDED.title,
            description = EXCLUDED.description,
            deal = EXCLUDED.deal,
            realty_type = EXCLUDED.realty_type,
            is_new_building = EXCLUDED.is_new_building,
            is_out_of_city = EXCLUDED.is_out_of_city,
            article = EXCLUDED.article,
            category = EXCLUDED.category,
            newbuilding_name = EXCLUDED.newbuilding_name,
            feed_created_at = EXCLUDED.feed_created_at,
            feed_updated_at = EXCLUDED.feed_updated_at,
            updated_at = NOW()
        RETURNING id`,
		rec.ExternalID, rec.Status, rec.Title, rec.Description, rec.Deal, rec.Type,
		rec.IsNewBuilding, rec.IsOutOfCity, rec.Article, rec.Category,
		rec.NewBuildingName, rec.CreatedAt, rec.UpdatedAt,
	).Scan(&listingID)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert listing (crm_id: %s): %w", rec.ExternalID, err)
	}

	if err := a.upsertLocation(ctx, tx, listingID, rec.Location); err != nil {
		return 0, err
	}
	if err := a.upsertPrice(ctx, tx, listingID, rec.Price, priceUsd); err != nil {
		return 0, err
	}
	if err := a.upsertContact(ctx, tx, listingID, rec.Contact); err != nil {
		return 0, err
	}
	if err := a.syncImages(ctx, tx, listingID, rec.Images); err != nil {
		return 0, err
	}
	if err := a.replaceMetros(ctx, tx, listingID, rec); err != nil {
		return 0, err
	}
	if err := a.replaceCharacteristics(ctx, tx, listingID, rec.Characteristics); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit upsert transaction (crm_id: %s): %w", rec.ExternalID, err)
	}
	return listingID, nil
}

func (a *PostgresListingStorageAdapter) upsertLocation(ctx context.Context, tx pgx.Tx, listingID int64, loc *domain.Location) error {
	if loc == nil {
		// В фиде нет блока локации - существующую строку не трогаем.
		return nil
	}
	_, err := tx.Exec(ctx, `
        INSERT INTO locations (
            listing_id, country, region, city, borough, district,
            county, street, street_type, lat, lng
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        ON CONFLICT (listing_id) DO UPDATE SET
            country = EXCLUDED.country,
            region = EXCLUDED.region,
            city = EXCLUDED.city,
            borough = EXCLUDED.borough,
            district = EXCLUDED.district,
            county = EXCLUDED.county,
            street = EXCLUDED.street,
            street_type = EXCLUDED.street_type,
            lat = EXCLUDED.lat,
            lng = EXCLUDED.lng`,
		listingID, loc.Country, loc.Region, loc.City, loc.Borough, loc.District,
		loc.County, loc.Street, loc.StreetType, loc.Lat, loc.Lng,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert location (listing %d): %w", listingID, err)
	}
	return nil
}

// upsertPrice держит инвариант "не больше одной активной цены на
// запись": уникальный индекс по listing_id плюс upsert. Если в фиде
// цены больше нет, строка удаляется.
func (a *PostgresListingStorageAdapter) upsertPrice(ctx context.Context, tx pgx.Tx, listingID int64, price *domain.Price, priceUsd *float64) error {
	if price == nil {
		if _, err := tx.Exec(ctx, `DELETE FROM prices WHERE listing_id = $1`, listingID); err != nil {
			return fmt.Errorf("failed to delete stale price (listing %d): %w", listingID, err)
		}
		return nil
	}
	_, err := tx.Exec(ctx, `
        INSERT INTO prices (listing_id, value, currency, value_usd)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (listing_id) DO UPDATE SET
            value = EXCLUDED.value,
            currency = EXCLUDED.currency,
            value_usd = EXCLUDED.value_usd`,
		listingID, price.Value, price.Currency, priceUsd,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert price (listing %d): %w", listingID, err)
	}
	return nil
}

func (a *PostgresListingStorageAdapter) upsertContact(ctx context.Context, tx pgx.Tx, listingID int64, contact *domain.Contact) error {
	if contact == nil {
		return nil
	}
	_, err := tx.Exec(ctx, `
        INSERT INTO contacts (listing_id, name, phone, email)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (listing_id) DO UPDATE SET
            name = EXCLUDED.name,
            phone = EXCLUDED.phone,
            email = EXCLUDED.email`,
		listingID, contact.Name, contact.Phone, contact.Email,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert contact (listing %d): %w", listingID, err)
	}
	return nil
}

// syncImages примиряет картинки диффом: пропавшие из фида URL
// удаляются, новые дописываются в конец с продолжением нумерации.
// Порядок уже существующих картинок при этом не перетасовывается.
func (a *PostgresListingStorageAdapter) syncImages(ctx context.Context, tx pgx.Tx, listingID int64, feedURLs []string) error {
	rows, err := tx.Query(ctx,
		`SELECT url FROM images WHERE listing_id = $1 ORDER BY order_index`, listingID)
	if err != nil {
		return fmt.Errorf("failed to query existing images (listing %d): %w", listingID, err)
	}
	existing, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return fmt.Errorf("failed to scan existing images (listing %d): %w", listingID, err)
	}

	toDelete, toAdd := diffImages(existing, feedURLs)

	if len(toDelete) > 0 {
		_, err = tx.Exec(ctx,
			`DELETE FROM images WHERE listing_id = $1 AND url = ANY($2)`, listingID, toDelete)
		if err != nil {
			return fmt.Errorf("failed to delete stale images (listing %d): %w", listingID, err)
		}
	}

	if len(toAdd) > 0 {
		var maxOrder int
		err = tx.QueryRow(ctx,
			`SELECT COALESCE(MAX(order_index), -1) FROM images WHERE listing_id = $1`, listingID).Scan(&maxOrder)
		if err != nil {
			return fmt.Errorf("failed to get max image order (listing %d): %w", listingID, err)
		}
		for i, url := range toAdd {
			_, err = tx.Exec(ctx, `
                INSERT INTO images (listing_id, url, order_index, is_active)
                VALUES ($1, $2, $3, TRUE)`,
				listingID, url, maxOrder+1+i)
			if err != nil {
				return fmt.Errorf("failed to insert image (listing %d, url %s): %w", listingID, url, err)
			}
		}
	}
	return nil
}

// diffImages сравнивает существующие URL с URL из фида и возвращает,
// что удалить и что дописать. Новые URL сохраняют относительный
// порядок фида.
func diffImages(existing []string, feed []string) (toDelete []string, toAdd []string) {
	feedSet := make(map[string]struct{}, len(feed))
	for _, url := range feed {
		feedSet[url] = struct{}{}
	}
	existingSet := make(map[string]struct{}, len(existing))
	for _, url := range existing {
		existingSet[url] = struct{}{}
		if _, ok := feedSet[url]; !ok {
			toDelete = append(toDelete, url)
		}
	}
	for _, url := range feed {
		if _, ok := existingSet[url]; !ok {
			toAdd = append(toAdd, url)
		}
	}
	return toDelete, toAdd
}

func (a *PostgresListingStorageAdapter) replaceMetros(ctx context.Context, tx pgx.Tx, listingID int64, rec domain.ListingRecord) error {
	if _, err := tx.Exec(ctx, `DELETE FROM metros WHERE listing_id = $1`, listingID); err != nil {
		return fmt.Errorf("failed to delete metros (listing %d): %w", listingID, err)
	}
	if rec.Location == nil {
		return nil
	}
	for _, metro := range rec.Location.Metros {
		_, err := tx.Exec(ctx, `
            INSERT INTO metros (listing_id, name, distance)
            VALUES ($1, $2, $3)`,
			listingID, metro.Name, metro.Distance)
		if err != nil {
			return fmt.Errorf("failed to insert metro (listing %d, name %s): %w", listingID, metro.Name, err)
		}
	}
	return nil
}

func (a *PostgresListingStorageAdapter) replaceCharacteristics(ctx context.Context, tx pgx.Tx, listingID int64, chars []domain.Characteristic) error {
	if _, err := tx.Exec(ctx, `DELETE FROM characteristics WHERE listing_id = $1`, listingID); err != nil {
		return fmt.Errorf("failed to delete characteristics (listing %d): %w", listingID, err)
	}
	for _, char := range chars {
		_, err := tx.Exec(ctx, `
            INSERT INTO characteristics (listing_id, key, value, value_numeric)
            VALUES ($1, $2, $3, $4)`,
			listingID, char.Key, char.Value, char.ValueNumeric)
		if err != nil {
			return fmt.Errorf("failed to insert characteristic (listing %d, key %s): %w", listingID, char.Key, err)
		}
	}
	return nil
}

// UpdateSlug записывает slug отдельным апдейтом: slug зависит от
// внутреннего id, который известен только после вставки.
func (a *PostgresListingStorageAdapter) UpdateSlug(ctx context.Context, listingID int64, slug string) error {
	_, err := a.pool.Exec(ctx, `UPDATE listings SET slug = $1 WHERE id = $2`, slug, listingID)
	if err != nil {
		return fmt.Errorf("failed to update slug (listing %d): %w", listingID, err)
	}
	return nil
}

// DeleteMissing удаляет все записи, чьи crm_id не встретились в этом
// запуске. Дочерние строки уходят каскадом по внешним ключам.
// Вызывается только при полной синхронизации - фид авторитетен
// по составу записей.
func (a *PostgresListingStorageAdapter) DeleteMissing(ctx context.Context, seenExternalIDs []string) (int64, error) {
	tag, err := a.pool.Exec(ctx,
		`DELETE FROM listings WHERE crm_id <> ALL($1)`, seenExternalIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to delete missing listings: %w", err)
	}

	deleted := tag.RowsAffected()
	if deleted > 0 {
		log.Printf("PostgresListingStorage: Deleted %d listings missing from the feed\n", deleted)
	}
	return deleted, nil
}

// UpdateTranslations выполняет частичное обновление: пишутся только
// переводные колонки, сопоставление по crm_id. Запись могла быть
// удалена полной синхронизацией, пока перевод ждал в очереди, -
// тогда возвращается domain.ErrListingNotFound и вызывающий код
// просто выбрасывает этот перевод.
func (a *PostgresListingStorageAdapter) UpdateTranslations(ctx context.Context, tr domain.ListingTranslation) error {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin translation transaction (crm_id: %s): %w", tr.ExternalID, err)
	}
	defer tx.Rollback(ctx)

	var listingID int64
	err = tx.QueryRow(ctx, `
        UPDATE listings SET
            title_en = $2,
            description_en = $3,
            deal_en = $4,
            realty_type_en = $5,
            category_en = $6,
            newbuilding_name_en = $7
        WHERE crm_id = $1
        RETURNING id`,
		tr.ExternalID, tr.TitleEn, tr.DescriptionEn, tr.DealEn,
		tr.TypeEn, tr.CategoryEn, tr.NewBuildingNameEn,
	).Scan(&listingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrListingNotFound
		}
		return fmt.Errorf("failed to update listing translations (crm_id: %s): %w", tr.ExternalID, err)
	}

	if tr.Location != nil {
		loc := tr.Location
		_, err = tx.Exec(ctx, `
            UPDATE locations SET
                country_en = $2,
                region_en = $3,
                city_en = $4,
                county_en = $5,
                borough_en = $6,
                district_en = $7,
                street_en = $8,
                street_type_en = $9
            WHERE listing_id = $1`,
			listingID, loc.CountryEn, loc.RegionEn, loc.CityEn, loc.CountyEn,
			loc.BoroughEn, loc.DistrictEn, loc.StreetEn, loc.StreetTypeEn,
		)
		if err != nil {
			return fmt.Errorf("failed to update location translations (listing %d): %w", listingID, err)
		}
	}

	// У метро и характеристик нет суррогатных id - сопоставляем по
	// (listing_id, name) и (listing_id, key) с текущим состоянием БД.
	// Если синхронизация успела пересоздать строку с другим именем,
	// апдейт просто не найдет ее - это ожидаемо для best-effort перевода.
	for _, metro := range tr.Metros {
		_, err = tx.Exec(ctx,
			`UPDATE metros SET name_en = $3 WHERE listing_id = $1 AND name = $2`,
			listingID, metro.Name, metro.NameEn)
		if err != nil {
			return fmt.Errorf("failed to update metro translation (listing %d, name %s): %w", listingID, metro.Name, err)
		}
	}
	for _, char := range tr.Characteristics {
		_, err = tx.Exec(ctx, `
            UPDATE characteristics SET key_en = $3, value_en = $4
            WHERE listing_id = $1 AND key = $2`,
			listingID, char.Key, char.KeyEn, char.ValueEn)
		if err != nil {
			return fmt.Errorf("failed to update characteristic translation (listing %d, key %s): %w", listingID, char.Key, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit translation transaction (crm_id: %s): %w", tr.ExternalID, err)
	}
	return nil
}

// CREATE TABLE IF NOT EXISTS listings (
//     id BIGSERIAL PRIMARY KEY,
//     crm_id VARCHAR(64) NOT NULL UNIQUE,
//     status VARCHAR(64),
//     title TEXT,
//     title_en TEXT,
//     description TEXT,
//     description_en TEXT,
//     deal VARCHAR(64),
//     deal_en VARCHAR(64),
//     realty_type VARCHAR(64),
//     realty_type_en VARCHAR(64),
//     is_new_building BOOLEAN NOT NULL DEFAULT FALSE,
//     is_out_of_city BOOLEAN NOT NULL DEFAULT FALSE,
//     article VARCHAR(64),
//     category VARCHAR(128),
//     category_en VARCHAR(128),
//     newbuilding_name TEXT,
//     newbuilding_name_en TEXT,
//     slug TEXT,
//     feed_created_at TIMESTAMPTZ,
//     feed_updated_at TIMESTAMPTZ,
//     updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
// );
//
// CREATE TABLE IF NOT EXISTS locations (
//     id BIGSERIAL PRIMARY KEY,
//     listing_id BIGINT NOT NULL UNIQUE REFERENCES listings(id) ON DELETE CASCADE,
//     country TEXT, country_en TEXT,
//     region TEXT, region_en TEXT,
//     city TEXT, city_en TEXT,
//     borough TEXT, borough_en TEXT,
//     district TEXT, district_en TEXT,
//     county TEXT, county_en TEXT,
//     street TEXT, street_en TEXT,
//     street_type TEXT, street_type_en TEXT,
//     lat DOUBLE PRECISION,
//     lng DOUBLE PRECISION
// );
//
// CREATE TABLE IF NOT EXISTS prices (
//     id BIGSERIAL PRIMARY KEY,
//     listing_id BIGINT NOT NULL UNIQUE REFERENCES listings(id) ON DELETE CASCADE,
//     value NUMERIC(14, 2) NOT NULL,
//     currency VARCHAR(8) NOT NULL,
//     value_usd NUMERIC(14, 2)
// );
//
// CREATE TABLE IF NOT EXISTS contacts (
//     id BIGSERIAL PRIMARY KEY,
//     listing_id BIGINT NOT NULL UNIQUE REFERENCES listings(id) ON DELETE CASCADE,
//     name TEXT,
//     phone TEXT,
//     email TEXT
// );
//
// CREATE TABLE IF NOT EXISTS images (
//     id BIGSERIAL PRIMARY KEY,
//     listing_id BIGINT NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
//     url TEXT NOT NULL,
//     order_index INT NOT NULL,
//     is_active BOOLEAN NOT NULL DEFAULT TRUE,
//     UNIQUE (listing_id, url)
// );
//
// CREATE TABLE IF NOT EXISTS metros (
//     id BIGSERIAL PRIMARY KEY,
//     listing_id BIGINT NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
//     name TEXT NOT NULL,
//     name_en TEXT,
//     distance INT NOT NULL DEFAULT 0
// );
//
// CREATE TABLE IF NOT EXISTS characteristics (
//     id BIGSERIAL PRIMARY KEY,
//     listing_id BIGINT NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
//     key TEXT NOT NULL,
//     key_en TEXT,
//     value TEXT,
//     value_en TEXT,
//     value_numeric DOUBLE PRECISION
// );
