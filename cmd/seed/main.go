package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glowbook/booking-service/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	providerIDs, err := seedProfiles(context.Background(), pool, "provider", 50)
	if err != nil {
		log.Fatalf("seed providers: %v", err)
	}
	customerIDs, err := seedProfiles(context.Background(), pool, "customer", 2000)
	if err != nil {
		log.Fatalf("seed customers: %v", err)
	}
	offeringIDs, err := seedOfferings(context.Background(), pool, providerIDs)
	if err != nil {
		log.Fatalf("seed offerings: %v", err)
	}
	if err := seedBookings(context.Background(), pool, customerIDs, offeringIDs, 5000); err != nil {
		log.Fatalf("seed bookings: %v", err)
	}

	log.Println("seed complete")
}

func seedProfiles(ctx context.Context, pool *pgxpool.Pool, role string, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d %s profiles", count, role)

	const batchSize = 500
	ids := make([]uuid.UUID, 0, count)

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return nil, err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			contact := gofakeit.Email()

			_, err := tx.Exec(ctx, `
				INSERT INTO profiles (id, name, role, contact, created_at, updated_at)
				VALUES ($1, $2, $3, $4, now(), now())
			`, id, name, role, contact)
			if err != nil {
				_ = tx.Rollback(ctx)
				return nil, err
			}
			ids = append(ids, id)
		}

		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
	}

	log.Printf("%s profiles seeded", role)
	return ids, nil
}

func seedOfferings(ctx context.Context, pool *pgxpool.Pool, providerIDs []uuid.UUID) ([]uuid.UUID, error) {
	titles := []string{
		"Classic Facial",
		"Deep Tissue Massage",
		"Gel Manicure",
		"Balayage Coloring",
		"Hot Stone Massage",
		"Brow Lamination",
		"Men's Haircut",
		"Lash Extensions",
		"Full Body Scrub",
		"Keratin Treatment",
	}
	durations := []int{30, 45, 60, 90, 120}

	log.Printf("seeding offerings for %d providers", len(providerIDs))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var ids []uuid.UUID
	for _, providerID := range providerIDs {
		// 2-4 offerings per provider
		n := gofakeit.Number(2, 4)
		for i := 0; i < n; i++ {
			id := uuid.New()
			title := titles[gofakeit.Number(0, len(titles)-1)]
			price := int64(gofakeit.Number(2000, 25000)) // cents
			duration := durations[gofakeit.Number(0, len(durations)-1)]

			_, err := tx.Exec(ctx, `
				INSERT INTO offerings (id, provider_id, title, price, duration_minutes, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, now(), now())
			`, id, providerID, title, price, duration)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("offerings seeded")
	return ids, nil
}

func seedBookings(ctx context.Context, pool *pgxpool.Pool, customerIDs, offeringIDs []uuid.UUID, count int) error {
	log.Printf("seeding %d bookings", count)

	statuses := []string{"pending", "confirmed", "completed", "cancelled"}

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			customerID := customerIDs[gofakeit.Number(0, len(customerIDs)-1)]
			offeringID := offeringIDs[gofakeit.Number(0, len(offeringIDs)-1)]
			status := statuses[gofakeit.Number(0, len(statuses)-1)]

			// Spread bookings over a two-week window around now.
			start := time.Now().Add(time.Duration(gofakeit.Number(-7*24, 7*24)) * time.Hour).Truncate(time.Hour)

			_, err := tx.Exec(ctx, `
				INSERT INTO bookings
					(id, customer_id, provider_id, offering_id, start_time, end_time, status, price, notes,
					 has_review, created_at, updated_at)
				SELECT $1, $2, o.provider_id, o.id, $4, $4 + (o.duration_minutes || ' minutes')::interval,
					$5, o.price, $6, false, now(), now()
				FROM offerings o
				WHERE o.id = $3
			`, id, customerID, offeringID, start, status, gofakeit.Sentence(6))
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("bookings seeded: %d/%d", end, count)
	}

	log.Println("bookings seeded")
	return nil
}
