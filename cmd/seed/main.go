package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"strings"
	"time"
	"unicode"

	"github.com/brianvoe/gofakeit/v6"

	"growly/internal/config"
	"growly/internal/database"
	"growly/internal/domain/lead"
)

func main() {
	count := flag.Int("n", 50, "number of leads to create")
	days := flag.Int("days", 14, "spread creation times over this many past days")
	seed := flag.Int64("seed", 0, "faker seed (0 = random)")
	reset := flag.Bool("reset", false, "delete all leads first")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config:", err)
	}
	if config.IsProdLike(cfg.AppEnv) {
		log.Fatal("refusing to seed a production database")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}
	if err := lead.Migrate(db); err != nil {
		log.Fatal("migrate failed:", err)
	}

	if *reset {
		log.Println("Cleaning old leads...")
		if err := db.Exec("DELETE FROM leads").Error; err != nil {
			log.Fatal("cleanup failed:", err)
		}
	}

	faker := gofakeit.New(*seed)
	now := time.Now().UTC()
	var createdAt time.Time

	// The clock is moved before every call so leads spread over the window.
	svc := lead.NewService(lead.NewRepository(db), lead.WithClock(func() time.Time { return createdAt }))
	ctx := context.Background()

	created, skipped := 0, 0
	for i := 0; i < *count; i++ {
		createdAt = now.Add(-time.Duration(faker.Number(0, *days*24*60)) * time.Minute)

		req := lead.SubmitLeadRequest{
			Name:         lettersOnly(faker.Name()),
			Email:        strings.ToLower(faker.Email()),
			Phone:        faker.Numerify("+1 (555) ###-####"),
			BusinessType: string(lead.BusinessTypes[faker.Number(0, len(lead.BusinessTypes)-1)]),
			Message:      faker.Sentence(faker.Number(5, 20)),
		}
		meta := lead.RequestMeta{IP: faker.IPv4Address(), UserAgent: faker.UserAgent()}

		summary, err := svc.Submit(ctx, req, meta)
		if err != nil {
			var verr *lead.ValidationError
			if errors.Is(err, lead.ErrDuplicateEmail) || errors.As(err, &verr) {
				skipped++
				continue
			}
			log.Fatal("create lead failed:", err)
		}
		created++

		status := lead.Statuses[faker.Number(0, len(lead.Statuses)-1)]
		if status == lead.StatusNew {
			continue
		}
		createdAt = createdAt.Add(time.Duration(faker.Number(1, 48)) * time.Hour)
		notes := faker.Sentence(8)
		if _, err := svc.UpdateStatus(ctx, summary.ID, string(status), &notes); err != nil {
			log.Fatal("update status failed:", err)
		}
	}

	log.Printf("Seed completed: %d leads created, %d skipped", created, skipped)
}

// lettersOnly drops characters the name rule rejects, e.g. apostrophes.
func lettersOnly(s string) string {
	return strings.Join(strings.Fields(strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || r == ' ') {
			return r
		}
		return -1
	}, s)), " ")
}
