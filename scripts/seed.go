//go:build ignore

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/go-crm/internal/auth"
	"github.com/hugh/go-crm/internal/contacts"
	"github.com/hugh/go-crm/internal/database"
	"github.com/hugh/go-crm/internal/deals"
	"github.com/hugh/go-crm/internal/domain"
	"github.com/hugh/go-crm/internal/membership"
	"github.com/hugh/go-crm/internal/tasks"
	"github.com/hugh/go-crm/pkg/config"
	"github.com/hugh/go-crm/pkg/util"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type seedDeal struct {
	contact string
	title   string
	amount  string
	status  domain.DealStatus
	stage   domain.DealStage
}

var seedDeals = []seedDeal{
	{"Initech", "Annual support contract", "4800.00", domain.DealStatusInProgress, domain.DealStageProposal},
	{"Globex", "Platform migration", "25000.00", domain.DealStatusInProgress, domain.DealStageNegotiation},
	{"Umbrella", "Pilot project", "1500.00", domain.DealStatusWon, domain.DealStageClosed},
	{"Hooli", "Consulting hours", "900.00", domain.DealStatusLost, domain.DealStageClosed},
	{"Initech", "Training workshop", "3200.00", domain.DealStatusNew, domain.DealStageQualification},
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Server.Env)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	ctx := context.Background()
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiry(), cfg.JWT.RefreshExpiry())
	authService := auth.NewService(db, jwtService)

	email := envOr("ADMIN_EMAIL", "admin@example.com")
	password := envOr("ADMIN_PASSWORD", "admin123!")
	name := envOr("ADMIN_NAME", "Admin")

	resp, err := authService.Register(ctx, auth.RegisterInput{
		Email:    email,
		Password: password,
		Name:     name,
		OrgName:  "Demo Organization",
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			fmt.Printf("Admin user already exists: %s\n", email)
			return
		}
		log.Fatalf("failed to create admin user: %v", err)
	}

	orgID, ownerID := resp.Organization.ID, resp.User.ID
	members := membership.NewService(db)

	// A second account joins the demo organization as a plain member.
	sales, err := authService.Register(ctx, auth.RegisterInput{
		Email:    "sales@example.com",
		Password: password,
		Name:     "Sales Rep",
		OrgName:  "Sales Sandbox",
	})
	if err != nil {
		log.Fatalf("failed to create sales user: %v", err)
	}
	if _, err := members.AddMember(ctx, orgID, ownerID, sales.User.ID, domain.RoleMember); err != nil {
		log.Fatalf("failed to add sales member: %v", err)
	}

	contactSvc := contacts.NewService(db, members)
	dealSvc := deals.NewService(db, members, nil, logger)
	taskSvc := tasks.NewService(db, members)

	byName := make(map[string]uuid.UUID)
	for _, d := range seedDeals {
		if _, ok := byName[d.contact]; ok {
			continue
		}
		email := fmt.Sprintf("hello@%s.example", strings.ToLower(d.contact))
		c, err := contactSvc.Create(ctx, orgID, ownerID, contacts.CreateInput{Name: d.contact, Email: &email})
		if err != nil {
			log.Fatalf("failed to create contact %s: %v", d.contact, err)
		}
		byName[d.contact] = c.ID
	}

	due := domain.StartOfDay(time.Now().UTC()).Add(48 * time.Hour)
	for _, d := range seedDeals {
		amount := decimal.RequireFromString(d.amount)
		deal, err := dealSvc.Create(ctx, orgID, ownerID, deals.CreateInput{
			ContactID: byName[d.contact],
			Title:     d.title,
			Amount:    &amount,
		})
		if err != nil {
			log.Fatalf("failed to create deal %q: %v", d.title, err)
		}

		status, stage := d.status, d.stage
		if _, err := dealSvc.Update(ctx, orgID, ownerID, deal.ID, deals.UpdateInput{Status: &status, Stage: &stage}); err != nil {
			log.Fatalf("failed to advance deal %q: %v", d.title, err)
		}

		if !status.Closed() {
			if _, err := taskSvc.Create(ctx, orgID, ownerID, tasks.CreateInput{
				DealID:  deal.ID,
				Title:   "Follow up: " + d.title,
				DueDate: due,
			}); err != nil {
				log.Fatalf("failed to create task for %q: %v", d.title, err)
			}
		}
	}

	fmt.Printf("Seed data created successfully!\n")
	fmt.Printf("Email: %s\n", resp.User.Email)
	fmt.Printf("Organization: %s (%s)\n", resp.Organization.Name, orgID)
	fmt.Printf("Contacts: %d, deals: %d\n", len(byName), len(seedDeals))
	fmt.Printf("Access token: %s\n", resp.Tokens.AccessToken)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
