package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"nclexkeys/backend/internal/config"
	"nclexkeys/backend/internal/model"
	"nclexkeys/backend/internal/repository"
	"nclexkeys/backend/internal/service"
	"nclexkeys/backend/pkg/clock"
)

func main() {
	app := &cli.App{
		Name:  "nclexkeys-admin",
		Usage: "Operational commands for the NCLEX Keys backend",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: "config.yaml", Usage: "Path to config file"},
		},
		Commands: []*cli.Command{
			{
				Name:   "provision",
				Usage:  "Create the default admin/instructor accounts and payment gateways when missing",
				Action: provision,
			},
			{
				Name:  "codes",
				Usage: "Generate a batch of registration codes",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "program", Aliases: []string{"p"}, Required: true, Usage: "NIGERIA, AFRICAN, USA/CANADA or EUROPE"},
					&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Value: 5, Usage: "Number of codes"},
					&cli.IntFlag{Name: "expires-in-days", Value: 0, Usage: "Validity in days (config default when 0)"},
					&cli.StringFlag{Name: "creator", Usage: "Email of the staff account recorded as creator"},
					&cli.StringFlag{Name: "notes", Usage: "Free-text notes stored on each code"},
				},
				Action: generateCodes,
			},
			{
				Name:   "ping",
				Usage:  "Check database and redis connectivity",
				Action: ping,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

type env struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
}

func setup(c *cli.Context) (*env, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	db, err := config.NewPostgresDB(cfg.Database.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return &env{cfg: cfg, logger: logger, db: db}, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func provision(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	if err := model.AutoMigrate(e.db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	svc := service.NewProvisioningService(
		repository.NewPGUserRepository(e.db),
		repository.NewPGPaymentGatewayRepository(e.db),
		e.logger,
		e.cfg.Provisioning,
		e.cfg.Payments,
	)
	report, err := svc.Provision(c.Context)
	if err != nil {
		return err
	}
	return printJSON(report)
}

func generateCodes(c *cli.Context) error {
	program, ok := model.ParseProgram(c.String("program"))
	if !ok {
		return fmt.Errorf("unknown program %q", c.String("program"))
	}

	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	var creator *uuid.UUID
	if email := c.String("creator"); email != "" {
		user, err := repository.NewPGUserRepository(e.db).GetByEmail(c.Context, email)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("creator %s not found", email)
		}
		if err != nil {
			return err
		}
		if !user.IsStaff() {
			return fmt.Errorf("creator %s is not a staff account", email)
		}
		creator = &user.ID
	}

	pricing, err := service.NewPricing(e.cfg.Registration.Pricing)
	if err != nil {
		return err
	}
	mailer, err := service.NewMailSender(e.cfg.SMTP, e.logger)
	if err != nil {
		return err
	}
	svc := service.NewRegistrationCodeService(
		repository.NewPGRegistrationCodeRepository(e.db),
		repository.NewTransactor(e.db),
		mailer,
		clock.New(),
		e.logger,
		pricing,
		e.cfg.Registration,
	)

	codes, err := svc.CreateBatch(c.Context, service.CreateBatchInput{
		Program:       program,
		Count:         c.Int("count"),
		CreatedBy:     creator,
		ExpiresInDays: c.Int("expires-in-days"),
		Notes:         c.String("notes"),
	})
	if err != nil {
		return err
	}
	for _, rc := range codes {
		fmt.Printf("%s\t%s\t%s %s\texpires %s\n",
			rc.Code, rc.Program, rc.Amount.StringFixed(2), rc.Currency, rc.ExpiresAt.Format(time.DateOnly))
	}
	return nil
}

func ping(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	ctx, cancel := context.WithTimeout(c.Context, 5*time.Second)
	defer cancel()

	sqlDB, err := e.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	fmt.Println("postgres: ok")

	if e.cfg.State.Backend == "redis" {
		client, err := config.NewRedisClient(e.cfg.Database.Redis)
		if err != nil {
			return err
		}
		defer client.Close()
		fmt.Println("redis: ok")
	}
	return nil
}
