package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"nclexkeys/backend/internal/config"
	"nclexkeys/backend/internal/metrics"
	"nclexkeys/backend/internal/model"
	"nclexkeys/backend/internal/repository"
	"nclexkeys/backend/pkg/clock"
	"nclexkeys/backend/pkg/crypto"
)

const (
	codePrefix           = "NCLEX"
	defaultExpiryDays    = 30
	defaultMaxBatchSize  = 50
	maxGenerateAttempts  = 16
	defaultCodePageSize  = 20
	maximumCodePageSize  = 200
	expiredBackdateDelta = time.Second
)

// Price is what a registration code for a program sells for.
type Price struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

type Pricing map[model.Program]Price

// DefaultPricing is the program price list used when none is configured.
func DefaultPricing() Pricing {
	return Pricing{
		model.ProgramNigeria:   {Amount: decimal.NewFromInt(30000), Currency: "NGN"},
		model.ProgramAfrican:   {Amount: decimal.NewFromInt(35000), Currency: "NGN"},
		model.ProgramUSACanada: {Amount: decimal.NewFromInt(60), Currency: "USD"},
		model.ProgramEurope:    {Amount: decimal.NewFromInt(35), Currency: "GBP"},
	}
}

// NewPricing overlays configured prices on DefaultPricing. Keys may be program
// names or slugs ("usa-canada").
func NewPricing(cfg map[string]config.ProgramPrice) (Pricing, error) {
	pricing := DefaultPricing()
	for key, p := range cfg {
		program, ok := model.ParseProgram(key)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownProgram, key)
		}
		amount, err := decimal.NewFromString(p.Amount)
		if err != nil {
			return nil, fmt.Errorf("price for %s: %w", program, err)
		}
		pricing[program] = Price{Amount: amount, Currency: strings.ToUpper(p.Currency)}
	}
	return pricing, nil
}

type CreateCodeInput struct {
	Program       model.Program
	Amount        decimal.Decimal
	Currency      string
	CreatedBy     *uuid.UUID
	ExpiresInDays int
	Notes         string
}

type CreateBatchInput struct {
	Program       model.Program
	Count         int
	CreatedBy     *uuid.UUID
	ExpiresInDays int
	Notes         string
}

type CodeListQuery struct {
	Program  model.Program
	Status   model.CodeStatus
	Page     int
	PageSize int
}

type CodeList struct {
	Items    []model.RegistrationCode `json:"items"`
	Total    int64                    `json:"total"`
	Page     int                      `json:"page"`
	PageSize int                      `json:"page_size"`
}

type RegistrationCodeService interface {
	Create(ctx context.Context, in CreateCodeInput) (*model.RegistrationCode, error)
	CreateBatch(ctx context.Context, in CreateBatchInput) ([]model.RegistrationCode, error)
	// Validate is read-only. An empty program skips the program check.
	Validate(ctx context.Context, code string, program model.Program) (*model.RegistrationCode, error)
	// Consume marks the code used by userID. Concurrent callers race on a single
	// conditional update, so at most one of them succeeds.
	Consume(ctx context.Context, code string, userID uuid.UUID) (*model.RegistrationCode, error)
	Get(ctx context.Context, code string) (*model.RegistrationCode, error)
	List(ctx context.Context, q CodeListQuery) (*CodeList, error)
	// Expire back-dates expires_at of the unused codes among codes and returns how many changed.
	Expire(ctx context.Context, codes []string) (int64, error)
	Send(ctx context.Context, code string, email string) error
	Price(program model.Program) (Price, error)
}

type registrationCodeService struct {
	codeRepo     repository.RegistrationCodeRepository
	tx           repository.Transactor
	mailer       MailSender
	clock        clock.Clock
	logger       *zap.Logger
	pricing      Pricing
	expiryDays   int
	maxBatchSize int
	generate     func(model.Program) (string, error)
}

func NewRegistrationCodeService(
	codeRepo repository.RegistrationCodeRepository,
	tx repository.Transactor,
	mailer MailSender,
	clk clock.Clock,
	logger *zap.Logger,
	pricing Pricing,
	cfg config.RegistrationConfig,
) RegistrationCodeService {
	if pricing == nil {
		pricing = DefaultPricing()
	}
	expiryDays := cfg.DefaultExpiryDays
	if expiryDays <= 0 {
		expiryDays = defaultExpiryDays
	}
	maxBatch := cfg.MaxBatchSize
	if maxBatch <= 0 {
		maxBatch = defaultMaxBatchSize
	}
	return &registrationCodeService{
		codeRepo:     codeRepo,
		tx:           tx,
		mailer:       mailer,
		clock:        clk,
		logger:       logger,
		pricing:      pricing,
		expiryDays:   expiryDays,
		maxBatchSize: maxBatch,
		generate:     generateCode,
	}
}

// generateCode produces NCLEX-<first three letters of the program>-<8 upper hex>.
func generateCode(program model.Program) (string, error) {
	suffix, err := crypto.GenerateRandomHex(4)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%s", codePrefix, program.Prefix(), suffix), nil
}

func (s *registrationCodeService) Price(program model.Program) (Price, error) {
	price, ok := s.pricing[program]
	if !ok {
		return Price{}, fmt.Errorf("%w: %q", ErrUnknownProgram, program)
	}
	return price, nil
}

func (s *registrationCodeService) uniqueCode(ctx context.Context, program model.Program) (string, error) {
	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		code, err := s.generate(program)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		exists, err := s.codeRepo.ExistsByCode(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check code: %w", err)
		}
		if !exists {
			return code, nil
		}
		s.logger.Debug("registration code collision, retrying", zap.String("code", code))
	}
	return "", fmt.Errorf("no unused code after %d attempts", maxGenerateAttempts)
}

func (s *registrationCodeService) Create(ctx context.Context, in CreateCodeInput) (*model.RegistrationCode, error) {
	if _, ok := s.pricing[in.Program]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProgram, in.Program)
	}
	if in.Amount.IsNegative() || strings.TrimSpace(in.Currency) == "" {
		return nil, fmt.Errorf("%w: amount and currency are required", ErrInvalidInput)
	}
	days := in.ExpiresInDays
	if days <= 0 {
		days = s.expiryDays
	}

	code, err := s.uniqueCode(ctx, in.Program)
	if err != nil {
		metrics.IncCodeOperation("create", "error")
		return nil, err
	}

	now := s.clock.Now()
	rc := &model.RegistrationCode{
		Code:      code,
		Program:   in.Program,
		Amount:    in.Amount,
		Currency:  strings.ToUpper(in.Currency),
		ExpiresAt: now.AddDate(0, 0, days),
		CreatedBy: in.CreatedBy,
		Notes:     in.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.codeRepo.Create(ctx, rc); err != nil {
		metrics.IncCodeOperation("create", "error")
		return nil, fmt.Errorf("create registration code: %w", err)
	}
	metrics.IncCodeOperation("create", "ok")
	return rc, nil
}

func (s *registrationCodeService) CreateBatch(ctx context.Context, in CreateBatchInput) ([]model.RegistrationCode, error) {
	if in.Count <= 0 {
		return nil, fmt.Errorf("%w: count must be positive", ErrInvalidInput)
	}
	if in.Count > s.maxBatchSize {
		return nil, fmt.Errorf("%w: cannot generate more than %d codes at once", ErrBatchTooLarge, s.maxBatchSize)
	}
	price, err := s.Price(in.Program)
	if err != nil {
		return nil, err
	}

	codes := make([]model.RegistrationCode, 0, in.Count)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		for i := 0; i < in.Count; i++ {
			rc, err := s.Create(ctx, CreateCodeInput{
				Program:       in.Program,
				Amount:        price.Amount,
				Currency:      price.Currency,
				CreatedBy:     in.CreatedBy,
				ExpiresInDays: in.ExpiresInDays,
				Notes:         in.Notes,
			})
			if err != nil {
				return err
			}
			codes = append(codes, *rc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("registration codes generated",
		zap.String("program", string(in.Program)),
		zap.Int("count", len(codes)),
	)
	return codes, nil
}

func (s *registrationCodeService) lookup(ctx context.Context, code string) (*model.RegistrationCode, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrCodeNotFound
	}
	rc, err := s.codeRepo.GetByCode(ctx, code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCodeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get registration code: %w", err)
	}
	return rc, nil
}

// classify maps a code that cannot be consumed to its error.
func classify(rc *model.RegistrationCode, now time.Time) error {
	switch {
	case rc.IsUsed:
		return ErrCodeUsed
	case rc.IsExpired(now):
		return ErrCodeExpired
	}
	return nil
}

func codeResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrCodeNotFound):
		return "not_found"
	case errors.Is(err, ErrCodeInvalid):
		return "invalid"
	default:
		return "error"
	}
}

func (s *registrationCodeService) Validate(ctx context.Context, code string, program model.Program) (rc *model.RegistrationCode, err error) {
	defer func() { metrics.IncCodeOperation("validate", codeResult(err)) }()

	rc, err = s.lookup(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := classify(rc, s.clock.Now()); err != nil {
		return nil, err
	}
	if program != "" && rc.Program != program {
		return nil, ErrProgramMismatch
	}
	return rc, nil
}

func (s *registrationCodeService) Consume(ctx context.Context, code string, userID uuid.UUID) (rc *model.RegistrationCode, err error) {
	defer func() { metrics.IncCodeOperation("consume", codeResult(err)) }()

	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrCodeNotFound
	}
	now := s.clock.Now()
	ok, err := s.codeRepo.MarkUsed(ctx, code, userID, now)
	if err != nil {
		return nil, fmt.Errorf("mark registration code used: %w", err)
	}

	rc, err = s.lookup(ctx, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		if err := classify(rc, now); err != nil {
			return nil, err
		}
		// Unused and unexpired but the update missed: another consumer won.
		return nil, ErrCodeUsed
	}

	s.logger.Info("registration code consumed",
		zap.String("code", rc.Code),
		zap.String("user_id", userID.String()),
	)
	return rc, nil
}

func (s *registrationCodeService) Get(ctx context.Context, code string) (*model.RegistrationCode, error) {
	return s.lookup(ctx, code)
}

func (s *registrationCodeService) List(ctx context.Context, q CodeListQuery) (*CodeList, error) {
	page := q.Page
	if page <= 0 {
		page = 1
	}
	size := q.PageSize
	if size <= 0 {
		size = defaultCodePageSize
	}
	if size > maximumCodePageSize {
		size = maximumCodePageSize
	}

	items, total, err := s.codeRepo.List(ctx, repository.CodeFilter{
		Program: q.Program,
		Status:  q.Status,
		Now:     s.clock.Now(),
		Offset:  (page - 1) * size,
		Limit:   size,
	})
	if err != nil {
		return nil, fmt.Errorf("list registration codes: %w", err)
	}
	return &CodeList{Items: items, Total: total, Page: page, PageSize: size}, nil
}

func (s *registrationCodeService) Expire(ctx context.Context, codes []string) (int64, error) {
	cleaned := make([]string, 0, len(codes))
	for _, c := range codes {
		if c = strings.TrimSpace(c); c != "" {
			cleaned = append(cleaned, c)
		}
	}
	if len(cleaned) == 0 {
		return 0, fmt.Errorf("%w: no codes given", ErrInvalidInput)
	}

	n, err := s.codeRepo.ExpireUnused(ctx, cleaned, s.clock.Now().Add(-expiredBackdateDelta))
	if err != nil {
		metrics.IncCodeOperation("expire", "error")
		return 0, fmt.Errorf("expire registration codes: %w", err)
	}
	metrics.IncCodeOperation("expire", "ok")
	s.logger.Info("registration codes expired", zap.Int("requested", len(cleaned)), zap.Int64("expired", n))
	return n, nil
}

func (s *registrationCodeService) Send(ctx context.Context, code string, email string) error {
	rc, err := s.lookup(ctx, code)
	if err != nil {
		return err
	}
	if err := classify(rc, s.clock.Now()); err != nil {
		return err
	}

	subject := "Your NCLEX Keys registration code"
	body := fmt.Sprintf(
		"Your registration code for the %s program is:\n\n    %s\n\nIt expires on %s. Use it when creating your account.\n",
		rc.Program, rc.Code, rc.ExpiresAt.Format("2 January 2006"),
	)
	if err := s.mailer.Send(ctx, email, subject, body); err != nil {
		return fmt.Errorf("send registration code: %w", err)
	}
	s.logger.Info("registration code sent", zap.String("code", rc.Code), zap.String("email", email))
	return nil
}

var _ RegistrationCodeService = (*registrationCodeService)(nil)
