package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
)

const (
	contactColumns  = `id, user_id, company_id, first_name, last_name, email, phone, position, notes, created_at, updated_at`
	companyColumns  = `id, user_id, name, abn, website, phone, address, created_at, updated_at`
	costItemColumns = `id, user_id, category, description, unit, rate_cents, is_active, created_at, updated_at`
)

// PostgresContactRepository implements domain.ContactRepository
type PostgresContactRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPostgresContactRepository(db *sql.DB, logger *slog.Logger) *PostgresContactRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresContactRepository{db: db, logger: logger}
}

func scanContact(s scanner) (*domain.Contact, error) {
	c := &domain.Contact{}
	err := s.Scan(&c.ID, &c.UserID, &c.CompanyID, &c.FirstName, &c.LastName, &c.Email, &c.Phone,
		&c.Position, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *PostgresContactRepository) Create(ctx context.Context, c *domain.Contact) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO contacts (id, user_id, company_id, first_name, last_name, email, phone, position, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`, c.ID, c.UserID, c.CompanyID, c.FirstName, c.LastName, c.Email, c.Phone, c.Position, c.Notes,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return writeErr(err, "contact")
	}
	return nil
}

func (r *PostgresContactRepository) Get(ctx context.Context, ownerID, id string) (*domain.Contact, error) {
	c, err := scanContact(r.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = $1 AND user_id = $2`, id, ownerID))
	if err != nil {
		return nil, readErr(err, "contact")
	}
	return c, nil
}

func (r *PostgresContactRepository) List(ctx context.Context, ownerID string, opts domain.ListOptions) ([]*domain.Contact, error) {
	opts = opts.Normalize()
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+contactColumns+` FROM contacts
		WHERE user_id = $1
		ORDER BY last_name, first_name
		LIMIT $2 OFFSET $3
	`, ownerID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	out := []*domain.Contact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresContactRepository) Update(ctx context.Context, c *domain.Contact) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE contacts
		SET company_id = $1, first_name = $2, last_name = $3, email = $4, phone = $5, position = $6,
		    notes = $7, updated_at = now()
		WHERE id = $8 AND user_id = $9
		RETURNING created_at, updated_at
	`, c.CompanyID, c.FirstName, c.LastName, c.Email, c.Phone, c.Position, c.Notes, c.ID, c.UserID,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return writeErr(err, "contact")
	}
	return nil
}

func (r *PostgresContactRepository) Delete(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return writeErr(err, "contact")
	}
	return expectOne(res, "contact")
}

// PostgresCompanyRepository implements domain.CompanyRepository
type PostgresCompanyRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPostgresCompanyRepository(db *sql.DB, logger *slog.Logger) *PostgresCompanyRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresCompanyRepository{db: db, logger: logger}
}

func scanCompany(s scanner) (*domain.Company, error) {
	c := &domain.Company{}
	err := s.Scan(&c.ID, &c.UserID, &c.Name, &c.ABN, &c.Website, &c.Phone, &c.Address, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *PostgresCompanyRepository) Create(ctx context.Context, c *domain.Company) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO companies (id, user_id, name, abn, website, phone, address)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, c.ID, c.UserID, c.Name, c.ABN, c.Website, c.Phone, c.Address,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return writeErr(err, "company")
	}
	return nil
}

func (r *PostgresCompanyRepository) Get(ctx context.Context, ownerID, id string) (*domain.Company, error) {
	c, err := scanCompany(r.db.QueryRowContext(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE id = $1 AND user_id = $2`, id, ownerID))
	if err != nil {
		return nil, readErr(err, "company")
	}
	return c, nil
}

func (r *PostgresCompanyRepository) List(ctx context.Context, ownerID string, opts domain.ListOptions) ([]*domain.Company, error) {
	opts = opts.Normalize()
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+companyColumns+` FROM companies
		WHERE user_id = $1
		ORDER BY name
		LIMIT $2 OFFSET $3
	`, ownerID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	out := []*domain.Company{}
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresCompanyRepository) Update(ctx context.Context, c *domain.Company) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE companies
		SET name = $1, abn = $2, website = $3, phone = $4, address = $5, updated_at = now()
		WHERE id = $6 AND user_id = $7
		RETURNING created_at, updated_at
	`, c.Name, c.ABN, c.Website, c.Phone, c.Address, c.ID, c.UserID,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return writeErr(err, "company")
	}
	return nil
}

func (r *PostgresCompanyRepository) Delete(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM companies WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return writeErr(err, "company")
	}
	return expectOne(res, "company")
}

// PostgresCostLibraryRepository implements domain.CostLibraryRepository
type PostgresCostLibraryRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPostgresCostLibraryRepository(db *sql.DB, logger *slog.Logger) *PostgresCostLibraryRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresCostLibraryRepository{db: db, logger: logger}
}

func scanCostItem(s scanner) (*domain.CostLibraryItem, error) {
	c := &domain.CostLibraryItem{}
	err := s.Scan(&c.ID, &c.UserID, &c.Category, &c.Description, &c.Unit, &c.RateCents, &c.IsActive,
		&c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *PostgresCostLibraryRepository) Create(ctx context.Context, c *domain.CostLibraryItem) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO cost_library_items (id, user_id, category, description, unit, rate_cents, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, c.ID, c.UserID, c.Category, c.Description, c.Unit, c.RateCents, c.IsActive,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return writeErr(err, "cost item")
	}
	return nil
}

func (r *PostgresCostLibraryRepository) Get(ctx context.Context, ownerID, id string) (*domain.CostLibraryItem, error) {
	c, err := scanCostItem(r.db.QueryRowContext(ctx,
		`SELECT `+costItemColumns+` FROM cost_library_items WHERE id = $1 AND user_id = $2`, id, ownerID))
	if err != nil {
		return nil, readErr(err, "cost item")
	}
	return c, nil
}

func (r *PostgresCostLibraryRepository) List(ctx context.Context, ownerID string, opts domain.ListOptions) ([]*domain.CostLibraryItem, error) {
	opts = opts.Normalize()
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+costItemColumns+` FROM cost_library_items
		WHERE user_id = $1
		ORDER BY category, description
		LIMIT $2 OFFSET $3
	`, ownerID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list cost items: %w", err)
	}
	defer rows.Close()

	out := []*domain.CostLibraryItem{}
	for rows.Next() {
		c, err := scanCostItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cost item: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresCostLibraryRepository) Update(ctx context.Context, c *domain.CostLibraryItem) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE cost_library_items
		SET category = $1, description = $2, unit = $3, rate_cents = $4, is_active = $5, updated_at = now()
		WHERE id = $6 AND user_id = $7
		RETURNING created_at, updated_at
	`, c.Category, c.Description, c.Unit, c.RateCents, c.IsActive, c.ID, c.UserID,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return writeErr(err, "cost item")
	}
	return nil
}

func (r *PostgresCostLibraryRepository) Delete(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cost_library_items WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return writeErr(err, "cost item")
	}
	return expectOne(res, "cost item")
}
