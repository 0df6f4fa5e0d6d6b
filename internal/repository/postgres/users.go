package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/SwagatoSarowar/Natours/internal/core/domain"
	"github.com/SwagatoSarowar/Natours/internal/core/port"
	"github.com/SwagatoSarowar/Natours/internal/repository"
)

const (
	usersTable       = "users"
	emailUniqueKey   = "users_email_key"
	defaultListLimit = 100
	maxListLimit     = 500
)

var userColumns = []string{
	"id",
	"name",
	"email",
	"photo",
	"role",
	"password_hash",
	"password_changed_at",
	"reset_token_hash",
	"reset_token_expiry",
	"active",
	"created_at",
}

// UserRepository implements port.CredentialStore using PostgreSQL.
type UserRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository wires a PostgreSQL-backed credential store.
func NewUserRepository(exec pgExecutor) *UserRepository {
	return &UserRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *UserRepository) WithTx(tx pgx.Tx) *UserRepository {
	if tx == nil {
		return r
	}
	return &UserRepository{exec: tx, builder: r.builder}
}

// Create inserts a new identity and returns the stored row.
func (r *UserRepository) Create(ctx context.Context, identity domain.NewIdentity) (*domain.Identity, error) {
	role := identity.Role
	if !role.Valid() {
		role = domain.DefaultRole
	}

	stmt, args, err := r.builder.Insert(usersTable).
		Columns("id", "name", "email", "photo", "role", "password_hash", "active", "created_at").
		Values(
			identity.ID,
			identity.Name,
			domain.NormalizeEmail(identity.Email),
			identity.Photo,
			string(role),
			identity.PasswordHash,
			true,
			identity.CreatedAt,
		).
		Suffix(returningClause()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert user sql: %w", err)
	}

	created, err := scanIdentity(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if isUniqueViolation(err, emailUniqueKey) {
			return nil, fmt.Errorf("insert user: %w", repository.ErrConflict)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return created, nil
}

// FindByID retrieves an active identity by id.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.Identity, error) {
	return r.findOne(ctx, squirrel.Eq{"id": id})
}

// FindByEmail retrieves an active identity by normalized email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	return r.findOne(ctx, squirrel.Eq{"email": domain.NormalizeEmail(email)})
}

// FindByResetHash retrieves the identity holding an unexpired reset token hash.
func (r *UserRepository) FindByResetHash(ctx context.Context, hash string, now time.Time) (*domain.Identity, error) {
	return r.findOne(ctx, squirrel.And{
		squirrel.Eq{"reset_token_hash": hash},
		squirrel.Gt{"reset_token_expiry": now},
	})
}

func (r *UserRepository) findOne(ctx context.Context, pred squirrel.Sqlizer) (*domain.Identity, error) {
	stmt, args, err := r.builder.
		Select(userColumns...).
		From(usersTable).
		Where(pred).
		Where(squirrel.Eq{"active": true}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	identity, err := scanIdentity(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	return identity, nil
}

// UpdateFields applies patch to an active identity and returns the updated row.
func (r *UserRepository) UpdateFields(ctx context.Context, id string, patch domain.IdentityPatch) (*domain.Identity, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return r.FindByID(ctx, id)
	}

	query := applyPatch(r.builder.Update(usersTable), patch).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"active": true})
	if patch.IfPasswordHash != nil {
		query = query.Where(squirrel.Eq{"password_hash": *patch.IfPasswordHash})
	}
	query = query.Suffix(returningClause())

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update user sql: %w", err)
	}

	updated, err := scanIdentity(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, repository.ErrNotFound
		case isUniqueViolation(err, emailUniqueKey):
			return nil, fmt.Errorf("update user: %w", repository.ErrConflict)
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	return updated, nil
}

// ConsumeResetToken sets the new password and clears the reset pair in one
// statement. It returns ErrNotFound when the token was already used, replaced
// or expired.
func (r *UserRepository) ConsumeResetToken(ctx context.Context, hash string, now time.Time, passwordHash string) (*domain.Identity, error) {
	stmt, args, err := r.builder.Update(usersTable).
		Set("password_hash", passwordHash).
		Set("password_changed_at", now).
		Set("reset_token_hash", nil).
		Set("reset_token_expiry", nil).
		Where(squirrel.Eq{"reset_token_hash": hash}).
		Where(squirrel.Gt{"reset_token_expiry": now}).
		Where(squirrel.Eq{"active": true}).
		Suffix(returningClause()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build consume reset token sql: %w", err)
	}

	identity, err := scanIdentity(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("consume reset token: %w", err)
	}
	return identity, nil
}

// List returns active identities ordered by creation time.
func (r *UserRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Identity, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	stmt, args, err := r.builder.
		Select(userColumns...).
		From(usersTable).
		Where(squirrel.Eq{"active": true}).
		OrderBy("created_at ASC", "id ASC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list users sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	identities := make([]domain.Identity, 0, limit)
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		identities = append(identities, *identity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return identities, nil
}

// ClearExpiredResetTokens nulls every reset pair whose expiry is not after now.
func (r *UserRepository) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	stmt, args, err := r.builder.Update(usersTable).
		Set("reset_token_hash", nil).
		Set("reset_token_expiry", nil).
		Where(squirrel.NotEq{"reset_token_hash": nil}).
		Where(squirrel.LtOrEq{"reset_token_expiry": now}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build clear reset tokens sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("clear expired reset tokens: %w", err)
	}
	return ct.RowsAffected(), nil
}

func applyPatch(q squirrel.UpdateBuilder, patch domain.IdentityPatch) squirrel.UpdateBuilder {
	if patch.Name != nil {
		q = q.Set("name", *patch.Name)
	}
	if patch.Email != nil {
		q = q.Set("email", domain.NormalizeEmail(*patch.Email))
	}
	if patch.Photo != nil {
		q = q.Set("photo", *patch.Photo)
	}
	if patch.PasswordHash != nil {
		q = q.Set("password_hash", *patch.PasswordHash)
	}
	if patch.PasswordChangedAt != nil {
		q = q.Set("password_changed_at", *patch.PasswordChangedAt)
	}
	switch {
	case patch.ClearResetToken:
		q = q.Set("reset_token_hash", nil).Set("reset_token_expiry", nil)
	case patch.ResetTokenHash != nil:
		q = q.Set("reset_token_hash", *patch.ResetTokenHash).Set("reset_token_expiry", *patch.ResetTokenExpiry)
	}
	if patch.Active != nil {
		q = q.Set("active", *patch.Active)
	}
	return q
}

func returningClause() string {
	return "RETURNING id, name, email, photo, role, password_hash, password_changed_at, reset_token_hash, reset_token_expiry, active, created_at"
}

func scanIdentity(row pgx.Row) (*domain.Identity, error) {
	var (
		identity domain.Identity
		role     string
	)

	if err := row.Scan(
		&identity.ID,
		&identity.Name,
		&identity.Email,
		&identity.Photo,
		&role,
		&identity.PasswordHash,
		&identity.PasswordChangedAt,
		&identity.ResetTokenHash,
		&identity.ResetTokenExpiry,
		&identity.Active,
		&identity.CreatedAt,
	); err != nil {
		return nil, err
	}

	parsed, err := domain.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", identity.ID, err)
	}
	identity.Role = parsed

	return &identity, nil
}

var _ port.CredentialStore = (*UserRepository)(nil)
