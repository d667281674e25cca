package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/taskshare/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user := &model.User{}
	var picture sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, name, picture, google_id, created_at FROM users WHERE id = $1`,
		id,
	).Scan(&user.ID, &user.Email, &user.Name, &picture, &user.GoogleID, &user.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	user.Picture = picture.String
	return user, nil
}

// FindByGoogleID はGoogleの外部IDでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	user := &model.User{}
	var picture sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, name, picture, google_id, created_at FROM users WHERE google_id = $1`,
		googleID,
	).Scan(&user.ID, &user.Email, &user.Name, &picture, &user.GoogleID, &user.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by google ID: %w", err)
	}

	user.Picture = picture.String
	return user, nil
}

// Create はユーザーを作成する。
// email / google_id の一意制約違反の場合はErrDuplicateUserでラップしたエラーを返す。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	var picture any
	if user.Picture != "" {
		picture = user.Picture
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, picture, google_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.Email, user.Name, picture, user.GoogleID, user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateUser, user.GoogleID)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// ListAll は全ユーザーを表示名の昇順で返す。
func (r *PostgresUserRepo) ListAll(ctx context.Context) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, email, name, picture, google_id, created_at FROM users ORDER BY name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user := &model.User{}
		var picture sql.NullString
		if err := rows.Scan(&user.ID, &user.Email, &user.Name, &picture, &user.GoogleID, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		user.Picture = picture.String
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
