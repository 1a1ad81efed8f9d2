package sqlxrepos

import (
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/orishlabs/orish/core/user"
)

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sql.DB) user.Repository {
	return &userRepository{db: sqlx.NewDb(db, "postgres")}
}

// userRow mirrors the users table; Roles needs the pq array adapter.
type userRow struct {
	user.User
	Roles pq.StringArray `db:"roles"`
}

func (r userRow) toUser() user.User {
	usr := r.User
	usr.Roles = r.Roles
	return usr
}

func toUsers(rows []userRow) []user.User {
	users := make([]user.User, len(rows))
	for i, r := range rows {
		users[i] = r.toUser()
	}
	return users
}

func (repo *userRepository) CheckUsernameUniqueness(username, email string, excludedUsers ...user.User) error {
	exclIDs := pq.StringArray{}
	for _, usr := range excludedUsers {
		exclIDs = append(exclIDs, usr.ID)
	}

	var conflicts []struct {
		Username string `db:"username"`
		Email    string `db:"email"`
	}
	err := repo.db.Select(&conflicts, `
		SELECT username, email FROM users
		WHERE ((username = $1 AND username <> '') OR (email = $2 AND email <> ''))
		  AND id <> ALL ($3)`,
		username, email, exclIDs,
	)
	if err != nil {
		return errors.Wrap(err, "checking username uniqueness")
	}
	for _, c := range conflicts {
		if c.Username == username && username != "" {
			return user.ErrUsernameExists
		}
		if c.Email == email && email != "" {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(usr user.User) (user.User, error) {
	_, err := repo.db.Exec(`
		INSERT INTO users (id, name, username, email, is_active, roles, password_hash, created_at, updated_at, last_login)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		usr.ID, usr.Name, usr.Username, usr.Email, usr.IsActive,
		pq.StringArray(usr.Roles), usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt, usr.LastLogin,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) QueryAllUsers() ([]user.User, error) {
	var rows []userRow
	if err := repo.db.Select(&rows, `SELECT * FROM users ORDER BY created_at`); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return toUsers(rows), nil
}

func (repo *userRepository) getUser(query string, args ...interface{}) (user.User, error) {
	var row userRow
	if err := repo.db.Get(&row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return row.toUser(), nil
}

func (repo *userRepository) GetUserByID(id string) (user.User, error) {
	return repo.getUser(`SELECT * FROM users WHERE id = $1`, id)
}

func (repo *userRepository) GetUserByUsername(username string) (user.User, error) {
	return repo.getUser(`SELECT * FROM users WHERE username = $1 AND username <> ''`, username)
}

func (repo *userRepository) GetUserByEmail(email string) (user.User, error) {
	return repo.getUser(`SELECT * FROM users WHERE email = $1 AND email <> ''`, email)
}

func (repo *userRepository) GetUserByUsernameOrEmail(username string) (user.User, error) {
	return repo.getUser(
		`SELECT * FROM users WHERE (username = $1 OR email = $1) AND $1 <> ''`, username)
}

func (repo *userRepository) FilterUsers(filter user.QueryFilter) ([]user.User, error) {
	query := `SELECT * FROM users WHERE 1=1`
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Search != "" {
		p := arg("%" + strings.ToLower(filter.Search) + "%")
		query += ` AND (LOWER(name) LIKE ` + p + ` OR LOWER(username) LIKE ` + p + ` OR LOWER(email) LIKE ` + p + `)`
	}
	if len(filter.Roles) > 0 {
		prefixes := make(pq.StringArray, len(filter.Roles))
		for i, r := range filter.Roles {
			prefixes[i] = r + "%"
		}
		query += ` AND EXISTS (SELECT 1 FROM unnest(roles) role WHERE role LIKE ANY (` + arg(prefixes) + `))`
	}
	if filter.IsActive != nil {
		query += ` AND is_active = ` + arg(*filter.IsActive)
	}
	if !filter.CreatedFrom.IsZero() {
		query += ` AND created_at >= ` + arg(filter.CreatedFrom.UTC())
	}
	if !filter.CreatedTo.IsZero() {
		query += ` AND created_at <= ` + arg(filter.CreatedTo.UTC())
	}
	query += ` ORDER BY created_at`

	var rows []userRow
	if err := repo.db.Select(&rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering users")
	}
	return toUsers(rows), nil
}

func (repo *userRepository) UpdateUser(usr user.User, isActive *bool) (user.User, error) {
	orig, err := repo.GetUserByID(usr.ID)
	if err != nil {
		return user.User{}, err
	}

	// only save set fields
	if usr.Roles != nil {
		orig.Roles = usr.Roles
	}
	if usr.PasswordHash != nil {
		orig.PasswordHash = usr.PasswordHash
	}
	if isActive != nil {
		orig.IsActive = *isActive
	}
	orig.Name = usr.Name
	orig.Username = usr.Username
	orig.Email = usr.Email
	orig.UpdatedAt = usr.UpdatedAt

	_, err = repo.db.Exec(`
		UPDATE users
		SET name = $2, username = $3, email = $4, is_active = $5, roles = $6, password_hash = $7, updated_at = $8
		WHERE id = $1`,
		orig.ID, orig.Name, orig.Username, orig.Email, orig.IsActive,
		pq.StringArray(orig.Roles), orig.PasswordHash, orig.UpdatedAt,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return orig, nil
}

func (repo *userRepository) SetUserLastLogin(id string, t time.Time) (user.User, error) {
	res, err := repo.db.Exec(`UPDATE users SET last_login = $2 WHERE id = $1`, id, t)
	if err != nil {
		return user.User{}, errors.Wrap(err, "setting last login")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUserByID(id)
}

func (repo *userRepository) DeleteUsersByID(ids ...string) error {
	_, err := repo.db.Exec(`DELETE FROM users WHERE id = ANY ($1)`, pq.StringArray(ids))
	return errors.Wrap(err, "deleting users")
}
