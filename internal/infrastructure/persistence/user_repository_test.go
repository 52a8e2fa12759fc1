package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kpiboard/backend/internal/domain/identity"
	"github.com/kpiboard/backend/internal/domain/shared"
	"github.com/kpiboard/backend/tests/testutil"
)

// newMockUserRepository creates a GormUserRepository with a mocked SQL connection
func newMockUserRepository(t *testing.T) (*GormUserRepository, sqlmock.Sqlmock, *sql.DB) {
	mdb := testutil.NewMockDB(t)
	return NewGormUserRepository(mdb.DB), mdb.Mock, mdb.SqlDB
}

func TestGormUserRepository_FindByID(t *testing.T) {
	t.Run("finds existing user", func(t *testing.T) {
		repo, mock, mockDB := newMockUserRepository(t)
		defer mockDB.Close()

		userID := uuid.New()
		rows := sqlmock.NewRows([]string{"id", "created_at", "updated_at", "email", "name", "password_hash"}).
			AddRow(userID, time.Now(), time.Now(), "analyst@kpiboard.dev", "Ana Lyst", "$2a$10$hash")

		mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(userID, 1).
			WillReturnRows(rows)

		user, err := repo.FindByID(context.Background(), userID)

		assert.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, userID, user.ID)
		assert.Equal(t, "analyst@kpiboard.dev", user.Email)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps missing user to shared.ErrNotFound", func(t *testing.T) {
		repo, mock, mockDB := newMockUserRepository(t)
		defer mockDB.Close()

		userID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(userID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		_, err := repo.FindByID(context.Background(), userID)

		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormUserRepository_FindByEmail(t *testing.T) {
	t.Run("matches email case-insensitively", func(t *testing.T) {
		repo, mock, mockDB := newMockUserRepository(t)
		defer mockDB.Close()

		userID := uuid.New()
		rows := sqlmock.NewRows([]string{"id", "created_at", "updated_at", "email", "name", "password_hash"}).
			AddRow(userID, time.Now(), time.Now(), "analyst@kpiboard.dev", "Ana Lyst", "$2a$10$hash")

		mock.ExpectQuery(`SELECT \* FROM "users" WHERE LOWER\(email\) = \$1 ORDER BY .* LIMIT .*`).
			WithArgs("analyst@kpiboard.dev", 1).
			WillReturnRows(rows)

		user, err := repo.FindByEmail(context.Background(), "Analyst@KPIBoard.dev")

		assert.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, userID, user.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects empty email without querying", func(t *testing.T) {
		repo, mock, mockDB := newMockUserRepository(t)
		defer mockDB.Close()

		_, err := repo.FindByEmail(context.Background(), "")

		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormUserRepository_FindByResetToken(t *testing.T) {
	t.Run("only matches unexpired tokens", func(t *testing.T) {
		repo, mock, mockDB := newMockUserRepository(t)
		defer mockDB.Close()

		userID := uuid.New()
		token := "reset-token-abc"
		rows := sqlmock.NewRows([]string{"id", "created_at", "updated_at", "email", "name", "password_hash", "reset_token"}).
			AddRow(userID, time.Now(), time.Now(), "analyst@kpiboard.dev", "Ana Lyst", "$2a$10$hash", token)

		mock.ExpectQuery(`SELECT \* FROM "users" WHERE reset_token = \$1 AND reset_token_expires > \$2 ORDER BY .* LIMIT .*`).
			WithArgs(token, sqlmock.AnyArg(), 1).
			WillReturnRows(rows)

		user, err := repo.FindByResetToken(context.Background(), token)

		assert.NoError(t, err)
		require.NotNil(t, user)
		require.NotNil(t, user.ResetToken)
		assert.Equal(t, token, *user.ResetToken)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects empty token without querying", func(t *testing.T) {
		repo, mock, mockDB := newMockUserRepository(t)
		defer mockDB.Close()

		_, err := repo.FindByResetToken(context.Background(), "")

		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormUserRepository_ExistsByEmail(t *testing.T) {
	repo, mock, mockDB := newMockUserRepository(t)
	defer mockDB.Close()

	rows := sqlmock.NewRows([]string{"count"}).AddRow(1)
	mock.ExpectQuery(`SELECT count\(\*\) FROM "users" WHERE LOWER\(email\) = \$1`).
		WithArgs("taken@kpiboard.dev").
		WillReturnRows(rows)

	exists, err := repo.ExistsByEmail(context.Background(), "taken@kpiboard.dev")

	assert.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUserRepository_Create(t *testing.T) {
	repo, mock, mockDB := newMockUserRepository(t)
	defer mockDB.Close()

	user, err := identity.NewUser("new@kpiboard.dev", "Password123", "New Analyst")
	require.NoError(t, err)

	mock.ExpectExec(`INSERT INTO "users"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Create(context.Background(), user)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUserRepository_Update(t *testing.T) {
	t.Run("saves existing user", func(t *testing.T) {
		repo, mock, mockDB := newMockUserRepository(t)
		defer mockDB.Close()

		user, err := identity.NewUser("analyst@kpiboard.dev", "Password123", "Ana Lyst")
		require.NoError(t, err)

		mock.ExpectExec(`UPDATE "users" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err = repo.Update(context.Background(), user)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps zero affected rows to shared.ErrNotFound", func(t *testing.T) {
		repo, mock, mockDB := newMockUserRepository(t)
		defer mockDB.Close()

		user, err := identity.NewUser("ghost@kpiboard.dev", "Password123", "Ghost")
		require.NoError(t, err)

		mock.ExpectExec(`UPDATE "users" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err = repo.Update(context.Background(), user)

		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
