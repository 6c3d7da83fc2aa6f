package refreshtoken

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clientiq/internal/auth/models"
	"clientiq/internal/platform/database/dbtest"
	id "clientiq/pkg/domain"
	"clientiq/pkg/platform/sentinel"
)

func TestPostgresStore_Create(t *testing.T) {
	db, mock := dbtest.New(t)
	ctx := dbtest.Bind(t, db, mock, dbtest.Scope("acme"))
	userID := uuid.New()
	tok := &models.RefreshToken{
		JTI: uuid.NewString(), UserID: id.UserID(userID),
		IssuedAt: now, ExpiresAt: now.Add(time.Hour),
		UserAgent: "curl/8.0", ClientIP: "10.0.0.1",
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO refresh_tokens (jti,user_id,issued_at,expires_at,user_agent,client_ip) VALUES ($1,$2,$3,$4,$5,$6)")).
		WithArgs(tok.JTI, userID, now, now.Add(time.Hour), "curl/8.0", "10.0.0.1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewPostgres().Create(ctx, tok))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Rotate(t *testing.T) {
	db, mock := dbtest.New(t)
	ctx := dbtest.Bind(t, db, mock, dbtest.Scope("acme"))
	oldJTI := uuid.NewString()
	next := &models.RefreshToken{JTI: uuid.NewString(), UserID: id.NewUserID(), IssuedAt: now, ExpiresAt: now.Add(time.Hour)}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET revoked_at = $1, replaced_by = $2 WHERE jti = $3 AND revoked_at IS NULL AND expires_at > $4")).
		WithArgs(now, next.JTI, oldJTI, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO refresh_tokens").WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewPostgres().Rotate(ctx, oldJTI, next, now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RotateReplayed(t *testing.T) {
	db, mock := dbtest.New(t)
	ctx := dbtest.Bind(t, db, mock, dbtest.Scope("acme"))
	oldJTI := uuid.NewString()
	next := &models.RefreshToken{JTI: uuid.NewString(), UserID: id.NewUserID(), IssuedAt: now, ExpiresAt: now.Add(time.Hour)}

	mock.ExpectExec("UPDATE refresh_tokens SET").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM refresh_tokens WHERE jti = $1")).
		WithArgs(oldJTI).
		WillReturnRows(sqlmock.NewRows(tokenColumns).
			AddRow(oldJTI, uuid.NewString(), now.Add(-time.Minute), now.Add(time.Hour), now.Add(-time.Second), uuid.NewString(), "", ""))

	err := NewPostgres().Rotate(ctx, oldJTI, next, now)
	assert.ErrorIs(t, err, sentinel.ErrAlreadyUsed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RotateExpired(t *testing.T) {
	db, mock := dbtest.New(t)
	ctx := dbtest.Bind(t, db, mock, dbtest.Scope("acme"))
	oldJTI := uuid.NewString()
	next := &models.RefreshToken{JTI: uuid.NewString(), UserID: id.NewUserID(), IssuedAt: now, ExpiresAt: now.Add(time.Hour)}

	mock.ExpectExec("UPDATE refresh_tokens SET").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM refresh_tokens WHERE jti").
		WillReturnRows(sqlmock.NewRows(tokenColumns).
			AddRow(oldJTI, uuid.NewString(), now.Add(-2*time.Hour), now.Add(-time.Hour), nil, nil, "", ""))

	err := NewPostgres().Rotate(ctx, oldJTI, next, now)
	assert.ErrorIs(t, err, sentinel.ErrExpired)
}

func TestPostgresStore_RevokeIsIdempotent(t *testing.T) {
	db, mock := dbtest.New(t)
	ctx := dbtest.Bind(t, db, mock, dbtest.Scope("acme"))
	jti := uuid.NewString()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET revoked_at = $1 WHERE jti = $2 AND revoked_at IS NULL")).
		WithArgs(now, jti).
		WillReturnResult(sqlmock.NewResult(0, 0))

	revoked, err := NewPostgres().Revoke(ctx, jti, now)
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestPostgresStore_RevokeAllForUser(t *testing.T) {
	db, mock := dbtest.New(t)
	ctx := dbtest.Bind(t, db, mock, dbtest.Scope("acme"))
	userID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE refresh_tokens SET revoked_at = $1 WHERE revoked_at IS NULL AND user_id = $2 AND expires_at > $3 RETURNING jti")).
		WithArgs(now, userID, now).
		WillReturnRows(sqlmock.NewRows(tokenColumns).
			AddRow(uuid.NewString(), userID.String(), now, now.Add(time.Hour), now, nil, "", "").
			AddRow(uuid.NewString(), userID.String(), now, now.Add(time.Hour), now, nil, "", ""))

	revoked, err := NewPostgres().RevokeAllForUser(ctx, id.UserID(userID), now)
	require.NoError(t, err)
	assert.Len(t, revoked, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteExpired(t *testing.T) {
	db, mock := dbtest.New(t)
	ctx := dbtest.Bind(t, db, mock, dbtest.Scope("acme"))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM refresh_tokens WHERE expires_at < $1")).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	deleted, err := NewPostgres().DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)
}
