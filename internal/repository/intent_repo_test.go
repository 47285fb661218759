package repository

import (
	"testing"

	"busara/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockIntentRepo(t *testing.T) (*PaymentIntentRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	gdb, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return NewPaymentIntentRepository(gdb), mock
}

func intentRow(id string, status domain.IntentStatus, externalRef interface{}) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "provider", "external_ref", "amount_cents", "currency", "owner_type", "owner_id", "status"}).
		AddRow(id, "mpesa", externalRef, int64(500000), "KES", "membership", uint(7), string(status))
}

func TestCreateLocksOwnerRowsBeforeInsert(t *testing.T) {
	repo, mock := newMockIntentRepo(t)

	mock.ExpectBegin()
	// The pending count must be a locking read so concurrent creates for the
	// same owner serialize instead of both observing zero.
	mock.ExpectQuery("SELECT count.+FROM `payment_intents`.+FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(0))
	mock.ExpectExec("INSERT INTO `payment_intents`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	intent, err := repo.Create(domain.OwnerMembership, 7, 500000, "KES", domain.ProviderMpesa)
	require.NoError(t, err)
	assert.Len(t, intent.ID, 36)
	assert.Equal(t, domain.IntentCreated, intent.Status)
	assert.Nil(t, intent.ExternalRef)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRejectsDuplicatePending(t *testing.T) {
	repo, mock := newMockIntentRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT count.+FROM `payment_intents`").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(1))
	mock.ExpectRollback()

	_, err := repo.Create(domain.OwnerMembership, 7, 500000, "KES", domain.ProviderCard)
	assert.ErrorIs(t, err, domain.ErrDuplicatePendingIntent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRejectsUnknownOwnerKind(t *testing.T) {
	repo, _ := newMockIntentRepo(t)

	_, err := repo.Create(domain.OwnerKind("subscription"), 7, 500000, "KES", domain.ProviderCard)
	assert.ErrorIs(t, err, domain.ErrUnknownOwner)
}

func TestAttachExternalRefSetsOnce(t *testing.T) {
	repo, mock := newMockIntentRepo(t)

	mock.ExpectExec("UPDATE `payment_intents` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.AttachExternalRef("intent-1", "ws_CO_1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachExternalRefSameValueReplayIsNoop(t *testing.T) {
	repo, mock := newMockIntentRepo(t)

	// Provider retries resend the same reference: the guarded update matches
	// nothing, the re-read shows the identical value, and the call succeeds.
	mock.ExpectExec("UPDATE `payment_intents` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT .+ FROM `payment_intents` WHERE id").
		WillReturnRows(intentRow("intent-1", domain.IntentProviderAccepted, "ws_CO_1"))

	require.NoError(t, repo.AttachExternalRef("intent-1", "ws_CO_1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachExternalRefDifferentValueRejected(t *testing.T) {
	repo, mock := newMockIntentRepo(t)

	mock.ExpectExec("UPDATE `payment_intents` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT .+ FROM `payment_intents` WHERE id").
		WillReturnRows(intentRow("intent-1", domain.IntentProviderAccepted, "ws_CO_1"))

	err := repo.AttachExternalRef("intent-1", "ws_CO_2")
	assert.ErrorIs(t, err, domain.ErrAlreadyAttached)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionCASMatch(t *testing.T) {
	repo, mock := newMockIntentRepo(t)

	mock.ExpectExec("UPDATE `payment_intents` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Transition("intent-1", domain.IntentSucceeded, "ok"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionReplayIsNoop(t *testing.T) {
	repo, mock := newMockIntentRepo(t)

	mock.ExpectExec("UPDATE `payment_intents` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT .+ FROM `payment_intents` WHERE id").
		WillReturnRows(intentRow("intent-1", domain.IntentSucceeded, "ws_CO_1"))

	require.NoError(t, repo.Transition("intent-1", domain.IntentSucceeded, "ok"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionOutOfTerminalRejected(t *testing.T) {
	repo, mock := newMockIntentRepo(t)

	mock.ExpectExec("UPDATE `payment_intents` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT .+ FROM `payment_intents` WHERE id").
		WillReturnRows(intentRow("intent-1", domain.IntentFailed, "ws_CO_1"))

	err := repo.Transition("intent-1", domain.IntentSucceeded, "ok")
	assert.ErrorIs(t, err, domain.ErrAlreadyTerminal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionConcurrentWriterIsConflict(t *testing.T) {
	repo, mock := newMockIntentRepo(t)

	// CAS matched nothing but the re-read is neither the requested status nor
	// terminal: a concurrent writer moved the row mid-flight.
	mock.ExpectExec("UPDATE `payment_intents` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT .+ FROM `payment_intents` WHERE id").
		WillReturnRows(intentRow("intent-1", domain.IntentCreated, nil))

	err := repo.Transition("intent-1", domain.IntentProviderAccepted, "")
	assert.ErrorIs(t, err, domain.ErrTransitionConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}
