package repository

import (
    "context"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/koshhq/kosh-backend/internal/model"
)

func newMockRepo(t *testing.T) (*ConnectionRepo, sqlmock.Sqlmock) {
    t.Helper()
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    t.Cleanup(func() { db.Close() })
    return NewConnectionRepo(db), mock
}

func pairRows(rows ...[2]any) *sqlmock.Rows {
    out := sqlmock.NewRows([]string{"id", "status"})
    for _, r := range rows {
        out.AddRow(r[0], r[1])
    }
    return out
}

func TestCreatePendingSweepsRejectedRow(t *testing.T) {
    repo, mock := newMockRepo(t)
    sentAt := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

    mock.ExpectBegin()
    mock.ExpectQuery("SELECT id, status FROM connection_requests").
        WithArgs(uint64(3), uint64(9)).
        WillReturnRows(pairRows([2]any{7, model.RequestRejected}))
    mock.ExpectExec("DELETE FROM connection_requests").
        WithArgs(uint64(7)).
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectExec("INSERT INTO connection_requests").
        WithArgs(uint64(3), uint64(9), model.RequestPending).
        WillReturnResult(sqlmock.NewResult(42, 1))
    mock.ExpectQuery("SELECT id, mentor_id, mentee_id, status, sent_at, responded_at").
        WithArgs(int64(42)).
        WillReturnRows(sqlmock.NewRows(
            []string{"id", "mentor_id", "mentee_id", "status", "sent_at", "responded_at"}).
            AddRow(42, 3, 9, model.RequestPending, sentAt, nil))
    mock.ExpectCommit()

    req, err := repo.CreatePending(context.Background(), 3, 9)
    require.NoError(t, err)
    assert.Equal(t, uint64(42), req.ID)
    assert.Equal(t, model.RequestPending, req.Status)
    assert.Nil(t, req.RespondedAt)
    assert.NoError(t, mock.ExpectationsWereMet(), "rejected row must be swept, exactly one fresh pending row inserted")
}

func TestCreatePendingBlocksWhilePending(t *testing.T) {
    repo, mock := newMockRepo(t)

    mock.ExpectBegin()
    mock.ExpectQuery("SELECT id, status FROM connection_requests").
        WithArgs(uint64(3), uint64(9)).
        WillReturnRows(pairRows([2]any{5, model.RequestPending}))
    mock.ExpectRollback()

    _, err := repo.CreatePending(context.Background(), 3, 9)
    assert.ErrorIs(t, err, ErrAlreadyPending)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePendingBlocksWhileConnected(t *testing.T) {
    repo, mock := newMockRepo(t)

    mock.ExpectBegin()
    mock.ExpectQuery("SELECT id, status FROM connection_requests").
        WithArgs(uint64(3), uint64(9)).
        WillReturnRows(pairRows([2]any{5, model.RequestAccepted}))
    mock.ExpectRollback()

    _, err := repo.CreatePending(context.Background(), 3, 9)
    assert.ErrorIs(t, err, ErrAlreadyConnected)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRespondStampsPendingRow(t *testing.T) {
    repo, mock := newMockRepo(t)

    mock.ExpectExec("UPDATE connection_requests").
        WithArgs(model.RequestAccepted, uint64(42), model.RequestPending).
        WillReturnResult(sqlmock.NewResult(0, 1))

    require.NoError(t, repo.Respond(context.Background(), 42, model.RequestAccepted))
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRespondRejectsAnsweredRow(t *testing.T) {
    repo, mock := newMockRepo(t)

    // Status guard in the WHERE clause matches nothing once the row left
    // pending.
    mock.ExpectExec("UPDATE connection_requests").
        WithArgs(model.RequestRejected, uint64(42), model.RequestPending).
        WillReturnResult(sqlmock.NewResult(0, 0))

    err := repo.Respond(context.Background(), 42, model.RequestRejected)
    assert.ErrorIs(t, err, ErrNotPending)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletePendingOnlyRemovesPendingRows(t *testing.T) {
    repo, mock := newMockRepo(t)

    mock.ExpectExec("DELETE FROM connection_requests").
        WithArgs(uint64(42), model.RequestPending).
        WillReturnResult(sqlmock.NewResult(0, 0))

    err := repo.DeletePending(context.Background(), 42)
    assert.ErrorIs(t, err, ErrNotPending)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertAcceptedPromotesPendingInPlace(t *testing.T) {
    repo, mock := newMockRepo(t)

    mock.ExpectBegin()
    mock.ExpectQuery("SELECT id, status FROM connection_requests").
        WithArgs(uint64(3), uint64(9)).
        WillReturnRows(pairRows([2]any{11, model.RequestPending}))
    mock.ExpectExec("UPDATE connection_requests").
        WithArgs(model.RequestAccepted, uint64(11)).
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectCommit()

    require.NoError(t, repo.UpsertAccepted(context.Background(), 3, 9))
    assert.NoError(t, mock.ExpectationsWereMet(), "pending row promoted, no second row inserted")
}

func TestUpsertAcceptedLeavesAcceptedRowAlone(t *testing.T) {
    repo, mock := newMockRepo(t)

    mock.ExpectBegin()
    mock.ExpectQuery("SELECT id, status FROM connection_requests").
        WithArgs(uint64(3), uint64(9)).
        WillReturnRows(pairRows([2]any{12, model.RequestAccepted}))
    mock.ExpectCommit()

    require.NoError(t, repo.UpsertAccepted(context.Background(), 3, 9))
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertAcceptedSweepsAndInsertsFresh(t *testing.T) {
    repo, mock := newMockRepo(t)

    mock.ExpectBegin()
    mock.ExpectQuery("SELECT id, status FROM connection_requests").
        WithArgs(uint64(3), uint64(9)).
        WillReturnRows(pairRows([2]any{8, model.RequestRejected}))
    mock.ExpectExec("DELETE FROM connection_requests").
        WithArgs(uint64(8)).
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectExec("INSERT INTO connection_requests").
        WithArgs(uint64(3), uint64(9), model.RequestAccepted).
        WillReturnResult(sqlmock.NewResult(43, 1))
    mock.ExpectCommit()

    require.NoError(t, repo.UpsertAccepted(context.Background(), 3, 9))
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserIDByMentorID(t *testing.T) {
    repo, mock := newMockRepo(t)

    mock.ExpectQuery("SELECT user_id FROM mentors").
        WithArgs(uint64(3)).
        WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(77))

    uid, err := repo.UserIDByMentorID(context.Background(), 3)
    require.NoError(t, err)
    assert.Equal(t, uint64(77), uid)
}

func TestUserIDByMentorIDUnknown(t *testing.T) {
    repo, mock := newMockRepo(t)

    mock.ExpectQuery("SELECT user_id FROM mentors").
        WithArgs(uint64(404)).
        WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

    _, err := repo.UserIDByMentorID(context.Background(), 404)
    assert.ErrorIs(t, err, ErrNotFound)
}
