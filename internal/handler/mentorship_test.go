package handler

import (
    "net/http"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/koshhq/kosh-backend/internal/model"
    "github.com/koshhq/kosh-backend/internal/repository"
)

// mentorshipFixture backs the connection repo with a SQL mock so the
// lifecycle paths that do reach the database can be pinned without a
// running MySQL.
func mentorshipFixture(t *testing.T) (*MentorshipHandler, sqlmock.Sqlmock) {
    t.Helper()
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    t.Cleanup(func() { db.Close() })
    h := NewMentorshipHandler(
        repository.NewConnectionRepo(db),
        repository.NewUserRepo(nil),
        repository.NewReviewRepo(nil),
        nil,
    )
    return h, mock
}

func TestConnectUnknownMentorIsNotFound(t *testing.T) {
    h, mock := mentorshipFixture(t)
    mock.ExpectQuery("SELECT user_id FROM mentors").
        WithArgs(uint64(999)).
        WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

    c, rec := newTestContext(t, http.MethodPost, "/api/mentorship/connect",
        `{"mentor_id":999}`, 1)
    require.NoError(t, h.Connect(c))
    assert.Equal(t, http.StatusNotFound, rec.Code)
    assert.Contains(t, rec.Body.String(), "mentor not found")
    assert.NoError(t, mock.ExpectationsWereMet(), "no request row may be written for an unknown mentor")
}

func TestConnectRejectsSelf(t *testing.T) {
    h, mock := mentorshipFixture(t)
    mock.ExpectQuery("SELECT user_id FROM mentors").
        WithArgs(uint64(3)).
        WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(1))

    c, rec := newTestContext(t, http.MethodPost, "/api/mentorship/connect",
        `{"mentor_id":3}`, 1)
    require.NoError(t, h.Connect(c))
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// expectConnectThrough drives the mentor lookup and mentee upsert so a
// test can stage the CreatePending transaction itself.
func expectConnectThrough(mock sqlmock.Sqlmock, mentorID, mentorUserID, menteeUserID, menteeID uint64) {
    mock.ExpectQuery("SELECT user_id FROM mentors").
        WithArgs(mentorID).
        WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(mentorUserID))
    mock.ExpectExec("INSERT IGNORE INTO mentees").
        WithArgs(menteeUserID).
        WillReturnResult(sqlmock.NewResult(0, 0))
    mock.ExpectQuery("SELECT id FROM mentees").
        WithArgs(menteeUserID).
        WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(menteeID))
}

func TestConnectConflictsWhileRequestPending(t *testing.T) {
    h, mock := mentorshipFixture(t)
    expectConnectThrough(mock, 3, 77, 1, 9)
    mock.ExpectBegin()
    mock.ExpectQuery("SELECT id, status FROM connection_requests").
        WithArgs(uint64(3), uint64(9)).
        WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(5, model.RequestPending))
    mock.ExpectRollback()

    c, rec := newTestContext(t, http.MethodPost, "/api/mentorship/connect",
        `{"mentor_id":3}`, 1)
    require.NoError(t, h.Connect(c))
    assert.Equal(t, http.StatusConflict, rec.Code)
    assert.Contains(t, rec.Body.String(), "already pending")
}

func TestConnectConflictsWhileConnected(t *testing.T) {
    h, mock := mentorshipFixture(t)
    expectConnectThrough(mock, 3, 77, 1, 9)
    mock.ExpectBegin()
    mock.ExpectQuery("SELECT id, status FROM connection_requests").
        WithArgs(uint64(3), uint64(9)).
        WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(5, model.RequestAccepted))
    mock.ExpectRollback()

    c, rec := newTestContext(t, http.MethodPost, "/api/mentorship/connect",
        `{"mentor_id":3}`, 1)
    require.NoError(t, h.Connect(c))
    assert.Equal(t, http.StatusConflict, rec.Code)
    assert.Contains(t, rec.Body.String(), "already connected")
}

func expectDetail(mock sqlmock.Sqlmock, reqID uint64, status string, mentorUserID, menteeUserID uint64) {
    sentAt := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
    mock.ExpectQuery("SELECT cr.id, cr.mentor_id, cr.mentee_id, cr.status, cr.sent_at, cr.responded_at").
        WithArgs(reqID).
        WillReturnRows(sqlmock.NewRows(
            []string{"id", "mentor_id", "mentee_id", "status", "sent_at", "responded_at", "m_uid", "e_uid"}).
            AddRow(reqID, 3, 9, status, sentAt, nil, mentorUserID, menteeUserID))
}

func TestRespondForbiddenForOtherMentor(t *testing.T) {
    h, mock := mentorshipFixture(t)
    expectDetail(mock, 42, model.RequestPending, 77, 1)

    c, rec := newTestContext(t, http.MethodPost, "/api/mentorship/requests/42/respond",
        `{"action":"accept"}`, 5)
    c.SetParamNames("id")
    c.SetParamValues("42")
    require.NoError(t, h.Respond(c))
    assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCancelForbiddenForOtherMentee(t *testing.T) {
    h, mock := mentorshipFixture(t)
    expectDetail(mock, 42, model.RequestPending, 77, 1)

    c, rec := newTestContext(t, http.MethodDelete, "/api/mentorship/requests/42", "", 5)
    c.SetParamNames("id")
    c.SetParamValues("42")
    require.NoError(t, h.Cancel(c))
    assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCancelConflictsOnceAnswered(t *testing.T) {
    h, mock := mentorshipFixture(t)
    expectDetail(mock, 42, model.RequestAccepted, 77, 1)
    // The pending-only guard in the DELETE matches nothing.
    mock.ExpectExec("DELETE FROM connection_requests").
        WithArgs(uint64(42), model.RequestPending).
        WillReturnResult(sqlmock.NewResult(0, 0))

    c, rec := newTestContext(t, http.MethodDelete, "/api/mentorship/requests/42", "", 1)
    c.SetParamNames("id")
    c.SetParamValues("42")
    require.NoError(t, h.Cancel(c))
    assert.Equal(t, http.StatusConflict, rec.Code)
    assert.Contains(t, rec.Body.String(), "already answered")
}
