package handler

import (
    "context"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/koshhq/kosh-backend/internal/model"
    "github.com/koshhq/kosh-backend/internal/notify"
    "github.com/koshhq/kosh-backend/internal/repository"
)

// MentorshipHandler covers mentor discovery and the connection request
// lifecycle between mentors and mentees.
type MentorshipHandler struct {
    Conns    *repository.ConnectionRepo
    Users    *repository.UserRepo
    Reviews  *repository.ReviewRepo
    Notifier *notify.Notifier
}

func NewMentorshipHandler(conns *repository.ConnectionRepo, users *repository.UserRepo, reviews *repository.ReviewRepo, n *notify.Notifier) *MentorshipHandler {
    if conns == nil || users == nil {
        panic("nil repository passed to NewMentorshipHandler")
    }
    return &MentorshipHandler{Conns: conns, Users: users, Reviews: reviews, Notifier: n}
}

type becomeMentorReq struct {
    Bio       *string `json:"bio"`
    Expertise *string `json:"expertise"`
}
type connectReq struct {
    MentorID uint64 `json:"mentor_id"`
}
type respondReq struct {
    Action string `json:"action"` // "accept" or "reject"
}

type requestPart struct {
    ID       uint64 `json:"id"`
    MentorID uint64 `json:"mentor_id"`
    MenteeID uint64 `json:"mentee_id"`
    Status   string `json:"status"`
    SentAt   string `json:"sent_at"`
}

func toRequestPart(r model.ConnectionRequest) requestPart {
    return requestPart{
        ID:       r.ID,
        MentorID: r.MentorID,
        MenteeID: r.MenteeID,
        Status:   r.Status,
        SentAt:   r.SentAt.UTC().Format(time.RFC3339),
    }
}

// ListMentors returns every mentor except the caller's own row, so the
// browse page never offers a self-connection.
func (h *MentorshipHandler) ListMentors(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    mentors, err := h.Conns.ListMentors(ctx, uid)
    if err != nil {
        return fail(c, http.StatusInternalServerError, "could not list mentors")
    }
    return ok(c, http.StatusOK, echo.Map{"mentors": mentors, "count": len(mentors)})
}

// BecomeMentor enrolls the caller as a mentor, creating the row on first
// call and updating bio/expertise on repeats.
func (h *MentorshipHandler) BecomeMentor(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    var req becomeMentorReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "invalid body")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    mentorID, err := h.Conns.EnsureMentor(ctx, uid)
    if err != nil {
        return fail(c, http.StatusInternalServerError, "could not enroll mentor")
    }
    if req.Bio != nil || req.Expertise != nil {
        if err := h.Conns.SetMentorProfile(ctx, mentorID, req.Bio, req.Expertise); err != nil {
            return fail(c, http.StatusInternalServerError, "could not save mentor profile")
        }
    }
    return okMsg(c, http.StatusOK, "mentor profile active", echo.Map{"mentor_id": mentorID})
}

// MentorStatus reports whether the caller has a mentor profile.
func (h *MentorshipHandler) MentorStatus(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    mentorID, err := h.Conns.MentorIDByUserID(ctx, uid)
    if err != nil {
        if err == repository.ErrNotFound {
            return ok(c, http.StatusOK, echo.Map{"is_mentor": false})
        }
        return fail(c, http.StatusInternalServerError, "could not load mentor status")
    }
    return ok(c, http.StatusOK, echo.Map{"is_mentor": true, "mentor_id": mentorID})
}

// Connect sends a connection request from the caller (as mentee) to a
// mentor. At most one active request per pair may exist; a stale rejected
// one is replaced, a pending or accepted one blocks the new request.
func (h *MentorshipHandler) Connect(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    var req connectReq
    if err := c.Bind(&req); err != nil || req.MentorID == 0 {
        return fail(c, http.StatusBadRequest, "mentor_id is required")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    // Resolve the target first: an unknown mentor id is a 404, not a
    // request row addressed to nobody.
    mentorUserID, err := h.Conns.UserIDByMentorID(ctx, req.MentorID)
    if err != nil {
        if err == repository.ErrNotFound {
            return fail(c, http.StatusNotFound, "mentor not found")
        }
        return fail(c, http.StatusInternalServerError, "could not send request")
    }
    if mentorUserID == uid {
        return fail(c, http.StatusBadRequest, "cannot connect to yourself")
    }
    menteeID, err := h.Conns.EnsureMentee(ctx, uid)
    if err != nil {
        return fail(c, http.StatusInternalServerError, "could not send request")
    }

    created, err := h.Conns.CreatePending(ctx, req.MentorID, menteeID)
    switch err {
    case nil:
    case repository.ErrAlreadyPending:
        return fail(c, http.StatusConflict, "request already pending")
    case repository.ErrAlreadyConnected:
        return fail(c, http.StatusConflict, "already connected")
    default:
        return fail(c, http.StatusInternalServerError, "could not send request")
    }

    sender, _ := h.Users.GetByID(ctx, uid)
    h.Notifier.Notify(ctx, mentorUserID, model.NotifConnectionRequest,
        "New connection request",
        sender.Name+" wants to connect with you",
        map[string]any{"request_id": created.ID, "mentee_user_id": uid})
    return okMsg(c, http.StatusCreated, "request sent", toRequestPart(created))
}

// IncomingRequests lists requests addressed to the caller's mentor profile.
func (h *MentorshipHandler) IncomingRequests(c echo.Context) error {
    return h.listRequests(c, h.Conns.ListIncoming)
}

// OutgoingRequests lists requests the caller sent as a mentee.
func (h *MentorshipHandler) OutgoingRequests(c echo.Context) error {
    return h.listRequests(c, h.Conns.ListOutgoing)
}

func (h *MentorshipHandler) listRequests(c echo.Context, list func(context.Context, uint64) ([]repository.RequestItem, error)) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    items, err := list(ctx, uid)
    if err != nil {
        return fail(c, http.StatusInternalServerError, "could not list requests")
    }
    return ok(c, http.StatusOK, echo.Map{"requests": items, "count": len(items)})
}

// Respond lets the receiving mentor accept or reject a pending request.
func (h *MentorshipHandler) Respond(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    reqID, err := pathID(c, "id")
    if err != nil {
        return fail(c, http.StatusBadRequest, "invalid request id")
    }
    var req respondReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "invalid body")
    }
    var status string
    switch strings.ToLower(req.Action) {
    case "accept":
        status = model.RequestAccepted
    case "reject":
        status = model.RequestRejected
    default:
        return fail(c, http.StatusBadRequest, "action must be accept or reject")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    detail, err := h.Conns.GetDetail(ctx, reqID)
    if err != nil {
        return fail(c, http.StatusNotFound, "request not found")
    }
    if detail.MentorUserID != uid {
        return fail(c, http.StatusForbidden, "not your request to answer")
    }
    if err := h.Conns.Respond(ctx, reqID, status); err != nil {
        if err == repository.ErrNotPending {
            return fail(c, http.StatusConflict, "request already answered")
        }
        return fail(c, http.StatusInternalServerError, "could not answer request")
    }

    mentor, _ := h.Users.GetByID(ctx, uid)
    if status == model.RequestAccepted {
        h.Notifier.Notify(ctx, detail.MenteeUserID, model.NotifConnectionAccepted,
            "Connection accepted",
            mentor.Name+" accepted your connection request",
            map[string]any{"request_id": reqID, "mentor_user_id": uid})
    } else {
        h.Notifier.Notify(ctx, detail.MenteeUserID, model.NotifConnectionRejected,
            "Connection declined",
            mentor.Name+" declined your connection request",
            map[string]any{"request_id": reqID})
    }
    return okMsg(c, http.StatusOK, "request "+status, nil)
}

// Cancel withdraws the caller's own pending request.
func (h *MentorshipHandler) Cancel(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    reqID, err := pathID(c, "id")
    if err != nil {
        return fail(c, http.StatusBadRequest, "invalid request id")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    detail, err := h.Conns.GetDetail(ctx, reqID)
    if err != nil {
        return fail(c, http.StatusNotFound, "request not found")
    }
    if detail.MenteeUserID != uid {
        return fail(c, http.StatusForbidden, "not your request to cancel")
    }
    if err := h.Conns.DeletePending(ctx, reqID); err != nil {
        if err == repository.ErrNotPending {
            return fail(c, http.StatusConflict, "request already answered")
        }
        return fail(c, http.StatusInternalServerError, "could not cancel request")
    }
    return okMsg(c, http.StatusOK, "request cancelled", nil)
}

// Connections lists everyone the caller holds an accepted connection with,
// from both the mentor and the mentee side.
func (h *MentorshipHandler) Connections(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    users, err := h.Conns.ConnectedUsers(ctx, uid)
    if err != nil {
        return fail(c, http.StatusInternalServerError, "could not list connections")
    }
    return ok(c, http.StatusOK, echo.Map{"connections": users, "count": len(users)})
}

// MentorReviews lists reviews left for a mentor, with requests addressed by
// the mentor row id used on the browse page.
func (h *MentorshipHandler) MentorReviews(c echo.Context) error {
    mentorID, err := pathID(c, "id")
    if err != nil {
        return fail(c, http.StatusBadRequest, "invalid mentor id")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    reviews, err := h.Reviews.ListForMentor(ctx, mentorID)
    if err != nil {
        return fail(c, http.StatusInternalServerError, "could not list reviews")
    }
    return ok(c, http.StatusOK, echo.Map{"reviews": reviews, "count": len(reviews)})
}

// ReviewMentor records a rating for a mentor the caller worked with.
func (h *MentorshipHandler) ReviewMentor(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    mentorID, err := pathID(c, "id")
    if err != nil {
        return fail(c, http.StatusBadRequest, "invalid mentor id")
    }
    var req reviewReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "invalid body")
    }
    if req.Rating < 1 || req.Rating > 5 {
        return fail(c, http.StatusBadRequest, "rating must be between 1 and 5")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if selfID, err := h.Conns.MentorIDByUserID(ctx, uid); err == nil && selfID == mentorID {
        return fail(c, http.StatusBadRequest, "cannot review yourself")
    }
    id, err := h.Reviews.Create(ctx, model.Review{
        AuthorID: uid,
        MentorID: &mentorID,
        Rating:   req.Rating,
        Comment:  req.Comment,
    })
    if err != nil {
        return fail(c, http.StatusInternalServerError, "could not save review")
    }
    return okMsg(c, http.StatusCreated, "review saved", echo.Map{"review_id": id})
}
