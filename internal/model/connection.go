package model

import "time"

// Connection request lifecycle states. A (mentor, mentee) pair has at most
// one row in a live state (pending or accepted) at any time; rejected rows
// are swept away when the pair is re-requested.
const (
    RequestPending  = "pending"
    RequestAccepted = "accepted"
    RequestRejected = "rejected"
)

// Mentor marks a user as able to receive connection requests. Rows are
// created lazily: either explicitly via become-mentor or as a side effect
// of a marketplace buy-request acceptance.
type Mentor struct {
    ID        uint64    // mentors.id
    UserID    uint64    // mentors.user_id (unique)
    Bio       *string   // mentors.bio (nullable)
    Expertise *string   // mentors.expertise (nullable)
    CreatedAt time.Time // mentors.created_at
}

// Mentee marks a user as having acted in the mentee role. Created lazily
// the first time a user sends a connection request.
type Mentee struct {
    ID        uint64    // mentees.id
    UserID    uint64    // mentees.user_id (unique)
    CreatedAt time.Time // mentees.created_at
}

// ConnectionRequest is the directed relationship record between a mentor
// and a mentee. Besides mentorship proper, an accepted row doubles as the
// permission-to-chat relation used by the marketplace buy flow.
//
// Fields:
//  ID          – primary key identifier.
//  MentorID    – mentors.id of the addressed mentor.
//  MenteeID    – mentees.id of the requesting mentee.
//  Status      – pending | accepted | rejected.
//  SentAt      – when the mentee sent the request.
//  RespondedAt – when the mentor accepted/rejected (nullable while pending).
type ConnectionRequest struct {
    ID          uint64     // connection_requests.id
    MentorID    uint64     // connection_requests.mentor_id
    MenteeID    uint64     // connection_requests.mentee_id
    Status      string     // connection_requests.status
    SentAt      time.Time  // connection_requests.sent_at
    RespondedAt *time.Time // connection_requests.responded_at (nullable)
}
