package model

import "time"

// User represents an account as stored in the `users` table. Accounts are
// created unverified at signup and activated once the emailed OTP is
// confirmed. The json tags are omitted here because these structs are
// primarily used internally by the repository layer; handlers define
// separate response types with appropriate JSON tags.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique, domain-restricted email address.
//  PasswordHash – bcrypt hashed password.
//  Name         – display name.
//  Department   – free-form department string (nullable).
//  AvatarURL    – profile image URL (nullable).
//  CoverURL     – cover image URL (nullable).
//  IsVerified   – whether the email has been confirmed via OTP.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           uint64    // users.id
    Email        string    // users.email
    PasswordHash string    // users.password_hash
    Name         string    // users.name
    Department   *string   // users.department (nullable)
    AvatarURL    *string   // users.avatar_url (nullable)
    CoverURL     *string   // users.cover_url (nullable)
    IsVerified   bool      // users.is_verified
    CreatedAt    time.Time // users.created_at
    UpdatedAt    time.Time // users.updated_at
}

// OTP models a row in the `otps` table: a one-time numeric code mailed to
// a user during signup. A code is spendable exactly once and only before
// its expiry timestamp.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the code.
//  Code      – the numeric code as a string (leading zeros preserved).
//  ExpiresAt – moment after which the code is no longer accepted.
//  Used      – set once the code has been consumed.
//  CreatedAt – timestamp of creation.
type OTP struct {
    ID        uint64    // otps.id
    UserID    uint64    // otps.user_id
    Code      string    // otps.code
    ExpiresAt time.Time // otps.expires_at
    Used      bool      // otps.used
    CreatedAt time.Time // otps.created_at
}

// RefreshToken models an entry in the `refresh_tokens` table. Each token
// belongs to a user and carries its own expiry. The plain token is never
// stored; only its SHA-256 hash.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
    ID        uint64    // refresh_tokens.id
    UserID    uint64    // refresh_tokens.user_id
    TokenHash string    // refresh_tokens.token_hash
    ExpiresAt time.Time // refresh_tokens.expires_at
    CreatedAt time.Time // refresh_tokens.created_at
}
