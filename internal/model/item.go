package model

import "time"

// Buy request lifecycle states.
const (
    BuyRequestPending  = "pending"
    BuyRequestAccepted = "accepted"
)

// Category is a shared, global marketplace category. Rows are created on
// first use when an item names a category that does not exist yet.
type Category struct {
    ID        uint64    // categories.id
    Name      string    // categories.name (unique)
    CreatedAt time.Time // categories.created_at
}

// Item is a marketplace listing owned by its seller (a user).
//
// Fields:
//  ID          – primary key identifier.
//  SellerID    – users.id of the seller.
//  CategoryID  – categories.id of the item's category.
//  Title       – listing title.
//  Description – free-form description.
//  PriceCents  – asking price in cents.
//  Condition   – e.g. "new", "like_new", "used".
//  ImageURL    – optional image URL (nullable).
//  CreatedAt   – timestamp of creation.
type Item struct {
    ID          uint64    // items.id
    SellerID    uint64    // items.seller_id
    CategoryID  uint64    // items.category_id
    Title       string    // items.title
    Description string    // items.description
    PriceCents  uint32    // items.price_cents
    Condition   string    // items.condition
    ImageURL    *string   // items.image_url (nullable)
    CreatedAt   time.Time // items.created_at
}

// ItemComment is a comment left on an item. Deletable only by its author.
type ItemComment struct {
    ID        uint64    // item_comments.id
    ItemID    uint64    // item_comments.item_id
    UserID    uint64    // item_comments.user_id
    Content   string    // item_comments.content
    CreatedAt time.Time // item_comments.created_at
}

// Review is buyer-authored feedback attached to either an item or a
// mentor. Exactly one of ItemID/MentorID is set.
type Review struct {
    ID        uint64    // reviews.id
    AuthorID  uint64    // reviews.author_id
    ItemID    *uint64   // reviews.item_id (nullable)
    MentorID  *uint64   // reviews.mentor_id (nullable)
    Rating    uint8     // reviews.rating (1..5)
    Comment   string    // reviews.comment
    CreatedAt time.Time // reviews.created_at
}

// BuyRequest records a buyer's interest in an item. On acceptance the
// seller and buyer are bridged into an accepted connection so that chat
// unlocks between them.
type BuyRequest struct {
    ID        uint64    // buy_requests.id
    ItemID    uint64    // buy_requests.item_id
    BuyerID   uint64    // buy_requests.buyer_id
    Status    string    // buy_requests.status
    CreatedAt time.Time // buy_requests.created_at
}
