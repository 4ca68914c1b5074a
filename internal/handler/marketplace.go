package handler

import (
    "context"
    "fmt"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/koshhq/kosh-backend/internal/model"
    "github.com/koshhq/kosh-backend/internal/notify"
    "github.com/koshhq/kosh-backend/internal/repository"
)

// itemConditions is the closed set accepted on listing creation.
var itemConditions = map[string]bool{
    "new": true, "like_new": true, "good": true, "used": true, "worn": true,
}

// MarketplaceHandler covers listings, comments, reviews and the buy
// request flow that bridges buyer and seller into a connection.
type MarketplaceHandler struct {
    Items    *repository.ItemRepo
    Reviews  *repository.ReviewRepo
    Conns    *repository.ConnectionRepo
    Users    *repository.UserRepo
    Notifier *notify.Notifier
}

func NewMarketplaceHandler(items *repository.ItemRepo, reviews *repository.ReviewRepo, conns *repository.ConnectionRepo, users *repository.UserRepo, n *notify.Notifier) *MarketplaceHandler {
    if items == nil || reviews == nil || conns == nil || users == nil {
        panic("nil repository passed to NewMarketplaceHandler")
    }
    return &MarketplaceHandler{Items: items, Reviews: reviews, Conns: conns, Users: users, Notifier: n}
}

type createItemReq struct {
    Title       string  `json:"title"`
    Description string  `json:"description"`
    PriceCents  uint32  `json:"price_cents"`
    Category    string  `json:"category"`
    Condition   string  `json:"condition"`
    ImageURL    *string `json:"image_url"`
}
type commentReq struct {
    Content string `json:"content"`
}
type reviewReq struct {
    Rating  uint8  `json:"rating"`
    Comment string `json:"comment"`
}

type itemPart struct {
    ID          uint64  `json:"id"`
    SellerID    uint64  `json:"seller_id"`
    CategoryID  uint64  `json:"category_id"`
    Title       string  `json:"title"`
    Description string  `json:"description"`
    PriceCents  uint32  `json:"price_cents"`
    Condition   string  `json:"condition"`
    ImageURL    *string `json:"image_url,omitempty"`
    CreatedAt   string  `json:"created_at"`
}

func toItemPart(it model.Item) itemPart {
    return itemPart{
        ID:          it.ID,
        SellerID:    it.SellerID,
        CategoryID:  it.CategoryID,
        Title:       it.Title,
        Description: it.Description,
        PriceCents:  it.PriceCents,
        Condition:   it.Condition,
        ImageURL:    it.ImageURL,
        CreatedAt:   it.CreatedAt.UTC().Format(time.RFC3339),
    }
}

// ListItems is the public browse endpoint. Filters arrive as query
// parameters; unknown values simply match nothing rather than erroring.
func (h *MarketplaceHandler) ListItems(c echo.Context) error {
    f := repository.ItemFilter{
        Category:  c.QueryParam("category"),
        Condition: c.QueryParam("condition"),
    }
    if v := c.QueryParam("min_price"); v != "" {
        if n, err := strconv.ParseUint(v, 10, 32); err == nil {
            f.MinCents = uint32(n)
        }
    }
    if v := c.QueryParam("max_price"); v != "" {
        if n, err := strconv.ParseUint(v, 10, 32); err == nil {
            f.MaxCents = uint32(n)
        }
    }
    limit, _ := strconv.Atoi(c.QueryParam("limit"))

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    items, err := h.Items.List(ctx, f, limit)
    if err != nil {
        return fail(c, http.StatusInternalServerError, "could not list items")
    }
    return ok(c, http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

// GetItem returns one listing together with its comments and review
// aggregate. The route carries optional auth: signed-in viewers get an
// is_owner flag so the frontend can show the delete control.
func (h *MarketplaceHandler) GetItem(c echo.Context) error {
    itemID, err := pathID(c, "id")
    if err != nil {
        return fail(c, http.StatusBadRequest, "invalid item id")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    it, err := h.Items.GetByID(ctx, itemID)
    if err != nil {
        if err == repository.ErrNotFound {
            return fail(c, http.StatusNotFound, "item not found")
        }
        return fail(c, http.StatusInternalServerError, "could not load item")
    }
    comments, err := h.Items.ListComments(ctx, itemID)
    if err != nil {
        return fail(c, http.StatusInternalServerError, "could not load item")
    }
    avg, count, err := h.Reviews.AverageForItem(ctx, itemID)
    if err != nil {
        return fail(c, http.StatusInternalServerError, "could not load item")
    }
    viewerID, _ := c.Get("user_id").(uint64)
    return ok(c, http.StatusOK, echo.Map{
        "item":     toItemPart(it),
        "comments": comments,
        "rating":   echo.Map{"average": avg, "count": count},
        "is_owner": viewerID != 0 && viewerID == it.SellerID,
    })
}

// CreateItem publishes a listing. The category row is created on first
// use.
func (h *MarketplaceHandler) CreateItem(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    var req createItemReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "invalid body")
    }
    req.Title = strings.TrimSpace(req.Title)
    req.Category = strings.TrimSpace(req.Category)
    req.Condition = strings.ToLower(strings.TrimSpace(req.Condition))
    if req.Title == "" || req.Category == "" {
        return fail(c, http.StatusBadRequest, "title and category are required")
    }
    if req.PriceCents == 0 {
        return fail(c, http.StatusBadRequest, "price_cents must be positive")
    }
    if !itemConditions[req.Condition] {
        return fail(c, http.StatusBadRequest, "condition must be one of new, like_new, good, used, worn")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    catID, err := h.Items.EnsureCategory(ctx, req.Category)
    if err != nil {
        return fail(c, http.StatusInternalServerError, "could not create item")
    }
    id, err := h.Items.Create(ctx, model.Item{
        SellerID:    uid,
        CategoryID:  catID,
        Title:       req.Title,
        Description: req.Description,
        PriceCents:  req.PriceCents,
        Condition:   req.Condition,
        ImageURL:    req.ImageURL,
    })
    if err != nil {
        return fail(c, http.StatusInternalServerError, "could not create item")
    }
    return okMsg(c, http.StatusCreated, "item listed", echo.Map{"item_id": id})
}

// DeleteItem removes the caller's own listing.
func (h *MarketplaceHandler) DeleteItem(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    itemID, err := pathID(c, "id")
    if err != nil {
        return fail(c, http.StatusBadRequest, "invalid item id")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    switch err := h.Items.DeleteByOwner(ctx, itemID, uid); err {
    case nil:
        return okMsg(c, http.StatusOK, "item removed", nil)
    case repository.ErrNotFound:
        return fail(c, http.StatusNotFound, "item not found")
    case repository.ErrForbidden:
        return fail(c, http.StatusForbidden, "not your listing")
    default:
        return fail(c, http.StatusInternalServerError, "could not remove item")
    }
}

// CreateComment leaves a comment on a listing and pings the seller.
func (h *MarketplaceHandler) CreateComment(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    itemID, err := pathID(c, "id")
    if err != nil {
        return fail(c, http.StatusBadRequest, "invalid item id")
    }
    var req commentReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Content) == "" {
        return fail(c, http.StatusBadRequest, "content is required")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    it, err := h.Items.GetByID(ctx, itemID)
    if err != nil {
        if err == repository.ErrNotFound {
            return fail(c, http.StatusNotFound, "item not found")
        }
        return fail(c, http.StatusInternalServerError, "could not save comment")
    }
    id, err := h.Items.CreateComment(ctx, itemID, uid, strings.TrimSpace(req.Content))
    if err != nil {
        return fail(c, http.StatusInternalServerError, "could not save comment")
    }
    if it.SellerID != uid {
        author, _ := h.Users.GetByID(ctx, uid)
        h.Notifier.Notify(ctx, it.SellerID, model.NotifNewComment,
            "New comment on your listing",
            author.Name+" commented on "+it.Title,
            map[string]any{"item_id": itemID, "comment_id": id})
    }
    return okMsg(c, http.StatusCreated, "comment saved", echo.Map{"comment_id": id})
}

// ListComments returns an item's comments, oldest first.
func (h *MarketplaceHandler) ListComments(c echo.Context) error {
    itemID, err := pathID(c, "id")
    if err != nil {
        return fail(c, http.StatusBadRequest, "invalid item id")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    comments, err := h.Items.ListComments(ctx, itemID)
    if err != nil {
        return fail(c, http.StatusInternalServerError, "could not list comments")
    }
    return ok(c, http.StatusOK, echo.Map{"comments": comments, "count": len(comments)})
}

// DeleteComment removes the caller's own comment.
func (h *MarketplaceHandler) DeleteComment(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    commentID, err := pathID(c, "id")
    if err != nil {
        return fail(c, http.StatusBadRequest, "invalid comment id")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    switch err := h.Items.DeleteCommentByOwner(ctx, commentID, uid); err {
    case nil:
        return okMsg(c, http.StatusOK, "comment removed", nil)
    case repository.ErrNotFound:
        return fail(c, http.StatusNotFound, "comment not found")
    case repository.ErrForbidden:
        return fail(c, http.StatusForbidden, "not your comment")
    default:
        return fail(c, http.StatusInternalServerError, "could not remove comment")
    }
}

// ListItemReviews returns reviews for a listing.
func (h *MarketplaceHandler) ListItemReviews(c echo.Context) error {
    itemID, err := pathID(c, "id")
    if err != nil {
        return fail(c, http.StatusBadRequest, "invalid item id")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    reviews, err := h.Reviews.ListForItem(ctx, itemID)
    if err != nil {
        return fail(c, http.StatusInternalServerError, "could not list reviews")
    }
    return ok(c, http.StatusOK, echo.Map{"reviews": reviews, "count": len(reviews)})
}

// ReviewItem records a rating for a listing. Sellers cannot review their
// own items.
func (h *MarketplaceHandler) ReviewItem(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    itemID, err := pathID(c, "id")
    if err != nil {
        return fail(c, http.StatusBadRequest, "invalid item id")
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

    it, err := h.Items.GetByID(ctx, itemID)
    if err != nil {
        if err == repository.ErrNotFound {
            return fail(c, http.StatusNotFound, "item not found")
        }
        return fail(c, http.StatusInternalServerError, "could not save review")
    }
    if it.SellerID == uid {
        return fail(c, http.StatusBadRequest, "cannot review your own listing")
    }
    id, err := h.Reviews.Create(ctx, model.Review{
        AuthorID: uid,
        ItemID:   &itemID,
        Rating:   req.Rating,
        Comment:  req.Comment,
    })
    if err != nil {
        return fail(c, http.StatusInternalServerError, "could not save review")
    }
    return okMsg(c, http.StatusCreated, "review saved", echo.Map{"review_id": id})
}

// RequestToBuy registers the caller's interest in a listing and notifies
// the seller. Repeats for the same item are absorbed.
func (h *MarketplaceHandler) RequestToBuy(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    itemID, err := pathID(c, "id")
    if err != nil {
        return fail(c, http.StatusBadRequest, "invalid item id")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    it, err := h.Items.GetByID(ctx, itemID)
    if err != nil {
        if err == repository.ErrNotFound {
            return fail(c, http.StatusNotFound, "item not found")
        }
        return fail(c, http.StatusInternalServerError, "could not send buy request")
    }
    if it.SellerID == uid {
        return fail(c, http.StatusBadRequest, "cannot buy your own listing")
    }

    id, err := h.Items.CreateBuyRequest(ctx, itemID, uid)
    if err != nil {
        return fail(c, http.StatusInternalServerError, "could not send buy request")
    }
    buyer, _ := h.Users.GetByID(ctx, uid)
    h.Notifier.Notify(ctx, it.SellerID, model.NotifBuyRequest,
        "New buy request",
        buyer.Name+" wants to buy "+it.Title,
        map[string]any{"item_id": itemID, "buy_request_id": id, "buyer_id": uid})
    return okMsg(c, http.StatusCreated, "buy request sent", echo.Map{"buy_request_id": id})
}

// AcceptBuyRequest lets the seller accept a pending buy request. On
// acceptance the pair is upserted into an accepted connection so direct
// messaging unlocks between them.
func (h *MarketplaceHandler) AcceptBuyRequest(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    reqID, err := pathID(c, "id")
    if err != nil {
        return fail(c, http.StatusBadRequest, "invalid buy request id")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    br, err := h.Items.GetBuyRequest(ctx, reqID)
    if err != nil {
        if err == repository.ErrNotFound {
            return fail(c, http.StatusNotFound, "buy request not found")
        }
        return fail(c, http.StatusInternalServerError, "could not accept buy request")
    }
    it, err := h.Items.GetByID(ctx, br.ItemID)
    if err != nil {
        return fail(c, http.StatusInternalServerError, "could not accept buy request")
    }
    if it.SellerID != uid {
        return fail(c, http.StatusForbidden, "not your listing")
    }
    if br.Status != model.BuyRequestPending {
        return fail(c, http.StatusConflict, "buy request already answered")
    }

    // Bridge the pair into an accepted connection before flipping the buy
    // request, so chat is open by the time the buyer hears about it.
    mentorID, err := h.Conns.EnsureMentor(ctx, uid)
    if err != nil {
        return fail(c, http.StatusInternalServerError, "could not accept buy request")
    }
    menteeID, err := h.Conns.EnsureMentee(ctx, br.BuyerID)
    if err != nil {
        return fail(c, http.StatusInternalServerError, "could not accept buy request")
    }
    if err := h.Conns.UpsertAccepted(ctx, mentorID, menteeID); err != nil {
        return fail(c, http.StatusInternalServerError, "could not accept buy request")
    }
    if err := h.Items.AcceptBuyRequest(ctx, reqID); err != nil {
        if err == repository.ErrNotPending {
            return fail(c, http.StatusConflict, "buy request already answered")
        }
        return fail(c, http.StatusInternalServerError, "could not accept buy request")
    }

    seller, _ := h.Users.GetByID(ctx, uid)
    h.Notifier.Notify(ctx, br.BuyerID, model.NotifBuyAccepted,
        "Buy request accepted",
        fmt.Sprintf("%s accepted your request for %s. You can chat now.", seller.Name, it.Title),
        map[string]any{"item_id": it.ID, "seller_id": uid})
    return okMsg(c, http.StatusOK, "buy request accepted", nil)
}
