// Package router maps the HTTP surface onto handlers. Route groups are
// registered per concern so main can wire each area with exactly the
// middleware it needs.
package router

import (
    "github.com/labstack/echo/v4"

    "github.com/koshhq/kosh-backend/internal/handler"
    "github.com/koshhq/kosh-backend/internal/middleware"
    "github.com/koshhq/kosh-backend/internal/ws"
)

// RegisterRoutes registers the routes that carry no authentication at
// all. Currently that is only the health check used by load balancers.
func RegisterRoutes(e *echo.Echo) {
    e.GET("/healthz", handler.Health)
}

// RegisterAuth wires the signup/login surface. The otpLimit middleware
// guards the endpoints that trigger outbound mail, loginLimit guards
// credential guessing; both fail open when Redis is unavailable.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, secret string, users middleware.UserLoader,
    loginLimit, otpLimit echo.MiddlewareFunc) {

    g := e.Group("/api/auth")
    g.POST("/signup", a.Signup, otpLimit)
    g.POST("/verify-otp", a.VerifyOTP, otpLimit)
    g.POST("/resend-otp", a.ResendOTP, otpLimit)
    g.POST("/login", a.Login, loginLimit)
    g.POST("/refresh", a.Refresh)
    g.POST("/logout", a.Logout)

    e.POST("/api/auth/logout-all", a.LogoutAll, middleware.JWTAuth(secret, users))

    p := e.Group("/api/auth/profile", middleware.JWTAuth(secret, users))
    p.GET("", a.Profile)
    p.PUT("", a.UpdateProfile)
}

// RegisterMentorship wires mentor discovery and the connection request
// lifecycle. Everything here requires a verified session.
func RegisterMentorship(e *echo.Echo, m *handler.MentorshipHandler, secret string, users middleware.UserLoader) {
    g := e.Group("/api/mentorship", middleware.JWTAuth(secret, users))

    g.GET("/mentors", m.ListMentors)
    g.POST("/become-mentor", m.BecomeMentor)
    g.GET("/mentor-status", m.MentorStatus)
    g.GET("/mentors/:id/reviews", m.MentorReviews)
    g.POST("/mentors/:id/reviews", m.ReviewMentor)

    g.POST("/connect", m.Connect)
    g.GET("/requests/incoming", m.IncomingRequests)
    g.GET("/requests/outgoing", m.OutgoingRequests)
    g.POST("/requests/:id/respond", m.Respond)
    g.DELETE("/requests/:id", m.Cancel)
    g.GET("/connected", m.Connections)
}

// RegisterMarketplace wires listings, comments, reviews and buy requests.
// Browse endpoints are public and sit behind the response cache; writes
// require a session.
func RegisterMarketplace(e *echo.Echo, m *handler.MarketplaceHandler, secret string, users middleware.UserLoader,
    cache echo.MiddlewareFunc) {

    // The cached listing stays fully anonymous; the shared response cache
    // must never serve one caller's personalization to another. The item
    // detail is uncached and resolves the viewer when a token is present.
    opt := middleware.OptionalAuth(secret, users)
    e.GET("/api/marketplace/items", m.ListItems, cache)
    e.GET("/api/marketplace/items/:id", m.GetItem, opt)
    e.GET("/api/marketplace/items/:id/comments", m.ListComments)
    e.GET("/api/marketplace/items/:id/reviews", m.ListItemReviews)

    g := e.Group("/api/marketplace", middleware.JWTAuth(secret, users))
    g.POST("/items", m.CreateItem)
    g.DELETE("/items/:id", m.DeleteItem)
    g.POST("/items/:id/comments", m.CreateComment)
    g.DELETE("/comments/:id", m.DeleteComment)
    g.POST("/items/:id/reviews", m.ReviewItem)
    g.POST("/items/:id/buy", m.RequestToBuy)
    g.POST("/buy-requests/:id/accept", m.AcceptBuyRequest)
}

// RegisterChat wires message history and the REST send path.
func RegisterChat(e *echo.Echo, ch *handler.ChatHandler, secret string, users middleware.UserLoader) {
    g := e.Group("/api/chat", middleware.JWTAuth(secret, users))

    g.POST("/messages", ch.Send)
    g.GET("/unread-count", ch.UnreadCount)
    // :id is the counterpart user for history/read, the message for delete.
    g.GET("/messages/:id", ch.History)
    g.POST("/messages/:id/read", ch.MarkRead)
    g.DELETE("/messages/:id", ch.Delete)
    g.GET("/conversations", ch.Conversations)
    g.GET("/online-users", ch.OnlineUsers)
}

// RegisterNotifications wires the per-user notification feed.
func RegisterNotifications(e *echo.Echo, n *handler.NotificationHandler, secret string, users middleware.UserLoader) {
    g := e.Group("/api/notifications", middleware.JWTAuth(secret, users))

    g.GET("", n.List)
    g.GET("/unread-count", n.UnreadCount)
    g.POST("/:id/read", n.MarkRead)
    g.POST("/read-all", n.MarkAllRead)
    g.DELETE("/clear-read", n.ClearRead)
    g.DELETE("/:id", n.Delete)
}

// RegisterTasks wires the personal task planner.
func RegisterTasks(e *echo.Echo, t *handler.TaskHandler, secret string, users middleware.UserLoader) {
    g := e.Group("/api/tasks", middleware.JWTAuth(secret, users))

    g.POST("", t.Create)
    g.GET("", t.List)
    g.PUT("/:id", t.Update)
    g.DELETE("/:id", t.Delete)
}

// RegisterWS mounts the socket gateway. The handler authenticates the
// token itself (sockets cannot rely on the HTTP middleware once upgraded).
func RegisterWS(e *echo.Echo, hub *ws.Hub, secret string) {
    e.GET("/ws", ws.Serve(hub, secret))
}
