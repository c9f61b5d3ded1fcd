package routes

import (
	"net/http"
	"time"

	"github.com/CMoments/Online-life/controllers/auth"
	"github.com/CMoments/Online-life/controllers/users"
	"github.com/CMoments/Online-life/middleware"

	"github.com/gorilla/mux"
)

// UsersRoutes registers all user-facing routes on the given subrouter.
func UsersRoutes(api *mux.Router) {
	// Rate limiter login/register: 60 per IP per 5 minutes
	loginLimiter := middleware.NewIPRateLimiter(60, 5*time.Minute)
	// Rate limiter session: 120 reads per user per minute, 60 payment writes
	userLimiter := middleware.NewUserRateLimiter(120, 60, 60)

	authed := func(h http.HandlerFunc) http.Handler {
		return userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(h)))
	}

	// Register & Login
	api.Handle("/register", loginLimiter.Middleware(http.HandlerFunc(auth.RegisterHandler))).Methods(http.MethodPost)
	api.Handle("/login", loginLimiter.Middleware(http.HandlerFunc(auth.LoginHandler))).Methods(http.MethodPost)
	api.Handle("/refresh", loginLimiter.Middleware(http.HandlerFunc(auth.RefreshHandler))).Methods(http.MethodPost)
	api.Handle("/logout", authed(auth.LogoutHandler)).Methods(http.MethodPost)

	// User info
	api.Handle("/users/info", authed(users.InfoHandler)).Methods(http.MethodGet)

	// Orders
	api.Handle("/orders", authed(users.CreateOrderHandler)).Methods(http.MethodPost)
	api.Handle("/orders", authed(users.ListOrdersHandler)).Methods(http.MethodGet)
	api.Handle("/orders/available", authed(users.AvailableOrdersHandler)).Methods(http.MethodGet)
	api.Handle("/orders/statistics", authed(users.OrderStatisticsHandler)).Methods(http.MethodGet)
	api.Handle("/orders/{id:[0-9]+}", authed(users.GetOrderHandler)).Methods(http.MethodGet)
	api.Handle("/orders/{id:[0-9]+}/accept", authed(users.AcceptOrderHandler)).Methods(http.MethodPost)
	api.Handle("/orders/{id:[0-9]+}/start", authed(users.StartOrderHandler)).Methods(http.MethodPost)
	api.Handle("/orders/{id:[0-9]+}/complete", authed(users.CompleteOrderHandler)).Methods(http.MethodPost)
	api.Handle("/orders/{id:[0-9]+}/cancel", authed(users.CancelOrderHandler)).Methods(http.MethodPost)

	// Payments
	api.Handle("/orders/{id:[0-9]+}/payment/points-info", authed(users.PointsPaymentInfoHandler)).Methods(http.MethodGet)
	api.Handle("/orders/{id:[0-9]+}/pay", authed(users.PayOrderHandler)).Methods(http.MethodPost)

	// Group tasks
	api.Handle("/group-tasks", authed(users.CreateGroupTaskHandler)).Methods(http.MethodPost)
	api.Handle("/group-tasks", authed(users.ListGroupTasksHandler)).Methods(http.MethodGet)
	api.Handle("/group-tasks/{id:[0-9]+}", authed(users.GroupTaskStatusHandler)).Methods(http.MethodGet)
	api.Handle("/group-tasks/{id:[0-9]+}/join", authed(users.JoinGroupTaskHandler)).Methods(http.MethodPost)
	api.Handle("/group-tasks/{id:[0-9]+}/leave", authed(users.LeaveGroupTaskHandler)).Methods(http.MethodPost)
	api.Handle("/tasks/{id:[0-9]+}/leave", authed(users.LeaveTaskHandler)).Methods(http.MethodPost)

	// Bidding
	api.Handle("/tasks/biddable", authed(users.BiddableTasksHandler)).Methods(http.MethodGet)
	api.Handle("/tasks/{id:[0-9]+}/bids", authed(users.PlaceBidHandler)).Methods(http.MethodPost)
	api.Handle("/tasks/{id:[0-9]+}/bids/{bid_id:[0-9]+}/accept", authed(users.AcceptBidHandler)).Methods(http.MethodPost)
	api.Handle("/users/bids", authed(users.MyBidsHandler)).Methods(http.MethodGet)

	// Points
	api.Handle("/points/balance", authed(users.PointsBalanceHandler)).Methods(http.MethodGet)
	api.Handle("/points/transfer", authed(users.TransferPointsHandler)).Methods(http.MethodPost)
	api.Handle("/points/history", authed(users.PointsHistoryHandler)).Methods(http.MethodGet)
	api.Handle("/points/ranking", authed(users.PointsRankingHandler)).Methods(http.MethodGet)

	// Reviews
	api.Handle("/reviews", authed(users.SubmitReviewHandler)).Methods(http.MethodPost)
	api.Handle("/users/{id:[0-9]+}/reputation", authed(users.ReputationHandler)).Methods(http.MethodGet)
}
