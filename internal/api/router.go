package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoswagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/quickcart/commerce-api/docs"
	"github.com/quickcart/commerce-api/internal/api/handler"
	"github.com/quickcart/commerce-api/internal/api/middleware"
	"github.com/quickcart/commerce-api/internal/core/domain"
	"github.com/quickcart/commerce-api/internal/core/ports"
)

// Deps bundles everything the router wires into handlers.
type Deps struct {
	JWTSecret string
	Log       zerolog.Logger
	DB        *mongo.Database
	RDB       *redis.Client

	Auth       ports.AuthService
	Users      ports.UserService
	Orders     ports.OrderService
	Tickets    ports.TicketService
	Assignment ports.AssignmentService
	Agents     ports.AgentRepository
	Pool       ports.AgentPool
	Queue      ports.AssignmentQueue
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("commerce"))

	auth := middleware.Auth(d.JWTSecret)
	optionalAuth := middleware.OptionalAuth(d.JWTSecret)

	authHandler := handler.NewAuthHandler(d.Auth)
	userHandler := handler.NewUserHandler(d.Users, d.Auth)
	orderHandler := handler.NewOrderHandler(d.Orders, d.Assignment)
	ticketHandler := handler.NewTicketHandler(d.Tickets)
	agentHandler := handler.NewAgentHandler(d.Agents, d.Pool, d.Assignment, d.Queue)

	// --- Auth ---
	e.POST("/auth/register", authHandler.Register, optionalAuth)
	e.POST("/auth/login", authHandler.Login)

	// --- Users ---
	users := e.Group("/users", auth)
	users.GET("/me", userHandler.Me)
	users.PUT("/me/cart", userHandler.ReplaceCart)
	users.POST("/me/cart/items", userHandler.AddCartItem)
	users.DELETE("/me/cart/items/:product_id", userHandler.RemoveCartItem)
	users.PATCH("/:id/roles", userHandler.ChangeRoles,
		middleware.Require(domain.RequireCap(domain.CapAdmin)))

	// --- Orders ---
	orders := e.Group("/orders", auth)
	orders.POST("", orderHandler.Checkout)
	orders.GET("", orderHandler.ListMine)
	orders.GET("/:id", orderHandler.Get)
	orders.POST("/:id/confirm", orderHandler.Confirm,
		middleware.Require(domain.AnyOf(domain.CapAdmin, domain.CapSupportAgent)))
	orders.POST("/:id/assign", orderHandler.Assign,
		middleware.Require(domain.RequireCap(domain.CapAdmin)))
	orders.PATCH("/:id/status", orderHandler.UpdateStatus,
		middleware.Require(domain.AnyOf(domain.CapDeliveryAgent, domain.CapAdmin)))
	orders.POST("/:id/cancel", orderHandler.Cancel)
	orders.POST("/:id/return", orderHandler.Return)

	// --- Agents ---
	agents := e.Group("/agents", auth)
	agents.POST("/heartbeat", agentHandler.Heartbeat,
		middleware.Require(domain.RequireCap(domain.CapDeliveryAgent)))
	agents.PATCH("/availability", agentHandler.SetAvailability,
		middleware.Require(domain.AnyOf(domain.CapDeliveryAgent, domain.CapAdmin)))

	// --- Tickets ---
	tickets := e.Group("/tickets", auth)
	tickets.POST("", ticketHandler.Open)
	tickets.GET("", ticketHandler.ListMine)
	tickets.GET("/:id", ticketHandler.Get)
	tickets.POST("/:id/claim", ticketHandler.Claim,
		middleware.Require(domain.RequireCap(domain.CapSupportAgent)))
	tickets.POST("/:id/messages", ticketHandler.AddMessage)
	tickets.PATCH("/:id/status", ticketHandler.UpdateStatus)
	tickets.POST("/:id/reopen", ticketHandler.Reopen)

	// --- Operational endpoints ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(d.DB, d.RDB)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readinessHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoswagger.WrapHandler)

	return e
}
