package httpgin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/A7k6h7i0/sports-facility-booking/internal/domain"
	"github.com/A7k6h7i0/sports-facility-booking/internal/metrics"
	redisrepo "github.com/A7k6h7i0/sports-facility-booking/internal/repository/redis"
	"github.com/A7k6h7i0/sports-facility-booking/internal/service"
	"github.com/A7k6h7i0/sports-facility-booking/internal/service/admin"
	"github.com/A7k6h7i0/sports-facility-booking/internal/service/booking"
	"github.com/A7k6h7i0/sports-facility-booking/internal/service/catalog"
	"github.com/A7k6h7i0/sports-facility-booking/internal/service/pricing"
)

const idemLockTTL = 60 * time.Second

var registerValidators = sync.OnceFunc(func() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
			_, err := domain.ParseClock(fl.Field().String())
			return err == nil
		})
	}
})

// NewRouter mounts the public catalog, the authenticated booking API and the
// admin API. idem may be nil, which turns Idempotency-Key handling off.
func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	jwtSecret []byte,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	registerValidators()

	r := gin.New()

	r.Use(gin.Recovery(), RequestIDMiddleware(), LoggingMiddleware(logger), metrics.GinMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public API
	r.GET("/courts", handleListCourts(svcs))
	r.GET("/courts/:id", handleGetCourt(svcs))
	r.GET("/courts/:id/schedule", handleCourtSchedule(svcs))
	r.GET("/equipment", handleListEquipment(svcs))
	r.GET("/equipment/:id", handleGetEquipment(svcs))
	r.GET("/coaches", handleListCoaches(svcs))
	r.GET("/coaches/:id", handleGetCoach(svcs))
	r.POST("/pricing/estimate", handleEstimate(svcs))

	auth := AuthMiddleware(jwtSecret)
	adminOnly := RequireRole(domain.RoleAdmin)

	bookings := r.Group("/bookings", auth)
	{
		bookings.POST("/check-availability", handleCheckAvailability(svcs))
		bookings.POST("", handleCreateBooking(svcs, idem))
		bookings.GET("", handleListMyBookings(svcs))
		bookings.GET("/all", adminOnly, handleListAllBookings(svcs))
		bookings.GET("/:id", handleGetBooking(svcs))
		bookings.PUT("/:id/cancel", handleCancelBooking(svcs))
	}

	adm := r.Group("/admin", auth, adminOnly)
	{
		adm.GET("/pricing-rules", handleListRules(svcs))
		adm.POST("/pricing-rules", handleCreateRule(svcs))
		adm.PUT("/pricing-rules/:id", handleUpdateRule(svcs))
		adm.DELETE("/pricing-rules/:id", handleDeleteRule(svcs))
		adm.PATCH("/courts/:id/toggle", handleToggleCourt(svcs))
		adm.PATCH("/equipment/:id/toggle", handleToggleEquipment(svcs))
		adm.PATCH("/coaches/:id/toggle", handleToggleCoach(svcs))
	}

	return r
}

// --- Catalog ---

// @Summary  List courts
// @Tags     catalog
// @Param    active  query  bool  false  "only active courts (default true)"
// @Success  200  {object}  ListResponse[domain.Court]
// @Router   /courts [get]
func handleListCourts(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		courts, err := svcs.Catalog.ListCourts(c.Request.Context(), activeOnly(c))
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, listOf(courts), cacheCatalog)
	}
}

// @Summary  Get court
// @Tags     catalog
// @Param    id  path  string  true  "Court ID (uuid)"
// @Success  200  {object}  domain.Court
// @Failure  404  {object}  ErrorResponse
// @Router   /courts/{id} [get]
func handleGetCourt(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		court, err := svcs.Catalog.GetCourt(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, court, cacheCatalog)
	}
}

// @Summary  Busy slots of a court for one facility day
// @Tags     catalog
// @Param    id    path   string  true  "Court ID (uuid)"
// @Param    date  query  string  true  "YYYY-MM-DD"
// @Success  200  {object}  catalog.Schedule
// @Failure  400  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /courts/{id}/schedule [get]
func handleCourtSchedule(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		s, err := svcs.Catalog.CourtSchedule(c.Request.Context(), id, c.Query("date"))
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, s, cacheSchedule)
	}
}

// @Summary  List equipment
// @Tags     catalog
// @Param    active  query  bool  false  "only active items (default true)"
// @Success  200  {object}  ListResponse[domain.Equipment]
// @Router   /equipment [get]
func handleListEquipment(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := svcs.Catalog.ListEquipment(c.Request.Context(), activeOnly(c))
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, listOf(items), cacheCatalog)
	}
}

// @Summary  Get equipment item
// @Tags     catalog
// @Param    id  path  string  true  "Equipment ID (uuid)"
// @Success  200  {object}  domain.Equipment
// @Failure  404  {object}  ErrorResponse
// @Router   /equipment/{id} [get]
func handleGetEquipment(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		item, err := svcs.Catalog.GetEquipment(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, item, cacheCatalog)
	}
}

// @Summary  List coaches
// @Tags     catalog
// @Param    active  query  bool  false  "only active coaches (default true)"
// @Success  200  {object}  ListResponse[domain.Coach]
// @Router   /coaches [get]
func handleListCoaches(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		coaches, err := svcs.Catalog.ListCoaches(c.Request.Context(), activeOnly(c))
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, listOf(coaches), cacheCatalog)
	}
}

// @Summary  Get coach
// @Tags     catalog
// @Param    id  path  string  true  "Coach ID (uuid)"
// @Success  200  {object}  domain.Coach
// @Failure  404  {object}  ErrorResponse
// @Router   /coaches/{id} [get]
func handleGetCoach(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		coach, err := svcs.Catalog.GetCoach(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, coach, cacheCatalog)
	}
}

// @Summary  Price estimate without booking
// @Tags     pricing
// @Param    req  body  ResourcesRequest  true  "payload"
// @Success  200  {object}  pricing.Quote
// @Failure  400  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /pricing/estimate [post]
func handleEstimate(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ResourcesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		q, err := svcs.Booking.Estimate(c.Request.Context(), req.quoteRequest())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, q)
	}
}

// --- Bookings ---

// @Summary  Check availability of court, equipment and coach
// @Tags     bookings
// @Security BearerAuth
// @Param    req  body  ResourcesRequest  true  "payload"
// @Success  200  {object}  availability.Result
// @Failure  400  {object}  ErrorResponse
// @Router   /bookings/check-availability [post]
func handleCheckAvailability(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ResourcesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		res, err := svcs.Booking.CheckAvailability(c.Request.Context(), req.availabilityRequest())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// @Summary  Create booking (idempotent)
// @Tags     bookings
// @Security BearerAuth
// @Param    Idempotency-Key  header  string  false  "replays the first response for the same key"
// @Param    req  body  CreateBookingRequest  true  "payload"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201  {object}  domain.BookingDetails
// @Failure  400  {object}  ErrorResponse
// @Failure  409  {object}  UnavailableResponse  "resources unavailable / idem in progress"
// @Failure  429  {object}  ErrorResponse  "rate limited"
// @Router   /bookings [post]
func handleCreateBooking(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, _ := principalFrom(c)

		var req CreateBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		ctx := c.Request.Context()
		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			key := redisrepo.KeyIdemBooking(p.ID, idemKey)

			if payload, ok, _ := idem.GetResult(ctx, key); ok {
				replay(c, idemKey, payload)
				return
			}

			locked, err := idem.AcquireLock(ctx, key, idemLockTTL)
			switch {
			case err != nil:
				// Redis is down: serve the request without replay protection.
				_ = c.Error(err)
			case !locked:
				if payload, ok, _ := idem.GetResult(ctx, key); ok {
					replay(c, idemKey, payload)
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress"})
				return
			default:
				idemStorageKey = key
			}
		}

		b, err := svcs.Booking.Create(ctx, p, req.input())
		if err != nil {
			if idemStorageKey != "" {
				_ = idem.Release(ctx, idemStorageKey)
			}
			respondErr(c, err)
			return
		}

		if idemStorageKey != "" {
			payload, _ := json.Marshal(b)
			_ = idem.SaveResult(ctx, idemStorageKey, string(payload))
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, b)
	}
}

// @Summary  List the caller's bookings
// @Tags     bookings
// @Security BearerAuth
// @Success  200  {object}  ListResponse[domain.BookingDetails]
// @Router   /bookings [get]
func handleListMyBookings(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, _ := principalFrom(c)
		list, err := svcs.Booking.ListMine(c.Request.Context(), p)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, listOf(list))
	}
}

// @Summary  List every booking (admin)
// @Tags     bookings
// @Security BearerAuth
// @Param    limit   query  int  false  "page size"
// @Param    offset  query  int  false  "offset"
// @Success  200  {object}  ListResponse[domain.BookingDetails]
// @Failure  403  {object}  ErrorResponse
// @Router   /bookings/all [get]
func handleListAllBookings(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, _ := principalFrom(c)
		limit := parseIntDefault(c.Query("limit"), 50)
		offset := parseIntDefault(c.Query("offset"), 0)

		list, err := svcs.Booking.ListAll(c.Request.Context(), p, limit, offset)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, listOf(list))
	}
}

// @Summary  Get booking
// @Tags     bookings
// @Security BearerAuth
// @Param    id  path  string  true  "Booking ID (uuid)"
// @Success  200  {object}  domain.BookingDetails
// @Failure  403  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /bookings/{id} [get]
func handleGetBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		p, _ := principalFrom(c)
		b, err := svcs.Booking.Get(c.Request.Context(), p, id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// @Summary  Cancel booking
// @Tags     bookings
// @Security BearerAuth
// @Param    id  path  string  true  "Booking ID (uuid)"
// @Success  200  {object}  domain.BookingDetails
// @Failure  403  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse  "already cancelled"
// @Router   /bookings/{id}/cancel [put]
func handleCancelBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		p, _ := principalFrom(c)
		b, err := svcs.Booking.Cancel(c.Request.Context(), p, id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// --- Admin ---

// @Summary  List pricing rules
// @Tags     admin
// @Security BearerAuth
// @Success  200  {object}  ListResponse[domain.PricingRule]
// @Router   /admin/pricing-rules [get]
func handleListRules(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		rules, err := svcs.Admin.ListRules(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, listOf(rules))
	}
}

// @Summary  Create pricing rule
// @Tags     admin
// @Security BearerAuth
// @Param    req  body  PricingRuleRequest  true  "payload"
// @Success  201  {object}  domain.PricingRule
// @Failure  400  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse
// @Router   /admin/pricing-rules [post]
func handleCreateRule(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PricingRuleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		rule, err := svcs.Admin.CreateRule(c.Request.Context(), req.rule())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, rule)
	}
}

// @Summary  Replace pricing rule
// @Tags     admin
// @Security BearerAuth
// @Param    id   path  string              true  "Rule ID (uuid)"
// @Param    req  body  PricingRuleRequest  true  "payload"
// @Success  200  {object}  domain.PricingRule
// @Failure  400  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse
// @Router   /admin/pricing-rules/{id} [put]
func handleUpdateRule(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		var req PricingRuleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		rule, err := svcs.Admin.UpdateRule(c.Request.Context(), id, req.rule())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, rule)
	}
}

// @Summary  Delete pricing rule
// @Tags     admin
// @Security BearerAuth
// @Param    id  path  string  true  "Rule ID (uuid)"
// @Success  204
// @Failure  404  {object}  ErrorResponse
// @Router   /admin/pricing-rules/{id} [delete]
func handleDeleteRule(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		if err := svcs.Admin.DeleteRule(c.Request.Context(), id); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  Toggle court active flag
// @Tags     admin
// @Security BearerAuth
// @Param    id  path  string  true  "Court ID (uuid)"
// @Success  200  {object}  domain.Court
// @Failure  404  {object}  ErrorResponse
// @Router   /admin/courts/{id}/toggle [patch]
func handleToggleCourt(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		court, err := svcs.Admin.ToggleCourt(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, court)
	}
}

// @Summary  Toggle equipment active flag
// @Tags     admin
// @Security BearerAuth
// @Param    id  path  string  true  "Equipment ID (uuid)"
// @Success  200  {object}  domain.Equipment
// @Failure  404  {object}  ErrorResponse
// @Router   /admin/equipment/{id}/toggle [patch]
func handleToggleEquipment(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		item, err := svcs.Admin.ToggleEquipment(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, item)
	}
}

// @Summary  Toggle coach active flag
// @Tags     admin
// @Security BearerAuth
// @Param    id  path  string  true  "Coach ID (uuid)"
// @Success  200  {object}  domain.Coach
// @Failure  404  {object}  ErrorResponse
// @Router   /admin/coaches/{id}/toggle [patch]
func handleToggleCoach(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		coach, err := svcs.Admin.ToggleCoach(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, coach)
	}
}

// --- Helpers ---

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func activeOnly(c *gin.Context) bool {
	return c.DefaultQuery("active", "true") != "false"
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func replay(c *gin.Context, idemKey, payload string) {
	c.Header("Idempotency-Key", idemKey)
	c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
}

func retryAfterSeconds(d time.Duration) string {
	return strconv.Itoa(max(1, int(math.Ceil(d.Seconds()))))
}

var errStatuses = []struct {
	target error
	status int
}{
	{booking.ErrBookingNotFound, http.StatusNotFound},
	{catalog.ErrCourtNotFound, http.StatusNotFound},
	{catalog.ErrEquipmentNotFound, http.StatusNotFound},
	{catalog.ErrCoachNotFound, http.StatusNotFound},
	{pricing.ErrCourtNotFound, http.StatusNotFound},
	{admin.ErrRuleNotFound, http.StatusNotFound},
	{admin.ErrCourtNotFound, http.StatusNotFound},
	{admin.ErrEquipmentNotFound, http.StatusNotFound},
	{admin.ErrCoachNotFound, http.StatusNotFound},

	{domain.ErrInvalidDuration, http.StatusBadRequest},
	{domain.ErrInvalidQuantity, http.StatusBadRequest},
	{domain.ErrInvalidRule, http.StatusBadRequest},
	{catalog.ErrInvalidDate, http.StatusBadRequest},

	{booking.ErrUnauthorized, http.StatusForbidden},

	{booking.ErrResourceUnavailable, http.StatusConflict},
	{booking.ErrAlreadyCancelled, http.StatusConflict},
	{booking.ErrNotCancellable, http.StatusConflict},
	{admin.ErrRuleConflict, http.StatusConflict},
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var unavailable booking.UnavailableError
	if errors.As(err, &unavailable) {
		c.JSON(http.StatusConflict, UnavailableResponse{
			Error:        booking.ErrResourceUnavailable.Error(),
			Message:      unavailable.Error(),
			Availability: unavailable.Result,
		})
		return
	}

	var limited booking.RateLimitedError
	if errors.As(err, &limited) {
		c.Header("Retry-After", retryAfterSeconds(limited.RetryAfter))
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: booking.ErrRateLimited.Error()})
		return
	}

	if errors.Is(err, booking.ErrTransactionAborted) {
		c.Header("Retry-After", "1")
		c.JSON(http.StatusConflict, ErrorResponse{Error: booking.ErrTransactionAborted.Error()})
		return
	}

	for _, m := range errStatuses {
		if errors.Is(err, m.target) {
			c.JSON(m.status, ErrorResponse{Error: m.target.Error()})
			return
		}
	}

	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}
