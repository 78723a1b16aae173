package httpgin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/astralune/dome-go/internal/domain"
	postgresrepo "github.com/astralune/dome-go/internal/repository/postgres"
	redisrepo "github.com/astralune/dome-go/internal/repository/redis"
	"github.com/astralune/dome-go/internal/service"
	"github.com/astralune/dome-go/internal/service/booking"
	"github.com/astralune/dome-go/internal/service/catalog"
	"github.com/astralune/dome-go/internal/service/query"
	"github.com/astralune/dome-go/internal/service/schedule"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	jwtSecret string,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/", Authenticate(jwtSecret))
	staff := RequireStaff()

	themes := api.Group("/show-themes")
	{
		themes.GET("", handleListThemes(svcs))
		themes.POST("", staff, handleCreateTheme(svcs))
	}

	domes := api.Group("/planetarium-domes")
	{
		domes.GET("", handleListDomes(svcs))
		domes.GET("/:id", handleGetDome(svcs))
		domes.POST("", staff, handleCreateDome(svcs))
		domes.PATCH("/:id", staff, handleUpdateDome(svcs))
	}

	shows := api.Group("/astronomy-shows")
	{
		shows.GET("", handleListShows(svcs))
		shows.GET("/:id", handleGetShow(svcs))
		shows.POST("", staff, handleCreateShow(svcs))
		shows.PATCH("/:id", staff, handleUpdateShow(svcs))
		shows.POST("/:id/upload-image", staff, handleUploadShowImage(svcs))

		// only partial updates are supported
		shows.PUT("/:id", methodNotAllowed)
		shows.DELETE("/:id", methodNotAllowed)
	}

	seasons := api.Group("/show-seasons")
	{
		seasons.GET("", handleListSeasons(svcs))
		seasons.GET("/:id", handleGetSeason(svcs))
		seasons.POST("", staff, handleCreateSeason(svcs))
	}

	reservations := api.Group("/reservations")
	{
		reservations.GET("", handleListReservations(svcs))
		reservations.POST("", handleCreateReservation(svcs, idem))
	}

	return r
}

// --- Handlers with Swagger annotations ---

// @Summary  List show themes
// @Success  200  {array}  domain.ShowTheme
// @Router   /show-themes [get]
func handleListThemes(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svcs.Catalog.ListThemes(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Create show theme
// @Param    req body  CreateThemeRequest true "payload"
// @Success  201 {object} domain.ShowTheme
// @Failure  409 {object} ErrorResponse
// @Router   /show-themes [post]
func handleCreateTheme(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateThemeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		t, err := svcs.Catalog.CreateTheme(c.Request.Context(), req.Name)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, t)
	}
}

// @Summary  List planetarium domes
// @Success  200  {array}  domain.PlanetariumDome
// @Router   /planetarium-domes [get]
func handleListDomes(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svcs.Catalog.ListDomes(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Get planetarium dome
// @Param    id  path  int  true  "Dome ID"
// @Success  200 {object} domain.PlanetariumDome
// @Failure  404 {object} ErrorResponse
// @Router   /planetarium-domes/{id} [get]
func handleGetDome(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		d, err := svcs.Catalog.GetDome(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, d)
	}
}

// @Summary  Create planetarium dome
// @Param    req body  CreateDomeRequest true "payload"
// @Success  201 {object} domain.PlanetariumDome
// @Failure  400 {object} ErrorResponse
// @Router   /planetarium-domes [post]
func handleCreateDome(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateDomeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		d, err := svcs.Catalog.CreateDome(
			c.Request.Context(),
			req.Name,
			req.Rows,
			req.SeatsInRow,
		)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, d)
	}
}

// @Summary  Update planetarium dome
// @Param    id  path  int  true  "Dome ID"
// @Param    req body  UpdateDomeRequest true "payload"
// @Success  200 {object} domain.PlanetariumDome
// @Failure  409 {object} ErrorResponse "booked seats outside new bounds"
// @Router   /planetarium-domes/{id} [patch]
func handleUpdateDome(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req UpdateDomeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		d, err := svcs.Catalog.UpdateDome(
			c.Request.Context(),
			id,
			req.Name,
			req.Rows,
			req.SeatsInRow,
		)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, d)
	}
}

// @Summary  List astronomy shows
// @Param    title  query  string  false "title substring"
// @Param    theme  query  int     false "theme id"
// @Param    limit  query  int     false "page size"
// @Param    offset query  int     false "offset"
// @Success  200  {array}  domain.AstronomyShow
// @Router   /astronomy-shows [get]
func handleListShows(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		f := postgresrepo.ShowFilter{
			Title:  c.Query("title"),
			Limit:  parseIntDefault(c.Query("limit"), 0),
			Offset: parseIntDefault(c.Query("offset"), 0),
		}
		if s := c.Query("theme"); s != "" {
			id, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				badRequest(c, "invalid theme")
				return
			}
			f.ThemeID = id
		}
		out, err := svcs.Query.ListShows(c.Request.Context(), f)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, out, "public, max-age=15", true)
	}
}

// @Summary  Get astronomy show
// @Param    id  path  int  true  "Show ID"
// @Success  200 {object} domain.AstronomyShow
// @Failure  404 {object} ErrorResponse
// @Router   /astronomy-shows/{id} [get]
func handleGetShow(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		s, err := svcs.Query.GetShow(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, s, "public, max-age=60", true)
	}
}

// @Summary  Create astronomy show
// @Param    req body  CreateShowRequest true "payload"
// @Success  201 {object} domain.AstronomyShow
// @Failure  400 {object} ErrorResponse
// @Router   /astronomy-shows [post]
func handleCreateShow(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateShowRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		s, err := svcs.Catalog.CreateShow(
			c.Request.Context(),
			req.Title,
			req.Description,
			req.ThemeIDs,
		)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, s)
	}
}

// @Summary  Update astronomy show
// @Param    id  path  int  true  "Show ID"
// @Param    req body  UpdateShowRequest true "payload"
// @Success  200 {object} domain.AstronomyShow
// @Failure  404 {object} ErrorResponse
// @Router   /astronomy-shows/{id} [patch]
func handleUpdateShow(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req UpdateShowRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		s, err := svcs.Catalog.UpdateShow(
			c.Request.Context(),
			id,
			req.Title,
			req.Description,
			req.ThemeIDs,
		)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, s)
	}
}

// @Summary  Upload show image
// @Param    id    path      int   true  "Show ID"
// @Param    image formData  file  true  "image file"
// @Accept   multipart/form-data
// @Success  200 {object} UploadImageResponse
// @Failure  404 {object} ErrorResponse
// @Router   /astronomy-shows/{id}/upload-image [post]
func handleUploadShowImage(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		fh, err := c.FormFile("image")
		if err != nil {
			badRequest(c, "image file required")
			return
		}
		src, err := fh.Open()
		if err != nil {
			badRequest(c, "cannot read image")
			return
		}
		defer src.Close()

		path, err := svcs.Catalog.UploadShowImage(
			c.Request.Context(),
			id,
			fh.Filename,
			src,
		)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, UploadImageResponse{Image: path})
	}
}

// @Summary  List show seasons
// @Param    show   query  int     false "show id"
// @Param    date   query  string  false "YYYY-MM-DD"
// @Param    limit  query  int     false "page size"
// @Param    offset query  int     false "offset"
// @Success  200  {array}  domain.SeasonDetail
// @Router   /show-seasons [get]
func handleListSeasons(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		f := postgresrepo.SeasonFilter{
			Limit:  parseIntDefault(c.Query("limit"), 0),
			Offset: parseIntDefault(c.Query("offset"), 0),
		}
		if s := c.Query("show"); s != "" {
			id, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				badRequest(c, "invalid show")
				return
			}
			f.ShowID = id
		}
		if s := c.Query("date"); s != "" {
			d, err := time.Parse("2006-01-02", s)
			if err != nil {
				badRequest(c, "invalid date (YYYY-MM-DD)")
				return
			}
			f.Date = &d
		}
		out, err := svcs.Query.ListSeasons(c.Request.Context(), f)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, out, "public, max-age=15", true)
	}
}

// @Summary  Get show season with availability
// @Param    id  path  int  true  "Season ID"
// @Success  200 {object} domain.SeasonDetail
// @Failure  404 {object} ErrorResponse
// @Router   /show-seasons/{id} [get]
func handleGetSeason(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		d, err := svcs.Query.GetSeason(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, d, "public, max-age=15", true)
	}
}

// @Summary  Create show season
// @Param    req body  CreateSeasonRequest true "payload"
// @Success  201 {object} domain.ShowSeason
// @Failure  404 {object} ErrorResponse "show or dome does not exist"
// @Router   /show-seasons [post]
func handleCreateSeason(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateSeasonRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		showTime, err := parseRFC3339(req.ShowTime)
		if err != nil {
			badRequest(c, "invalid show_time (RFC3339)")
			return
		}
		season, err := svcs.Schedule.CreateSeason(
			c.Request.Context(),
			req.ShowID,
			req.DomeID,
			showTime,
		)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, season)
	}
}

// @Summary  List own reservations
// @Param    limit  query  int  false "page size"
// @Param    offset query  int  false "offset"
// @Success  200  {array}  domain.ReservationWithTickets
// @Router   /reservations [get]
func handleListReservations(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := parseIntDefault(c.Query("limit"), 0)
		offset := parseIntDefault(c.Query("offset"), 0)

		out, err := svcs.Booking.ListReservations(
			c.Request.Context(),
			userID(c),
			limit,
			offset,
		)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Create reservation (idempotent)
// @Param    req body  CreateReservationRequest true "payload"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201 {object} domain.ReservationWithTickets
// @Failure  400 {object} FieldErrorResponse "seat out of range"
// @Failure  409 {object} SeatsTakenResponse "seats already taken"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Failure  503 {object} ErrorResponse "booking contention"
// @Router   /reservations [post]
func handleCreateReservation(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateReservationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		uid := userID(c)

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisrepo.KeyIdemReservation(uid, idemKey)

			if payload, ok, _ := idem.GetResult(
				c.Request.Context(),
				idemStorageKey,
			); ok {
				c.Header("Idempotency-Key", idemKey)
				c.Data(
					http.StatusCreated,
					"application/json; charset=utf-8",
					[]byte(payload),
				)
				return
			}

			locked, err := idem.AcquireLock(
				c.Request.Context(),
				idemStorageKey,
				60*time.Second,
			)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if payload, ok, _ := idem.GetResult(
					c.Request.Context(),
					idemStorageKey,
				); ok {
					c.Header("Idempotency-Key", idemKey)
					c.Data(
						http.StatusCreated,
						"application/json; charset=utf-8",
						[]byte(payload),
					)
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(
					http.StatusConflict,
					ErrorResponse{Error: "idempotency key in progress"},
				)
				return
			}
		}

		tickets := make([]domain.TicketRequest, 0, len(req.Tickets))
		for _, t := range req.Tickets {
			tickets = append(tickets, domain.TicketRequest{
				SeasonID: t.SeasonID,
				Row:      t.Row,
				Seat:     t.Seat,
			})
		}

		rlKey := "ip:" + c.ClientIP()

		res, err := svcs.Booking.CreateReservation(
			c.Request.Context(),
			uid,
			tickets,
			rlKey,
		)
		if err != nil {
			if idemStorageKey != "" && idem != nil {
				_ = idem.Release(c.Request.Context(), idemStorageKey)
			}
			respondErr(c, err)
			return
		}

		if idemStorageKey != "" && idem != nil {
			b, _ := json.Marshal(res)
			_ = idem.SaveResult(c.Request.Context(), idemStorageKey, string(b))
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, res)
	}
}

// --- Helpers ---

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	s := c.Param(name)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
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

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func methodNotAllowed(c *gin.Context) {
	c.JSON(
		http.StatusMethodNotAllowed,
		ErrorResponse{Error: "method not allowed, use PATCH"},
	)
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var rangeErr *domain.SeatRangeError
	if errors.As(err, &rangeErr) {
		c.JSON(http.StatusBadRequest, FieldErrorResponse{
			Errors: map[string]string{rangeErr.Field: rangeErr.Error()},
		})
		return
	}

	var takenErr *booking.SeatsTakenError
	if errors.As(err, &takenErr) {
		c.JSON(http.StatusConflict, SeatsTakenResponse{
			Error: "seats already taken",
			Seats: takenErr.Seats,
		})
		return
	}

	var rlErr *booking.RateLimitedError
	if errors.As(err, &rlErr) {
		secs := int(rlErr.RetryAfter / time.Second)
		if secs < 1 {
			secs = 1
		}
		c.Header("Retry-After", strconv.Itoa(secs))
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limited"})
		return
	}

	switch {
	// catalog service
	case errors.Is(err, catalog.ErrInvalidDimensions):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "rows and seats_in_row must be positive"})
		return
	case errors.Is(err, catalog.ErrThemeConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "theme already exists"})
		return
	case errors.Is(err, catalog.ErrThemeNotFound):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "theme does not exist"})
		return
	case errors.Is(err, catalog.ErrShowNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "astronomy show not found"})
		return
	case errors.Is(err, catalog.ErrDomeNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "planetarium dome not found"})
		return
	case errors.Is(err, catalog.ErrDomeShrinkBlocked):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "dome has booked seats outside the new bounds"})
		return
	// schedule service
	case errors.Is(err, schedule.ErrShowNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "astronomy show not found"})
		return
	case errors.Is(err, schedule.ErrDomeNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "planetarium dome not found"})
		return
	case errors.Is(err, schedule.ErrSeasonNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "show season not found"})
		return
	// query service
	case errors.Is(err, query.ErrShowNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "astronomy show not found"})
		return
	case errors.Is(err, query.ErrSeasonNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "show season not found"})
		return
	// booking service
	case errors.Is(err, booking.ErrNoTickets):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "no tickets requested"})
		return
	case errors.Is(err, booking.ErrBatchTooLarge):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "too many tickets in one reservation"})
		return
	case errors.Is(err, booking.ErrSeasonNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "show season not found"})
		return
	case errors.Is(err, booking.ErrSeatsTaken):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "some seats are already taken"})
		return
	case errors.Is(err, booking.ErrContention):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "busy, retry"})
		return
	}

	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}
