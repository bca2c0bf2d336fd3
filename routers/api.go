package routers

import (
	"database/sql"
	"log"
	"os"
	"time"

	"keuanganapi/controllers"
	"keuanganapi/ledger"
	"keuanganapi/middlewares"
	"keuanganapi/rekap"
	"keuanganapi/scheduler"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
)

func Route() (*gin.Engine, *scheduler.Worker) {
	router := gin.Default()
	router.Use(CORS())
	api := controllers.NewAPI()

	api.Db = newDB(nil)
	api.Db.SetConnMaxLifetime(5 * time.Minute)
	redisHost := os.Getenv("REDIS_HOST")
	redisPort := os.Getenv("REDIS_PORT")

	api.Redis = redis.NewClient(&redis.Options{
		Addr: redisHost + ":" + redisPort,
		DB:   0,
	})

	loc := reportLocation()

	api.Ledger = ledger.NewEngine(api.Db)
	api.Ledger.MirrorPartner = os.Getenv("LEDGER_MIRROR_PARTNER") == "true"
	api.Rekap = rekap.NewAggregator(api.Db, loc)

	worker := scheduler.New(api.Db, api.Rekap, loc)

	router.POST("/api/login", api.Authenticate)
	router.POST("/api/register", api.Register)
	router.GET("/api/check-session", middlewares.Auth(api.Redis), api.CheckSession)
	router.GET("/api/refresh-session", middlewares.Auth(api.Redis), api.RefreshSession)
	router.GET("/api/logout", middlewares.Auth(api.Redis), api.Logout)
	router.POST("/api/forgot-password", api.ForgotPassword)
	router.GET("/api/verify-token/:token", api.VerifyTokenReset)
	router.POST("/api/reset-password/:token", api.UpdateUserReset)

	users := router.Group("/api/users")
	users.Use(middlewares.Auth(api.Redis))
	{
		users.GET("/profile", api.GetUser)
		users.PUT("/profile", api.UpdateUser)
	}

	sources := router.Group("/api/sources")
	sources.Use(middlewares.Auth(api.Redis))
	{
		sources.GET("", api.GetSources)
		sources.POST("", api.CreateSource)
		sources.GET("/:id", api.GetSource)
		sources.PUT("/:id", api.UpdateSource)
		sources.POST("/:id/adjust", api.AdjustSource)
		sources.DELETE("/:id", api.DeleteSource)
	}

	expenses := router.Group("/api/expenses")
	expenses.Use(middlewares.Auth(api.Redis))
	{
		expenses.GET("", api.GetExpenses)
		expenses.GET("/debt", api.GetDebtExpenses)
		expenses.POST("", api.CreateExpense)
		expenses.PUT("/:id", api.UpdateExpense)
		expenses.DELETE("/:id", api.DeleteExpense)
	}

	debts := router.Group("/api/debts")
	debts.Use(middlewares.Auth(api.Redis))
	{
		debts.GET("", api.GetDebts)
		debts.POST("", api.CreateDebt)
		debts.POST("/pay", api.PayDebt)
		debts.PUT("/:id", api.UpdateDebt)
		debts.DELETE("/:id", api.DeleteDebt)
	}

	notes := router.Group("/api/notes")
	notes.Use(middlewares.Auth(api.Redis))
	{
		notes.GET("", api.GetNotes)
		notes.POST("", api.CreateNote)
		notes.PUT("/:id", api.UpdateNote)
		notes.DELETE("/:id", api.DeleteNote)
	}

	rekaps := router.Group("/api/rekap")
	rekaps.Use(middlewares.Auth(api.Redis))
	{
		rekaps.GET("/expenses", api.GetExpenseRekaps)
		rekaps.GET("/incomes", api.GetIncomeRekaps)
		rekaps.POST("/expenses", api.RunExpenseRekap)
		rekaps.POST("/incomes", api.RunIncomeRekap)
	}

	return router, worker
}

// CORS Cross Origin Resource Sharing
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, "+
			"Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func reportLocation() *time.Location {
	name := os.Getenv("REPORT_TIMEZONE")
	if name == "" {
		name = "Asia/Jakarta"
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("invalid REPORT_TIMEZONE %q, falling back to UTC: %v", name, err)
		return time.UTC
	}

	return loc
}

func newDB(indb *sql.DB) *sql.DB {
	if indb != nil {
		return indb
	}
	connString := os.Getenv("DB_CONNECTION_STRING")
	if connString == "" {
		log.Fatal("Please provide DB_CONNECTION_STRING environment variable")
	}

	log.Println(connString)

	var err error
	conn, err := sql.Open("postgres", connString)
	if err != nil {
		log.Fatalf("Cannot connect to db with connection %s: %v", connString, err)
	}

	err = conn.Ping()
	if err != nil {
		log.Fatal(err)
	}

	return conn
}
