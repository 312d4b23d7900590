package server

import (
	"time"

	"github.com/Libertai/libertai-inference/internal/auth"
	"github.com/Libertai/libertai-inference/internal/config"
	"github.com/Libertai/libertai-inference/internal/credits"
	"github.com/Libertai/libertai-inference/internal/webhook/thirdweb"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func NewRouter(
	cfg config.Config,
	authSvc *auth.Service,
	creditsSvc *credits.Service,
	webhookH *thirdweb.Handler,
	hub *EventHub,
	basePoller, solanaPoller ChainPoller,
) *gin.Engine {
	r := gin.New()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"*"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	authH := newAuthHandler(authSvc)
	r.GET("/auth/nonce", authH.Nonce)
	r.POST("/auth/login", authH.Login)

	creditsH := newCreditsHandler(creditsSvc, basePoller, solanaPoller)
	voucherH := newVoucherHandler(creditsSvc, cfg.Credits.VoucherPasswords)

	cr := r.Group("/credits")
	{
		guard := auth.JWTMiddleware(authSvc)
		cr.GET("/balance", guard, creditsH.Balance)
		cr.GET("/transactions", guard, creditsH.Transactions)

		cr.POST("/vouchers", voucherH.Add)
		cr.GET("/vouchers", voucherH.List)
		cr.POST("/voucher/expiration", voucherH.ChangeExpiration)

		cr.POST("/thirdweb/webhook", webhookH.HandleWebhook)

		cr.POST("/base/process", creditsH.ProcessBase)
		cr.POST("/solana/process", creditsH.ProcessSolana)
		cr.POST("/update-expired", creditsH.UpdateExpired)
	}

	r.GET("/ws/credits", hub.ServeWS)

	return r
}
