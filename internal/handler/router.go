package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter builds the API engine.
func SetupRouter(h *Handler, parser TokenParser) *gin.Engine {
	r := gin.New()

	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	api := r.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", h.Register)
			auth.POST("/login", h.Login)
		}

		protected := api.Group("")
		protected.Use(AuthMiddleware(parser))

		user := protected.Group("/user")
		{
			user.GET("/information", h.GetProfile)
			user.GET("/leaderboard/points", h.Leaderboard)
		}

		nft := protected.Group("/nft")
		{
			nft.GET("/NFT-market-place", h.Marketplace)
			nft.POST("/mint-nft", h.Mint)
			nft.POST("/config-sell", h.SellFixedPrice)
			nft.POST("/buy-NFT-at-fixed-price", h.BuyAtFixedPrice)
			nft.POST("/config-auction", h.ConfigAuction)
			nft.POST("/end-auction", h.EndAuction)
			nft.POST("/cancel-config", h.CancelConfig)
			nft.GET("/list-offer", h.ListOffers)
			nft.POST("/config-offer", h.TurnOnOffer)
			nft.POST("/make-offer", h.MakeOffer)
			nft.POST("/cancel-offer", h.CancelOffer)
			nft.POST("/approve-offer", h.ApproveOffer)
			nft.POST("/reject-offer", h.RejectOffer)
			nft.POST("/make-bid", h.MakeBid)
			nft.GET("/list-bid", h.ListBids)
			nft.GET("/sale-history", h.SaleHistory)
			nft.GET("/estimate-fee", h.EstimateFee)
		}

		wallet := protected.Group("/wallet")
		{
			wallet.POST("/sent-token", h.SendToken)
			wallet.POST("/sent-NFT", h.SendNFT)
			wallet.GET("/my-wallet", h.MyWallet)
			wallet.GET("/view-NFT", h.ViewNFTs)
			wallet.GET("/view-NFT-detail", h.ViewNFTDetail)
		}

		activity := protected.Group("/activity")
		{
			activity.GET("", h.ListActivities)
			activity.GET("/:id", h.ActivityDetail)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}
