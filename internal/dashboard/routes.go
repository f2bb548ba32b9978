package dashboard

import (
	"github.com/gin-gonic/gin"
)

// api holds the handler dependencies.
type api struct {
	Services
}

// registerRoutes sets up all dashboard routes on the Gin router.
func registerRoutes(router *gin.Engine, a *api) {
	router.GET("/healthz", a.handleHealth)

	pub := router.Group("/api")
	pub.POST("/auth/signup", a.handleSignUp)
	pub.POST("/auth/signin", a.handleSignIn)
	pub.GET("/feedback", a.handleListFeedback)

	priv := router.Group("/api", requireAuth(a.DB))
	priv.POST("/auth/signout", a.handleSignOut)

	priv.GET("/profile", a.handleGetProfile)
	priv.PUT("/profile", a.handleUpdateProfile)

	priv.GET("/wallets", a.handleListWallets)
	priv.POST("/wallets", a.handleCreateWallet)
	priv.DELETE("/wallets/:id", a.handleDeleteWallet)
	priv.POST("/wallets/:id/primary", a.handleSetPrimary)
	priv.POST("/wallets/:id/sync", a.handleSyncWallet)

	priv.GET("/agents", a.handleAgents)
	priv.GET("/messages", a.handleMessages)
	priv.GET("/coordinations", a.handleCoordinations)
	priv.POST("/coordinations/:id", a.handleUpdateCoordination)
	priv.POST("/analyze", a.handleAnalyze)
	priv.POST("/chat", a.handleChat)

	priv.POST("/nfts/generate", a.handleGenerateNFT)
	priv.POST("/nfts", a.handleMintNFT)
	priv.GET("/nfts", a.handleListNFTs)

	priv.GET("/portfolio", a.handlePortfolio)
	priv.POST("/portfolio/advice", a.handleAdvice)

	priv.POST("/feedback", a.handleSubmitFeedback)

	priv.GET("/events", a.handleSSE)
}
