package dashboard

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/agentdesk/internal/agent"
	"github.com/zulandar/agentdesk/internal/ai"
	"github.com/zulandar/agentdesk/internal/auth"
	"github.com/zulandar/agentdesk/internal/classifier"
	"github.com/zulandar/agentdesk/internal/messaging"
	"github.com/zulandar/agentdesk/internal/models"
	"github.com/zulandar/agentdesk/internal/nft"
	"github.com/zulandar/agentdesk/internal/wallet"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// queryLimit reads ?limit=, clamped to [1, maxListLimit].
func queryLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return defaultListLimit
	}
	return min(n, maxListLimit)
}

func (a *api) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- auth & profile ---

type sessionResponse struct {
	Token   string       `json:"token"`
	Profile auth.Profile `json:"profile"`
}

func (a *api) handleSignUp(c *gin.Context) {
	var in auth.SignUpInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	if _, err := auth.SignUp(ctx, a.DB, in); err != nil {
		fail(c, err)
		return
	}
	user, session, err := auth.SignIn(ctx, a.DB, in.Email, in.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, sessionResponse{Token: session.Token, Profile: auth.ProfileOf(user)})
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *api) handleSignIn(c *gin.Context) {
	var in signInRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	user, session, err := auth.SignIn(c.Request.Context(), a.DB, in.Email, in.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse{Token: session.Token, Profile: auth.ProfileOf(user)})
}

func (a *api) handleSignOut(c *gin.Context) {
	if err := auth.SignOut(c.Request.Context(), a.DB, c.GetString(tokenKey)); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *api) handleGetProfile(c *gin.Context) {
	c.JSON(http.StatusOK, auth.ProfileOf(currentUser(c)))
}

func (a *api) handleUpdateProfile(c *gin.Context) {
	var upd auth.ProfileUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		badRequest(c, err)
		return
	}
	profile, err := auth.UpdateProfile(c.Request.Context(), a.DB, currentUser(c).ID, upd)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// --- wallets ---

func (a *api) handleListWallets(c *gin.Context) {
	list, err := a.Wallets.List(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wallets": list})
}

func (a *api) handleCreateWallet(c *gin.Context) {
	var opts wallet.CreateOpts
	if err := c.ShouldBindJSON(&opts); err != nil {
		badRequest(c, err)
		return
	}
	w, err := a.Wallets.Create(c.Request.Context(), currentUser(c).ID, opts)
	if err != nil {
		failUpstream(c, err)
		return
	}
	c.JSON(http.StatusCreated, w)
}

func (a *api) handleDeleteWallet(c *gin.Context) {
	if err := a.Wallets.Delete(c.Request.Context(), currentUser(c).ID, c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *api) handleSetPrimary(c *gin.Context) {
	w, err := a.Wallets.SetPrimary(c.Request.Context(), currentUser(c).ID, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (a *api) handleSyncWallet(c *gin.Context) {
	w, err := a.Wallets.SyncBalance(c.Request.Context(), currentUser(c).ID, c.Param("id"))
	if err != nil {
		failUpstream(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// --- agents ---

func (a *api) handleAgents(c *gin.Context) {
	resp := gin.H{"agents": a.Store.Agents()}
	if latest, ok := a.Store.LatestAnalysisFor(currentUser(c).ID); ok {
		resp["latest_analysis"] = latest
	}
	c.JSON(http.StatusOK, resp)
}

func (a *api) handleMessages(c *gin.Context) {
	db := a.DB.WithContext(c.Request.Context())
	msgs, err := messaging.History(db, c.Query("agent"), queryLimit(c), messaging.ForUser(currentUser(c).ID))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (a *api) handleCoordinations(c *gin.Context) {
	db := a.DB.WithContext(c.Request.Context())
	mine := messaging.ForUser(currentUser(c).ID)
	if agentID := c.Query("pending_for"); agentID != "" {
		rows, err := messaging.Pending(db, agentID, mine)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"coordinations": rows})
		return
	}
	rows, err := messaging.Coordinations(db, queryLimit(c), mine)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"coordinations": rows})
}

type coordinationUpdate struct {
	Status agent.CoordinationStatus `json:"status" binding:"required"`
	Result string                   `json:"result"`
}

func (a *api) handleUpdateCoordination(c *gin.Context) {
	var in coordinationUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	id, userID := c.Param("id"), currentUser(c).ID

	existing, ok := a.Store.Coordination(id)
	if !ok {
		// Raised by an earlier process and not yet reloaded.
		row, err := messaging.Get(a.DB.WithContext(c.Request.Context()), id, messaging.ForUser(userID))
		if err != nil {
			fail(c, err)
			return
		}
		existing = messaging.ToAgentCoordination(*row)
		a.Store.RestoreCoordinations([]agent.Coordination{existing})
	}
	if existing.UserID != userID {
		fail(c, fmt.Errorf("dashboard: coordination %s: %w", id, models.ErrNotFound))
		return
	}

	updated, err := a.Store.UpdateCoordination(id, in.Status, in.Result)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

type promptRequest struct {
	Message string `json:"message"`
}

func (a *api) handleAnalyze(c *gin.Context) {
	var in promptRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	rec := a.Store.RecordAnalysis(currentUser(c).ID, classifier.Analyze(in.Message))
	c.JSON(http.StatusOK, rec)
}

func (a *api) handleChat(c *gin.Context) {
	var in promptRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	res, err := a.Dialogue.Submit(c.Request.Context(), currentUser(c).ID, in.Message)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// --- nfts ---

func (a *api) handleGenerateNFT(c *gin.Context) {
	var in struct {
		Prompt string `json:"prompt"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	draft, err := a.Dialogue.GenerateNFT(c.Request.Context(), currentUser(c).ID, in.Prompt)
	if err != nil {
		failUpstream(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

func (a *api) handleMintNFT(c *gin.Context) {
	var opts nft.MintOpts
	if err := c.ShouldBindJSON(&opts); err != nil {
		badRequest(c, err)
		return
	}
	minted, err := a.NFTs.Mint(c.Request.Context(), currentUser(c).ID, opts)
	if err != nil {
		failUpstream(c, err)
		return
	}
	c.JSON(http.StatusCreated, minted)
}

func (a *api) handleListNFTs(c *gin.Context) {
	list, err := a.NFTs.List(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"nfts": list})
}

// --- portfolio ---

func (a *api) handlePortfolio(c *gin.Context) {
	sum, err := a.Portfolio.Summary(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		failUpstream(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

type adviceRequest struct {
	Amount float64  `json:"amount"`
	Risk   string   `json:"risk"`
	Goals  []string `json:"goals"`
}

// handleAdvice fills a missing risk level or goal list from the profile.
func (a *api) handleAdvice(c *gin.Context) {
	var in adviceRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	user := currentUser(c)
	req := ai.AdviceRequest{Amount: in.Amount, Risk: in.Risk, Goals: in.Goals}
	if req.Risk == "" {
		req.Risk = user.RiskLevel
	}
	if len(req.Goals) == 0 {
		req.Goals = user.Goals()
	}
	advice, err := a.Dialogue.InvestmentAdvice(c.Request.Context(), user.ID, req)
	if err != nil {
		failUpstream(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"advice": advice})
}

// --- feedback ---

func (a *api) handleListFeedback(c *gin.Context) {
	list, err := a.Feedback.ListApproved(c.Request.Context(), queryLimit(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"feedback": list})
}

func (a *api) handleSubmitFeedback(c *gin.Context) {
	var in struct {
		Rating int    `json:"rating"`
		Body   string `json:"body"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	fb, err := a.Feedback.Submit(c.Request.Context(), currentUser(c).ID, in.Rating, in.Body)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, fb)
}
