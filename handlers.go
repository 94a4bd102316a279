package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"medscan/models"
	"medscan/pkg/analysis"
	"medscan/pkg/meds"
	"medscan/pkg/metrics"
	"medscan/pkg/report"
)

// analyzer is the part of analysis.Service the handlers use.
type analyzer interface {
	Status() analysis.Status
	AnalyzePrescription(ctx context.Context, path string) (*report.Prescription, error)
	IdentifyPill(ctx context.Context, path string) (*report.Pill, error)
}

func setupRoutes(r *gin.Engine) {
	r.GET("/status", statusHandler)
	r.GET("/medications", listMedicationsHandler)
	r.GET("/medications/:name", getMedicationHandler)
	if appMetrics != nil {
		r.GET("/metrics", gin.WrapH(appMetrics.Handler()))
	}

	scan := r.Group("")
	scan.Use(optionalAuth())
	scan.POST("/prescriptions/analyze", analyzePrescriptionHandler)
	scan.POST("/pills/identify", identifyPillHandler)

	accounts := r.Group("")
	accounts.Use(requireDB())
	accounts.POST("/register", registerHandler)
	accounts.POST("/login", loginHandler)
	accounts.POST("/refresh", refreshHandler)
	accounts.POST("/revoke_refresh", revokeRefreshHandler)

	authGroup := r.Group("")
	authGroup.Use(requireDB(), jwtAuthMiddleware())
	authGroup.GET("/me", meHandler)
	authGroup.GET("/scans", listScansHandler)
	authGroup.GET("/scans/:ref", getScanHandler)
}

func statusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, svc.Status())
}

func listMedicationsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, meds.All())
}

func getMedicationHandler(c *gin.Context) {
	rec, ok := meds.Lookup(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "medication not in knowledge base"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func analyzePrescriptionHandler(c *gin.Context) {
	if !svc.Status().PrescriptionReady {
		respondNotReady(c, report.PrescriptionErrorPrefix)
		return
	}
	up, err := saveUpload(c, metrics.KindPrescription)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := svc.AnalyzePrescription(c.Request.Context(), up.Path)
	kept := up.remove()
	ref := recordScan(c, models.NewPrescriptionScan(up.FileName, up.ContentType, res), kept)

	code := http.StatusOK
	if err != nil {
		code = http.StatusInternalServerError
	}
	if c.Query("format") == "text" {
		c.String(code, report.PrescriptionText(res))
		return
	}
	body := gin.H{"status": svc.Status().Message, "result": res}
	if ref != "" {
		body["scan_ref"] = ref
	}
	if err != nil {
		body["error"] = report.PrescriptionErrorPrefix + err.Error()
	}
	c.JSON(code, body)
}

func identifyPillHandler(c *gin.Context) {
	if !svc.Status().PillReady {
		respondNotReady(c, report.PillErrorPrefix)
		return
	}
	up, err := saveUpload(c, metrics.KindPill)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := svc.IdentifyPill(c.Request.Context(), up.Path)
	kept := up.remove()
	ref := recordScan(c, models.NewPillScan(up.FileName, up.ContentType, res), kept)

	code := http.StatusOK
	if err != nil {
		code = http.StatusInternalServerError
	}
	if c.Query("format") == "text" {
		c.String(code, report.PillText(res))
		return
	}
	body := gin.H{"status": svc.Status().Message, "result": res}
	if ref != "" {
		body["scan_ref"] = ref
	}
	if err != nil {
		body["error"] = report.PillErrorPrefix + err.Error()
	}
	c.JSON(code, body)
}

func respondNotReady(c *gin.Context, prefix string) {
	st := svc.Status()
	msg := prefix + analysis.ErrNotReady.Error()
	if c.Query("format") == "text" {
		c.String(http.StatusServiceUnavailable, msg+"\n")
		return
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": msg, "status": st.Message})
}

// recordScan stores the scan when the history store is enabled and returns
// its ref. Storage failures are logged and never fail the request.
func recordScan(c *gin.Context, s *models.Scan, storePath string) string {
	if db == nil {
		return ""
	}
	s.StorePath = storePath
	if user, ok := getUserFromContext(c); ok {
		s.UserID = &user.ID
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		logger.Warn("failed to record scan", zap.String("kind", s.Kind), zap.Error(err))
		return ""
	}
	return s.Ref
}

func meHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"username": c.GetString("username"), "role": c.GetString("role")})
}

// getUserFromContext fetches the authenticated user using the username set by the auth middleware
func getUserFromContext(c *gin.Context) (*models.User, bool) {
	uname := c.GetString("username")
	if uname == "" || db == nil {
		return nil, false
	}
	var user models.User
	if err := db.Where("username = ?", uname).First(&user).Error; err != nil {
		return nil, false
	}
	return &user, true
}

// listScansHandler lists recent scans; administrators see all, operators their own.
func listScansHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var items []models.Scan
	q := db.Model(&models.Scan{}).Omit("Report", "RawText")
	if kind := c.Query("kind"); kind != "" {
		q = q.Where("kind = ?", kind)
	}
	if c.GetString("role") != models.RoleAdministrator {
		q = q.Where("user_id = ?", user.ID)
	}
	if err := q.Order("id desc").Limit(200).Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, items)
}

// getScanHandler returns one scan with its medications if admin or owner.
func getScanHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var s models.Scan
	if err := db.Preload("Medications").Where("ref = ?", c.Param("ref")).First(&s).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if c.GetString("role") != models.RoleAdministrator && (s.UserID == nil || *s.UserID != user.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	if c.Query("format") == "text" {
		c.String(http.StatusOK, s.Report)
		return
	}
	c.JSON(http.StatusOK, s)
}

func registerHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := RegisterUser(req.Username, req.Password); err != nil {
		code := http.StatusBadRequest
		if err == errUserExists {
			code = http.StatusConflict
		}
		c.JSON(code, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user registered successfully"})
}

func loginHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := Authenticate(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	tokenString, err := signAccessToken(user.Username, user.Role.Name, accessTokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	refreshToken, err := createAndStoreRefreshToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "login successful", "token": tokenString, "refresh_token": refreshToken})
}

// refreshHandler exchanges a refresh token for a new access token and rotates the refresh token
func refreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rt, err := findRefreshTokenByRaw(req.RefreshToken)
	if err != nil || !rt.Usable(time.Now()) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired refresh token"})
		return
	}
	var user models.User
	if err := db.Preload("Role").First(&user, rt.UserID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	// only one request may consume a refresh token
	res := db.Model(&models.RefreshToken{}).Where("id = ? AND revoked = ?", rt.ID, false).Update("revoked", true)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rotate refresh token"})
		return
	}
	if res.RowsAffected != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired refresh token"})
		return
	}
	tokenString, err := signAccessToken(user.Username, user.Role.Name, accessTokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	newRT, err := createAndStoreRefreshToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rotate refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tokenString, "refresh_token": newRT})
}

// revokeRefreshHandler revokes a given refresh token (useful on logout)
func revokeRefreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rt, err := findRefreshTokenByRaw(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "refresh token not found"})
		return
	}
	rt.Revoked = true
	if err := db.Save(rt).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "refresh token revoked"})
}
