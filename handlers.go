package main

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"invictcrm/models"
	"invictcrm/pkg/apperr"
	"invictcrm/pkg/applications"
	"invictcrm/pkg/auth"
	"invictcrm/pkg/dashboard"
	"invictcrm/pkg/documents"
	"invictcrm/pkg/leads"
	"invictcrm/pkg/metrics"
	"invictcrm/pkg/payments"
	"invictcrm/pkg/students"
	"invictcrm/pkg/tasks"
	"invictcrm/pkg/users"
)

const maxWebhookBody = 1 << 20

type server struct {
	tokens       *auth.Tokens
	auth         *auth.Service
	leads        *leads.Service
	applications *applications.Service
	documents    *documents.Service
	payments     *payments.Service
	students     *students.Service
	users        *users.Service
	tasks        *tasks.Service
	dashboard    *dashboard.Service
	log          *slog.Logger
}

func setupRoutes(r *gin.Engine, s *server) {
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	r.POST("/auth/register", s.registerHandler)
	r.POST("/auth/login", s.loginHandler)
	r.POST("/auth/refresh", s.refreshHandler)
	r.POST("/auth/logout", s.logoutHandler)

	// Public lead form and the payment provider's callback.
	r.POST("/leads", s.createLeadHandler)
	r.POST("/payments/webhook", s.paymentWebhookHandler)

	api := r.Group("/")
	api.Use(authRequired(s.tokens))
	{
		api.GET("/auth/profile", s.authProfileHandler)
		api.GET("/user/profile", s.userProfileHandler)
		api.PATCH("/user/profile", s.updateUserProfileHandler)
		api.GET("/dashboard/stats", s.dashboardHandler)

		api.POST("/payments/create-intent", s.createIntentHandler)
		api.POST("/payments/create-checkout", s.createCheckoutHandler)

		api.GET("/applications/:id", s.getApplicationHandler)

		api.POST("/documents/upload", s.initUploadHandler)
		api.POST("/documents/:id/confirm", s.confirmUploadHandler)
		api.GET("/documents/:id/url", s.documentURLHandler)
		api.GET("/documents", s.listDocumentsHandler)

		api.GET("/students/me", requireRoles(models.RoleStudent), s.myStudentHandler)
	}

	staff := api.Group("/")
	staff.Use(requireRoles(auth.StaffRoles...))
	{
		staff.GET("/leads", s.listLeadsHandler)
		staff.GET("/leads/:id", s.getLeadHandler)
		staff.PATCH("/leads/:id", s.updateLeadHandler)

		staff.POST("/applications", s.createApplicationHandler)
		staff.GET("/applications", s.listApplicationsHandler)
		staff.PATCH("/applications/:id", s.updateApplicationHandler)

		staff.PATCH("/documents/:id/review", s.reviewDocumentHandler)

		staff.GET("/payments", s.listPaymentsHandler)

		staff.GET("/students", s.listStudentsHandler)
		staff.GET("/students/:id", s.getStudentHandler)
		staff.PATCH("/students/:id", s.updateStudentHandler)

		staff.POST("/tasks", s.createTaskHandler)
		staff.GET("/tasks/:id", s.getTaskHandler)
		staff.PATCH("/tasks/:id", s.updateTaskHandler)
	}

	admin := api.Group("/")
	admin.Use(requireRoles(auth.AdminRoles...))
	{
		admin.DELETE("/leads/:id", s.deleteLeadHandler)
		admin.GET("/payments/revenue", s.revenueHandler)

		admin.POST("/users", s.createUserHandler)
		admin.GET("/users", s.listUsersHandler)
		admin.GET("/users/:id", s.getUserHandler)
		admin.PATCH("/users/:id", s.updateUserHandler)
	}

	api.DELETE("/users/:id", requireRoles(auth.SuperAdmins...), s.deleteUserHandler)
}

// writeError maps a service error to its HTTP status. Unclassified errors
// are logged and reported as a generic 500.
func (s *server) writeError(c *gin.Context, err error) {
	var status int
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindConflict:
		status = http.StatusConflict
	case apperr.KindUnauthorized:
		status = http.StatusUnauthorized
	case apperr.KindForbidden:
		status = http.StatusForbidden
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindUpstream:
		status = http.StatusInternalServerError
		s.log.Warn("upstream failure", "route", c.FullPath(), "err", err)
	default:
		status = http.StatusInternalServerError
		s.log.Error("request failed", "method", c.Request.Method, "route", c.FullPath(), "err", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": apperr.Message(err)})
}

func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}
	return true
}

// reply writes v with status code, or the error if err is set.
func (s *server) reply(c *gin.Context, code int, v any, err error) {
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(code, v)
}

// leads

func (s *server) createLeadHandler(c *gin.Context) {
	var in leads.CreateInput
	if !bindJSON(c, &in) {
		return
	}
	lead, err := s.leads.Create(c.Request.Context(), in)
	s.reply(c, http.StatusCreated, lead, err)
}

func (s *server) listLeadsHandler(c *gin.Context) {
	list, err := s.leads.FindAll(c.Request.Context(), c.Query("status"), c.Query("search"))
	s.reply(c, http.StatusOK, list, err)
}

func (s *server) getLeadHandler(c *gin.Context) {
	lead, err := s.leads.FindOne(c.Request.Context(), c.Param("id"))
	s.reply(c, http.StatusOK, lead, err)
}

func (s *server) updateLeadHandler(c *gin.Context) {
	var in leads.UpdateInput
	if !bindJSON(c, &in) {
		return
	}
	lead, err := s.leads.Update(c.Request.Context(), c.Param("id"), in)
	s.reply(c, http.StatusOK, lead, err)
}

func (s *server) deleteLeadHandler(c *gin.Context) {
	err := s.leads.Remove(c.Request.Context(), c.Param("id"))
	s.reply(c, http.StatusOK, gin.H{"success": true}, err)
}

// applications

func (s *server) createApplicationHandler(c *gin.Context) {
	var in applications.CreateInput
	if !bindJSON(c, &in) {
		return
	}
	app, err := s.applications.Create(c.Request.Context(), in)
	s.reply(c, http.StatusCreated, app, err)
}

func (s *server) listApplicationsHandler(c *gin.Context) {
	list, err := s.applications.FindAll(c.Request.Context())
	s.reply(c, http.StatusOK, list, err)
}

func (s *server) getApplicationHandler(c *gin.Context) {
	app, err := s.applications.FindOneFor(c.Request.Context(), identity(c), c.Param("id"))
	s.reply(c, http.StatusOK, app, err)
}

func (s *server) updateApplicationHandler(c *gin.Context) {
	var in applications.UpdateInput
	if !bindJSON(c, &in) {
		return
	}
	app, err := s.applications.Update(c.Request.Context(), c.Param("id"), in)
	s.reply(c, http.StatusOK, app, err)
}

// documents

func (s *server) initUploadHandler(c *gin.Context) {
	var in documents.InitializeInput
	if !bindJSON(c, &in) {
		return
	}
	up, err := s.documents.Initialize(c.Request.Context(), identity(c), in)
	s.reply(c, http.StatusCreated, up, err)
}

func (s *server) confirmUploadHandler(c *gin.Context) {
	doc, err := s.documents.Confirm(c.Request.Context(), identity(c), c.Param("id"))
	s.reply(c, http.StatusOK, doc, err)
}

func (s *server) documentURLHandler(c *gin.Context) {
	link, err := s.documents.GetURL(c.Request.Context(), identity(c), c.Param("id"))
	s.reply(c, http.StatusOK, link, err)
}

func (s *server) listDocumentsHandler(c *gin.Context) {
	docs, err := s.documents.List(c.Request.Context(), identity(c), c.Query("studentId"))
	s.reply(c, http.StatusOK, docs, err)
}

func (s *server) reviewDocumentHandler(c *gin.Context) {
	var in documents.ReviewInput
	if !bindJSON(c, &in) {
		return
	}
	doc, err := s.documents.Review(c.Request.Context(), c.Param("id"), in)
	s.reply(c, http.StatusOK, doc, err)
}

// payments

func (s *server) createIntentHandler(c *gin.Context) {
	var in payments.IntentInput
	if !bindJSON(c, &in) {
		return
	}
	res, err := s.payments.CreateIntent(c.Request.Context(), identity(c), in)
	s.reply(c, http.StatusOK, res, err)
}

func (s *server) createCheckoutHandler(c *gin.Context) {
	var in payments.CheckoutInput
	if !bindJSON(c, &in) {
		return
	}
	res, err := s.payments.CreateCheckout(c.Request.Context(), identity(c), in)
	s.reply(c, http.StatusOK, res, err)
}

// paymentWebhookHandler needs the raw body: the signature covers the exact
// bytes the provider sent.
func (s *server) paymentWebhookHandler(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		s.writeError(c, apperr.Validation("Invalid payload"))
		return
	}
	err = s.payments.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	s.reply(c, http.StatusOK, gin.H{"received": true}, err)
}

func (s *server) listPaymentsHandler(c *gin.Context) {
	list, err := s.payments.List(c.Request.Context())
	s.reply(c, http.StatusOK, list, err)
}

func (s *server) revenueHandler(c *gin.Context) {
	total, err := s.payments.Revenue(c.Request.Context())
	s.reply(c, http.StatusOK, gin.H{"total": total, "formatted": dashboard.Euros(total)}, err)
}

// students

func (s *server) listStudentsHandler(c *gin.Context) {
	list, err := s.students.List(c.Request.Context(), c.Query("status"), c.Query("search"))
	s.reply(c, http.StatusOK, list, err)
}

func (s *server) getStudentHandler(c *gin.Context) {
	sp, err := s.students.Get(c.Request.Context(), c.Param("id"))
	s.reply(c, http.StatusOK, sp, err)
}

func (s *server) myStudentHandler(c *gin.Context) {
	sp, err := s.students.Me(c.Request.Context(), identity(c))
	s.reply(c, http.StatusOK, sp, err)
}

func (s *server) updateStudentHandler(c *gin.Context) {
	var in students.UpdateInput
	if !bindJSON(c, &in) {
		return
	}
	sp, err := s.students.Update(c.Request.Context(), c.Param("id"), in)
	s.reply(c, http.StatusOK, sp, err)
}

// users

func (s *server) createUserHandler(c *gin.Context) {
	var in users.CreateInput
	if !bindJSON(c, &in) {
		return
	}
	res, err := s.users.Create(c.Request.Context(), identity(c), in)
	s.reply(c, http.StatusCreated, res, err)
}

func (s *server) listUsersHandler(c *gin.Context) {
	list, err := s.users.List(c.Request.Context())
	s.reply(c, http.StatusOK, list, err)
}

func (s *server) getUserHandler(c *gin.Context) {
	u, err := s.users.Get(c.Request.Context(), c.Param("id"))
	s.reply(c, http.StatusOK, u, err)
}

func (s *server) updateUserHandler(c *gin.Context) {
	var in users.UpdateInput
	if !bindJSON(c, &in) {
		return
	}
	u, err := s.users.Update(c.Request.Context(), identity(c), c.Param("id"), in)
	s.reply(c, http.StatusOK, u, err)
}

func (s *server) deleteUserHandler(c *gin.Context) {
	err := s.users.Delete(c.Request.Context(), identity(c), c.Param("id"))
	s.reply(c, http.StatusOK, gin.H{"success": true}, err)
}

func (s *server) userProfileHandler(c *gin.Context) {
	p, err := s.users.Profile(c.Request.Context(), identity(c))
	s.reply(c, http.StatusOK, p, err)
}

func (s *server) updateUserProfileHandler(c *gin.Context) {
	var in users.ProfileInput
	if !bindJSON(c, &in) {
		return
	}
	p, err := s.users.UpdateProfile(c.Request.Context(), identity(c), in)
	s.reply(c, http.StatusOK, p, err)
}

// tasks

func (s *server) createTaskHandler(c *gin.Context) {
	var in tasks.CreateInput
	if !bindJSON(c, &in) {
		return
	}
	t, err := s.tasks.Create(c.Request.Context(), identity(c), in)
	s.reply(c, http.StatusCreated, t, err)
}

func (s *server) getTaskHandler(c *gin.Context) {
	t, err := s.tasks.Get(c.Request.Context(), c.Param("id"))
	s.reply(c, http.StatusOK, t, err)
}

func (s *server) updateTaskHandler(c *gin.Context) {
	var in tasks.UpdateInput
	if !bindJSON(c, &in) {
		return
	}
	t, err := s.tasks.Update(c.Request.Context(), c.Param("id"), in)
	s.reply(c, http.StatusOK, t, err)
}

func (s *server) dashboardHandler(c *gin.Context) {
	stats, err := s.dashboard.Stats(c.Request.Context(), identity(c))
	s.reply(c, http.StatusOK, stats, err)
}
