package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"github.com/craftwerk/portfolio-backend/internal/handlers"
	"github.com/craftwerk/portfolio-backend/internal/rbac"
	"github.com/craftwerk/portfolio-backend/internal/session"
)

type Deps struct {
	DB                *gorm.DB
	Session           *session.Middleware
	AuthHandler       *handlers.AuthHandler
	AboutHandler      *handlers.AboutHandler
	ProjectHandler    *handlers.ProjectHandler
	ExperienceHandler *handlers.ExperienceHandler
	PublicHandler     *handlers.PublicHandler
	SearchHandler     *handlers.SearchHandler
	RoleHandler       *handlers.RoleHandler
	CORSOrigins       []string
}

func Register(e *echo.Echo, d *Deps) {
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     d.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error {
		sqlDB, err := d.DB.DB()
		if err != nil || sqlDB.Ping() != nil {
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(200)
	})

	v1 := e.Group("/api/v1")

	auth := v1.Group("/auth")
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/refresh", d.AuthHandler.Refresh)
	auth.POST("/logout", d.AuthHandler.Logout)
	auth.GET("/me", d.AuthHandler.Me, d.Session.RequireAuth)

	// Public read surface: published content only.
	v1.GET("/about", d.PublicHandler.About)
	v1.GET("/projects", d.PublicHandler.Projects)
	v1.GET("/projects/:slug", d.PublicHandler.ProjectBySlug)
	v1.GET("/experiences", d.PublicHandler.Experiences)
	v1.GET("/search", d.SearchHandler.Search)

	admin := v1.Group("/admin", d.Session.RequireAuth)

	about := admin.Group("/about", d.Session.RequirePermission(rbac.PermAboutManage))
	about.POST("", d.AboutHandler.Create)
	about.GET("", d.AboutHandler.List)
	about.GET("/:id", d.AboutHandler.Get)
	about.PATCH("/:id", d.AboutHandler.Update)
	about.DELETE("/:id", d.AboutHandler.Delete)
	about.POST("/:id/publish", d.AboutHandler.Publish)
	about.POST("/:id/unpublish", d.AboutHandler.Unpublish)

	projects := admin.Group("/projects", d.Session.RequirePermission(rbac.PermProjectManage))
	projects.POST("", d.ProjectHandler.Create)
	projects.GET("", d.ProjectHandler.List)
	projects.GET("/:id", d.ProjectHandler.Get)
	projects.PATCH("/:id", d.ProjectHandler.Update)
	projects.DELETE("/:id", d.ProjectHandler.Delete)
	projects.POST("/:id/publish", d.ProjectHandler.Publish)
	projects.POST("/:id/unpublish", d.ProjectHandler.Unpublish)

	experiences := admin.Group("/experiences", d.Session.RequirePermission(rbac.PermExperienceManage))
	experiences.POST("", d.ExperienceHandler.Create)
	experiences.GET("", d.ExperienceHandler.List)
	experiences.GET("/:id", d.ExperienceHandler.Get)
	experiences.PATCH("/:id", d.ExperienceHandler.Update)
	experiences.DELETE("/:id", d.ExperienceHandler.Delete)
	experiences.POST("/:id/publish", d.ExperienceHandler.Publish)
	experiences.POST("/:id/unpublish", d.ExperienceHandler.Unpublish)

	roles := admin.Group("/roles", d.Session.RequirePermission(rbac.PermRoleManage))
	roles.GET("", d.RoleHandler.ListRoles)
	roles.POST("", d.RoleHandler.CreateRole)
	roles.GET("/permissions", d.RoleHandler.ListPermissions)
	roles.POST("/grant", d.RoleHandler.GrantPermission)
	roles.POST("/revoke", d.RoleHandler.RevokePermission)
	roles.POST("/assign", d.RoleHandler.AssignRole)
	roles.POST("/remove", d.RoleHandler.RemoveRole)
}
