package main

import (
	"github.com/gin-gonic/gin"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/middleware"
)

func setupRouter(api *API, mw ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(mw...)

	// Health check
	router.GET("/health", api.healthCheck)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/overview", api.getOverview)

		// Movies
		v1.GET("/movies", api.listMovies)
		v1.GET("/movies/:id", api.getMovie)
		v1.GET("/movies/:id/words", api.getMovieWords)
		v1.GET("/movies/:id/sentences", api.getMovieSentences)

		// Words
		v1.GET("/words/top", api.getTopWords)
		v1.GET("/words/:word", api.getWordUsage)

		// Translations
		v1.GET("/translations/progress", api.getTranslationProgress)
		v1.GET("/translations/recent", api.getRecentTranslations)
	}

	authed := v1.Group("", middleware.JWTAuth())
	{
		authed.POST("/analyze", api.analyzeUpload)
		authed.POST("/jobs", api.createJob)
		authed.POST("/translations", api.addTranslation)
	}

	return router
}
