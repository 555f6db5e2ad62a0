// Copyright (C) 2025 Finch Voice Labs (dev@finchvoice.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/finchvoice/relay/services/relay/handlers"
)

// uiDir is where the container image places the built web client.
const uiDir = "./ui"

// SetupRoutes registers the relay's HTTP surface on the router.
func SetupRoutes(router *gin.Engine, asker handlers.Asker, minter handlers.Minter, showDetails bool) {
	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if _, err := os.Stat(uiDir); err == nil {
		router.StaticFS("/ui", http.Dir(uiDir))
		router.GET("/", func(c *gin.Context) {
			c.Redirect(http.StatusMovedPermanently, "/ui/index.html")
		})
	}

	router.POST("/ask", handlers.HandleAsk(asker, showDetails))
	router.GET("/token", handlers.HandleToken(minter, showDetails))
}
