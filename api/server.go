package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewServer assembles the echo server with every route mounted. The
// static head routes are registered alongside the parameterized block
// routes; echo matches them first.
func NewServer(blocks *Blocks) *echo.Echo {
	svr := echo.New()
	svr.HideBanner = true
	svr.HidePort = true
	svr.Use(requestMetrics)

	svr.GET("/blocks/head", blocks.Head)
	svr.GET("/blocks/head/header", blocks.HeadHeader)
	svr.GET("/blocks/:blockId", blocks.Block)
	svr.GET("/blocks/:blockId/header", blocks.BlockHeader)
	svr.GET("/blocks/:blockId/extrinsics/:extrinsicIndex", blocks.Extrinsic)

	svr.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	svr.GET("/health", Health)

	return svr
}

// Health reports process liveness. It does not probe the node.
func Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
