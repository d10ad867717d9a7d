package router

import (
	"context"
	"fmt"
	"net/http"

	"github.com/lintang-b-s/saferoutex/pkg/http/router/controllers"
	router_helper "github.com/lintang-b-s/saferoutex/pkg/http/router/routerhelper"
	http_server "github.com/lintang-b-s/saferoutex/pkg/http/server"

	"github.com/julienschmidt/httprouter"
	"github.com/justinas/alice"
	"github.com/rs/cors"
	"go.uber.org/zap"

	_ "net/http/pprof"
)

type API struct {
	log *zap.Logger
}

func NewAPI(log *zap.Logger) *API {
	return &API{log: log}
}

func (api *API) Run(
	ctx context.Context,
	config http_server.Config,
	log *zap.Logger,

	useRateLimit bool,
	optimizerService controllers.OptimizerService,
	safetyService controllers.SafetyService,
) error {
	log.Info("Run httprouter API")

	router := httprouter.New()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	router.Handler(http.MethodGet, "/debug/pprof/*item", http.DefaultServeMux)

	group := router_helper.NewRouteGroup(router, "/api")

	optimizerRoutes := controllers.New(optimizerService, safetyService, log)
	optimizerRoutes.Routes(group)

	var mwChain []alice.Constructor
	if useRateLimit {
		mwChain = append(mwChain, corsHandler.Handler, EnforceJSONHandler, api.recoverPanic,
			RealIP, Heartbeat("healthz"), Logger(log), Labels, Limit)
	} else {
		mwChain = append(mwChain, corsHandler.Handler, EnforceJSONHandler, api.recoverPanic,
			RealIP, Heartbeat("healthz"), Logger(log), Labels)
	}
	mainMwChain := alice.New(mwChain...).Then(router)

	srv := http_server.New(ctx, mainMwChain, config)
	log.Info(fmt.Sprintf("API run on port %d", config.Port))

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		log.Info("HTTP server stopped", zap.Error(err))
		return err

	case <-ctx.Done():
		log.Info("Context canceled, shutting down server")
		_ = srv.Shutdown(context.Background())
		return ctx.Err()
	}
}
