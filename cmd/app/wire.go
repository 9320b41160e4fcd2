//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/stylecast/internal/bootstrap"
	"github.com/yanqian/stylecast/internal/domain/session"
	"github.com/yanqian/stylecast/internal/infra/config"
	"github.com/yanqian/stylecast/internal/infra/openmeteo"
	httpiface "github.com/yanqian/stylecast/internal/interface/http"
	"github.com/yanqian/stylecast/pkg/logger"
)

func initializeApp() (*bootstrap.App, func(), error) {
	wire.Build(
		config.Load,
		logger.New,
		provideGeocodingClient,
		provideForecastClient,
		provideStylistConfig,
		provideTokenEstimator,
		provideRecommender,
		provideVisualizer,
		provideSessionConfig,
		provideTokenIssuer,
		provideSessionStore,
		provideImageStore,
		session.NewService,
		wire.Bind(new(session.Geocoder), new(*openmeteo.GeocodingClient)),
		wire.Bind(new(session.WeatherProvider), new(*openmeteo.ForecastClient)),
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil, nil
}
