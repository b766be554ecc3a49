package main

import (
	logger "github.com/sirupsen/logrus"
	"go.uber.org/dig"

	"github.com/rios0rios0/gitrouter/internal"
)

func injectAppContext() *internal.AppInternal {
	container := dig.New()

	if err := internal.RegisterProviders(container); err != nil {
		logger.Fatalf("Failed to register providers: %v", err)
	}

	var appInternal *internal.AppInternal
	if err := container.Invoke(func(ai *internal.AppInternal) {
		appInternal = ai
	}); err != nil {
		logger.Fatalf("Failed to build the application: %v", err)
	}

	return appInternal
}
