package controller

import (
	"github.com/tnqbao/gau-focus-service/config"
	"github.com/tnqbao/gau-focus-service/infra"
	"github.com/tnqbao/gau-focus-service/pipeline"
	"github.com/tnqbao/gau-focus-service/repository"
)

type Controller struct {
	Config      *config.Config
	Infra       *infra.Infra
	Repository  *repository.Repository
	Coordinator *pipeline.Coordinator
}

func NewController(config *config.Config, infra *infra.Infra, repo *repository.Repository, coordinator *pipeline.Coordinator) *Controller {
	if repo == nil {
		panic("Failed to initialize Repository")
	}
	if coordinator == nil {
		panic("Failed to initialize Coordinator")
	}
	return &Controller{
		Config:      config,
		Infra:       infra,
		Repository:  repo,
		Coordinator: coordinator,
	}
}
