package factory

import (
	"fmt"
	"os"

	"github.com/mikey/authenticity-guardian/internal/adapters/cli"
	"github.com/mikey/authenticity-guardian/internal/adapters/dashboard"
	"github.com/mikey/authenticity-guardian/internal/config"
	"github.com/mikey/authenticity-guardian/internal/core"
	"github.com/mikey/authenticity-guardian/internal/ports"
	"go.uber.org/zap"
)

// FrontendFactory creates front ends based on configuration
type FrontendFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *core.AnalysisService
}

// NewFrontendFactory creates a new front end factory
func NewFrontendFactory(cfg *config.Config, logger *zap.Logger, service *core.AnalysisService) *FrontendFactory {
	return &FrontendFactory{
		cfg:     cfg,
		logger:  logger,
		service: service,
	}
}

// CreateFrontend creates a front end based on the configuration
func (f *FrontendFactory) CreateFrontend() (ports.Frontend, error) {
	frontend := f.cfg.GetString("server.frontend")

	switch frontend {
	case "dashboard":
		return dashboard.NewDashboard(
			f.service,
			f.logger,
			f.cfg.GetString("server.listen_address"),
			f.cfg.GetStringSlice("server.allowed_origins"),
		), nil
	case "cli":
		return cli.NewCliFrontend(
			f.service,
			f.logger,
			os.Stdout,
			f.cfg.GetBool("cli.verbose"),
		), nil
	default:
		return nil, fmt.Errorf("unsupported front end: %s", frontend)
	}
}
