package agents

import (
	"context"
	"fmt"
	"log"

	"github.com/cloudwego/eino-ext/devops"

	"github.com/mohaoran/AlphaCouncil/internal/config"
)

// InitDebug starts the eino visual debug server when enabled. Model calls
// made through the invoker then show up in the devops web interface.
func InitDebug(ctx context.Context, cfg *config.Config) error {
	if !cfg.EinoDebugEnabled {
		return nil
	}
	if err := devops.Init(ctx); err != nil {
		return fmt.Errorf("init eino debug plugin: %w", err)
	}
	if cfg.Debug {
		log.Printf("[EinoDebug] Debug server listening at http://localhost:%d", cfg.EinoDebugPort)
	}
	return nil
}
