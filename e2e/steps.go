package e2e

import (
	"github.com/cucumber/godog"

	"shebuilds/e2e/steps/common"
	"shebuilds/e2e/steps/ledger"
	"shebuilds/e2e/steps/metadata"
)

// RegisterSteps registers all step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	ledger.RegisterSteps(ctx, tc)
	metadata.RegisterSteps(ctx, tc)
}
