package metadata

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string, headers map[string]string) error
	Recall(key string) (string, bool)
	PublishDocument(cid string, body []byte) error
	GatewayRequests(cid string) int
}

// RegisterSteps registers metadata resolution step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &metadataSteps{tc: tc}

	ctx.Step(`^the document "([^"]*)" is published with name "([^"]*)"$`, steps.publishDocument)
	ctx.Step(`^I fetch the metadata of the last credential$`, steps.fetchLastMetadata)
	ctx.Step(`^the gateway should have served "([^"]*)" (\d+) times?$`, steps.gatewayServed)
}

type metadataSteps struct {
	tc TestContext
}

func (s *metadataSteps) publishDocument(ctx context.Context, cid, name string) error {
	body, err := json.Marshal(map[string]interface{}{
		"name":        name,
		"description": name + " skill credential",
		"image":       "ipfs://" + cid + "-image",
		"attributes": []map[string]interface{}{
			{"trait_type": "Proficiency", "value": 4},
		},
	})
	if err != nil {
		return err
	}
	return s.tc.PublishDocument(cid, body)
}

func (s *metadataSteps) fetchLastMetadata(ctx context.Context) error {
	id, ok := s.tc.Recall("last_credential_id")
	if !ok {
		return fmt.Errorf("no credential has been minted in this scenario")
	}
	return s.tc.GET("/credentials/"+id+"/metadata", nil)
}

func (s *metadataSteps) gatewayServed(ctx context.Context, cid string, n int) error {
	if got := s.tc.GatewayRequests(cid); got != n {
		return fmt.Errorf("gateway served %s %d times, expected %d", cid, got, n)
	}
	return nil
}
