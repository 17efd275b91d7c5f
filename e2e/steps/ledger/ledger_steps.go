package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cucumber/godog"

	"shebuilds/pkg/domain"
)

const lastIDKey = "last_credential_id"

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string, headers map[string]string) error
	POSTAs(actor, path string, body interface{}) error
	DELETEAs(actor, path string) error
	Actor(name string) domain.Principal
	Remember(key, value string)
	Recall(key string) (string, bool)
	GetResponseField(field string) (interface{}, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
}

// RegisterSteps registers credential ledger step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &ledgerSteps{tc: tc}

	// Role management
	ctx.Step(`^"([^"]*)" is an issuer$`, steps.isAnIssuer)
	ctx.Step(`^"([^"]*)" grants the issuer role to "([^"]*)"$`, steps.grantIssuer)
	ctx.Step(`^"([^"]*)" revokes the issuer role of "([^"]*)"$`, steps.revokeIssuer)
	ctx.Step(`^I check whether "([^"]*)" has role "([^"]*)"$`, steps.checkRole)

	// Minting
	ctx.Step(`^"([^"]*)" mints a "([^"]*)" credential with proficiency (-?\d+) to "([^"]*)"$`, steps.mint)
	ctx.Step(`^"([^"]*)" mints a "([^"]*)" credential with proficiency (-?\d+) and metadata "([^"]*)" to "([^"]*)"$`, steps.mintWithMetadata)
	ctx.Step(`^"([^"]*)" batch mints:$`, steps.batchMint)
	ctx.Step(`^"([^"]*)" batch mints to (\d+) recipients with (\d+) categories$`, steps.batchMintMismatched)

	// Lifecycle
	ctx.Step(`^"([^"]*)" revokes the last credential with reason "([^"]*)"$`, steps.revokeLast)
	ctx.Step(`^"([^"]*)" revokes credential (\d+) with reason "([^"]*)"$`, steps.revokeByID)
	ctx.Step(`^"([^"]*)" transfers the last credential from "([^"]*)" to "([^"]*)"$`, steps.transferLast)
	ctx.Step(`^"([^"]*)" safely transfers the last credential from "([^"]*)" to "([^"]*)"$`, steps.safeTransferLast)
	ctx.Step(`^"([^"]*)" burns the last credential$`, steps.burnLast)

	// Reads
	ctx.Step(`^I fetch the last credential$`, steps.fetchLast)
	ctx.Step(`^I fetch credential (\d+)$`, steps.fetchByID)
	ctx.Step(`^I list the credentials of "([^"]*)"$`, steps.listOwned)
	ctx.Step(`^I fetch the collection$`, steps.fetchCollection)
	ctx.Step(`^the response should list (\d+) credential ids$`, steps.responseListsIDs)
	ctx.Step(`^the event feed should contain a "([^"]*)" event$`, steps.feedContains)
	ctx.Step(`^the event feed should not contain a "([^"]*)" event$`, steps.feedLacks)
}

type ledgerSteps struct {
	tc TestContext
}

func (s *ledgerSteps) isAnIssuer(ctx context.Context, name string) error {
	if err := s.grantIssuer(ctx, "admin", name); err != nil {
		return err
	}
	return s.expectStatus(200)
}

func (s *ledgerSteps) grantIssuer(ctx context.Context, caller, target string) error {
	return s.tc.POSTAs(caller, "/admin/issuers", map[string]interface{}{
		"address": s.tc.Actor(target).String(),
	})
}

func (s *ledgerSteps) revokeIssuer(ctx context.Context, caller, target string) error {
	return s.tc.DELETEAs(caller, "/admin/issuers/"+s.tc.Actor(target).String())
}

func (s *ledgerSteps) checkRole(ctx context.Context, name, role string) error {
	return s.tc.GET(fmt.Sprintf("/roles/%s/members/%s", role, s.tc.Actor(name)), nil)
}

func (s *ledgerSteps) mint(ctx context.Context, caller, category string, proficiency int, recipient string) error {
	uri := "ipfs://" + strings.ToLower(strings.ReplaceAll(category, " ", "-"))
	return s.mintWithMetadata(ctx, caller, category, proficiency, uri, recipient)
}

func (s *ledgerSteps) mintWithMetadata(ctx context.Context, caller, category string, proficiency int, uri, recipient string) error {
	err := s.tc.POSTAs(caller, "/credentials", map[string]interface{}{
		"recipient":      s.tc.Actor(recipient).String(),
		"skill_category": category,
		"proficiency":    proficiency,
		"metadata_uri":   uri,
	})
	if err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() == 201 {
		id, err := s.tc.GetResponseField("id")
		if err != nil {
			return err
		}
		s.tc.Remember(lastIDKey, fmt.Sprint(id))
	}
	return nil
}

func (s *ledgerSteps) batchMint(ctx context.Context, caller string, table *godog.Table) error {
	if len(table.Rows) < 2 {
		return fmt.Errorf("batch table needs a header and at least one row")
	}
	var recipients, categories, uris []string
	var proficiencies []int
	for _, row := range table.Rows[1:] {
		if len(row.Cells) != 4 {
			return fmt.Errorf("expected recipient, category, proficiency, metadata_uri columns")
		}
		p, err := strconv.Atoi(row.Cells[2].Value)
		if err != nil {
			return fmt.Errorf("parse proficiency: %w", err)
		}
		recipients = append(recipients, s.tc.Actor(row.Cells[0].Value).String())
		categories = append(categories, row.Cells[1].Value)
		proficiencies = append(proficiencies, p)
		uris = append(uris, row.Cells[3].Value)
	}
	err := s.tc.POSTAs(caller, "/credentials/batch", map[string]interface{}{
		"recipients":    recipients,
		"categories":    categories,
		"proficiencies": proficiencies,
		"metadata_uris": uris,
	})
	if err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() == 201 {
		ids, err := s.ids()
		if err != nil {
			return err
		}
		if len(ids) > 0 {
			s.tc.Remember(lastIDKey, fmt.Sprint(ids[len(ids)-1]))
		}
	}
	return nil
}

func (s *ledgerSteps) batchMintMismatched(ctx context.Context, caller string, recipients, categories int) error {
	proficiencies := make([]int, recipients)
	for i := range proficiencies {
		proficiencies[i] = 3
	}
	return s.tc.POSTAs(caller, "/credentials/batch", map[string]interface{}{
		"recipients":    repeat(s.tc.Actor("alice").String(), recipients),
		"categories":    repeat("React", categories),
		"proficiencies": proficiencies,
		"metadata_uris": repeat("ipfs://react", recipients),
	})
}

func (s *ledgerSteps) revokeLast(ctx context.Context, caller, reason string) error {
	id, err := s.lastID()
	if err != nil {
		return err
	}
	return s.revokeByID(ctx, caller, id, reason)
}

func (s *ledgerSteps) revokeByID(ctx context.Context, caller string, id int, reason string) error {
	return s.tc.POSTAs(caller, fmt.Sprintf("/credentials/%d/revoke", id), map[string]interface{}{"reason": reason})
}

func (s *ledgerSteps) transferLast(ctx context.Context, caller, from, to string) error {
	return s.transfer(caller, from, to, false)
}

func (s *ledgerSteps) safeTransferLast(ctx context.Context, caller, from, to string) error {
	return s.transfer(caller, from, to, true)
}

func (s *ledgerSteps) transfer(caller, from, to string, safe bool) error {
	id, err := s.lastID()
	if err != nil {
		return err
	}
	return s.tc.POSTAs(caller, fmt.Sprintf("/credentials/%d/transfer", id), map[string]interface{}{
		"from": s.tc.Actor(from).String(),
		"to":   s.tc.Actor(to).String(),
		"safe": safe,
	})
}

func (s *ledgerSteps) burnLast(ctx context.Context, caller string) error {
	id, err := s.lastID()
	if err != nil {
		return err
	}
	return s.tc.POSTAs(caller, fmt.Sprintf("/credentials/%d/burn", id), nil)
}

func (s *ledgerSteps) fetchLast(ctx context.Context) error {
	id, err := s.lastID()
	if err != nil {
		return err
	}
	return s.fetchByID(ctx, id)
}

func (s *ledgerSteps) fetchByID(ctx context.Context, id int) error {
	return s.tc.GET(fmt.Sprintf("/credentials/%d", id), nil)
}

func (s *ledgerSteps) listOwned(ctx context.Context, owner string) error {
	return s.tc.GET(fmt.Sprintf("/owners/%s/credentials", s.tc.Actor(owner)), nil)
}

func (s *ledgerSteps) fetchCollection(ctx context.Context) error {
	return s.tc.GET("/collection", nil)
}

func (s *ledgerSteps) responseListsIDs(ctx context.Context, n int) error {
	ids, err := s.ids()
	if err != nil {
		return err
	}
	if len(ids) != n {
		return fmt.Errorf("expected %d ids but got %v", n, ids)
	}
	return nil
}

func (s *ledgerSteps) feedContains(ctx context.Context, eventType string) error {
	found, err := s.feedHas(eventType)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("event feed has no %s event\nResponse: %s", eventType, string(s.tc.GetLastResponseBody()))
	}
	return nil
}

func (s *ledgerSteps) feedLacks(ctx context.Context, eventType string) error {
	found, err := s.feedHas(eventType)
	if err != nil {
		return err
	}
	if found {
		return fmt.Errorf("event feed unexpectedly has a %s event", eventType)
	}
	return nil
}

func (s *ledgerSteps) feedHas(eventType string) (bool, error) {
	if err := s.tc.GET("/events?limit=1000", nil); err != nil {
		return false, err
	}
	var page struct {
		Events []struct {
			Event struct {
				Type string `json:"type"`
			} `json:"event"`
		} `json:"events"`
	}
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &page); err != nil {
		return false, fmt.Errorf("failed to parse event feed: %w", err)
	}
	for _, rec := range page.Events {
		if rec.Event.Type == eventType {
			return true, nil
		}
	}
	return false, nil
}

func (s *ledgerSteps) expectStatus(status int) error {
	if got := s.tc.GetLastResponseStatus(); got != status {
		return fmt.Errorf("expected status %d but got %d\nResponse: %s", status, got, string(s.tc.GetLastResponseBody()))
	}
	return nil
}

func (s *ledgerSteps) lastID() (int, error) {
	v, ok := s.tc.Recall(lastIDKey)
	if !ok {
		return 0, fmt.Errorf("no credential has been minted in this scenario")
	}
	return strconv.Atoi(v)
}

func (s *ledgerSteps) ids() ([]uint64, error) {
	var body struct {
		IDs []uint64 `json:"ids"`
	}
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &body); err != nil {
		return nil, fmt.Errorf("failed to parse ids: %w", err)
	}
	return body.IDs, nil
}

func repeat(v string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = v
	}
	return out
}
