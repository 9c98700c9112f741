package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"budgetbook/internal/core"
	"budgetbook/internal/log"
)

const cashPrefix = "/collected-cash/solution/"

func (c *Client) ListCollectedCash(ctx context.Context, solutionID string) ([]core.CollectedCash, error) {
	var out struct {
		CollectedCash []core.CollectedCash `json:"collectedCash"`
	}
	if err := c.get(ctx, cashPrefix+seg(solutionID), &out); err != nil {
		return nil, err
	}
	return out.CollectedCash, nil
}

func (c *Client) CreateCollectedCash(ctx context.Context, solutionID, name string, amount decimal.Decimal) (core.CollectedCash, error) {
	entry := core.CollectedCash{Name: name, Amount: amount, SolutionCard: solutionID}
	if err := entry.Validate(); err != nil {
		return core.CollectedCash{}, err
	}
	body := map[string]any{"solutionCardId": solutionID, "name": name, "amount": amount}
	var raw json.RawMessage
	if err := c.send(ctx, http.MethodPost, "/collected-cash", body, &raw, false, cashInvalidation(solutionID)...); err != nil {
		return core.CollectedCash{}, err
	}
	created := entry
	if len(raw) > 0 {
		if err := unwrap(raw, "collectedCash", &created); err != nil {
			return core.CollectedCash{}, err
		}
	}
	c.events.Mutation(ctx, log.OpCreate, solutionID, created.ID)
	return created, nil
}

func (c *Client) UpdateCollectedCash(ctx context.Context, solutionID, id, name string, amount decimal.Decimal) error {
	entry := core.CollectedCash{ID: id, Name: name, Amount: amount}
	if err := entry.Validate(); err != nil {
		return err
	}
	body := map[string]any{"name": name, "amount": amount}
	if err := c.send(ctx, http.MethodPut, "/collected-cash/"+seg(id), body, nil, false, cashInvalidation(solutionID)...); err != nil {
		return err
	}
	c.events.Mutation(ctx, log.OpUpdate, solutionID, id)
	return nil
}

func (c *Client) DeleteCollectedCash(ctx context.Context, solutionID, id string) error {
	if err := c.send(ctx, http.MethodDelete, "/collected-cash/"+seg(id), nil, nil, false, cashInvalidation(solutionID)...); err != nil {
		return err
	}
	c.events.Mutation(ctx, log.OpDelete, solutionID, id)
	return nil
}

func cashInvalidation(solutionID string) []string {
	return []string{cashPrefix + seg(solutionID), dashboardPrefix + seg(solutionID)}
}

// Dashboard returns the totals and recent activity of one solution card.
func (c *Client) Dashboard(ctx context.Context, solutionID string) (core.Dashboard, error) {
	var d core.Dashboard
	if err := c.get(ctx, dashboardPrefix+seg(solutionID), &d); err != nil {
		return core.Dashboard{}, err
	}
	return d, nil
}
