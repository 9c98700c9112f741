package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"budgetbook/internal/core"
	"budgetbook/internal/log"
)

const (
	solutionsPath = "/solution"
	sharePrefix   = "/users/available-to-share"
)

type solutionBody struct {
	Name        string `json:"name"`
	Year        int    `json:"year"`
	Description string `json:"description"`
}

func (c *Client) ListSolutions(ctx context.Context) ([]core.Solution, error) {
	var out []core.Solution
	if err := c.get(ctx, solutionsPath, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetSolution(ctx context.Context, id string) (core.Solution, error) {
	var raw json.RawMessage
	if err := c.get(ctx, solutionsPath+"/"+seg(id), &raw); err != nil {
		return core.Solution{}, err
	}
	var s core.Solution
	if err := unwrap(raw, "solutionCard", &s); err != nil {
		return core.Solution{}, err
	}
	return s, nil
}

func (c *Client) CreateSolution(ctx context.Context, s core.Solution) (core.Solution, error) {
	if err := s.Validate(); err != nil {
		return core.Solution{}, err
	}
	var raw json.RawMessage
	body := solutionBody{Name: s.Name, Year: s.Year, Description: s.Description}
	if err := c.send(ctx, http.MethodPost, solutionsPath, body, &raw, false, solutionsPath); err != nil {
		return core.Solution{}, err
	}
	var created core.Solution
	if len(raw) > 0 {
		if err := unwrap(raw, "solutionCard", &created); err != nil {
			return core.Solution{}, err
		}
	}
	c.events.Mutation(ctx, log.OpCreate, created.ID, created.ID)
	return created, nil
}

func (c *Client) UpdateSolution(ctx context.Context, s core.Solution) (core.Solution, error) {
	if err := s.Validate(); err != nil {
		return core.Solution{}, err
	}
	var raw json.RawMessage
	body := solutionBody{Name: s.Name, Year: s.Year, Description: s.Description}
	if err := c.send(ctx, http.MethodPut, solutionsPath+"/"+seg(s.ID), body, &raw, false, solutionsPath); err != nil {
		return core.Solution{}, err
	}
	updated := s
	if len(raw) > 0 {
		if err := unwrap(raw, "solutionCard", &updated); err != nil {
			return core.Solution{}, err
		}
	}
	c.events.Mutation(ctx, log.OpUpdate, s.ID, s.ID)
	return updated, nil
}

// DeleteSolution removes the card and forgets everything cached under it.
func (c *Client) DeleteSolution(ctx context.Context, id string) error {
	err := c.send(ctx, http.MethodDelete, solutionsPath+"/"+seg(id), nil, nil, false,
		solutionsPath, expensesPrefix+seg(id), cashPrefix+seg(id), dashboardPrefix+seg(id))
	if err != nil {
		return err
	}
	c.events.Mutation(ctx, log.OpDelete, id, id)
	return nil
}

// ShareSolution saves the sharing list; see core.MergeShares for how the
// list is built from the current shares and a new selection.
func (c *Client) ShareSolution(ctx context.Context, id string, shares []core.Share, notify bool) error {
	for _, s := range shares {
		if !s.Role.Valid() {
			return core.ErrInvalidRole
		}
	}
	body := struct {
		SharedWith  []core.Share `json:"sharedWith"`
		NotifyUsers bool         `json:"notifyUsers"`
	}{shares, notify}
	if err := c.send(ctx, http.MethodPost, solutionsPath+"/"+seg(id)+"/share", body, nil, false, solutionsPath, sharePrefix); err != nil {
		return err
	}
	c.events.Mutation(ctx, log.OpShare, id, id)
	return nil
}

// AvailableToShare lists the users the card can still be shared with.
func (c *Client) AvailableToShare(ctx context.Context, solutionID string) ([]core.User, error) {
	var out []core.User
	if err := c.get(ctx, sharePrefix+"?solutionCardId="+url.QueryEscape(solutionID), &out); err != nil {
		return nil, err
	}
	return out, nil
}
