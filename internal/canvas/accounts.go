package canvas

import (
	"context"
	"fmt"
)

type Account struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type enrollmentTerm struct {
	ID int64 `json:"id"`
}

// GetAccount fetches one account by id.
func (c *Client) GetAccount(ctx context.Context, accountID int64) (*Account, error) {
	var account Account
	err := c.get(ctx, fmt.Sprintf("/accounts/%d", accountID), nil, &account)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// SubAccounts enumerates every sub-account under the main account,
// recursively. The result is cached for the life of the process.
func (c *Client) SubAccounts(ctx context.Context) ([]Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subAccounts != nil {
		return c.subAccounts, nil
	}

	var accounts []Account
	query := map[string]string{"recursive": "1", "per_page": "200"}
	err := c.get(ctx, fmt.Sprintf("/accounts/%d/sub_accounts", MainAccountID), query, &accounts)
	if err != nil {
		return nil, err
	}
	c.subAccounts = accounts
	return accounts, nil
}

// TermID resolves a YYYYTT term to the Canvas enrollment term id.
func (c *Client) TermID(ctx context.Context, term int) (int64, error) {
	var enrollment enrollmentTerm
	path := fmt.Sprintf("/accounts/%d/terms/sis_term_id:%d", MainAccountID, term)
	if err := c.get(ctx, path, nil, &enrollment); err != nil {
		return 0, err
	}
	return enrollment.ID, nil
}
