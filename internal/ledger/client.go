// Package ledger implements the HTTP client for the budgeting application,
// the write-side target of the synchronization. The client offers the raw
// primitives (accounts, categories, transactions, rules, commit); the
// dedup and batching logic on top of them lives in the sync engine.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/accounting-ledger-sync/internal/config"
)

// ErrRemote wraps a non-2xx response from the ledger API
type ErrRemote struct {
	StatusCode int
	Body       string
}

func (e ErrRemote) Error() string {
	return fmt.Sprintf("ledger api error %d: %s", e.StatusCode, e.Body)
}

// Is implements the errors.Is interface for ErrRemote
func (e ErrRemote) Is(target error) bool {
	t, ok := target.(ErrRemote)
	if !ok {
		return false
	}
	if t.StatusCode == 0 {
		return true
	}
	return e.StatusCode == t.StatusCode
}

// Client talks to the budget ledger server
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a ledger API client from configuration
func NewClient(logger *slog.Logger, cfg *config.LedgerConfig) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		logger:     logger,
	}
}

// do performs one request. A 404 yields (nil, nil) so deletes and lookups
// can treat absence as a value rather than an error.
func (c *Client) do(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode ledger request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build ledger request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ledger request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, ErrRemote{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	return respBody, nil
}

// ListAccounts returns all budget accounts
func (c *Client) ListAccounts(ctx context.Context) ([]*Account, error) {
	body, err := c.do(ctx, http.MethodGet, "/accounts", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	if body == nil {
		return nil, ErrRemote{StatusCode: http.StatusNotFound, Body: "/accounts"}
	}

	var accounts []*Account
	if err := json.Unmarshal(body, &accounts); err != nil {
		return nil, fmt.Errorf("failed to decode accounts: %w", err)
	}

	return accounts, nil
}

// GetOrCreateAccount resolves an account by name, creating it when the
// budget does not have it yet
func (c *Client) GetOrCreateAccount(ctx context.Context, name string) (*Account, error) {
	accounts, err := c.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	for _, acc := range accounts {
		if acc.Name == name && !acc.Closed {
			return acc, nil
		}
	}

	body, err := c.do(ctx, http.MethodPost, "/accounts", &Account{Name: name})
	if err != nil {
		return nil, fmt.Errorf("failed to create account %q: %w", name, err)
	}

	var created Account
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, fmt.Errorf("failed to decode created account: %w", err)
	}
	c.logger.Info("Created ledger account", "name", name, "id", created.ID)

	return &created, nil
}

// ListCategoryGroups returns all category groups
func (c *Client) ListCategoryGroups(ctx context.Context) ([]*CategoryGroup, error) {
	body, err := c.do(ctx, http.MethodGet, "/category-groups", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list category groups: %w", err)
	}
	if body == nil {
		return nil, ErrRemote{StatusCode: http.StatusNotFound, Body: "/category-groups"}
	}

	var groups []*CategoryGroup
	if err := json.Unmarshal(body, &groups); err != nil {
		return nil, fmt.Errorf("failed to decode category groups: %w", err)
	}

	return groups, nil
}

// GetOrCreateCategoryGroup resolves a category group by name, creating it
// when absent
func (c *Client) GetOrCreateCategoryGroup(ctx context.Context, name string) (*CategoryGroup, error) {
	groups, err := c.ListCategoryGroups(ctx)
	if err != nil {
		return nil, err
	}
	for _, group := range groups {
		if group.Name == name {
			return group, nil
		}
	}

	body, err := c.do(ctx, http.MethodPost, "/category-groups", &CategoryGroup{Name: name})
	if err != nil {
		return nil, fmt.Errorf("failed to create category group %q: %w", name, err)
	}

	var created CategoryGroup
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, fmt.Errorf("failed to decode created category group: %w", err)
	}
	c.logger.Info("Created ledger category group", "name", name, "id", created.ID)

	return &created, nil
}

// ListCategories returns all budget categories
func (c *Client) ListCategories(ctx context.Context) ([]*Category, error) {
	body, err := c.do(ctx, http.MethodGet, "/categories", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	if body == nil {
		return nil, ErrRemote{StatusCode: http.StatusNotFound, Body: "/categories"}
	}

	var categories []*Category
	if err := json.Unmarshal(body, &categories); err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}

	return categories, nil
}

// CreateCategory creates a category inside a group
func (c *Client) CreateCategory(ctx context.Context, name, groupID string) (*Category, error) {
	body, err := c.do(ctx, http.MethodPost, "/categories", &Category{Name: name, GroupID: groupID})
	if err != nil {
		return nil, fmt.Errorf("failed to create category %q: %w", name, err)
	}

	var created Category
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, fmt.Errorf("failed to decode created category: %w", err)
	}
	c.logger.Info("Created ledger category", "name", name, "id", created.ID)

	return &created, nil
}

// ListPayees returns all payees known to the ledger
func (c *Client) ListPayees(ctx context.Context) ([]*Payee, error) {
	body, err := c.do(ctx, http.MethodGet, "/payees", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list payees: %w", err)
	}
	if body == nil {
		return nil, ErrRemote{StatusCode: http.StatusNotFound, Body: "/payees"}
	}

	var payees []*Payee
	if err := json.Unmarshal(body, &payees); err != nil {
		return nil, fmt.Errorf("failed to decode payees: %w", err)
	}

	return payees, nil
}

// ListTransactions returns the non-deleted transactions of an account, the
// working set for dedup matching
func (c *Client) ListTransactions(ctx context.Context, accountID string) ([]*Transaction, error) {
	body, err := c.do(ctx, http.MethodGet, "/accounts/"+accountID+"/transactions", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	if body == nil {
		return nil, ErrRemote{StatusCode: http.StatusNotFound, Body: "account " + accountID}
	}

	var transactions []*Transaction
	if err := json.Unmarshal(body, &transactions); err != nil {
		return nil, fmt.Errorf("failed to decode transactions: %w", err)
	}

	return transactions, nil
}

// CreateTransaction adds a transaction to an account and returns its id
func (c *Client) CreateTransaction(ctx context.Context, accountID string, tx *NewTransaction) (string, error) {
	body, err := c.do(ctx, http.MethodPost, "/accounts/"+accountID+"/transactions", tx)
	if err != nil {
		return "", fmt.Errorf("failed to create transaction: %w", err)
	}

	var created Transaction
	if err := json.Unmarshal(body, &created); err != nil {
		return "", fmt.Errorf("failed to decode created transaction: %w", err)
	}

	return created.ID, nil
}

// UpdateTransaction applies a partial update to one transaction
func (c *Client) UpdateTransaction(ctx context.Context, id string, update *TransactionUpdate) error {
	body, err := c.do(ctx, http.MethodPatch, "/transactions/"+id, update)
	if err != nil {
		return fmt.Errorf("failed to update transaction %s: %w", id, err)
	}
	if body == nil {
		return ErrRemote{StatusCode: http.StatusNotFound, Body: "transaction " + id}
	}

	return nil
}

// DeleteTransaction removes a transaction, reporting whether it existed.
// An already-gone transaction is success, not an error; the reconciler
// depends on that.
func (c *Client) DeleteTransaction(ctx context.Context, id string) (bool, error) {
	body, err := c.do(ctx, http.MethodDelete, "/transactions/"+id, nil)
	if err != nil {
		return false, fmt.Errorf("failed to delete transaction %s: %w", id, err)
	}

	return body != nil, nil
}

// ApplyRules runs the ledger's categorization rules over the given
// transactions, the post-import step of every batch
func (c *Client) ApplyRules(ctx context.Context, transactionIDs []string) error {
	if len(transactionIDs) == 0 {
		return nil
	}

	payload := map[string][]string{"transaction_ids": transactionIDs}
	if _, err := c.do(ctx, http.MethodPost, "/rules/run", payload); err != nil {
		return fmt.Errorf("failed to apply rules: %w", err)
	}

	return nil
}

// Commit flushes the budget's pending changes. Called once per import
// batch; one-by-one commits dominate run time otherwise.
func (c *Client) Commit(ctx context.Context) error {
	if _, err := c.do(ctx, http.MethodPost, "/commit", nil); err != nil {
		return fmt.Errorf("failed to commit ledger changes: %w", err)
	}

	return nil
}
