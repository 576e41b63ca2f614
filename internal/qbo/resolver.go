package qbo

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Resolver maps human-entered names to QuickBooks object references, creating
// missing objects on demand. A Resolver is created once per top-level
// operation: its catalog snapshot is fetched once to avoid N lookups during
// line-item resolution, and is never reused across operations, so repeated
// calls always see current catalog state.
type Resolver struct {
	client *Client

	mu       sync.Mutex
	loaded   bool
	accounts []Account
	// itemRefs maps normalized Name and FullyQualifiedName to the item's ref.
	// Freshly created items are inserted here, which makes resolution
	// idempotent within one operation and keeps concurrent resolution of the
	// same new name from creating duplicates — the lock is held across the
	// whole resolve-or-create step.
	itemRefs map[string]*Ref
}

// NewResolver creates a Resolver bound to one session's client.
func NewResolver(client *Client) *Resolver {
	return &Resolver{client: client, itemRefs: make(map[string]*Ref)}
}

// normalizeName is the item-matching normalization: trim plus lowercase.
func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// FindOrCreateCustomer resolves a display name to a customer reference,
// creating the customer if no exact match exists. The lookup is exact-match
// (case- and whitespace-sensitive) at the query layer.
func (r *Resolver) FindOrCreateCustomer(ctx context.Context, displayName string) (*Ref, error) {
	existing, err := r.client.FindCustomerByDisplayName(ctx, displayName)
	if err != nil {
		return nil, fmt.Errorf("look up customer %q: %w", displayName, err)
	}
	if existing != nil {
		return &Ref{Value: existing.ID, Name: existing.DisplayName}, nil
	}

	created, err := r.client.CreateCustomer(ctx, displayName)
	if err != nil {
		return nil, fmt.Errorf("create customer %q: %w", displayName, err)
	}
	return &Ref{Value: created.ID, Name: created.DisplayName}, nil
}

// ResolveOrCreateItemRef resolves a product name to an item reference. An
// empty name yields no reference. If the catalog has no matching item and no
// income account exists to bind a new one to, resolution yields (nil, nil):
// the line proceeds without an item reference rather than failing the invoice.
func (r *Resolver) ResolveOrCreateItemRef(ctx context.Context, productName string) (*Ref, error) {
	name := normalizeName(productName)
	if name == "" {
		return nil, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.loadCatalog(ctx); err != nil {
		return nil, err
	}

	if ref, ok := r.itemRefs[name]; ok {
		return ref, nil
	}

	account := r.findIncomeAccount()
	if account == nil {
		return nil, nil
	}

	created, err := r.client.CreateItem(ctx, &Item{
		Name: strings.TrimSpace(productName),
		Type: "Service",
		IncomeAccountRef: &Ref{
			Value: account.ID,
			Name:  account.Name,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create item %q: %w", productName, err)
	}

	ref := &Ref{Value: created.ID, Name: created.Name}
	r.itemRefs[name] = ref
	if fqn := normalizeName(created.FullyQualifiedName); fqn != "" {
		r.itemRefs[fqn] = ref
	}
	return ref, nil
}

// loadCatalog snapshots all items and accounts. Called under r.mu, once per
// Resolver lifetime.
func (r *Resolver) loadCatalog(ctx context.Context) error {
	if r.loaded {
		return nil
	}

	items, err := r.client.QueryItems(ctx)
	if err != nil {
		return fmt.Errorf("load item catalog: %w", err)
	}
	for i := range items {
		ref := &Ref{Value: items[i].ID, Name: items[i].Name}
		if n := normalizeName(items[i].Name); n != "" {
			r.itemRefs[n] = ref
		}
		if n := normalizeName(items[i].FullyQualifiedName); n != "" {
			r.itemRefs[n] = ref
		}
	}

	accounts, err := r.client.QueryAccounts(ctx)
	if err != nil {
		return fmt.Errorf("load accounts: %w", err)
	}
	r.accounts = accounts
	r.loaded = true
	return nil
}

// findIncomeAccount locates the account new service items are bound to:
// account type "Income" first, then classification "Revenue", then a
// case-insensitive name match on "sales". Returns nil when nothing qualifies.
func (r *Resolver) findIncomeAccount() *Account {
	for i := range r.accounts {
		if r.accounts[i].AccountType == "Income" {
			return &r.accounts[i]
		}
	}
	for i := range r.accounts {
		if r.accounts[i].Classification == "Revenue" {
			return &r.accounts[i]
		}
	}
	for i := range r.accounts {
		if strings.Contains(strings.ToLower(r.accounts[i].Name), "sales") {
			return &r.accounts[i]
		}
	}
	return nil
}
