package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bvolvy/bwat-sekre/bank"
)

// =============================================================================
// CLIENTS - Onboarding and profile maintenance
// =============================================================================

// ClientInput carries the editable profile fields of a client. Accounts and
// balances are never set from input; they change only through the account
// service.
type ClientInput struct {
	FirstName    string
	LastName     string
	PhoneNumber  string
	Address      string
	Email        string
	Emergency    bank.EmergencyContact
	ProfileImage string
}

type Clients struct {
	store bank.Store

	now   func() time.Time
	newID func() string
}

func NewClients(store bank.Store) *Clients {
	return &Clients{store: store, now: time.Now, newID: uuid.NewString}
}

// Create onboards a new client with no accounts.
func (c *Clients) Create(ctx context.Context, org bank.OrgID, in ClientInput) (bank.Client, error) {
	if strings.TrimSpace(in.FirstName) == "" || strings.TrimSpace(in.LastName) == "" {
		return bank.Client{}, fmt.Errorf("first and last name are required: %w", bank.ErrInvalidClient)
	}
	client := bank.Client{
		ID:           bank.ClientID(c.newID()),
		OrgID:        org,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PhoneNumber:  in.PhoneNumber,
		Address:      in.Address,
		Email:        in.Email,
		Emergency:    in.Emergency,
		ProfileImage: in.ProfileImage,
		CreatedAt:    c.now(),
		Accounts:     nil,
	}
	if err := c.store.SaveClient(ctx, client); err != nil {
		return bank.Client{}, err
	}
	return client, nil
}

// Update replaces a client's profile fields. Accounts are untouched.
func (c *Clients) Update(ctx context.Context, org bank.OrgID, id bank.ClientID, in ClientInput) (bank.Client, error) {
	client, err := c.store.Client(ctx, org, id)
	if err != nil {
		return bank.Client{}, err
	}
	client.FirstName = in.FirstName
	client.LastName = in.LastName
	client.PhoneNumber = in.PhoneNumber
	client.Address = in.Address
	client.Email = in.Email
	client.Emergency = in.Emergency
	client.ProfileImage = in.ProfileImage

	if err := c.store.SaveClient(ctx, client); err != nil {
		return bank.Client{}, err
	}
	return client, nil
}

// Get returns one client within the organization.
func (c *Clients) Get(ctx context.Context, org bank.OrgID, id bank.ClientID) (bank.Client, error) {
	return c.store.Client(ctx, org, id)
}

// List returns the organization's clients, oldest first.
func (c *Clients) List(ctx context.Context, org bank.OrgID) ([]bank.Client, error) {
	return c.store.Clients(ctx, org)
}
