/*
Package backup exports and restores an organization's full state.

PURPOSE:
  One organization's three collections - clients (with embedded accounts),
  transactions, loans (with embedded payments) - plus organization metadata
  serialize into a single JSON document. The document can optionally be
  sealed with a passphrase (see crypto.go).

RESTORE CONTRACT:
  All-or-nothing. The archive is fully decoded and structurally validated
  BEFORE anything is written; the stored state is then swapped in one
  ReplaceOrganization call. A malformed archive changes nothing.

SEE ALSO:
  - crypto.go: Passphrase sealing (scrypt + AES-256-GCM)
  - bank/store.go: ReplaceOrganization
*/
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/bvolvy/bwat-sekre/bank"
)

// Archive is the backup document layout.
type Archive struct {
	Organization bank.Organization  `json:"organization"`
	Clients      []bank.Client      `json:"clients"`
	Transactions []bank.Transaction `json:"transactions"`
	Loans        []bank.Loan        `json:"loans"`
}

// =============================================================================
// EXPORT
// =============================================================================

// Export serializes the organization's full state as one JSON document.
func Export(ctx context.Context, st bank.Store, org bank.Organization) ([]byte, error) {
	clients, err := st.Clients(ctx, org.ID)
	if err != nil {
		return nil, err
	}
	txs, err := st.Transactions(ctx, org.ID)
	if err != nil {
		return nil, err
	}
	loans, err := st.Loans(ctx, org.ID)
	if err != nil {
		return nil, err
	}

	archive := Archive{
		Organization: org,
		Clients:      clients,
		Transactions: txs,
		Loans:        loans,
	}
	if archive.Clients == nil {
		archive.Clients = []bank.Client{}
	}
	if archive.Transactions == nil {
		archive.Transactions = []bank.Transaction{}
	}
	if archive.Loans == nil {
		archive.Loans = []bank.Loan{}
	}
	return json.MarshalIndent(archive, "", "  ")
}

// ExportEncrypted serializes and seals the archive with the passphrase.
func ExportEncrypted(ctx context.Context, st bank.Store, org bank.Organization, passphrase string) ([]byte, error) {
	plain, err := Export(ctx, st, org)
	if err != nil {
		return nil, err
	}
	return Seal(plain, passphrase)
}

// =============================================================================
// RESTORE
// =============================================================================

// Restore validates the archive and replaces the organization's stored
// state. Pass the passphrase used at export time, or empty for a plain
// archive. On any validation failure the store is left untouched.
func Restore(ctx context.Context, st bank.Store, org bank.OrgID, data []byte, passphrase string) error {
	if IsSealed(data) {
		var err error
		data, err = Open(data, passphrase)
		if err != nil {
			return err
		}
	}

	archive, err := decode(data)
	if err != nil {
		return err
	}
	if archive.Organization.ID != org {
		return fmt.Errorf("archive belongs to organization %q, not %q: %w",
			archive.Organization.ID, org, bank.ErrInvalidArchive)
	}
	if err := validate(archive, org); err != nil {
		return err
	}

	return st.ReplaceOrganization(ctx, org, archive.Clients, archive.Transactions, archive.Loans)
}

// decode unmarshals strictly: the three collections and the organization
// key must all be present.
func decode(data []byte) (Archive, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Archive{}, fmt.Errorf("%w: %v", bank.ErrInvalidArchive, err)
	}
	for _, key := range []string{"organization", "clients", "transactions", "loans"} {
		if _, ok := raw[key]; !ok {
			return Archive{}, fmt.Errorf("%w: missing %q", bank.ErrInvalidArchive, key)
		}
	}

	var archive Archive
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&archive); err != nil {
		return Archive{}, fmt.Errorf("%w: %v", bank.ErrInvalidArchive, err)
	}
	return archive, nil
}

// validate checks referential shape before anything is written.
func validate(a Archive, org bank.OrgID) error {
	clientIDs := make(map[bank.ClientID]bool, len(a.Clients))
	for _, c := range a.Clients {
		if c.ID == "" {
			return fmt.Errorf("%w: client with empty id", bank.ErrInvalidArchive)
		}
		if c.OrgID != org {
			return fmt.Errorf("%w: client %s belongs to another organization", bank.ErrInvalidArchive, c.ID)
		}
		clientIDs[c.ID] = true
	}
	for _, tx := range a.Transactions {
		if tx.ID == "" {
			return fmt.Errorf("%w: transaction with empty id", bank.ErrInvalidArchive)
		}
		if tx.OrgID != org {
			return fmt.Errorf("%w: transaction %s belongs to another organization", bank.ErrInvalidArchive, tx.ID)
		}
		if !clientIDs[tx.ClientID] {
			return fmt.Errorf("%w: transaction %s references unknown client %s", bank.ErrInvalidArchive, tx.ID, tx.ClientID)
		}
	}
	for _, l := range a.Loans {
		if l.ID == "" {
			return fmt.Errorf("%w: loan with empty id", bank.ErrInvalidArchive)
		}
		if l.OrgID != org {
			return fmt.Errorf("%w: loan %s belongs to another organization", bank.ErrInvalidArchive, l.ID)
		}
		if !clientIDs[l.ClientID] {
			return fmt.Errorf("%w: loan %s references unknown client %s", bank.ErrInvalidArchive, l.ID, l.ClientID)
		}
	}
	return nil
}
