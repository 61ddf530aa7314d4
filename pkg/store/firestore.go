package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hirewire/outreach/pkg/types"
)

// Firestore persists the engine's state in Cloud Firestore. Campaign
// commits run inside a transaction that checks the document revision, so
// a concurrent writer surfaces as ErrConflict rather than a lost update.
type Firestore struct {
	client      *firestore.Client
	campaigns   string
	contractors string
	attempts    string
}

// NewFirestore wraps an existing Firestore client with the collection
// names used by this deployment.
func NewFirestore(client *firestore.Client, campaignCol, contractorCol, attemptCol string) *Firestore {
	return &Firestore{
		client:      client,
		campaigns:   campaignCol,
		contractors: contractorCol,
		attempts:    attemptCol,
	}
}

func attemptDocID(campaignID, contractorID string) string {
	return campaignID + "_" + contractorID
}

// CreateCampaign stores a new campaign ledger at revision 1.
func (f *Firestore) CreateCampaign(ctx context.Context, c *types.Campaign) error {
	c.Revision = 1
	if _, err := f.client.Collection(f.campaigns).Doc(c.ID).Create(ctx, c); err != nil {
		return fmt.Errorf("create campaign %s: %w", c.ID, err)
	}
	return f.writeAttemptIndex(ctx, c)
}

// GetCampaign loads one campaign ledger.
func (f *Firestore) GetCampaign(ctx context.Context, id string) (*types.Campaign, error) {
	doc, err := f.client.Collection(f.campaigns).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get campaign %s: %w", id, err)
	}
	var c types.Campaign
	if err := doc.DataTo(&c); err != nil {
		return nil, fmt.Errorf("unmarshal campaign %s: %w", id, err)
	}
	return &c, nil
}

// UpdateCampaign commits a mutated ledger, rejecting stale revisions.
func (f *Firestore) UpdateCampaign(ctx context.Context, c *types.Campaign) error {
	ref := f.client.Collection(f.campaigns).Doc(c.ID)
	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return ErrNotFound
			}
			return err
		}
		var current types.Campaign
		if err := doc.DataTo(&current); err != nil {
			return err
		}
		if current.Revision != c.Revision {
			return ErrConflict
		}
		c.Revision++
		return tx.Set(ref, c)
	})
	if err != nil {
		if err == ErrConflict || err == ErrNotFound {
			return err
		}
		return fmt.Errorf("update campaign %s: %w", c.ID, err)
	}
	return f.writeAttemptIndex(ctx, c)
}

// writeAttemptIndex mirrors the attempts embedded in a campaign document
// into the flat cross-campaign collection that serves tier-2 queries.
func (f *Firestore) writeAttemptIndex(ctx context.Context, c *types.Campaign) error {
	if len(c.Outreach) == 0 {
		return nil
	}
	bw := f.client.BulkWriter(ctx)
	for _, a := range c.Outreach {
		ref := f.client.Collection(f.attempts).Doc(attemptDocID(a.CampaignID, a.ContractorID))
		if _, err := bw.Set(ref, a); err != nil {
			return fmt.Errorf("index attempt %s/%s: %w", a.CampaignID, a.ContractorID, err)
		}
	}
	bw.End()
	return nil
}

// ListCampaigns returns every campaign ordered by creation time.
func (f *Firestore) ListCampaigns(ctx context.Context) ([]*types.Campaign, error) {
	docs, err := f.client.Collection(f.campaigns).OrderBy("created_at", firestore.Asc).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	out := make([]*types.Campaign, 0, len(docs))
	for _, doc := range docs {
		var c types.Campaign
		if err := doc.DataTo(&c); err != nil {
			return nil, fmt.Errorf("unmarshal campaign %s: %w", doc.Ref.ID, err)
		}
		out = append(out, &c)
	}
	return out, nil
}

// UpsertContractor stores or replaces a contractor record.
func (f *Firestore) UpsertContractor(ctx context.Context, c *types.CandidateContractor) error {
	if _, err := f.client.Collection(f.contractors).Doc(c.ID).Set(ctx, c); err != nil {
		return fmt.Errorf("upsert contractor %s: %w", c.ID, err)
	}
	return nil
}

// GetContractor loads one contractor record.
func (f *Firestore) GetContractor(ctx context.Context, id string) (*types.CandidateContractor, error) {
	doc, err := f.client.Collection(f.contractors).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get contractor %s: %w", id, err)
	}
	var c types.CandidateContractor
	if err := doc.DataTo(&c); err != nil {
		return nil, fmt.Errorf("unmarshal contractor %s: %w", id, err)
	}
	return &c, nil
}

// QueryRegistry runs the tier-1 structured query. Firestore allows one
// array operator per query, so capability intersection is pushed down and
// the service-area membership check runs client-side.
func (f *Firestore) QueryRegistry(ctx context.Context, q RegistryQuery) ([]*types.CandidateContractor, error) {
	query := f.client.Collection(f.contractors).Query
	if q.Availability != "" {
		query = query.Where("availability", "==", string(q.Availability))
	}
	if len(q.Categories) > 0 {
		cats := q.Categories
		if len(cats) > 10 {
			cats = cats[:10] // array-contains-any ceiling
		}
		query = query.Where("capabilities", "array-contains-any", cats)
	}

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("query registry: %w", err)
	}

	out := make([]*types.CandidateContractor, 0, len(docs))
	for _, doc := range docs {
		var c types.CandidateContractor
		if err := doc.DataTo(&c); err != nil {
			return nil, fmt.Errorf("unmarshal contractor %s: %w", doc.Ref.ID, err)
		}
		if q.ServiceArea != "" && !containsFold(c.ServiceAreas, q.ServiceArea) {
			continue
		}
		out = append(out, &c)
	}
	return out, nil
}

// ListAttemptsSince returns attempts across all campaigns at or after since.
func (f *Firestore) ListAttemptsSince(ctx context.Context, since time.Time) ([]*types.OutreachAttempt, error) {
	docs, err := f.client.Collection(f.attempts).
		Where("attempted_at", ">=", since).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	out := make([]*types.OutreachAttempt, 0, len(docs))
	for _, doc := range docs {
		var a types.OutreachAttempt
		if err := doc.DataTo(&a); err != nil {
			return nil, fmt.Errorf("unmarshal attempt %s: %w", doc.Ref.ID, err)
		}
		out = append(out, &a)
	}
	return out, nil
}

// ListDeclinedContractors returns contractors with a permanently_declined
// attempt on record, across all campaigns with no recency cutoff.
func (f *Firestore) ListDeclinedContractors(ctx context.Context) (map[string]bool, error) {
	docs, err := f.client.Collection(f.attempts).
		Where("status", "==", string(types.ResponsePermanentlyDeclined)).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list declined contractors: %w", err)
	}
	out := make(map[string]bool, len(docs))
	for _, doc := range docs {
		var a types.OutreachAttempt
		if err := doc.DataTo(&a); err != nil {
			return nil, fmt.Errorf("unmarshal attempt %s: %w", doc.Ref.ID, err)
		}
		out[a.ContractorID] = true
	}
	return out, nil
}
