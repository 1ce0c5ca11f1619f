// Package marketing syncs purchasers onto the mailing list: a deterministic
// subscriber key, merge fields, and content-based tags, applied as an
// idempotent upsert followed by a tagging call.
package marketing

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/bridgebuilders/storefront/internal/domain/cart"
	"github.com/bridgebuilders/storefront/internal/domain/catalog"
	"github.com/bridgebuilders/storefront/internal/domain/checkout"
)

// Content tags applied according to what was bought.
const (
	TagPurchasedCustomer = "Purchased-Customer"
	TagUnshakableGuide   = "30-Day-Unshakable-Guide"
	TagPrayerGuide       = "10-Day-Prayer-Guide"
	TagUnshakableJourney = "Unshakable-Journey-Active"
	TagFireJourney       = "Fire-Journey-Active"
)

// Member is the subscriber record sent to the marketing-list system.
type Member struct {
	EmailAddress string
	MergeFields  map[string]string
}

// ListClient is the marketing-list system interface: upsert-by-hash and
// tag assignment as two independent calls.
type ListClient interface {
	UpsertMember(ctx context.Context, subscriberKey string, m Member) error
	AddTags(ctx context.Context, subscriberKey string, tags []string) error
}

// SubscriberKey derives the deterministic subscriber key: the hex-encoded
// MD5 digest of the lowercased email. Same email, any case, same record.
func SubscriberKey(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(email)))
	return hex.EncodeToString(sum[:])
}

// SyncInput carries everything the engine needs for one confirmation event.
type SyncInput struct {
	Email   string
	Name    string
	Cart    cart.Cart
	Address checkout.Address
	IsGift  bool
}

// Engine computes subscriber state and pushes it to the list system.
type Engine struct {
	list ListClient
}

// NewEngine creates an Engine. A nil client marks the marketing-list system
// as unconfigured; Sync is then a logged no-op.
func NewEngine(list ListClient) *Engine {
	return &Engine{list: list}
}

// MergeFields builds the subscriber profile fields. First/last name are
// split on the first whitespace. Address, phone and postal/state fields are
// attached only for non-gift orders: a gift purchaser's own profile must not
// absorb the shipping destination as if it were their residence.
func MergeFields(in SyncInput) map[string]string {
	first, last := splitName(in.Name)
	fields := map[string]string{
		"FNAME": first,
		"LNAME": last,
	}
	if !in.IsGift {
		if in.Address.Street1 != "" {
			street := in.Address.Street1
			if in.Address.Street2 != "" {
				street += ", " + in.Address.Street2
			}
			fields["ADDRESS"] = street + ", " + in.Address.City
		}
		if in.Address.Phone != "" {
			fields["PHONE"] = in.Address.Phone
		}
		if in.Address.PostalCode != "" {
			fields["ZIP"] = in.Address.PostalCode
		}
		if in.Address.State != "" {
			fields["STATE"] = in.Address.State
		}
	}
	return fields
}

// Tags computes the content-based tag set. Guide tags follow the title
// families present in the cart in any format. Journey tags are stricter:
// they activate only for non-gift orders holding the bundle or a flagship
// paperback — a gift buyer is not starting their own journey, and an
// ebook-only purchase does not enroll one either.
func Tags(c cart.Cart, isGift bool) []string {
	tags := []string{TagPurchasedCustomer}

	hasBundle := c.HasFamily(catalog.FamilyBundle)

	if hasBundle || c.HasFamily(catalog.FamilyUnshakable) {
		tags = append(tags, TagUnshakableGuide)
	}
	if hasBundle || c.HasFamily(catalog.FamilyFire) {
		tags = append(tags, TagPrayerGuide)
	}
	if !isGift {
		if hasBundle || c.HasPhysicalFamily(catalog.FamilyUnshakable) {
			tags = append(tags, TagUnshakableJourney)
		}
		if hasBundle || c.HasPhysicalFamily(catalog.FamilyFire) {
			tags = append(tags, TagFireJourney)
		}
	}
	return tags
}

// Sync upserts the subscriber and applies tags. The tagging call runs only
// after a successful upsert, and its failure is logged but non-fatal. All
// failures carry full request context in the log; none are fatal to the
// caller beyond bookkeeping.
func (e *Engine) Sync(ctx context.Context, in SyncInput) error {
	lg := zctx.From(ctx)

	if e.list == nil {
		lg.Info("marketing list not configured, skipping sync",
			zap.String("email", in.Email))
		return nil
	}
	if in.Email == "" {
		lg.Warn("confirmation event carried no email, skipping sync")
		return nil
	}

	key := SubscriberKey(in.Email)
	member := Member{
		EmailAddress: in.Email,
		MergeFields:  MergeFields(in),
	}

	if err := e.list.UpsertMember(ctx, key, member); err != nil {
		lg.Error("subscriber upsert failed",
			zap.String("subscriber_key", key),
			zap.String("email", in.Email),
			zap.Bool("gift", in.IsGift),
			zap.Error(err),
		)
		return errors.Wrap(err, "upsert subscriber")
	}

	tags := Tags(in.Cart, in.IsGift)
	if err := e.list.AddTags(ctx, key, tags); err != nil {
		lg.Error("subscriber tagging failed",
			zap.String("subscriber_key", key),
			zap.Strings("tags", tags),
			zap.Error(err),
		)
		return nil
	}

	lg.Info("subscriber synced",
		zap.String("subscriber_key", key),
		zap.Strings("tags", tags),
	)
	return nil
}

// splitName splits a full name on the first whitespace run.
func splitName(name string) (first, last string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ""
	}
	parts := strings.Fields(name)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
