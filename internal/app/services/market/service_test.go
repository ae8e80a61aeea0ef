package market_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"quickswap/internal/app/services/market"
	"quickswap/internal/app/syncer"
	"quickswap/internal/domain/listing"
	"quickswap/internal/domain/notification"
	"quickswap/internal/domain/order"
	domainuser "quickswap/internal/domain/user"
	"quickswap/internal/infra/fx"
	"quickswap/internal/infra/store"
	"quickswap/internal/infra/store/memory"
	"quickswap/internal/infra/wire"
)

type fixedRate struct{ rate float64 }

func (f fixedRate) FetchRate(context.Context) (float64, error) { return f.rate, nil }

type fixture struct {
	svc   *market.Service
	store *memory.Store
	users store.Users
	ctx   context.Context
}

var testNow = time.UnixMilli(1_700_000_000_000)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memory.NewStore()
	users := store.Users{Store: st}
	return &fixture{
		svc: &market.Service{
			Store:  st,
			Users:  users,
			FX:     fx.NewCache(fixedRate{rate: 40}, slog.Default()),
			Logger: slog.Default(),
			Clock:  func() time.Time { return testNow },
		},
		store: st,
		users: users,
		ctx:   context.Background(),
	}
}

func (f *fixture) addUser(t *testing.T, id string, role domainuser.Role, balance float64) {
	t.Helper()
	u := &domainuser.User{
		ID:           domainuser.ID(id),
		Name:         "User " + id,
		Username:     id,
		Email:        id + "@example.com",
		PasswordHash: "x",
		Role:         role,
		Balance:      balance,
	}
	if err := f.users.Save(f.ctx, u); err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
}

func (f *fixture) balance(t *testing.T, id string) float64 {
	t.Helper()
	u, err := f.users.ByID(f.ctx, domainuser.ID(id))
	if err != nil {
		t.Fatalf("load user %s: %v", id, err)
	}
	return u.Balance
}

func (f *fixture) notifications(t *testing.T, userID string) []wire.NotificationRecord {
	t.Helper()
	rows, err := f.store.Select(f.ctx, wire.TableNotifications, syncer.Filter{"user_id": userID}, nil)
	if err != nil {
		t.Fatalf("select notifications: %v", err)
	}
	out := make([]wire.NotificationRecord, 0, len(rows))
	for _, row := range rows {
		var rec wire.NotificationRecord
		if err := json.Unmarshal(row, &rec); err != nil {
			t.Fatalf("decode notification: %v", err)
		}
		out = append(out, rec)
	}
	return out
}

func (f *fixture) submitActive(t *testing.T, sellerID string, price float64) *listing.Listing {
	t.Helper()
	f.addUser(t, "admin", domainuser.RoleAdmin, 0)
	l, err := f.svc.SubmitListing(f.ctx, sellerID, market.SubmitListingParams{
		Title:     "Road bike",
		Price:     price,
		Category:  "sports",
		Condition: listing.ConditionUsed,
	})
	if err != nil {
		t.Fatalf("SubmitListing: %v", err)
	}
	if l.Status != listing.StatusPendingReview {
		t.Fatalf("fresh listing status = %s, want PENDING_REVIEW", l.Status)
	}
	if err := f.svc.ApproveListing(f.ctx, "admin", string(l.ID)); err != nil {
		t.Fatalf("ApproveListing: %v", err)
	}
	l.Status = listing.StatusActive
	return l
}

func TestPurchaseFlow(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "seller", domainuser.RoleUser, 100)
	f.addUser(t, "buyer", domainuser.RoleUser, 1000)
	l := f.submitActive(t, "seller", 400)

	o, err := f.svc.Checkout(f.ctx, "buyer", string(l.ID))
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if o.Status != order.StatusPreparing {
		t.Errorf("order status = %s, want PREPARING", o.Status)
	}
	if o.Price != 400 {
		t.Errorf("order price = %v, want 400", o.Price)
	}

	got, err := f.store.SelectOne(f.ctx, wire.TableListings, string(l.ID))
	if err != nil {
		t.Fatalf("reload listing: %v", err)
	}
	var rec wire.ListingRecord
	if err := json.Unmarshal(got, &rec); err != nil {
		t.Fatal(err)
	}
	if rec.Status != string(listing.StatusSold) {
		t.Errorf("listing status = %s, want SOLD", rec.Status)
	}

	if b := f.balance(t, "buyer"); b != 600 {
		t.Errorf("buyer balance = %v, want 600", b)
	}
	if b := f.balance(t, "seller"); b != 500 {
		t.Errorf("seller balance = %v, want 500", b)
	}
	seller, _ := f.users.ByID(f.ctx, "seller")
	if seller.TotalSales != 1 {
		t.Errorf("seller total sales = %d, want 1", seller.TotalSales)
	}

	var orderNotes []wire.NotificationRecord
	for _, n := range f.notifications(t, "seller") {
		if n.Type == string(notification.TypeOrder) {
			orderNotes = append(orderNotes, n)
		}
	}
	if len(orderNotes) != 1 {
		t.Fatalf("seller order notifications = %d, want exactly 1", len(orderNotes))
	}
	if orderNotes[0].Priority != string(notification.PriorityHigh) {
		t.Errorf("order notification priority = %s, want high", orderNotes[0].Priority)
	}

	// a sold listing cannot be bought again
	if _, err := f.svc.Checkout(f.ctx, "buyer", string(l.ID)); !errors.Is(err, market.ErrListingUnavailable) {
		t.Fatalf("expected ErrListingUnavailable on resale, got %v", err)
	}
}

func TestCheckoutInsufficientBalance(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "seller", domainuser.RoleUser, 0)
	f.addUser(t, "buyer", domainuser.RoleUser, 10)
	l := f.submitActive(t, "seller", 400)

	if _, err := f.svc.Checkout(f.ctx, "buyer", string(l.ID)); !errors.Is(err, market.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if b := f.balance(t, "buyer"); b != 10 {
		t.Errorf("buyer balance changed on failed checkout: %v", b)
	}
	reloaded, err := f.store.SelectOne(f.ctx, wire.TableListings, string(l.ID))
	if err != nil {
		t.Fatal(err)
	}
	var rec wire.ListingRecord
	json.Unmarshal(reloaded, &rec)
	if rec.Status != string(listing.StatusActive) {
		t.Errorf("listing status = %s after failed checkout, want ACTIVE", rec.Status)
	}
}

func TestCheckoutOwnListing(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "seller", domainuser.RoleUser, 1000)
	l := f.submitActive(t, "seller", 100)
	if _, err := f.svc.Checkout(f.ctx, "seller", string(l.ID)); !errors.Is(err, market.ErrOwnListing) {
		t.Fatalf("expected ErrOwnListing, got %v", err)
	}
}

func TestOfferFlow(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "seller", domainuser.RoleUser, 0)
	f.addUser(t, "buyer", domainuser.RoleUser, 500)
	l := f.submitActive(t, "seller", 100)

	// below 40% of asking is out of band
	if _, err := f.svc.MakeOffer(f.ctx, "buyer", string(l.ID), 30); !errors.Is(err, listing.ErrOfferOutOfBand) {
		t.Fatalf("expected ErrOfferOutOfBand, got %v", err)
	}
	// at or above asking is not an offer
	if _, err := f.svc.MakeOffer(f.ctx, "buyer", string(l.ID), 100); !errors.Is(err, listing.ErrOfferOutOfBand) {
		t.Fatalf("expected ErrOfferOutOfBand, got %v", err)
	}

	updated, err := f.svc.MakeOffer(f.ctx, "buyer", string(l.ID), 60)
	if err != nil {
		t.Fatalf("MakeOffer: %v", err)
	}
	if updated.Status != listing.StatusOfferMade || updated.OfferAmount != 60 {
		t.Errorf("listing after offer = %s/%v, want OFFER_MADE/60", updated.Status, updated.OfferAmount)
	}

	msgs, err := f.store.Select(f.ctx, wire.TableChatMessages, syncer.Filter{"listing_id": string(l.ID)}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Errorf("offer chat messages = %d, want 1", len(msgs))
	}

	var offerNotes int
	for _, n := range f.notifications(t, "seller") {
		if n.Type == string(notification.TypeOffer) {
			offerNotes++
		}
	}
	if offerNotes != 1 {
		t.Errorf("seller offer notifications = %d, want 1", offerNotes)
	}

	orderID, err := f.svc.AcceptOffer(f.ctx, "seller", string(l.ID), "buyer")
	if err != nil {
		t.Fatalf("AcceptOffer: %v", err)
	}
	row, err := f.store.SelectOne(f.ctx, wire.TableOrders, orderID)
	if err != nil {
		t.Fatalf("load order: %v", err)
	}
	var orec wire.OrderRecord
	json.Unmarshal(row, &orec)
	if orec.Price != 60 {
		t.Errorf("order price = %v, want offer amount 60", orec.Price)
	}
	if b := f.balance(t, "seller"); b != 60 {
		t.Errorf("seller balance = %v, want 60", b)
	}
	if b := f.balance(t, "buyer"); b != 440 {
		t.Errorf("buyer balance = %v, want 440", b)
	}
}

func TestAcceptOfferRequiresSellerAndPendingOffer(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "seller", domainuser.RoleUser, 0)
	f.addUser(t, "buyer", domainuser.RoleUser, 500)
	l := f.submitActive(t, "seller", 100)

	if _, err := f.svc.AcceptOffer(f.ctx, "buyer", string(l.ID), "buyer"); !errors.Is(err, market.ErrNotSeller) {
		t.Fatalf("expected ErrNotSeller, got %v", err)
	}
	if _, err := f.svc.AcceptOffer(f.ctx, "seller", string(l.ID), "buyer"); !errors.Is(err, market.ErrNoOfferPending) {
		t.Fatalf("expected ErrNoOfferPending, got %v", err)
	}
}

func TestModerationRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "seller", domainuser.RoleUser, 0)
	l, err := f.svc.SubmitListing(f.ctx, "seller", market.SubmitListingParams{
		Title: "Lamp", Price: 20, Category: "home", Condition: listing.ConditionNew,
	})
	if err != nil {
		t.Fatalf("SubmitListing: %v", err)
	}
	if err := f.svc.ApproveListing(f.ctx, "seller", string(l.ID)); !errors.Is(err, market.ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin, got %v", err)
	}
}

func TestRejectListingNotifiesSeller(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "seller", domainuser.RoleUser, 0)
	f.addUser(t, "admin", domainuser.RoleAdmin, 0)
	l, err := f.svc.SubmitListing(f.ctx, "seller", market.SubmitListingParams{
		Title: "Lamp", Price: 20, Category: "home", Condition: listing.ConditionNew,
	})
	if err != nil {
		t.Fatalf("SubmitListing: %v", err)
	}
	if err := f.svc.RejectListing(f.ctx, "admin", string(l.ID), "counterfeit suspicion"); err != nil {
		t.Fatalf("RejectListing: %v", err)
	}
	notes := f.notifications(t, "seller")
	if len(notes) != 1 || notes[0].Type != string(notification.TypeWarning) {
		t.Fatalf("expected one warning notification, got %+v", notes)
	}
}

func TestSendMessageNotifiesReceiver(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "seller", domainuser.RoleUser, 0)
	f.addUser(t, "buyer", domainuser.RoleUser, 0)
	l := f.submitActive(t, "seller", 50)

	msg, err := f.svc.SendMessage(f.ctx, "buyer", market.SendMessageParams{
		ListingID:  string(l.ID),
		ReceiverID: "seller",
		Text:       "Is this still available?",
	})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if !msg.InThread(string(l.ID), "buyer", "seller") {
		t.Error("message not in the expected thread")
	}
	var commentNotes []wire.NotificationRecord
	for _, n := range f.notifications(t, "seller") {
		if n.Type == string(notification.TypeComment) {
			commentNotes = append(commentNotes, n)
		}
	}
	if len(commentNotes) != 1 {
		t.Fatalf("seller comment notifications = %d, want exactly 1", len(commentNotes))
	}
	n := commentNotes[0]
	if n.Sender == nil || n.Sender.ID != "buyer" {
		t.Errorf("notification sender = %+v, want buyer", n.Sender)
	}
	if n.RelatedContent == nil || n.RelatedContent.Preview != "Road bike" {
		t.Errorf("notification related content = %+v, want listing preview", n.RelatedContent)
	}
}

func TestPromoteChargesTierFee(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "seller", domainuser.RoleUser, 1000)
	// 4000 local at rate 40 is $100: Popular tier, 6% of $100 = $6 = 240 local
	l := f.submitActive(t, "seller", 4000)

	fee, err := f.svc.Promote(f.ctx, "seller", string(l.ID))
	if err != nil {
		t.Fatalf("Promote: %v", err)
	}
	if fee.Tier.ID != "t3" {
		t.Errorf("tier = %s, want t3", fee.Tier.ID)
	}
	if fee.FeeLocal != 240 {
		t.Errorf("fee = %v, want 240", fee.FeeLocal)
	}
	if b := f.balance(t, "seller"); b != 760 {
		t.Errorf("seller balance = %v, want 760", b)
	}

	row, err := f.store.SelectOne(f.ctx, wire.TableListings, string(l.ID))
	if err != nil {
		t.Fatal(err)
	}
	var rec wire.ListingRecord
	json.Unmarshal(row, &rec)
	wantUntil := testNow.Add(7 * 24 * time.Hour).UnixMilli()
	if rec.BoostedUntil != wantUntil {
		t.Errorf("boosted_until = %d, want %d", rec.BoostedUntil, wantUntil)
	}
	if !rec.ToDomain().Boosted(testNow) {
		t.Error("listing not reported as boosted")
	}
}

func TestPromoteOnlyBySeller(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "seller", domainuser.RoleUser, 1000)
	f.addUser(t, "other", domainuser.RoleUser, 1000)
	l := f.submitActive(t, "seller", 100)
	if _, err := f.svc.Promote(f.ctx, "other", string(l.ID)); !errors.Is(err, market.ErrNotSeller) {
		t.Fatalf("expected ErrNotSeller, got %v", err)
	}
}

func TestBroadcastReachesEveryUser(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "admin", domainuser.RoleAdmin, 0)
	f.addUser(t, "u1", domainuser.RoleUser, 0)
	f.addUser(t, "u2", domainuser.RoleUser, 0)

	sent, err := f.svc.Broadcast(f.ctx, "admin", market.BroadcastParams{
		Topic:    "maintenance tonight",
		Priority: notification.PriorityMedium,
	})
	if err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	if sent != 3 {
		t.Errorf("broadcast recipients = %d, want 3", sent)
	}
	notes := f.notifications(t, "u1")
	if len(notes) != 1 || notes[0].Message != "maintenance tonight" {
		t.Fatalf("expected topic fallback message, got %+v", notes)
	}

	if _, err := f.svc.Broadcast(f.ctx, "u1", market.BroadcastParams{Topic: "x"}); !errors.Is(err, market.ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin, got %v", err)
	}
}

func TestUpdateOrderShipping(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "seller", domainuser.RoleUser, 0)
	f.addUser(t, "buyer", domainuser.RoleUser, 500)
	l := f.submitActive(t, "seller", 100)
	o, err := f.svc.Checkout(f.ctx, "buyer", string(l.ID))
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	if _, err := f.svc.UpdateOrderShipping(f.ctx, "buyer", o.ID, "DHL", "TRK1"); !errors.Is(err, market.ErrNotSeller) {
		t.Fatalf("expected ErrNotSeller, got %v", err)
	}
	shipped, err := f.svc.UpdateOrderShipping(f.ctx, "seller", o.ID, "DHL", "TRK1")
	if err != nil {
		t.Fatalf("UpdateOrderShipping: %v", err)
	}
	if shipped.Status != order.StatusShipped {
		t.Errorf("order status = %s, want SHIPPED", shipped.Status)
	}

	row, err := f.store.SelectOne(f.ctx, wire.TableOrders, o.ID)
	if err != nil {
		t.Fatal(err)
	}
	var rec wire.OrderRecord
	json.Unmarshal(row, &rec)
	if rec.ShippingInfo == nil || rec.ShippingInfo.TrackingCode != "TRK1" {
		t.Errorf("shipping info not persisted: %+v", rec.ShippingInfo)
	}

	var shippedNotes int
	for _, n := range f.notifications(t, "buyer") {
		if n.Type == string(notification.TypeOrder) {
			shippedNotes++
		}
	}
	if shippedNotes != 1 {
		t.Errorf("buyer order notifications = %d, want 1", shippedNotes)
	}
}
