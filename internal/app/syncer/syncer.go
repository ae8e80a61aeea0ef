// Package syncer keeps an in-memory snapshot of the marketplace collections
// consistent with the authoritative remote store. It combines bulk refetches,
// a push subscription for row-level changes, and optimistic local edits for
// user-initiated actions.
package syncer

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"quickswap/internal/domain/chat"
	"quickswap/internal/domain/listing"
	"quickswap/internal/domain/notification"
	"quickswap/internal/domain/order"
	"quickswap/internal/domain/user"
	"quickswap/internal/infra/wire"
)

// Phase tracks the bulk-collection lifecycle. Loaded is re-entered on every
// refetch; there is no distinct stale state, a refetch replaces the snapshot.
type Phase int

const (
	PhaseUnloaded Phase = iota
	PhaseLoading
	PhaseLoaded
)

// Synchronizer reconciles local optimistic mutations against the remote
// change feed. Listings and orders are reconciled by coarse refetch; messages
// and notifications are append-mostly streams patched incrementally.
type Synchronizer struct {
	store    Store
	sessions SessionSource
	logger   *slog.Logger

	mu            sync.Mutex
	phase         Phase
	listings      []*listing.Listing
	users         []*user.User
	messages      []*chat.Message
	orders        []*order.Order
	notifications []*notification.Notification

	userID       string
	unsubChanges func()
	unsubSession func()

	// gen guards in-flight fetches: results whose generation no longer
	// matches are dropped instead of touching state that has been rebound
	// or closed. The network call itself is not cancelled.
	gen    int
	closed bool
}

func New(store Store, sessions SessionSource, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{store: store, sessions: sessions, logger: logger}
}

// Start performs the initial bulk load, binds the push subscription to the
// current session, and registers the session-change listener. The caller
// should treat the UI as blocked until Start returns.
func (s *Synchronizer) Start(ctx context.Context) error {
	if err := s.Refetch(ctx); err != nil {
		return err
	}

	sess := Session{}
	if s.sessions != nil {
		var err error
		sess, err = s.sessions.Session(ctx)
		if err != nil {
			s.logger.Warn("session lookup failed, starting signed out", "error", err)
			sess = Session{}
		}
	}
	if err := s.bind(ctx, sess.UserID); err != nil {
		return err
	}

	if s.sessions != nil {
		unsub := s.sessions.OnSessionChange(func(next Session) {
			if err := s.Rebind(context.Background(), next.UserID); err != nil {
				s.logger.Warn("session rebind failed", "user_id", next.UserID, "error", err)
			}
		})
		s.mu.Lock()
		s.unsubSession = unsub
		s.mu.Unlock()
	}
	return nil
}

// Close releases the change subscription and the session listener. Safe on
// every exit path, including after a failed Start.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	s.closed = true
	s.gen++
	unsubChanges := s.unsubChanges
	unsubSession := s.unsubSession
	s.unsubChanges = nil
	s.unsubSession = nil
	s.mu.Unlock()

	if unsubChanges != nil {
		unsubChanges()
	}
	if unsubSession != nil {
		unsubSession()
	}
}

// Rebind tears down the change subscription and recreates it scoped to the
// new identity. The subscription carries the user id as an explicit filter,
// so an identity switch is a teardown, never a filter mutation.
func (s *Synchronizer) Rebind(ctx context.Context, userID string) error {
	return s.bind(ctx, userID)
}

func (s *Synchronizer) bind(ctx context.Context, userID string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	old := s.unsubChanges
	s.unsubChanges = nil
	s.userID = userID
	s.notifications = nil
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	if old != nil {
		old()
	}
	if userID == "" {
		return nil
	}

	unsub, err := s.store.SubscribeChanges(ctx, SubscriptionFilter{NotificationUserID: userID}, s.handleEvent)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed || s.gen != gen {
		s.mu.Unlock()
		unsub()
		return nil
	}
	s.unsubChanges = unsub
	s.mu.Unlock()

	s.loadNotifications(ctx, userID, gen)
	return nil
}

// Refetch replaces the four bulk collections with fresh remote snapshots:
// listings newest first, users unordered, messages oldest first, orders
// newest first.
func (s *Synchronizer) Refetch(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	if s.phase == PhaseUnloaded {
		s.phase = PhaseLoading
	}
	gen := s.gen
	s.mu.Unlock()

	listingRows, err := s.store.Select(ctx, wire.TableListings, nil, &OrderBy{Column: "created_at", Descending: true})
	if err != nil {
		return err
	}
	userRows, err := s.store.Select(ctx, wire.TableUsers, nil, nil)
	if err != nil {
		return err
	}
	messageRows, err := s.store.Select(ctx, wire.TableChatMessages, nil, &OrderBy{Column: "timestamp"})
	if err != nil {
		return err
	}
	orderRows, err := s.store.Select(ctx, wire.TableOrders, nil, &OrderBy{Column: "created_at", Descending: true})
	if err != nil {
		return err
	}

	listings := make([]*listing.Listing, 0, len(listingRows))
	for _, raw := range listingRows {
		var rec wire.ListingRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			s.logger.Warn("skipping undecodable listing row", "error", err)
			continue
		}
		listings = append(listings, rec.ToDomain())
	}
	users := make([]*user.User, 0, len(userRows))
	for _, raw := range userRows {
		var rec wire.UserRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			s.logger.Warn("skipping undecodable user row", "error", err)
			continue
		}
		users = append(users, rec.ToDomain())
	}
	messages := make([]*chat.Message, 0, len(messageRows))
	for _, raw := range messageRows {
		var rec wire.MessageRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			s.logger.Warn("skipping undecodable message row", "error", err)
			continue
		}
		messages = append(messages, rec.ToDomain())
	}
	orders := make([]*order.Order, 0, len(orderRows))
	for _, raw := range orderRows {
		var rec wire.OrderRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			s.logger.Warn("skipping undecodable order row", "error", err)
			continue
		}
		orders = append(orders, rec.ToDomain())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.gen != gen {
		return nil
	}
	s.listings = listings
	s.users = users
	s.messages = messages
	s.orders = orders
	s.phase = PhaseLoaded
	return nil
}

func (s *Synchronizer) loadNotifications(ctx context.Context, userID string, gen int) {
	rows, err := s.store.Select(ctx, wire.TableNotifications,
		Filter{"user_id": userID}, &OrderBy{Column: "timestamp", Descending: true})
	if err != nil {
		s.logger.Warn("notification load failed", "user_id", userID, "error", err)
		return
	}
	notifications := make([]*notification.Notification, 0, len(rows))
	for _, raw := range rows {
		var rec wire.NotificationRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			s.logger.Warn("skipping undecodable notification row", "error", err)
			continue
		}
		notifications = append(notifications, rec.ToDomain())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.gen != gen {
		return
	}
	s.notifications = notifications
}

// handleEvent merges one remote-origin change. Message inserts append with
// id dedup (an optimistic local append may race its own push echo),
// notification inserts for the bound user prepend, and any listing or order
// mutation triggers a coarse refetch of the bulk collections.
func (s *Synchronizer) handleEvent(ev ChangeEvent) {
	switch ev.Table {
	case wire.TableChatMessages:
		if ev.Type != EventInsert {
			return
		}
		var rec wire.MessageRecord
		if err := json.Unmarshal(ev.Row, &rec); err != nil {
			s.logger.Warn("undecodable message event", "error", err)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return
		}
		for _, m := range s.messages {
			if m.ID == rec.ID {
				return
			}
		}
		s.messages = append(s.messages, rec.ToDomain())

	case wire.TableNotifications:
		if ev.Type != EventInsert {
			return
		}
		var rec wire.NotificationRecord
		if err := json.Unmarshal(ev.Row, &rec); err != nil {
			s.logger.Warn("undecodable notification event", "error", err)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed || rec.UserID != s.userID {
			return
		}
		for _, n := range s.notifications {
			if n.ID == rec.ID {
				return
			}
		}
		s.notifications = append([]*notification.Notification{rec.ToDomain()}, s.notifications...)

	case wire.TableListings, wire.TableOrders:
		// Coarse invalidation: these collections are small and change
		// rarely, a full refetch is simpler than patching. Failures are
		// background noise; the next event retries implicitly.
		go func() {
			if err := s.Refetch(context.Background()); err != nil {
				s.logger.Warn("background refetch failed", "table", ev.Table, "error", err)
			}
		}()
	}
}

// MarkNotificationRead applies the read flag locally first, then writes it
// remotely. On remote failure the local flag is restored and the error is
// returned to the caller.
func (s *Synchronizer) MarkNotificationRead(ctx context.Context, id string) error {
	s.mu.Lock()
	var target *notification.Notification
	wasRead := false
	for _, n := range s.notifications {
		if n.ID == id {
			target = n
			wasRead = n.Read
			n.Read = true
			break
		}
	}
	s.mu.Unlock()
	if target == nil {
		return ErrNotFound
	}

	err := s.store.Update(ctx, wire.TableNotifications, map[string]any{"read": true}, Filter{"id": id})
	if err != nil {
		s.mu.Lock()
		target.Read = wasRead
		s.mu.Unlock()
	}
	return err
}

// MarkAllNotificationsRead marks every notification of the bound user read,
// locally then remotely, restoring the previously-unread set on failure.
func (s *Synchronizer) MarkAllNotificationsRead(ctx context.Context) error {
	s.mu.Lock()
	userID := s.userID
	var flipped []*notification.Notification
	for _, n := range s.notifications {
		if !n.Read {
			n.Read = true
			flipped = append(flipped, n)
		}
	}
	s.mu.Unlock()
	if userID == "" {
		return nil
	}

	err := s.store.Update(ctx, wire.TableNotifications, map[string]any{"read": true}, Filter{"user_id": userID})
	if err != nil {
		s.mu.Lock()
		for _, n := range flipped {
			n.Read = false
		}
		s.mu.Unlock()
	}
	return err
}

// DeleteNotification removes the notification locally first, reinserting it
// at its old position if the remote delete fails.
func (s *Synchronizer) DeleteNotification(ctx context.Context, id string) error {
	s.mu.Lock()
	idx := -1
	var removed *notification.Notification
	for i, n := range s.notifications {
		if n.ID == id {
			idx = i
			removed = n
			break
		}
	}
	if idx >= 0 {
		s.notifications = append(s.notifications[:idx], s.notifications[idx+1:]...)
	}
	s.mu.Unlock()
	if removed == nil {
		return ErrNotFound
	}

	err := s.store.Delete(ctx, wire.TableNotifications, Filter{"id": id})
	if err != nil {
		s.mu.Lock()
		if idx > len(s.notifications) {
			idx = len(s.notifications)
		}
		s.notifications = append(s.notifications[:idx],
			append([]*notification.Notification{removed}, s.notifications[idx:]...)...)
		s.mu.Unlock()
	}
	return err
}

// ListingStatusExtra carries optional columns written along a status update.
type ListingStatusExtra struct {
	OfferAmount float64
}

// UpdateListingStatus patches the listing locally and writes the status
// remotely. Concurrent updates against the same listing are not serialized
// here; last write wins at the store until the next refetch.
func (s *Synchronizer) UpdateListingStatus(ctx context.Context, id string, status listing.Status, extra *ListingStatusExtra) error {
	if !listing.ValidStatus(status) {
		return listing.ErrInvalidStatus
	}
	now := time.Now().UnixMilli()

	s.mu.Lock()
	var target *listing.Listing
	var prev listing.Listing
	for _, l := range s.listings {
		if string(l.ID) == id {
			target = l
			prev = *l
			l.Status = status
			l.UpdatedAt = now
			if extra != nil && extra.OfferAmount > 0 {
				l.OfferAmount = extra.OfferAmount
			}
			break
		}
	}
	s.mu.Unlock()
	if target == nil {
		return ErrNotFound
	}

	patch := map[string]any{"status": string(status), "updated_at": now}
	if extra != nil && extra.OfferAmount > 0 {
		patch["offer_amount"] = extra.OfferAmount
	}
	err := s.store.Update(ctx, wire.TableListings, patch, Filter{"id": id})
	if err != nil {
		s.mu.Lock()
		*target = prev
		s.mu.Unlock()
	}
	return err
}

func (s *Synchronizer) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Synchronizer) BoundUser() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Listings returns a copy of the listing snapshot, newest first.
func (s *Synchronizer) Listings() []*listing.Listing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*listing.Listing(nil), s.listings...)
}

// ActiveListings is the marketplace grid view: ACTIVE listings only.
func (s *Synchronizer) ActiveListings() []*listing.Listing {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*listing.Listing, 0, len(s.listings))
	for _, l := range s.listings {
		if l.Status == listing.StatusActive {
			out = append(out, l)
		}
	}
	return out
}

func (s *Synchronizer) Users() []*user.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*user.User(nil), s.users...)
}

// Messages returns the message snapshot, oldest first.
func (s *Synchronizer) Messages() []*chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*chat.Message(nil), s.messages...)
}

func (s *Synchronizer) Orders() []*order.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*order.Order(nil), s.orders...)
}

// Notifications returns the bound user's notifications, newest first.
func (s *Synchronizer) Notifications() []*notification.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*notification.Notification(nil), s.notifications...)
}

func (s *Synchronizer) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.notifications {
		if !n.Read {
			count++
		}
	}
	return count
}
